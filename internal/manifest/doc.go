// Package manifest compiles CUE mixin manifests into descriptor modules.
//
// A manifest declares mixin modules as data: target type, requires and
// conflicts sets, and per-declaration clauses. Handlers are code, not
// data, so the manifest references them by name and compilation resolves
// the names against a Go-side HandlerTable:
//
//	mixin: logging: {
//		target: "Cart"
//		decl: audit: {
//			method:  "Checkout"
//			handler: "logCheckout"
//			inject: {at: "HEAD", priority: 100}
//		}
//	}
//
// Compilation uses the CUE SDK's Go API directly (not a CLI subprocess)
// and is purely syntactic: declared methods are not resolved against any
// target type here. Unresolvable handler names, however, are compile
// errors - a manifest must not reference code that does not exist.
package manifest
