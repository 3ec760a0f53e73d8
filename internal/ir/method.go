package ir

import (
	"errors"
	"fmt"
	"sort"
)

// Resolution failures surfaced by Type.Resolve. The patch engine wraps
// these into its reported error taxonomy.
var (
	// ErrMethodNotFound indicates no method carries the requested name.
	ErrMethodNotFound = errors.New("method not found")

	// ErrMethodAmbiguous indicates the name matches multiple overloads and
	// no signature disambiguator was supplied. Resolution never picks an
	// arbitrary overload.
	ErrMethodAmbiguous = errors.New("method name is ambiguous among overloads")
)

// HandlerFunc is the shape of an injection handler. It receives the live
// invocation: target instance, named arguments, and (for exit-point
// handlers) the pending result.
type HandlerFunc func(inv *Invocation)

// Condition gates a conditional injection at runtime. Evaluated by the
// spliced call on every invocation, not during rewriting.
type Condition func(inv *Invocation) bool

// Callable is a function reachable from OpCall instructions.
// recv is nil for free functions.
type Callable func(recv *Object, args []Value) (Value, error)

// Hook is a prologue or epilogue handler installed on a method.
// HEAD and TAIL injection points are structural, so they are implemented
// as hooks rather than stream edits.
type Hook struct {
	// Name identifies the hook for logs and traces (mixin-qualified).
	Name string

	Fn HandlerFunc

	// Cancellable permits the handler to suppress the method body via
	// Invocation.Cancel. Only HEAD hooks may be cancellable.
	Cancellable bool

	// Suppress unconditionally skips the method body. Set by overwrite
	// application; the hook's handler is the replacement implementation.
	Suppress bool

	// Cond, when non-nil, gates the handler per invocation.
	Cond Condition
}

// Invocation carries one call through a patched method: the receiver, the
// named arguments, and the result slot exit handlers observe and overwrite
// handlers populate.
type Invocation struct {
	Target string
	Method string
	Recv   *Object
	Args   map[string]Value

	// Result is the method's pending return value. Null until the body
	// (or an overwrite handler) produces one. TAIL handlers see the final
	// value; overwrite handlers set it.
	Result Value

	cancelled bool
}

// Cancel requests suppression of the original method body.
// Honored only when the current hook was installed as cancellable;
// calls from non-cancellable handlers are ignored by the invoker.
func (inv *Invocation) Cancel() {
	inv.cancelled = true
}

// Cancelled reports whether a cancellable handler requested suppression.
func (inv *Invocation) Cancelled() bool {
	return inv.cancelled
}

// Method is one method of a target type. Body is the current instruction
// stream; prologue/epilogue hold the structural HEAD/TAIL hooks the patch
// engine installs.
type Method struct {
	Name   string
	Sig    string // overload disambiguator, e.g. "(int)"; empty for non-overloaded methods
	Params []string
	Static bool
	Body   *Stream

	prologue []Hook
	epilogue []Hook
}

// AddPrologue appends a HEAD hook. Hooks run in append order.
func (m *Method) AddPrologue(h Hook) {
	m.prologue = append(m.prologue, h)
}

// AddEpilogue appends a TAIL hook. Hooks run in append order, after the
// body completes and before the caller observes the result.
func (m *Method) AddEpilogue(h Hook) {
	m.epilogue = append(m.epilogue, h)
}

// Prologue returns the installed HEAD hooks in run order.
func (m *Method) Prologue() []Hook {
	return m.prologue
}

// Epilogue returns the installed TAIL hooks in run order.
func (m *Method) Epilogue() []Hook {
	return m.epilogue
}

// Ident returns the method's display identity, including the signature
// disambiguator when present.
func (m *Method) Ident() string {
	if m.Sig != "" {
		return m.Name + m.Sig
	}
	return m.Name
}

// Type is a target type: named fields with default values plus methods.
type Type struct {
	Name    string
	Fields  map[string]Value
	methods []*Method
}

// NewType creates a type with the given default field values.
func NewType(name string, fields map[string]Value) *Type {
	if fields == nil {
		fields = map[string]Value{}
	}
	return &Type{Name: name, Fields: fields}
}

// AddMethod attaches a method. Duplicate (name, sig) pairs are rejected.
func (t *Type) AddMethod(m *Method) error {
	for _, existing := range t.methods {
		if existing.Name == m.Name && existing.Sig == m.Sig {
			return fmt.Errorf("type %s: duplicate method %s", t.Name, m.Ident())
		}
	}
	t.methods = append(t.methods, m)
	return nil
}

// Methods returns all methods in declaration order.
func (t *Type) Methods() []*Method {
	return t.methods
}

// Resolve finds exactly one method by name and optional signature
// disambiguator.
//
// With an empty sig, the name must match exactly one method; multiple
// overloads yield ErrMethodAmbiguous rather than an arbitrary pick.
// With a sig, only the exact (name, sig) pair matches.
func (t *Type) Resolve(name, sig string) (*Method, error) {
	var matches []*Method
	for _, m := range t.methods {
		if m.Name != name {
			continue
		}
		if sig != "" && m.Sig != sig {
			continue
		}
		matches = append(matches, m)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("type %s: %s%s: %w", t.Name, name, sig, ErrMethodNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("type %s: %s matches %d overloads: %w", t.Name, name, len(matches), ErrMethodAmbiguous)
	}
}

// Object is a live instance of a Type.
type Object struct {
	TypeName string
	Fields   map[string]Value
}

// World holds the target types and callables one engine instance patches
// and executes against. It replaces any notion of process-global
// registries: independent engines own independent worlds.
type World struct {
	types map[string]*Type
	funcs map[string]Callable

	// maxSteps bounds body execution to catch runaway loops in fixtures.
	maxSteps int
}

// DefaultMaxSteps bounds instructions executed per method invocation.
const DefaultMaxSteps = 10000

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		types:    make(map[string]*Type),
		funcs:    make(map[string]Callable),
		maxSteps: DefaultMaxSteps,
	}
}

// AddType registers a target type. Duplicate names are rejected.
func (w *World) AddType(t *Type) error {
	if _, exists := w.types[t.Name]; exists {
		return fmt.Errorf("type %s already registered", t.Name)
	}
	w.types[t.Name] = t
	return nil
}

// Type returns the named type, or nil.
func (w *World) Type(name string) *Type {
	return w.types[name]
}

// TypeNames returns all registered type names in ascending order.
// Deterministic iteration order matters for patch application and reports.
func (w *World) TypeNames() []string {
	names := make([]string, 0, len(w.types))
	for name := range w.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterFunc binds a callable symbol. Later bindings overwrite earlier
// ones; the patch engine relies on this for unique generated symbols only.
func (w *World) RegisterFunc(sym string, fn Callable) {
	w.funcs[sym] = fn
}

// Func returns the callable bound to sym, or nil.
func (w *World) Func(sym string) Callable {
	return w.funcs[sym]
}

// SetMaxSteps overrides the per-invocation instruction budget.
func (w *World) SetMaxSteps(n int) {
	w.maxSteps = n
}

// NewObject instantiates a registered type with its default field values.
func (w *World) NewObject(typeName string) (*Object, error) {
	t, ok := w.types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", typeName)
	}
	fields := make(map[string]Value, len(t.Fields))
	for k, v := range t.Fields {
		fields[k] = v
	}
	return &Object{TypeName: t.Name, Fields: fields}, nil
}
