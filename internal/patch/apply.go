package patch

import (
	"fmt"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
)

// handlerSym mints a unique callable symbol for a spliced handler and
// registers its trampoline in the world. The trampoline rebuilds the
// handler's invocation view (receiver + named method args) from the frame
// and evaluates the condition, if any, at call time - condition evaluation
// is a runtime concern of the inserted call, not of the rewriting pass.
func (e *Engine) handlerSym(desc *descriptor.MixinDescriptor, specName string, m *ir.Method, h ir.HandlerFunc, cond ir.Condition) string {
	e.symCount++
	sym := fmt.Sprintf("loom/%s/%s#%d", desc.Mixin, specName, e.symCount)
	target := desc.Target
	ident := m.Ident()
	params := append([]string(nil), m.Params...)

	e.world.RegisterFunc(sym, func(recv *ir.Object, args []ir.Value) (ir.Value, error) {
		named := make(map[string]ir.Value, len(args))
		for i := 0; i < len(params) && i < len(args); i++ {
			named[params[i]] = args[i]
		}
		inv := &ir.Invocation{
			Target: target,
			Method: ident,
			Recv:   recv,
			Args:   named,
			Result: ir.Null{},
		}
		if cond == nil || cond(inv) {
			h(inv)
		}
		return ir.Null{}, nil
	})
	return sym
}

// handlerFragment builds the instruction fragment invoking a spliced
// handler: a single call passing the method's declared parameters.
func (e *Engine) handlerFragment(desc *descriptor.MixinDescriptor, specName string, m *ir.Method, h ir.HandlerFunc, cond ir.Condition) []ir.Instruction {
	sym := e.handlerSym(desc, specName, m, h, cond)
	return []ir.Instruction{{
		Kind: ir.OpCall,
		Sym:  sym,
		Args: append([]string(nil), m.Params...),
	}}
}

// applyPoint applies one handler at one injection point of a method.
// Structural points install hooks; scanning points splice fragments.
func (e *Engine) applyPoint(
	desc *descriptor.MixinDescriptor,
	specName string,
	m *ir.Method,
	at descriptor.InjectionPoint,
	h ir.HandlerFunc,
	cond ir.Condition,
	cancellable bool,
) error {
	hookName := desc.Mixin + "." + specName

	switch at {
	case descriptor.AtHead:
		m.AddPrologue(ir.Hook{Name: hookName, Fn: h, Cancellable: cancellable, Cond: cond})
		return nil
	case descriptor.AtTail:
		m.AddEpilogue(ir.Hook{Name: hookName, Fn: h, Cond: cond})
		return nil
	}

	points := matcherFor(at)(m.Body)
	if len(points) == 0 {
		return &PatternNotFoundError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), At: string(at)}
	}
	frag := e.handlerFragment(desc, specName, m, h, cond)
	return spliceAll(m.Body, points, frag)
}

func (e *Engine) applyInject(desc *descriptor.MixinDescriptor, spec *descriptor.InjectSpec, m *ir.Method) error {
	if spec.Handler == nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: "nil handler"}
	}
	return e.applyPoint(desc, spec.Name, m, spec.At, spec.Handler, nil, spec.Cancellable)
}

func (e *Engine) applyConditional(desc *descriptor.MixinDescriptor, spec *descriptor.ConditionalInjectSpec, m *ir.Method) error {
	if spec.Handler == nil || spec.Condition == nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: "nil handler or condition"}
	}
	return e.applyPoint(desc, spec.Name, m, spec.At, spec.Handler, spec.Condition, spec.Cancellable)
}

// applyMulti applies the shared handler at each declared point
// independently. A point with no match fails only that point; the spec
// counts as applied when at least one point landed (all-miss is a pattern
// failure for the whole spec).
func (e *Engine) applyMulti(desc *descriptor.MixinDescriptor, spec *descriptor.MultiInjectSpec, m *ir.Method) error {
	if spec.Handler == nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: "nil handler"}
	}

	applied := 0
	var lastMiss error
	for _, at := range spec.At {
		err := e.applyPoint(desc, spec.Name, m, at, spec.Handler, nil, false)
		if err != nil {
			if IsPatternNotFound(err) {
				lastMiss = err
				e.log.Warn("multi-inject point not found",
					"mixin", desc.Mixin,
					"target", desc.Target,
					"method", m.Ident(),
					"at", string(at),
				)
				continue
			}
			return err
		}
		applied++
	}
	if applied == 0 && lastMiss != nil {
		return lastMiss
	}
	return nil
}

// applyRedirect retargets every call site invoking the declared symbol.
//
// All matching sites are arity-checked against the handler before any site
// is rewritten, so a signature mismatch fails the spec without leaving a
// half-redirected method behind. Arguments and stack shape are untouched -
// only the call's target reference changes.
func (e *Engine) applyRedirect(desc *descriptor.MixinDescriptor, spec *descriptor.RedirectSpec, m *ir.Method) error {
	if spec.Handler == nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: "nil call handler"}
	}

	var sites []int
	for i := 0; i < m.Body.Len(); i++ {
		in := m.Body.At(i)
		if in.Kind != ir.OpCall || in.Sym != spec.CallSym {
			continue
		}
		if len(in.Args) != spec.Arity {
			return &HandlerSignatureError{
				Mixin:  desc.Mixin,
				Target: desc.Target,
				Method: m.Ident(),
				Detail: fmt.Sprintf("call site %q at %04d passes %d args, redirect handler takes %d",
					spec.CallSym, i, len(in.Args), spec.Arity),
			}
		}
		sites = append(sites, i)
	}
	if len(sites) == 0 {
		return &PatternNotFoundError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), At: "call " + spec.CallSym}
	}

	e.symCount++
	sym := fmt.Sprintf("loom/%s/%s#%d", desc.Mixin, spec.Name, e.symCount)
	e.world.RegisterFunc(sym, spec.Handler)
	for _, i := range sites {
		m.Body.SetSym(i, sym)
	}
	return nil
}

// applyTranspile hands the current stream to the transform and adopts its
// replacement wholesale. The transform takes full responsibility for the
// result; it receives a clone, so a failing transform leaves the method
// untouched.
func (e *Engine) applyTranspile(desc *descriptor.MixinDescriptor, spec *descriptor.TranspilerSpec, m *ir.Method) error {
	if spec.Transform == nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: "nil transform"}
	}
	out, err := spec.Transform(m.Body.Clone())
	if err != nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: fmt.Sprintf("transform failed: %v", err)}
	}
	if out == nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: "transform returned no stream"}
	}
	m.Body = out
	return nil
}

// applyOverwrite installs a prologue hook that unconditionally suppresses
// the body and runs the replacement handler instead.
//
// With PreserveOriginal, a snapshot of the body AS OF THIS PHASE - after
// redirects and injections, which is the point of running overwrite last -
// stays callable under the "<method>$original" alias. Without it, the body
// remains in place as unreachable dead code.
func (e *Engine) applyOverwrite(desc *descriptor.MixinDescriptor, spec *descriptor.OverwriteSpec, m *ir.Method) error {
	if spec.Handler == nil {
		return &HandlerSignatureError{Mixin: desc.Mixin, Target: desc.Target, Method: m.Ident(), Detail: "nil handler"}
	}

	if spec.PreserveOriginal {
		snapshot := m.Body.Clone()
		params := append([]string(nil), m.Params...)
		alias := desc.Target + "." + m.Ident() + "$original"
		world := e.world
		world.RegisterFunc(alias, func(recv *ir.Object, args []ir.Value) (ir.Value, error) {
			return world.RunStream(snapshot, recv, params, args, alias)
		})
	}

	m.AddPrologue(ir.Hook{
		Name:     desc.Mixin + "." + spec.Name,
		Fn:       spec.Handler,
		Suppress: true,
	})
	return nil
}
