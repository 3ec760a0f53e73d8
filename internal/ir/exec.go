package ir

import (
	"fmt"
)

// ThrownError wraps a value raised by an OpThrow instruction.
type ThrownError struct {
	Value Value
}

func (e *ThrownError) Error() string {
	return fmt.Sprintf("thrown: %s", FormatValue(e.Value))
}

// StepsExceededError indicates a method body exceeded the per-invocation
// instruction budget (a runaway loop in a fixture or a transpiler bug).
type StepsExceededError struct {
	Method string
	Limit  int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("%s: exceeded %d instruction steps", e.Method, e.Limit)
}

// Invoke executes a method on the named type.
//
// Execution order through a patched method:
//  1. Prologue hooks (HEAD injects, then overwrites), in install order.
//     Every prologue hook runs; cancellation and overwrite suppression
//     take effect only after the full prologue completes, so a
//     lower-priority HEAD handler still observes the invocation even when
//     an earlier one cancelled it.
//  2. The body stream, unless suppressed.
//  3. Epilogue (TAIL) hooks, which observe the final result. Skipped when
//     the body throws - a throw is not a return.
//
// recv may be nil for static methods.
func (w *World) Invoke(typeName string, recv *Object, method, sig string, args ...Value) (Value, error) {
	t, ok := w.types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", typeName)
	}
	m, err := t.Resolve(method, sig)
	if err != nil {
		return nil, err
	}
	if len(args) != len(m.Params) {
		return nil, fmt.Errorf("%s.%s: want %d args, got %d", typeName, m.Ident(), len(m.Params), len(args))
	}

	named := make(map[string]Value, len(args))
	for i, p := range m.Params {
		named[p] = args[i]
	}
	inv := &Invocation{
		Target: typeName,
		Method: m.Ident(),
		Recv:   recv,
		Args:   named,
		Result: Null{},
	}

	suppress := false
	for _, h := range m.prologue {
		if h.Cond != nil && !h.Cond(inv) {
			continue
		}
		was := inv.cancelled
		h.Fn(inv)
		if !h.Cancellable {
			// Cancel is part of the HEAD contract only; anything else
			// calling it is a handler bug, ignored.
			inv.cancelled = was
		}
		if h.Suppress {
			suppress = true
		}
	}

	if !suppress && !inv.cancelled {
		vars := make(map[string]Value, len(args)+4)
		for i, p := range m.Params {
			vars[p] = args[i]
		}
		result, err := w.runStream(m.Body, recv, vars, typeName+"."+m.Ident())
		if err != nil {
			return nil, err
		}
		inv.Result = result
	}

	for _, h := range m.epilogue {
		if h.Cond != nil && !h.Cond(inv) {
			continue
		}
		h.Fn(inv)
	}

	return inv.Result, nil
}

// RunStream executes a detached stream with the given parameter binding,
// outside any method's hook pipeline. The patch engine uses this to back
// the "$original" alias an overwrite may preserve: the alias must run the
// pre-overwrite body directly, not re-enter the patched method.
func (w *World) RunStream(s *Stream, recv *Object, params []string, args []Value, ident string) (Value, error) {
	if len(args) != len(params) {
		return nil, fmt.Errorf("%s: want %d args, got %d", ident, len(params), len(args))
	}
	vars := make(map[string]Value, len(args)+4)
	for i, p := range params {
		vars[p] = args[i]
	}
	return w.runStream(s, recv, vars, ident)
}

// runStream interprets a body stream against a frame of named variables.
func (w *World) runStream(s *Stream, recv *Object, vars map[string]Value, ident string) (Value, error) {
	pc := 0
	steps := 0
	for pc < s.Len() {
		steps++
		if steps > w.maxSteps {
			return nil, &StepsExceededError{Method: ident, Limit: w.maxSteps}
		}

		in := s.At(pc)
		switch in.Kind {
		case OpConst:
			val := in.Val
			if val == nil {
				val = Null{}
			}
			vars[in.Dst] = val

		case OpCall:
			fn := w.funcs[in.Sym]
			if fn == nil {
				return nil, fmt.Errorf("%s: unknown callable %q at %04d", ident, in.Sym, pc)
			}
			argv := make([]Value, len(in.Args))
			for i, a := range in.Args {
				argv[i] = frameVar(vars, a)
			}
			result, err := fn(recv, argv)
			if err != nil {
				return nil, err
			}
			if in.Dst != "" {
				if result == nil {
					result = Null{}
				}
				vars[in.Dst] = result
			}

		case OpReturn:
			if len(in.Args) > 0 {
				return frameVar(vars, in.Args[0]), nil
			}
			return Null{}, nil

		case OpFieldGet:
			if recv == nil {
				return nil, fmt.Errorf("%s: field read %q with nil receiver at %04d", ident, in.Sym, pc)
			}
			vars[in.Dst] = frameVar(recv.Fields, in.Sym)

		case OpFieldSet:
			if recv == nil {
				return nil, fmt.Errorf("%s: field write %q with nil receiver at %04d", ident, in.Sym, pc)
			}
			recv.Fields[in.Sym] = frameVar(vars, in.Args[0])

		case OpThrow:
			return nil, &ThrownError{Value: frameVar(vars, in.Args[0])}

		case OpNew:
			obj, err := w.NewObject(in.Sym)
			if err != nil {
				return nil, fmt.Errorf("%s: %w at %04d", ident, err, pc)
			}
			if in.Dst != "" {
				vars[in.Dst] = Ref{Obj: obj}
			}

		case OpJump:
			target := s.FindLabel(in.Jump)
			if target < 0 {
				return nil, fmt.Errorf("%s: jump to unknown label %q at %04d", ident, in.Jump, pc)
			}
			pc = target
			continue

		case OpBranch:
			if !Truthy(frameVar(vars, in.Args[0])) {
				target := s.FindLabel(in.Jump)
				if target < 0 {
					return nil, fmt.Errorf("%s: branch to unknown label %q at %04d", ident, in.Jump, pc)
				}
				pc = target
				continue
			}

		case OpBinary:
			result, err := evalBinary(in.Sym, frameVar(vars, in.Args[0]), frameVar(vars, in.Args[1]))
			if err != nil {
				return nil, fmt.Errorf("%s: %w at %04d", ident, err, pc)
			}
			vars[in.Dst] = result

		default:
			return nil, fmt.Errorf("%s: unknown op kind %d at %04d", ident, in.Kind, pc)
		}
		pc++
	}

	// Fell off the end: implicit void return.
	return Null{}, nil
}

// frameVar reads a variable, defaulting to Null for unset names.
func frameVar(vars map[string]Value, name string) Value {
	if v, ok := vars[name]; ok && v != nil {
		return v
	}
	return Null{}
}

// evalBinary applies an arithmetic or comparison operator.
// Arithmetic requires Int operands; == and != compare structurally.
func evalBinary(op string, a, b Value) (Value, error) {
	switch op {
	case "==":
		return Bool(Equal(a, b)), nil
	case "!=":
		return Bool(!Equal(a, b)), nil
	}

	ai, aok := a.(Int)
	bi, bok := b.(Int)
	if !aok || !bok {
		return nil, fmt.Errorf("operator %q requires int operands, got %T and %T", op, a, b)
	}
	switch op {
	case "+":
		return ai + bi, nil
	case "-":
		return ai - bi, nil
	case "*":
		return ai * bi, nil
	case "<":
		return Bool(ai < bi), nil
	case "<=":
		return Bool(ai <= bi), nil
	case ">":
		return Bool(ai > bi), nil
	case ">=":
		return Bool(ai >= bi), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}
