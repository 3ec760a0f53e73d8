package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/manifest"
	"github.com/roach88/loom/internal/testutil"
)

// Recorder collects trace lines from fixture handlers in firing order.
type Recorder struct {
	lines []string
}

// Eventf appends one formatted trace line.
func (r *Recorder) Eventf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Lines returns the recorded trace in firing order.
func (r *Recorder) Lines() []string {
	return r.lines
}

// NewFixtureWorld builds the fixed target world every scenario runs
// against: a Counter type plus the "math.add" free function.
//
// Methods:
//
//	Increment(n)        count += n, returns the new count
//	Add(a, b)           returns math.add(a, b)
//	Clamp(n, limit)     returns n when n < limit, else limit (two exits)
//	Scale(int)          returns n * 2        (overloaded)
//	Scale(int,int)      returns n * factor   (overloaded)
//	Fail(msg)           throws msg
func NewFixtureWorld() *ir.World {
	counter := ir.NewType("Counter", map[string]ir.Value{
		"count": ir.Int(0),
	})

	methods := []*ir.Method{
		testutil.NewMethod("Increment", "", []string{"n"},
			testutil.FieldGet("v", "count"),
			testutil.Binary("t", "+", "v", "n"),
			testutil.FieldSet("count", "t"),
			testutil.Ret("t"),
		),
		testutil.NewMethod("Add", "", []string{"a", "b"},
			testutil.Call("s", "math.add", "a", "b"),
			testutil.Ret("s"),
		),
		testutil.NewMethod("Clamp", "", []string{"n", "limit"},
			testutil.Binary("c", "<", "n", "limit"),
			testutil.Branch("c", "at_limit"),
			testutil.Ret("n"),
			testutil.Labeled("at_limit", testutil.Ret("limit")),
		),
		testutil.NewMethod("Scale", "(int)", []string{"n"},
			testutil.Const("two", ir.Int(2)),
			testutil.Binary("t", "*", "n", "two"),
			testutil.Ret("t"),
		),
		testutil.NewMethod("Scale", "(int,int)", []string{"n", "factor"},
			testutil.Binary("t", "*", "n", "factor"),
			testutil.Ret("t"),
		),
		testutil.NewMethod("Fail", "", []string{"msg"},
			testutil.Throw("msg"),
		),
	}
	for _, m := range methods {
		if err := counter.AddMethod(m); err != nil {
			panic(err)
		}
	}

	w := testutil.NewWorld(counter)
	w.RegisterFunc("math.add", func(_ *ir.Object, args []ir.Value) (ir.Value, error) {
		a, _ := args[0].(ir.Int)
		b, _ := args[1].(ir.Int)
		return a + b, nil
	})
	return w
}

// FixtureTable builds the handler table scenarios reference by name.
// Every handler writes to the recorder, making firing order observable.
func FixtureTable(rec *Recorder) manifest.HandlerTable {
	return manifest.HandlerTable{
		Handlers: map[string]ir.HandlerFunc{
			"trace": func(inv *ir.Invocation) {
				rec.Eventf("handler trace %s.%s%s", inv.Target, inv.Method, formatArgs(inv.Args))
			},
			"trace_exit": func(inv *ir.Invocation) {
				rec.Eventf("handler trace_exit %s.%s result=%s", inv.Target, inv.Method, ir.FormatValue(inv.Result))
			},
			"cancel": func(inv *ir.Invocation) {
				rec.Eventf("handler cancel %s.%s", inv.Target, inv.Method)
				inv.Cancel()
			},
			"set_result_99": func(inv *ir.Invocation) {
				rec.Eventf("handler set_result_99 %s.%s", inv.Target, inv.Method)
				inv.Result = ir.Int(99)
			},
		},
		Conditions: map[string]ir.Condition{
			"arg_positive": func(inv *ir.Invocation) bool {
				n, ok := inv.Args["n"].(ir.Int)
				return ok && n > 0
			},
			"never": func(*ir.Invocation) bool { return false },
		},
		Calls: map[string]ir.Callable{
			"add_ten": func(_ *ir.Object, args []ir.Value) (ir.Value, error) {
				sum := ir.Int(10)
				for _, a := range args {
					if n, ok := a.(ir.Int); ok {
						sum += n
					}
				}
				rec.Eventf("call add_ten = %d", int64(sum))
				return sum, nil
			},
		},
		Transforms: map[string]descriptor.TransformFunc{
			"drop_field_writes": func(s *ir.Stream) (*ir.Stream, error) {
				out := ir.NewStream()
				for i := 0; i < s.Len(); i++ {
					if s.At(i).Kind == ir.OpFieldSet {
						continue
					}
					out.Append(s.At(i))
				}
				return out, nil
			},
		},
	}
}

// formatArgs renders named arguments sorted by name, prefixed with a
// space, or empty for no args.
func formatArgs(args map[string]ir.Value) string {
	if len(args) == 0 {
		return ""
	}
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%s", name, ir.FormatValue(args[name]))
	}
	return b.String()
}
