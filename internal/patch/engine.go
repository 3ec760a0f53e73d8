package patch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/ir"
	"github.com/roach88/loom/internal/registry"
	"github.com/roach88/loom/internal/resolver"
)

// Engine registers mixin modules against one world and weaves them in a
// single pass. Engines are explicit values: two engines over two worlds
// are fully independent, and nothing in this package is process-global.
//
// Thread-safety: RegisterMixin and Weave are mutex-guarded. Weaving itself
// is serialized; the world must not be invoked concurrently with Weave.
type Engine struct {
	mu    sync.Mutex
	world *ir.World

	descs   []*descriptor.MixinDescriptor
	seen    map[string]bool
	applied bool

	strict   bool
	audit    AuditSink
	log      *slog.Logger
	tokens   TokenGenerator
	clock    *Clock
	symCount int
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithStrictMatch makes a scanning injection point with zero matches fail
// its spec instead of the default warn-and-continue. The failure is still
// local to that spec; the weave never aborts over it.
func WithStrictMatch() EngineOption {
	return func(e *Engine) { e.strict = true }
}

// WithAudit persists every weave outcome to the given sink.
func WithAudit(sink AuditSink) EngineOption {
	return func(e *Engine) { e.audit = sink }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithTokenGenerator overrides run token generation, mainly for
// deterministic tests.
func WithTokenGenerator(g TokenGenerator) EngineOption {
	return func(e *Engine) { e.tokens = g }
}

// New creates an engine over a world.
func New(world *ir.World, opts ...EngineOption) *Engine {
	e := &Engine{
		world:  world,
		seen:   make(map[string]bool),
		log:    slog.Default(),
		tokens: UUIDv7Generator{},
		clock:  NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterMixin collects a mixin module into a descriptor and queues it
// for the next weave.
//
// Registration is idempotent on content: re-registering a module with an
// identical declaration set is a no-op, keyed by the descriptor
// fingerprint. Registering after Weave returns ErrAlreadyApplied - there
// is no supported model for patching an already-woven world.
func (e *Engine) RegisterMixin(mod descriptor.Module) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.applied {
		return ErrAlreadyApplied
	}

	d, err := descriptor.Collect(mod)
	if err != nil {
		return err
	}
	fp, err := d.Fingerprint()
	if err != nil {
		return err
	}
	if e.seen[fp] {
		e.log.Debug("mixin re-registration ignored", "mixin", d.Mixin, "fingerprint", fp)
		return nil
	}
	e.seen[fp] = true
	e.descs = append(e.descs, d)
	e.log.Info("mixin registered", "mixin", d.Mixin, "target", d.Target, "specs", len(d.Specs()))
	return nil
}

// Weave resolves the registered descriptor set and applies every active
// spec to the world, phase by phase per target method.
//
// Failures are local: a spec that cannot resolve, match, or bind is
// reported and skipped while everything else proceeds. There is no
// rollback - a weave's partial effects stand, which is why Weave runs once
// per engine. The returned Report accounts for every spec and every
// exclusion.
func (e *Engine) Weave(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.applied {
		return nil, ErrAlreadyApplied
	}
	e.applied = true

	report := &Report{RunToken: e.tokens.Generate()}
	e.log.Info("weave starting", "run", report.RunToken, "mixins", len(e.descs))

	res := resolver.Resolve(e.descs)
	for _, ex := range res.Excluded() {
		e.log.Warn("mixin excluded",
			"mixin", ex.Desc.Mixin,
			"target", ex.Desc.Target,
			"reason", string(ex.Err.Reason),
			"other", ex.Err.Other,
		)
		e.record(ctx, report, Outcome{
			Mixin:  ex.Desc.Mixin,
			Target: ex.Desc.Target,
			Status: StatusExcluded,
			Detail: ex.Err.Error(),
		})
	}

	reg := registry.New(res.Order)
	for _, target := range res.Targets() {
		for _, d := range res.ForTarget(target) {
			for _, spec := range d.Specs() {
				method, sig := spec.TargetKey()
				key := registry.Key{Target: d.Target, Method: method, Sig: sig}
				if err := reg.Store(key, spec, d); err != nil {
					return report, err
				}
			}
		}
	}

	keys := reg.Keys()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Target != keys[j].Target {
			return keys[i].Target < keys[j].Target
		}
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		return keys[i].Sig < keys[j].Sig
	})

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e.patchKey(ctx, report, key, reg.Lookup(key))
	}

	e.log.Info("weave finished", "run", report.RunToken, "summary", report.Summary())
	return report, nil
}

// patchKey resolves one target method and drives its specs through the
// phase machine. Resolution failure skips every pending spec of the key.
func (e *Engine) patchKey(ctx context.Context, report *Report, key registry.Key, pending []registry.Pending) {
	m, rerr := e.resolveKey(key)
	if rerr != nil {
		e.log.Warn("target method did not resolve", "target", key.Target, "method", key.Method, "err", rerr)
		for _, p := range pending {
			owned := *rerr
			owned.Mixin = p.Desc.Mixin
			e.record(ctx, report, Outcome{
				Mixin:  p.Desc.Mixin,
				Target: key.Target,
				Method: key.Method + key.Sig,
				Spec:   p.Spec.SpecName(),
				Kind:   p.Spec.SpecKind().String(),
				Status: StatusSkipped,
				Detail: owned.Error(),
			})
		}
		return
	}

	for phase := PhaseRedirect; phase != PhaseApplied; phase = phase.Next() {
		kind := phase.SpecKind()
		for _, p := range pending {
			if p.Spec.SpecKind() != kind {
				continue
			}
			e.applySpec(ctx, report, phase, p, m)
		}
	}
}

// resolveKey maps a registry key to exactly one method, classifying
// failures into the reported taxonomy.
func (e *Engine) resolveKey(key registry.Key) (*ir.Method, *ResolutionError) {
	t := e.world.Type(key.Target)
	if t == nil {
		return nil, &ResolutionError{
			Target: key.Target,
			Method: key.Method,
			Sig:    key.Sig,
			Reason: ReasonNotFound,
			Err:    ir.ErrMethodNotFound,
		}
	}
	m, err := t.Resolve(key.Method, key.Sig)
	if err != nil {
		reason := ReasonNotFound
		if errors.Is(err, ir.ErrMethodAmbiguous) {
			reason = ReasonAmbiguous
		}
		return nil, &ResolutionError{
			Target: key.Target,
			Method: key.Method,
			Sig:    key.Sig,
			Reason: reason,
			Err:    err,
		}
	}
	return m, nil
}

// applySpec applies one spec to a resolved method and records the outcome.
func (e *Engine) applySpec(ctx context.Context, report *Report, phase Phase, p registry.Pending, m *ir.Method) {
	var err error
	switch spec := p.Spec.(type) {
	case *descriptor.RedirectSpec:
		err = e.applyRedirect(p.Desc, spec, m)
	case *descriptor.ConditionalInjectSpec:
		err = e.applyConditional(p.Desc, spec, m)
	case *descriptor.MultiInjectSpec:
		err = e.applyMulti(p.Desc, spec, m)
	case *descriptor.TranspilerSpec:
		err = e.applyTranspile(p.Desc, spec, m)
	case *descriptor.InjectSpec:
		err = e.applyInject(p.Desc, spec, m)
	case *descriptor.OverwriteSpec:
		err = e.applyOverwrite(p.Desc, spec, m)
	default:
		err = &HandlerSignatureError{
			Mixin:  p.Desc.Mixin,
			Target: p.Desc.Target,
			Method: m.Ident(),
			Detail: "unknown spec kind",
		}
	}

	out := Outcome{
		Mixin:  p.Desc.Mixin,
		Target: p.Desc.Target,
		Method: m.Ident(),
		Spec:   p.Spec.SpecName(),
		Kind:   p.Spec.SpecKind().String(),
		Phase:  phase.String(),
	}

	switch {
	case err == nil:
		out.Status = StatusApplied
	case IsPatternNotFound(err) && !e.strict:
		e.log.Warn("injection pattern not found", "mixin", p.Desc.Mixin, "method", m.Ident(), "err", err)
		out.Status = StatusSkipped
		out.Detail = err.Error()
	default:
		e.log.Warn("spec failed", "mixin", p.Desc.Mixin, "method", m.Ident(), "phase", phase.String(), "err", err)
		out.Status = StatusSkipped
		out.Detail = err.Error()
	}
	e.record(ctx, report, out)
}

// record appends an outcome to the report and, when auditing is on,
// persists it stamped with the next clock sequence. Sink failures are
// logged and swallowed: auditing never fails a weave.
func (e *Engine) record(ctx context.Context, report *Report, out Outcome) {
	report.Outcomes = append(report.Outcomes, out)
	if e.audit == nil {
		return
	}
	rec := AuditRecord{
		RunToken: report.RunToken,
		Seq:      e.clock.Next(),
		Mixin:    out.Mixin,
		Target:   out.Target,
		Method:   out.Method,
		Spec:     out.Spec,
		Kind:     out.Kind,
		Phase:    out.Phase,
		Status:   out.Status,
		Detail:   out.Detail,
	}
	if err := e.audit.Record(ctx, rec); err != nil {
		e.log.Error("audit write failed", "run", rec.RunToken, "seq", rec.Seq, "err", err)
	}
}
