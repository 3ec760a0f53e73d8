package patch

import (
	"errors"
	"fmt"
)

// ErrAlreadyApplied is returned when Weave is called twice, or when a
// mixin is registered after Weave. There is no supported model for
// patching an already-woven world.
var ErrAlreadyApplied = errors.New("mixins already applied to this world")

// Error codes carried into logs, reports, and audit records.
const (
	CodeResolution       = "RESOLUTION"
	CodeConflict         = "CONFLICT"
	CodePatternNotFound  = "PATTERN_NOT_FOUND"
	CodeHandlerSignature = "HANDLER_SIGNATURE"
)

// ResolutionReason distinguishes resolution failure causes.
type ResolutionReason string

const (
	// ReasonNotFound indicates the declared method name does not exist on
	// the target type.
	ReasonNotFound ResolutionReason = "NOT_FOUND"

	// ReasonAmbiguous indicates the name matches multiple overloads and
	// the spec carries no signature disambiguator. The engine never picks
	// an arbitrary overload.
	ReasonAmbiguous ResolutionReason = "AMBIGUOUS"
)

// ResolutionError reports a spec whose declared target method could not be
// resolved to exactly one method. The spec is skipped; all other specs for
// the same or other methods proceed.
type ResolutionError struct {
	Mixin  string
	Target string
	Method string
	Sig    string
	Reason ResolutionReason
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s/%s: mixin %s: %s.%s%s: %v",
		CodeResolution, e.Reason, e.Mixin, e.Target, e.Method, e.Sig, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// PatternNotFoundError reports a scanning matcher that found no matching
// operation category in the target method body. Default policy is
// warn-and-continue; WithStrictMatch turns it into a spec failure (still
// local, never a weave abort).
type PatternNotFoundError struct {
	Mixin  string
	Target string
	Method string
	At     string
}

func (e *PatternNotFoundError) Error() string {
	return fmt.Sprintf("%s: mixin %s: %s.%s has no %s injection point",
		CodePatternNotFound, e.Mixin, e.Target, e.Method, e.At)
}

// HandlerSignatureError reports a handler whose shape is incompatible with
// the site it is bound to (redirect arity mismatch, nil handler, transpiler
// returning nothing). Reported at apply time; that one spec is skipped.
type HandlerSignatureError struct {
	Mixin  string
	Target string
	Method string
	Detail string
}

func (e *HandlerSignatureError) Error() string {
	return fmt.Sprintf("%s: mixin %s: %s.%s: %s",
		CodeHandlerSignature, e.Mixin, e.Target, e.Method, e.Detail)
}

// IsResolutionError reports whether err is a ResolutionError.
// Uses errors.As to handle wrapped errors.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// IsPatternNotFound reports whether err is a PatternNotFoundError.
func IsPatternNotFound(err error) bool {
	var pe *PatternNotFoundError
	return errors.As(err, &pe)
}

// IsHandlerSignatureError reports whether err is a HandlerSignatureError.
func IsHandlerSignatureError(err error) bool {
	var he *HandlerSignatureError
	return errors.As(err, &he)
}
