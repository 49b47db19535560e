package chipdb

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the structural failure categories of spec.md §4.1
// and §7. Validate wraps them in the structured error types below so
// callers keep access to the entity id and kind involved, while
// errors.Is(err, ErrCycleDetected) etc. still works against the wrapped
// sentinel. ByName wraps ErrNameNotFoundKind with fmt.Errorf instead.
var (
	// ErrNameNotFoundKind indicates a by-name lookup failed.
	ErrNameNotFoundKind = errors.New("chipdb: name not found")
	// ErrMissingAttribute indicates a required attribute was never set.
	ErrMissingAttribute = errors.New("chipdb: missing attribute")
	// ErrKindMismatch indicates a child was attached under the wrong edge kind.
	ErrKindMismatch = errors.New("chipdb: kind mismatch")
	// ErrCycleDetected indicates the parent relation is not a forest.
	ErrCycleDetected = errors.New("chipdb: cycle detected")
)

// ValidationError aggregates every invariant violation found by a single
// Validate() call, mirroring the teacher's pattern of a structured error
// type with a Cause chain rather than a pre-formatted string.
type ValidationError struct {
	Violations []*Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "chipdb: %d invariant violations", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.Error())
	}
	return b.String()
}

// Unwrap exposes every violation, so errors.Is and errors.As match a
// sentinel carried by any of them, not only the first.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		errs[i] = v
	}
	return errs
}

// Violation is a single invariant failure: which entity, which invariant,
// and why.
type Violation struct {
	Entity  EntityID
	Kind    Kind
	Message string
	Cause   error
}

func (v *Violation) Error() string {
	var b strings.Builder
	b.WriteString("chipdb: invariant violation")
	if v.Entity != 0 {
		fmt.Fprintf(&b, " on entity %d", v.Entity)
	}
	if v.Kind != "" {
		fmt.Fprintf(&b, " (%s)", v.Kind)
	}
	if v.Message != "" {
		b.WriteString(": ")
		b.WriteString(v.Message)
	}
	if v.Cause != nil {
		b.WriteString(": ")
		b.WriteString(v.Cause.Error())
	}
	return b.String()
}

func (v *Violation) Unwrap() error { return v.Cause }

// Severity of a per-item or emission diagnostic (spec.md §7's
// "per-item"/"emission" categories, which are logged and skipped rather
// than raised).
type Severity int

const (
	SeverityWarning Severity = iota
	SeveritySkipped
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeveritySkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Diagnostic is one accumulated per-item or emission log entry. Loaders
// and the generator append to a Diagnostics log instead of failing the
// whole run, per spec.md §7.
type Diagnostic struct {
	Severity  Severity
	Component string // e.g. "svd", "atdf", "gen"
	Message   string
	Entity    EntityID
}

func (d Diagnostic) String() string {
	if d.Entity != 0 {
		return fmt.Sprintf("%s[%s]: %s (entity %d)", d.Component, d.Severity, d.Message, d.Entity)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Component, d.Severity, d.Message)
}

// Diagnostics is an ordered accumulation of per-item/emission diagnostics.
type Diagnostics []Diagnostic

// Warn appends a warning-level diagnostic.
func (d *Diagnostics) Warn(component, message string, entity EntityID) {
	*d = append(*d, Diagnostic{Severity: SeverityWarning, Component: component, Message: message, Entity: entity})
}

// Skip appends a skipped-level diagnostic.
func (d *Diagnostics) Skip(component, message string, entity EntityID) {
	*d = append(*d, Diagnostic{Severity: SeveritySkipped, Component: component, Message: message, Entity: entity})
}
