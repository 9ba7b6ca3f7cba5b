package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // artifact and file resolution
	PhaseValidate Phase = "validate" // layout shape checks
	PhaseCollate  Phase = "collate"  // declaration expansion and packing
	PhaseMerge    Phase = "merge"    // slot alignment between two layouts
	PhaseExport   Phase = "export"   // layout export
	PhaseCheckout Phase = "checkout" // revision worktrees
	PhaseConfig   Phase = "config"   // project configuration
	PhaseRender   Phase = "render"   // table output
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidLayout Kind = "invalid_layout"
	KindUnknownType   Kind = "unknown_type"
	KindMisaligned    Kind = "misaligned"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidInput  Kind = "invalid_input"
	KindAmbiguous     Kind = "ambiguous"
	KindOverflow      Kind = "overflow"
	KindIO            Kind = "io"
	KindCommand       Kind = "command"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Source string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
// An *AmbiguousNameError reports KindAmbiguous.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var amb *AmbiguousNameError
	if errors.As(err, &amb) {
		return KindAmbiguous
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
// It forwards to the standard library so callers need only this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the declaration path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Source sets the originating file path or contract name
func (b *Builder) Source(source string) *Builder {
	b.err.Source = source
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Source: name,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidLayout creates a malformed layout error for source
func InvalidLayout(source string, path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidLayout,
		Source: source,
		Path:   path,
		Detail: detail,
	}
}

// UnknownType creates an error for a type id missing from the type catalog
func UnknownType(path []string, typeID string) *Error {
	return &Error{
		Phase:  PhaseCollate,
		Kind:   KindUnknownType,
		Path:   path,
		Detail: fmt.Sprintf("type %q not in catalog", typeID),
		Value:  typeID,
	}
}

// Misaligned creates a merge alignment failure
func Misaligned(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseMerge,
		Kind:   KindMisaligned,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, limit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v exceeds %s", value, limit),
		Value:  value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// IO wraps a filesystem failure on path
func IO(phase Phase, path string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Source: path,
		Cause:  cause,
	}
}

// Command creates an external command failure
func Command(phase Phase, command string, output string, cause error) *Error {
	detail := command
	if out := strings.TrimSpace(output); out != "" {
		detail += ": " + out
	}
	return &Error{
		Phase:  phase,
		Kind:   KindCommand,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// AmbiguousNameError is returned when a bare contract name matches more than one
// fully qualified name.
type AmbiguousNameError struct {
	Name       string
	Candidates []string // "source.sol:Name"
}

// NewAmbiguousNameError creates an error from a list of fully qualified names
func NewAmbiguousNameError(name string, candidates []string) *AmbiguousNameError {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	return &AmbiguousNameError{
		Name:       name,
		Candidates: sorted,
	}
}

func (e *AmbiguousNameError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("[load] ambiguous: %q matches no candidates", e.Name)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[load] ambiguous: %q matches %d contracts, use a fully qualified name:\n", e.Name, len(e.Candidates)))

	// Group by source file for cleaner output
	bySource := make(map[string][]string)
	var order []string
	for _, fqn := range e.Candidates {
		source, contract := splitQualifiedName(fqn)
		if _, exists := bySource[source]; !exists {
			order = append(order, source)
		}
		bySource[source] = append(bySource[source], contract)
	}

	for _, source := range order {
		b.WriteString("\n  ")
		b.WriteString(source)
		b.WriteString(":\n")
		for _, contract := range bySource[source] {
			b.WriteString("    - ")
			b.WriteString(contract)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *AmbiguousNameError) Is(target error) bool {
	if _, ok := target.(*AmbiguousNameError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Phase == PhaseLoad && t.Kind == KindAmbiguous
	}
	return false
}

func splitQualifiedName(fqn string) (source, contract string) {
	i := strings.LastIndexByte(fqn, ':')
	if i < 0 {
		return "", fqn
	}
	return fqn[:i], fqn[i+1:]
}
