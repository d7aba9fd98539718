package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which operation produced the error
type Phase string

const (
	PhaseAlloc    Phase = "alloc"    // host allocator reservation
	PhaseCreate   Phase = "create"   // cell creation
	PhaseRetain   Phase = "retain"   // manual increment
	PhaseRelease  Phase = "release"  // decrement / destruction
	PhaseCleanup  Phase = "cleanup"  // scope exit walk
	PhaseTransfer Phase = "transfer" // escape out of a scope
	PhaseAdopt    Phase = "adopt"    // receiving side of an escape
	PhaseConfig   Phase = "config"   // option and allocator configuration
	PhaseScript   Phase = "script"   // scenario parsing and execution
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation    Kind = "allocation"
	KindOverRelease   Kind = "over_release"
	KindReleased      Kind = "released"
	KindScopeClosed   Kind = "scope_closed"
	KindScopeInactive Kind = "scope_inactive"
	KindNotFound      Kind = "not_found"
	KindLeaked        Kind = "leaked"
	KindDestructor    Kind = "destructor"
	KindInvalidInput  Kind = "invalid_input"
	KindOutOfBounds   Kind = "out_of_bounds"
)

// Sentinels for errors.Is. They carry no phase and match any error of the
// same kind.
var (
	ErrAllocation    = &Error{Kind: KindAllocation}
	ErrOverRelease   = &Error{Kind: KindOverRelease}
	ErrReleased      = &Error{Kind: KindReleased}
	ErrScopeClosed   = &Error{Kind: KindScopeClosed}
	ErrScopeInactive = &Error{Kind: KindScopeInactive}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrLeaked        = &Error{Kind: KindLeaked}
	ErrDestructor    = &Error{Kind: KindDestructor}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrOutOfBounds   = &Error{Kind: KindOutOfBounds}
)

// Error is the structured error type used throughout scopeheap
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" in ")
		b.WriteString(strings.Join(e.Path, "/"))
	}

	if e.GoType != "" {
		b.WriteString(": ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
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

// Path sets the scope path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the payload type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
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

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Value:  size,
		Cause:  cause,
	}
}

// OverRelease creates an error for a release on a cell that is already destroyed
func OverRelease(path []string, goType string, id uint64) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindOverRelease,
		Path:   path,
		GoType: goType,
		Detail: fmt.Sprintf("cell %d released more times than it was owned", id),
		Value:  id,
	}
}

// Released creates a use-after-release error
func Released(phase Phase, path []string, goType string, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Path:   path,
		GoType: goType,
		Detail: fmt.Sprintf("cell %d already destroyed", id),
		Value:  id,
	}
}

// ScopeClosed creates an error for an operation on an exited scope
func ScopeClosed(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindScopeClosed,
		Path:   path,
		Detail: "scope already exited",
	}
}

// ScopeInactive creates an error for an operation on a scope that is not
// the innermost open scope
func ScopeInactive(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindScopeInactive,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a lookup failure error
func NotFound(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   path,
		Detail: detail,
	}
}

// Leaked creates an error reporting escaped cells that were never adopted
// or released
func Leaked(count int) *Error {
	return &Error{
		Phase:  PhaseCleanup,
		Kind:   KindLeaked,
		Detail: fmt.Sprintf("%d escaped cell(s) never adopted or released", count),
		Value:  count,
	}
}

// Destructor wraps an error returned by a cell destructor
func Destructor(path []string, goType string, cause error) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindDestructor,
		Path:   path,
		GoType: goType,
		Detail: "destructor failed",
		Cause:  cause,
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

// OutOfBounds creates a bounds error for memory access
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) outside memory of %d bytes", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
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

// SplitPath splits a slash-separated scope path into its segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
