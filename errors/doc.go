// Package errors provides structured error types for scopeheap.
//
// Errors are categorized by Phase (which operation failed) and Kind (what
// went wrong). The Error type carries the scope path, the payload's Go type
// and an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCreate, errors.KindScopeClosed).
//		Path("outer", "inner").
//		GoType("bytes.Buffer").
//		Detail("scope already exited").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(errors.PhaseAlloc, 64, 8, cause)
//	err := errors.OverRelease(path, "main.Conn", 7)
//
// All errors implement the standard error interface and support errors.Is/As.
// The exported sentinels match on Kind alone, regardless of phase:
//
//	if errors.Is(err, scopeerrors.ErrAllocation) { ... }
package errors
