// Package errors provides structured error types for the loader.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the subject (a path or specifier), the host error code
// when one was reported, a human-readable detail and an optional cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindInvalidInput).
//		Subject("not a url").
//		Detail("referrer is not an absolute URL").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseHost, "/proj/deno.json", "file not found")
//	err := errors.Unsupported(errors.PhaseResolve, "workspace npm packages")
//
// Filesystem failures reported by a host collapse to exactly two kinds,
// KindNotFound and KindOther. IsNotFound reports the former anywhere in a
// wrapped chain.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
