package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHost      Phase = "host"      // capability filesystem calls
	PhaseLockfile  Phase = "lockfile"  // lock document parsing and queries
	PhaseDiscover  Phase = "discover"  // workspace discovery
	PhaseImportMap Phase = "importmap" // import map parsing
	PhaseResolve   Phase = "resolve"   // specifier resolution
	PhaseParse     Phase = "parse"     // specifier / manifest parsing
	PhaseLoad      Phase = "load"      // guest module loading
	PhaseRuntime   Phase = "runtime"   // guest runtime operations
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindOther          Kind = "other"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindEngine         Kind = "engine"
	KindRegistration   Kind = "registration"
	KindInstantiation  Kind = "instantiation"
)

// Error is the structured error type used throughout the loader
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Subject string
	Code    string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Subject != "" {
		b.WriteString(" at ")
		b.WriteString(e.Subject)
	}

	if e.Code != "" {
		b.WriteString(" (")
		b.WriteString(e.Code)
		b.WriteByte(')')
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

// Subject sets the path or specifier the error is about
func (b *Builder) Subject(s string) *Builder {
	b.err.Subject = s
	return b
}

// Code sets the host-reported error code
func (b *Builder) Code(code string) *Builder {
	b.err.Code = code
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

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err's chain contains a not-found error.
func IsNotFound(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindNotFound {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error for a host-reported missing path
func NotFound(phase Phase, subject, detail string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindNotFound,
		Subject: subject,
		Detail:  detail,
	}
}

// Other creates a generic failure error
func Other(phase Phase, subject, detail string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOther,
		Subject: subject,
		Detail:  detail,
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

// InvalidData creates an invalid data error
func InvalidData(phase Phase, subject, detail string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindInvalidData,
		Subject: subject,
		Detail:  detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Flatten turns an engine-internal failure into an opaque engine error.
// Only the message survives; the cause chain is dropped.
func Flatten(phase Phase, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Phase:  phase,
		Kind:   KindEngine,
		Detail: err.Error(),
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

// Registration creates a host function registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
