package errors

import (
	"fmt"
	"strings"
)

// Stage indicates which lifecycle operation the error occurred in.
type Stage string

const (
	StageBegin       Stage = "begin"       // runtime bring-up
	StageEnd         Stage = "end"         // runtime teardown
	StageLoad        Stage = "load"        // module validation and compilation
	StageInstantiate Stage = "instantiate" // module memory/stack carve-out
	StageContext     Stage = "context"     // execution-context creation
	StageCall        Stage = "call"        // function invocation
	StageThread      Stage = "thread"      // safe-path worker dispatch
)

// Kind categorizes the error.
type Kind string

const (
	KindConfig            Kind = "config"
	KindResourceExhausted Kind = "resource_exhausted"
	KindEngineInit        Kind = "engine_init"
	KindLoad              Kind = "load"
	KindInstantiate       Kind = "instantiate"
	KindRuntimeNotReady   Kind = "runtime_not_ready"
	KindFunctionNotFound  Kind = "function_not_found"
	KindContextCreation   Kind = "context_creation"
	KindThreadCreate      Kind = "thread_create"
	KindTrap              Kind = "trap"
	KindCallFailed        Kind = "call_failed"
)

// Error is the structured error type used throughout the adapter.
type Error struct {
	Cause  error
	Stage  Stage
	Kind   Kind
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Stage))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

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

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when
// their stage and kind agree; a zero field in target matches anything.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Stage != "" && t.Stage != e.Stage {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// New constructs an error with formatted detail text.
func New(stage Stage, kind Kind, format string, args ...any) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Stage: stage, Kind: kind, Detail: detail}
}

// Wrap constructs an error carrying an underlying cause.
func Wrap(stage Stage, kind Kind, cause error, detail string) *Error {
	return &Error{Stage: stage, Kind: kind, Detail: detail, Cause: cause}
}

// Kind matchers for errors.Is. Stage is left open so callers can match
// a kind regardless of where it surfaced.

func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}

// Convenience constructors for the adapter's failure points.

// Config reports a caller-supplied size or parameter out of range.
func Config(stage Stage, format string, args ...any) *Error {
	return New(stage, KindConfig, format, args...)
}

// Exhausted reports that no memory source could satisfy a request.
func Exhausted(stage Stage, size uint32, cause error) *Error {
	return &Error{
		Stage:  stage,
		Kind:   KindResourceExhausted,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// EngineInit reports that the engine rejected its pool configuration.
func EngineInit(cause error) *Error {
	return &Error{Stage: StageBegin, Kind: KindEngineInit, Detail: "initialize engine", Cause: cause}
}

// Load reports that the engine rejected a byte sequence at compile time.
func Load(cause error) *Error {
	return &Error{Stage: StageLoad, Kind: KindLoad, Detail: "compile module", Cause: cause}
}

// Instantiate reports that the engine could not instantiate a compiled
// unit, most commonly because the pool cannot cover its carve-out.
func Instantiate(cause error) *Error {
	return &Error{Stage: StageInstantiate, Kind: KindInstantiate, Detail: "instantiate module", Cause: cause}
}

// NotReady reports an operation attempted before the runtime came up.
func NotReady(stage Stage) *Error {
	return &Error{Stage: stage, Kind: KindRuntimeNotReady, Detail: "runtime not initialized"}
}

// NotFound reports a missing export, naming the symbol.
func NotFound(name string) *Error {
	return &Error{
		Stage:  StageCall,
		Kind:   KindFunctionNotFound,
		Detail: fmt.Sprintf("function %q not found", name),
	}
}

// ContextCreation reports a failed execution-context carve-out.
func ContextCreation(cause error) *Error {
	return &Error{Stage: StageContext, Kind: KindContextCreation, Detail: "create execution context", Cause: cause}
}

// ThreadCreate reports that the safe path could not bring up a worker.
func ThreadCreate(format string, args ...any) *Error {
	return New(StageThread, KindThreadCreate, format, args...)
}

// Trap reports an engine-level fault with its diagnostic text.
func Trap(text string) *Error {
	return &Error{Stage: StageCall, Kind: KindTrap, Detail: text}
}

// CallFailed reports an invocation failure without trap diagnostics.
func CallFailed(name string, cause error) *Error {
	return &Error{
		Stage:  StageCall,
		Kind:   KindCallFailed,
		Detail: fmt.Sprintf("call %q failed", name),
		Cause:  cause,
	}
}
