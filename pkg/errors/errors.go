// Package errors provides the unified error type and factory functions for the
// forcefield engine.  Every layer (cas kernel, domain, application,
// infrastructure, CLI) uses AppError as the single carrier for structured
// error information so that callers can branch on a stable ErrorCode instead
// of matching message text.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Stack capture
// ─────────────────────────────────────────────────────────────────────────────

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and the factory function).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		// Trim standard-library noise to keep traces readable.
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError: the canonical error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout the engine.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently.
//
// Usage:
//
//	return errors.New(errors.CodeMissingForceField, "no forcefield with ID 3")
//	return errors.Wrap(storeErr, errors.CodeStorage, "failed to save snapshot")
//	return errors.MissingFunction("A(lambda)").WithDetail("registered: total()")
type AppError struct {
	// Code is the typed error code that uniquely identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (IDs, the list of offending
	// functions, the expected format version).
	Detail string

	// Cause is the underlying error that triggered this AppError.
	Cause error

	// Stack contains the formatted call-stack captured at the point of error
	// creation.  It is not included in Error() output.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>"
// The detail segment is omitted when Detail is empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ─────────────────────────────────────────────────────────────────────────────
// Fluent builder methods
// ─────────────────────────────────────────────────────────────────────────────

// WithDetail returns a shallow copy of the receiver with Detail set to the
// supplied string.  It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.
// If err is nil, Wrap returns nil so it can be used inline.
//
// When err is already an *AppError and code is CodeUnknown the original code is
// preserved, so adding context never loses the original classification.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
//
//	if errors.IsCode(err, errors.CodeDependency) { ... }
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsMissing reports whether any error in err's chain is one of the lookup
// failures (forcefield, component, function, property or generic not-found).
func IsMissing(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			switch ae.Code {
			case CodeNotFound, CodeMissingForceField, CodeMissingComponent,
				CodeMissingFunction, CodeMissingProperty:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// If no *AppError is present, CodeUnknown is returned.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factories for the engine's error taxonomy
// ─────────────────────────────────────────────────────────────────────────────

// InvalidArgument constructs a CodeInvalidParam AppError.
func InvalidArgument(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Incompatible constructs a CodeIncompatible AppError.
func Incompatible(message string) *AppError {
	return &AppError{Code: CodeIncompatible, Message: message, Stack: captureStack(1)}
}

// MissingForceField constructs a CodeMissingForceField AppError.
func MissingForceField(message string) *AppError {
	return &AppError{Code: CodeMissingForceField, Message: message, Stack: captureStack(1)}
}

// MissingComponent constructs a CodeMissingComponent AppError.
func MissingComponent(message string) *AppError {
	return &AppError{Code: CodeMissingComponent, Message: message, Stack: captureStack(1)}
}

// MissingFunction constructs a CodeMissingFunction AppError.
func MissingFunction(message string) *AppError {
	return &AppError{Code: CodeMissingFunction, Message: message, Stack: captureStack(1)}
}

// MissingProperty constructs a CodeMissingProperty AppError.
func MissingProperty(message string) *AppError {
	return &AppError{Code: CodeMissingProperty, Message: message, Stack: captureStack(1)}
}

// DuplicateFunction constructs a CodeDuplicateFunction AppError.
func DuplicateFunction(message string) *AppError {
	return &AppError{Code: CodeDuplicateFunction, Message: message, Stack: captureStack(1)}
}

// Dependency constructs a CodeDependency AppError.  Callers list every
// offending item in Detail, never just the first.
func Dependency(message string) *AppError {
	return &AppError{Code: CodeDependency, Message: message, Stack: captureStack(1)}
}

// Version constructs a CodeVersion AppError for unsupported format tags.
func Version(message string) *AppError {
	return &AppError{Code: CodeVersion, Message: message, Stack: captureStack(1)}
}

// ProgramBug constructs a CodeProgramBug AppError.  It signals an internal
// invariant violation; callers panic with it rather than return it.
func ProgramBug(message string) *AppError {
	return &AppError{Code: CodeProgramBug, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

//Personal.AI order the ending
