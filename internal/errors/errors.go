package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for forage-vps. Each error kind of the control plane maps to
// exactly one code so front ends can branch on it.
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitNameConflict      = 2
	ExitNotFound          = 3
	ExitUnauthorized      = 4
	ExitRuntimeProvision  = 5
	ExitCredentialTimeout = 6
	ExitStoreCorrupt      = 7
	ExitStoreWriteFailure = 8
	ExitConfigError       = 9
	ExitValidation        = 10
)

// ForageError is the base error type for forage-vps
type ForageError struct {
	Code    int
	Op      string // operation that failed, e.g. "deploy"
	Name    string // resource name, if any
	Message string
	Cause   error
}

func (e *ForageError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		if e.Name != "" {
			fmt.Fprintf(&sb, " %s", e.Name)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

func (e *ForageError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a kind sentinel (a ForageError without a
// message) carrying the same code.
func (e *ForageError) Is(target error) bool {
	t, ok := target.(*ForageError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// ExitCode returns the exit code for this error
func (e *ForageError) ExitCode() int {
	return e.Code
}

// Kind returns the taxonomy name of the error.
func (e *ForageError) Kind() string {
	return KindName(e.Code)
}

// WithOp returns a copy of the error annotated with operation context.
func (e *ForageError) WithOp(op, name string) *ForageError {
	c := *e
	if c.Op == "" {
		c.Op = op
	}
	if c.Name == "" {
		c.Name = name
	}
	return &c
}

// Kind sentinels, for use with errors.Is.
var (
	ErrNameConflict           = &ForageError{Code: ExitNameConflict}
	ErrNotFound               = &ForageError{Code: ExitNotFound}
	ErrUnauthorized           = &ForageError{Code: ExitUnauthorized}
	ErrRuntimeProvision       = &ForageError{Code: ExitRuntimeProvision}
	ErrCredentialIssueTimeout = &ForageError{Code: ExitCredentialTimeout}
	ErrStoreCorrupt           = &ForageError{Code: ExitStoreCorrupt}
	ErrStoreWriteFailure      = &ForageError{Code: ExitStoreWriteFailure}
	ErrConfig                 = &ForageError{Code: ExitConfigError}
	ErrValidation             = &ForageError{Code: ExitValidation}
)

var kindNames = map[int]string{
	ExitGeneralError:      "Internal",
	ExitNameConflict:      "NameConflict",
	ExitNotFound:          "NotFound",
	ExitUnauthorized:      "Unauthorized",
	ExitRuntimeProvision:  "RuntimeProvisionError",
	ExitCredentialTimeout: "CredentialIssueTimeout",
	ExitStoreCorrupt:      "StoreCorrupt",
	ExitStoreWriteFailure: "StoreWriteFailure",
	ExitConfigError:       "ConfigError",
	ExitValidation:        "ValidationError",
}

// KindName returns the taxonomy name for an exit code.
func KindName(code int) string {
	if name, ok := kindNames[code]; ok {
		return name
	}
	return kindNames[ExitGeneralError]
}

// New creates a new ForageError
func New(code int, message string) *ForageError {
	return &ForageError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a ForageError
func Wrap(code int, message string, cause error) *ForageError {
	return &ForageError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// NameConflict returns an error for a resource name that is already taken.
func NameConflict(name string) *ForageError {
	return &ForageError{Code: ExitNameConflict, Op: "deploy", Name: name, Message: "resource name already in use"}
}

// NotFound returns an error for a missing record or runtime resource.
func NotFound(op, name string) *ForageError {
	return &ForageError{Code: ExitNotFound, Op: op, Name: name, Message: "resource not found"}
}

// Unauthorized returns an error for a caller that may not act on a resource.
// The message does not depend on whether the resource exists.
func Unauthorized(op, name string) *ForageError {
	return &ForageError{Code: ExitUnauthorized, Op: op, Name: name, Message: "not authorized"}
}

// RuntimeProvision wraps a container runtime failure.
func RuntimeProvision(op, name string, cause error) *ForageError {
	return &ForageError{Code: ExitRuntimeProvision, Op: op, Name: name, Message: "container runtime failed", Cause: cause}
}

// CredentialIssueTimeout reports that no valid connection string was obtained.
func CredentialIssueTimeout(name string, attempts int, cause error) *ForageError {
	return &ForageError{
		Code:    ExitCredentialTimeout,
		Op:      "issue-credential",
		Name:    name,
		Message: fmt.Sprintf("no valid connection string after %d attempts", attempts),
		Cause:   cause,
	}
}

// StoreCorrupt reports persisted session data that cannot be parsed.
func StoreCorrupt(path string, cause error) *ForageError {
	return &ForageError{Code: ExitStoreCorrupt, Message: fmt.Sprintf("session store %s is unreadable; operator intervention required", path), Cause: cause}
}

// StoreWriteFailure reports a failed store write.
func StoreWriteFailure(op, name string, cause error) *ForageError {
	return &ForageError{Code: ExitStoreWriteFailure, Op: op, Name: name, Message: "failed to write session store", Cause: cause}
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *ForageError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *ForageError {
	return New(ExitValidation, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var forageErr *ForageError
	if errors.As(err, &forageErr) {
		return forageErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
