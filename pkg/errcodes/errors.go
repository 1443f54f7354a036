package errcodes

import "fmt"

type Error struct {
	Message string
	Code    string
	cause   error
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) Unwrap() error {
	return err.cause
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.Message = err.Message
	te.Code = err.Code
	te.cause = err.cause
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Code == err.Code
}

// StorageUnavailable returns an error indicating the storage backend was
// never initialized or has since been torn down.
func StorageUnavailable() error {
	return &Error{
		Message: "Storage backend is not available.",
		Code:    "storage_unavailable",
	}
}

// NotFound returns an error indicating a lookup miss for the given resource.
// Callers treat it as an absent-value signal, not a failure.
func NotFound(resource string) error {
	return &Error{
		Message: resource + " not found.",
		Code:    "not_found",
	}
}

// ConstraintViolation returns an error indicating a foreign-key or uniqueness
// violation on write.
func ConstraintViolation(msg string) error {
	return &Error{
		Message: msg,
		Code:    "constraint_violation",
	}
}

// IOFailure wraps an underlying file or connection error. The platform cause
// stays reachable through errors.Unwrap.
func IOFailure(cause error) error {
	return &Error{
		Message: fmt.Sprintf("I/O failure: %v", cause),
		Code:    "io_failure",
		cause:   cause,
	}
}
