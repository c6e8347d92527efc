package zipstream

import (
	"github.com/pkg/errors"
)

// Errors returned by the archive. Use errors.Cause to compare.
var (
	// ErrInvalidInput is returned when a name is not valid UTF-8 text.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidName is returned for names which are empty, absolute,
	// drive-letter prefixed, directories, or escape the archive root.
	ErrInvalidName = errors.New("invalid name")

	// ErrDuplicateName is returned when the normalized name is already registered.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrRange is returned when a value does not fit its header field.
	ErrRange = errors.New("value out of range")

	// ErrClosed is returned when the archive was already closed.
	ErrClosed = errors.New("archive closed")
)

// FatalError is a stream-level failure. Once returned the archive
// is unusable and must not be treated as complete.
type FatalError struct {
	Err error
}

// Error implementation.
func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

// Cause implementation.
func (e *FatalError) Cause() error {
	return e.Err
}

// Unwrap implementation.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if err terminated the archive stream.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// fatalf returns a fatal range error.
func fatalf(format string, args ...interface{}) error {
	return &FatalError{Err: errors.Wrapf(ErrRange, format, args...)}
}
