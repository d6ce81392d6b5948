package encio

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Error handling in binser follows a small set of error kinds, with extra information wrapped as applicable.
// Panics are only used when there is a clear misuse of the library; programmer error.
// All error cases are grouped into two error wrappers; IOError and Error, the idea being that
// IOError errors indicate a bad io.Reader/io.Writer, and the caller should stop using it, and
// Error errors say where in a record graph encoding failed, and of what kind the failure was.
//
// In this way, errors can be checked with
//
//	if errors.Is(err, encio.ErrUnknownSubtype) {
//		// handle an unbound selector value
//	}
//
//	var encErr encio.Error
//	if errors.As(err, &encErr) {
//		fmt.Println(encErr.Path, encErr.Offset)
//	}
//
// These errors will be wrapped by IOError or Error.
var (
	// ErrSchemaDefinition is returned when a record type's declaration is malformed;
	// fields out of order, duplicate bindings, references to unknown fields and the like.
	// It is returned on first use of the type, and on every use after that.
	ErrSchemaDefinition = errors.New("schema definition error")

	// ErrMissingDependency is returned when a field refers to a field that has not been decoded yet.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrInvalidLength is returned when a resolved length or count is negative, not a number,
	// too big, or cannot be stored in the field it is written back to.
	ErrInvalidLength = errors.New("invalid length")

	// ErrUnknownSubtype is returned when no subtype binding matches a selector value,
	// or when the value being encoded has a type no binding names.
	ErrUnknownSubtype = errors.New("unknown subtype")

	// ErrUnexpectedEOF is returned when a cursor is exhausted before a resolved length is satisfied.
	ErrUnexpectedEOF = io.ErrUnexpectedEOF

	// ErrUnsupported is returned by Seek and Len on cursors that cannot provide them.
	ErrUnsupported = errors.ErrUnsupported

	// ErrLengthOverrun is returned when a field's codec reads or writes past the length bound to the field.
	ErrLengthOverrun = errors.New("length overrun")

	// ErrMalformed is returned when the read data is impossible to decode.
	ErrMalformed = errors.New("malformed")

	// ErrBadType is returned when a value passed to binser is of the wrong type.
	ErrBadType = errors.New("bad type")

	// ErrNilPointer is returned if a pointer that should not be nil is nil.
	ErrNilPointer = errors.New("nil pointer")
)

// NewIOError returns an IOError wrapping err with the given message.
// err is typically the error returned from the io.Reader/io.Writer, or another error describing why the reader isn't operating correctly.
func NewIOError(err error, message string) error {
	if err == nil {
		return NewError(errors.New("unknown error"), "trying to create new IOError")
	}

	return IOError{
		Err:     err,
		Message: message,
	}
}

// IOError is returned when io errors occur.
type IOError struct {
	Err     error
	Message string
}

// Error implements error
func (e IOError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap implements errors's Unwrap()
func (e IOError) Unwrap() error {
	return e.Err
}

// NewError returns an Error of kind err with the given message.
// Path and Offset are filled as the error is returned up through the engine.
func NewError(err error, message string) error {
	return Error{
		Err:     err,
		Message: message,
		Offset:  -1,
	}
}

// Errorf is like NewError, formatting the message.
func Errorf(err error, format string, a ...interface{}) error {
	return NewError(err, fmt.Sprintf(format, a...))
}

// Error is returned when encoding or decoding fails.
type Error struct {
	// Err is the kind of error; one of the Err* values of this package, or an error returned by a custom codec.
	Err error

	// Message has extra information about the error.
	Message string

	// Path is the record type and field chain at which the error occurred, i.e. ChunkContainer.Chunk.Customs[1].
	Path string

	// Offset is the number of bytes the cursor had read or written when the error occurred, or -1 if unknown.
	Offset int64
}

// Error implements error
func (e Error) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		if e.Offset >= 0 {
			fmt.Fprintf(&b, " (offset %v)", e.Offset)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Err.Error())

	if e.Message != "" {
		b.WriteString(" (" + e.Message + ")")
	}

	return b.String()
}

// Unwrap implements errors's Unwrap()
func (e Error) Unwrap() error {
	return e.Err
}

// At returns err with path and offset attached.
// If err is already an Error carrying a path, it is returned unchanged; the innermost path is the most specific.
// Other errors are wrapped in an Error, so errors.Is still sees them.
func At(err error, path string, offset int64) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(Error); ok {
		if e.Path != "" {
			return err
		}
		e.Path = path
		if e.Offset < 0 {
			e.Offset = offset
		}
		return e
	}

	return Error{
		Err:    err,
		Path:   path,
		Offset: offset,
	}
}
