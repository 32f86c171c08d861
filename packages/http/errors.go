package http

import (
	"github.com/pkg/errors"
)

// Error kinds reported by this package and by the packages built on it.
// Match them with errors.Is.
var (
	// ErrConfig reports a missing or invalid URL, method or client.
	ErrConfig = errors.New("config error")
	// ErrType reports a FieldValue variant that the body kind does not accept.
	ErrType = errors.New("type error")
	// ErrSerialization reports a payload that cannot be encoded as JSON.
	ErrSerialization = errors.New("serialization error")
	// ErrRequest reports a failure while assembling the wire request, such as an unreadable file part.
	ErrRequest = errors.New("request error")
	// ErrTransport reports a connection or I/O failure before a response was received.
	ErrTransport = errors.New("transport error")
	// ErrDecode reports a response body that is not a valid envelope.
	ErrDecode = errors.New("decode error")
)

// kindError tags an underlying error with one of the kinds above.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.err }

func (e *kindError) Cause() error { return errors.Cause(e.err) }

// WrapKind annotates err with message and tags it with kind, so that
// errors.Is(result, kind) holds while errors.Cause still reaches err.
func WrapKind(kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrap(err, message)}
}

func newKindError(kind error, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}
