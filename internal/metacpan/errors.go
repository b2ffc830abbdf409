package metacpan

import (
	"errors"
	"fmt"

	"github.com/jparise/mcpan/internal/searchspec"
)

var (
	// ErrInvalidSpecShape is returned for malformed search specs.
	ErrInvalidSpecShape = searchspec.ErrInvalidShape

	// ErrUnknownKind is returned for entity kinds the client does not know.
	ErrUnknownKind = errors.New("metacpan: unknown entity kind")

	// ErrNotImplemented is returned for kinds that are recognized but not
	// supported by this client.
	ErrNotImplemented = errors.New("metacpan: not implemented")

	// ErrNotFound is returned when the backend reports a missing resource.
	// Use [errors.As] with [*NotFoundError] for details.
	ErrNotFound = errors.New("metacpan: not found")

	// ErrTransport is returned for network failures and unexpected HTTP
	// statuses. Use [errors.As] with [*TransportError] for details.
	ErrTransport = errors.New("metacpan: transport error")

	// ErrDecode is returned when a successful response cannot be decoded.
	ErrDecode = errors.New("metacpan: decode error")
)

// NotFoundError provides details about what was not found.
type NotFoundError struct {
	// Kind is the entity kind that was queried.
	Kind Kind

	// ID is the identifier that was queried, or empty for searches.
	ID string

	// StatusCode is the HTTP status code, if available.
	StatusCode int
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("metacpan: %s not found", e.Kind)
	}
	return fmt.Sprintf("metacpan: %s %q not found", e.Kind, e.ID)
}

// Is reports whether target is [ErrNotFound].
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransportError indicates a failed request.
type TransportError struct {
	// Method is the HTTP method of the request.
	Method string

	// URL is the URL that was requested.
	URL string

	// StatusCode is the HTTP status code, or 0 if the request failed
	// before receiving a response.
	StatusCode int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("metacpan: %s %s failed with status %d", e.Method, e.URL, e.StatusCode)
	}
	if e.URL == "" {
		return fmt.Sprintf("metacpan: request failed: %v", e.Err)
	}
	return fmt.Sprintf("metacpan: %s %s failed: %v", e.Method, e.URL, e.Err)
}

// Is reports whether target is [ErrTransport].
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a response body that is not valid JSON or lacks
// required fields.
type DecodeError struct {
	// Kind is the entity kind being decoded.
	Kind Kind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("metacpan: failed to decode %s: %v", e.Kind, e.Err)
}

// Is reports whether target is [ErrDecode].
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
