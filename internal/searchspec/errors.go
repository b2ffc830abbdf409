package searchspec

import (
	"errors"
	"fmt"
)

// ErrInvalidShape is returned for malformed search specs.
// Use [errors.As] with [*ShapeError] to find the offending location.
var ErrInvalidShape = errors.New("searchspec: invalid spec shape")

// ShapeError describes where and why a spec is malformed.
type ShapeError struct {
	// Path locates the problem, e.g. "either[1].not[0]". Empty means the
	// spec root.
	Path string

	// Reason is a short description of the problem.
	Reason string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("searchspec: invalid spec: %s", e.Reason)
	}
	return fmt.Sprintf("searchspec: invalid spec at %s: %s", e.Path, e.Reason)
}

// Is reports whether target is [ErrInvalidShape].
func (e *ShapeError) Is(target error) bool {
	return target == ErrInvalidShape
}

// nest prefixes the path of a shape error with the parent location.
func nest(parent string, err error) error {
	var se *ShapeError
	if !errors.As(err, &se) {
		return err
	}
	path := parent
	if se.Path != "" {
		path += "." + se.Path
	}
	return &ShapeError{Path: path, Reason: se.Reason}
}
