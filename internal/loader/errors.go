package loader

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors matched by the typed load errors through errors.Is.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrIO               = errors.New("resource not readable")
	ErrInvalidContent   = errors.New("invalid content")
)

// ErrorKind classifies a load failure.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindNotFound       ErrorKind = "not_found"
	KindIO             ErrorKind = "io"
	KindInvalidContent ErrorKind = "invalid_content"
	KindOther          ErrorKind = "other"
)

// ResourceNotFoundError is returned when the locator finds no file.
type ResourceNotFoundError struct {
	Resource string // The requested resource name
	Err      error  // The locator failure, naming the searched paths
}

func (e *ResourceNotFoundError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("The file %q does not exist.", e.Resource)
}

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

// Is reports whether target is ErrResourceNotFound.
func (e *ResourceNotFoundError) Is(target error) bool { return target == ErrResourceNotFound }

// IOError is returned when the located file cannot be read.
type IOError struct {
	Resource string // The requested resource name
	Path     string // The resolved path
	Err      error  // The underlying filesystem error
}

func (e *IOError) Error() string {
	if e.Permission() {
		return fmt.Sprintf("You don't have permissions to access configuration file %s.", e.Resource)
	}
	return fmt.Sprintf("Unable to read configuration file %s: %v", e.Resource, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// Permission reports whether the failure is a missing read permission.
func (e *IOError) Permission() bool {
	return e.Err != nil && errors.Is(e.Err, fs.ErrPermission)
}

// InvalidContentError is returned when the file yields no non-empty mapping.
type InvalidContentError struct {
	Resource string // The requested resource name
	Path     string // The resolved path
	Err      error  // Why the content was rejected (parse error or shape problem)
}

func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("The configuration file '%s' has invalid content.", e.Resource)
}

func (e *InvalidContentError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidContent.
func (e *InvalidContentError) Is(target error) bool { return target == ErrInvalidContent }

// Kind classifies err. It returns KindNone for a nil error.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrResourceNotFound):
		return KindNotFound
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrInvalidContent):
		return KindInvalidContent
	}
	return KindOther
}

// FormatError formats a load error into a human-readable message.
// Invalid content errors include the reason on a second line.
func FormatError(err error) string {
	var invalid *InvalidContentError
	if errors.As(err, &invalid) && invalid.Err != nil {
		return fmt.Sprintf("%s\n  %v", invalid.Error(), invalid.Err)
	}
	return err.Error()
}
