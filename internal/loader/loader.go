// Package loader loads return-style configuration files (.php, .inc and
// their .dist variants) into a mapping.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cfgload/internal/locator"
	"cfgload/internal/params"
	"cfgload/internal/source"
)

// Mapping is the loaded configuration: string keys to scalars, nested
// mappings (map[string]any) or lists ([]any).
type Mapping map[string]any

// Extensions lists the supported file extensions, without .dist.
var Extensions = []string{".php", ".inc"}

// openFile opens a located file for reading. Tests replace it.
var openFile = os.Open

// Locator resolves a resource name to an absolute path.
// A missing file is reported with an error matching locator.ErrNotFound.
type Locator interface {
	Locate(name string) (string, error)
}

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithParameters enables %placeholder% resolution using environ
// (format: "KEY=VALUE") for %env.NAME% references.
func WithParameters(environ []string) Option {
	return func(l *FileLoader) {
		l.resolveParams = true
		l.environ = environ
	}
}

// FileLoader loads configuration files found by a Locator.
// It holds no state between calls.
type FileLoader struct {
	locator       Locator
	resolveParams bool
	environ       []string
}

// New creates a loader that resolves names with loc.
func New(loc Locator, opts ...Option) *FileLoader {
	l := &FileLoader{locator: loc}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Supports reports whether resource has a supported extension.
func Supports(resource string) bool {
	name := strings.TrimSuffix(resource, locator.DistSuffix)
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Supports reports whether resource has a supported extension.
func (l *FileLoader) Supports(resource string) bool {
	return Supports(resource)
}

// Load locates, reads and parses resource.
//
// Failures are checked in order: a missing file yields a
// *ResourceNotFoundError, an unreadable one an *IOError, and content that
// is not a non-empty mapping an *InvalidContentError.
func (l *FileLoader) Load(resource string) (Mapping, error) {
	path, err := l.locator.Locate(resource)
	if err != nil {
		if errors.Is(err, locator.ErrNotFound) {
			return nil, &ResourceNotFoundError{Resource: resource, Err: err}
		}
		return nil, fmt.Errorf("locate %s: %w", resource, err)
	}

	content, err := readFile(path)
	if err != nil {
		// Removed between Locate and Open.
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ResourceNotFoundError{Resource: resource, Err: &locator.NotFoundError{Name: resource}}
		}
		return nil, &IOError{Resource: resource, Path: path, Err: err}
	}

	m, err := toMapping(content)
	if err != nil {
		return nil, &InvalidContentError{Resource: resource, Path: path, Err: err}
	}

	if l.resolveParams {
		resolved, err := params.Resolve(m, l.environ)
		if err != nil {
			return nil, &InvalidContentError{Resource: resource, Path: path, Err: err}
		}
		m = resolved
	}

	return Mapping(m), nil
}

// readFile reads the whole file, closing it on every path.
func readFile(path string) ([]byte, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// toMapping parses content and checks that it yields a non-empty mapping.
func toMapping(content []byte) (map[string]any, error) {
	result, err := source.Parse(content)
	if err != nil {
		return nil, err
	}

	m, ok := result.Value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("returned value is %s, not an array", describe(result.Value))
	}
	if len(m) == 0 {
		return nil, errors.New("returned array is empty")
	}
	return m, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "a list"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int, float64:
		return "a number"
	}
	return fmt.Sprintf("%T", v)
}
