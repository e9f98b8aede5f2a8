// Package locator resolves logical configuration file names to absolute paths.
package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DistSuffix marks a distributed default copy of a configuration file.
const DistSuffix = ".dist"

// PathEnvVar overrides the default search paths.
const PathEnvVar = "CFGLOAD_PATH"

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("file does not exist")

// NotFoundError is returned when no candidate file exists for a name.
type NotFoundError struct {
	Name  string   // The requested name
	Paths []string // Search paths that were tried (empty for absolute names)
}

func (e *NotFoundError) Error() string {
	if len(e.Paths) == 0 {
		return fmt.Sprintf("The file %q does not exist.", e.Name)
	}
	quoted := make([]string, len(e.Paths))
	for i, p := range e.Paths {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return fmt.Sprintf("The file %q does not exist (in: %s).", e.Name, strings.Join(quoted, ", "))
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// FileLocator searches a fixed list of directories.
type FileLocator struct {
	Paths []string // Search paths, tried in order
}

// New creates a locator over the given search paths.
// Relative search paths are made absolute against the working directory.
func New(paths ...string) *FileLocator {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if a, err := filepath.Abs(p); err == nil {
			p = a
		}
		abs = append(abs, p)
	}
	return &FileLocator{Paths: abs}
}

// DefaultPaths returns the conventional search paths: the working
// directory, then ./config and ./conf.
func DefaultPaths() []string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return []string{
		wd,
		filepath.Join(wd, "config"),
		filepath.Join(wd, "conf"),
	}
}

// ResolvePaths returns the search paths from CFGLOAD_PATH or the defaults.
func ResolvePaths(environ []string) []string {
	prefix := PathEnvVar + "="
	for _, env := range environ {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		var paths []string
		for _, p := range filepath.SplitList(strings.TrimPrefix(env, prefix)) {
			if p != "" {
				paths = append(paths, p)
			}
		}
		if len(paths) > 0 {
			return paths
		}
	}
	return DefaultPaths()
}

// Locate returns the absolute path of the first existing candidate for name.
// Within each search path the exact name wins over its .dist variant.
func (l *FileLocator) Locate(name string) (string, error) {
	if name == "" {
		return "", &NotFoundError{Name: name, Paths: l.Paths}
	}

	if filepath.IsAbs(name) {
		for _, candidate := range candidates(name) {
			if isFile(candidate) {
				return candidate, nil
			}
		}
		return "", &NotFoundError{Name: name}
	}

	for _, dir := range l.Paths {
		for _, candidate := range candidates(filepath.Join(dir, name)) {
			if isFile(candidate) {
				return candidate, nil
			}
		}
	}

	return "", &NotFoundError{Name: name, Paths: l.Paths}
}

// candidates lists path and, unless it already is one, its .dist variant.
func candidates(path string) []string {
	if strings.HasSuffix(path, DistSuffix) {
		return []string{path}
	}
	return []string{path, path + DistSuffix}
}

// isFile reports whether path exists and is not a directory. A path that
// cannot be stat'ed, such as one inside an unsearchable directory, is not a
// candidate. An unreadable file in a searchable directory still is.
func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
