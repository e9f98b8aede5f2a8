package locator

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLocate_FindsFileInSearchPath(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "parameters.php", "<?php return [];")

	got, err := New(dir).Locate("parameters.php")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, filepath.IsAbs(got))
}

func TestLocate_SearchesPathsInOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, second, "app.php", "second")
	want := writeFile(t, first, "app.php", "first")

	got, err := New(first, second).Locate("app.php")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_FallsBackToDist(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "app.php.dist", "dist")

	got, err := New(dir).Locate("app.php")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_PrefersExactNameOverDist(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.php.dist", "dist")
	want := writeFile(t, dir, "app.php", "exact")

	got, err := New(dir).Locate("app.php")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_EarlierPathDistBeatsLaterExact(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	want := writeFile(t, first, "app.inc.dist", "dist")
	writeFile(t, second, "app.inc", "exact")

	got, err := New(first, second).Locate("app.inc")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_DistNameIsNotDoubled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.php.dist.dist", "x")

	_, err := New(dir).Locate("app.php.dist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocate_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "conf.php"), 0755))

	_, err := New(dir).Locate("conf.php")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocate_AbsoluteName(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "abs.php", "x")

	got, err := New().Locate(want)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	missing := filepath.Join(dir, "missing.php")
	_, err = New(t.TempDir()).Locate(missing)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Empty(t, nf.Paths)
	assert.Equal(t, `The file "`+missing+`" does not exist.`, err.Error())
}

func TestLocate_NotFoundMessageNamesSearchPaths(t *testing.T) {
	dir := t.TempDir()

	_, err := New(dir).Locate("inexistent.php")
	require.Error(t, err)
	assert.Equal(t, `The file "inexistent.php" does not exist (in: "`+dir+`").`, err.Error())

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "inexistent.php", nf.Name)
	assert.Equal(t, []string{dir}, nf.Paths)
}

// lockedDir returns a search directory whose entries cannot be stat'ed.
func lockedDir(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}

	dir := t.TempDir()
	writeFile(t, dir, "app.php", "hidden")
	require.NoError(t, os.Chmod(dir, 0000))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	if _, err := os.Stat(filepath.Join(dir, "app.php")); err == nil {
		t.Skip("process can search directories without permission (running as root?)")
	}
	return dir
}

func TestLocate_SkipsUnsearchablePath(t *testing.T) {
	locked := lockedDir(t)
	good := t.TempDir()
	want := writeFile(t, good, "app.php", "good")

	got, err := New(locked, good).Locate("app.php")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_UnsearchablePathIsNotFound(t *testing.T) {
	locked := lockedDir(t)

	_, err := New(locked, t.TempDir()).Locate("missing.php")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = New(locked).Locate("app.php")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocate_UnreadableFileIsStillFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}

	dir := t.TempDir()
	want := writeFile(t, dir, "secret.php", "<?php return ['a' => 1];")
	require.NoError(t, os.Chmod(want, 0200))
	t.Cleanup(func() { _ = os.Chmod(want, 0644) })

	got, err := New(dir).Locate("secret.php")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_EmptyName(t *testing.T) {
	_, err := New(t.TempDir()).Locate("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_SkipsEmptyAndMakesAbsolute(t *testing.T) {
	l := New("", "relative")
	require.Len(t, l.Paths, 1)
	assert.True(t, filepath.IsAbs(l.Paths[0]))
	assert.Equal(t, "relative", filepath.Base(l.Paths[0]))
}

func TestResolvePaths(t *testing.T) {
	sep := string(os.PathListSeparator)

	paths := ResolvePaths([]string{"OTHER=1", PathEnvVar + "=/etc/app" + sep + sep + "/opt/app"})
	assert.Equal(t, []string{"/etc/app", "/opt/app"}, paths)

	assert.Equal(t, DefaultPaths(), ResolvePaths([]string{PathEnvVar + "="}))
	assert.Equal(t, DefaultPaths(), ResolvePaths(nil))
}

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths()
	require.Len(t, paths, 3)
	assert.Equal(t, "config", filepath.Base(paths[1]))
	assert.Equal(t, "conf", filepath.Base(paths[2]))
}

// Any file written under a search path is found under its own name, and
// the not-found message always quotes the requested name.
func TestLocate_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("existing file is located", prop.ForAll(
		func(name string) bool {
			dir := t.TempDir()
			path := filepath.Join(dir, name+".php")
			if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
				return false
			}
			got, err := New(dir).Locate(name + ".php")
			return err == nil && got == path
		},
		gen.Identifier(),
	))

	properties.Property("missing file names the request", prop.ForAll(
		func(name string) bool {
			_, err := New(t.TempDir()).Locate(name + ".inc")
			if !errors.Is(err, ErrNotFound) {
				return false
			}
			return strings.Contains(err.Error(), `"`+name+`.inc" does not exist`)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
