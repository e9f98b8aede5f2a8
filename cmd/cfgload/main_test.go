package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"cfgload/internal/loader"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a temp directory holding one config file
func createConfigDir(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	return dir
}

func runCLI(args []string, environ []string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, environ, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Check(t *testing.T) {
	dir := createConfigDir(t, "app.php", "<?php return ['foo' => 'bar', 'bar' => 'baz'];")

	code, stdout, stderr := runCLI([]string{"check", "--path", dir, "app.php"}, nil)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "app.php: ok (2 keys)\n", stdout)
	assert.Empty(t, stderr)
}

func TestRun_CheckUsesEnvironmentSearchPath(t *testing.T) {
	dir := createConfigDir(t, "app.inc.dist", `return { "foo": "bar" }`)

	code, stdout, _ := runCLI([]string{"check", "app.inc"}, []string{"CFGLOAD_PATH=" + dir})
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "app.inc: ok (1 keys)\n", stdout)
}

func TestRun_CheckNotFound(t *testing.T) {
	dir := t.TempDir()

	code, stdout, stderr := runCLI([]string{"check", "-p", dir, "missing.php"}, nil)
	assert.Equal(t, exitNotFound, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, `The file "missing.php" does not exist (in:`)
}

func TestRun_CheckInvalidContent(t *testing.T) {
	dir := createConfigDir(t, "bad.php", "not php content\nonly plain\ntext")

	code, _, stderr := runCLI([]string{"check", "-p", dir, "bad.php"}, nil)
	assert.Equal(t, exitInvalidContent, code)
	assert.Equal(t, "The configuration file 'bad.php' has invalid content.\n  no return statement\n", stderr)
}

func TestRun_CheckNotReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}

	dir := createConfigDir(t, "secret.php", "<?php return ['a' => 1];")
	path := filepath.Join(dir, "secret.php")
	require.NoError(t, os.Chmod(path, 0200))
	t.Cleanup(func() { _ = os.Chmod(path, 0644) })

	if f, err := os.Open(path); err == nil {
		f.Close()
		t.Skip("process can read files without read permission (running as root?)")
	}

	code, _, stderr := runCLI([]string{"check", "-p", dir, "secret.php"}, nil)
	assert.Equal(t, exitIO, code)
	assert.Equal(t, "You don't have permissions to access configuration file secret.php.\n", stderr)
}

func TestRun_CheckUnsupported(t *testing.T) {
	code, _, stderr := runCLI([]string{"check", "-p", t.TempDir(), "app.yaml"}, nil)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, `unsupported resource "app.yaml"`)
}

func TestRun_Supports(t *testing.T) {
	code, stdout, _ := runCLI([]string{"supports", "a.php", "b.inc.dist"}, nil)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "a.php: yes\nb.inc.dist: yes\n", stdout)

	code, stdout, stderr := runCLI([]string{"supports", "a.php", "b.txt"}, nil)
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "a.php: yes\nb.txt: no\n", stdout)
	assert.Empty(t, stderr)
}

func TestRun_SupportsRequiresArgs(t *testing.T) {
	code, _, stderr := runCLI([]string{"supports"}, nil)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Error:")
}

func TestRun_ShowYAML(t *testing.T) {
	dir := createConfigDir(t, "app.php", `<?php
return [
    'foo' => 'bar',
    'db' => ['port' => 3306, 'hosts' => ['a', 'b']],
];`)

	code, stdout, _ := runCLI([]string{"show", "-p", dir, "app.php"}, nil)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "db:\n  hosts:\n    - a\n    - b\n  port: 3306\nfoo: bar\n", stdout)
}

func TestRun_ShowJSON(t *testing.T) {
	dir := createConfigDir(t, "app.php", "<?php return ['foo' => 'bar', 'bar' => 'baz'];")

	code, stdout, _ := runCLI([]string{"show", "-p", dir, "--format", "json", "app.php"}, nil)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "{\n  \"bar\": \"baz\",\n  \"foo\": \"bar\"\n}\n", stdout)
}

func TestRun_ShowUnknownFormat(t *testing.T) {
	dir := createConfigDir(t, "app.php", "<?php return ['foo' => 'bar'];")

	code, stdout, stderr := runCLI([]string{"show", "-p", dir, "--format", "xml", "app.php"}, nil)
	assert.Equal(t, exitFailure, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "expected yaml or json")
}

func TestRun_ShowResolve(t *testing.T) {
	dir := createConfigDir(t, "app.php", "<?php return ['root' => '/srv', 'cache' => '%root%/%env.APP_ENV%'];")
	environ := []string{"APP_ENV=test"}

	code, stdout, _ := runCLI([]string{"show", "-p", dir, "--resolve", "-f", "json", "app.php"}, environ)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, `"cache": "/srv/test"`)

	code, stdout, _ = runCLI([]string{"show", "-p", dir, "-f", "json", "app.php"}, environ)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, `"cache": "%root%/%env.APP_ENV%"`)
}

func TestRun_ShowResolveFailure(t *testing.T) {
	dir := createConfigDir(t, "app.php", "<?php return ['cache' => '%env.MISSING%'];")

	code, _, stderr := runCLI([]string{"show", "-p", dir, "--resolve", "app.php"}, nil)
	assert.Equal(t, exitInvalidContent, code)
	assert.Contains(t, stderr, "cannot resolve parameter %env.MISSING%")
}

func TestRun_VerboseLogsToStderr(t *testing.T) {
	dir := createConfigDir(t, "app.php", "<?php return ['foo' => 'bar'];")

	code, stdout, stderr := runCLI([]string{"check", "-v", "-p", dir, "app.php"}, nil)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "app.php: ok (1 keys)\n", stdout)
	assert.Contains(t, stderr, "loading resource")
	assert.Contains(t, stderr, "loaded resource")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(loader.KindNone))
	assert.Equal(t, exitNotFound, exitCode(loader.KindNotFound))
	assert.Equal(t, exitIO, exitCode(loader.KindIO))
	assert.Equal(t, exitInvalidContent, exitCode(loader.KindInvalidContent))
	assert.Equal(t, exitFailure, exitCode(loader.KindOther))
}

func TestRun_ShowRejectsNonFiniteNumbers(t *testing.T) {
	dir := createConfigDir(t, "app.php", "return {ratio: .nan};")

	code, stdout, stderr := runCLI([]string{"show", "-p", dir, "-f", "json", "app.php"}, nil)
	assert.Equal(t, exitInvalidContent, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "non-finite number")

	code, _, _ = runCLI([]string{"check", "-p", dir, "app.php"}, nil)
	assert.Equal(t, exitInvalidContent, code)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 3", (&ExitError{Code: 3}).Error())
}

// The check exit code follows the load outcome for any resource name.
func TestRun_CheckExitCode_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("exit code matches file state", prop.ForAll(
		func(name string, state int) bool {
			dir := t.TempDir()
			resource := name + ".php"
			path := filepath.Join(dir, resource)

			want := exitNotFound
			switch state {
			case 1:
				want = exitOK
				if err := os.WriteFile(path, []byte("<?php return ['k' => 'v'];"), 0644); err != nil {
					return false
				}
			case 2:
				want = exitInvalidContent
				if err := os.WriteFile(path, []byte(""), 0644); err != nil {
					return false
				}
			}

			code, _, _ := runCLI([]string{"check", "-p", dir, resource}, nil)
			return code == want
		},
		gen.Identifier(),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
