// Package source parses return-style configuration files without executing
// them.
//
// A file holds an optional "<?php" open tag and a single return statement
// whose operand is a literal: a PHP array literal (array(...) or [...]) or
// a YAML/JSON document such as { "foo": "bar" }. Comments and declare,
// namespace and use statements may precede the return. Anything else is
// rejected.
package source

import (
	"errors"
	"fmt"
)

// ErrNoReturn is returned when the content yields no value at all:
// empty files, plain text, or a missing return statement.
var ErrNoReturn = errors.New("no return statement")

// SyntaxError describes a malformed return value.
type SyntaxError struct {
	Line   int // 1-based line in the original content
	Column int // 1-based byte column
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Result is the outcome of parsing a configuration file.
type Result struct {
	Value  any    // The returned value (map[string]any, []any, string, int, float64, bool or nil)
	Format Format // Which literal grammar produced Value
}

// Format identifies the literal grammar of a return value.
type Format string

const (
	FormatArray Format = "array" // PHP array literal
	FormatYAML  Format = "yaml"  // YAML or JSON document
)
