// Package params resolves %placeholder% references inside a loaded
// configuration mapping.
//
// "%name%" is replaced by the value stored under name, either a top-level
// key or a dotted path into nested mappings. "%env.NAME%" is replaced by an
// environment variable. "%%" is a literal percent sign. A string made of a
// single placeholder takes the referenced value with its type; placeholders
// embedded in longer strings must reference scalars.
package params

import (
	"fmt"
	"strconv"
	"strings"
)

// envPrefix marks placeholders resolved from the environment.
const envPrefix = "env."

// UnresolvedError is returned when a placeholder cannot be resolved.
type UnresolvedError struct {
	Placeholder string // Name between the percent signs
	Reason      string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("cannot resolve parameter %%%s%%: %s", e.Placeholder, e.Reason)
}

// resolver carries the state of one Resolve call.
type resolver struct {
	root    map[string]any
	env     map[string]string
	active  map[string]bool // placeholders being resolved, for cycle detection
	results map[string]any  // resolved placeholder values
}

// Resolve returns a copy of m with every placeholder replaced.
// m itself is not modified.
func Resolve(m map[string]any, environ []string) (map[string]any, error) {
	r := &resolver{
		root:    m,
		env:     parseEnviron(environ),
		active:  make(map[string]bool),
		results: make(map[string]any),
	}

	out, err := r.resolveValue(m)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func (r *resolver) resolveValue(v any) (any, error) {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := r.resolveValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := r.resolveValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case string:
		return r.resolveString(v)
	}
	return v, nil
}

// resolveString expands the placeholders of s.
func (r *resolver) resolveString(s string) (any, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	// A lone placeholder keeps the type of the referenced value.
	if name, ok := single(s); ok {
		return r.lookup(name)
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], '%')
		if end < 0 || !isName(s[i+1:i+1+end]) {
			b.WriteByte('%')
			continue
		}
		name := s[i+1 : i+1+end]
		v, err := r.lookup(name)
		if err != nil {
			return nil, err
		}
		text, err := scalarText(name, v)
		if err != nil {
			return nil, err
		}
		b.WriteString(text)
		i += end + 1
	}
	return b.String(), nil
}

// lookup resolves a placeholder name to its final value.
func (r *resolver) lookup(name string) (any, error) {
	if v, ok := r.results[name]; ok {
		return v, nil
	}

	if strings.HasPrefix(name, envPrefix) {
		v, ok := lookupEnv(r.env, strings.TrimPrefix(name, envPrefix))
		if !ok {
			return nil, &UnresolvedError{Placeholder: name, Reason: "environment variable is not set"}
		}
		r.results[name] = v
		return v, nil
	}

	if r.active[name] {
		return nil, &UnresolvedError{Placeholder: name, Reason: "circular reference"}
	}

	raw, ok := find(r.root, name)
	if !ok {
		return nil, &UnresolvedError{Placeholder: name, Reason: "no such parameter"}
	}

	r.active[name] = true
	v, err := r.resolveValue(raw)
	delete(r.active, name)
	if err != nil {
		return nil, err
	}

	r.results[name] = v
	return v, nil
}

// find looks name up as a top-level key, then as a dotted path.
func find(root map[string]any, name string) (any, bool) {
	if v, ok := root[name]; ok {
		return v, true
	}

	var current any = root
	for _, part := range strings.Split(name, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// single reports whether s is exactly one placeholder and returns its name.
func single(s string) (string, bool) {
	if len(s) < 3 || s[0] != '%' || s[len(s)-1] != '%' {
		return "", false
	}
	name := s[1 : len(s)-1]
	if !isName(name) {
		return "", false
	}
	return name, true
}

// isName reports whether s can be a placeholder name.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_' || ch == '.' || ch == '-') {
			return false
		}
	}
	return true
}

// scalarText renders v for embedding inside a longer string.
func scalarText(name string, v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case map[string]any, []any:
		return "", &UnresolvedError{Placeholder: name, Reason: "an array cannot be embedded in a string"}
	}
	return fmt.Sprint(v), nil
}
