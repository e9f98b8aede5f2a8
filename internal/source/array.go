package source

import (
	"fmt"
	"math"
	"strconv"
)

// array accumulates the elements of an array literal in insertion order,
// following PHP key rules: integer-like string keys become integers and
// implicit keys continue after the largest integer key.
type array struct {
	keys   []string
	values map[string]any
	next   int
}

func newArray() *array {
	return &array{values: make(map[string]any)}
}

// push appends a value under the next implicit integer key.
func (a *array) push(v any) {
	a.set(a.next, v)
}

// set stores v under key, which is an int or a string. A repeated key keeps
// its original position.
func (a *array) set(key any, v any) {
	var k string
	switch key := key.(type) {
	case int:
		k = strconv.Itoa(key)
		if key >= a.next {
			a.next = key + 1
		}
	case string:
		k = key
	}

	if _, exists := a.values[k]; !exists {
		a.keys = append(a.keys, k)
	}
	a.values[k] = v
}

// isList reports whether the keys are exactly 0..n-1 in order.
func (a *array) isList() bool {
	for i, k := range a.keys {
		if k != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

// value converts the array into a map, or into a slice when it is a
// nested list. The top-level array is always a map.
func (a *array) value(top bool) any {
	if !top && a.isList() {
		list := make([]any, len(a.keys))
		for i, k := range a.keys {
			list[i] = a.values[k]
		}
		return list
	}
	m := make(map[string]any, len(a.keys))
	for _, k := range a.keys {
		m[k] = a.values[k]
	}
	return m
}

// castKey converts an array key to an int or string the way PHP does.
func castKey(key any) (any, error) {
	switch key := key.(type) {
	case string:
		if n, ok := canonicalInt(key); ok {
			return n, nil
		}
		return key, nil
	case int:
		return key, nil
	case float64:
		if math.IsNaN(key) || math.IsInf(key, 0) {
			return 0, nil
		}
		return int(key), nil
	case bool:
		if key {
			return 1, nil
		}
		return 0, nil
	case nil:
		return "", nil
	}
	return nil, fmt.Errorf("illegal array key type %T", key)
}

// canonicalInt reports whether s is a decimal integer written without
// leading zeros or a plus sign, as PHP requires for key conversion.
func canonicalInt(s string) (int, bool) {
	if s == "" || s == "-0" {
		return 0, false
	}
	digits := s
	if s[0] == '-' {
		digits = s[1:]
	}
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
