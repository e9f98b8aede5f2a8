package source

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxYAMLNodes bounds the values built from one document, aliases included.
const maxYAMLNodes = 1 << 20

// parseYAMLOperand decodes the return operand starting at offset as a YAML
// (or JSON) document. A trailing ";" and "?>" are not part of the value.
func parseYAMLOperand(input string, offset int) (any, error) {
	line, col := position(input, offset)

	// Keep the indentation of the first line so block mappings stay aligned.
	start := offset
	lineStart := strings.LastIndexByte(input[:offset], '\n') + 1
	if strings.TrimSpace(input[lineStart:offset]) == "" {
		start = lineStart
	}

	operand := strings.TrimRight(input[start:], " \t\r\n")
	operand = strings.TrimRight(strings.TrimSuffix(operand, "?>"), " \t\r\n")
	operand = strings.TrimSuffix(operand, ";")

	if strings.TrimSpace(operand) == "" {
		return nil, &SyntaxError{Line: line, Column: col, Msg: "missing return value"}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(operand), &doc); err != nil {
		return nil, &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf("invalid return value: %v", err)}
	}

	c := &yamlConverter{active: make(map[*yaml.Node]bool)}
	v, err := c.value(&doc)
	if err != nil {
		firstLine, _ := position(input, start)
		errLine := line
		if c.line > 0 {
			errLine = firstLine + c.line - 1
		}
		return nil, &SyntaxError{Line: errLine, Column: col, Msg: err.Error()}
	}
	return v, nil
}

// yamlConverter turns a YAML node tree into string, int, float64, bool,
// nil, []any and map[string]any values.
type yamlConverter struct {
	active map[*yaml.Node]bool // aliases being expanded
	nodes  int
	line   int // operand line of the failing node
}

func (c *yamlConverter) fail(n *yaml.Node, format string, args ...any) error {
	c.line = n.Line
	return fmt.Errorf(format, args...)
}

func (c *yamlConverter) value(n *yaml.Node) (any, error) {
	c.nodes++
	if c.nodes > maxYAMLNodes {
		return nil, c.fail(n, "return value is too large")
	}

	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return c.value(n.Content[0])
	case yaml.AliasNode:
		if c.active[n.Alias] {
			return nil, c.fail(n, "alias *%s refers to itself", n.Value)
		}
		c.active[n.Alias] = true
		defer delete(c.active, n.Alias)
		return c.value(n.Alias)
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := c.value(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		return c.mapping(n)
	case yaml.ScalarNode:
		return c.scalar(n)
	}
	return nil, c.fail(n, "unsupported YAML node")
}

// mapping converts a mapping node. Merged keys never override explicit ones.
func (c *yamlConverter) mapping(n *yaml.Node) (map[string]any, error) {
	m := make(map[string]any, len(n.Content)/2)
	var merges []*yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
			merges = append(merges, valueNode)
			continue
		}

		key, err := c.key(keyNode)
		if err != nil {
			return nil, err
		}
		if _, dup := m[key]; dup {
			return nil, c.fail(keyNode, "mapping key %q already defined", key)
		}
		v, err := c.value(valueNode)
		if err != nil {
			return nil, err
		}
		m[key] = v
	}

	for _, merge := range merges {
		sources := []*yaml.Node{merge}
		if merge.Kind == yaml.SequenceNode {
			sources = merge.Content
		}
		for _, src := range sources {
			v, err := c.value(src)
			if err != nil {
				return nil, err
			}
			merged, ok := v.(map[string]any)
			if !ok {
				return nil, c.fail(src, "merge value must be a mapping")
			}
			for k, item := range merged {
				if _, exists := m[k]; !exists {
					m[k] = item
				}
			}
		}
	}
	return m, nil
}

func (c *yamlConverter) key(n *yaml.Node) (string, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		return "", c.fail(n, "mapping keys must be scalars")
	}
	v, err := c.scalar(n)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return fmt.Sprint(v), nil
}

// scalar converts a scalar node. Timestamps keep their source text and
// integers beyond int range become float64.
func (c *yamlConverter) scalar(n *yaml.Node) (any, error) {
	switch tag := n.ShortTag(); tag {
	case "!!null":
		return nil, nil
	case "!!str", "!!timestamp":
		return n.Value, nil
	case "!!binary":
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, c.fail(n, "invalid binary value: %v", err)
		}
		return s, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, c.fail(n, "invalid boolean %q", n.Value)
		}
		return b, nil
	case "!!int":
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, c.fail(n, "invalid integer %q", n.Value)
		}
		switch v := v.(type) {
		case int:
			return v, nil
		case int64:
			if v >= math.MinInt && v <= math.MaxInt {
				return int(v), nil
			}
			return float64(v), nil
		case uint64:
			if v <= math.MaxInt {
				return int(v), nil
			}
			return float64(v), nil
		case float64:
			return v, nil
		}
		return nil, c.fail(n, "invalid integer %q", n.Value)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, c.fail(n, "invalid number %q", n.Value)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, c.fail(n, "non-finite number %q is not supported", n.Value)
		}
		return f, nil
	default:
		return nil, c.fail(n, "unsupported tag %s", tag)
	}
}
