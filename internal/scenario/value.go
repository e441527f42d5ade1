package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactivity/pkg/persist"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// nodeValue converts a YAML node into raw targets. Mappings keep their key
// order.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		o := reactivity.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			o.Set(n.Content[i].Value, v)
		}
		return o, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return reactivity.NewArray(items...), nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

// splitPath splits "a.b.0" into its segments. The empty path is the root.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// child reads one segment below cur through the reactive API, so the
// running effect tracks it.
func child(cur any, seg string) (any, bool) {
	switch c := cur.(type) {
	case *reactivity.Proxy:
		return c.Lookup(seg)
	case *reactivity.ArrayProxy:
		if seg == "length" {
			return c.Len(), true
		}
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil, false
		}
		v := c.Get(i)
		return v, i >= 0 && i < c.Len()
	case reactivity.AnyRef:
		return child(c.GetAny(), seg)
	default:
		return nil, false
	}
}

// resolve walks path from root.
func resolve(root any, path string) (any, bool) {
	cur := root
	for _, seg := range splitPath(path) {
		v, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// parent returns the container holding the last segment of path.
func parent(root any, path string) (container any, last string, ok bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, "", false
	}
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		if cur, ok = child(cur, seg); !ok {
			return nil, "", false
		}
	}
	return cur, segs[len(segs)-1], true
}

// render formats v as JSON, falling back to %v.
func render(v any) string {
	data, err := persist.Encode(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// toNumber reports v as a float64 and whether it was an integer.
func toNumber(v any) (f float64, isInt bool, ok bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case uint64:
		return float64(n), true, true
	case float64:
		return n, false, true
	default:
		return 0, false, false
	}
}

// sum adds every numeric value. The result is an int when all inputs are.
func sum(values []any) any {
	total, allInt, sumInt := 0.0, true, 0
	for _, v := range values {
		f, isInt, ok := toNumber(v)
		if !ok {
			continue
		}
		total += f
		if isInt {
			sumInt += int(f)
		} else {
			allInt = false
		}
	}
	if allInt {
		return sumInt
	}
	return total
}

// concat joins the values as text. Nil values are skipped.
func concat(values []any) any {
	var b strings.Builder
	for _, v := range values {
		switch x := v.(type) {
		case nil:
		case string:
			b.WriteString(x)
		default:
			b.WriteString(render(x))
		}
	}
	return b.String()
}
