package kiln

import (
	"fmt"
	"maps"

	"github.com/tidwall/jsonc"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	classKey = "class"
	autoKey  = "auto"
	refKey   = "$ref"
	refTag   = "!ref"
)

// Decode converts an untyped definition tree into Definitions. Go maps are
// unordered, so entries and properties are processed in lexicographic key
// order; use ParseYAML or build Definitions directly to keep declaration
// order.
func Decode(raw map[string]any) (Definitions, error) {
	var errs error

	defs := make(Definitions, 0, len(raw))

	for _, name := range sortedKeys(raw) {
		spec, err := decodeValue(name, raw[name])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		defs = append(defs, Entry{Name: name, Spec: spec})
	}

	if errs != nil {
		return nil, errs
	}

	return defs, nil
}

// DecodeValue converts a single untyped value.
func DecodeValue(v any) (Value, error) {
	return decodeValue("$", v)
}

func decodeValue(path string, v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case *Definition:
		if val == nil {
			return nil, InvalidSpec(path, "nil definition handle")
		}

		return Handle{Def: val}, nil
	case map[string]any:
		return decodeMap(path, val)
	case []any:
		items := make([]Value, 0, len(val))

		var errs error

		for i, item := range val {
			decoded, err := decodeValue(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}

			items = append(items, decoded)
		}

		if errs != nil {
			return nil, errs
		}

		return List{Items: items}, nil
	default:
		return Literal{V: v}, nil
	}
}

func decodeMap(path string, m map[string]any) (Value, error) {
	if ref, ok := m[refKey]; ok && len(m) == 1 {
		name, isString := ref.(string)
		if !isString || name == "" {
			return nil, InvalidSpec(path, "$ref must be a non-empty string")
		}

		return Ref{Name: name}, nil
	}

	rawClass, hasClass := m[classKey]
	if !hasClass {
		return Literal{V: maps.Clone(m)}, nil
	}

	class, ok := rawClass.(string)
	if !ok || class == "" {
		return nil, InvalidSpec(path, "class must be a non-empty string")
	}

	auto := true

	if raw, ok := m[autoKey]; ok {
		flag, isBool := raw.(bool)
		if !isBool {
			return nil, InvalidSpec(path, fmt.Sprintf("auto must be a bool, got %T", raw))
		}

		auto = flag
	}

	spec := ClassSpec{Class: class, Auto: auto}

	var errs error

	for _, key := range sortedKeys(m) {
		if key == classKey || key == autoKey {
			continue
		}

		value, err := decodeValue(path+"."+key, m[key])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		spec.Properties = append(spec.Properties, Property{Name: key, Value: propertyValue(value)})
	}

	if errs != nil {
		return nil, errs
	}

	return spec, nil
}

// ParseYAML decodes definitions from a YAML mapping, keeping declaration
// order. A scalar tagged !ref is a reference.
func ParseYAML(data []byte) (Definitions, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	root := &doc
	if root.Kind == 0 {
		return Definitions{}, nil
	}

	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Definitions{}, nil
		}

		root = root.Content[0]
	}

	root = deref(root)
	if root.Kind != yaml.MappingNode {
		return nil, InvalidSpec("$", "definitions must be a mapping")
	}

	var errs error

	defs := make(Definitions, 0, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value

		spec, err := nodeValue(name, root.Content[i+1])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		defs = append(defs, Entry{Name: name, Spec: spec})
	}

	if errs != nil {
		return nil, errs
	}

	return defs, nil
}

// ParseJSONC decodes definitions from JSON that may contain comments and
// trailing commas. Key order is preserved.
func ParseJSONC(data []byte) (Definitions, error) {
	return ParseYAML(jsonc.ToJSON(data))
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	return n
}

func nodeValue(path string, n *yaml.Node) (Value, error) {
	n = deref(n)

	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == refTag {
			if n.Value == "" {
				return nil, InvalidSpec(path, "!ref must name a definition")
			}

			return Ref{Name: n.Value}, nil
		}

		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		return Literal{V: v}, nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))

		var errs error

		for i, child := range n.Content {
			item, err := nodeValue(fmt.Sprintf("%s[%d]", path, i), child)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}

			items = append(items, item)
		}

		if errs != nil {
			return nil, errs
		}

		return List{Items: items}, nil
	case yaml.MappingNode:
		return mappingValue(path, n)
	default:
		return nil, InvalidSpec(path, fmt.Sprintf("unexpected yaml node kind %d", n.Kind))
	}
}

func mappingValue(path string, n *yaml.Node) (Value, error) {
	if !hasKey(n, classKey) {
		if hasKey(n, refKey) && len(n.Content) == 2 {
			return decodeMap(path, map[string]any{refKey: deref(n.Content[1]).Value})
		}

		var m map[string]any
		if err := n.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		return decodeMap(path, m)
	}

	spec := ClassSpec{Auto: true}

	var errs error

	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		child := deref(n.Content[i+1])

		switch key {
		case classKey:
			if child.Kind != yaml.ScalarNode || child.Value == "" {
				errs = multierr.Append(errs, InvalidSpec(path, "class must be a non-empty string"))
				continue
			}

			spec.Class = child.Value
		case autoKey:
			var flag bool
			if child.Kind != yaml.ScalarNode || child.Decode(&flag) != nil {
				errs = multierr.Append(errs, InvalidSpec(path, "auto must be a bool"))
				continue
			}

			spec.Auto = flag
		default:
			value, err := nodeValue(path+"."+key, child)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}

			spec.Properties = append(spec.Properties, Property{Name: key, Value: propertyValue(value)})
		}
	}

	if errs != nil {
		return nil, errs
	}

	return spec, nil
}

// propertyValue drops the auto flag from a class-less map bound directly to
// a property. Maps at the top level or deeper inside a property keep it.
func propertyValue(v Value) Value {
	lit, ok := v.(Literal)
	if !ok {
		return v
	}

	m, ok := lit.V.(map[string]any)
	if !ok {
		return v
	}

	if _, flagged := m[autoKey]; !flagged {
		return v
	}

	out := maps.Clone(m)
	delete(out, autoKey)

	return Literal{V: out}
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}

	return false
}
