package kiln

import "sort"

// Value is a decoded definition spec. The set of implementations is closed:
// Literal, Ref, ClassSpec, List and Handle.
type Value interface {
	isValue()
}

// Literal is a value injected verbatim.
type Literal struct {
	V any
}

// Ref designates the object registered under Name.
type Ref struct {
	Name string
}

// ClassSpec describes an object of Class with properties injected after
// construction. Auto controls whether a nested ClassSpec is resolved into
// its own named definition (true) or passed through as a raw map (false).
type ClassSpec struct {
	Class      string
	Properties []Property
	Auto       bool
}

// Property is a named value inside a ClassSpec.
type Property struct {
	Name  string
	Value Value
}

// List is an ordered list of values.
type List struct {
	Items []Value
}

// Handle wraps an already-resolved definition.
type Handle struct {
	Def *Definition
}

func (Literal) isValue()   {}
func (Ref) isValue()       {}
func (ClassSpec) isValue() {}
func (List) isValue()      {}
func (Handle) isValue()    {}

// Entry is a named top-level definition.
type Entry struct {
	Name string
	Spec Value
}

// Definitions is an ordered set of named definitions.
type Definitions []Entry

// Names returns the entry names in order.
func (d Definitions) Names() []string {
	names := make([]string, len(d))
	for i, e := range d {
		names[i] = e.Name
	}

	return names
}

// Lookup returns the spec registered under name.
func (d Definitions) Lookup(name string) (Value, bool) {
	for _, e := range d {
		if e.Name == name {
			return e.Spec, true
		}
	}

	return nil, false
}

// Merge returns d with the entries of other appended. An entry of other
// replaces the entry of d with the same name in place.
func (d Definitions) Merge(other Definitions) Definitions {
	out := make(Definitions, len(d), len(d)+len(other))
	copy(out, d)

	index := make(map[string]int, len(out))
	for i, e := range out {
		index[e.Name] = i
	}

	for _, e := range other {
		if i, ok := index[e.Name]; ok {
			out[i] = e
			continue
		}

		index[e.Name] = len(out)
		out = append(out, e)
	}

	return out
}

// Class builds a ClassSpec with Auto enabled.
func Class(class string, props ...Property) ClassSpec {
	return ClassSpec{Class: class, Properties: props, Auto: true}
}

// Manual returns a copy of s that is passed through unresolved when nested.
func (s ClassSpec) Manual() ClassSpec {
	s.Auto = false
	return s
}

// With returns a copy of s with props appended.
func (s ClassSpec) With(props ...Property) ClassSpec {
	merged := make([]Property, 0, len(s.Properties)+len(props))
	merged = append(merged, s.Properties...)
	s.Properties = append(merged, props...)

	return s
}

// Prop builds a Property. Values that are not already a Value are wrapped
// through Wrap.
func Prop(name string, v any) Property {
	return Property{Name: name, Value: Wrap(v)}
}

// RefTo builds a reference to name.
func RefTo(name string) Ref {
	return Ref{Name: name}
}

// ListOf builds a List, wrapping each item through Wrap.
func ListOf(items ...any) List {
	values := make([]Value, len(items))
	for i, item := range items {
		values[i] = Wrap(item)
	}

	return List{Items: values}
}

// Wrap returns v when it already is a Value, a Handle for a *Definition and
// a Literal otherwise. Unlike Decode it never inspects maps or slices.
func Wrap(v any) Value {
	switch val := v.(type) {
	case Value:
		return val
	case *Definition:
		return Handle{Def: val}
	default:
		return Literal{V: v}
	}
}

// Untyped converts v back into its plain form: class specs become maps with
// a "class" key, plus "auto": false when Auto is cleared, references become
// {"$ref": name}, lists become []any.
func Untyped(v Value) any {
	switch val := v.(type) {
	case Literal:
		return val.V
	case Ref:
		return map[string]any{refKey: val.Name}
	case ClassSpec:
		out := make(map[string]any, len(val.Properties)+2)
		out[classKey] = val.Class

		if !val.Auto {
			out[autoKey] = false
		}

		for _, p := range val.Properties {
			out[p.Name] = Untyped(p.Value)
		}

		return out
	case List:
		out := make([]any, len(val.Items))
		for i, item := range val.Items {
			out[i] = Untyped(item)
		}

		return out
	case Handle:
		return val.Def
	default:
		return nil
	}
}

// propertyMap returns the plain form of the properties of s.
func (s ClassSpec) propertyMap() map[string]any {
	out := make(map[string]any, len(s.Properties))
	for _, p := range s.Properties {
		out[p.Name] = Untyped(p.Value)
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
