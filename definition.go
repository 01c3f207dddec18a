package kiln

import "github.com/xraph/go-utils/di"

// Definition is a buildable descriptor: an object of Class whose properties
// are injected after construction. Definitions are produced by the Resolver
// and registered into a Container under Name.
type Definition struct {
	Name     string
	Class    string
	bindings []binding
}

// binding is a resolved property. Its value is a literal, a *Definition
// built inline, a reference, or a []any of those.
type binding struct {
	name  string
	value any
}

// reference points at a named object. Eager references already carry the
// instance; deferred ones are looked up when the owner is built.
type reference struct {
	name     string
	instance any
	resolved bool
}

// NewDefinition creates an empty descriptor.
func NewDefinition(name, class string) *Definition {
	return &Definition{Name: name, Class: class}
}

// Property binds a literal value, a nested *Definition or a []any to prop.
// Binding the same property twice replaces the earlier value.
func (d *Definition) Property(prop string, value any) *Definition {
	for i := range d.bindings {
		if d.bindings[i].name == prop {
			d.bindings[i].value = value
			return d
		}
	}

	d.bindings = append(d.bindings, binding{name: prop, value: value})

	return d
}

// Reference binds prop to the object registered under name, looked up when
// d is built.
func (d *Definition) Reference(prop, name string) *Definition {
	return d.Property(prop, &reference{name: name})
}

// PropertyNames returns the bound property names in declaration order.
func (d *Definition) PropertyNames() []string {
	names := make([]string, len(d.bindings))
	for i, b := range d.bindings {
		names[i] = b.name
	}

	return names
}

// Value returns the resolved value bound to prop. References are reported
// as the referenced instance when resolved and as nil otherwise.
func (d *Definition) Value(prop string) (any, bool) {
	for _, b := range d.bindings {
		if b.name != prop {
			continue
		}

		if ref, ok := b.value.(*reference); ok {
			return ref.instance, true
		}

		return b.value, true
	}

	return nil, false
}

// Dependencies returns the names d needs from the container: references in
// its own bindings and in nested definitions, in declaration order.
func (d *Definition) Dependencies() []string {
	return di.DepNames(d.Deps())
}

// Deps returns the dependencies of d as Dep specs. References resolved when
// d was registered are eager; references looked up when d is built are lazy.
func (d *Definition) Deps() []di.Dep {
	seen := make(map[string]bool)

	var deps []di.Dep

	var walk func(v any)

	walk = func(v any) {
		switch val := v.(type) {
		case *reference:
			if seen[val.name] {
				return
			}

			seen[val.name] = true

			if val.resolved {
				deps = append(deps, di.Eager(val.name))
			} else {
				deps = append(deps, di.Lazy(val.name))
			}
		case *Definition:
			for _, b := range val.bindings {
				walk(b.value)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}

	for _, b := range d.bindings {
		walk(b.value)
	}

	return deps
}
