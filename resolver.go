package kiln

import (
	"fmt"

	logger "github.com/xraph/go-utils/log"
)

// Resolver turns decoded definitions into descriptors registered in a
// Container.
type Resolver struct {
	container *Container
	log       logger.Logger
}

// NewResolver creates a resolver registering into c.
func NewResolver(c *Container, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNoopLogger()
	}

	return &Resolver{container: c, log: log}
}

// Resolve registers every entry of defs, in order, and returns the
// registered values keyed by name: class specs map to their *Definition,
// other entries to their resolved value.
//
// A nested class spec with Auto set is resolved into its own definition,
// registered under the property name and attached to the parent. With Auto
// cleared the plain map form of the spec is attached and nothing is
// registered. References to names the container already knows are
// materialized immediately; others are looked up when the owner is built.
func (r *Resolver) Resolve(defs Definitions) (map[string]any, error) {
	out := make(map[string]any, len(defs))

	for _, entry := range defs {
		value, err := r.resolveEntry(entry.Name, entry.Spec)
		if err != nil {
			return nil, err
		}

		out[entry.Name] = value
	}

	return out, nil
}

func (r *Resolver) resolveEntry(name string, spec Value) (any, error) {
	if name == "" {
		return nil, InvalidSpec("$", "definition name cannot be empty")
	}

	var (
		value any
		err   error
	)

	switch s := spec.(type) {
	case ClassSpec:
		value, err = r.resolveClass(name, s)
	case nil:
		return nil, InvalidSpec(name, "definition cannot be nil")
	case Handle:
		value, err = r.resolveValue(name, s)
	default:
		// Plain entries are registered as values, so references in them
		// must be resolvable now
		value, err = r.resolveValue(name, s)
		if err == nil {
			value, err = r.container.materialize(value)
		}
	}

	if err != nil {
		return nil, err
	}

	r.container.Set(name, value)
	r.log.Debug("registered definition", logger.String("name", name), logger.String("kind", kindOf(value)))

	return value, nil
}

func (r *Resolver) resolveClass(name string, spec ClassSpec) (*Definition, error) {
	if spec.Class == "" {
		return nil, InvalidSpec(name, "class cannot be empty")
	}

	def := NewDefinition(name, spec.Class)

	for _, prop := range spec.Properties {
		path := name + "." + prop.Name

		nested, isClass := prop.Value.(ClassSpec)
		if !isClass {
			value, err := r.resolveValue(path, prop.Value)
			if err != nil {
				return nil, err
			}

			def.Property(prop.Name, value)

			continue
		}

		if !nested.Auto {
			// The flag is consumed here; flags deeper in the map stay
			raw := Untyped(nested).(map[string]any)
			delete(raw, autoKey)

			def.Property(prop.Name, raw)

			continue
		}

		sub, err := r.resolveEntry(prop.Name, nested)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		def.Property(prop.Name, sub)
	}

	return def, nil
}

// resolveValue resolves anything but a registered class spec.
func (r *Resolver) resolveValue(path string, v Value) (any, error) {
	switch val := v.(type) {
	case Literal:
		return val.V, nil
	case Ref:
		return r.reference(path, val.Name)
	case Handle:
		if val.Def == nil {
			return nil, InvalidSpec(path, "nil definition handle")
		}

		return val.Def, nil
	case List:
		out := make([]any, len(val.Items))
		for i, item := range val.Items {
			resolved, err := r.resolveItem(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}

			out[i] = resolved
		}

		return out, nil
	case ClassSpec:
		return r.resolveItem(path, val)
	case nil:
		return nil, InvalidSpec(path, "value cannot be nil")
	default:
		return nil, InvalidSpec(path, fmt.Sprintf("unknown value %T", v))
	}
}

// resolveItem resolves a list element. Class specs inside lists have no
// name to register under, so they become anonymous inline definitions.
func (r *Resolver) resolveItem(path string, v Value) (any, error) {
	spec, isClass := v.(ClassSpec)
	if !isClass {
		return r.resolveValue(path, v)
	}

	if !spec.Auto {
		return Untyped(spec), nil
	}

	return r.resolveClass(path, spec)
}

func (r *Resolver) reference(path, name string) (any, error) {
	if name == "" {
		return nil, InvalidSpec(path, "reference must name a definition")
	}

	if !r.container.Has(name) {
		r.log.Debug("deferring reference", logger.String("at", path), logger.String("ref", name))
		return &reference{name: name}, nil
	}

	instance, err := r.container.Get(name)
	if err != nil {
		return nil, err
	}

	return &reference{name: name, instance: instance, resolved: true}, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case *Definition:
		return "definition"
	case *reference:
		return "reference"
	case []any:
		return "list"
	default:
		return "value"
	}
}
