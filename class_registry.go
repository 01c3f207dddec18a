package kiln

import (
	"fmt"
	"reflect"
	"sync"
)

// classInfo holds a registered class: either a struct type built with
// reflect.New or a constructor function invoked through Container.Call.
type classInfo struct {
	name string
	typ  reflect.Type // Type of the built instance
	ctor any          // Constructor function, nil for plain struct types
}

// ClassRegistry maps class names to Go types. Definitions name their class
// by string; the registry is what turns that string into an instance.
type ClassRegistry struct {
	classes map[string]*classInfo
	mu      sync.RWMutex
}

// NewClassRegistry creates an empty class registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes: make(map[string]*classInfo),
	}
}

// Register adds a class under name. The prototype is a struct value, a
// pointer to a struct (a typed nil is fine) or a constructor function
// returning T or (T, error). Registering a name again replaces it.
func (r *ClassRegistry) Register(name string, prototype any) error {
	if name == "" {
		return fmt.Errorf("class name cannot be empty")
	}

	info, err := newClassInfo(name, prototype)
	if err != nil {
		return fmt.Errorf("register class %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.classes[name] = info

	return nil
}

// Has checks if a class is registered.
func (r *ClassRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.classes[name]

	return ok
}

// Names returns the registered class names sorted.
func (r *ClassRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.classes)
}

// Type returns the Go type instances of name have.
func (r *ClassRegistry) Type(name string) (reflect.Type, bool) {
	info, ok := r.get(name)
	if !ok {
		return nil, false
	}

	return info.typ, true
}

func (r *ClassRegistry) get(name string) (*classInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.classes[name]

	return info, ok
}

func newClassInfo(name string, prototype any) (*classInfo, error) {
	if prototype == nil {
		return nil, fmt.Errorf("prototype cannot be nil")
	}

	t := reflect.TypeOf(prototype)

	if t.Kind() == reflect.Func {
		fn, err := analyzeConstructor(prototype)
		if err != nil {
			return nil, err
		}

		if len(fn.results) != 1 {
			return nil, fmt.Errorf("constructor must return T or (T, error), got %s", t)
		}

		return &classInfo{name: name, typ: fn.results[0], ctor: prototype}, nil
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("prototype must be a struct, a pointer to struct or a constructor, got %s", reflect.TypeOf(prototype))
	}

	return &classInfo{name: name, typ: reflect.PointerTo(t)}, nil
}

// construct builds a new instance. Constructors receive params as their
// arguments; struct types get params assigned as properties.
func (info *classInfo) construct(c *Container, params map[string]any) (any, error) {
	if info.ctor != nil {
		return c.Call(info.ctor, params)
	}

	instance := reflect.New(info.typ.Elem()).Interface()

	if len(params) > 0 {
		if err := ApplyOverrides(instance, params); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// ClassName returns the package-qualified name of T, the default name
// RegisterClass uses.
func ClassName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.PkgPath() + "." + t.Name()
}

// RegisterClass registers T under ClassName[T]() and returns that name.
// T may be a struct or a pointer to struct.
func RegisterClass[T any](r *ClassRegistry) (string, error) {
	name := ClassName[T]()

	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Ptr {
		t = reflect.PointerTo(t)
	}

	return name, r.Register(name, reflect.Zero(t).Interface())
}
