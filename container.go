package kiln

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/go-utils/di"
)

// Container holds named registrations and the singleton instances built
// from them. It offers the four operations the resolver and the Factory
// rely on: Get, Set, Make and Call.
//
// Registration maps are safe for concurrent use; building is not
// serialized, so callers sharing a Container across goroutines must
// serialize Get, Make and Set themselves.
type Container struct {
	services   map[string]*registration
	graph      *DependencyGraph
	middleware *middlewareChain
	classes    *ClassRegistry
	building   []*Definition // Definitions currently being built, for cycle detection
	mu         sync.RWMutex
}

// registration holds a named entry: a descriptor, a value, or both once the
// descriptor has been built.
type registration struct {
	name     string
	def      *Definition
	instance any
	built    bool
}

// ServiceInfo contains diagnostic information.
type ServiceInfo struct {
	Name         string
	Class        string
	Type         string
	Dependencies []string
	Deps         []di.Dep
	Built        bool
	Registered   bool
}

// NewContainer creates an empty container building classes from classes.
// A nil registry is replaced by an empty one.
func NewContainer(classes *ClassRegistry) *Container {
	if classes == nil {
		classes = NewClassRegistry()
	}

	return &Container{
		services:   make(map[string]*registration),
		graph:      NewDependencyGraph(),
		middleware: newMiddlewareChain(),
		classes:    classes,
	}
}

// Classes returns the class registry.
func (c *Container) Classes() *ClassRegistry {
	return c.classes
}

// Set registers value under name. A *Definition replaces the registration
// and drops any cached instance. Any other value becomes the cached
// instance; a descriptor already registered under name is kept so Make can
// still build fresh instances from it.
func (c *Container) Set(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if def, ok := value.(*Definition); ok && def != nil {
		c.services[name] = &registration{name: name, def: def}
		c.graph.AddNodeWithDeps(name, def.Deps())

		return
	}

	if reg, ok := c.services[name]; ok && reg.def != nil {
		reg.instance = value
		reg.built = true

		return
	}

	c.services[name] = &registration{name: name, instance: value, built: true}
	c.graph.AddNode(name, nil)
}

// Get returns the instance registered under name, building and caching it
// on first access. A name that is not registered but names a class is
// registered on the fly as a definition of that class.
func (c *Container) Get(name string) (any, error) {
	ctx := context.Background()

	// Call middleware before resolve
	if err := c.middleware.beforeResolve(ctx, name); err != nil {
		return nil, err
	}

	instance, err := c.getInternal(name)

	// Call middleware after resolve
	if mwErr := c.middleware.afterResolve(ctx, name, instance, err); mwErr != nil {
		return nil, mwErr
	}

	return instance, err
}

func (c *Container) getInternal(name string) (any, error) {
	c.mu.RLock()
	reg, exists := c.services[name]
	c.mu.RUnlock()

	if !exists {
		if !c.classes.Has(name) {
			return nil, ErrServiceNotFound(name)
		}

		c.Set(name, NewDefinition(name, name))

		c.mu.RLock()
		reg = c.services[name]
		c.mu.RUnlock()
	}

	c.mu.RLock()
	built, instance, def := reg.built, reg.instance, reg.def
	c.mu.RUnlock()

	if built {
		return instance, nil
	}

	instance, err := c.build(def, nil)
	if err != nil {
		return nil, NewServiceError(name, "resolve", err)
	}

	c.mu.Lock()
	// A Set during the build wins over the freshly built instance
	if current := c.services[name]; current == reg && !reg.built {
		reg.instance = instance
		reg.built = true
	}
	c.mu.Unlock()

	return instance, nil
}

// Make builds a fresh instance of name without touching the singleton
// cache. params are passed as constructor arguments and take precedence
// over properties of a registered descriptor.
func (c *Container) Make(name string, params map[string]any) (any, error) {
	c.mu.RLock()
	reg, exists := c.services[name]
	c.mu.RUnlock()

	var def *Definition

	switch {
	case exists && reg.def != nil:
		def = reg.def
	case exists:
		return nil, errNotConstructible(name, reg.instance)
	case c.classes.Has(name):
		def = NewDefinition(name, name)
	default:
		return nil, ErrServiceNotFound(name)
	}

	instance, err := c.build(def, params)
	if err != nil {
		return nil, NewServiceError(name, "make", err)
	}

	return instance, nil
}

// Build builds def into a fresh instance without registering or caching it.
func (c *Container) Build(def *Definition) (any, error) {
	if def == nil {
		return nil, fmt.Errorf("build: definition cannot be nil")
	}

	instance, err := c.build(def, nil)
	if err != nil {
		return nil, NewServiceError(def.Name, "build", err)
	}

	return instance, nil
}

func (c *Container) build(def *Definition, params map[string]any) (any, error) {
	for i, inProgress := range c.building {
		if inProgress == def {
			cycle := make([]string, 0, len(c.building)-i+1)
			for _, d := range c.building[i:] {
				cycle = append(cycle, d.Name)
			}

			return nil, ErrCircularDependency(append(cycle, def.Name))
		}
	}

	c.building = append(c.building, def)
	defer func() { c.building = c.building[:len(c.building)-1] }()

	ctx := context.Background()

	if err := c.middleware.beforeBuild(ctx, def.Name, def.Class); err != nil {
		return nil, err
	}

	instance, err := c.construct(def, params)

	if mwErr := c.middleware.afterBuild(ctx, def.Name, def.Class, err); mwErr != nil {
		return nil, mwErr
	}

	return instance, err
}

func (c *Container) construct(def *Definition, params map[string]any) (any, error) {
	info, ok := c.classes.get(def.Class)
	if !ok {
		return nil, ErrClassNotFound(def.Class).WithContext("registered", c.classes.Names())
	}

	instance, err := info.construct(c, params)
	if err != nil {
		return nil, err
	}

	props := make(map[string]any, len(def.bindings))

	for _, b := range def.bindings {
		if _, overridden := params[b.name]; overridden {
			continue
		}

		value, err := c.materialize(b.value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", b.name, err)
		}

		props[b.name] = value
	}

	if err := ApplyOverrides(instance, props); err != nil {
		return nil, err
	}

	return instance, nil
}

// materialize turns a resolved binding value into what gets assigned.
func (c *Container) materialize(v any) (any, error) {
	switch val := v.(type) {
	case *Definition:
		return c.build(val, nil)
	case *reference:
		if val.resolved {
			return val.instance, nil
		}

		return c.Get(val.name)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			m, err := c.materialize(item)
			if err != nil {
				return nil, err
			}

			out[i] = m
		}

		return out, nil
	default:
		return v, nil
	}
}

// Use adds middleware to the container.
// Middleware is called in the order they are added.
func (c *Container) Use(middleware Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware.add(middleware)
}

// Has checks if a name is registered.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.services[name]

	return exists
}

// IsBuilt checks if name holds an instance.
// Returns false if name doesn't exist or hasn't been built.
func (c *Container) IsBuilt(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reg, exists := c.services[name]

	return exists && reg.built
}

// Services returns all registered names in registration order.
func (c *Container) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.graph.Nodes()
}

// Graph returns a snapshot of the dependency graph.
func (c *Container) Graph() *DependencyGraph {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.graph.Clone()
}

// Inspect returns diagnostic information about a registration.
func (c *Container) Inspect(name string) ServiceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reg, exists := c.services[name]
	if !exists {
		return ServiceInfo{Name: name}
	}

	info := ServiceInfo{
		Name:         name,
		Type:         "unknown",
		Dependencies: c.graph.GetDependencies(name),
		Deps:         c.graph.GetDeps(name),
		Built:        reg.built,
		Registered:   true,
	}

	if reg.def != nil {
		info.Class = reg.def.Class
	}

	if reg.built {
		info.Type = fmt.Sprintf("%T", reg.instance)
	}

	return info
}
