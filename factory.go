package kiln

import (
	"fmt"
	"reflect"

	logger "github.com/xraph/go-utils/log"
)

// Factory builds objects from named definitions. It owns one Container and
// the definitions the container is rebuilt from on Init.
//
// A Factory is not safe for concurrent use. Singleton overrides mutate the
// shared instance in place; callers that share a Factory across goroutines
// must serialize access.
type Factory struct {
	container   *Container
	definitions Definitions
	classes     *ClassRegistry
	middleware  []Middleware
	log         logger.Logger
}

// New creates a factory with an empty container. Call Init to build the
// container from the pending definitions.
func New(opts ...Option) *Factory {
	f := &Factory{
		classes: NewClassRegistry(),
		log:     logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.container = f.newContainer()

	return f
}

func (f *Factory) newContainer() *Container {
	c := NewContainer(f.classes)
	c.Use(NewLoggingMiddleware(f.log))

	for _, mw := range f.middleware {
		c.Use(mw)
	}

	return c
}

// Container returns the current container.
func (f *Factory) Container() *Container {
	return f.container
}

// Classes returns the class registry. It survives Init and Reload.
func (f *Factory) Classes() *ClassRegistry {
	return f.classes
}

// RegisterClass adds a class to the registry. See ClassRegistry.Register.
func (f *Factory) RegisterClass(name string, prototype any) error {
	return f.classes.Register(name, prototype)
}

// SetDefinitions replaces the pending definitions. The container is not
// touched until Init or Reload.
func (f *Factory) SetDefinitions(defs Definitions) {
	f.definitions = defs
}

// Definitions returns the pending definitions.
func (f *Factory) Definitions() Definitions {
	return f.definitions
}

// Init replaces the container with a fresh one and registers the pending
// definitions into it. With autoMaterialize every registered name is built
// up front, dependencies first; the first failure is returned.
func (f *Factory) Init(autoMaterialize bool) error {
	c := f.newContainer()

	if _, err := NewResolver(c, f.log).Resolve(f.definitions); err != nil {
		return err
	}

	f.container = c

	f.log.Debug("factory initialized",
		logger.Int("definitions", len(f.definitions)),
		logger.Bool("auto_materialize", autoMaterialize),
	)

	if !autoMaterialize {
		return nil
	}

	order, err := c.Graph().TopologicalSort()
	if err != nil {
		return err
	}

	for _, name := range order {
		if _, err := c.Get(name); err != nil {
			return err
		}
	}

	return nil
}

// Reload rebuilds the container from the pending definitions, discarding
// every cached singleton.
func (f *Factory) Reload() error {
	return f.Init(true)
}

// Set registers additional definitions into the current container.
func (f *Factory) Set(defs Definitions) error {
	_, err := NewResolver(f.container, f.log).Resolve(defs)
	return err
}

// Get returns the object registered under name.
//
// When the lookup fails the error is returned unless NoThrow or a non-nil
// OrDefault is given, in which case the default is returned instead. A
// non-nil default therefore always suppresses the error.
func (f *Factory) Get(name string, opts ...GetOption) (any, error) {
	cfg := getConfig{throwOnMiss: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	instance, err := f.container.Get(name)
	if err == nil {
		return instance, nil
	}

	if cfg.throwOnMiss && cfg.def == nil {
		return nil, err
	}

	f.log.Debug("returning default", logger.String("name", name), logger.Error(err))

	return cfg.def, nil
}

// CreateObject builds an object from spec:
//   - a name: the named object, see below
//   - a map with a "class" key, or a ClassSpec: params are laid over the
//     inline properties (params win) and the class name is created
//   - a *Definition or Handle: the descriptor itself, nothing is built
//   - a function: invoked through Container.Call with params
//
// For names in singleton mode the shared instance is fetched, params are
// assigned as properties on it and it is stored back; every holder sees the
// change. In transient mode a new instance is built with params as
// constructor arguments and not cached.
func (f *Factory) CreateObject(spec any, params map[string]any, singleton bool) (any, error) {
	switch s := spec.(type) {
	case string:
		return f.create(s, params, singleton)
	case map[string]any:
		class, ok := s[classKey].(string)
		if !ok {
			return nil, InvalidSpec("$", "object configuration must be a map containing a \"class\" element")
		}

		inline := make(map[string]any, len(s))
		for k, v := range s {
			if k != classKey && k != autoKey {
				inline[k] = v
			}
		}

		return f.create(class, overlay(inline, params), singleton)
	case ClassSpec:
		if s.Class == "" {
			return nil, InvalidSpec("$", "class cannot be empty")
		}

		return f.create(s.Class, overlay(s.propertyMap(), params), singleton)
	case *Definition:
		if s == nil {
			return nil, UnsupportedSpec(spec)
		}

		return s, nil
	case Handle:
		if s.Def == nil {
			return nil, UnsupportedSpec(spec)
		}

		return s.Def, nil
	}

	if spec != nil && reflect.TypeOf(spec).Kind() == reflect.Func {
		return f.container.Call(spec, params)
	}

	return nil, UnsupportedSpec(spec)
}

func (f *Factory) create(name string, params map[string]any, singleton bool) (any, error) {
	if !singleton {
		return f.container.Make(name, params)
	}

	instance, err := f.container.Get(name)
	if err != nil {
		return nil, err
	}

	if err := ApplyOverrides(instance, params); err != nil {
		return nil, NewServiceError(name, "override", err)
	}

	f.container.Set(name, instance)

	return instance, nil
}

// overlay returns base with every key of top set over it.
func overlay(base, top map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}

	for k, v := range top {
		out[k] = v
	}

	return out
}

// String implements fmt.Stringer for debugging.
func (f *Factory) String() string {
	return fmt.Sprintf("kiln.Factory{definitions: %d, services: %d}", len(f.definitions), len(f.container.Services()))
}
