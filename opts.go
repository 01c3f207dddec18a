package kiln

import logger "github.com/xraph/go-utils/log"

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used by the factory and its containers.
func WithLogger(log logger.Logger) Option {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// WithClasses sets the class registry definitions are built from.
func WithClasses(classes *ClassRegistry) Option {
	return func(f *Factory) {
		if classes != nil {
			f.classes = classes
		}
	}
}

// WithMiddleware adds middleware to every container the factory creates.
func WithMiddleware(mw ...Middleware) Option {
	return func(f *Factory) {
		f.middleware = append(f.middleware, mw...)
	}
}

// WithDefinitions sets the pending definitions, as SetDefinitions does.
func WithDefinitions(defs Definitions) Option {
	return func(f *Factory) {
		f.definitions = defs
	}
}

// GetOption configures Factory.Get.
type GetOption func(*getConfig)

type getConfig struct {
	throwOnMiss bool
	def         any
}

// NoThrow makes Get return the default, or nil, instead of an error.
func NoThrow() GetOption {
	return func(c *getConfig) {
		c.throwOnMiss = false
	}
}

// OrDefault sets the value Get returns when the lookup fails. A non-nil
// default is returned even without NoThrow.
func OrDefault(v any) GetOption {
	return func(c *getConfig) {
		c.def = v
	}
}
