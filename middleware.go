package kiln

import (
	"context"
	"time"

	logger "github.com/xraph/go-utils/log"
)

// Middleware provides hooks for intercepting container operations.
// Middleware can be used for logging, metrics, security, testing, etc.
type Middleware interface {
	// BeforeResolve is called before Get looks up a name.
	// Return error to abort resolution.
	BeforeResolve(ctx context.Context, name string) error

	// AfterResolve is called after Get.
	// Called even if resolution failed (instance and err may both be set).
	AfterResolve(ctx context.Context, name string, instance any, err error) error

	// BeforeBuild is called before a definition is built into an instance.
	// Return error to abort the build.
	BeforeBuild(ctx context.Context, name, class string) error

	// AfterBuild is called after a build, even if it failed.
	AfterBuild(ctx context.Context, name, class string, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	middleware []Middleware
}

// newMiddlewareChain creates a new middleware chain.
func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{
		middleware: make([]Middleware, 0),
	}
}

// add appends middleware to the chain.
func (m *middlewareChain) add(middleware Middleware) {
	m.middleware = append(m.middleware, middleware)
}

// beforeResolve calls BeforeResolve on all middleware.
func (m *middlewareChain) beforeResolve(ctx context.Context, name string) error {
	for _, mw := range m.middleware {
		if err := mw.BeforeResolve(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// afterResolve calls AfterResolve on all middleware.
func (m *middlewareChain) afterResolve(ctx context.Context, name string, instance any, err error) error {
	for _, mw := range m.middleware {
		if mwErr := mw.AfterResolve(ctx, name, instance, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// beforeBuild calls BeforeBuild on all middleware.
func (m *middlewareChain) beforeBuild(ctx context.Context, name, class string) error {
	for _, mw := range m.middleware {
		if err := mw.BeforeBuild(ctx, name, class); err != nil {
			return err
		}
	}
	return nil
}

// afterBuild calls AfterBuild on all middleware.
func (m *middlewareChain) afterBuild(ctx context.Context, name, class string, err error) error {
	for _, mw := range m.middleware {
		if mwErr := mw.AfterBuild(ctx, name, class, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// FuncMiddleware wraps functions as Middleware.
type FuncMiddleware struct {
	BeforeResolveFunc func(ctx context.Context, name string) error
	AfterResolveFunc  func(ctx context.Context, name string, instance any, err error) error
	BeforeBuildFunc   func(ctx context.Context, name, class string) error
	AfterBuildFunc    func(ctx context.Context, name, class string, err error) error
}

// BeforeResolve implements Middleware.
func (f *FuncMiddleware) BeforeResolve(ctx context.Context, name string) error {
	if f.BeforeResolveFunc != nil {
		return f.BeforeResolveFunc(ctx, name)
	}
	return nil
}

// AfterResolve implements Middleware.
func (f *FuncMiddleware) AfterResolve(ctx context.Context, name string, instance any, err error) error {
	if f.AfterResolveFunc != nil {
		return f.AfterResolveFunc(ctx, name, instance, err)
	}
	return nil
}

// BeforeBuild implements Middleware.
func (f *FuncMiddleware) BeforeBuild(ctx context.Context, name, class string) error {
	if f.BeforeBuildFunc != nil {
		return f.BeforeBuildFunc(ctx, name, class)
	}
	return nil
}

// AfterBuild implements Middleware.
func (f *FuncMiddleware) AfterBuild(ctx context.Context, name, class string, err error) error {
	if f.AfterBuildFunc != nil {
		return f.AfterBuildFunc(ctx, name, class, err)
	}
	return nil
}

// loggingMiddleware logs resolution failures and build timings.
type loggingMiddleware struct {
	log    logger.Logger
	starts map[string]time.Time
}

// NewLoggingMiddleware returns middleware that logs builds and failed
// resolutions at debug level and failed builds at warn level.
func NewLoggingMiddleware(log logger.Logger) Middleware {
	if log == nil {
		log = logger.NewNoopLogger()
	}

	return &loggingMiddleware{log: log, starts: make(map[string]time.Time)}
}

func (l *loggingMiddleware) BeforeResolve(context.Context, string) error { return nil }

func (l *loggingMiddleware) AfterResolve(_ context.Context, name string, _ any, err error) error {
	if err != nil {
		l.log.Debug("resolve failed", logger.String("service", name), logger.Error(err))
	}

	return nil
}

func (l *loggingMiddleware) BeforeBuild(_ context.Context, name, class string) error {
	l.starts[name] = time.Now()
	l.log.Debug("building", logger.String("service", name), logger.String("class", class))

	return nil
}

func (l *loggingMiddleware) AfterBuild(_ context.Context, name, class string, err error) error {
	start, ok := l.starts[name]
	delete(l.starts, name)

	fields := []logger.Field{logger.String("service", name), logger.String("class", class)}
	if ok {
		fields = append(fields, logger.Duration("took", time.Since(start)))
	}

	if err != nil {
		l.log.Warn("build failed", append(fields, logger.Error(err))...)
		return nil
	}

	l.log.Debug("built", fields...)

	return nil
}
