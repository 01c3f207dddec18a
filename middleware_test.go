package kiln

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_BeforeAfterResolve(t *testing.T) {
	c := NewContainer(nil)
	c.Set("dsn", "mem")

	var (
		before []string
		after  []any
	)

	c.Use(&FuncMiddleware{
		BeforeResolveFunc: func(_ context.Context, name string) error {
			before = append(before, name)
			return nil
		},
		AfterResolveFunc: func(_ context.Context, name string, instance any, err error) error {
			after = append(after, instance)
			return nil
		},
	})

	v, err := c.Get("dsn")
	require.NoError(t, err)
	assert.Equal(t, "mem", v)

	assert.Equal(t, []string{"dsn"}, before)
	assert.Equal(t, []any{"mem"}, after)
}

func TestMiddleware_BeforeResolveError(t *testing.T) {
	c := NewContainer(testClasses(t))
	c.Set("db", NewDefinition("db", "app.DB"))

	denied := errors.New("denied")
	c.Use(&FuncMiddleware{
		BeforeResolveFunc: func(context.Context, string) error { return denied },
	})

	_, err := c.Get("db")
	assert.ErrorIs(t, err, denied)
	assert.False(t, c.IsBuilt("db"))
}

func TestMiddleware_AfterResolveError(t *testing.T) {
	c := NewContainer(nil)
	c.Set("dsn", "mem")

	rejected := errors.New("rejected")
	c.Use(&FuncMiddleware{
		AfterResolveFunc: func(context.Context, string, any, error) error { return rejected },
	})

	v, err := c.Get("dsn")
	assert.ErrorIs(t, err, rejected)
	assert.Nil(t, v)
}

func TestMiddleware_AfterResolveReceivesError(t *testing.T) {
	c := NewContainer(nil)

	var received error
	c.Use(&FuncMiddleware{
		AfterResolveFunc: func(_ context.Context, _ string, _ any, err error) error {
			received = err
			return nil
		},
	})

	_, err := c.Get("nope")
	require.Error(t, err)
	assert.ErrorIs(t, received, ErrServiceNotFoundSentinel)
}

func TestMiddleware_BeforeAfterBuild(t *testing.T) {
	c := NewContainer(testClasses(t))
	c.Set("repo", NewDefinition("repo", "app.Repo").
		Property("cache", NewDefinition("cache", "app.Cache")))

	var events []string

	c.Use(&FuncMiddleware{
		BeforeBuildFunc: func(_ context.Context, name, class string) error {
			events = append(events, "before:"+name+":"+class)
			return nil
		},
		AfterBuildFunc: func(_ context.Context, name, class string, err error) error {
			events = append(events, "after:"+name)
			return nil
		},
	})

	_, err := c.Get("repo")
	require.NoError(t, err)

	// Nested definitions build inside their owner
	assert.Equal(t, []string{
		"before:repo:app.Repo",
		"before:cache:app.Cache",
		"after:cache",
		"after:repo",
	}, events)

	events = nil

	_, err = c.Get("repo")
	require.NoError(t, err)
	assert.Empty(t, events, "cached instances are not rebuilt")
}

func TestMiddleware_BeforeBuildErrorAbortsBuild(t *testing.T) {
	c := NewContainer(testClasses(t))
	c.Set("db", NewDefinition("db", "app.DB"))

	vetoed := errors.New("vetoed")
	c.Use(&FuncMiddleware{
		BeforeBuildFunc: func(context.Context, string, string) error { return vetoed },
	})

	_, err := c.Get("db")
	assert.ErrorIs(t, err, vetoed)
	assert.False(t, c.IsBuilt("db"))

	_, err = c.Make("db", nil)
	assert.ErrorIs(t, err, vetoed)
}

func TestMiddleware_AfterBuildReceivesError(t *testing.T) {
	c := NewContainer(testClasses(t))
	c.Set("x", NewDefinition("x", "app.Unknown"))

	var received error
	c.Use(&FuncMiddleware{
		AfterBuildFunc: func(_ context.Context, _, _ string, err error) error {
			received = err
			return err
		},
	})

	_, err := c.Get("x")
	require.Error(t, err)
	assert.ErrorIs(t, received, ErrClassNotFoundSentinel)
}

func TestMiddleware_MultipleMiddleware(t *testing.T) {
	c := NewContainer(nil)
	c.Set("v", 1)

	var order []int

	for i := 1; i <= 3; i++ {
		c.Use(&FuncMiddleware{
			BeforeResolveFunc: func(context.Context, string) error {
				order = append(order, i)
				return nil
			},
		})
	}

	_, err := c.Get("v")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestMiddleware_EmptyFuncMiddleware(t *testing.T) {
	c := NewContainer(testClasses(t))
	c.Use(&FuncMiddleware{})

	_, err := c.Get("app.DB")
	assert.NoError(t, err)
}

func TestLoggingMiddleware(t *testing.T) {
	logs := newTestLogger()

	c := NewContainer(testClasses(t))
	c.Use(NewLoggingMiddleware(logs))
	c.Set("db", NewDefinition("db", "app.DB"))
	c.Set("bad", NewDefinition("bad", "app.Unknown"))

	_, err := c.Get("db")
	require.NoError(t, err)

	built := entriesWithMessage(logs, "built")
	require.Len(t, built, 1)
	assert.Equal(t, "DEBUG", built[0].Level)
	assert.Equal(t, "db", fieldMap(built[0])["service"])
	assert.Contains(t, fieldMap(built[0]), "took")

	_, err = c.Get("bad")
	require.Error(t, err)

	failed := entriesWithMessage(logs, "build failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "WARN", failed[0].Level)

	resolveFailed := entriesWithMessage(logs, "resolve failed")
	require.Len(t, resolveFailed, 1)
	assert.Equal(t, "DEBUG", resolveFailed[0].Level)
	assert.Equal(t, "bad", fieldMap(resolveFailed[0])["service"])
}

func TestLoggingMiddleware_MissingNameIsNotAWarning(t *testing.T) {
	logs := newTestLogger()

	c := NewContainer(nil)
	c.Use(NewLoggingMiddleware(logs))

	_, err := c.Get("missing")
	require.ErrorIs(t, err, ErrServiceNotFoundSentinel)

	assert.Zero(t, logs.CountLogs("WARN"))
	assert.True(t, logs.AssertHasLog("DEBUG", "resolve failed"))
}

func TestLoggingMiddleware_NilLogger(t *testing.T) {
	c := NewContainer(testClasses(t))
	c.Use(NewLoggingMiddleware(nil))

	_, err := c.Get("app.DB")
	assert.NoError(t, err)
}
