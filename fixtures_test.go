package kiln

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	logger "github.com/xraph/go-utils/log"
)

func newTestLogger() *logger.TestLogger {
	return logger.NewTestLogger().(*logger.TestLogger)
}

func entriesWithMessage(l *logger.TestLogger, msg string) []logger.LogEntry {
	var out []logger.LogEntry

	for _, e := range l.GetLogs() {
		if e.Message == msg {
			out = append(out, e)
		}
	}

	return out
}

// fieldMap keys the fields of e by their log key.
func fieldMap(e logger.LogEntry) map[string]any {
	out := make(map[string]any, len(e.Fields))

	for _, v := range e.Fields {
		if f, ok := v.(logger.Field); ok {
			out[f.Key()] = f.Value()
		}
	}

	return out
}

type testDB struct {
	DSN      string
	MaxConns int
}

type testCache struct {
	Size int
	Name string
}

type testRepo struct {
	DB       *testDB
	Cache    *testCache
	Options  map[string]any
	Tags     []string
	Handlers []any
	Config   any
}

type testMailer struct {
	Host string `kiln:"hostname"`
	Port int
}

type counterParams struct {
	Start int
}

type testCounter struct {
	N     int
	Label string
}

func newTestCounter(p counterParams) *testCounter {
	return &testCounter{N: p.Start}
}

// overriding applies overrides by hand and records them.
type overriding struct {
	seen map[string]any
}

func (o *overriding) ApplyOverrides(props map[string]any) error {
	if _, ok := props["fail"]; ok {
		return errors.New("refused")
	}

	if o.seen == nil {
		o.seen = make(map[string]any)
	}

	for k, v := range props {
		o.seen[k] = v
	}

	return nil
}

func testClasses(t *testing.T) *ClassRegistry {
	t.Helper()

	classes := NewClassRegistry()
	require.NoError(t, classes.Register("app.DB", (*testDB)(nil)))
	require.NoError(t, classes.Register("app.Cache", testCache{}))
	require.NoError(t, classes.Register("app.Repo", (*testRepo)(nil)))
	require.NoError(t, classes.Register("app.Mailer", (*testMailer)(nil)))
	require.NoError(t, classes.Register("app.Counter", newTestCounter))
	require.NoError(t, classes.Register("app.Overriding", (*overriding)(nil)))

	return classes
}

func newTestFactory(t *testing.T, defs Definitions) *Factory {
	t.Helper()

	return New(WithClasses(testClasses(t)), WithDefinitions(defs))
}
