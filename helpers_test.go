package kiln

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_TypeSafe(t *testing.T) {
	f := newTestFactory(t, Definitions{{Name: "db", Spec: Class("app.DB", Prop("dsn", "mem"))}})
	require.NoError(t, f.Init(false))

	db, err := Resolve[*testDB](f, "db")
	require.NoError(t, err)
	assert.Equal(t, "mem", db.DSN)
}

func TestResolve_TypeMismatch(t *testing.T) {
	f := newTestFactory(t, Definitions{{Name: "db", Spec: Class("app.DB")}})
	require.NoError(t, f.Init(false))

	_, err := Resolve[*testCache](f, "db")
	require.ErrorIs(t, err, ErrTypeMismatchSentinel)
	assert.Contains(t, err.Error(), "*kiln.testCache")
}

func TestResolveHelper_NotFound(t *testing.T) {
	f := newTestFactory(t, nil)

	_, err := Resolve[string](f, "nope")
	assert.ErrorIs(t, err, ErrServiceNotFoundSentinel)
}

func TestMust_Success(t *testing.T) {
	f := newTestFactory(t, Definitions{{Name: "dsn", Spec: Literal{V: "mem"}}})
	require.NoError(t, f.Init(false))

	assert.Equal(t, "mem", Must[string](f, "dsn"))
}

func TestMust_Panic(t *testing.T) {
	f := newTestFactory(t, nil)

	assert.Panics(t, func() {
		Must[string](f, "nope")
	})
}

func TestCreateAs_TypeMismatch(t *testing.T) {
	f := newTestFactory(t, nil)

	_, err := CreateAs[*testDB](f, "app.Cache", nil, false)
	assert.ErrorIs(t, err, ErrTypeMismatchSentinel)
}

func TestMakeAs(t *testing.T) {
	f := newTestFactory(t, nil)

	a, err := MakeAs[*testCache](f, "app.Cache", map[string]any{"size": 1})
	require.NoError(t, err)
	b, err := MakeAs[*testCache](f, "app.Cache", map[string]any{"size": 2})
	require.NoError(t, err)

	assert.Equal(t, 1, a.Size)
	assert.Equal(t, 2, b.Size)
}

func TestRegisterValue(t *testing.T) {
	f := newTestFactory(t, nil)
	db := &testDB{DSN: "external"}

	RegisterValue(f, "db", db)

	got, err := Resolve[*testDB](f, "db")
	require.NoError(t, err)
	assert.Same(t, db, got)

	_, err = f.Container().Make("db", nil)
	assert.ErrorIs(t, err, ErrNotConstructible)
}

func TestRegisterValue_ReferencedByDefinitions(t *testing.T) {
	f := newTestFactory(t, nil)
	db := &testDB{DSN: "external"}
	RegisterValue(f, "db", db)

	require.NoError(t, f.Set(Definitions{
		{Name: "repo", Spec: Class("app.Repo", Prop("db", RefTo("db")))},
	}))

	repo, err := Resolve[*testRepo](f, "repo")
	require.NoError(t, err)
	assert.Same(t, db, repo.DB)
}

func TestComplexDependencies(t *testing.T) {
	defs, err := ParseYAML([]byte(`
repo:
  class: app.Repo
  db: !ref db
  cache:
    class: app.Cache
    size: 16
  tags: [a, b]
  options:
    retries: 3
db:
  class: app.DB
  dsn: mem
  max_conns: 4
`))
	require.NoError(t, err)

	f := newTestFactory(t, defs)
	require.NoError(t, f.Init(true))

	repo := Must[*testRepo](f, "repo")
	db := Must[*testDB](f, "db")

	assert.Same(t, db, repo.DB)
	assert.Equal(t, 4, db.MaxConns)
	assert.Equal(t, 16, repo.Cache.Size)
	assert.Equal(t, []string{"a", "b"}, repo.Tags)
	assert.Equal(t, map[string]any{"retries": 3}, repo.Options)
}
