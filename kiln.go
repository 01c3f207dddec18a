// Package kiln builds object graphs from declarative definitions.
//
// A definition names a class and the properties to inject into it. Property
// values may be literals, references to other named objects, lists, or
// nested class definitions, which are themselves registered under the
// property name:
//
//	defs, err := kiln.ParseYAML([]byte(`
//	db:
//	  class: app.DB
//	  dsn: postgres://localhost/app
//	users:
//	  class: app.UserRepo
//	  db: !ref db
//	  cache:
//	    class: app.Cache
//	    size: 128
//	`))
//
//	f := kiln.New(kiln.WithLogger(logger))
//	f.RegisterClass("app.DB", (*DB)(nil))
//	f.RegisterClass("app.UserRepo", (*UserRepo)(nil))
//	f.RegisterClass("app.Cache", NewCache)
//	f.SetDefinitions(defs)
//	if err := f.Init(true); err != nil { ... }
//
//	repo, err := kiln.Resolve[*UserRepo](f, "users")
//
// Objects are singletons by default: Get and CreateObject return the same
// instance for a name. CreateObject in transient mode builds a fresh,
// uncached instance.
package kiln
