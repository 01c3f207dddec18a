package kiln

// ServiceKey provides type-safe object identification.
// Use NewServiceKey to create typed keys for your definitions.
type ServiceKey[T any] struct {
	name string
}

// NewServiceKey creates a new typed key.
//
// Example:
//
//	var DatabaseKey = NewServiceKey[*Database]("database")
//	db, err := GetWithKey(f, DatabaseKey)
func NewServiceKey[T any](name string) ServiceKey[T] {
	return ServiceKey[T]{name: name}
}

// Name returns the string name of the key.
func (k ServiceKey[T]) Name() string {
	return k.name
}

// GetWithKey resolves an object using a typed key.
func GetWithKey[T any](f *Factory, key ServiceKey[T]) (T, error) {
	return Resolve[T](f, key.name)
}

// MustWithKey resolves an object using a typed key and panics on error.
func MustWithKey[T any](f *Factory, key ServiceKey[T]) T {
	result, err := GetWithKey(f, key)
	if err != nil {
		panic(err)
	}
	return result
}

// CreateWithKey applies params to the singleton behind key and returns it.
func CreateWithKey[T any](f *Factory, key ServiceKey[T], params map[string]any) (T, error) {
	return CreateAs[T](f, key.name, params, true)
}

// HasKey checks if a name is registered using a typed key.
func HasKey[T any](f *Factory, key ServiceKey[T]) bool {
	return f.Container().Has(key.name)
}

// InspectKey returns diagnostic information using a typed key.
func InspectKey[T any](f *Factory, key ServiceKey[T]) ServiceInfo {
	return f.Container().Inspect(key.name)
}
