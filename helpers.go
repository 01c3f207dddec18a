package kiln

import (
	"fmt"
)

// Resolve with type safety.
func Resolve[T any](f *Factory, name string) (T, error) {
	var zero T

	instance, err := f.Get(name)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is not of type %T", ErrTypeMismatch(name, instance), name, zero)
	}

	return typed, nil
}

// Must resolves or panics - use only during startup.
func Must[T any](f *Factory, name string) T {
	instance, err := Resolve[T](f, name)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", name, err))
	}

	return instance
}

// CreateAs is CreateObject with type safety.
func CreateAs[T any](f *Factory, spec any, params map[string]any, singleton bool) (T, error) {
	var zero T

	instance, err := f.CreateObject(spec, params, singleton)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: created object is not of type %T", ErrTypeMismatch(fmt.Sprint(spec), instance), zero)
	}

	return typed, nil
}

// MakeAs builds a transient instance of name with type safety.
func MakeAs[T any](f *Factory, name string, params map[string]any) (T, error) {
	return CreateAs[T](f, name, params, false)
}

// RegisterValue registers a pre-built instance under name.
func RegisterValue[T any](f *Factory, name string, instance T) {
	f.Container().Set(name, instance)
}
