package kiln

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var (
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
	paramsType    = reflect.TypeOf(map[string]any(nil))
	containerType = reflect.TypeOf((*Container)(nil))
)

// constructorInfo holds analyzed function metadata
type constructorInfo struct {
	fn       reflect.Value
	fnType   reflect.Type
	params   []reflect.Type
	results  []reflect.Type // Non-error results
	hasError bool
}

// analyzeConstructor inspects a function and extracts its parameter and
// result types. An error result must come last.
func analyzeConstructor(constructor any) (*constructorInfo, error) {
	fnValue := reflect.ValueOf(constructor)
	if !fnValue.IsValid() || fnValue.Kind() != reflect.Func {
		return nil, errors.New("callable must be a function")
	}

	if fnValue.IsNil() {
		return nil, errors.New("callable cannot be nil")
	}

	fnType := fnValue.Type()
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("variadic functions are not supported: %s", fnType)
	}

	info := &constructorInfo{
		fn:     fnValue,
		fnType: fnType,
	}

	for i := 0; i < fnType.NumIn(); i++ {
		info.params = append(info.params, fnType.In(i))
	}

	for i := 0; i < fnType.NumOut(); i++ {
		resultType := fnType.Out(i)

		// Check for error return (must be last)
		if resultType == errorType {
			if i != fnType.NumOut()-1 {
				return nil, errors.New("error must be the last return value")
			}

			info.hasError = true

			continue
		}

		info.results = append(info.results, resultType)
	}

	if len(info.results) > 1 {
		return nil, fmt.Errorf("callable must return at most one value besides error, got %s", fnType)
	}

	return info, nil
}

// Call invokes fn with arguments bound from params and the container.
//
// Parameters are bound by kind:
//   - map[string]any receives params
//   - *Container receives c
//   - a struct, or pointer to struct, is filled from params by property
//     name; fields tagged `inject:"name"` that params does not set are
//     resolved through Get
//   - anything else takes params["0"], params["1"], ... by position, or the
//     single params value assignable to it
//
// fn may return nothing, T, error or (T, error).
func (c *Container) Call(fn any, params map[string]any) (any, error) {
	info, err := analyzeConstructor(fn)
	if err != nil {
		return nil, err
	}

	args := make([]reflect.Value, len(info.params))

	for i, pt := range info.params {
		arg, err := c.bindParam(i, pt, params)
		if err != nil {
			return nil, fmt.Errorf("call %s: parameter %d: %w", info.fnType, i, err)
		}

		args[i] = arg
	}

	results := info.fn.Call(args)

	if info.hasError {
		if errVal := results[len(results)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	if len(info.results) == 0 {
		return nil, nil
	}

	return results[0].Interface(), nil
}

func (c *Container) bindParam(index int, pt reflect.Type, params map[string]any) (reflect.Value, error) {
	switch {
	case pt == paramsType:
		if params == nil {
			params = map[string]any{}
		}

		return reflect.ValueOf(params), nil
	case pt == containerType:
		return reflect.ValueOf(c), nil
	}

	if v, ok := params[strconv.Itoa(index)]; ok {
		return convert(v, pt, "argument "+strconv.Itoa(index))
	}

	if pt.Kind() == reflect.Struct || (pt.Kind() == reflect.Ptr && pt.Elem().Kind() == reflect.Struct) {
		return c.bindStruct(pt, params)
	}

	var (
		match reflect.Value
		found int
	)

	for _, v := range params {
		if v != nil && reflect.TypeOf(v).AssignableTo(pt) {
			match = reflect.ValueOf(v)
			found++
		}
	}

	switch found {
	case 1:
		return match, nil
	case 0:
		return reflect.Value{}, fmt.Errorf("no argument for %s", pt)
	default:
		return reflect.Value{}, fmt.Errorf("ambiguous argument for %s: %d candidates", pt, found)
	}
}

// bindStruct fills a parameter object from params and injected services.
func (c *Container) bindStruct(pt reflect.Type, params map[string]any) (reflect.Value, error) {
	st := pt
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}

	ptr := reflect.New(st)
	fs := fieldsOf(st)

	known := make(map[string]any, len(params))

	for key, v := range params {
		if _, ok := fs.lookup(key); ok {
			known[key] = v
		}
	}

	if err := assign(ptr.Elem(), known); err != nil {
		return reflect.Value{}, err
	}

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)

		name := field.Tag.Get("inject")
		if name == "" || !field.IsExported() || provided(fs, field, params) {
			continue
		}

		instance, err := c.Get(name)
		if err != nil {
			return reflect.Value{}, err
		}

		value, err := convert(instance, field.Type, st.String()+"."+field.Name)
		if err != nil {
			return reflect.Value{}, err
		}

		ptr.Elem().Field(i).Set(value)
	}

	if pt.Kind() == reflect.Ptr {
		return ptr, nil
	}

	return ptr.Elem(), nil
}

// provided reports whether params set field under any of its names.
func provided(fs *fieldSet, field reflect.StructField, params map[string]any) bool {
	for key := range params {
		if idx, ok := fs.lookup(key); ok && len(idx) == 1 && idx[0] == field.Index[0] {
			return true
		}
	}

	return false
}
