package kiln

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Overrider is implemented by types that apply property overrides
// themselves instead of relying on reflection.
type Overrider interface {
	ApplyOverrides(props map[string]any) error
}

// fieldSet indexes the settable fields of a struct type by every name a
// property may use for them.
type fieldSet struct {
	byName map[string][]int
}

var fieldCache sync.Map // reflect.Type -> *fieldSet

// normalize folds case and drops '_' and '-' so "max_conns", "max-conns"
// and "MaxConns" name the same field.
func normalize(name string) string {
	var b strings.Builder

	b.Grow(len(name))

	for _, r := range name {
		if r == '_' || r == '-' {
			continue
		}

		b.WriteRune(r)
	}

	return strings.ToLower(b.String())
}

func fieldsOf(t reflect.Type) *fieldSet {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(*fieldSet)
	}

	fs := &fieldSet{byName: make(map[string][]int)}
	collectFields(t, nil, fs)

	actual, _ := fieldCache.LoadOrStore(t, fs)

	return actual.(*fieldSet)
}

// collectFields walks exported fields, descending into embedded structs.
// Outer fields shadow promoted ones.
func collectFields(t reflect.Type, prefix []int, fs *fieldSet) {
	var embedded []reflect.StructField

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() && !field.Anonymous {
			continue
		}

		tag := field.Tag.Get("kiln")
		if tag == "-" {
			continue
		}

		index := append(append([]int(nil), prefix...), i)

		if field.Anonymous && tag == "" {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}

			// Promoted fields of an unexported embedded struct stay settable
			if ft.Kind() == reflect.Struct {
				embedded = append(embedded, reflect.StructField{Type: ft, Index: index})
				continue
			}
		}

		if !field.IsExported() {
			continue
		}

		if tag != "" {
			fs.byName[tag] = index
		}

		if _, taken := fs.byName[field.Name]; !taken {
			fs.byName[field.Name] = index
		}

		key := normalize(field.Name)
		if _, taken := fs.byName[key]; !taken {
			fs.byName[key] = index
		}
	}

	for _, e := range embedded {
		sub := &fieldSet{byName: make(map[string][]int)}
		collectFields(e.Type, e.Index, sub)

		for k, v := range sub.byName {
			if _, taken := fs.byName[k]; !taken {
				fs.byName[k] = v
			}
		}
	}
}

func (fs *fieldSet) lookup(name string) ([]int, bool) {
	if idx, ok := fs.byName[name]; ok {
		return idx, true
	}

	idx, ok := fs.byName[normalize(name)]

	return idx, ok
}

// ApplyOverrides assigns every entry of props as a property of target.
// Targets implementing Overrider handle the assignment themselves;
// otherwise target must be a non-nil pointer to a struct. Every value is
// converted before any field is assigned, so a failing entry leaves target
// unchanged.
func ApplyOverrides(target any, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}

	if o, ok := target.(Overrider); ok {
		return o.ApplyOverrides(props)
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cannot set properties on %T: need a pointer to struct", target)
	}

	return assign(v.Elem(), props)
}

// SetProperty assigns value to the property name of target.
func SetProperty(target any, name string, value any) error {
	return ApplyOverrides(target, map[string]any{name: value})
}

// assignment is a converted value waiting to be stored in a field.
type assignment struct {
	name  string
	index []int
	value reflect.Value
}

func assign(s reflect.Value, props map[string]any) error {
	pending := make([]assignment, 0, len(props))

	for _, key := range sortedKeys(props) {
		a, err := prepare(s, key, props[key])
		if err != nil {
			return err
		}

		pending = append(pending, a)
	}

	for _, a := range pending {
		field, err := fieldByIndex(s, a.index, true)
		if err != nil {
			return fmt.Errorf("property %q: %w", a.name, err)
		}

		field.Set(a.value)
	}

	return nil
}

func prepare(s reflect.Value, name string, value any) (assignment, error) {
	index, ok := fieldsOf(s.Type()).lookup(name)
	if !ok {
		return assignment{}, fmt.Errorf("%s has no property %q", s.Type(), name)
	}

	field, err := fieldByIndex(s, index, false)
	if err != nil {
		return assignment{}, fmt.Errorf("property %q: %w", name, err)
	}

	converted, err := convert(value, field.Type(), s.Type().String()+"."+name)
	if err != nil {
		return assignment{}, err
	}

	return assignment{name: name, index: index, value: converted}, nil
}

// fieldByIndex is reflect.Value.FieldByIndex reaching through nil embedded
// pointers. With alloc they are allocated in v; without it the walk goes
// through a scratch value and v is left as is.
func fieldByIndex(v reflect.Value, index []int, alloc bool) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("nil embedded pointer %s", v.Type())
				}

				if alloc {
					v.Set(reflect.New(v.Type().Elem()))
				} else {
					v = reflect.New(v.Type().Elem())
				}
			}

			v = v.Elem()
		}

		v = v.Field(x)
	}

	return v, nil
}

// convert turns value into a reflect.Value assignable to t.
func convert(value any, t reflect.Type, path string) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(value)

	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch {
	case t.Kind() == reflect.Ptr && v.Type().AssignableTo(t.Elem()):
		p := reflect.New(t.Elem())
		p.Elem().Set(v)

		return p, nil
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct && v.Kind() == reflect.Map:
		p := reflect.New(t.Elem())
		if err := fillStruct(p.Elem(), value, path); err != nil {
			return reflect.Value{}, err
		}

		return p, nil
	case t.Kind() == reflect.Struct && v.Kind() == reflect.Map:
		s := reflect.New(t).Elem()
		if err := fillStruct(s, value, path); err != nil {
			return reflect.Value{}, err
		}

		return s, nil
	case t.Kind() == reflect.Slice && v.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := convert(v.Index(i).Interface(), t.Elem(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return reflect.Value{}, err
			}

			out.Index(i).Set(item)
		}

		return out, nil
	case t.Kind() == reflect.Map && v.Kind() == reflect.Map && v.Type().Key().AssignableTo(t.Key()):
		out := reflect.MakeMapWithSize(t, v.Len())

		iter := v.MapRange()
		for iter.Next() {
			item, err := convert(iter.Value().Interface(), t.Elem(), fmt.Sprintf("%s[%v]", path, iter.Key()))
			if err != nil {
				return reflect.Value{}, err
			}

			out.SetMapIndex(iter.Key(), item)
		}

		return out, nil
	case isNumeric(v.Kind()) && isNumeric(t.Kind()):
		return v.Convert(t), nil
	case v.Kind() == reflect.String && t.Kind() == reflect.String:
		return v.Convert(t), nil
	case v.Kind() == reflect.Bool && t.Kind() == reflect.Bool:
		return v.Convert(t), nil
	}

	return reflect.Value{}, ErrTypeMismatch(path, value)
}

func fillStruct(s reflect.Value, value any, path string) error {
	m, ok := value.(map[string]any)
	if !ok {
		return ErrTypeMismatch(path, value)
	}

	return assign(s, m)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
