package expressions

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"

	"go.starlark.net/starlark"
)

// object exposes a scope map to Starlark. Missing attributes read as None so
// "user.name == None" works before the property is set.
type object struct {
	name string
	m    map[string]any
}

var (
	_ starlark.HasAttrs = (*object)(nil)
	_ starlark.Mapping  = (*object)(nil)
)

func (o *object) String() string        { return fmt.Sprintf("<%s>", o.name) }
func (o *object) Type() string          { return "object" }
func (o *object) Freeze()               {}
func (o *object) Truth() starlark.Bool  { return len(o.m) > 0 }
func (o *object) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: object") }

func (o *object) Attr(name string) (starlark.Value, error) {
	v, ok := o.m[name]
	if !ok {
		return starlark.None, nil
	}
	return toValue(name, v)
}

func (o *object) AttrNames() []string {
	names := make([]string, 0, len(o.m))
	for k := range o.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Get supports o["key"] indexing.
func (o *object) Get(k starlark.Value) (starlark.Value, bool, error) {
	key, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("object keys are strings, got %s", k.Type())
	}
	v, ok := o.m[key]
	if !ok {
		return starlark.None, true, nil
	}
	val, err := toValue(key, v)
	return val, true, err
}

// toValue converts decoded JSON and plain Go values into Starlark values.
func toValue(name string, v any) (starlark.Value, error) {
	switch v := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return v, nil
	case bool:
		return starlark.Bool(v), nil
	case string:
		return starlark.String(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return starlark.MakeInt64(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", name, v)
		}
		return starlark.Float(f), nil
	case int:
		return starlark.MakeInt(v), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case float64:
		return starlark.Float(v), nil
	case map[string]any:
		return &object{name: name, m: v}, nil
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			ev, err := toValue(name, e)
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return starlark.NewList(elems), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return starlark.Bool(rv.Bool()), nil
	case reflect.String:
		return starlark.String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return starlark.Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, rv.Len())
		for i := range rv.Len() {
			ev, err := toValue(name, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return starlark.NewList(elems), nil
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return &object{name: name, m: m}, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return starlark.None, nil
		}
		return toValue(name, rv.Elem().Interface())
	case reflect.Struct:
		// Round-trip through JSON so field tags decide the names.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &object{name: name, m: m}, nil
	}
	return nil, fmt.Errorf("%s: unsupported type %T", name, v)
}

// fromValue converts a Starlark result back to plain Go values.
func fromValue(v starlark.Value) (any, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			if i >= math.MinInt && i <= math.MaxInt {
				return int(i), nil
			}
			return i, nil
		}
		return new(big.Int).Set(v.BigInt()), nil
	case starlark.Float:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("result %s is not a finite number", v)
		}
		return f, nil
	case starlark.String:
		return string(v), nil
	case *object:
		// Scope maps are live; results must not alias them.
		return clone(v.m), nil
	case *starlark.List:
		out := make([]any, v.Len())
		for i := range v.Len() {
			e, err := fromValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(v))
		for i, e := range v {
			ge, err := fromValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ge
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			val, err := fromValue(item[1])
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported result type %s", v.Type())
}

// clone deep-copies decoded JSON containers.
func clone(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = clone(e)
		}
		return out
	}
	return v
}
