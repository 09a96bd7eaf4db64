package diagnostic

import (
	"reflect"
	"strconv"

	"github.com/drblury/svcweaver/jsonutil"
)

// Value renders a call argument by its runtime kind: numbers as-is, booleans
// as true/false, strings single-quoted, structured values as their type
// followed by a JSON dump, and anything else as its parenthesised type name.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return "(nil)"
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case error:
		return "(error) " + quote(x.Error())
	case jsonutil.RawMessage:
		return "(json) " + string(x)
	case []byte:
		return "(bytes) " + quote(string(x))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.String:
		return quote(rv.String())
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return structured(rv.Type().String(), v)
	case reflect.Pointer:
		if rv.IsNil() {
			return "(" + rv.Type().String() + ") nil"
		}
		if rv.Elem().Kind() == reflect.Struct {
			return structured(rv.Type().String(), v)
		}
	}
	return "(" + rv.Type().String() + ")"
}

func structured(typeName string, v any) string {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return "(" + typeName + ")"
	}
	return "(" + typeName + ") " + string(data)
}

func quote(s string) string {
	return "'" + s + "'"
}
