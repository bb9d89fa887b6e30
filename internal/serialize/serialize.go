// Package serialize turns typed resource declarations into CloudFormation
// property maps.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Resource serializes a resource struct to its CloudFormation properties.
//
// Field names come from the json tag (PascalCase in every resource package).
// Nil interfaces, nil pointers, empty slices and empty strings are omitted.
// An `any` field holding false or 0 is kept: an explicit MultiAZ: false must
// reach the template. Values implementing json.Marshaler (intrinsics,
// AttrRef, secret references) are rendered through their own encoding.
func Resource(v any) (map[string]any, error) {
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("serialize: expected struct, got %s", val.Kind())
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name := fieldName(field)
		if name == "-" {
			continue
		}

		fieldVal := val.Field(i)
		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// Value serializes an arbitrary declaration value (an output value, a tag
// list) the same way resource fields are serialized.
func Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return serializeValue(reflect.ValueOf(v))
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		// Pointer receivers may implement json.Marshaler, so check before unwrapping.
		if v.Kind() == reflect.Ptr {
			if out, ok, err := marshalerValue(v); ok {
				return out, err
			}
		}
		return serializeValue(v.Elem())
	}

	if out, ok, err := marshalerValue(v); ok {
		return out, err
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface())

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[fmt.Sprint(iter.Key().Interface())] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(v.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		return roundTrip(v.Interface())
	}
}

func marshalerValue(v reflect.Value) (any, bool, error) {
	if !v.CanInterface() {
		return nil, false, nil
	}
	if _, ok := v.Interface().(json.Marshaler); !ok {
		return nil, false, nil
	}
	out, err := roundTrip(v.Interface())
	return out, true, err
}

// roundTrip encodes v and decodes it back into generic JSON values.
func roundTrip(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
