// Package serialize turns typed resource declarations into CloudFormation property maps.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// PropertyMapper is implemented by resources whose properties are not a plain
// struct, such as custom resources with free-form fields.
type PropertyMapper interface {
	PropertyMap() map[string]any
}

// Resource serializes a Go struct to CloudFormation resource properties.
// It handles:
// - CloudFormation field names (VpcId, CidrBlock), json tags override
// - Omitting nil/zero values
// - Nested structs, with embedded structs promoted into the parent
// - Intrinsics and AttrRef values (via their MarshalJSON)
//
// Values that are not structs serialize to nil.
func Resource(v any) (map[string]any, error) {
	if mapper, ok := v.(PropertyMapper); ok {
		return mapProperties(mapper.PropertyMap())
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Ptr && !val.IsNil() {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	props := make(map[string]any)
	if err := collect(val, props); err != nil {
		return nil, err
	}
	return props, nil
}

// collect writes the properties of struct value val into props.
func collect(val reflect.Value, props map[string]any) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name, tagged := propertyName(field)
		if name == "-" {
			continue
		}

		fieldVal := val.Field(i)
		if omitted(fieldVal) {
			continue
		}

		// Untagged embedded structs contribute their fields directly.
		if field.Anonymous && !tagged {
			inner := reflect.Indirect(fieldVal)
			if inner.Kind() == reflect.Struct {
				if err := collect(inner, props); err != nil {
					return err
				}
				continue
			}
		}

		out, err := value(fieldVal)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}
		if out != nil {
			props[name] = out
		}
	}
	return nil
}

func mapProperties(fields map[string]any) (map[string]any, error) {
	props := make(map[string]any, len(fields))
	for key, raw := range fields {
		if raw == nil {
			continue
		}
		out, err := value(reflect.ValueOf(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if out != nil {
			props[key] = out
		}
	}
	return props, nil
}

// propertyName returns the property name for a struct field and whether it
// came from a json tag.
func propertyName(field reflect.StructField) (string, bool) {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name, false
	}
	return name, true
}

// omitted reports whether a field should be left out of the property map.
// A non-nil pointer is always kept, so an explicit false survives.
func omitted(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr:
		return v.IsNil()
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		if v.Elem().Kind() == reflect.Struct {
			return omitted(v.Elem())
		}
		return false
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		// Only structs that say so; an empty nested struct still serializes.
		if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return zeroer.IsZero()
		}
		return false
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.IsZero()
	default:
		return false
	}
}

// value converts v to a JSON-compatible value.
func value(v reflect.Value) (any, error) {
	// Unwrap pointers and interfaces.
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	if marshaler, ok := v.Interface().(json.Marshaler); ok {
		return viaJSON(marshaler)
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface())

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		items := make([]any, v.Len())
		for i := range items {
			item, err := value(v.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = item
		}
		return items, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		// CloudFormation objects only have string keys.
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s is not a string", v.Type().Key())
		}
		entries := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			entry, err := value(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			entries[iter.Key().String()] = entry
		}
		return entries, nil

	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		return viaJSON(v.Interface())
	}
}

// viaJSON round-trips v through encoding/json into plain maps and slices.
func viaJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LogicalID builds a CloudFormation logical ID from free-form parts.
// Characters outside [A-Za-z0-9] are dropped and the letter after each dropped
// run is upper-cased, e.g. ("ConnToGHEFor", "my-org") -> "ConnToGHEForMyOrg".
func LogicalID(parts ...string) string {
	var result strings.Builder
	for _, part := range parts {
		capitalizeNext := true
		for _, r := range part {
			if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
				capitalizeNext = true
				continue
			}
			if capitalizeNext {
				result.WriteRune(unicode.ToUpper(r))
				capitalizeNext = false
			} else {
				result.WriteRune(r)
			}
		}
	}
	return result.String()
}
