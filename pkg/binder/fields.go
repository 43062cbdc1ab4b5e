package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// bindTagged fills the exported fields of the struct pointed to by v whose
// tag names a value known to lookup.
func bindTagged(v any, tag string, lookup func(name string) []string, sentinel error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", sentinel)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", sentinel)
	}

	rt := rv.Type()
	for i := range rv.NumField() {
		field := rv.Field(i)
		sf := rt.Field(i)
		if !field.CanSet() {
			continue
		}
		name, skip := parseFieldTag(sf, tag)
		if skip {
			continue
		}
		values := lookup(name)
		if len(values) == 0 {
			continue
		}
		if err := setFieldValue(field, values); err != nil {
			return fmt.Errorf("%w: field %s: %v", sentinel, sf.Name, err)
		}
	}
	return nil
}

// parseFieldTag returns the parameter name of f and whether to skip it.
// Untagged fields are skipped.
func parseFieldTag(f reflect.StructField, tag string) (string, bool) {
	raw, ok := f.Tag.Lookup(tag)
	if !ok || raw == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(raw, ",")
	if name == "" {
		name = f.Name
	}
	return name, false
}

func setFieldValue(field reflect.Value, values []string) error {
	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := setFieldValue(ptr.Elem(), values); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	if field.Kind() == reflect.Slice {
		var items []string
		for _, v := range values {
			items = append(items, strings.Split(v, ",")...)
		}
		slice := reflect.MakeSlice(field.Type(), 0, len(items))
		for _, item := range items {
			elem := reflect.New(field.Type().Elem()).Elem()
			if err := setScalar(elem, strings.TrimSpace(item)); err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
		field.Set(slice)
		return nil
	}

	return setScalar(field, values[0])
}

func setScalar(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
