package converter

import (
	"errors"
	"fmt"
	"reflect"
)

type Converter interface {
	To(v interface{}) ([]byte, error)
	From(data []byte, v interface{}) error
}

var DefaultConverter Converter = JSON{}

// ToMap converts a struct or map value into a JSON object map.
func ToMap(c Converter, v interface{}) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}

	if m, ok := v.(map[string]any); ok {
		return m, nil
	}

	data, err := c.To(v)
	if err != nil {
		return nil, err
	}

	m := map[string]any{}
	if err := c.From(data, &m); err != nil {
		return nil, fmt.Errorf("result of type %T is not an object: %w", v, err)
	}

	return m, nil
}

// AssignValue assigns v to the value vptr points to, converting through the converter when the
// types differ.
func AssignValue(c Converter, v interface{}, vptr interface{}) error {
	vvptr := reflect.ValueOf(vptr)

	if vvptr.Kind() != reflect.Ptr {
		return errors.New("vptr needs to be a pointer")
	}

	if v == nil {
		vvptr.Elem().Set(reflect.Zero(vvptr.Elem().Type()))
		return nil
	}

	vv := reflect.ValueOf(v)
	if vv.Type().AssignableTo(vvptr.Elem().Type()) {
		vvptr.Elem().Set(vv)
		return nil
	}

	data, err := c.To(v)
	if err != nil {
		return err
	}

	return c.From(data, vptr)
}
