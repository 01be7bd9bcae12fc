// Package args inspects task handler functions once at registration and calls them with arguments
// decoded from job variables.
package args

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/cschleiden/go-zeebe/internal/converter"
	"github.com/cschleiden/go-zeebe/job"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	jobType     = reflect.TypeOf((*job.Job)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Signature is the inspected shape of a handler
//
//	func([ctx context.Context,] [j *job.Job,] [input V]) ([R,] error)
//
// where V is a struct, a pointer to a struct, or a map with string keys.
type Signature struct {
	fn reflect.Value

	context bool
	job     bool

	input    reflect.Type
	mapInput bool

	result reflect.Type
}

func Inspect(handler any) (*Signature, error) {
	if handler == nil {
		return nil, errors.New("handler is nil")
	}

	fn := reflect.ValueOf(handler)
	fnT := fn.Type()
	if fnT.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function, got %v", fnT)
	}

	if fnT.IsVariadic() {
		return nil, errors.New("handler must not be variadic")
	}

	s := &Signature{fn: fn}

	i := 0
	if i < fnT.NumIn() && fnT.In(i) == contextType {
		s.context = true
		i++
	}

	if i < fnT.NumIn() && fnT.In(i) == jobType {
		s.job = true
		i++
	}

	if i < fnT.NumIn() {
		in := fnT.In(i)
		switch {
		case isStruct(in):
			s.input = in
		case in.Kind() == reflect.Map && in.Key().Kind() == reflect.String:
			s.input = in
			s.mapInput = true
		default:
			return nil, fmt.Errorf("handler input must be a struct or a map with string keys, got %v", in)
		}

		i++
	}

	if i < fnT.NumIn() {
		return nil, fmt.Errorf("handler parameters must be ([context.Context,] [*job.Job,] [input]), got %v", fnT)
	}

	switch fnT.NumOut() {
	case 1:
	case 2:
		s.result = fnT.Out(0)
	default:
		return nil, fmt.Errorf("handler must return error or (result, error), got %v", fnT)
	}

	if fnT.Out(fnT.NumOut()-1) != errorType {
		return nil, fmt.Errorf("handler must return error as last value, got %v", fnT)
	}

	return s, nil
}

// HasResult returns true if the handler returns a value besides its error.
func (s *Signature) HasResult() bool {
	return s.result != nil
}

// ObjectResult returns true if the handler result encodes as a JSON object.
func (s *Signature) ObjectResult() bool {
	if s.result == nil {
		return false
	}

	if isStruct(s.result) {
		return true
	}

	return s.result.Kind() == reflect.Map && s.result.Key().Kind() == reflect.String
}

// FetchVariables returns the variable names the handler reads: the JSON field names of a struct input, in
// field order. Handlers without input or with a map input read all variables, signaled by an empty list.
func (s *Signature) FetchVariables() []string {
	if s.input == nil || s.mapInput {
		return nil
	}

	t := s.input
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return fieldNames(t)
}

// Call invokes the handler. result is nil when the handler has no result.
func (s *Signature) Call(ctx context.Context, c converter.Converter, j *job.Job) (any, error) {
	args := make([]reflect.Value, 0, 3)

	if s.context {
		args = append(args, reflect.ValueOf(ctx))
	}

	if s.job {
		args = append(args, reflect.ValueOf(j))
	}

	if s.input != nil {
		arg := reflect.New(s.input)
		if err := converter.AssignValue(c, maps.Clone(map[string]any(j.Variables)), arg.Interface()); err != nil {
			return nil, fmt.Errorf("decoding variables into %v: %w", s.input, err)
		}

		args = append(args, arg.Elem())
	}

	out := s.fn.Call(args)

	var err error
	if e := out[len(out)-1].Interface(); e != nil {
		err = e.(error)
	}

	if s.result == nil {
		return nil, err
	}

	return out[0].Interface(), err
}

func isStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct || (t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct)
}

func fieldNames(t reflect.Type) []string {
	var names []string

	for i := range t.NumField() {
		f := t.Field(i)

		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name, _, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}

			if ft.Kind() == reflect.Struct {
				names = append(names, fieldNames(ft)...)
				continue
			}
		}

		if !f.IsExported() {
			continue
		}

		if name == "" {
			name = f.Name
		}

		names = append(names, name)
	}

	return names
}
