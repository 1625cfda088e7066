package botjson

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// paramField is a by-name parameter of a registered command.
type paramField struct {
	name     string
	index    []int
	optional bool
}

// paramFields returns the parameters of the command struct rt in declaration
// order.  Fields of embedded structs are promoted.
func paramFields(rt reflect.Type) []paramField {
	var fields []paramField
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			for _, sub := range paramFields(f.Type) {
				sub.index = append([]int{i}, sub.index...)
				fields = append(fields, sub)
			}
			continue
		}
		if f.PkgPath != "" {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		fields = append(fields, paramField{
			name:     name,
			index:    []int{i},
			optional: f.Type.Kind() == reflect.Ptr,
		})
	}
	return fields
}

func methodType(method string) (reflect.Type, error) {
	registerLock.RLock()
	info, ok := methodToInfo[method]
	registerLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredMethod, method)
	}
	return info.rt, nil
}

// MethodUsageText returns a one-line usage of the passed method, optional
// parameters are shown in brackets.
func MethodUsageText(method string) (string, error) {
	rt, err := methodType(method)
	if err != nil {
		return "", err
	}
	parts := []string{method}
	for _, f := range paramFields(rt) {
		if f.optional {
			parts = append(parts, "["+f.name+"]")
		} else {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, " "), nil
}

// NewCmd returns the command of the passed method with the by-name string
// parameters converted to the types of their fields.  Parameters missing
// from params keep their zero value.
func NewCmd(method string, params map[string]string) (interface{}, error) {
	rt, err := methodType(method)
	if err != nil {
		return nil, err
	}

	rvp := reflect.New(rt)
	known := make(map[string]struct{}, len(params))
	for _, f := range paramFields(rt) {
		known[f.name] = struct{}{}
		value, ok := params[f.name]
		if !ok {
			continue
		}
		if err := assignParam(rvp.Elem().FieldByIndex(f.index), value); err != nil {
			return nil, fmt.Errorf("%w: parameter %q of %q: %v", ErrInvalidParams, f.name, method, err)
		}
	}
	for name := range params {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("%w: unknown parameter %q of %q", ErrInvalidParams, name, method)
		}
	}
	return rvp.Interface(), nil
}

func assignParam(dest reflect.Value, value string) error {
	if dest.Kind() == reflect.Ptr {
		v := reflect.New(dest.Type().Elem())
		if err := assignParam(v.Elem(), value); err != nil {
			return err
		}
		dest.Set(v)
		return nil
	}

	switch dest.Kind() {
	case reflect.String:
		dest.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		dest.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, dest.Type().Bits())
		if err != nil {
			return err
		}
		dest.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, dest.Type().Bits())
		if err != nil {
			return err
		}
		dest.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, dest.Type().Bits())
		if err != nil {
			return err
		}
		dest.SetFloat(f)
	default:
		return fmt.Errorf("%w: unsupported field type %v", ErrInvalidType, dest.Type())
	}
	return nil
}
