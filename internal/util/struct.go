package util

import (
	"reflect"

	"github.com/pkg/errors"
)

// IsStructInitialized returns an error naming the first nil or zero field of the struct s
// points to. Fields tagged `wire:"-"` are skipped.
func IsStructInitialized(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return errors.New("struct pointer is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.Errorf("%T is not a struct", s)
	}

	t := v.Type()
	for i := range v.NumField() {
		field := t.Field(i)
		if field.Tag.Get("wire") == "-" || !field.IsExported() {
			continue
		}

		if v.Field(i).IsZero() {
			return errors.Errorf("field %s of %s is not initialized", field.Name, t.Name())
		}
	}

	return nil
}
