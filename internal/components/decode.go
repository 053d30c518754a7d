// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package components

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/units"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Decode populates a part from declared properties. Fields are bound through
// `circuit:"name[,required][,length][,positive]"` tags; float fields are
// electrical values unless tagged as lengths, and positive fields reject zero
// and negative values. Properties without a matching field are left for the
// builder.
func Decode(tag, name string, props map[string]cty.Value, part Part) error {
	structVal := reflect.ValueOf(part)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("part must be a non-nil pointer")
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		fieldDef := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldDef.IsExported() || !fieldVal.CanSet() {
			continue
		}

		opts := strings.Split(fieldDef.Tag.Get("circuit"), ",")
		propName := opts[0]
		if propName == "" || propName == "-" {
			continue
		}

		val, provided := props[propName]
		if !provided || val.IsNull() {
			if hasOption(opts, "required") {
				return circuiterr.MissingProperty(tag, name, propName)
			}
			continue
		}

		if err := decodeField(val, fieldVal, hasOption(opts, "length")); err != nil {
			return circuiterr.InvalidProperty(tag, name, propName, err)
		}
		if hasOption(opts, "positive") && fieldVal.Kind() == reflect.Float64 && !(fieldVal.Float() > 0) {
			return circuiterr.InvalidProperty(tag, name, propName,
				fmt.Errorf("must be greater than zero, got %g", fieldVal.Float()))
		}
	}
	return nil
}

func decodeField(val cty.Value, field reflect.Value, length bool) error {
	if !val.IsWhollyKnown() {
		return fmt.Errorf("value is not known")
	}
	switch field.Kind() {
	case reflect.Float64:
		parse := units.Value
		if length {
			parse = units.Length
		}
		f, err := parse(val)
		if err != nil {
			return err
		}
		field.SetFloat(f)
		return nil
	case reflect.String:
		return decodeAs(val, cty.String, field)
	case reflect.Int:
		return decodeAs(val, cty.Number, field)
	case reflect.Bool:
		return decodeAs(val, cty.Bool, field)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
}

func decodeAs(val cty.Value, ty cty.Type, field reflect.Value) error {
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(converted, field.Addr().Interface())
}

func hasOption(opts []string, want string) bool {
	for _, o := range opts[1:] {
		if o == want {
			return true
		}
	}
	return false
}
