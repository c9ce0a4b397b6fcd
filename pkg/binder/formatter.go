package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/iancoleman/strcase"
	"github.com/segmentio/encoding/json"
)

const (
	gtefield = "gtefield"
	mx       = "max"
	mn       = "min"
	notblank = "notblank"
	required = "required"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func isNumeric(k reflect.Kind) bool {
	switch k { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// formatBound renders min and max failures. Numbers are compared by value,
// strings by length in characters.
func formatBound(field, comparison, param string, kind reflect.Kind) string {
	if isNumeric(kind) {
		return fmt.Sprintf("%q must be %s %s", field, comparison, param)
	}
	unit := "characters"
	if param == "1" {
		unit = "character"
	}
	return fmt.Sprintf("%q length must be %s %s %s", field, comparison, param, unit)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case gtefield:
		// Param is the Go field name; report the JSON one.
		return fmt.Sprintf("%q must be greater than or equal to %s", field, strcase.ToSnake(err.Param()))
	case mx:
		return formatBound(field, "less than or equal to", err.Param(), err.Kind())
	case mn:
		return formatBound(field, "greater than or equal to", err.Param(), err.Kind())
	case notblank:
		return fmt.Sprintf("%q can't be blank", field)
	case required:
		return fmt.Sprintf("%q is required", field)
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}
