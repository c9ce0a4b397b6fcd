package binder

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// notBlankValidator rejects strings that are empty or only whitespace. Unlike
// `required`, it also catches a search query of "   " that mold didn't trim.
func notBlankValidator(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
