package models

import (
	"github.com/go-playground/validator/v10"
)

// Validate - общий валидатор тегов `validate`
var Validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct оборачивает ошибки валидатора в ErrValidation
func ValidateStruct(v any) error {
	if err := Validate.Struct(v); err != nil {
		return Validationf("%v", err)
	}
	return nil
}
