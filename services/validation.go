package services

import (
	"errors"
	"fmt"
	"strings"

	"strik-trivia/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateInput runs struct-tag validation and turns failures into a
// VALIDATION_FAILED APIError naming every offending field.
func validateInput(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError(err.Error())
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return models.NewValidationError(strings.Join(parts, "; "))
}
