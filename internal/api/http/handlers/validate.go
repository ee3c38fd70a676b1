package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

var validate = validator.New()

// validateStruct runs struct tag validation and converts failures into a
// VALIDATION_FAILED error with per-field details.
func validateStruct(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(invalid))
	for _, fieldErr := range invalid {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return apperrors.NewValidationError("validation failed", details)
}
