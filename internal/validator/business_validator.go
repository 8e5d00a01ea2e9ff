package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
)

// registerRules adds the domain tags used by the request DTOs.
func (v *Validator) registerRules() {
	// Disability category must be one the registry knows
	v.validate.RegisterValidation("disability_category", func(fl validator.FieldLevel) bool {
		return accessibility.IsValid(models.DisabilityCategory(fl.Field().String()))
	})

	v.validate.RegisterValidation("feature_flag", func(fl validator.FieldLevel) bool {
		return models.FeatureFlag(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("gesture", func(fl validator.FieldLevel) bool {
		_, ok := services.ResolveGesture(models.Gesture(fl.Field().String()))
		return ok
	})

	v.validate.RegisterValidation("ui_action", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		for _, a := range services.UIActions {
			if a == name {
				return true
			}
		}
		return false
	})
}

// errorMessage returns user-friendly error messages
func errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "disability_category":
		return "must be a known disability category"
	case "feature_flag":
		return "must be a known accessibility feature"
	case "gesture":
		return "must be prev or next"
	case "ui_action":
		return "must be one of next, prev, submit, toggle, answer"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
