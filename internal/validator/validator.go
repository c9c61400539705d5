package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct tag validation together with the business rule
// validator so services only carry one dependency.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all custom rules registered
func New() *Validator {
	business := NewBusinessValidator()

	return &Validator{
		validate: business.validate,
		business: business,
	}
}

// Validate runs struct tag validation and returns ValidationErrors on failure
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator returns the business rule validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
