// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"voicecommerce_backend/platform/phone"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the domain validations registered.
func New() *Validator {
	v := validator.New()
	registerDomainValidations(v)
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterGinValidations installs the domain validation tags on gin's binding
// validator so handlers can use them in binding tags.
func RegisterGinValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerDomainValidations(v)
	}
}

func registerDomainValidations(v *validator.Validate) {
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phone.Valid(fl.Field().String())
	})
}
