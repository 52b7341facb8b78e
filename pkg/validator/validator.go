// pkg/validator/validator.go
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/util"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Validator validates request structs by their `validate` tags.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the money and currency rules registered.
func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerCustomValidations()
	return v
}

// Validate checks i and wraps any failure in util.ErrInvalidInput.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", e.Field(), e.Tag()))
		}
		return fmt.Errorf("validation failed: %s: %w", strings.Join(msgs, ", "), util.ErrInvalidInput)
	}
	return fmt.Errorf("validation failed: %v: %w", err, util.ErrInvalidInput)
}

func (v *Validator) registerCustomValidations() {
	// Decimals are validated through their canonical string form.
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			return val.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	_ = v.validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyCode.MatchString(fl.Field().String())
	})
}
