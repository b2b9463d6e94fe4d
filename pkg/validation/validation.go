package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	dErrors "seqrpay/pkg/domain-errors"
)

var (
	defaultValidator = newValidator()

	plainDecimal = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		return IsPositiveDecimal(fl.Field().String())
	})
	_ = v.RegisterValidation("currency_code", func(fl validator.FieldLevel) bool {
		return currencyCode.MatchString(fl.Field().String())
	})
	return v
}

// IsPositiveDecimal accepts plain decimal literals greater than zero.
// Signs, exponents and separators are rejected.
func IsPositiveDecimal(s string) bool {
	if !plainDecimal.MatchString(s) {
		return false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// Validate validates a struct using the default validator and returns a domain error
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage converts a validator error into a human-readable message
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	field := fe.Field()
	if field == "" {
		field = fe.StructField()
	}

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid url", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "positive_decimal":
		return fmt.Sprintf("%s must be a positive decimal", field)
	case "currency_code":
		return fmt.Sprintf("%s must be a 3-letter upper-case currency code", field)
	default:
		if field == "" {
			return "invalid request body"
		}
		return fmt.Sprintf("%s is invalid", field)
	}
}
