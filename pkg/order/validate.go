package order

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists the checkout fields that failed validation, keyed by
// their JSON path (for example "customer_info.email").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	zipRe    = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	phoneRe  = regexp.MustCompile(`^\+?[0-9 ()\-.]{7,20}$`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "postal_code", zipRe)
	mustRegister(v, "phone", phoneRe)
	mustRegister(v, "card_expiry", expiryRe)
	return v
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// Validate checks a checkout request and returns a *ValidationError
// describing every invalid field.
func Validate(req CheckoutRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating checkout: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe.Namespace())] = message(fe)
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "postal_code":
		return "must be a valid ZIP code"
	case "phone":
		return "must be a valid phone number"
	case "credit_card":
		return "must be a valid card number"
	case "card_expiry":
		return "must be in MM/YY format"
	case "numeric":
		return "must contain only digits"
	case "min", "max":
		return "has an invalid length"
	case "eq":
		return "must be " + fe.Param()
	}
	return "is invalid"
}
