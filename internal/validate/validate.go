// Package validate checks request payloads against their struct tags and
// reports violations as field-level messages.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"shopfront/internal/model"
	"shopfront/internal/slug"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report JSON field names rather than Go field names.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slug.Valid(fl.Field().String())
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})

		instance = v
	})
	return instance
}

// Struct validates s and returns a *model.ValidationError describing every
// violated constraint, or nil.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	verr := &model.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe), message(fe))
	}
	return verr
}

// fieldPath strips the root struct name from the namespace, so
// "CheckoutRequest.items[0].product_id" becomes "items[0].product_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
