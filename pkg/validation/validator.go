package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("finite", finite); err != nil {
		panic(err)
	}
}

// finite rejects NaN and infinite floats.
func finite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Struct validates v against its `validate` struct tags and returns the first
// failure in a readable form.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return formatValidationError(validate.Struct(v))
}

func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	e := validationErrs[0]
	field := e.Namespace()
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "min", "gte":
		return fmt.Errorf("%s: must be at least %s (got %v)", field, param, e.Value())
	case "max", "lte":
		return fmt.Errorf("%s: must not exceed %s (got %v)", field, param, e.Value())
	case "gt":
		return fmt.Errorf("%s: must be greater than %s (got %v)", field, param, e.Value())
	case "finite":
		return fmt.Errorf("%s: must be a finite number (got %v)", field, e.Value())
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s] (got %v)", field, param, e.Value())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
