package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string // struct namespace, e.g. "Product.ProductName"
	Field       string // json name, e.g. "product_name"
	Tag         string
	Value       string
}

var validate = validator.New()

// ErrValidation is wrapped by every error returned from Check.
var ErrValidation = errors.New("validation failed")

// looseEmail accepts anything shaped like a@b.c, the same check the
// dashboard forms apply before calling the auth service.
var looseEmail = regexp.MustCompile(`\S+@\S+\.\S+`)

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		switch v := fl.Field().Interface().(type) {
		case uuid.UUID:
			return v != uuid.Nil
		case string:
			id, err := uuid.Parse(v)
			return err == nil && id != uuid.Nil
		}
		return false
	})

	validate.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		return looseEmail.MatchString(fl.Field().String())
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Field = err.Field()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errs = append(errs, &element)
		}
	}
	return errs
}

// Check validates data and returns the first failure as an error.
func Check(data interface{}) error {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return fmt.Errorf("%w: field '%s' failed on tag '%s'", ErrValidation, first.Field, first.Tag)
}
