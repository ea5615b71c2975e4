package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TagUUIDSet rejects uuid.Nil and anything that is not a uuid.UUID.
const TagUUIDSet = "uuid_set"

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := validate.RegisterValidation(TagUUIDSet, uuidSet); err != nil {
		panic(err)
	}
}

func uuidSet(fl validator.FieldLevel) bool {
	id, ok := fl.Field().Interface().(uuid.UUID)
	return ok && id != uuid.Nil
}

// GetValidator returns the validator instance
func GetValidator() *validator.Validate {
	return validate
}

// ValidateStruct validates a struct
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateVar validates a single value against a tag expression.
func ValidateVar(v interface{}, tag string) error {
	return validate.Var(v, tag)
}

// ValidationError is one failed rule, keyed by the JSON field name.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FormatValidationError flattens validator errors for API responses.
// Errors of any other type yield an empty slice.
func FormatValidationError(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   fieldError.Field(),
				Tag:     fieldError.Tag(),
				Message: getErrorMessage(fieldError),
			})
		}
	}

	return errors
}

func getErrorMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()
	kind := fieldError.Kind()
	isCollection := kind == reflect.Slice || kind == reflect.Map

	switch fieldError.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case TagUUIDSet:
		return fmt.Sprintf("%s must be a non-nil id", field)
	case "min":
		if isCollection {
			return fmt.Sprintf("%s must contain at least %s items", field, fieldError.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters long", field, fieldError.Param())
	case "max":
		if isCollection {
			return fmt.Sprintf("%s must contain at most %s items", field, fieldError.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters long", field, fieldError.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fieldError.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fieldError.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
