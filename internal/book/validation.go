package book

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("notblank", validateNotBlank)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when user input is rejected before any store
// mutation.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + ": " + d.Message
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Details: []FieldError{{Field: field, Message: message}}}
}

// ValidateStruct checks s against its validate tags.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		var message string
		switch fe.Tag() {
		case "required", "notblank":
			message = fmt.Sprintf("%s cannot be empty", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "gte", "lte":
			message = fmt.Sprintf("%s must be between 1 and 5", field)
		case "gt":
			message = fmt.Sprintf("%s must be positive", field)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, param)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}
		out.Details = append(out.Details, FieldError{Field: field, Message: message})
	}
	return out
}
