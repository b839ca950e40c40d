package forms

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError attaches a message to one form field.
type FieldError struct {
	Field   string
	Message string
}

// Result is the outcome of validating a form: either a usable Value or a list of field errors.
type Result[T any] struct {
	Value  T
	Errors []FieldError
}

// Valid reports whether validation produced no errors.
func (r Result[T]) Valid() bool {
	return len(r.Errors) == 0
}

// ErrorMap indexes the first message of every failing field.
func (r Result[T]) ErrorMap() map[string]string {
	return NewView(nil, r.Errors).Errors
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func invalid[T any](errs ...FieldError) Result[T] {
	return Result[T]{Errors: errs}
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their form names so errors line up with template inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// check runs struct tag validation and converts failures into field errors.
func check(s interface{}) []FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "__all__", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return "Ensure this value has at most " + fe.Param() + " characters."
	case "min":
		return "Ensure this value has at least " + fe.Param() + " characters."
	case "email":
		return "Enter a valid email address."
	case "numeric":
		return "Select a valid choice."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}

// View carries submitted values and field errors back to a template.
type View struct {
	Values map[string]string
	Errors map[string]string
}

// NewView builds a View from submitted values and a validation outcome's errors.
func NewView(values map[string]string, errs []FieldError) View {
	v := View{Values: values, Errors: map[string]string{}}
	if v.Values == nil {
		v.Values = map[string]string{}
	}
	for _, fe := range errs {
		if _, ok := v.Errors[fe.Field]; !ok {
			v.Errors[fe.Field] = fe.Message
		}
	}
	return v
}

func (v View) Value(field string) string { return v.Values[field] }

func (v View) Error(field string) string { return v.Errors[field] }

func (v View) HasErrors() bool { return len(v.Errors) > 0 }
