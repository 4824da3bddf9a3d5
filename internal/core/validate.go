package core

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate is the shared struct validator. Field errors are reported under
// their JSON names.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required": "this field is required",
	"oneof":    "must be one of: %s",
	"max":      "must be at most %s characters",
	"min":      "must be at least %s characters",
}

// ValidateStruct validates s and converts failures into a *ValidationError.
func ValidateStruct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.Contains(msg, "%s") {
			msg = strings.Replace(msg, "%s", fe.Param(), 1)
		}
		fields = append(fields, FieldError{Field: fe.Field(), Error: msg})
	}
	return &ValidationError{Fields: fields}
}

// CleanString trims surrounding whitespace.
func CleanString(s string) string {
	return strings.TrimSpace(s)
}

// Clean trims every field of a manually entered student.
func (n *NewStudent) Clean() {
	n.Name = CleanString(n.Name)
	n.Class = CleanString(n.Class)
	n.PhoneNumber = CleanString(n.PhoneNumber)
	n.SchoolName = CleanString(n.SchoolName)
	n.State = CleanString(n.State)
	n.District = CleanString(n.District)
}
