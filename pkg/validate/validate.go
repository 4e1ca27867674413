// Package validate registers the request validation tags shared by the HTTP
// handlers on gin's binding engine.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/phone"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register installs custom tags on v:
//
//	hhmm   "09:30" style clock times
//	phone  numbers valid in the clinic's region or with an explicit prefix
//
// Field names in errors use the json tag.
func Register(v *validator.Validate, phones *phone.Normalizer) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	if err := v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("registering hhmm: %w", err)
	}

	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || phones.Valid(s)
	}); err != nil {
		return fmt.Errorf("registering phone: %w", err)
	}

	return nil
}

// RegisterGin applies Register to gin's default validator.
func RegisterGin(phones *phone.Normalizer) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return Register(v, phones)
}

// IsClock reports whether s is a 24h HH:MM time.
func IsClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h < 24 && m < 60
}

// Messages flattens validator errors into "field: rule" strings. Other errors
// are returned as a single message.
func Messages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "oneof":
			out = append(out, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "min", "gte":
			out = append(out, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			out = append(out, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "hhmm":
			out = append(out, field+" must use the HH:MM format")
		default:
			out = append(out, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return out
}
