package handler

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/model"
)

var phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// RequestValidator plugs validator/v10 into echo's c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator registers the custom "phone" and "doctype" tags.
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		switch strings.ToUpper(strings.TrimSpace(fl.Field().String())) {
		case model.DocCitizenID, model.DocForeignerID, model.DocMinorID, model.DocTaxID, model.DocPassport:
			return true
		}
		return false
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

var _ echo.Validator = (*RequestValidator)(nil)

// bindAndValidate binds the body into dst and runs struct validation when a
// validator is installed.  The returned message is safe to send back.
func bindAndValidate(c echo.Context, dst interface{}) (string, bool) {
	if err := c.Bind(dst); err != nil {
		return "invalid request body", false
	}
	if c.Echo().Validator == nil {
		return "", true
	}
	if err := c.Validate(dst); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return "invalid field: " + verrs[0].Field(), false
		}
		return "invalid request body", false
	}
	return "", true
}
