// Package validation plugs go-playground/validator into echo and turns the
// first failing field into a readable 400.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/slms/leave-service/internal/apperr"
)

// messages by tag; %s is the field name, %[2]s the tag parameter.
var messages = map[string]string{
	"required": `"%s" is required`,
	"email":    `"%s" must be a valid email`,
	"min":      `"%s" length must be at least %[2]s characters long`,
	"max":      `"%s" length must be less than or equal to %[2]s characters long`,
	"oneof":    `"%s" must be one of [%[2]s]`,
	"numeric":  `"%s" must be a number`,
	"gt":       `"%s" must be greater than %[2]s`,
	"datetime": `"%s" must be a valid date`,
}

// Validator implements echo.Validator.
type Validator struct{ v *validator.Validate }

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return &Validator{v: v}
}

// fieldName reports the json name, then the form name, then the Go name.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.Split(f.Tag.Get(key), ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Validate returns an *apperr.Error for the first invalid field.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation(apperr.MsgInvalidRequestBody)
	}
	return apperr.Validation(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	tpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf(`"%s" is invalid`, fe.Field())
	}
	if !strings.Contains(tpl, "%[2]s") {
		return fmt.Sprintf(tpl, fe.Field())
	}
	return fmt.Sprintf(tpl, fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
}
