package child

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/creche/core"
)

var (
	notFutureTag  = "notfuture"
	notFutureText = "date cannot be in the future"
)

// InitValidators registers the child validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(notFutureTag, notFutureValidation)
	core.RegisterCustomTranslation(validate, translator, notFutureTag, notFutureText)
}

// notFutureValidation rejects dates after today.
func notFutureValidation(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.After(time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour))
}
