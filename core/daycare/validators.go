package daycare

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/creche/core"
)

var (
	waitlistCapTag  = "waitlistcap"
	waitlistCapText = "waitlist capacity cannot exceed the capacity"
)

// InitValidators registers the daycare struct validations & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(daycareStructValidation, Daycare{}, NewDaycare{})
	core.RegisterCustomTranslation(validate, translator, waitlistCapTag, waitlistCapText)
}

// daycareStructValidation does struct level validation on Daycare and NewDaycare structs.
func daycareStructValidation(sl validator.StructLevel) {
	switch d := sl.Current().Interface().(type) {
	case Daycare:
		validateWaitlist(d.Capacity, d.WaitlistCapacity, sl)
	case NewDaycare:
		validateWaitlist(d.Capacity, d.WaitlistCapacity, sl)
	}
}

func validateWaitlist(capacity, waitlist int, sl validator.StructLevel) {
	if capacity > 0 && waitlist > capacity {
		sl.ReportError(waitlist, "waitlist_capacity", "WaitlistCapacity", waitlistCapTag, "")
	}
}
