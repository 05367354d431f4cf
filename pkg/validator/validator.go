package validator

import (
	"errors"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

var dayTokens = map[string]struct{}{
	"MONDAY": {}, "TUESDAY": {}, "WEDNESDAY": {}, "THURSDAY": {},
	"FRIDAY": {}, "SATURDAY": {}, "SUNDAY": {},
}

// Register installs the custom binding validations on gin's validator engine.
// "dayofweek" accepts the seven canonical upper-case day tokens; "clock"
// accepts 24-hour HH:MM wall-clock strings.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	if err := v.RegisterValidation("dayofweek", validDayOfWeek); err != nil {
		return err
	}
	return v.RegisterValidation("clock", validClock)
}

func validDayOfWeek(fl validator.FieldLevel) bool {
	_, ok := dayTokens[fl.Field().String()]
	return ok
}

func validClock(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}
