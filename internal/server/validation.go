package server

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var timeOfDayRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// RegisterValidations installs custom binding validators on gin's engine.
// "timeofday" accepts wall-clock strings like "09:30".
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
			return timeOfDayRe.MatchString(fl.Field().String())
		})
	}
}
