package schedule

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	hhmmTag   = "hhmm"
	hhmmText  = "time must be formatted as HH:MM (24h)"
	hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	weekdayTag  = "weekday"
	weekdayText = "day of week must be between 0 (Sunday) and 6 (Saturday)"

	endBeforeStartTag  = "schedule_end_before_start"
	endBeforeStartText = "end time must be after start time"
)

// InitValidators registers the Schedule validations & translations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(hhmmTag, hhmmValidation)
	core.RegisterCustomTranslation(validate, translator, hhmmTag, hhmmText)

	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	validate.RegisterStructValidation(scheduleStructValidation, NewSchedule{})
	core.RegisterCustomTranslation(validate, translator, endBeforeStartTag, endBeforeStartText)
}

func hhmmValidation(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}

func weekdayValidation(fl validator.FieldLevel) bool {
	day := fl.Field().Int()
	return day >= 0 && day <= 6
}

func scheduleStructValidation(sl validator.StructLevel) {
	if ns, ok := sl.Current().Interface().(NewSchedule); ok {
		if hhmmRegex.MatchString(ns.StartTime) && hhmmRegex.MatchString(ns.EndTime) && ns.EndTime <= ns.StartTime {
			sl.ReportError(ns.EndTime, "end_time", "EndTime", endBeforeStartTag, "")
		}
	}
}
