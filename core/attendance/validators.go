package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	statusTag  = "attendance_status"
	statusText = "status must be one of present, absent, late or excused"

	dateTag  = "datetime"
	dateText = "date must be formatted as YYYY-MM-DD"
)

// InitValidators registers the attendance validations & translations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, statusTag, statusText, AllStatuses...)
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText, true)
}
