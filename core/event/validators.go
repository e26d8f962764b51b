package event

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	audienceTag  = "audience"
	audienceText = "invalid audience"

	endBeforeStartTag  = "event_end_before_start"
	endBeforeStartText = "end must not be before start"
)

// InitValidators registers the Event validations & translations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, audienceTag, audienceText, AllAudiences...)

	validate.RegisterStructValidation(eventStructValidation, NewEvent{})
	core.RegisterCustomTranslation(validate, translator, endBeforeStartTag, endBeforeStartText)
}

func eventStructValidation(sl validator.StructLevel) {
	if ne, ok := sl.Current().Interface().(NewEvent); ok {
		if ne.EndAt != nil && !ne.StartAt.IsZero() && ne.EndAt.Before(ne.StartAt) {
			sl.ReportError(ne.EndAt, "end_at", "EndAt", endBeforeStartTag, "")
		}
	}
}
