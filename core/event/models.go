package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Audiences
const (
	AudienceAll     = "all"
	AudienceFaculty = "faculty"
	AudienceStudent = "student"
)

var AllAudiences = []string{AudienceAll, AudienceFaculty, AudienceStudent}

// VisibleAudiences returns the audiences a User with the given role may see; nil means all of them.
func VisibleAudiences(role string) []string {
	switch role {
	case user.RoleAdmin:
		return nil
	case user.RoleFaculty:
		return []string{AudienceAll, AudienceFaculty}
	default:
		return []string{AudienceAll, AudienceStudent}
	}
}

type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	Audience    string     `json:"audience"`
	CreatedBy   string     `json:"created_by"` // empty once the creator is deleted
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// VisibleTo reports whether the User with the given role may see the Event.
func (ev Event) VisibleTo(role string) bool {
	auds := VisibleAudiences(role)
	if auds == nil {
		return true
	}
	for _, aud := range auds {
		if ev.Audience == aud {
			return true
		}
	}
	return false
}

type NewEvent struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	Location    string     `json:"location" validate:"max=200"`
	StartAt     time.Time  `json:"start_at" validate:"required"`
	EndAt       *time.Time `json:"end_at"`
	Audience    string     `json:"audience" validate:"omitempty,audience"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	ne.Audience = core.CleanString(ne.Audience, true /* lower */)
	if ne.Audience == "" {
		ne.Audience = AudienceAll
	}
	return validate.Struct(ne)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
// ClearEndAt removes the end date.
type UpdateEvent struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description"`
	Location    *string    `json:"location" validate:"omitempty,max=200"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	ClearEndAt  bool       `json:"clear_end_at"`
	Audience    *string    `json:"audience" validate:"omitempty,audience"`
}

// Validate checks ue against the Event it modifies.
func (ue *UpdateEvent) Validate(ev Event, validate *validator.Validate) error {
	if ue.Audience != nil {
		aud := core.CleanString(*ue.Audience, true /* lower */)
		ue.Audience = &aud
	}
	if err := validate.Struct(ue); err != nil {
		return err
	}

	start, end := ev.StartAt, ev.EndAt
	if ue.StartAt != nil {
		start = *ue.StartAt
	}
	if ue.EndAt != nil {
		end = ue.EndAt
	}
	if ue.ClearEndAt {
		end = nil
	}
	if end != nil && end.Before(start) {
		return core.NewValidationError(ErrInvalidPeriod, core.FieldError{Field: "end_at", Error: endBeforeStartText})
	}
	return nil
}

type QueryFilter struct {
	Search    string    `query:"search"`
	From      time.Time // events ending (or starting, without end) at or after From
	To        time.Time // events starting at or before To
	Audiences []string  // nil: any
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
