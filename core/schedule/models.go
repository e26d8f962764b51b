package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Days of the week, as stored in Schedule.DayOfWeek
var Weekdays = []string{
	time.Sunday.String(),
	time.Monday.String(),
	time.Tuesday.String(),
	time.Wednesday.String(),
	time.Thursday.String(),
	time.Friday.String(),
	time.Saturday.String(),
}

// Targeting selects the students a Schedule applies to.
// A nil criterion matches every student; a set one must equal the student's profile field.
type Targeting struct {
	Course    *string `json:"course" validate:"omitempty,max=100"`
	YearLevel *int    `json:"year_level" validate:"omitempty,min=1,max=12"`
	Section   *string `json:"section" validate:"omitempty,max=50"`
}

// Matches reports whether a student with the given profile is targeted.
func (tg Targeting) Matches(p user.Profile) bool {
	if tg.Course != nil && *tg.Course != p.Course {
		return false
	}
	if tg.YearLevel != nil && (p.YearLevel == nil || *tg.YearLevel != *p.YearLevel) {
		return false
	}
	if tg.Section != nil && *tg.Section != p.Section {
		return false
	}
	return true
}

func (tg Targeting) clean() Targeting {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		return core.StringPtr(*s)
	}
	tg.Course = clean(tg.Course)
	tg.Section = clean(tg.Section)
	if tg.YearLevel != nil && *tg.YearLevel == 0 {
		tg.YearLevel = nil
	}
	return tg
}

type Schedule struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	Subject   string    `json:"subject"`
	Room      string    `json:"room"`
	DayOfWeek int       `json:"day_of_week"` // 0: Sunday
	StartTime string    `json:"start_time"`  // HH:MM
	EndTime   string    `json:"end_time"`    // HH:MM
	Targeting Targeting `json:"targeting"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Schedule) Weekday() string {
	if s.DayOfWeek < 0 || s.DayOfWeek >= len(Weekdays) {
		return ""
	}
	return Weekdays[s.DayOfWeek]
}

type NewSchedule struct {
	TeacherID string    `json:"teacher_id" validate:"required"`
	Subject   string    `json:"subject" validate:"required,max=150"`
	Room      string    `json:"room" validate:"max=50"`
	DayOfWeek *int      `json:"day_of_week" validate:"required,weekday"`
	StartTime string    `json:"start_time" validate:"required,hhmm"`
	EndTime   string    `json:"end_time" validate:"required,hhmm"`
	Targeting Targeting `json:"targeting"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.TeacherID = core.CleanString(ns.TeacherID)
	ns.Subject = core.CleanString(ns.Subject)
	ns.Room = core.CleanString(ns.Room)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
	ns.Targeting = ns.Targeting.clean()
	return validate.Struct(ns)
}

// UpdateSchedule defines what information may be provided to modify an existing Schedule.
// Targeting, when provided, replaces the whole targeting.
type UpdateSchedule struct {
	TeacherID *string    `json:"teacher_id" validate:"omitempty,notblank"`
	Subject   *string    `json:"subject" validate:"omitempty,notblank,max=150"`
	Room      *string    `json:"room" validate:"omitempty,max=50"`
	DayOfWeek *int       `json:"day_of_week" validate:"omitempty,weekday"`
	StartTime *string    `json:"start_time" validate:"omitempty,hhmm"`
	EndTime   *string    `json:"end_time" validate:"omitempty,hhmm"`
	Targeting *Targeting `json:"targeting"`
}

// Validate checks us against the Schedule it modifies.
func (us *UpdateSchedule) Validate(s Schedule, validate *validator.Validate) error {
	if us.Targeting != nil {
		tg := us.Targeting.clean()
		us.Targeting = &tg
	}
	if err := validate.Struct(us); err != nil {
		return err
	}

	start, end := s.StartTime, s.EndTime
	if us.StartTime != nil {
		start = *us.StartTime
	}
	if us.EndTime != nil {
		end = *us.EndTime
	}
	if end <= start {
		return core.NewValidationError(ErrInvalidTimes, core.FieldError{Field: "end_time", Error: endBeforeStartText})
	}
	return nil
}

type QueryFilter struct {
	TeacherID string `query:"teacher_id"`
	DayOfWeek *int   `query:"day_of_week"`
	Subject   string `query:"subject"`
}

func (qf *QueryFilter) Clean() {
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.Subject = core.CleanString(qf.Subject)
}
