package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

const DateLayout = "2006-01-02"

var AllStatuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	FacultyID  string    `json:"faculty_id"`
	ScheduleID string    `json:"schedule_id"`
	Date       time.Time `json:"date"` // midnight UTC
	Status     string    `json:"status"`
	Remarks    string    `json:"remarks"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Entry is the attendance of one student in a MarkAttendance.
type Entry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
	Remarks   string `json:"remarks" validate:"max=1000"`
}

// MarkAttendance records the attendance of students to a schedule on Date (YYYY-MM-DD).
type MarkAttendance struct {
	ScheduleID string  `json:"schedule_id" validate:"required"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Entries    []Entry `json:"entries" validate:"required,min=1,dive"`
}

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	ma.ScheduleID = core.CleanString(ma.ScheduleID)
	ma.Date = core.CleanString(ma.Date)
	for i := range ma.Entries {
		e := &ma.Entries[i]
		e.StudentID = core.CleanString(e.StudentID)
		e.Status = core.CleanString(e.Status, true /* lower */)
		e.Remarks = core.CleanString(e.Remarks)
	}
	if err := validate.Struct(ma); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(ma.Entries))
	for _, e := range ma.Entries {
		if _, ok := seen[e.StudentID]; ok {
			return core.NewValidationError(ErrDuplicateStudent, core.FieldError{Field: "entries", Error: ErrDuplicateStudent.Error()})
		}
		seen[e.StudentID] = struct{}{}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type QueryFilter struct {
	StudentID  string `query:"student_id"`
	ScheduleID string `query:"schedule_id"`
	FacultyID  string `query:"faculty_id"`
	Status     string `query:"status"`
	From       time.Time
	To         time.Time
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.ScheduleID = core.CleanString(qf.ScheduleID)
	qf.FacultyID = core.CleanString(qf.FacultyID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	if !qf.From.IsZero() {
		qf.From = Day(qf.From)
	}
	if !qf.To.IsZero() {
		qf.To = Day(qf.To)
	}
}

type Summary struct {
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Excused int     `json:"excused"`
	Rate    float64 `json:"rate"` // percentage of present or late records
}

// Summarize counts records per status.
func Summarize(records []Record) Summary {
	var sum Summary
	for _, r := range records {
		sum.add(r.Status, 1)
	}
	sum.computeRate()
	return sum
}

func (s *Summary) add(status string, n int) {
	switch status {
	case StatusPresent:
		s.Present += n
	case StatusAbsent:
		s.Absent += n
	case StatusLate:
		s.Late += n
	case StatusExcused:
		s.Excused += n
	default:
		return
	}
	s.Total += n
}

func (s *Summary) computeRate() {
	if s.Total == 0 {
		s.Rate = 0
		return
	}
	rate := float64(s.Present+s.Late) * 100 / float64(s.Total)
	s.Rate = float64(int64(rate*100+0.5)) / 100
}

// SummaryFromCounts builds a Summary from per-status counts.
func SummaryFromCounts(counts map[string]int) Summary {
	var sum Summary
	for status, n := range counts {
		sum.add(status, n)
	}
	sum.computeRate()
	return sum
}
