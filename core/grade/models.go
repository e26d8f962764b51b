package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Grade struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	FacultyID string    `json:"faculty_id"` // empty once the faculty member is deleted
	Subject   string    `json:"subject"`
	Term      string    `json:"term"`
	Score     float64   `json:"score"` // 0-100
	Remarks   string    `json:"remarks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGrade records the Score of a student for a subject and term.
// Recording it again for the same student, subject and term replaces the previous Grade.
type NewGrade struct {
	StudentID string   `json:"student_id" validate:"required"`
	Subject   string   `json:"subject" validate:"required,max=150"`
	Term      string   `json:"term" validate:"required,max=50"`
	Score     *float64 `json:"score" validate:"required,min=0,max=100"`
	Remarks   string   `json:"remarks" validate:"max=1000"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.Subject = core.CleanString(ng.Subject)
	ng.Term = core.CleanString(ng.Term)
	ng.Remarks = core.CleanString(ng.Remarks)
	return validate.Struct(ng)
}

type UpdateGrade struct {
	Score   *float64 `json:"score" validate:"omitempty,min=0,max=100"`
	Remarks *string  `json:"remarks" validate:"omitempty,max=1000"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	return validate.Struct(ug)
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	FacultyID string `query:"faculty_id"`
	Subject   string `query:"subject"`
	Term      string `query:"term"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.FacultyID = core.CleanString(qf.FacultyID)
	qf.Subject = core.CleanString(qf.Subject)
	qf.Term = core.CleanString(qf.Term)
}

type SubjectSummary struct {
	Subject string  `json:"subject"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// Summary aggregates the Grades of a student.
type Summary struct {
	StudentID string           `json:"student_id"`
	Count     int              `json:"count"`
	Average   float64          `json:"average"`
	Subjects  []SubjectSummary `json:"subjects"`
}

// Summarize aggregates grades per subject, subjects in order of first appearance.
func Summarize(studentID string, grades []Grade) Summary {
	sum := Summary{StudentID: studentID, Subjects: []SubjectSummary{}}
	totals := make(map[string]float64)
	idx := make(map[string]int)

	var total float64
	for _, g := range grades {
		i, ok := idx[g.Subject]
		if !ok {
			i = len(sum.Subjects)
			idx[g.Subject] = i
			sum.Subjects = append(sum.Subjects, SubjectSummary{Subject: g.Subject})
		}
		sum.Subjects[i].Count++
		totals[g.Subject] += g.Score
		total += g.Score
		sum.Count++
	}
	for i, s := range sum.Subjects {
		sum.Subjects[i].Average = round2(totals[s.Subject] / float64(s.Count))
	}
	if sum.Count > 0 {
		sum.Average = round2(total / float64(sum.Count))
	}
	return sum
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
