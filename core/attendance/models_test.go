package attendance_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/tests"
)

func TestSummarize(t *testing.T) {
	records := func(statuses ...string) []attendance.Record {
		recs := make([]attendance.Record, 0, len(statuses))
		for _, s := range statuses {
			recs = append(recs, attendance.Record{Status: s})
		}
		return recs
	}

	tests := []struct {
		name    string
		records []attendance.Record
		want    attendance.Summary
	}{
		{name: "empty", want: attendance.Summary{}},
		{
			name:    "all present",
			records: records(attendance.StatusPresent, attendance.StatusPresent),
			want:    attendance.Summary{Total: 2, Present: 2, Rate: 100},
		},
		{
			name:    "late counts as attended",
			records: records(attendance.StatusPresent, attendance.StatusLate, attendance.StatusAbsent),
			want:    attendance.Summary{Total: 3, Present: 1, Late: 1, Absent: 1, Rate: 66.67},
		},
		{
			name:    "excused does not count as attended",
			records: records(attendance.StatusExcused, attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusAbsent),
			want:    attendance.Summary{Total: 4, Present: 1, Absent: 2, Excused: 1, Rate: 25},
		},
		{
			name:    "unknown statuses are ignored",
			records: records("sick", attendance.StatusPresent),
			want:    attendance.Summary{Total: 1, Present: 1, Rate: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attendance.Summarize(tt.records))
		})
	}
}

func TestSummaryFromCounts(t *testing.T) {
	got := attendance.SummaryFromCounts(map[string]int{
		attendance.StatusPresent: 5,
		attendance.StatusLate:    1,
		attendance.StatusAbsent:  3,
	})
	assert.Equal(t, attendance.Summary{Total: 9, Present: 5, Late: 1, Absent: 3, Rate: 66.67}, got)
	assert.Equal(t, attendance.Summary{}, attendance.SummaryFromCounts(nil))
}

func TestParseDateAndDay(t *testing.T) {
	d, err := attendance.ParseDate("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), d)

	_, err = attendance.ParseDate("04/03/2024")
	assert.Error(t, err)

	ts := time.Date(2024, 3, 4, 23, 59, 59, 999, time.UTC)
	assert.Equal(t, d, attendance.Day(ts))
}

func TestMarkAttendance_Validate(t *testing.T) {
	validate, _ := testutil.NewValidate()
	entries := []attendance.Entry{{StudentID: "s1", Status: " Present "}}

	tests := []struct {
		name     string
		ma       attendance.MarkAttendance
		wantTags map[string]string
	}{
		{name: "valid", ma: attendance.MarkAttendance{ScheduleID: "sc", Date: "2024-03-04", Entries: entries}, wantTags: map[string]string{}},
		{name: "bad date", ma: attendance.MarkAttendance{ScheduleID: "sc", Date: "2024-13-04", Entries: entries}, wantTags: map[string]string{"date": "datetime"}},
		{name: "no entries", ma: attendance.MarkAttendance{ScheduleID: "sc", Date: "2024-03-04"}, wantTags: map[string]string{"entries": "required"}},
		{
			name:     "bad status",
			ma:       attendance.MarkAttendance{ScheduleID: "sc", Date: "2024-03-04", Entries: []attendance.Entry{{StudentID: "s1", Status: "sick"}}},
			wantTags: map[string]string{"status": "attendance_status"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := tt.ma
			ma.Entries = append([]attendance.Entry(nil), tt.ma.Entries...)
			err := ma.Validate(validate)

			tags := make(map[string]string)
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range verrs {
					tags[fe.Field()] = fe.Tag()
				}
			}
			assert.Equal(t, tt.wantTags, tags, "err: %v", err)
		})
	}
}

func TestMarkAttendance_ValidateDuplicateStudents(t *testing.T) {
	validate, _ := testutil.NewValidate()
	ma := attendance.MarkAttendance{
		ScheduleID: "sc",
		Date:       "2024-03-04",
		Entries: []attendance.Entry{
			{StudentID: "s1", Status: "present"},
			{StudentID: "s2", Status: "late"},
			{StudentID: " s1 ", Status: "absent"},
		},
	}

	err := ma.Validate(validate)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, errors.Is(err, attendance.ErrDuplicateStudent))
	assert.Equal(t, map[string]string{"entries": attendance.ErrDuplicateStudent.Error()}, verr.FieldMap())
}
