package schedule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestTargeting_Matches(t *testing.T) {
	profile := user.Profile{Course: "CS", YearLevel: intPtr(2), Section: "A"}

	tests := []struct {
		name    string
		tgt     schedule.Targeting
		profile user.Profile
		want    bool
	}{
		{name: "no criteria", tgt: schedule.Targeting{}, profile: profile, want: true},
		{name: "no criteria, empty profile", tgt: schedule.Targeting{}, profile: user.Profile{}, want: true},
		{name: "course matches", tgt: schedule.Targeting{Course: strPtr("CS")}, profile: profile, want: true},
		{name: "course differs", tgt: schedule.Targeting{Course: strPtr("IT")}, profile: profile, want: false},
		{name: "all match", tgt: schedule.Targeting{Course: strPtr("CS"), YearLevel: intPtr(2), Section: strPtr("A")}, profile: profile, want: true},
		{name: "section differs", tgt: schedule.Targeting{Course: strPtr("CS"), YearLevel: intPtr(2), Section: strPtr("B")}, profile: profile, want: false},
		{name: "year level differs", tgt: schedule.Targeting{YearLevel: intPtr(3)}, profile: profile, want: false},
		{name: "year level unset on profile", tgt: schedule.Targeting{YearLevel: intPtr(2)}, profile: user.Profile{Course: "CS"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tgt.Matches(tt.profile))
		})
	}
}

func TestSchedule_Weekday(t *testing.T) {
	assert.Equal(t, "Sunday", schedule.Schedule{DayOfWeek: 0}.Weekday())
	assert.Equal(t, "Saturday", schedule.Schedule{DayOfWeek: 6}.Weekday())
	assert.Equal(t, "", schedule.Schedule{DayOfWeek: 7}.Weekday())
}

func fieldTags(err error) map[string]string {
	tags := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			tags[fe.Field()] = fe.Tag()
		}
	}
	return tags
}

func TestNewSchedule_Validate(t *testing.T) {
	validate, translator := testutil.NewValidate()

	newSched := func(day *int, start, end string) schedule.NewSchedule {
		return schedule.NewSchedule{TeacherID: "t1", Subject: " Maths ", DayOfWeek: day, StartTime: start, EndTime: end}
	}

	tests := []struct {
		name     string
		ns       schedule.NewSchedule
		wantTags map[string]string
	}{
		{name: "valid", ns: newSched(intPtr(1), "08:00", "09:30"), wantTags: map[string]string{}},
		{name: "sunday", ns: newSched(intPtr(0), "08:00", "09:30"), wantTags: map[string]string{}},
		{name: "missing day", ns: newSched(nil, "08:00", "09:30"), wantTags: map[string]string{"day_of_week": "required"}},
		{name: "bad day", ns: newSched(intPtr(7), "08:00", "09:30"), wantTags: map[string]string{"day_of_week": "weekday"}},
		{name: "bad start", ns: newSched(intPtr(1), "8:00", "09:30"), wantTags: map[string]string{"start_time": "hhmm"}},
		{name: "bad end", ns: newSched(intPtr(1), "08:00", "24:00"), wantTags: map[string]string{"end_time": "hhmm"}},
		{name: "end before start", ns: newSched(intPtr(1), "10:00", "09:30"), wantTags: map[string]string{"end_time": "schedule_end_before_start"}},
		{name: "end equals start", ns: newSched(intPtr(1), "10:00", "10:00"), wantTags: map[string]string{"end_time": "schedule_end_before_start"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ns.Validate(validate)
			assert.Equal(t, tt.wantTags, fieldTags(err), "err: %v", err)
		})
	}

	t.Run("end before start message differs from events", func(t *testing.T) {
		ns := newSched(intPtr(1), "10:00", "09:30")
		var verrs validator.ValidationErrors
		require.ErrorAs(t, ns.Validate(validate), &verrs)
		require.Len(t, verrs, 1)
		assert.Equal(t, "end time must be after start time", verrs[0].Translate(translator))
	})

	t.Run("targeting is cleaned", func(t *testing.T) {
		ns := newSched(intPtr(1), "08:00", "09:00")
		ns.Targeting = schedule.Targeting{Course: strPtr("  "), YearLevel: intPtr(0), Section: strPtr(" A ")}
		require.NoError(t, ns.Validate(validate))
		assert.Equal(t, "Maths", ns.Subject)
		assert.Nil(t, ns.Targeting.Course)
		assert.Nil(t, ns.Targeting.YearLevel)
		require.NotNil(t, ns.Targeting.Section)
		assert.Equal(t, "A", *ns.Targeting.Section)
	})
}

func TestUpdateSchedule_Validate(t *testing.T) {
	validate, _ := testutil.NewValidate()
	sched := schedule.Schedule{StartTime: "08:00", EndTime: "10:00"}

	tests := []struct {
		name    string
		us      schedule.UpdateSchedule
		wantErr bool
	}{
		{name: "empty", us: schedule.UpdateSchedule{}},
		{name: "new end", us: schedule.UpdateSchedule{EndTime: strPtr("11:00")}},
		{name: "new start after end", us: schedule.UpdateSchedule{StartTime: strPtr("10:30")}, wantErr: true},
		{name: "new end before start", us: schedule.UpdateSchedule{EndTime: strPtr("07:00")}, wantErr: true},
		{name: "both moved", us: schedule.UpdateSchedule{StartTime: strPtr("13:00"), EndTime: strPtr("14:00")}},
		{name: "bad format", us: schedule.UpdateSchedule{StartTime: strPtr("1pm")}, wantErr: true},
		{name: "blank subject", us: schedule.UpdateSchedule{Subject: strPtr(" ")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.us.Validate(sched, validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("end before start is reported on end_time", func(t *testing.T) {
		us := schedule.UpdateSchedule{EndTime: strPtr("08:00")}
		err := us.Validate(sched, validate)
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, schedule.ErrInvalidTimes, verr.Err)
		assert.Equal(t, "end_time", verr.Fields[0].Field)
	})
}
