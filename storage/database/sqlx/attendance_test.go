package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/tests"
)

func recordIDs(records []attendance.Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestAttendanceRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	schedRepo := sqlxrepos.NewScheduleRepository(db)
	repo := sqlxrepos.NewAttendanceRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleFaculty, true)
	awe := testutil.CreateStudent(t, usrRepo, "Awe", "awe", "CS", 1, "A")
	king := testutil.CreateStudent(t, usrRepo, "King", "king", "CS", 1, "A")
	algo := testutil.CreateSchedule(t, schedRepo, teacher.ID, "Algorithms", 1, "09:00", "10:00", schedule.Targeting{})

	d1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 7)

	awe1 := testutil.CreateAttendance(t, repo, awe.ID, teacher.ID, algo.ID, d1.Add(13*time.Hour), attendance.StatusPresent)
	king1 := testutil.CreateAttendance(t, repo, king.ID, teacher.ID, algo.ID, d1, attendance.StatusAbsent)
	awe2 := testutil.CreateAttendance(t, repo, awe.ID, teacher.ID, algo.ID, d2, attendance.StatusLate)

	assert.True(t, d1.Equal(awe1.Date), "dates are truncated to the day")

	t.Run("upsert replaces the record of the same student, schedule and date", func(t *testing.T) {
		again := testutil.CreateAttendance(t, repo, king.ID, teacher.ID, algo.ID, d1, attendance.StatusExcused)
		assert.Equal(t, king1.ID, again.ID)
		assert.Equal(t, attendance.StatusExcused, again.Status)
	})

	tests := []struct {
		name   string
		filter *attendance.QueryFilter
		want   []attendance.Record
	}{
		{name: "all", want: []attendance.Record{awe2, awe1, king1}},
		{name: "student", filter: &attendance.QueryFilter{StudentID: awe.ID}, want: []attendance.Record{awe2, awe1}},
		{name: "status", filter: &attendance.QueryFilter{Status: attendance.StatusExcused}, want: []attendance.Record{king1}},
		{name: "from", filter: &attendance.QueryFilter{From: d2}, want: []attendance.Record{awe2}},
		{name: "to", filter: &attendance.QueryFilter{To: d1.Add(20 * time.Hour)}, want: []attendance.Record{awe1, king1}},
		{name: "schedule & faculty", filter: &attendance.QueryFilter{ScheduleID: algo.ID, FacultyID: teacher.ID}, want: []attendance.Record{awe2, awe1, king1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryRecords(ctx, tt.filter, nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, recordIDs(tt.want), recordIDs(got))
		})
	}

	t.Run("count by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx, &attendance.QueryFilter{StudentID: awe.ID})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{attendance.StatusPresent: 1, attendance.StatusLate: 1}, counts)
	})

	t.Run("schedule deletion cascades", func(t *testing.T) {
		require.NoError(t, schedRepo.DeleteSchedule(ctx, algo.ID))
		got, err := repo.QueryRecords(ctx, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestAttendanceService_Mark(t *testing.T) {
	db := testutil.PrepareDB(t)
	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	usrRepo := sqlxrepos.NewUserRepository(db)
	schedRepo := sqlxrepos.NewScheduleRepository(db)
	usrSvc := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock(conf, logger), conf, logger)
	schedSvc := schedule.NewService(schedRepo, usrSvc, logger)
	svc := attendance.NewService(db, sqlxrepos.NewAttendanceRepository(db), schedSvc, usrSvc, logger)
	validate, _ := testutil.NewValidate()
	ctx := context.Background()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleFaculty, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "", user.RoleFaculty, true)
	awe := testutil.CreateStudent(t, usrRepo, "Awe", "awe", "CS", 1, "A")
	king := testutil.CreateStudent(t, usrRepo, "King", "king", "CS", 1, "A")
	algo := testutil.CreateSchedule(t, schedRepo, teacher.ID, "Algorithms", 1, "09:00", "10:00", schedule.Targeting{})

	mark := func(date string, entries ...attendance.Entry) attendance.MarkAttendance {
		return attendance.MarkAttendance{ScheduleID: algo.ID, Date: date, Entries: entries}
	}

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			ma      attendance.MarkAttendance
			wantErr bool
		}{
			{name: "no entries", ma: mark("2024-03-04"), wantErr: true},
			{name: "bad date", ma: mark("04/03/2024", attendance.Entry{StudentID: awe.ID, Status: "present"}), wantErr: true},
			{name: "bad status", ma: mark("2024-03-04", attendance.Entry{StudentID: awe.ID, Status: "asleep"}), wantErr: true},
			{name: "missing student", ma: mark("2024-03-04", attendance.Entry{Status: "present"}), wantErr: true},
			{name: "valid", ma: mark("2024-03-04", attendance.Entry{StudentID: awe.ID, Status: " Present "})},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.ma.Validate(validate)
				assert.Equal(t, tt.wantErr, err != nil, "err: %v", err)
			})
		}
	})

	t.Run("only the teacher or an admin may mark", func(t *testing.T) {
		_, err := svc.Mark(ctx, other, mark("2024-03-04", attendance.Entry{StudentID: awe.ID, Status: attendance.StatusPresent}))
		assert.Equal(t, attendance.ErrNotTeacher, err)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		ma := mark("2024-03-04", attendance.Entry{StudentID: awe.ID, Status: attendance.StatusPresent})
		ma.ScheduleID = "lol"
		_, err := svc.Mark(ctx, admin, ma)
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("entries must be students; nothing is saved", func(t *testing.T) {
		_, err := svc.Mark(ctx, teacher, mark("2024-03-04",
			attendance.Entry{StudentID: awe.ID, Status: attendance.StatusPresent},
			attendance.Entry{StudentID: other.ID, Status: attendance.StatusPresent},
		))
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, attendance.ErrInvalidStudents, verr.Err)

		got, err := svc.Query(ctx, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("mark & re-mark", func(t *testing.T) {
		records, err := svc.Mark(ctx, teacher, mark("2024-03-04",
			attendance.Entry{StudentID: awe.ID, Status: attendance.StatusPresent},
			attendance.Entry{StudentID: king.ID, Status: attendance.StatusAbsent},
		))
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, r := range records {
			assert.Equal(t, teacher.ID, r.FacultyID)
			assert.Equal(t, "2024-03-04", r.Date.Format(attendance.DateLayout))
		}

		// an admin marks on behalf of the teacher
		again, err := svc.Mark(ctx, admin, mark("2024-03-04", attendance.Entry{StudentID: king.ID, Status: attendance.StatusLate}))
		require.NoError(t, err)
		assert.Equal(t, records[1].ID, again[0].ID)
		assert.Equal(t, teacher.ID, again[0].FacultyID)

		_, err = svc.Mark(ctx, teacher, mark("2024-03-11", attendance.Entry{StudentID: awe.ID, Status: attendance.StatusAbsent}))
		require.NoError(t, err)
	})

	t.Run("for user & summary", func(t *testing.T) {
		got, err := svc.ForUser(ctx, awe, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = svc.ForUser(ctx, other, nil)
		require.NoError(t, err)
		assert.Empty(t, got)

		sum, err := svc.Summary(ctx, &attendance.QueryFilter{ScheduleID: algo.ID})
		require.NoError(t, err)
		assert.Equal(t, attendance.Summary{Total: 3, Present: 1, Absent: 1, Late: 1, Rate: 66.67}, sum)

		sum, err = svc.Summary(ctx, &attendance.QueryFilter{StudentID: king.ID})
		require.NoError(t, err)
		assert.Equal(t, 100.0, sum.Rate)
	})
}
