package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func recordStatuses(t *testing.T, data []byte) map[string]string {
	var records []attendance.Record
	require.NoError(t, json.Unmarshal(data, &records))
	statuses := make(map[string]string, len(records))
	for _, r := range records {
		statuses[r.StudentID+"@"+r.Date.Format(attendance.DateLayout)] = r.Status
	}
	return statuses
}

func Test_attendanceApi(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleFaculty, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other", "other@test.cd", "", user.RoleFaculty, true)
	awe := testutil.CreateStudent(t, app.usrRepo, "Awe", "awe", "CS", 1, "A")
	bee := testutil.CreateStudent(t, app.usrRepo, "Bee", "bee", "CS", 1, "A")
	adminToken, teacherToken, otherToken, aweToken := app.token(t, admin), app.token(t, teacher), app.token(t, other), app.token(t, awe)

	algo := testutil.CreateSchedule(t, app.schedRepo, teacher.ID, "Algorithms", 1, "08:00", "10:00", schedule.Targeting{})

	mark := func(scheduleID, date string, entries ...attendance.Entry) []byte {
		return marshalObj(t, attendance.MarkAttendance{ScheduleID: scheduleID, Date: date, Entries: entries})
	}
	present := func(studentID string) attendance.Entry {
		return attendance.Entry{StudentID: studentID, Status: attendance.StatusPresent}
	}

	tests := []httpTest{
		{name: "students cannot mark", token: aweToken, body: mark(algo.ID, "2026-03-02", present(awe.ID)), wantCode: http.StatusForbidden},
		{
			name: "required fields", token: teacherToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"schedule_id": "this field is required", "date": "this field is required", "entries": "this field is required"}`),
		},
		{
			name: "invalid entry", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     mark(algo.ID, "02/03/2026", attendance.Entry{StudentID: awe.ID, Status: "sick"}),
			wantData: []byte(`{"date": "date must be formatted as YYYY-MM-DD", "status": "status must be one of present, absent, late or excused"}`),
		},
		{
			name: "unknown schedule", token: teacherToken, body: mark("lol", "2026-03-02", present(awe.ID)),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"schedule_id": "schedule not found"}`),
		},
		{
			name: "only the schedule's teacher", token: otherToken, body: mark(algo.ID, "2026-03-02", present(awe.ID)),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "only the teacher of the schedule may mark its attendance"}),
		},
		{
			name: "entries must be students", token: teacherToken, body: mark(algo.ID, "2026-03-02", present(awe.ID), present(other.ID)),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"entries": "every entry must be an active student"}`),
		},
		{
			name: "student listed twice", token: teacherToken,
			body:     mark(algo.ID, "2026-03-02", present(awe.ID), present(bee.ID), attendance.Entry{StudentID: awe.ID, Status: attendance.StatusLate}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"entries": "a student may only appear once per marking"}`),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/attendance"
	}
	runHttpTests(t, app, tests)

	var marked []attendance.Record
	t.Run("mark", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/attendance", teacherToken, mark(algo.ID, "2026-03-02",
			present(awe.ID),
			attendance.Entry{StudentID: bee.ID, Status: " LATE ", Remarks: "bus"},
		))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &marked)
		require.Len(t, marked, 2)
		for _, r := range marked {
			assert.Equal(t, teacher.ID, r.FacultyID)
			assert.Equal(t, algo.ID, r.ScheduleID)
			assert.True(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).Equal(r.Date))
		}
		assert.Equal(t, attendance.StatusLate, marked[1].Status)
		assert.Equal(t, "bus", marked[1].Remarks)

		// admins mark on behalf of the teacher; marking again replaces the record
		rec = app.do(http.MethodPost, "/v1/attendance", adminToken, mark(algo.ID, "2026-03-09",
			attendance.Entry{StudentID: awe.ID, Status: attendance.StatusAbsent},
			present(bee.ID),
		))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		rec = app.do(http.MethodPost, "/v1/attendance", adminToken, mark(algo.ID, "2026-03-09",
			attendance.Entry{StudentID: awe.ID, Status: attendance.StatusExcused},
		))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var again []attendance.Record
		unmarshal(t, rec, &again)
		require.Len(t, again, 1)
		assert.Equal(t, teacher.ID, again[0].FacultyID)
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name  string
			path  string
			token string
			want  map[string]string
		}{
			{
				name: "admin", path: "/v1/attendance", token: adminToken,
				want: map[string]string{
					awe.ID + "@2026-03-02": attendance.StatusPresent,
					bee.ID + "@2026-03-02": attendance.StatusLate,
					awe.ID + "@2026-03-09": attendance.StatusExcused,
					bee.ID + "@2026-03-09": attendance.StatusPresent,
				},
			},
			{
				name: "date range", path: "/v1/attendance?from=2026-03-05&to=2026-03-10", token: teacherToken,
				want: map[string]string{awe.ID + "@2026-03-09": attendance.StatusExcused, bee.ID + "@2026-03-09": attendance.StatusPresent},
			},
			{name: "status", path: "/v1/attendance?status=LATE", token: adminToken, want: map[string]string{bee.ID + "@2026-03-02": attendance.StatusLate}},
			{
				name: "students see their own", path: "/v1/attendance?student_id=" + bee.ID, token: aweToken,
				want: map[string]string{awe.ID + "@2026-03-02": attendance.StatusPresent, awe.ID + "@2026-03-09": attendance.StatusExcused},
			},
			{name: "faculty see the ones they teach", path: "/v1/attendance", token: otherToken, want: map[string]string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := app.do(http.MethodGet, tt.path, tt.token)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				assert.Equal(t, tt.want, recordStatuses(t, rec.Body.Bytes()))
			})
		}
	})

	t.Run("summary", func(t *testing.T) {
		runHttpTests(t, app, []httpTest{
			{
				name: "admin", path: "/v1/attendance/summary", token: adminToken,
				wantData: marshalObj(t, attendance.Summary{Total: 4, Present: 2, Late: 1, Excused: 1, Rate: 75}),
			},
			{
				name: "by schedule and date", path: fmt.Sprintf("/v1/attendance/summary?schedule_id=%s&from=2026-03-02&to=2026-03-02", algo.ID), token: adminToken,
				wantData: marshalObj(t, attendance.Summary{Total: 2, Present: 1, Late: 1, Rate: 100}),
			},
			{
				name: "student", path: "/v1/attendance/summary", token: aweToken,
				wantData: marshalObj(t, attendance.Summary{Total: 2, Present: 1, Excused: 1, Rate: 50}),
			},
			{name: "other faculty", path: "/v1/attendance/summary", token: otherToken, wantData: marshalObj(t, attendance.Summary{})},
			{name: "bad date", path: "/v1/attendance/summary?from=lol", token: adminToken, wantCode: http.StatusBadRequest},
		})
	})

	t.Run("detail", func(t *testing.T) {
		require.Len(t, marked, 2)
		aweRec, beeRec := marked[0], marked[1]
		runHttpTests(t, app, []httpTest{
			{name: "own record", path: "/v1/attendance/" + aweRec.ID, token: aweToken},
			{name: "other student's record", path: "/v1/attendance/" + beeRec.ID, token: aweToken, wantCode: http.StatusNotFound},
			{name: "other faculty", path: "/v1/attendance/" + aweRec.ID, token: otherToken, wantCode: http.StatusNotFound},
			{name: "unknown record", path: "/v1/attendance/lol", token: adminToken, wantCode: http.StatusNotFound},
			{name: "students cannot delete", method: http.MethodDelete, path: "/v1/attendance/" + aweRec.ID, token: aweToken, wantCode: http.StatusForbidden},
			{name: "teacher deletes", method: http.MethodDelete, path: "/v1/attendance/" + beeRec.ID, token: teacherToken, wantCode: http.StatusNoContent},
			{name: "deleted", path: "/v1/attendance/" + beeRec.ID, token: adminToken, wantCode: http.StatusNotFound},
		})
	})
}
