package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func gradeIDs(t *testing.T, data []byte) []string {
	var grades []grade.Grade
	require.NoError(t, json.Unmarshal(data, &grades))
	ids := make([]string, 0, len(grades))
	for _, g := range grades {
		ids = append(ids, g.ID)
	}
	return ids
}

func Test_gradeApi(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleFaculty, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other", "other@test.cd", "", user.RoleFaculty, true)
	awe := testutil.CreateStudent(t, app.usrRepo, "Awe", "awe", "CS", 1, "A")
	bee := testutil.CreateStudent(t, app.usrRepo, "Bee", "bee", "CS", 1, "A")
	adminToken, teacherToken, aweToken := app.token(t, admin), app.token(t, teacher), app.token(t, awe)

	aweMath := testutil.CreateGrade(t, app.gradeRepo, awe.ID, teacher.ID, "Math", "T1", 70)
	aweChem := testutil.CreateGrade(t, app.gradeRepo, awe.ID, other.ID, "Chemistry", "T1", 90)
	aweMath2 := testutil.CreateGrade(t, app.gradeRepo, awe.ID, teacher.ID, "Math", "T2", 75)
	beeMath := testutil.CreateGrade(t, app.gradeRepo, bee.ID, teacher.ID, "Math", "T1", 40)

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name  string
			path  string
			token string
			want  []string
		}{
			{name: "admin", path: "/v1/grades", token: adminToken, want: []string{aweChem.ID, aweMath.ID, beeMath.ID, aweMath2.ID}},
			{name: "admin by student", path: "/v1/grades?student_id=" + bee.ID, token: adminToken, want: []string{beeMath.ID}},
			{name: "faculty sees recorded grades", path: "/v1/grades?term=T1", token: teacherToken, want: []string{aweMath.ID, beeMath.ID}},
			{name: "students see their own", path: "/v1/grades?student_id=" + bee.ID, token: aweToken, want: []string{aweChem.ID, aweMath.ID, aweMath2.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := app.do(http.MethodGet, tt.path, tt.token)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				assert.ElementsMatch(t, tt.want, gradeIDs(t, rec.Body.Bytes()))
			})
		}
	})

	t.Run("summary", func(t *testing.T) {
		want := grade.Summary{
			StudentID: awe.ID,
			Count:     3,
			Average:   78.33,
			Subjects: []grade.SubjectSummary{
				{Subject: "Chemistry", Count: 1, Average: 90},
				{Subject: "Math", Count: 2, Average: 72.5},
			},
		}
		runHttpTests(t, app, []httpTest{
			{name: "student's own", path: "/v1/grades/summary?student_id=" + bee.ID, token: aweToken, wantData: marshalObj(t, want)},
			{name: "faculty", path: "/v1/grades/summary?student_id=" + awe.ID, token: teacherToken, wantData: marshalObj(t, want)},
			{
				name: "student_id required", path: "/v1/grades/summary", token: adminToken,
				wantCode: http.StatusBadRequest, wantData: []byte(`{"student_id": "student_id is required"}`),
			},
		})
	})

	runHttpTests(t, app, []httpTest{
		{name: "own grade", path: "/v1/grades/" + aweMath.ID, token: aweToken},
		{name: "other student's grade", path: "/v1/grades/" + beeMath.ID, token: aweToken, wantCode: http.StatusNotFound},
		{name: "other faculty's grade", path: "/v1/grades/" + aweChem.ID, token: teacherToken, wantCode: http.StatusNotFound},
		{name: "unknown grade", path: "/v1/grades/lol", token: adminToken, wantCode: http.StatusNotFound},
		{
			name: "students cannot record", method: http.MethodPost, path: "/v1/grades", token: aweToken,
			body: []byte(`{}`), wantCode: http.StatusForbidden,
		},
		{
			name: "required fields", method: http.MethodPost, path: "/v1/grades", token: teacherToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"student_id": "this field is required",
				"subject": "this field is required",
				"term": "this field is required",
				"score": "this field is required"
			}`),
		},
		{
			name: "score out of range", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body:     []byte(`{"student_id": "` + awe.ID + `", "subject": "Math", "term": "T3", "score": 101}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"score": "score must be 100 or less"}`),
		},
		{
			name: "student must be a student", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body:     []byte(`{"student_id": "` + other.ID + `", "subject": "Math", "term": "T3", "score": 50}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_id": "student must be an active user with the student role"}`),
		},
	})

	t.Run("record replaces", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/grades", teacherToken, []byte(`{"student_id": "`+bee.ID+`", "subject": " Math ", "term": "T1", "score": 65, "remarks": "retake"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got grade.Grade
		unmarshal(t, rec, &got)
		assert.Equal(t, beeMath.ID, got.ID)
		assert.Equal(t, 65.0, got.Score)
		assert.Equal(t, "retake", got.Remarks)
		assert.Equal(t, teacher.ID, got.FacultyID)
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/v1/grades/"+aweChem.ID, teacherToken, []byte(`{"score": 95}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(http.MethodPut, "/v1/grades/"+aweMath.ID, teacherToken, []byte(`{"score": -1}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(http.MethodPut, "/v1/grades/"+aweMath.ID, teacherToken, []byte(`{"score": 72, "remarks": "good"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got grade.Grade
		unmarshal(t, rec, &got)
		assert.Equal(t, 72.0, got.Score)
		assert.Equal(t, "good", got.Remarks)
	})

	t.Run("export", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/grades/export", aweToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(http.MethodGet, "/v1/grades/export?term=T1", teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="grades.xlsx"`, rec.Header().Get("Content-Disposition"))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows("Grades")
		require.NoError(t, err)
		require.Len(t, rows, 3, "header and the teacher's two T1 grades")
		assert.Equal(t, []string{"Student", "Username", "Subject", "Term", "Score", "Remarks", "Faculty", "Updated At"}, rows[0])

		students := []string{rows[1][1], rows[2][1]}
		assert.ElementsMatch(t, []string{"awe", "bee"}, students)
		for _, row := range rows[1:] {
			assert.Equal(t, "Math", row[2])
			assert.Equal(t, "Teacher", row[6])
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/grades/"+aweMath2.ID, aweToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(http.MethodDelete, "/v1/grades/"+aweMath2.ID, teacherToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = app.do(http.MethodGet, "/v1/grades/"+aweMath2.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
