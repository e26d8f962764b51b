package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/event"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// testApp is a Server over a fresh sqlite database, with direct access to its repositories.
type testApp struct {
	Server
	db        *sqlx.DB
	conf      *core.Config
	usrRepo   user.Repository
	evtRepo   event.Repository
	schedRepo schedule.Repository
	gradeRepo grade.Repository
	attRepo   attendance.Repository
	notifRepo notification.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.PrepareDB(t)
	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	validate, translator := testutil.NewValidate()
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ClearSentMessages()
	t.Cleanup(emailsvc.ClearSentMessages)

	app := &testApp{
		db:        db,
		conf:      conf,
		usrRepo:   sqlxrepos.NewUserRepository(db),
		evtRepo:   sqlxrepos.NewEventRepository(db),
		schedRepo: sqlxrepos.NewScheduleRepository(db),
		gradeRepo: sqlxrepos.NewGradeRepository(db),
		attRepo:   sqlxrepos.NewAttendanceRepository(db),
		notifRepo: sqlxrepos.NewNotificationRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewServiceMock(app.usrRepo, mailSvc, conf, logger)
	schedSvc := schedule.NewService(app.schedRepo, usrSvc, logger)

	app.Server = NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,

		UserSvc:         usrSvc,
		EventSvc:        event.NewService(app.evtRepo, logger),
		ScheduleSvc:     schedSvc,
		GradeSvc:        grade.NewService(app.gradeRepo, usrSvc, logger),
		AttendanceSvc:   attendance.NewService(db, app.attRepo, schedSvc, usrSvc, logger),
		NotificationSvc: notification.NewService(db, app.notifRepo, usrSvc, mailSvc, logger),
		DashboardSvc:    dashboard.NewService(sqlxrepos.NewDashboardRepository(db), logger),
	})
	return app
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(app.conf, GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

// do serves a request and returns the recorded response.
func (app *testApp) do(method, path, token string, body ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body...)
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
