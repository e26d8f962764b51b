// Package testutil provides throw-away databases and fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/event"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/schema"
)

// OpenDB opens a new, empty sqlite database; it is closed when the test completes.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open(database.EngineSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "shule.db")))
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// PrepareDB opens a new sqlite database with the reconciled schema and the data migrations applied.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := OpenDB(t)
	logger := logsvc.NewDiscardLogger()
	if _, err := database.Reconcile(context.Background(), db, logger, false); err != nil {
		t.Fatalf("PrepareDB() failed to reconcile: %v", err)
	}
	if err := database.Migrate(db, logger, "up"); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	return db
}

// ResetDB deletes all rows, referencing tables first.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	tables := schema.Tables()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.Exec("DELETE FROM " + tables[i].Name); err != nil {
			t.Fatalf("ResetDB() failed: %v", err)
		}
	}
}

// NewValidate returns a validator with every custom validation registered.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	event.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// DefaultPassword is the password of the fixtures created without one.
const DefaultPassword = "Pwd#12345"

var (
	defaultHash     []byte
	defaultHashOnce sync.Once
)

// DefaultPasswordHash returns the bcrypt hash of DefaultPassword, computed once.
func DefaultPasswordHash(t *testing.T) []byte {
	t.Helper()
	defaultHashOnce.Do(func() {
		var usr user.User
		if err := usr.SetPassword(DefaultPassword); err != nil {
			t.Fatalf("DefaultPasswordHash() failed: %v", err)
		}
		defaultHash = usr.PasswordHash
	})
	return defaultHash
}

// CreateUser creates a user; an empty pwd means DefaultPassword.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      email,
		Role:       role,
		IsActive:   isActive,
		Appearance: user.Appearance{Theme: user.ThemeLight},
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd == "" {
		usr.PasswordHash = DefaultPasswordHash(t)
	} else if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent creates an active student enrolled in course, yearLevel and section.
func CreateStudent(t *testing.T, repo user.Repository, name, uname, course string, yearLevel int, section string) user.User {
	t.Helper()
	now := core.Now()
	usr := user.User{
		Name:         name,
		Username:     uname,
		Email:        uname + "@test.cd",
		Role:         user.RoleStudent,
		IsActive:     true,
		PasswordHash: DefaultPasswordHash(t),
		Profile:      user.Profile{Course: course, YearLevel: &yearLevel, Section: section},
		Appearance:   user.Appearance{Theme: user.ThemeLight},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return usr
}

func CreateEvent(t *testing.T, repo event.Repository, title, audience string, startAt time.Time, endAt *time.Time, createdBy string) event.Event {
	t.Helper()
	now := core.Now()
	ev, err := repo.CreateEvent(context.Background(), event.Event{
		Title:     title,
		StartAt:   startAt.UTC().Truncate(time.Microsecond),
		EndAt:     endAt,
		Audience:  audience,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return ev
}

func CreateSchedule(t *testing.T, repo schedule.Repository, teacherID, subject string, day int, start, end string, tgt schedule.Targeting) schedule.Schedule {
	t.Helper()
	now := core.Now()
	s, err := repo.CreateSchedule(context.Background(), schedule.Schedule{
		TeacherID: teacherID,
		Subject:   subject,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		Targeting: tgt,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	return s
}

func CreateGrade(t *testing.T, repo grade.Repository, studentID, facultyID, subject, term string, score float64) grade.Grade {
	t.Helper()
	now := core.Now()
	g, err := repo.UpsertGrade(context.Background(), grade.Grade{
		StudentID: studentID,
		FacultyID: facultyID,
		Subject:   subject,
		Term:      term,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return g
}

func CreateAttendance(t *testing.T, repo attendance.Repository, studentID, facultyID, scheduleID string, date time.Time, status string) attendance.Record {
	t.Helper()
	now := core.Now()
	r, err := repo.UpsertRecord(context.Background(), attendance.Record{
		StudentID:  studentID,
		FacultyID:  facultyID,
		ScheduleID: scheduleID,
		Date:       date,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateAttendance() failed: %v", err)
	}
	return r
}

func CreateNotification(t *testing.T, repo notification.Repository, senderID, receiverID, title string) notification.Notification {
	t.Helper()
	n, err := repo.CreateNotification(context.Background(), notification.Notification{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Title:      title,
		Message:    title + " message",
		CreatedAt:  core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}
	return n
}
