package attendance

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("attendance record not found")
	ErrNotTeacher       = errors.New("only the teacher of the schedule may mark its attendance")
	ErrInvalidSchedule  = errors.New("schedule not found")
	ErrInvalidStudents  = errors.New("every entry must be an active student")
	ErrDuplicateStudent = errors.New("a student may only appear once per marking")
)

type (
	Repository interface {
		// UpsertRecord inserts r, or updates the Record already marked for its student, schedule and date.
		UpsertRecord(ctx context.Context, r Record, exec ...core.DBExecutor) (Record, error)
		GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (Record, error)
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Record, error)
		// CountByStatus returns the number of Records matching filter per status.
		CountByStatus(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (map[string]int, error)
		DeleteRecord(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Mark saves all entries of ma in a single transaction, on behalf of marker.
		Mark(ctx context.Context, marker user.User, ma MarkAttendance) ([]Record, error)
		GetByID(ctx context.Context, id string) (Record, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		// ForUser returns the Records visible to usr: all for admins, marked ones for faculty, own ones for students.
		ForUser(ctx context.Context, usr user.User, filter *QueryFilter) ([]Record, error)
		Summary(ctx context.Context, filter *QueryFilter) (Summary, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		db       core.DB
		repo     Repository
		schedSvc schedule.Service
		usrSvc   user.Service
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, schedSvc schedule.Service, usrSvc user.Service, logger core.Logger) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(schedSvc, "schedSvc"),
		vala.IsNotNil(usrSvc, "usrSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{db: db, repo: repo, schedSvc: schedSvc, usrSvc: usrSvc, logger: logger}
}

// checkStudents returns a validation error unless every entry is an active student.
func (svc *service) checkStudents(ctx context.Context, entries []Entry) error {
	ids := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			ids = append(ids, e.StudentID)
		}
	}

	active := true
	students, err := svc.usrSvc.Query(ctx, &user.QueryFilter{IDs: ids, Roles: []string{user.RoleStudent}, IsActive: &active}, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if len(students) != len(ids) {
		return core.NewValidationError(ErrInvalidStudents, core.FieldError{Field: "entries", Error: ErrInvalidStudents.Error()})
	}
	return nil
}

func (svc *service) Mark(ctx context.Context, marker user.User, ma MarkAttendance) ([]Record, error) {
	sched, err := svc.schedSvc.GetByID(ctx, ma.ScheduleID)
	if err != nil {
		if errors.Cause(err) == schedule.ErrNotFound {
			return nil, core.NewValidationError(ErrInvalidSchedule, core.FieldError{Field: "schedule_id", Error: ErrInvalidSchedule.Error()})
		}
		return nil, errors.Wrap(err, "finding schedule")
	}
	if !marker.IsAdmin() && sched.TeacherID != marker.ID {
		return nil, ErrNotTeacher
	}

	date, err := ParseDate(ma.Date)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "date", Error: dateText})
	}
	if err = svc.checkStudents(ctx, ma.Entries); err != nil {
		return nil, err
	}

	now := core.Now()
	records := make([]Record, 0, len(ma.Entries))
	err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		for _, e := range ma.Entries {
			rec, err := svc.repo.UpsertRecord(ctx, Record{
				StudentID:  e.StudentID,
				FacultyID:  sched.TeacherID,
				ScheduleID: sched.ID,
				Date:       date,
				Status:     e.Status,
				Remarks:    e.Remarks,
				CreatedAt:  now,
				UpdatedAt:  now,
			}, tx)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "marking attendance")
	}
	return records, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter, ordering)
}

func (svc *service) ForUser(ctx context.Context, usr user.User, filter *QueryFilter) ([]Record, error) {
	f := QueryFilter{}
	if filter != nil {
		f = *filter
	}
	switch {
	case usr.IsAdmin():
	case usr.IsFaculty():
		f.FacultyID = usr.ID
	default:
		f.StudentID = usr.ID
	}
	return svc.repo.QueryRecords(ctx, &f, nil)
}

func (svc *service) Summary(ctx context.Context, filter *QueryFilter) (Summary, error) {
	counts, err := svc.repo.CountByStatus(ctx, filter)
	if err != nil {
		return Summary{}, errors.Wrap(err, "counting attendance")
	}
	return SummaryFromCounts(counts), nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}
