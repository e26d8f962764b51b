package grade

import (
	"context"
	"io"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("grade not found")
	ErrInvalidStudent = errors.New("student must be an active user with the student role")
)

type (
	Repository interface {
		// UpsertGrade inserts g, or updates the Grade already recorded for its student, subject and term.
		UpsertGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		GetGrade(ctx context.Context, id string, exec ...core.DBExecutor) (Grade, error)
		QueryGrades(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Grade, error)
		UpdateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Record saves the Grade of ng on behalf of recorder (a faculty member or an admin).
		Record(ctx context.Context, recorder user.User, ng NewGrade) (Grade, error)
		GetByID(ctx context.Context, id string) (Grade, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Grade, error)
		// ForUser returns the Grades visible to usr: all for admins, recorded ones for faculty, own ones for students.
		ForUser(ctx context.Context, usr user.User, filter *QueryFilter) ([]Grade, error)
		Update(ctx context.Context, g Grade, ug UpdateGrade) (Grade, error)
		Delete(ctx context.Context, id string) error
		Summary(ctx context.Context, studentID string) (Summary, error)
		// Export writes the Grades matching filter to w as an XLSX workbook.
		Export(ctx context.Context, w io.Writer, filter *QueryFilter) error
	}

	service struct {
		repo   Repository
		usrSvc user.Service
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, logger core.Logger) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrSvc, "usrSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{repo: repo, usrSvc: usrSvc, logger: logger}
}

func (svc *service) checkStudent(ctx context.Context, id string) error {
	student, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding student")
		}
	} else if student.IsStudent() && student.IsActive {
		return nil
	}
	return core.NewValidationError(ErrInvalidStudent, core.FieldError{Field: "student_id", Error: ErrInvalidStudent.Error()})
}

func (svc *service) Record(ctx context.Context, recorder user.User, ng NewGrade) (Grade, error) {
	if err := svc.checkStudent(ctx, ng.StudentID); err != nil {
		return Grade{}, err
	}

	now := core.Now()
	g := Grade{
		StudentID: ng.StudentID,
		FacultyID: recorder.ID,
		Subject:   ng.Subject,
		Term:      ng.Term,
		Score:     *ng.Score,
		Remarks:   ng.Remarks,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.UpsertGrade(ctx, g)
}

func (svc *service) GetByID(ctx context.Context, id string) (Grade, error) {
	return svc.repo.GetGrade(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter, ordering)
}

func (svc *service) ForUser(ctx context.Context, usr user.User, filter *QueryFilter) ([]Grade, error) {
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
	return svc.repo.QueryGrades(ctx, &f, nil)
}

func (svc *service) Update(ctx context.Context, g Grade, ug UpdateGrade) (Grade, error) {
	if ug.Score != nil {
		g.Score = *ug.Score
	}
	if ug.Remarks != nil {
		g.Remarks = core.CleanString(*ug.Remarks)
	}
	g.UpdatedAt = core.Now()
	return svc.repo.UpdateGrade(ctx, g)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteGrade(ctx, id)
}

func (svc *service) Summary(ctx context.Context, studentID string) (Summary, error) {
	grades, err := svc.repo.QueryGrades(ctx, &QueryFilter{StudentID: studentID}, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying grades")
	}
	return Summarize(studentID, grades), nil
}

func (svc *service) Export(ctx context.Context, w io.Writer, filter *QueryFilter) error {
	grades, err := svc.repo.QueryGrades(ctx, filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}

	users := make(map[string]user.User)
	if len(grades) > 0 {
		ids := make([]string, 0, len(grades)*2)
		for _, g := range grades {
			ids = append(ids, g.StudentID)
			if g.FacultyID != "" {
				ids = append(ids, g.FacultyID)
			}
		}
		usrs, err := svc.usrSvc.Query(ctx, &user.QueryFilter{IDs: ids}, nil)
		if err != nil {
			return errors.Wrap(err, "querying users")
		}
		for _, u := range usrs {
			users[u.ID] = u
		}
	}
	return writeXLSX(w, grades, users)
}
