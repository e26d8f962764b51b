package schedule

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("schedule not found")
	ErrInvalidTimes   = errors.New("invalid times")
	ErrInvalidTeacher = errors.New("teacher must be an active faculty member")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, s Schedule, exec ...core.DBExecutor) (Schedule, error)
		GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (Schedule, error)
		QuerySchedules(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Schedule, error)
		// QueryTargetedSchedules returns the Schedules whose Targeting matches the profile.
		QueryTargetedSchedules(ctx context.Context, profile user.Profile, exec ...core.DBExecutor) ([]Schedule, error)
		UpdateSchedule(ctx context.Context, s Schedule, exec ...core.DBExecutor) (Schedule, error)
		DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, ns NewSchedule) (Schedule, error)
		GetByID(ctx context.Context, id string) (Schedule, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error)
		ForTeacher(ctx context.Context, teacher user.User) ([]Schedule, error)
		// ForStudent returns the Schedules targeting the student.
		ForStudent(ctx context.Context, student user.User) ([]Schedule, error)
		// ForUser returns the Schedules relevant to usr: all for admins, taught ones for faculty, targeted ones for students.
		ForUser(ctx context.Context, usr user.User) ([]Schedule, error)
		Update(ctx context.Context, s Schedule, us UpdateSchedule) (Schedule, error)
		Delete(ctx context.Context, id string) error
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

// checkTeacher returns a validation error when id is not an active faculty member.
func (svc *service) checkTeacher(ctx context.Context, id string) error {
	teacher, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding teacher")
		}
	} else if teacher.IsFaculty() && teacher.IsActive {
		return nil
	}
	return core.NewValidationError(ErrInvalidTeacher, core.FieldError{Field: "teacher_id", Error: ErrInvalidTeacher.Error()})
}

func (svc *service) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	if err := svc.checkTeacher(ctx, ns.TeacherID); err != nil {
		return Schedule{}, err
	}

	now := core.Now()
	s := Schedule{
		TeacherID: ns.TeacherID,
		Subject:   ns.Subject,
		Room:      ns.Room,
		DayOfWeek: *ns.DayOfWeek,
		StartTime: ns.StartTime,
		EndTime:   ns.EndTime,
		Targeting: ns.Targeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSchedule(ctx, s)
}

func (svc *service) GetByID(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error) {
	return svc.repo.QuerySchedules(ctx, filter, ordering)
}

func (svc *service) ForTeacher(ctx context.Context, teacher user.User) ([]Schedule, error) {
	return svc.repo.QuerySchedules(ctx, &QueryFilter{TeacherID: teacher.ID}, nil)
}

func (svc *service) ForStudent(ctx context.Context, student user.User) ([]Schedule, error) {
	return svc.repo.QueryTargetedSchedules(ctx, student.Profile)
}

func (svc *service) ForUser(ctx context.Context, usr user.User) ([]Schedule, error) {
	switch {
	case usr.IsAdmin():
		return svc.repo.QuerySchedules(ctx, nil, nil)
	case usr.IsFaculty():
		return svc.ForTeacher(ctx, usr)
	default:
		return svc.ForStudent(ctx, usr)
	}
}

func (svc *service) Update(ctx context.Context, s Schedule, us UpdateSchedule) (Schedule, error) {
	if us.TeacherID != nil {
		teacherID := core.CleanString(*us.TeacherID)
		if teacherID != s.TeacherID {
			if err := svc.checkTeacher(ctx, teacherID); err != nil {
				return Schedule{}, err
			}
			s.TeacherID = teacherID
		}
	}
	if us.Subject != nil {
		s.Subject = core.CleanString(*us.Subject)
	}
	if us.Room != nil {
		s.Room = core.CleanString(*us.Room)
	}
	if us.DayOfWeek != nil {
		s.DayOfWeek = *us.DayOfWeek
	}
	if us.StartTime != nil {
		s.StartTime = *us.StartTime
	}
	if us.EndTime != nil {
		s.EndTime = *us.EndTime
	}
	if us.Targeting != nil {
		s.Targeting = *us.Targeting
	}
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateSchedule(ctx, s)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSchedule(ctx, id)
}
