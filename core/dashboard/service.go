package dashboard

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/event"
	"github.com/trezcool/shule/core/user"
)

type (
	// Repository computes the aggregates shown on the dashboards.
	Repository interface {
		CountUsersByRole(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error)
		CountActiveUsers(ctx context.Context, exec ...core.DBExecutor) (int, error)
		// CountUpcomingEvents counts the Events not over at from; audiences nil means any audience.
		CountUpcomingEvents(ctx context.Context, from time.Time, audiences []string, exec ...core.DBExecutor) (int, error)
		CountSchedules(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int, error)
		CountGrades(ctx context.Context, facultyID string, exec ...core.DBExecutor) (int, error)
		// CountAttendanceMarked counts the attendance records marked for the schedules of facultyID on date.
		CountAttendanceMarked(ctx context.Context, facultyID string, date time.Time, exec ...core.DBExecutor) (int, error)
		// GradeDistribution counts the Grades recorded by facultyID per GradeBuckets label.
		GradeDistribution(ctx context.Context, facultyID string, exec ...core.DBExecutor) (map[string]int, error)
		// AverageScore returns the average score of studentID and the number of grades it is computed on.
		AverageScore(ctx context.Context, studentID string, exec ...core.DBExecutor) (float64, int, error)
		CountAttendanceByStatus(ctx context.Context, studentID string, exec ...core.DBExecutor) (map[string]int, error)
		CountUnreadNotifications(ctx context.Context, receiverID string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		// ForUser returns the dashboard of the role of usr.
		ForUser(ctx context.Context, usr user.User) (Dashboard, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

// NowFunc is the clock of the dashboards.
var NowFunc = core.Now

func NewService(repo Repository, logger core.Logger) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{repo: repo, logger: logger}
}

func (svc *service) ForUser(ctx context.Context, usr user.User) (Dashboard, error) {
	var (
		dash Dashboard
		err  error
	)
	switch {
	case usr.IsAdmin():
		dash, err = svc.admin(ctx)
	case usr.IsFaculty():
		dash, err = svc.faculty(ctx, usr)
	default:
		dash, err = svc.student(ctx, usr)
	}
	if err != nil {
		return Dashboard{}, errors.Wrapf(err, "building %s dashboard", usr.Role)
	}
	dash.Role = usr.Role
	return dash, nil
}

func (svc *service) admin(ctx context.Context) (Dashboard, error) {
	byRole, err := svc.repo.CountUsersByRole(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	active, err := svc.repo.CountActiveUsers(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	events, err := svc.repo.CountUpcomingEvents(ctx, NowFunc(), event.VisibleAudiences(user.RoleAdmin))
	if err != nil {
		return Dashboard{}, err
	}

	var total int
	for _, n := range byRole {
		total += n
	}
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.Value)
	}

	return Dashboard{
		Cards: []Card{
			{Key: "users", Label: "Users", Value: float64(total)},
			{Key: "students", Label: "Students", Value: float64(byRole[user.RoleStudent])},
			{Key: "faculty", Label: "Faculty", Value: float64(byRole[user.RoleFaculty])},
			{Key: "active_users", Label: "Active Users", Value: float64(active)},
			{Key: "upcoming_events", Label: "Upcoming Events", Value: float64(events)},
		},
		Charts: []Chart{
			newChart("users_by_role", "Users by Role", KindPie, roles, byRole),
		},
	}, nil
}

func (svc *service) faculty(ctx context.Context, usr user.User) (Dashboard, error) {
	schedules, err := svc.repo.CountSchedules(ctx, usr.ID)
	if err != nil {
		return Dashboard{}, err
	}
	grades, err := svc.repo.CountGrades(ctx, usr.ID)
	if err != nil {
		return Dashboard{}, err
	}
	marked, err := svc.repo.CountAttendanceMarked(ctx, usr.ID, attendance.Day(NowFunc()))
	if err != nil {
		return Dashboard{}, err
	}
	events, err := svc.repo.CountUpcomingEvents(ctx, NowFunc(), event.VisibleAudiences(user.RoleFaculty))
	if err != nil {
		return Dashboard{}, err
	}
	dist, err := svc.repo.GradeDistribution(ctx, usr.ID)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Cards: []Card{
			{Key: "schedules", Label: "My Classes", Value: float64(schedules)},
			{Key: "grades_recorded", Label: "Grades Recorded", Value: float64(grades)},
			{Key: "attendance_today", Label: "Attendance Marked Today", Value: float64(marked)},
			{Key: "upcoming_events", Label: "Upcoming Events", Value: float64(events)},
		},
		Charts: []Chart{
			newChart("grade_distribution", "Grade Distribution", KindBar, GradeBuckets, dist),
		},
	}, nil
}

func (svc *service) student(ctx context.Context, usr user.User) (Dashboard, error) {
	avg, _, err := svc.repo.AverageScore(ctx, usr.ID)
	if err != nil {
		return Dashboard{}, err
	}
	byStatus, err := svc.repo.CountAttendanceByStatus(ctx, usr.ID)
	if err != nil {
		return Dashboard{}, err
	}
	unread, err := svc.repo.CountUnreadNotifications(ctx, usr.ID)
	if err != nil {
		return Dashboard{}, err
	}
	events, err := svc.repo.CountUpcomingEvents(ctx, NowFunc(), event.VisibleAudiences(user.RoleStudent))
	if err != nil {
		return Dashboard{}, err
	}

	att := attendance.SummaryFromCounts(byStatus)
	return Dashboard{
		Cards: []Card{
			{Key: "average_score", Label: "Average Score", Value: float64(int64(avg*100+0.5)) / 100},
			{Key: "attendance_rate", Label: "Attendance Rate", Value: att.Rate, Unit: "%"},
			{Key: "unread_notifications", Label: "Unread Notifications", Value: float64(unread)},
			{Key: "upcoming_events", Label: "Upcoming Events", Value: float64(events)},
		},
		Charts: []Chart{
			newChart("attendance_by_status", "Attendance", KindPie, attendance.AllStatuses, byStatus),
		},
	}, nil
}
