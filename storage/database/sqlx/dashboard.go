package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/dashboard"
)

// gradeBucketExpr maps a score to its dashboard.GradeBuckets label.
const gradeBucketExpr = "CASE" +
	" WHEN score >= 90 THEN '90-100'" +
	" WHEN score >= 80 THEN '80-89'" +
	" WHEN score >= 70 THEN '70-79'" +
	" WHEN score >= 60 THEN '60-69'" +
	" ELSE '0-59' END"

type dashboardRepository struct {
	repo
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{repo{exec: exec}}
}

type groupCount struct {
	Key   string `db:"k"`
	Count int    `db:"cnt"`
}

func (repo dashboardRepository) count(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) (int, error) {
	var cnt int
	if err := getContext(ctx, exe, &cnt, query, args...); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (repo dashboardRepository) groupCounts(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) (map[string]int, error) {
	var rows []groupCount
	if err := selectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.Count
	}
	return counts, nil
}

func (repo dashboardRepository) CountUsersByRole(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	counts, err := repo.groupCounts(ctx, repo.getExec(exec), "SELECT role AS k, COUNT(*) AS cnt FROM users GROUP BY role")
	return counts, errors.Wrap(err, "counting users by role")
}

func (repo dashboardRepository) CountActiveUsers(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	cnt, err := repo.count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM users WHERE is_active = ?", true)
	return cnt, errors.Wrap(err, "counting active users")
}

func (repo dashboardRepository) CountUpcomingEvents(ctx context.Context, from time.Time, audiences []string, exec ...core.DBExecutor) (int, error) {
	var w where
	w.add("COALESCE(end_at, start_at) >= ?", from.UTC())
	if audiences != nil {
		w.add("audience IN (?)", audiences)
	}
	cnt, err := repo.count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM events"+w.String(), w.args...)
	return cnt, errors.Wrap(err, "counting upcoming events")
}

func (repo dashboardRepository) CountSchedules(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int, error) {
	cnt, err := repo.count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM schedules WHERE teacher_id = ?", teacherID)
	return cnt, errors.Wrap(err, "counting schedules")
}

func (repo dashboardRepository) CountGrades(ctx context.Context, facultyID string, exec ...core.DBExecutor) (int, error) {
	cnt, err := repo.count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM grades WHERE faculty_id = ?", facultyID)
	return cnt, errors.Wrap(err, "counting grades")
}

func (repo dashboardRepository) CountAttendanceMarked(ctx context.Context, facultyID string, date time.Time, exec ...core.DBExecutor) (int, error) {
	query := "SELECT COUNT(*) FROM attendance WHERE faculty_id = ? AND date = ?"
	cnt, err := repo.count(ctx, repo.getExec(exec), query, facultyID, attendance.Day(date))
	return cnt, errors.Wrap(err, "counting attendance marked")
}

func (repo dashboardRepository) GradeDistribution(ctx context.Context, facultyID string, exec ...core.DBExecutor) (map[string]int, error) {
	query := "SELECT " + gradeBucketExpr + " AS k, COUNT(*) AS cnt FROM grades WHERE faculty_id = ? GROUP BY k"
	counts, err := repo.groupCounts(ctx, repo.getExec(exec), query, facultyID)
	return counts, errors.Wrap(err, "computing grade distribution")
}

func (repo dashboardRepository) AverageScore(ctx context.Context, studentID string, exec ...core.DBExecutor) (float64, int, error) {
	var res struct {
		Average float64 `db:"average"`
		Count   int     `db:"cnt"`
	}
	query := "SELECT COALESCE(AVG(score), 0) AS average, COUNT(*) AS cnt FROM grades WHERE student_id = ?"
	if err := getContext(ctx, repo.getExec(exec), &res, query, studentID); err != nil {
		return 0, 0, errors.Wrap(err, "computing average score")
	}
	return res.Average, res.Count, nil
}

func (repo dashboardRepository) CountAttendanceByStatus(ctx context.Context, studentID string, exec ...core.DBExecutor) (map[string]int, error) {
	query := "SELECT status AS k, COUNT(*) AS cnt FROM attendance WHERE student_id = ? GROUP BY status"
	counts, err := repo.groupCounts(ctx, repo.getExec(exec), query, studentID)
	return counts, errors.Wrap(err, "counting attendance by status")
}

func (repo dashboardRepository) CountUnreadNotifications(ctx context.Context, receiverID string, exec ...core.DBExecutor) (int, error) {
	query := "SELECT COUNT(*) FROM notifications WHERE receiver_id = ? AND is_read = ?"
	cnt, err := repo.count(ctx, repo.getExec(exec), query, receiverID, false)
	return cnt, errors.Wrap(err, "counting unread notifications")
}
