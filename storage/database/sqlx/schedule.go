package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/user"
)

var (
	scheduleColumns = []string{
		"id", "teacher_id", "subject", "room", "day_of_week", "start_time", "end_time",
		"target_course", "target_year_level", "target_section",
		"created_at", "updated_at",
	}
	scheduleSelect = "SELECT " + strings.Join(scheduleColumns, ", ") + " FROM schedules"

	scheduleOrdering = map[string]string{
		"subject":     "subject",
		"room":        "room",
		"day_of_week": "day_of_week",
		"start_time":  "start_time",
		"created_at":  "created_at",
	}
	scheduleDefaultOrder = "day_of_week ASC, start_time ASC, id ASC"
)

type scheduleRow struct {
	ID              string      `db:"id"`
	TeacherID       string      `db:"teacher_id"`
	Subject         string      `db:"subject"`
	Room            null.String `db:"room"`
	DayOfWeek       int         `db:"day_of_week"`
	StartTime       string      `db:"start_time"`
	EndTime         string      `db:"end_time"`
	TargetCourse    null.String `db:"target_course"`
	TargetYearLevel null.Int    `db:"target_year_level"`
	TargetSection   null.String `db:"target_section"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (r scheduleRow) values() []interface{} {
	return []interface{}{
		r.ID, r.TeacherID, r.Subject, r.Room, r.DayOfWeek, r.StartTime, r.EndTime,
		r.TargetCourse, r.TargetYearLevel, r.TargetSection,
		r.CreatedAt, r.UpdatedAt,
	}
}

type scheduleRepository struct {
	repo
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor) *scheduleRepository {
	return &scheduleRepository{repo{exec: exec}}
}

func (repo scheduleRepository) toRow(s schedule.Schedule) scheduleRow {
	return scheduleRow{
		ID:              s.ID,
		TeacherID:       s.TeacherID,
		Subject:         s.Subject,
		Room:            nullString(s.Room),
		DayOfWeek:       s.DayOfWeek,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		TargetCourse:    null.StringFromPtr(s.Targeting.Course),
		TargetYearLevel: nullInt(s.Targeting.YearLevel),
		TargetSection:   null.StringFromPtr(s.Targeting.Section),
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}
}

func (repo scheduleRepository) fromRow(r scheduleRow) schedule.Schedule {
	return schedule.Schedule{
		ID:        r.ID,
		TeacherID: r.TeacherID,
		Subject:   r.Subject,
		Room:      r.Room.String,
		DayOfWeek: r.DayOfWeek,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Targeting: schedule.Targeting{
			Course:    r.TargetCourse.Ptr(),
			YearLevel: intPtr(r.TargetYearLevel),
			Section:   r.TargetSection.Ptr(),
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (repo scheduleRepository) fromRows(rows []scheduleRow) []schedule.Schedule {
	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, r := range rows {
		schedules = append(schedules, repo.fromRow(r))
	}
	return schedules
}

func (repo scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	s.ID = uuid.New().String()
	row := repo.toRow(s)
	if _, err := execContext(ctx, repo.getExec(exec), insertStmt("schedules", scheduleColumns), row.values()...); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return repo.fromRow(row), nil
}

func (repo scheduleRepository) GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	var row scheduleRow
	if err := getContext(ctx, repo.getExec(exec), &row, scheduleSelect+" WHERE id = ?", id); err != nil {
		return schedule.Schedule{}, trapNoRowsErr(err, schedule.ErrNotFound, "finding schedule")
	}
	return repo.fromRow(row), nil
}

func (repo scheduleRepository) QuerySchedules(ctx context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]schedule.Schedule, error) {
	var w where

	if filter != nil {
		if filter.TeacherID != "" {
			w.add("teacher_id = ?", filter.TeacherID)
		}
		if filter.DayOfWeek != nil {
			w.add("day_of_week = ?", *filter.DayOfWeek)
		}
		if filter.Subject != "" {
			w.add("LOWER(subject) LIKE ?", "%"+strings.ToLower(filter.Subject)+"%")
		}
	}

	var rows []scheduleRow
	query := scheduleSelect + w.String() + orderBy(ordering, scheduleOrdering, scheduleDefaultOrder)
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	return repo.fromRows(rows), nil
}

func (repo scheduleRepository) QueryTargetedSchedules(ctx context.Context, profile user.Profile, exec ...core.DBExecutor) ([]schedule.Schedule, error) {
	// a NULL criterion matches every student; a NULL profile field only matches NULL criteria
	var w where
	w.add("(target_course IS NULL OR target_course = ?)", nullString(profile.Course))
	w.add("(target_year_level IS NULL OR target_year_level = ?)", nullInt(profile.YearLevel))
	w.add("(target_section IS NULL OR target_section = ?)", nullString(profile.Section))

	var rows []scheduleRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, scheduleSelect+w.String()+" ORDER BY "+scheduleDefaultOrder, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying targeted schedules")
	}
	return repo.fromRows(rows), nil
}

func (repo scheduleRepository) UpdateSchedule(ctx context.Context, s schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	row := repo.toRow(s)
	query := "UPDATE schedules SET " + setList(scheduleColumns[1:]) + " WHERE id = ?"
	cnt, err := execContext(ctx, repo.getExec(exec), query, append(row.values()[1:], row.ID)...)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if cnt == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo scheduleRepository) DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.ErrNotFound
	}
	cnt, err := execContext(ctx, repo.getExec(exec), "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if cnt == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
