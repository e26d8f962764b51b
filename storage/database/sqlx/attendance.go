package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

var (
	attendanceColumns = []string{
		"id", "student_id", "faculty_id", "schedule_id", "date", "status", "remarks",
		"created_at", "updated_at",
	}
	attendanceSelect = "SELECT " + strings.Join(attendanceColumns, ", ") + " FROM attendance"

	// on a (student_id, schedule_id, date) conflict, the original id & created_at are kept
	attendanceUpsert = insertStmt("attendance", attendanceColumns) +
		" ON CONFLICT (student_id, schedule_id, date) DO UPDATE SET" +
		" faculty_id = excluded.faculty_id, status = excluded.status, remarks = excluded.remarks, updated_at = excluded.updated_at"

	attendanceOrdering = map[string]string{
		"date":       "date",
		"status":     "status",
		"created_at": "created_at",
	}
	attendanceDefaultOrder = "date DESC, id ASC"
)

type attendanceRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	FacultyID  null.String `db:"faculty_id"`
	ScheduleID string      `db:"schedule_id"`
	Date       time.Time   `db:"date"`
	Status     string      `db:"status"`
	Remarks    null.String `db:"remarks"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r attendanceRow) values() []interface{} {
	return []interface{}{
		r.ID, r.StudentID, r.FacultyID, r.ScheduleID, r.Date, r.Status, r.Remarks,
		r.CreatedAt, r.UpdatedAt,
	}
}

type attendanceRepository struct {
	repo
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{repo{exec: exec}}
}

func (repo attendanceRepository) toRow(r attendance.Record) attendanceRow {
	return attendanceRow{
		ID:         r.ID,
		StudentID:  r.StudentID,
		FacultyID:  nullString(r.FacultyID),
		ScheduleID: r.ScheduleID,
		Date:       attendance.Day(r.Date),
		Status:     r.Status,
		Remarks:    nullString(r.Remarks),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) fromRow(r attendanceRow) attendance.Record {
	return attendance.Record{
		ID:         r.ID,
		StudentID:  r.StudentID,
		FacultyID:  r.FacultyID.String,
		ScheduleID: r.ScheduleID,
		Date:       attendance.Day(r.Date),
		Status:     r.Status,
		Remarks:    r.Remarks.String,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) UpsertRecord(ctx context.Context, r attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	exe := repo.getExec(exec)
	r.ID = uuid.New().String()
	row := repo.toRow(r)
	if _, err := execContext(ctx, exe, attendanceUpsert, row.values()...); err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}

	var saved attendanceRow
	query := attendanceSelect + " WHERE student_id = ? AND schedule_id = ? AND date = ?"
	if err := getContext(ctx, exe, &saved, query, row.StudentID, row.ScheduleID, row.Date); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding upserted attendance record")
	}
	return repo.fromRow(saved), nil
}

func (repo attendanceRepository) GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row attendanceRow
	if err := getContext(ctx, repo.getExec(exec), &row, attendanceSelect+" WHERE id = ?", id); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance record")
	}
	return repo.fromRow(row), nil
}

func (repo attendanceRepository) filter(filter *attendance.QueryFilter) where {
	var w where
	if filter == nil {
		return w
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.ScheduleID != "" {
		w.add("schedule_id = ?", filter.ScheduleID)
	}
	if filter.FacultyID != "" {
		w.add("faculty_id = ?", filter.FacultyID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		w.add("date >= ?", attendance.Day(filter.From))
	}
	if !filter.To.IsZero() {
		w.add("date <= ?", attendance.Day(filter.To))
	}
	return w
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Record, error) {
	w := repo.filter(filter)

	var rows []attendanceRow
	query := attendanceSelect + w.String() + orderBy(ordering, attendanceOrdering, attendanceDefaultOrder)
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}

	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, repo.fromRow(r))
	}
	return records, nil
}

func (repo attendanceRepository) CountByStatus(ctx context.Context, filter *attendance.QueryFilter, exec ...core.DBExecutor) (map[string]int, error) {
	w := repo.filter(filter)

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}
	query := "SELECT status, COUNT(*) AS cnt FROM attendance" + w.String() + " GROUP BY status"
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "counting attendance records")
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (repo attendanceRepository) DeleteRecord(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.ErrNotFound
	}
	cnt, err := execContext(ctx, repo.getExec(exec), "DELETE FROM attendance WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	if cnt == 0 {
		return attendance.ErrNotFound
	}
	return nil
}
