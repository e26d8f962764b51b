package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grade"
)

var (
	gradeColumns = []string{
		"id", "student_id", "faculty_id", "subject", "term", "score", "remarks",
		"created_at", "updated_at",
	}
	gradeSelect = "SELECT " + strings.Join(gradeColumns, ", ") + " FROM grades"

	// on a (student_id, subject, term) conflict, the original id & created_at are kept
	gradeUpsert = insertStmt("grades", gradeColumns) +
		" ON CONFLICT (student_id, subject, term) DO UPDATE SET" +
		" faculty_id = excluded.faculty_id, score = excluded.score, remarks = excluded.remarks, updated_at = excluded.updated_at"

	gradeOrdering = map[string]string{
		"subject":    "subject",
		"term":       "term",
		"score":      "score",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	gradeDefaultOrder = "term ASC, subject ASC, id ASC"
)

type gradeRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	FacultyID null.String `db:"faculty_id"`
	Subject   string      `db:"subject"`
	Term      string      `db:"term"`
	Score     float64     `db:"score"`
	Remarks   null.String `db:"remarks"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r gradeRow) values() []interface{} {
	return []interface{}{
		r.ID, r.StudentID, r.FacultyID, r.Subject, r.Term, r.Score, r.Remarks,
		r.CreatedAt, r.UpdatedAt,
	}
}

type gradeRepository struct {
	repo
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{repo{exec: exec}}
}

func (repo gradeRepository) toRow(g grade.Grade) gradeRow {
	return gradeRow{
		ID:        g.ID,
		StudentID: g.StudentID,
		FacultyID: nullString(g.FacultyID),
		Subject:   g.Subject,
		Term:      g.Term,
		Score:     g.Score,
		Remarks:   nullString(g.Remarks),
		CreatedAt: g.CreatedAt.UTC(),
		UpdatedAt: g.UpdatedAt.UTC(),
	}
}

func (repo gradeRepository) fromRow(r gradeRow) grade.Grade {
	return grade.Grade{
		ID:        r.ID,
		StudentID: r.StudentID,
		FacultyID: r.FacultyID.String,
		Subject:   r.Subject,
		Term:      r.Term,
		Score:     r.Score,
		Remarks:   r.Remarks.String,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (repo gradeRepository) UpsertGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	exe := repo.getExec(exec)
	g.ID = uuid.New().String()
	row := repo.toRow(g)
	if _, err := execContext(ctx, exe, gradeUpsert, row.values()...); err != nil {
		return grade.Grade{}, errors.Wrap(err, "upserting grade")
	}

	var saved gradeRow
	query := gradeSelect + " WHERE student_id = ? AND subject = ? AND term = ?"
	if err := getContext(ctx, exe, &saved, query, row.StudentID, row.Subject, row.Term); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound, "finding upserted grade")
	}
	return repo.fromRow(saved), nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, id string, exec ...core.DBExecutor) (grade.Grade, error) {
	if _, err := uuid.Parse(id); err != nil {
		return grade.Grade{}, grade.ErrNotFound
	}
	var row gradeRow
	if err := getContext(ctx, repo.getExec(exec), &row, gradeSelect+" WHERE id = ?", id); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound, "finding grade")
	}
	return repo.fromRow(row), nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter *grade.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]grade.Grade, error) {
	var w where

	if filter != nil {
		if filter.StudentID != "" {
			w.add("student_id = ?", filter.StudentID)
		}
		if filter.FacultyID != "" {
			w.add("faculty_id = ?", filter.FacultyID)
		}
		if filter.Subject != "" {
			w.add("LOWER(subject) = ?", strings.ToLower(filter.Subject))
		}
		if filter.Term != "" {
			w.add("term = ?", filter.Term)
		}
	}

	var rows []gradeRow
	query := gradeSelect + w.String() + orderBy(ordering, gradeOrdering, gradeDefaultOrder)
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}

	grades := make([]grade.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, repo.fromRow(r))
	}
	return grades, nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	row := repo.toRow(g)
	cols := []string{"faculty_id", "score", "remarks", "updated_at"}
	query := "UPDATE grades SET " + setList(cols) + " WHERE id = ?"
	cnt, err := execContext(ctx, repo.getExec(exec), query, row.FacultyID, row.Score, row.Remarks, row.UpdatedAt, row.ID)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	if cnt == 0 {
		return grade.Grade{}, grade.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return grade.ErrNotFound
	}
	cnt, err := execContext(ctx, repo.getExec(exec), "DELETE FROM grades WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if cnt == 0 {
		return grade.ErrNotFound
	}
	return nil
}
