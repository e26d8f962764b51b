package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/event"
)

var (
	eventColumns = []string{
		"id", "title", "description", "location", "start_at", "end_at", "audience", "created_by",
		"created_at", "updated_at",
	}
	eventSelect = "SELECT " + strings.Join(eventColumns, ", ") + " FROM events"

	eventOrdering = map[string]string{
		"title":      "title",
		"location":   "location",
		"start_at":   "start_at",
		"end_at":     "end_at",
		"audience":   "audience",
		"created_at": "created_at",
	}
)

type eventRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	Location    null.String `db:"location"`
	StartAt     time.Time   `db:"start_at"`
	EndAt       null.Time   `db:"end_at"`
	Audience    string      `db:"audience"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r eventRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Title, r.Description, r.Location, r.StartAt, r.EndAt, r.Audience, r.CreatedBy,
		r.CreatedAt, r.UpdatedAt,
	}
}

type eventRepository struct {
	repo
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(exec core.DBExecutor) *eventRepository {
	return &eventRepository{repo{exec: exec}}
}

func (repo eventRepository) toRow(ev event.Event) eventRow {
	return eventRow{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: nullString(ev.Description),
		Location:    nullString(ev.Location),
		StartAt:     ev.StartAt.UTC(),
		EndAt:       nullTime(ev.EndAt),
		Audience:    ev.Audience,
		CreatedBy:   nullString(ev.CreatedBy),
		CreatedAt:   ev.CreatedAt.UTC(),
		UpdatedAt:   ev.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) fromRow(r eventRow) event.Event {
	return event.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		Location:    r.Location.String,
		StartAt:     r.StartAt.UTC(),
		EndAt:       timePtr(r.EndAt),
		Audience:    r.Audience,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) CreateEvent(ctx context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	ev.ID = uuid.New().String()
	row := repo.toRow(ev)
	if _, err := execContext(ctx, repo.getExec(exec), insertStmt("events", eventColumns), row.values()...); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return repo.fromRow(row), nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}
	var row eventRow
	if err := getContext(ctx, repo.getExec(exec), &row, eventSelect+" WHERE id = ?", id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return repo.fromRow(row), nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, limit int, exec ...core.DBExecutor) ([]event.Event, error) {
	var w where

	if filter != nil {
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			w.add("(LOWER(title) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?)", val, val, val)
		}
		if !filter.From.IsZero() {
			w.add("COALESCE(end_at, start_at) >= ?", filter.From.UTC())
		}
		if !filter.To.IsZero() {
			w.add("start_at <= ?", filter.To.UTC())
		}
		if filter.Audiences != nil {
			w.add("audience IN (?)", filter.Audiences)
		}
	}

	query := eventSelect + w.String() + orderBy(ordering, eventOrdering, "start_at ASC, id ASC")
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	var rows []eventRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, repo.fromRow(r))
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	row := repo.toRow(ev)
	query := "UPDATE events SET " + setList(eventColumns[1:]) + " WHERE id = ?"
	cnt, err := execContext(ctx, repo.getExec(exec), query, append(row.values()[1:], row.ID)...)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if cnt == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return event.ErrNotFound
	}
	cnt, err := execContext(ctx, repo.getExec(exec), "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if cnt == 0 {
		return event.ErrNotFound
	}
	return nil
}
