package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

var (
	notificationColumns = []string{
		"id", "sender_id", "receiver_id", "title", "message", "link", "is_read", "read_at", "created_at",
	}
	notificationSelect = "SELECT " + strings.Join(notificationColumns, ", ") + " FROM notifications"
)

type notificationRow struct {
	ID         string      `db:"id"`
	SenderID   null.String `db:"sender_id"`
	ReceiverID string      `db:"receiver_id"`
	Title      string      `db:"title"`
	Message    string      `db:"message"`
	Link       null.String `db:"link"`
	IsRead     bool        `db:"is_read"`
	ReadAt     null.Time   `db:"read_at"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (r notificationRow) values() []interface{} {
	return []interface{}{
		r.ID, r.SenderID, r.ReceiverID, r.Title, r.Message, r.Link, r.IsRead, r.ReadAt, r.CreatedAt,
	}
}

type notificationRepository struct {
	repo
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{repo{exec: exec}}
}

func (repo notificationRepository) toRow(n notification.Notification) notificationRow {
	return notificationRow{
		ID:         n.ID,
		SenderID:   nullString(n.SenderID),
		ReceiverID: n.ReceiverID,
		Title:      n.Title,
		Message:    n.Message,
		Link:       nullString(n.Link),
		IsRead:     n.IsRead,
		ReadAt:     nullTime(n.ReadAt),
		CreatedAt:  n.CreatedAt.UTC(),
	}
}

func (repo notificationRepository) fromRow(r notificationRow) notification.Notification {
	return notification.Notification{
		ID:         r.ID,
		SenderID:   r.SenderID.String,
		ReceiverID: r.ReceiverID,
		Title:      r.Title,
		Message:    r.Message,
		Link:       r.Link.String,
		IsRead:     r.IsRead,
		ReadAt:     timePtr(r.ReadAt),
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	n.ID = uuid.New().String()
	row := repo.toRow(n)
	if _, err := execContext(ctx, repo.getExec(exec), insertStmt("notifications", notificationColumns), row.values()...); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return repo.fromRow(row), nil
}

func (repo notificationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := getContext(ctx, repo.getExec(exec), &row, notificationSelect+" WHERE id = ?", id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification")
	}
	return repo.fromRow(row), nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	var w where
	if filter.ReceiverID != "" {
		w.add("receiver_id = ?", filter.ReceiverID)
	}
	if filter.UnreadOnly {
		w.add("is_read = ?", false)
	}

	query := notificationSelect + w.String() + " ORDER BY created_at DESC, id ASC"
	args := w.args
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []notificationRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}

	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, repo.fromRow(r))
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, receiverID string, exec ...core.DBExecutor) (int, error) {
	var cnt int
	query := "SELECT COUNT(*) FROM notifications WHERE receiver_id = ? AND is_read = ?"
	if err := getContext(ctx, repo.getExec(exec), &cnt, query, receiverID, false); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return cnt, nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, receiverID string, ids []string, readAt time.Time, exec ...core.DBExecutor) (int, error) {
	query := "UPDATE notifications SET is_read = ?, read_at = ? WHERE receiver_id = ? AND is_read = ?"
	args := []interface{}{true, readAt.UTC(), receiverID, false}
	if len(ids) > 0 {
		query += " AND id IN (?)"
		args = append(args, ids)
	}
	cnt, err := execContext(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications as read")
	}
	return int(cnt), nil
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, receiverID, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return notification.ErrNotFound
	}
	cnt, err := execContext(ctx, repo.getExec(exec), "DELETE FROM notifications WHERE id = ? AND receiver_id = ?", id, receiverID)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if cnt == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo notificationRepository) DeleteRead(ctx context.Context, readBefore time.Time, exec ...core.DBExecutor) (int, error) {
	query := "DELETE FROM notifications WHERE is_read = ? AND read_at < ?"
	cnt, err := execContext(ctx, repo.getExec(exec), query, true, readBefore.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging read notifications")
	}
	return int(cnt), nil
}
