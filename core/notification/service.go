package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("notification not found")
	ErrInvalidReceiver  = errors.New("receiver must be an active user")
	ErrNoActiveReceiver = errors.New("no active user to notify")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		QueryNotifications(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Notification, error)
		CountUnread(ctx context.Context, receiverID string, exec ...core.DBExecutor) (int, error)
		// MarkRead marks the unread Notifications of receiverID as read at readAt; all of them when ids is empty.
		MarkRead(ctx context.Context, receiverID string, ids []string, readAt time.Time, exec ...core.DBExecutor) (int, error)
		// DeleteNotification deletes the Notification id if it belongs to receiverID.
		DeleteNotification(ctx context.Context, receiverID, id string, exec ...core.DBExecutor) error
		// DeleteRead deletes the read Notifications read before readBefore.
		DeleteRead(ctx context.Context, readBefore time.Time, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		// Send notifies the receiver of nn and e-mails it; sender is nil for system notifications.
		Send(ctx context.Context, sender *user.User, nn NewNotification) (Notification, error)
		// Broadcast notifies every active user targeted by b, in a single transaction.
		Broadcast(ctx context.Context, sender *user.User, b Broadcast) (int, error)
		ListForUser(ctx context.Context, usr user.User, unreadOnly bool, limit int) ([]Notification, error)
		UnreadCount(ctx context.Context, usr user.User) (int, error)
		MarkRead(ctx context.Context, usr user.User, id string) error
		MarkAllRead(ctx context.Context, usr user.User) (int, error)
		Delete(ctx context.Context, usr user.User, id string) error
		// PurgeRead deletes the Notifications read more than olderThan ago.
		PurgeRead(ctx context.Context, olderThan time.Duration) (int, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, usrSvc user.Service, mailSvc core.EmailService, logger core.Logger) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrSvc, "usrSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{db: db, repo: repo, usrSvc: usrSvc, mailSvc: mailSvc, logger: logger}
}

func senderID(sender *user.User) string {
	if sender == nil {
		return ""
	}
	return sender.ID
}

func (svc *service) Send(ctx context.Context, sender *user.User, nn NewNotification) (Notification, error) {
	receiver, err := svc.usrSvc.GetByID(ctx, nn.ReceiverID)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return Notification{}, errors.Wrap(err, "finding receiver")
	}
	if err != nil || !receiver.IsActive {
		return Notification{}, core.NewValidationError(ErrInvalidReceiver, core.FieldError{Field: "receiver_id", Error: ErrInvalidReceiver.Error()})
	}

	n, err := svc.repo.CreateNotification(ctx, Notification{
		SenderID:   senderID(sender),
		ReceiverID: receiver.ID,
		Title:      nn.Title,
		Message:    nn.Message,
		Link:       nn.Link,
		CreatedAt:  core.Now(),
	})
	if err != nil {
		return Notification{}, err
	}

	if receiver.Email != "" {
		svc.mailSvc.SendMessages(newEmail(receiver, n))
	}
	return n, nil
}

func (svc *service) Broadcast(ctx context.Context, sender *user.User, b Broadcast) (int, error) {
	active := true
	filter := &user.QueryFilter{IsActive: &active}
	if b.Role != "" {
		filter.Roles = []string{b.Role}
	}
	receivers, err := svc.usrSvc.Query(ctx, filter, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying receivers")
	}
	if len(receivers) == 0 {
		return 0, ErrNoActiveReceiver
	}

	now := core.Now()
	sent := make([]Notification, 0, len(receivers))
	err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		for _, r := range receivers {
			n, err := svc.repo.CreateNotification(ctx, Notification{
				SenderID:   senderID(sender),
				ReceiverID: r.ID,
				Title:      b.Title,
				Message:    b.Message,
				Link:       b.Link,
				CreatedAt:  now,
			}, tx)
			if err != nil {
				return err
			}
			sent = append(sent, n)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "broadcasting notification")
	}

	msgs := make([]*core.EmailMessage, 0, len(receivers))
	for i, r := range receivers {
		if r.Email != "" {
			msgs = append(msgs, newEmail(r, sent[i]))
		}
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return len(sent), nil
}

func (svc *service) ListForUser(ctx context.Context, usr user.User, unreadOnly bool, limit int) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{ReceiverID: usr.ID, UnreadOnly: unreadOnly, Limit: limit})
}

func (svc *service) UnreadCount(ctx context.Context, usr user.User) (int, error) {
	return svc.repo.CountUnread(ctx, usr.ID)
}

func (svc *service) MarkRead(ctx context.Context, usr user.User, id string) error {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.ReceiverID != usr.ID {
		return ErrNotFound
	}
	if n.IsRead {
		return nil
	}
	_, err = svc.repo.MarkRead(ctx, usr.ID, []string{id}, core.Now())
	return err
}

func (svc *service) MarkAllRead(ctx context.Context, usr user.User) (int, error) {
	return svc.repo.MarkRead(ctx, usr.ID, nil, core.Now())
}

func (svc *service) Delete(ctx context.Context, usr user.User, id string) error {
	return svc.repo.DeleteNotification(ctx, usr.ID, id)
}

func (svc *service) PurgeRead(ctx context.Context, olderThan time.Duration) (int, error) {
	return svc.repo.DeleteRead(ctx, core.Now().Add(-olderThan))
}

type emailData struct {
	Name    string
	Title   string
	Message string
	Link    string
}

func newEmail(receiver user.User, n Notification) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: receiver.Name, Address: receiver.Email}},
		Subject:      n.Title,
		TemplateName: "notification",
		TemplateData: emailData{
			Name:    receiver.Name,
			Title:   n.Title,
			Message: n.Message,
			Link:    n.Link,
		},
	}
}
