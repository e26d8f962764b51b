package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Notification struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"` // empty for system notifications
	ReceiverID string     `json:"receiver_id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Link       string     `json:"link"` // path relative to the frontend base URL
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type NewNotification struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Title      string `json:"title" validate:"required,max=200"`
	Message    string `json:"message" validate:"required"`
	Link       string `json:"link" validate:"max=255"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.ReceiverID = core.CleanString(nn.ReceiverID)
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	nn.Link = core.CleanString(nn.Link)
	return validate.Struct(nn)
}

// Broadcast sends a Notification to every active user of Role, or to every active user when Role is empty.
type Broadcast struct {
	Role    string `json:"role" validate:"omitempty,role"`
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
	Link    string `json:"link" validate:"max=255"`
}

func (b *Broadcast) Validate(validate *validator.Validate) error {
	b.Role = core.CleanString(b.Role, true /* lower */)
	b.Title = core.CleanString(b.Title)
	b.Message = core.CleanString(b.Message)
	b.Link = core.CleanString(b.Link)
	return validate.Struct(b)
}

type QueryFilter struct {
	ReceiverID string
	UnreadOnly bool
	Limit      int
}
