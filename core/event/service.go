package event

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("event not found")
	ErrInvalidPeriod = errors.New("invalid period")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, limit int, exec ...core.DBExecutor) ([]Event, error)
		UpdateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, creator user.User, ne NewEvent) (Event, error)
		// GetByID returns the Event when it is visible to viewer.
		GetByID(ctx context.Context, viewer user.User, id string) (Event, error)
		Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		// Upcoming returns the next limit Events, visible to viewer, not yet ended.
		Upcoming(ctx context.Context, viewer user.User, limit int) ([]Event, error)
		Update(ctx context.Context, ev Event, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{repo: repo, logger: logger}
}

func (svc *service) Create(ctx context.Context, creator user.User, ne NewEvent) (Event, error) {
	now := core.Now()
	ev := Event{
		Title:       ne.Title,
		Description: ne.Description,
		Location:    ne.Location,
		StartAt:     ne.StartAt.UTC(),
		Audience:    ne.Audience,
		CreatedBy:   creator.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ne.EndAt != nil {
		end := ne.EndAt.UTC()
		ev.EndAt = &end
	}
	return svc.repo.CreateEvent(ctx, ev)
}

func (svc *service) GetByID(ctx context.Context, viewer user.User, id string) (Event, error) {
	ev, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !ev.VisibleTo(viewer.Role) {
		return Event{}, ErrNotFound
	}
	return ev, nil
}

func (svc *service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Audiences = VisibleAudiences(viewer.Role)
	return svc.repo.QueryEvents(ctx, filter, ordering, 0)
}

func (svc *service) Upcoming(ctx context.Context, viewer user.User, limit int) ([]Event, error) {
	filter := &QueryFilter{
		From:      time.Now().UTC(),
		Audiences: VisibleAudiences(viewer.Role),
	}
	ordering := []core.DBOrdering{{Field: "start_at", Ascending: true}}
	return svc.repo.QueryEvents(ctx, filter, ordering, limit)
}

func (svc *service) Update(ctx context.Context, ev Event, ue UpdateEvent) (Event, error) {
	if ue.Title != nil {
		ev.Title = core.CleanString(*ue.Title)
	}
	if ue.Description != nil {
		ev.Description = core.CleanString(*ue.Description)
	}
	if ue.Location != nil {
		ev.Location = core.CleanString(*ue.Location)
	}
	if ue.StartAt != nil {
		ev.StartAt = ue.StartAt.UTC()
	}
	if ue.EndAt != nil {
		end := ue.EndAt.UTC()
		ev.EndAt = &end
	}
	if ue.ClearEndAt {
		ev.EndAt = nil
	}
	if ue.Audience != nil {
		ev.Audience = *ue.Audience
	}
	ev.UpdatedAt = core.Now()
	return svc.repo.UpdateEvent(ctx, ev)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEvent(ctx, id)
}
