package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/event"
)

const defaultUpcomingLimit = 5

type eventApi struct {
	svc      event.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, opts *Options) {
	api := eventApi{svc: opts.EventSvc, validate: opts.Validate}

	eg := g.Group("/events")
	eg.GET("", api.query)
	eg.GET("/upcoming", api.upcoming)
	eg.POST("", api.create, adminOnly())
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, adminOnly())
	eg.DELETE("/:id", api.destroy, adminOnly())
}

func (api *eventApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	filter := &event.QueryFilter{Search: ctx.QueryParam("search")}
	filter.Clean()
	if filter.From, err = queryTime(ctx, "from"); err != nil {
		return err
	}
	if filter.To, err = queryTime(ctx, "to"); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) upcoming(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	limit, err := queryInt(ctx, "limit", defaultUpcomingLimit)
	if err != nil {
		return err
	}

	events, err := api.svc.Upcoming(ctx.Request().Context(), usr, limit)
	if err != nil {
		return errors.Wrap(err, "querying upcoming events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data event.NewEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ev, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *eventApi) get(ctx echo.Context) (event.Event, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return event.Event{}, err
	}
	ev, err := api.svc.GetByID(ctx.Request().Context(), usr, ctx.Param("id"))
	return ev, errors.Wrap(err, "finding event by ID")
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	ev, err := api.get(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) update(ctx echo.Context) error {
	ev, err := api.get(ctx)
	if err != nil {
		return err
	}

	var data event.UpdateEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err = data.Validate(ev, api.validate); err != nil {
		return err
	}

	if ev, err = api.svc.Update(ctx.Request().Context(), ev, data); err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}
