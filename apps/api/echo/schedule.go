package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/schedule"
)

type scheduleApi struct {
	svc      schedule.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, opts *Options) {
	api := scheduleApi{svc: opts.ScheduleSvc, validate: opts.Validate}

	sg := g.Group("/schedules")
	sg.GET("", api.query, adminOnly())
	sg.GET("/mine", api.mine)
	sg.POST("", api.create, adminOnly())
	sg.GET("/:id", api.retrieve, facultyOrAdmin())
	sg.PUT("/:id", api.update, adminOnly())
	sg.DELETE("/:id", api.destroy, adminOnly())
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	scheds, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if scheds == nil {
		scheds = []schedule.Schedule{}
	}
	return ctx.JSON(http.StatusOK, scheds)
}

// mine lists the Schedules of the context User: taught ones for faculty, targeted ones for students.
func (api *scheduleApi) mine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	scheds, err := api.svc.ForUser(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if scheds == nil {
		scheds = []schedule.Schedule{}
	}
	return ctx.JSON(http.StatusOK, scheds)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule by ID")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if !usr.IsAdmin() && s.TeacherID != usr.ID {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule by ID")
	}

	var data schedule.UpdateSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err = data.Validate(s, api.validate); err != nil {
		return err
	}

	if s, err = api.svc.Update(ctx.Request().Context(), s, data); err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}
