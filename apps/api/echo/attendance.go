package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/user"
)

type attendanceApi struct {
	svc      attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, opts *Options) {
	api := attendanceApi{svc: opts.AttendanceSvc, validate: opts.Validate}

	ag := g.Group("/attendance")
	ag.GET("", api.query)
	ag.POST("", api.mark, facultyOrAdmin())
	ag.GET("/summary", api.summary)
	ag.GET("/:id", api.retrieve)
	ag.DELETE("/:id", api.destroy, facultyOrAdmin())
}

func (api *attendanceApi) bindFilter(ctx echo.Context) (*attendance.QueryFilter, error) {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to QueryFilter")
	}

	var err error
	if filter.From, err = queryTime(ctx, "from"); err != nil {
		return nil, err
	}
	if filter.To, err = queryTime(ctx, "to"); err != nil {
		return nil, err
	}
	filter.Clean()
	return filter, nil
}

func (api *attendanceApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	records, err := api.svc.ForUser(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data attendance.MarkAttendance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendance")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	records, err := api.svc.Mark(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, records)
}

// summary counts the records matching the query; faculty are limited to the ones they marked, students to their own.
func (api *attendanceApi) summary(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	switch usr.Role {
	case user.RoleFaculty:
		filter.FacultyID = usr.ID
	case user.RoleStudent:
		filter.StudentID = usr.ID
	}

	sum, err := api.svc.Summary(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}

// get returns the Record of the "id" path param when the context User may see it.
func (api *attendanceApi) get(ctx echo.Context) (attendance.Record, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return attendance.Record{}, err
	}
	rec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "finding attendance record by ID")
	}

	switch {
	case usr.IsAdmin():
	case usr.IsFaculty() && rec.FacultyID == usr.ID:
	case usr.IsStudent() && rec.StudentID == usr.ID:
	default:
		return attendance.Record{}, errHttpNotFound
	}
	return rec, nil
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.get(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	rec, err := api.get(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), rec.ID); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}
