package echoapi

import (
	"bytes"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grade"
)

const (
	xlsxMIME          = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	gradesExportName  = "grades.xlsx"
	studentIDRequired = "student_id is required"
)

type gradeApi struct {
	svc      grade.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, opts *Options) {
	api := gradeApi{svc: opts.GradeSvc, validate: opts.Validate}

	gg := g.Group("/grades")
	gg.GET("", api.query)
	gg.POST("", api.record, facultyOrAdmin())
	gg.GET("/summary", api.summary)
	gg.GET("/export", api.export, facultyOrAdmin())
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update, facultyOrAdmin())
	gg.DELETE("/:id", api.destroy, facultyOrAdmin())
}

func (api *gradeApi) bindFilter(ctx echo.Context) (*grade.QueryFilter, error) {
	filter := new(grade.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	return filter, nil
}

func (api *gradeApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	grades, err := api.svc.ForUser(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) record(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data grade.NewGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	g, err := api.svc.Record(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "recording grade")
	}
	return ctx.JSON(http.StatusCreated, g)
}

// summary aggregates the grades of the student_id query param; students always get their own.
func (api *gradeApi) summary(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	studentID := core.CleanString(ctx.QueryParam("student_id"))
	if usr.IsStudent() {
		studentID = usr.ID
	} else if studentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: studentIDRequired})
	}

	sum, err := api.svc.Summary(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "summarizing grades")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *gradeApi) export(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	if usr.IsFaculty() {
		filter.FacultyID = usr.ID
	}

	var buf bytes.Buffer
	if err = api.svc.Export(ctx.Request().Context(), &buf, filter); err != nil {
		return errors.Wrap(err, "exporting grades")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+gradesExportName+`"`)
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

// get returns the Grade of the "id" path param when the context User may see it.
func (api *gradeApi) get(ctx echo.Context) (grade.Grade, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return grade.Grade{}, err
	}
	g, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "finding grade by ID")
	}

	switch {
	case usr.IsAdmin():
	case usr.IsFaculty() && g.FacultyID == usr.ID:
	case usr.IsStudent() && g.StudentID == usr.ID:
	default:
		return grade.Grade{}, errHttpNotFound
	}
	return g, nil
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	g, err := api.get(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) update(ctx echo.Context) error {
	g, err := api.get(ctx)
	if err != nil {
		return err
	}

	var data grade.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if g, err = api.svc.Update(ctx.Request().Context(), g, data); err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	g, err := api.get(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), g.ID); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}
