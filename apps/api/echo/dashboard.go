package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func registerDashboardAPI(g *echo.Group, opts *Options) {
	svc := opts.DashboardSvc

	g.GET("/dashboard", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		dash, err := svc.ForUser(ctx.Request().Context(), usr)
		if err != nil {
			return errors.Wrap(err, "building dashboard")
		}
		return ctx.JSON(http.StatusOK, dash)
	})
}
