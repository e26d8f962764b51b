package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/notification"
)

const defaultNotificationsLimit = 50

type notificationApi struct {
	svc      notification.Service
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, opts *Options) {
	api := notificationApi{svc: opts.NotificationSvc, validate: opts.Validate}

	ng := g.Group("/notifications")
	ng.GET("", api.list)
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("", api.send, facultyOrAdmin())
	ng.POST("/broadcast", api.broadcast, adminOnly())
	ng.POST("/read-all", api.markAllRead)
	ng.POST("/:id/read", api.markRead)
	ng.DELETE("/:id", api.destroy)
}

func (api *notificationApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	limit, err := queryInt(ctx, "limit", defaultNotificationsLimit)
	if err != nil {
		return err
	}

	notifs, err := api.svc.ListForUser(ctx.Request().Context(), usr, queryBool(ctx, "unread"), limit)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	count, err := api.svc.UnreadCount(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *notificationApi) send(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data notification.NewNotification
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.Send(ctx.Request().Context(), &usr, data)
	if err != nil {
		return errors.Wrap(err, "sending notification")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *notificationApi) broadcast(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data notification.Broadcast
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Broadcast")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	count, err := api.svc.Broadcast(ctx.Request().Context(), &usr, data)
	if err != nil {
		return errors.Wrap(err, "broadcasting notification")
	}
	return ctx.JSON(http.StatusCreated, CountResponse{Count: count})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	count, err := api.svc.MarkAllRead(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "marking notifications as read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
