package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core/user"
)

// requireRoles lets through the context User having one of roles.
func requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminOnly() echo.MiddlewareFunc {
	return requireRoles(user.RoleAdmin)
}

func facultyOrAdmin() echo.MiddlewareFunc {
	return requireRoles(user.RoleFaculty, user.RoleAdmin)
}

// ownerOrAdmin lets through admins and the User whose ID is the "id" path param.
// Anyone else gets a 404.
func ownerOrAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		if usr.IsAdmin() || ctx.Param("id") == usr.ID {
			return next(ctx)
		}
		return errHttpNotFound
	}
}
