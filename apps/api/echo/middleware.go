package echoapi

import (
	"github.com/labstack/echo/v4"
)

// managerMiddleware lets only the users allowed to manage the daycare's records through.
func managerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.CanManageRecords() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// resourceMiddleware resolves the `:kind` path param. Unknown kinds are not found.
func resourceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			res, ok := resources[ctx.Param("kind")]
			if !ok {
				return errHttpNotFound
			}
			ctx.Set("resource", res)
			return next(ctx)
		}
	}
}
