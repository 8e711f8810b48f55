package echoapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
)

// adminApi serves the platform admins reviewing daycares across tenants.
type adminApi struct {
	svc    *record.Service
	lister daycare.Lister
}

func registerAdminAPI(g *echo.Group, conf *core.Config, svc *record.Service, lister daycare.Lister) {
	api := adminApi{svc: svc, lister: lister}

	g.Use(middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Validator: adminValidator(conf.Admin),
		Realm:     conf.AppName + " admin",
	}))
	g.GET("/daycares", api.queryDaycares)
	g.PATCH("/daycares/:id/status", api.changeDaycareStatus)
}

// adminValidator checks the credentials against the configured admin.
// Without a password hash configured, nobody gets in.
func adminValidator(admin core.AdminConfig) middleware.BasicAuthValidator {
	return func(username, password string, _ echo.Context) (bool, error) {
		if admin.PasswordHash == "" {
			return false, nil
		}
		if subtle.ConstantTimeCompare([]byte(username), []byte(admin.Username)) != 1 {
			return false, nil
		}
		return bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) == nil, nil
	}
}

func (api *adminApi) queryDaycares(ctx echo.Context) error {
	statuses := bindStatuses(ctx)
	for _, st := range statuses {
		if !lifecycle.DaycareTable.Valid(st) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "status",
				Error: fmt.Sprintf("invalid %s status %q", lifecycle.KindDaycare, st),
			})
		}
	}

	daycares, err := api.lister.ListDaycares(ctx.Request().Context(), statuses...)
	if err != nil {
		return core.NewPersistenceError("listing daycares", err)
	}
	if daycares == nil {
		daycares = []daycare.Daycare{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Success: true, Records: daycares})
}

func (api *adminApi) changeDaycareStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if data.Status == "" {
		return errStatusRequired
	}
	id := ctx.Param("id")
	rec, err := api.svc.ChangeStatus(ctx.Request().Context(), id, lifecycle.KindDaycare, id, data.Status)
	return respond(ctx, http.StatusOK, rec, err)
}
