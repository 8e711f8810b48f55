package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/staff"
)

// resource binds a route segment to the entity kind it serves & its payloads.
type resource struct {
	kind      lifecycle.Kind
	bindInput func(ctx echo.Context) (record.Input, error)
	bindPatch func(ctx echo.Context) (record.Patch, error)
}

// tenant-scoped resources; the daycare itself is served by /v1/daycare
var resources = map[string]resource{
	"children": {
		kind: lifecycle.KindChild,
		bindInput: func(ctx echo.Context) (record.Input, error) {
			in := new(child.NewChild)
			return in, errors.Wrap(ctx.Bind(in), "binding to NewChild")
		},
		bindPatch: func(ctx echo.Context) (record.Patch, error) {
			var p child.UpdateChild
			return p, errors.Wrap(ctx.Bind(&p), "binding to UpdateChild")
		},
	},
	"staff": {
		kind: lifecycle.KindStaff,
		bindInput: func(ctx echo.Context) (record.Input, error) {
			in := new(staff.NewStaff)
			return in, errors.Wrap(ctx.Bind(in), "binding to NewStaff")
		},
		bindPatch: func(ctx echo.Context) (record.Patch, error) {
			var p staff.UpdateStaff
			return p, errors.Wrap(ctx.Bind(&p), "binding to UpdateStaff")
		},
	},
}

var errStatusRequired = core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status is a required field"})

type recordApi struct {
	svc *record.Service
}

func registerRecordAPI(g *echo.Group, jwt, tenant echo.MiddlewareFunc, svc *record.Service) {
	api := recordApi{svc: svc}

	// un-authed endpoints
	g.POST("/signup", api.signup)

	// authed endpoints
	ag := g.Group("", jwt, tenant)
	manager := managerMiddleware()

	ag.GET("/daycare", api.retrieveDaycare)
	ag.PUT("/daycare", api.updateDaycare, manager)

	rg := ag.Group("/:kind", resourceMiddleware())
	rg.GET("", api.query)
	rg.POST("", api.create, manager)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update, manager)
	rg.DELETE("/:id", api.destroy, manager)
	rg.PATCH("/:id/status", api.changeStatus, manager)
}

func contextResource(ctx echo.Context) resource {
	res, _ := ctx.Get("resource").(resource)
	return res
}

func respond(ctx echo.Context, code int, rec record.Record, err error) error {
	if err != nil {
		return err
	}
	return ctx.JSON(code, record.Outcome(rec, nil))
}

// Handlers

func (api *recordApi) signup(ctx echo.Context) error {
	in := new(daycare.NewDaycare)
	if err := ctx.Bind(in); err != nil {
		return errors.Wrap(err, "binding to NewDaycare")
	}
	rec, err := api.svc.CreateRecord(ctx.Request().Context(), "", in)
	return respond(ctx, http.StatusCreated, rec, err)
}

func (api *recordApi) retrieveDaycare(ctx echo.Context) error {
	d, ok := ctx.Get(contextDaycareKey).(*daycare.Daycare)
	if !ok {
		return errUnauthorized
	}
	return respond(ctx, http.StatusOK, d, nil)
}

func (api *recordApi) updateDaycare(ctx echo.Context) error {
	var patch daycare.UpdateDaycare
	if err := ctx.Bind(&patch); err != nil {
		return errors.Wrap(err, "binding to UpdateDaycare")
	}
	tID := tenantID(ctx)
	rec, err := api.svc.UpdateFields(ctx.Request().Context(), tID, lifecycle.KindDaycare, tID, patch)
	return respond(ctx, http.StatusOK, rec, err)
}

func (api *recordApi) query(ctx echo.Context) error {
	res := contextResource(ctx)
	recs, err := api.svc.List(ctx.Request().Context(), res.kind, bindFilter(ctx, tenantID(ctx)))
	if err != nil {
		return errors.Wrapf(err, "querying %s", res.kind)
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Success: true, Records: recs})
}

func (api *recordApi) create(ctx echo.Context) error {
	in, err := contextResource(ctx).bindInput(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.CreateRecord(ctx.Request().Context(), tenantID(ctx), in)
	return respond(ctx, http.StatusCreated, rec, err)
}

func (api *recordApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Request().Context(), tenantID(ctx), contextResource(ctx).kind, ctx.Param("id"))
	return respond(ctx, http.StatusOK, rec, err)
}

func (api *recordApi) update(ctx echo.Context) error {
	res := contextResource(ctx)
	patch, err := res.bindPatch(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.UpdateFields(ctx.Request().Context(), tenantID(ctx), res.kind, ctx.Param("id"), patch)
	return respond(ctx, http.StatusOK, rec, err)
}

func (api *recordApi) destroy(ctx echo.Context) error {
	err := api.svc.DeleteRecord(ctx.Request().Context(), tenantID(ctx), contextResource(ctx).kind, ctx.Param("id"))
	return respond(ctx, http.StatusOK, nil, err)
}

func (api *recordApi) changeStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if data.Status == "" {
		return errStatusRequired
	}
	rec, err := api.svc.ChangeStatus(ctx.Request().Context(), tenantID(ctx), contextResource(ctx).kind, ctx.Param("id"), data.Status)
	return respond(ctx, http.StatusOK, rec, err)
}
