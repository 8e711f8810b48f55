package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
)

var (
	orderingParam = "ordering"
	statusParam   = "status"
	searchParam   = "search"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindStatuses reads the repeatable `status` query param. `?status=A,B` is accepted too.
func bindStatuses(ctx echo.Context) []lifecycle.Status {
	var statuses []lifecycle.Status
	for _, val := range ctx.QueryParams()[statusParam] {
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, lifecycle.Status(s))
			}
		}
	}
	return statuses
}

// bindFilter builds the record.Filter of a list request scoped to tenantID.
func bindFilter(ctx echo.Context, tenantID string) record.Filter {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return record.Filter{
		TenantID: tenantID,
		Statuses: bindStatuses(ctx),
		Search:   ctx.QueryParam(searchParam),
		Ordering: ordering.Orderings,
	}
}

// bindUserFilter reads `search`, the repeatable `role` & `is_active` query params.
func bindUserFilter(ctx echo.Context, tenantID string) (user.QueryFilter, error) {
	filter := user.QueryFilter{
		DaycareID: tenantID,
		Search:    ctx.QueryParam(searchParam),
		Roles:     ctx.QueryParams()["role"],
	}
	if val := ctx.QueryParam("is_active"); val != "" {
		active, err := strconv.ParseBool(val)
		if err != nil {
			return user.QueryFilter{}, err
		}
		filter.IsActive = &active
	}
	return filter, nil
}

type (
	StatusRequest struct {
		Status lifecycle.Status `json:"status"`
	}

	ListResponse struct {
		Success bool        `json:"success"`
		Records interface{} `json:"records"`
	}
)
