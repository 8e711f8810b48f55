// Package daycare holds the tenant entity: every child, staff member & user belongs to exactly one Daycare.
package daycare

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
)

// Plans
const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

var (
	Plans = []string{PlanFree, PlanStandard, PlanPremium}

	errNotADaycare = errors.New("record is not a daycare")
)

type (
	Daycare struct {
		ID               string           `json:"id"`
		Name             string           `json:"name" validate:"required,min=2"`
		Plan             string           `json:"plan" validate:"required,oneof=free standard premium"`
		Status           lifecycle.Status `json:"status"`
		Capacity         int              `json:"capacity" validate:"gt=0"`
		WaitlistCapacity int              `json:"waitlist_capacity" validate:"gte=0"`
		Address          string           `json:"address"`
		City             string           `json:"city"`
		Phone            string           `json:"phone" validate:"omitempty,phone"`
		Email            string           `json:"email" validate:"required,email"`
		StorageURL       string           `json:"storage_url" validate:"omitempty,url"`
		CreatedAt        time.Time        `json:"created_at"` // UTC
		UpdatedAt        time.Time        `json:"updated_at"` // UTC
	}

	// Lister is implemented by stores able to list daycares across tenants.
	// It backs the platform-admin screens only; tenant code goes through record.Store.
	Lister interface {
		ListDaycares(ctx context.Context, statuses ...lifecycle.Status) ([]Daycare, error)
	}
)

var _ record.Record = (*Daycare)(nil)

func (d *Daycare) Kind() lifecycle.Kind        { return lifecycle.KindDaycare }
func (d *Daycare) GetID() string               { return d.ID }
func (d *Daycare) GetTenantID() string         { return d.ID } // a daycare is its own tenant
func (d *Daycare) GetStatus() lifecycle.Status { return d.Status }

func (d *Daycare) SetStatus(status lifecycle.Status, at time.Time) {
	d.Status = status
	d.UpdatedAt = at
}

// AllowsLogin reports whether the daycare's users may access the dashboard.
func (d *Daycare) AllowsLogin() bool { return d.Status == lifecycle.DaycareActive }

// NewDaycare is the tenant signup form: the daycare & its owner account.
type NewDaycare struct {
	Name             string `json:"name" validate:"required,min=2"`
	Plan             string `json:"plan" validate:"required,oneof=free standard premium"`
	Capacity         int    `json:"capacity" validate:"gt=0"`
	WaitlistCapacity int    `json:"waitlist_capacity" validate:"gte=0"`
	Address          string `json:"address"`
	City             string `json:"city"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	Email            string `json:"email" validate:"required,email"`
	StorageURL       string `json:"storage_url" validate:"omitempty,url"`

	OwnerName     string `json:"owner_name" validate:"required,min=2"`
	OwnerEmail    string `json:"owner_email" validate:"required,email"`
	OwnerPassword string `json:"owner_password" validate:"required,min=8"`
}

var _ record.Input = (*NewDaycare)(nil)

func (nd *NewDaycare) Kind() lifecycle.Kind { return lifecycle.KindDaycare }

func (nd *NewDaycare) Clean() {
	nd.Name = core.CleanString(nd.Name)
	nd.Plan = core.CleanString(nd.Plan, true /* lower */)
	if nd.Plan == "" {
		nd.Plan = PlanFree
	}
	nd.Address = core.CleanString(nd.Address)
	nd.City = core.CleanString(nd.City)
	nd.Phone = core.CleanString(nd.Phone)
	nd.Email = core.CleanString(nd.Email, true /* lower */)
	nd.StorageURL = core.CleanString(nd.StorageURL)
	nd.OwnerName = core.CleanString(nd.OwnerName)
	nd.OwnerEmail = core.CleanString(nd.OwnerEmail, true /* lower */)
}

// InitialStatus is always the default: new daycares wait for review.
func (nd *NewDaycare) InitialStatus() lifecycle.Status { return "" }

func (nd *NewDaycare) Build(_, id string, status lifecycle.Status, now time.Time) record.Record {
	return &Daycare{
		ID:               id,
		Name:             nd.Name,
		Plan:             nd.Plan,
		Status:           status,
		Capacity:         nd.Capacity,
		WaitlistCapacity: nd.WaitlistCapacity,
		Address:          nd.Address,
		City:             nd.City,
		Phone:            nd.Phone,
		Email:            nd.Email,
		StorageURL:       nd.StorageURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// UpdateDaycare defines what information may be provided to modify an existing Daycare.
type UpdateDaycare struct {
	Name             *string `json:"name"`
	Plan             *string `json:"plan"`
	Capacity         *int    `json:"capacity"`
	WaitlistCapacity *int    `json:"waitlist_capacity"`
	Address          *string `json:"address"`
	City             *string `json:"city"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	StorageURL       *string `json:"storage_url"`
}

var _ record.Patch = UpdateDaycare{}

func (ud UpdateDaycare) Kind() lifecycle.Kind { return lifecycle.KindDaycare }

func (ud UpdateDaycare) Apply(rec record.Record, now time.Time) (record.Record, error) {
	orig, ok := rec.(*Daycare)
	if !ok {
		return nil, errNotADaycare
	}
	d := *orig

	if ud.Name != nil {
		d.Name = core.CleanString(*ud.Name)
	}
	if ud.Plan != nil {
		d.Plan = core.CleanString(*ud.Plan, true /* lower */)
	}
	if ud.Capacity != nil {
		d.Capacity = *ud.Capacity
	}
	if ud.WaitlistCapacity != nil {
		d.WaitlistCapacity = *ud.WaitlistCapacity
	}
	if ud.Address != nil {
		d.Address = core.CleanString(*ud.Address)
	}
	if ud.City != nil {
		d.City = core.CleanString(*ud.City)
	}
	if ud.Phone != nil {
		d.Phone = core.CleanString(*ud.Phone)
	}
	if ud.Email != nil {
		d.Email = core.CleanString(*ud.Email, true /* lower */)
	}
	if ud.StorageURL != nil {
		d.StorageURL = core.CleanString(*ud.StorageURL)
	}
	d.UpdatedAt = now
	return &d, nil
}
