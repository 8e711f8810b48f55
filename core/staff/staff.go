// Package staff holds the employees of a daycare.
package staff

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
)

// Roles
const (
	RoleDirector  = "director"
	RoleTeacher   = "teacher"
	RoleAssistant = "assistant"
	RoleCook      = "cook"
	RoleAdmin     = "admin"
)

// Pay types
const (
	PayHourly = "hourly"
	PaySalary = "salary"
)

var (
	Roles    = []string{RoleDirector, RoleTeacher, RoleAssistant, RoleCook, RoleAdmin}
	PayTypes = []string{PayHourly, PaySalary}

	errNotAStaff = errors.New("record is not a staff member")
)

type Staff struct {
	ID        string           `json:"id"`
	DaycareID string           `json:"daycare_id"`
	FirstName string           `json:"first_name" validate:"required,min=2"`
	LastName  string           `json:"last_name" validate:"required,min=2"`
	Role      string           `json:"role" validate:"required,oneof=director teacher assistant cook admin"`
	Status    lifecycle.Status `json:"status"`
	Email     string           `json:"email" validate:"required,email"`
	Phone     string           `json:"phone" validate:"omitempty,phone"`
	PayRate   float64          `json:"pay_rate" validate:"gt=0"`
	PayType   string           `json:"pay_type" validate:"required,oneof=hourly salary"`
	HireDate  time.Time        `json:"hire_date"`
	CreatedAt time.Time        `json:"created_at"` // UTC
	UpdatedAt time.Time        `json:"updated_at"` // UTC
}

var _ record.Record = (*Staff)(nil)

func (s *Staff) Kind() lifecycle.Kind        { return lifecycle.KindStaff }
func (s *Staff) GetID() string               { return s.ID }
func (s *Staff) GetTenantID() string         { return s.DaycareID }
func (s *Staff) GetStatus() lifecycle.Status { return s.Status }

func (s *Staff) SetStatus(status lifecycle.Status, at time.Time) {
	s.Status = status
	s.UpdatedAt = at
}

// NewStaff is the staff-add form. New staff members are always Active.
type NewStaff struct {
	FirstName string    `json:"first_name" validate:"required,min=2"`
	LastName  string    `json:"last_name" validate:"required,min=2"`
	Role      string    `json:"role" validate:"required,oneof=director teacher assistant cook admin"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone" validate:"omitempty,phone"`
	PayRate   float64   `json:"pay_rate" validate:"gt=0"`
	PayType   string    `json:"pay_type" validate:"required,oneof=hourly salary"`
	HireDate  time.Time `json:"hire_date"`
}

var _ record.Input = (*NewStaff)(nil)

func (ns *NewStaff) Kind() lifecycle.Kind { return lifecycle.KindStaff }

func (ns *NewStaff) Clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Role = core.CleanString(ns.Role, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.PayType = core.CleanString(ns.PayType, true /* lower */)
	if ns.PayType == "" {
		ns.PayType = PayHourly
	}
}

func (ns *NewStaff) InitialStatus() lifecycle.Status { return "" }

func (ns *NewStaff) Build(tenantID, id string, status lifecycle.Status, now time.Time) record.Record {
	hired := ns.HireDate.UTC()
	if ns.HireDate.IsZero() {
		hired = now.Truncate(24 * time.Hour)
	}
	return &Staff{
		ID:        id,
		DaycareID: tenantID,
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		Role:      ns.Role,
		Status:    status,
		Email:     ns.Email,
		Phone:     ns.Phone,
		PayRate:   ns.PayRate,
		PayType:   ns.PayType,
		HireDate:  hired,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateStaff defines what information may be provided to modify an existing Staff.
type UpdateStaff struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Role      *string    `json:"role"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	PayRate   *float64   `json:"pay_rate"`
	PayType   *string    `json:"pay_type"`
	HireDate  *time.Time `json:"hire_date"`
}

var _ record.Patch = UpdateStaff{}

func (us UpdateStaff) Kind() lifecycle.Kind { return lifecycle.KindStaff }

func (us UpdateStaff) Apply(rec record.Record, now time.Time) (record.Record, error) {
	orig, ok := rec.(*Staff)
	if !ok {
		return nil, errNotAStaff
	}
	s := *orig

	if us.FirstName != nil {
		s.FirstName = core.CleanString(*us.FirstName)
	}
	if us.LastName != nil {
		s.LastName = core.CleanString(*us.LastName)
	}
	if us.Role != nil {
		s.Role = core.CleanString(*us.Role, true /* lower */)
	}
	if us.Email != nil {
		s.Email = core.CleanString(*us.Email, true /* lower */)
	}
	if us.Phone != nil {
		s.Phone = core.CleanString(*us.Phone)
	}
	if us.PayRate != nil {
		s.PayRate = *us.PayRate
	}
	if us.PayType != nil {
		s.PayType = core.CleanString(*us.PayType, true /* lower */)
	}
	if us.HireDate != nil {
		s.HireDate = us.HireDate.UTC()
	}
	s.UpdatedAt = now
	return &s, nil
}
