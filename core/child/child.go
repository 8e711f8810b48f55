// Package child holds the enrolled (or waitlisted) children of a daycare.
package child

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
)

// Programs
const (
	ProgramInfant    = "infant"
	ProgramToddler   = "toddler"
	ProgramPreschool = "preschool"
	ProgramSchoolAge = "school_age"
)

var (
	Programs = []string{ProgramInfant, ProgramToddler, ProgramPreschool, ProgramSchoolAge}

	errNotAChild = errors.New("record is not a child")
)

type Child struct {
	ID            string           `json:"id"`
	DaycareID     string           `json:"daycare_id"`
	FirstName     string           `json:"first_name" validate:"required,min=2"`
	LastName      string           `json:"last_name" validate:"required,min=2"`
	Program       string           `json:"program" validate:"required,oneof=infant toddler preschool school_age"`
	Status        lifecycle.Status `json:"status"`
	DateOfBirth   time.Time        `json:"date_of_birth" validate:"required,notfuture"`
	GuardianName  string           `json:"guardian_name" validate:"required,min=2"`
	GuardianPhone string           `json:"guardian_phone" validate:"required,phone"`
	GuardianEmail string           `json:"guardian_email" validate:"omitempty,email"`
	HealthNotes   string           `json:"health_notes" validate:"max=2000"`
	CreatedAt     time.Time        `json:"created_at"` // UTC
	UpdatedAt     time.Time        `json:"updated_at"` // UTC
}

var _ record.Record = (*Child)(nil)

func (c *Child) Kind() lifecycle.Kind        { return lifecycle.KindChild }
func (c *Child) GetID() string               { return c.ID }
func (c *Child) GetTenantID() string         { return c.DaycareID }
func (c *Child) GetStatus() lifecycle.Status { return c.Status }

func (c *Child) SetStatus(status lifecycle.Status, at time.Time) {
	c.Status = status
	c.UpdatedAt = at
}

// NewChild is the enrollment form. Status may be Active (default) or Waitlisted.
type NewChild struct {
	FirstName     string           `json:"first_name" validate:"required,min=2"`
	LastName      string           `json:"last_name" validate:"required,min=2"`
	Program       string           `json:"program" validate:"required,oneof=infant toddler preschool school_age"`
	Status        lifecycle.Status `json:"status"`
	DateOfBirth   time.Time        `json:"date_of_birth" validate:"required,notfuture"`
	GuardianName  string           `json:"guardian_name" validate:"required,min=2"`
	GuardianPhone string           `json:"guardian_phone" validate:"required,phone"`
	GuardianEmail string           `json:"guardian_email" validate:"omitempty,email"`
	HealthNotes   string           `json:"health_notes" validate:"max=2000"`
}

var _ record.Input = (*NewChild)(nil)

func (nc *NewChild) Kind() lifecycle.Kind { return lifecycle.KindChild }

func (nc *NewChild) Clean() {
	nc.FirstName = core.CleanString(nc.FirstName)
	nc.LastName = core.CleanString(nc.LastName)
	nc.Program = core.CleanString(nc.Program, true /* lower */)
	nc.GuardianName = core.CleanString(nc.GuardianName)
	nc.GuardianPhone = core.CleanString(nc.GuardianPhone)
	nc.GuardianEmail = core.CleanString(nc.GuardianEmail, true /* lower */)
	nc.HealthNotes = core.CleanString(nc.HealthNotes)
}

func (nc *NewChild) InitialStatus() lifecycle.Status { return nc.Status }

func (nc *NewChild) Build(tenantID, id string, status lifecycle.Status, now time.Time) record.Record {
	return &Child{
		ID:            id,
		DaycareID:     tenantID,
		FirstName:     nc.FirstName,
		LastName:      nc.LastName,
		Program:       nc.Program,
		Status:        status,
		DateOfBirth:   nc.DateOfBirth.UTC(),
		GuardianName:  nc.GuardianName,
		GuardianPhone: nc.GuardianPhone,
		GuardianEmail: nc.GuardianEmail,
		HealthNotes:   nc.HealthNotes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// UpdateChild defines what information may be provided to modify an existing Child.
type UpdateChild struct {
	FirstName     *string    `json:"first_name"`
	LastName      *string    `json:"last_name"`
	Program       *string    `json:"program"`
	DateOfBirth   *time.Time `json:"date_of_birth"`
	GuardianName  *string    `json:"guardian_name"`
	GuardianPhone *string    `json:"guardian_phone"`
	GuardianEmail *string    `json:"guardian_email"`
	HealthNotes   *string    `json:"health_notes"`
}

var _ record.Patch = UpdateChild{}

func (uc UpdateChild) Kind() lifecycle.Kind { return lifecycle.KindChild }

func (uc UpdateChild) Apply(rec record.Record, now time.Time) (record.Record, error) {
	orig, ok := rec.(*Child)
	if !ok {
		return nil, errNotAChild
	}
	c := *orig

	if uc.FirstName != nil {
		c.FirstName = core.CleanString(*uc.FirstName)
	}
	if uc.LastName != nil {
		c.LastName = core.CleanString(*uc.LastName)
	}
	if uc.Program != nil {
		c.Program = core.CleanString(*uc.Program, true /* lower */)
	}
	if uc.DateOfBirth != nil {
		c.DateOfBirth = uc.DateOfBirth.UTC()
	}
	if uc.GuardianName != nil {
		c.GuardianName = core.CleanString(*uc.GuardianName)
	}
	if uc.GuardianPhone != nil {
		c.GuardianPhone = core.CleanString(*uc.GuardianPhone)
	}
	if uc.GuardianEmail != nil {
		c.GuardianEmail = core.CleanString(*uc.GuardianEmail, true /* lower */)
	}
	if uc.HealthNotes != nil {
		c.HealthNotes = core.CleanString(*uc.HealthNotes)
	}
	c.UpdatedAt = now
	return &c, nil
}
