package sqlxrepos

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/staff"
	"github.com/trezcool/creche/core/user"
)

// table describes how a Kind is laid out in the database.
type table struct {
	name       string
	tenantCol  string
	columns    []string
	searchCols []string
	orderable  map[string]bool
	defaultOrd string
}

var tables = map[lifecycle.Kind]table{
	lifecycle.KindDaycare: {
		name:      "daycare",
		tenantCol: "id",
		columns: []string{
			"id", "name", "plan", "status", "capacity", "waitlist_capacity",
			"address", "city", "phone", "email", "storage_url", "created_at", "updated_at",
		},
		searchCols: []string{"name", "city", "email"},
		orderable:  set("id", "name", "city", "plan", "status", "capacity", "created_at", "updated_at"),
		defaultOrd: "name ASC",
	},
	lifecycle.KindChild: {
		name:      "child",
		tenantCol: "daycare_id",
		columns: []string{
			"id", "daycare_id", "first_name", "last_name", "program", "status", "date_of_birth",
			"guardian_name", "guardian_phone", "guardian_email", "health_notes", "created_at", "updated_at",
		},
		searchCols: []string{"first_name", "last_name", "guardian_name"},
		orderable: set("id", "first_name", "last_name", "program", "status", "date_of_birth",
			"created_at", "updated_at"),
		defaultOrd: "last_name ASC, first_name ASC",
	},
	lifecycle.KindStaff: {
		name:      "staff",
		tenantCol: "daycare_id",
		columns: []string{
			"id", "daycare_id", "first_name", "last_name", "role", "status", "email", "phone",
			"pay_rate", "pay_type", "hire_date", "created_at", "updated_at",
		},
		searchCols: []string{"first_name", "last_name", "email"},
		orderable: set("id", "first_name", "last_name", "role", "status", "pay_rate", "hire_date",
			"created_at", "updated_at"),
		defaultOrd: "last_name ASC, first_name ASC",
	},
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

type daycareRow struct {
	ID               string      `db:"id"`
	Name             string      `db:"name"`
	Plan             string      `db:"plan"`
	Status           string      `db:"status"`
	Capacity         int         `db:"capacity"`
	WaitlistCapacity int         `db:"waitlist_capacity"`
	Address          null.String `db:"address"`
	City             null.String `db:"city"`
	Phone            null.String `db:"phone"`
	Email            string      `db:"email"`
	StorageURL       null.String `db:"storage_url"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func toDaycareRow(d *daycare.Daycare) daycareRow {
	return daycareRow{
		ID:               d.ID,
		Name:             d.Name,
		Plan:             d.Plan,
		Status:           string(d.Status),
		Capacity:         d.Capacity,
		WaitlistCapacity: d.WaitlistCapacity,
		Address:          nullString(d.Address),
		City:             nullString(d.City),
		Phone:            nullString(d.Phone),
		Email:            d.Email,
		StorageURL:       nullString(d.StorageURL),
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func (r daycareRow) daycare() *daycare.Daycare {
	return &daycare.Daycare{
		ID:               r.ID,
		Name:             r.Name,
		Plan:             r.Plan,
		Status:           lifecycle.Status(r.Status),
		Capacity:         r.Capacity,
		WaitlistCapacity: r.WaitlistCapacity,
		Address:          r.Address.String,
		City:             r.City.String,
		Phone:            r.Phone.String,
		Email:            r.Email,
		StorageURL:       r.StorageURL.String,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

type childRow struct {
	ID            string      `db:"id"`
	DaycareID     string      `db:"daycare_id"`
	FirstName     string      `db:"first_name"`
	LastName      string      `db:"last_name"`
	Program       string      `db:"program"`
	Status        string      `db:"status"`
	DateOfBirth   null.Time   `db:"date_of_birth"`
	GuardianName  string      `db:"guardian_name"`
	GuardianPhone string      `db:"guardian_phone"`
	GuardianEmail null.String `db:"guardian_email"`
	HealthNotes   null.String `db:"health_notes"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func toChildRow(c *child.Child) childRow {
	return childRow{
		ID:            c.ID,
		DaycareID:     c.DaycareID,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Program:       c.Program,
		Status:        string(c.Status),
		DateOfBirth:   nullTime(c.DateOfBirth),
		GuardianName:  c.GuardianName,
		GuardianPhone: c.GuardianPhone,
		GuardianEmail: nullString(c.GuardianEmail),
		HealthNotes:   nullString(c.HealthNotes),
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}
}

func (r childRow) child() *child.Child {
	return &child.Child{
		ID:            r.ID,
		DaycareID:     r.DaycareID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Program:       r.Program,
		Status:        lifecycle.Status(r.Status),
		DateOfBirth:   r.DateOfBirth.Time.UTC(),
		GuardianName:  r.GuardianName,
		GuardianPhone: r.GuardianPhone,
		GuardianEmail: r.GuardianEmail.String,
		HealthNotes:   r.HealthNotes.String,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type staffRow struct {
	ID        string      `db:"id"`
	DaycareID string      `db:"daycare_id"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	Role      string      `db:"role"`
	Status    string      `db:"status"`
	Email     null.String `db:"email"`
	Phone     null.String `db:"phone"`
	PayRate   float64     `db:"pay_rate"`
	PayType   string      `db:"pay_type"`
	HireDate  null.Time   `db:"hire_date"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toStaffRow(s *staff.Staff) staffRow {
	return staffRow{
		ID:        s.ID,
		DaycareID: s.DaycareID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Role:      s.Role,
		Status:    string(s.Status),
		Email:     nullString(s.Email),
		Phone:     nullString(s.Phone),
		PayRate:   s.PayRate,
		PayType:   s.PayType,
		HireDate:  nullTime(s.HireDate),
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func (r staffRow) staff() *staff.Staff {
	return &staff.Staff{
		ID:        r.ID,
		DaycareID: r.DaycareID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      r.Role,
		Status:    lifecycle.Status(r.Status),
		Email:     r.Email.String,
		Phone:     r.Phone.String,
		PayRate:   r.PayRate,
		PayType:   r.PayType,
		HireDate:  r.HireDate.Time.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type userRow struct {
	ID           string    `db:"id"`
	DaycareID    string    `db:"daycare_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

var userColumns = []string{
	"id", "daycare_id", "name", "email", "role", "is_active", "password_hash", "created_at", "updated_at", "last_login",
}

func toUserRow(u user.User) userRow {
	return userRow{
		ID:           u.ID,
		DaycareID:    u.DaycareID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsActive:     u.IsActive,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
		LastLogin:    nullTime(u.LastLogin),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		DaycareID:    r.DaycareID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullTime(t time.Time) null.Time {
	if t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}
