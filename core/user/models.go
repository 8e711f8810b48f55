package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/creche/core"
)

// Roles
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

var (
	AllRoles = []string{RoleOwner, RoleManager, RoleStaff}

	rolePriorities = map[string]int{
		RoleOwner:   30,
		RoleManager: 20,
		RoleStaff:   10,
	}

	Roles = []Role{
		{Name: "Staff", Value: RoleStaff},
		{Name: "Manager", Value: RoleManager},
		{Name: "Owner", Value: RoleOwner},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a person signing in to the dashboard of one daycare (their tenant).
type User struct {
	ID           string    `json:"id"`
	DaycareID    string    `json:"daycare_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsOwner() bool { return u.Role == RoleOwner }

// CanManageRecords reports whether u may create, edit, delete or change the status of the daycare's records.
func (u *User) CanManageRecords() bool {
	return RolePriority(u.Role) >= RolePriority(RoleManager)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	DaycareID       string `json:"-" validate:"required"`
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,userrole"`
	Password        string `json:"password" validate:"required,pwdminlen"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name     *string `json:"name" validate:"omitempty,min=2"`
	Role     *string `json:"role" validate:"omitempty,userrole"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" validate:"omitempty,pwdminlen"`
}

func (uu *UpdateUser) Clean() {
	if uu.Name != nil {
		name := core.CleanString(*uu.Name)
		uu.Name = &name
	}
	if uu.Role != nil {
		role := core.CleanString(*uu.Role, true /* lower */)
		uu.Role = &role
	}
}

type QueryFilter struct {
	DaycareID string   `query:"-"`
	Search    string   `query:"search"`
	Roles     []string `query:"role"`
	IsActive  *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
