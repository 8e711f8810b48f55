package user

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrAccountDeactivated = errors.New("account deactivated")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	// Repository persists users. Every method accepts an optional executor so that
	// callers can run it inside a transaction they own.
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, daycareID, id string, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields. QueryFilter.DaycareID is mandatory.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nu NewUser, exec ...core.DBExecutor) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, daycareID, id string) (User, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers []User, exec ...core.DBExecutor) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers, exec...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Create validates nu & creates the user. exec lets the creation join a running transaction.
func (svc *Service) Create(ctx context.Context, nu NewUser, exec ...core.DBExecutor) (User, error) {
	nu.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email, nil, exec...); err != nil {
		return User{}, err
	}

	now := NowFunc()
	usr := User{
		DaycareID: nu.DaycareID,
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr, exec...)
	return usr, errors.Wrap(err, "inserting user")
}

// Authenticate checks the credentials & records the login.
// Whether the user's daycare allows logging in is up to the caller.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = NowFunc()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *Service) GetByID(ctx context.Context, daycareID, id string) (User, error) {
	if daycareID == "" {
		return User{}, core.ErrTenantRequired
	}
	return svc.repo.GetUserByID(ctx, daycareID, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter.DaycareID == "" {
		return nil, core.ErrTenantRequired
	}
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter, ordering)
}

// Update applies the set fields of uu to usr.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	uu.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, uu); err != nil {
		return User{}, err
	}

	if uu.Name != nil {
		usr.Name = *uu.Name
	}
	if uu.Role != nil {
		usr.Role = *uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != nil {
		if err := usr.SetPassword(*uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = NowFunc()

	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}
