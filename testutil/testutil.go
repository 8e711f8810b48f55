// Package testutil wires the in-memory stack used by the tests & seeds tenants into it.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/staff"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/fs"
	"github.com/trezcool/creche/services/email"
	"github.com/trezcool/creche/services/logger"
	"github.com/trezcool/creche/storage/database/inmem"
)

const Password = "s3cretPwd"

// Env is a fully wired application core backed by the in-memory store.
// Emails are sent synchronously; read them with emailsvc.Sent().
type Env struct {
	Conf       *core.Config
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     core.Logger
	DB         *inmemdb.DB
	Store      record.Store
	Lister     daycare.Lister
	UserRepo   user.Repository
	UserSvc    *user.Service
	RecordSvc  *record.Service
	MailSvc    core.EmailService
}

// NewValidator returns a validator with every custom validation of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	daycare.InitValidators(validate, translator)
	child.InitValidators(validate, translator)
	return validate, translator
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewTestLogger()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, logger, true)
	emailsvc.ClearSent()

	validate, translator := NewValidator()
	db := inmemdb.Open()
	store := inmemdb.NewRecordStore(db)
	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, validate, translator)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	recSvc := record.NewService(store, validate, translator, logger)
	recSvc.OnCreate(lifecycle.KindDaycare, daycare.NewOwnerHook(usrSvc))
	recSvc.OnStatusChange(lifecycle.KindDaycare, daycare.NewStatusNotifier(usrSvc, mailSvc, logger))

	return &Env{
		Conf:       conf,
		Validate:   validate,
		Translator: translator,
		Logger:     logger,
		DB:         db,
		Store:      store,
		Lister:     store,
		UserRepo:   usrRepo,
		UserSvc:    usrSvc,
		RecordSvc:  recSvc,
		MailSvc:    mailSvc,
	}
}

func (env *Env) create(t *testing.T, rec record.Record) {
	t.Helper()
	if _, err := env.Store.Create(context.Background(), rec); err != nil {
		t.Fatalf("creating %s: %v", rec.Kind(), err)
	}
}

// CreateDaycare stores a daycare with the given status, bypassing the signup.
func (env *Env) CreateDaycare(t *testing.T, name string, status lifecycle.Status) *daycare.Daycare {
	t.Helper()
	now := time.Now().UTC()
	d := &daycare.Daycare{
		ID:        uuid.New().String(),
		Name:      name,
		Plan:      daycare.PlanStandard,
		Status:    status,
		Capacity:  40,
		Email:     "hello@" + uuid.New().String()[:8] + ".test.cd",
		CreatedAt: now,
		UpdatedAt: now,
	}
	env.create(t, d)
	return d
}

func (env *Env) CreateChild(t *testing.T, daycareID, first, last string, status lifecycle.Status) *child.Child {
	t.Helper()
	now := time.Now().UTC()
	c := &child.Child{
		ID:            uuid.New().String(),
		DaycareID:     daycareID,
		FirstName:     first,
		LastName:      last,
		Program:       child.ProgramToddler,
		Status:        status,
		DateOfBirth:   now.AddDate(-2, 0, 0).Truncate(24 * time.Hour),
		GuardianName:  "Grace " + last,
		GuardianPhone: "+243 810 000 001",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	env.create(t, c)
	return c
}

func (env *Env) CreateStaff(t *testing.T, daycareID, first, last string, status lifecycle.Status) *staff.Staff {
	t.Helper()
	now := time.Now().UTC()
	s := &staff.Staff{
		ID:        uuid.New().String(),
		DaycareID: daycareID,
		FirstName: first,
		LastName:  last,
		Role:      staff.RoleTeacher,
		Status:    status,
		Email:     core.CleanString(first, true) + "@test.cd",
		PayRate:   15,
		PayType:   staff.PayHourly,
		HireDate:  now.Truncate(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	env.create(t, s)
	return s
}

// CreateUser stores an active user of daycareID with Password as password.
func (env *Env) CreateUser(t *testing.T, daycareID, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		DaycareID: daycareID,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := env.UserRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
