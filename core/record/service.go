package record

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
)

// Operation names, as reported to the Observer.
const (
	OpCreate       = "create"
	OpUpdateFields = "update_fields"
	OpChangeStatus = "change_status"
	OpDelete       = "delete"
)

var (
	ErrNotDeletable = errors.New("daycares cannot be deleted; archive them instead")
	ErrKindMismatch = errors.New("payload does not match the requested entity type")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	// StatusHook is called after a successful (non no-op) status change.
	StatusHook func(ctx context.Context, rec Record, from lifecycle.Status)

	// CreateHook runs inside the creating transaction; an error aborts the whole creation.
	CreateHook func(ctx context.Context, tx Tx, rec Record, in Input) error

	// Observer is notified of every mutation outcome.
	Observer interface {
		ObserveMutation(kind lifecycle.Kind, op string, err error, took time.Duration)
	}

	Service struct {
		store       Store
		validate    *validator.Validate
		translator  ut.Translator
		logger      core.Logger
		observer    Observer
		newID       func() string
		statusHooks map[lifecycle.Kind][]StatusHook
		createHooks map[lifecycle.Kind][]CreateHook
	}
)

func NewService(store Store, validate *validator.Validate, translator ut.Translator, logger core.Logger) *Service {
	return &Service{
		store:       store,
		validate:    validate,
		translator:  translator,
		logger:      logger,
		newID:       func() string { return uuid.New().String() },
		statusHooks: make(map[lifecycle.Kind][]StatusHook),
		createHooks: make(map[lifecycle.Kind][]CreateHook),
	}
}

// OnStatusChange registers a hook fired after every status change of kind.
func (svc *Service) OnStatusChange(kind lifecycle.Kind, hook StatusHook) {
	svc.statusHooks[kind] = append(svc.statusHooks[kind], hook)
}

// OnCreate registers a hook run in the same transaction as every creation of kind.
func (svc *Service) OnCreate(kind lifecycle.Kind, hook CreateHook) {
	svc.createHooks[kind] = append(svc.createHooks[kind], hook)
}

func (svc *Service) SetObserver(obs Observer) {
	svc.observer = obs
}

func (svc *Service) observe(kind lifecycle.Kind, op string, start time.Time, err error) {
	if svc.observer != nil {
		svc.observer.ObserveMutation(kind, op, err, time.Since(start))
	}
}

// storeErr keeps typed errors the caller can act on & turns everything else into a *core.PersistenceError.
func (svc *Service) storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch errors.Cause(err).(type) {
	case *core.NotFoundError, *core.ValidationError, *core.InvalidTransitionError, *core.PersistenceError:
		return err
	}
	if errors.Cause(err) == core.ErrNotFound {
		return err
	}
	return core.NewPersistenceError(op, err)
}

func table(kind lifecycle.Kind) (*lifecycle.Table, error) {
	t, ok := lifecycle.Lookup(kind)
	if !ok {
		return nil, errors.Wrapf(lifecycle.ErrUnknownKind, "%q", kind)
	}
	return t, nil
}

// Get returns the record of kind identified by id within tenantID.
func (svc *Service) Get(ctx context.Context, tenantID string, kind lifecycle.Kind, id string) (Record, error) {
	if _, err := table(kind); err != nil {
		return nil, err
	}
	if tenantID == "" {
		return nil, core.ErrTenantRequired
	}
	rec, err := svc.store.FindOne(ctx, kind, tenantID, id)
	return rec, svc.storeErr("finding "+kind.String(), err)
}

// List returns the records of kind matching filter. filter.TenantID is mandatory.
func (svc *Service) List(ctx context.Context, kind lifecycle.Kind, filter Filter) ([]Record, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	if filter.TenantID == "" {
		return nil, core.ErrTenantRequired
	}
	filter.Search = core.CleanString(filter.Search)
	for _, st := range filter.Statuses {
		if !t.Valid(st) {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "status", Error: fmt.Sprintf("invalid %s status %q", kind, st)})
		}
	}
	recs, err := svc.store.Find(ctx, kind, filter)
	if err != nil {
		return nil, svc.storeErr("querying "+kind.String(), err)
	}
	return recs, nil
}

// ChangeStatus moves the record to target if the transition table allows it.
//
// Requesting the current status is a no-op success: the record is returned as is,
// nothing is written & no hook fires.
func (svc *Service) ChangeStatus(ctx context.Context, tenantID string, kind lifecycle.Kind, id string, target lifecycle.Status) (rec Record, err error) {
	start := time.Now()
	defer func() { svc.observe(kind, OpChangeStatus, start, err) }()

	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	if tenantID == "" {
		return nil, core.ErrTenantRequired
	}

	rec, err = svc.store.FindOne(ctx, kind, tenantID, id)
	if err != nil {
		return nil, svc.storeErr("finding "+kind.String(), err)
	}
	current := rec.GetStatus()
	if target == current {
		return rec, nil
	}
	if err = t.Check(current, target); err != nil {
		return nil, err
	}

	rec.SetStatus(target, NowFunc())
	updated, err := svc.store.Update(ctx, rec)
	if err != nil {
		return nil, svc.storeErr("updating "+kind.String()+" status", err)
	}

	svc.logger.Info(fmt.Sprintf("%s %s status changed: %s -> %s", kind, id, current, target))
	for _, hook := range svc.statusHooks[kind] {
		hook(ctx, updated, current)
	}
	return updated, nil
}

// UpdateFields applies patch to the record & validates the result before writing it.
// Every failing field is reported at once.
func (svc *Service) UpdateFields(ctx context.Context, tenantID string, kind lifecycle.Kind, id string, patch Patch) (rec Record, err error) {
	start := time.Now()
	defer func() { svc.observe(kind, OpUpdateFields, start, err) }()

	if _, err = table(kind); err != nil {
		return nil, err
	}
	if patch == nil || patch.Kind() != kind {
		return nil, ErrKindMismatch
	}
	if tenantID == "" {
		return nil, core.ErrTenantRequired
	}

	current, err := svc.store.FindOne(ctx, kind, tenantID, id)
	if err != nil {
		return nil, svc.storeErr("finding "+kind.String(), err)
	}

	patched, err := patch.Apply(current, NowFunc())
	if err != nil {
		return nil, errors.Wrap(err, "applying patch")
	}
	if patched.GetID() != current.GetID() || patched.GetTenantID() != current.GetTenantID() || patched.GetStatus() != current.GetStatus() {
		return nil, errors.New("patch must not change the record's identity, tenant or status")
	}
	if err = core.ValidateStruct(svc.validate, svc.translator, patched); err != nil {
		return nil, err
	}

	rec, err = svc.store.Update(ctx, patched)
	if err != nil {
		return nil, svc.storeErr("updating "+kind.String(), err)
	}
	return rec, nil
}

// CreateRecord validates in, resolves the owning tenant, assigns the initial status & persists the new record
// together with the registered CreateHooks in one transaction.
//
// A Daycare is its own tenant: tenantID is ignored & the new record's id is used.
// Other kinds require tenantID to resolve to an existing Daycare.
func (svc *Service) CreateRecord(ctx context.Context, tenantID string, in Input) (rec Record, err error) {
	if in == nil {
		return nil, errors.New("nil input")
	}
	kind := in.Kind()
	start := time.Now()
	defer func() { svc.observe(kind, OpCreate, start, err) }()

	t, err := table(kind)
	if err != nil {
		return nil, err
	}

	in.Clean()
	if err = svc.validateInput(t, in); err != nil {
		return nil, err
	}
	status := in.InitialStatus()
	if status == "" {
		status = t.DefaultStatus()
	}

	id := svc.newID()
	if kind == lifecycle.KindDaycare {
		tenantID = id
	} else if tenantID == "" {
		return nil, core.ErrTenantRequired
	}

	err = svc.store.Transaction(ctx, func(tx Tx) error {
		if kind != lifecycle.KindDaycare {
			if _, err := tx.FindOne(ctx, lifecycle.KindDaycare, tenantID, tenantID); err != nil {
				return errors.Wrap(err, "resolving tenant")
			}
		}

		created, err := tx.Create(ctx, in.Build(tenantID, id, status, NowFunc()))
		if err != nil {
			return errors.Wrap(err, "inserting "+kind.String())
		}
		for _, hook := range svc.createHooks[kind] {
			if err := hook(ctx, tx, created, in); err != nil {
				return err
			}
		}
		rec = created
		return nil
	})
	if err != nil {
		return nil, svc.storeErr("creating "+kind.String(), err)
	}
	return rec, nil
}

// validateInput reports the struct validation errors & an invalid initial status together.
func (svc *Service) validateInput(t *lifecycle.Table, in Input) error {
	var fields []core.FieldError
	if err := core.ValidateStruct(svc.validate, svc.translator, in); err != nil {
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			return err
		}
		fields = append(fields, vErr.Fields...)
	}
	if st := in.InitialStatus(); st != "" && !t.ValidInitial(st) {
		fields = append(fields, core.FieldError{
			Field: "status",
			Error: fmt.Sprintf("a new %s cannot start as %q", t.Kind(), st),
		})
	}
	if len(fields) > 0 {
		return core.NewValidationError(errors.New("invalid input"), fields...)
	}
	return nil
}

// DeleteRecord permanently deletes the record. There is no soft-delete & no reference check.
// Daycares are never deleted.
func (svc *Service) DeleteRecord(ctx context.Context, tenantID string, kind lifecycle.Kind, id string) (err error) {
	start := time.Now()
	defer func() { svc.observe(kind, OpDelete, start, err) }()

	if _, err = table(kind); err != nil {
		return err
	}
	if kind == lifecycle.KindDaycare {
		return ErrNotDeletable
	}
	if tenantID == "" {
		return core.ErrTenantRequired
	}
	if err = svc.store.Delete(ctx, kind, tenantID, id); err != nil {
		return svc.storeErr("deleting "+kind.String(), err)
	}
	svc.logger.Info(fmt.Sprintf("%s %s deleted", kind, id))
	return nil
}
