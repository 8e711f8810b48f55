package record

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
)

// ErrorCode classifies a mutation failure for the presentation layer.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "validation"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeNotFound          ErrorCode = "not_found"
	CodePersistence       ErrorCode = "persistence"
	CodeInternal          ErrorCode = "internal"
)

// Result is the UI-facing outcome of a mutation. Exactly one of Record (when applicable) or Error is set.
type Result struct {
	Success bool                `json:"success"`
	Record  Record              `json:"record,omitempty"`
	Code    ErrorCode           `json:"code,omitempty"`
	Error   string              `json:"error,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Classify maps err to its ErrorCode.
func Classify(err error) ErrorCode {
	cause := errors.Cause(err)
	switch cause.(type) {
	case *core.ValidationError:
		return CodeValidation
	case *core.InvalidTransitionError:
		return CodeInvalidTransition
	case *core.NotFoundError:
		return CodeNotFound
	case *core.PersistenceError:
		return CodePersistence
	}
	switch cause {
	case core.ErrNotFound, core.ErrTenantRequired, lifecycle.ErrUnknownKind:
		return CodeNotFound
	case ErrNotDeletable:
		return CodeInvalidTransition
	case ErrKindMismatch:
		return CodeValidation
	}
	return CodeInternal
}

// Outcome builds the Result of a mutation that returned rec & err.
func Outcome(rec Record, err error) Result {
	if err == nil {
		return Result{Success: true, Record: rec}
	}

	res := Result{Code: Classify(err)}
	switch res.Code {
	case CodeValidation:
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			res.Errors = vErr.FieldMessages()
		}
		res.Error = err.Error()
	case CodeInternal:
		// internal details are not for end users
		res.Error = "something went wrong, please try again later"
	default:
		res.Error = err.Error()
	}
	return res
}

// RequestStatusChange is ChangeStatus reported as a Result.
func (svc *Service) RequestStatusChange(ctx context.Context, tenantID string, kind lifecycle.Kind, id string, target lifecycle.Status) Result {
	return Outcome(svc.ChangeStatus(ctx, tenantID, kind, id, target))
}

// RequestFieldUpdate is UpdateFields reported as a Result.
func (svc *Service) RequestFieldUpdate(ctx context.Context, tenantID string, kind lifecycle.Kind, id string, patch Patch) Result {
	return Outcome(svc.UpdateFields(ctx, tenantID, kind, id, patch))
}

// RequestCreate is CreateRecord reported as a Result.
func (svc *Service) RequestCreate(ctx context.Context, tenantID string, in Input) Result {
	return Outcome(svc.CreateRecord(ctx, tenantID, in))
}

// RequestDelete is DeleteRecord reported as a Result.
func (svc *Service) RequestDelete(ctx context.Context, tenantID string, kind lifecycle.Kind, id string) Result {
	return Outcome(nil, svc.DeleteRecord(ctx, tenantID, kind, id))
}
