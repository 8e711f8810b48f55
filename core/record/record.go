// Package record implements the tenant-scoped mutation service shared by every status-bearing entity:
// creation, field edits, status changes & deletion, all validated before they reach the Store.
package record

import (
	"context"
	"time"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
)

type (
	// Record is a status-bearing entity owned by exactly one tenant.
	// Implementations are pointers to the entity structs.
	Record interface {
		Kind() lifecycle.Kind
		GetID() string
		GetTenantID() string
		GetStatus() lifecycle.Status
		SetStatus(status lifecycle.Status, at time.Time)
	}

	// Input holds the information needed to create a Record.
	Input interface {
		Kind() lifecycle.Kind
		// Clean normalizes the input (trimming, lowering emails...) before validation.
		Clean()
		// InitialStatus is the requested status; empty means the Kind's default.
		InitialStatus() lifecycle.Status
		Build(tenantID, id string, status lifecycle.Status, now time.Time) Record
	}

	// Patch defines what information may be provided to modify an existing Record.
	// Only set fields are applied & the status is never part of a Patch.
	Patch interface {
		Kind() lifecycle.Kind
		Apply(rec Record, now time.Time) (Record, error)
	}

	// Filter scopes a Find. TenantID is mandatory.
	Filter struct {
		TenantID string
		Statuses []lifecycle.Status
		// Search does a case-insensitive match on the record's names.
		Search   string
		Ordering []core.DBOrdering
	}

	// Store is the persistence boundary. Every operation is scoped by a tenant id,
	// either explicitly or through the Record's GetTenantID.
	Store interface {
		Find(ctx context.Context, kind lifecycle.Kind, filter Filter) ([]Record, error)
		// FindOne returns a *core.NotFoundError when id does not resolve within tenantID.
		FindOne(ctx context.Context, kind lifecycle.Kind, tenantID, id string) (Record, error)
		Create(ctx context.Context, rec Record) (Record, error)
		Update(ctx context.Context, rec Record) (Record, error)
		Delete(ctx context.Context, kind lifecycle.Kind, tenantID, id string) error
		// Transaction runs fn atomically: either every write of fn persists or none does.
		Transaction(ctx context.Context, fn func(tx Tx) error) error
	}

	// Tx is a Store bound to a running transaction.
	// Executor lets other repositories join the transaction; it may be nil for stores that are not SQL backed.
	Tx interface {
		Store
		Executor() core.DBExecutor
	}
)

// Key returns a stable key for the filter, used by read-through caches.
func (f Filter) Key() string {
	key := f.TenantID + "|" + f.Search + "|"
	for _, s := range f.Statuses {
		key += string(s) + ","
	}
	key += "|"
	for _, o := range f.Ordering {
		key += o.String() + ","
	}
	return key
}
