package cache

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/storage/database/inmem"
)

type countingStore struct {
	record.Store
	finds int
}

func (s *countingStore) Find(ctx context.Context, kind lifecycle.Kind, filter record.Filter) ([]record.Record, error) {
	s.finds++
	return s.Store.Find(ctx, kind, filter)
}

type hitCounter struct{ hits, misses int }

func (c *hitCounter) ObserveCache(_ lifecycle.Kind, hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func setup(t *testing.T) (*Store, *countingStore, *hitCounter) {
	t.Helper()
	backend := &countingStore{Store: inmemdb.NewRecordStore(inmemdb.Open())}
	obs := new(hitCounter)
	store, err := New(backend, 16, obs)
	require.NoError(t, err)

	ctx := context.Background()
	for _, rec := range []record.Record{
		&daycare.Daycare{ID: "dc1", Name: "Sunny Side", Status: lifecycle.DaycareActive},
		&daycare.Daycare{ID: "dc2", Name: "Little Steps", Status: lifecycle.DaycareActive},
		&child.Child{ID: "c1", DaycareID: "dc1", FirstName: "Bo", LastName: "Adams", Status: lifecycle.ChildActive},
		&child.Child{ID: "c2", DaycareID: "dc2", FirstName: "Al", LastName: "Brown", Status: lifecycle.ChildActive},
	} {
		_, err = backend.Create(ctx, rec)
		require.NoError(t, err)
	}
	return store, backend, obs
}

func TestStore_readThrough(t *testing.T) {
	store, backend, obs := setup(t)
	ctx := context.Background()
	filter := record.Filter{TenantID: "dc1"}

	for i := 0; i < 3; i++ {
		recs, err := store.Find(ctx, lifecycle.KindChild, filter)
		require.NoError(t, err)
		require.Len(t, recs, 1)
	}
	assert.Equal(t, 1, backend.finds)
	assert.Equal(t, 2, obs.hits)
	assert.Equal(t, 1, obs.misses)

	// other filters are cached separately
	_, err := store.Find(ctx, lifecycle.KindChild, record.Filter{TenantID: "dc1", Search: "bo"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.finds)
}

func TestStore_writesInvalidateTenant(t *testing.T) {
	store, backend, _ := setup(t)
	ctx := context.Background()
	dc1 := record.Filter{TenantID: "dc1"}
	dc2 := record.Filter{TenantID: "dc2"}

	warm := func() {
		_, err := store.Find(ctx, lifecycle.KindChild, dc1)
		require.NoError(t, err)
		_, err = store.Find(ctx, lifecycle.KindChild, dc2)
		require.NoError(t, err)
	}
	warm()
	require.Equal(t, 2, backend.finds)

	rec, err := store.FindOne(ctx, lifecycle.KindChild, "dc1", "c1")
	require.NoError(t, err)
	rec.SetStatus(lifecycle.ChildInactive, rec.(*child.Child).UpdatedAt)
	_, err = store.Update(ctx, rec)
	require.NoError(t, err)

	recs, err := store.Find(ctx, lifecycle.KindChild, dc1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ChildInactive, recs[0].GetStatus(), "stale list served after a write")
	assert.Equal(t, 3, backend.finds)

	_, err = store.Find(ctx, lifecycle.KindChild, dc2)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.finds, "other tenants keep their cache")

	require.NoError(t, store.Delete(ctx, lifecycle.KindChild, "dc1", "c1"))
	recs, err = store.Find(ctx, lifecycle.KindChild, dc1)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStore_transactionInvalidates(t *testing.T) {
	store, backend, _ := setup(t)
	ctx := context.Background()
	dc1 := record.Filter{TenantID: "dc1"}

	_, err := store.Find(ctx, lifecycle.KindChild, dc1)
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = store.Transaction(ctx, func(tx record.Tx) error {
		if _, err := tx.Create(ctx, &child.Child{ID: "c3", DaycareID: "dc1", FirstName: "Cy", LastName: "Cole", Status: lifecycle.ChildActive}); err != nil {
			return err
		}
		return errBoom
	})
	require.Equal(t, errBoom, err)

	recs, err := store.Find(ctx, lifecycle.KindChild, dc1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 2, backend.finds)

	err = store.Transaction(ctx, func(tx record.Tx) error {
		_, err := tx.Create(ctx, &child.Child{ID: "c3", DaycareID: "dc1", FirstName: "Cy", LastName: "Cole", Status: lifecycle.ChildActive})
		return err
	})
	require.NoError(t, err)

	recs, err = store.Find(ctx, lifecycle.KindChild, dc1)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
