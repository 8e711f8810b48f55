// Package cache provides a read-through cache of tenant list queries in front of a record.Store.
package cache

import (
	"context"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
)

const DefaultSize = 256

// Observer is notified of every cache lookup.
type Observer interface {
	ObserveCache(kind lifecycle.Kind, hit bool)
}

// Store caches the results of Find per tenant & drops every cached list of a tenant after any write to it.
// Records returned by Find are shared with the cache & must not be modified.
type Store struct {
	record.Store
	lru      *lru.Cache[string, []record.Record]
	mu       sync.Mutex // orders invalidations after in-flight fills
	observer Observer
}

var _ record.Store = (*Store)(nil) // interface compliance check

func New(store record.Store, size int, observer Observer) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, []record.Record](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating lru cache")
	}
	return &Store{Store: store, lru: c, observer: observer}, nil
}

func cacheKey(kind lifecycle.Kind, filter record.Filter) string {
	return filter.TenantID + "|" + kind.String() + "|" + filter.Key()
}

func (s *Store) observe(kind lifecycle.Kind, hit bool) {
	if s.observer != nil {
		s.observer.ObserveCache(kind, hit)
	}
}

func (s *Store) Find(ctx context.Context, kind lifecycle.Kind, filter record.Filter) ([]record.Record, error) {
	if filter.TenantID == "" {
		return nil, core.ErrTenantRequired
	}
	key := cacheKey(kind, filter)
	if recs, ok := s.lru.Get(key); ok {
		s.observe(kind, true)
		return append([]record.Record(nil), recs...), nil
	}
	s.observe(kind, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.Store.Find(ctx, kind, filter)
	if err != nil {
		return nil, err
	}
	s.lru.Add(key, recs)
	return append([]record.Record(nil), recs...), nil
}

func (s *Store) Create(ctx context.Context, rec record.Record) (record.Record, error) {
	defer s.Invalidate(rec.GetTenantID())
	return s.Store.Create(ctx, rec)
}

func (s *Store) Update(ctx context.Context, rec record.Record) (record.Record, error) {
	defer s.Invalidate(rec.GetTenantID())
	return s.Store.Update(ctx, rec)
}

func (s *Store) Delete(ctx context.Context, kind lifecycle.Kind, tenantID, id string) error {
	defer s.Invalidate(tenantID)
	return s.Store.Delete(ctx, kind, tenantID, id)
}

// Transaction invalidates every tenant written to by fn once the transaction is over, whatever its outcome.
func (s *Store) Transaction(ctx context.Context, fn func(tx record.Tx) error) error {
	touched := make(map[string]struct{})
	defer func() {
		for tenantID := range touched {
			s.Invalidate(tenantID)
		}
	}()
	return s.Store.Transaction(ctx, func(tx record.Tx) error {
		return fn(&cachedTx{Tx: tx, touched: touched})
	})
}

// Invalidate drops every cached list of tenantID.
func (s *Store) Invalidate(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := tenantID + "|"
	for _, key := range s.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.lru.Remove(key)
		}
	}
}

// cachedTx records the tenants written to during a transaction. Reads inside it bypass the cache.
type cachedTx struct {
	record.Tx
	touched map[string]struct{}
}

func (tx *cachedTx) Create(ctx context.Context, rec record.Record) (record.Record, error) {
	tx.touched[rec.GetTenantID()] = struct{}{}
	return tx.Tx.Create(ctx, rec)
}

func (tx *cachedTx) Update(ctx context.Context, rec record.Record) (record.Record, error) {
	tx.touched[rec.GetTenantID()] = struct{}{}
	return tx.Tx.Update(ctx, rec)
}

func (tx *cachedTx) Delete(ctx context.Context, kind lifecycle.Kind, tenantID, id string) error {
	tx.touched[tenantID] = struct{}{}
	return tx.Tx.Delete(ctx, kind, tenantID, id)
}

func (tx *cachedTx) Transaction(ctx context.Context, fn func(tx record.Tx) error) error {
	return tx.Tx.Transaction(ctx, func(inner record.Tx) error {
		return fn(&cachedTx{Tx: inner, touched: tx.touched})
	})
}
