// Package inmemdb is an in-memory implementation of the stores, used for tests & local runs without postgres.
package inmemdb

import (
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/staff"
	"github.com/trezcool/creche/core/user"
)

type (
	DB struct {
		mu sync.RWMutex
		t  tables
	}

	// txExecutor lets a user.Repository join a transaction of the record store.
	// It carries no SQL connection: only the transaction's tables.
	txExecutor struct {
		sqlx.ExtContext
		t *tables
	}

	tables struct {
		daycare map[string]daycare.Daycare
		child   map[string]child.Child
		staff   map[string]staff.Staff
		user    map[string]user.User
	}
)

func Open() *DB {
	return &DB{
		t: tables{
			daycare: make(map[string]daycare.Daycare),
			child:   make(map[string]child.Child),
			staff:   make(map[string]staff.Staff),
			user:    make(map[string]user.User),
		},
	}
}

// clone copies every table.
func (t *tables) clone() tables {
	c := tables{
		daycare: make(map[string]daycare.Daycare, len(t.daycare)),
		child:   make(map[string]child.Child, len(t.child)),
		staff:   make(map[string]staff.Staff, len(t.staff)),
		user:    make(map[string]user.User, len(t.user)),
	}
	for k, v := range t.daycare {
		c.daycare[k] = v
	}
	for k, v := range t.child {
		c.child[k] = v
	}
	for k, v := range t.staff {
		c.staff[k] = v
	}
	for k, v := range t.user {
		c.user[k] = v
	}
	return c
}

// acquire returns the tables to work on & the func releasing them.
// Inside a transaction (txTables != nil) the transaction already holds db.mu, so nothing is locked.
func (db *DB) acquire(txTables *tables, write bool) (*tables, func()) {
	if txTables != nil {
		return txTables, func() {}
	}
	if write {
		db.mu.Lock()
		return &db.t, db.mu.Unlock
	}
	db.mu.RLock()
	return &db.t, db.mu.RUnlock
}

// txTables returns the tables of the transaction exec belongs to, if any.
func txTables(exec []core.DBExecutor) *tables {
	if len(exec) == 0 {
		return nil
	}
	if e, ok := exec[0].(*txExecutor); ok {
		return e.t
	}
	return nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = Open().t
}
