package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/staff"
)

const tsFmt = "2006-01-02T15:04:05.000000000"

var (
	errDuplicateID = errors.New("duplicate key value violates unique constraint")

	defaultOrdering = map[lifecycle.Kind][]core.DBOrdering{
		lifecycle.KindDaycare: {{Field: "name", Ascending: true}},
		lifecycle.KindChild:   {{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}},
		lifecycle.KindStaff:   {{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}},
	}
)

type recordStore struct {
	db *DB
	t  *tables // set inside a transaction
}

var (
	_ record.Store   = (*recordStore)(nil) // interface compliance check
	_ daycare.Lister = (*recordStore)(nil)
)

func NewRecordStore(db *DB) *recordStore {
	return &recordStore{db: db}
}

func (s *recordStore) Find(_ context.Context, kind lifecycle.Kind, filter record.Filter) ([]record.Record, error) {
	if filter.TenantID == "" {
		return nil, core.ErrTenantRequired
	}

	t, done := s.db.acquire(s.t, false)
	var recs []record.Record
	switch kind {
	case lifecycle.KindDaycare:
		if d, ok := t.daycare[filter.TenantID]; ok {
			recs = append(recs, &d)
		}
	case lifecycle.KindChild:
		for _, c := range t.child {
			if c.DaycareID == filter.TenantID {
				c := c
				recs = append(recs, &c)
			}
		}
	case lifecycle.KindStaff:
		for _, st := range t.staff {
			if st.DaycareID == filter.TenantID {
				st := st
				recs = append(recs, &st)
			}
		}
	default:
		done()
		return nil, errors.Wrapf(lifecycle.ErrUnknownKind, "%q", kind)
	}
	done()

	recs = filterRecords(recs, filter.Statuses, filter.Search)
	ordering := filter.Ordering
	if len(ordering) == 0 {
		ordering = defaultOrdering[kind]
	}
	sortRecords(recs, ordering)
	return recs, nil
}

func (s *recordStore) FindOne(_ context.Context, kind lifecycle.Kind, tenantID, id string) (record.Record, error) {
	t, done := s.db.acquire(s.t, false)
	defer done()

	switch kind {
	case lifecycle.KindDaycare:
		if d, ok := t.daycare[id]; ok && d.ID == tenantID {
			return &d, nil
		}
	case lifecycle.KindChild:
		if c, ok := t.child[id]; ok && c.DaycareID == tenantID {
			return &c, nil
		}
	case lifecycle.KindStaff:
		if st, ok := t.staff[id]; ok && st.DaycareID == tenantID {
			return &st, nil
		}
	default:
		return nil, errors.Wrapf(lifecycle.ErrUnknownKind, "%q", kind)
	}
	return nil, core.NewNotFoundError(kind.String(), id)
}

func (s *recordStore) Create(_ context.Context, rec record.Record) (record.Record, error) {
	t, done := s.db.acquire(s.t, true)
	defer done()

	switch r := rec.(type) {
	case *daycare.Daycare:
		if _, ok := t.daycare[r.ID]; ok {
			return nil, errDuplicateID
		}
		t.daycare[r.ID] = *r
		d := *r
		return &d, nil
	case *child.Child:
		if _, ok := t.child[r.ID]; ok {
			return nil, errDuplicateID
		}
		t.child[r.ID] = *r
		c := *r
		return &c, nil
	case *staff.Staff:
		if _, ok := t.staff[r.ID]; ok {
			return nil, errDuplicateID
		}
		t.staff[r.ID] = *r
		st := *r
		return &st, nil
	default:
		return nil, fmt.Errorf("unsupported record %T", rec)
	}
}

func (s *recordStore) Update(_ context.Context, rec record.Record) (record.Record, error) {
	t, done := s.db.acquire(s.t, true)
	defer done()

	notFound := core.NewNotFoundError(rec.Kind().String(), rec.GetID())
	switch r := rec.(type) {
	case *daycare.Daycare:
		if _, ok := t.daycare[r.ID]; !ok {
			return nil, notFound
		}
		t.daycare[r.ID] = *r
		d := *r
		return &d, nil
	case *child.Child:
		if orig, ok := t.child[r.ID]; !ok || orig.DaycareID != r.DaycareID {
			return nil, notFound
		}
		t.child[r.ID] = *r
		c := *r
		return &c, nil
	case *staff.Staff:
		if orig, ok := t.staff[r.ID]; !ok || orig.DaycareID != r.DaycareID {
			return nil, notFound
		}
		t.staff[r.ID] = *r
		st := *r
		return &st, nil
	default:
		return nil, fmt.Errorf("unsupported record %T", rec)
	}
}

func (s *recordStore) Delete(_ context.Context, kind lifecycle.Kind, tenantID, id string) error {
	t, done := s.db.acquire(s.t, true)
	defer done()

	switch kind {
	case lifecycle.KindChild:
		if c, ok := t.child[id]; ok && c.DaycareID == tenantID {
			delete(t.child, id)
			return nil
		}
	case lifecycle.KindStaff:
		if st, ok := t.staff[id]; ok && st.DaycareID == tenantID {
			delete(t.staff, id)
			return nil
		}
	case lifecycle.KindDaycare:
		return errors.New("daycares cannot be deleted")
	default:
		return errors.Wrapf(lifecycle.ErrUnknownKind, "%q", kind)
	}
	return core.NewNotFoundError(kind.String(), id)
}

// Transaction runs fn against a copy of every table (users included) while holding the write lock.
// The copy replaces the tables only if fn succeeds.
func (s *recordStore) Transaction(_ context.Context, fn func(tx record.Tx) error) error {
	if s.t != nil {
		return fn(&tx{recordStore: s})
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.t.clone()
	if err := fn(&tx{recordStore: &recordStore{db: s.db, t: &work}}); err != nil {
		return err
	}
	s.db.t = work
	return nil
}

func (s *recordStore) ListDaycares(_ context.Context, statuses ...lifecycle.Status) ([]daycare.Daycare, error) {
	t, done := s.db.acquire(s.t, false)
	recs := make([]record.Record, 0, len(t.daycare))
	for _, d := range t.daycare {
		d := d
		recs = append(recs, &d)
	}
	done()

	recs = filterRecords(recs, statuses, "")
	sortRecords(recs, defaultOrdering[lifecycle.KindDaycare])

	daycares := make([]daycare.Daycare, 0, len(recs))
	for _, rec := range recs {
		daycares = append(daycares, *rec.(*daycare.Daycare))
	}
	return daycares, nil
}

type tx struct {
	*recordStore
}

// Executor lets the user repository write to the transaction's tables.
func (t *tx) Executor() core.DBExecutor { return &txExecutor{t: t.recordStore.t} }

// Transaction joins the running transaction.
func (t *tx) Transaction(_ context.Context, fn func(tx record.Tx) error) error {
	return fn(t)
}

func filterRecords(recs []record.Record, statuses []lifecycle.Status, search string) []record.Record {
	if len(statuses) == 0 && search == "" {
		return recs
	}
	search = strings.ToLower(search)
	filtered := recs[:0]
	for _, rec := range recs {
		if len(statuses) > 0 && !hasStatus(statuses, rec.GetStatus()) {
			continue
		}
		if search != "" && !strings.Contains(searchText(rec), search) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

func hasStatus(statuses []lifecycle.Status, status lifecycle.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func searchText(rec record.Record) string {
	var parts []string
	switch r := rec.(type) {
	case *daycare.Daycare:
		parts = []string{r.Name, r.City, r.Email}
	case *child.Child:
		parts = []string{r.FirstName, r.LastName, r.GuardianName}
	case *staff.Staff:
		parts = []string{r.FirstName, r.LastName, r.Email}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// orderValue returns a lexicographically sortable value of the field.
func orderValue(rec record.Record, field string) string {
	switch field {
	case "id":
		return rec.GetID()
	case "status":
		return string(rec.GetStatus())
	}

	switch r := rec.(type) {
	case *daycare.Daycare:
		switch field {
		case "name":
			return strings.ToLower(r.Name)
		case "city":
			return strings.ToLower(r.City)
		case "plan":
			return r.Plan
		case "capacity":
			return fmt.Sprintf("%010d", r.Capacity)
		case "created_at":
			return r.CreatedAt.UTC().Format(tsFmt)
		case "updated_at":
			return r.UpdatedAt.UTC().Format(tsFmt)
		}
	case *child.Child:
		switch field {
		case "first_name":
			return strings.ToLower(r.FirstName)
		case "last_name":
			return strings.ToLower(r.LastName)
		case "program":
			return r.Program
		case "date_of_birth":
			return r.DateOfBirth.UTC().Format(tsFmt)
		case "created_at":
			return r.CreatedAt.UTC().Format(tsFmt)
		case "updated_at":
			return r.UpdatedAt.UTC().Format(tsFmt)
		}
	case *staff.Staff:
		switch field {
		case "first_name":
			return strings.ToLower(r.FirstName)
		case "last_name":
			return strings.ToLower(r.LastName)
		case "role":
			return r.Role
		case "pay_rate":
			return fmt.Sprintf("%016.2f", r.PayRate)
		case "hire_date":
			return r.HireDate.UTC().Format(tsFmt)
		case "created_at":
			return r.CreatedAt.UTC().Format(tsFmt)
		case "updated_at":
			return r.UpdatedAt.UTC().Format(tsFmt)
		}
	}
	return ""
}

func sortRecords(recs []record.Record, ordering []core.DBOrdering) {
	sort.SliceStable(recs, func(i, j int) bool {
		for _, o := range ordering {
			vi, vj := orderValue(recs[i], o.Field), orderValue(recs[j], o.Field)
			if vi == vj {
				continue
			}
			if o.Ascending {
				return vi < vj
			}
			return vi > vj
		}
		return recs[i].GetID() < recs[j].GetID()
	})
}
