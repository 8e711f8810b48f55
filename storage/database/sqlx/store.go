// Package sqlxrepos implements the PostgreSQL storage on top of jmoiron/sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/child"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/staff"
)

var errDaycareDelete = errors.New("daycares cannot be deleted")

type recordStore struct {
	db   *sqlx.DB
	exec core.DBExecutor
}

var (
	_ record.Store   = (*recordStore)(nil) // interface compliance check
	_ daycare.Lister = (*recordStore)(nil)
)

func NewRecordStore(db *sqlx.DB) *recordStore {
	return &recordStore{db: db, exec: db}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func tableFor(kind lifecycle.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, errors.Wrapf(lifecycle.ErrUnknownKind, "%q", kind)
	}
	return t, nil
}

func selectRecords[R any](ctx context.Context, exec core.DBExecutor, conv func(R) record.Record, q string, args ...interface{}) ([]record.Record, error) {
	var rows []R
	if err := sqlx.SelectContext(ctx, exec, &rows, q, args...); err != nil {
		return nil, err
	}
	recs := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, conv(r))
	}
	return recs, nil
}

func getRecord[R any](ctx context.Context, exec core.DBExecutor, conv func(R) record.Record, q string, args ...interface{}) (record.Record, error) {
	var row R
	if err := sqlx.GetContext(ctx, exec, &row, q, args...); err != nil {
		return nil, err
	}
	return conv(row), nil
}

func fromDaycareRow(r daycareRow) record.Record { return r.daycare() }
func fromChildRow(r childRow) record.Record     { return r.child() }
func fromStaffRow(r staffRow) record.Record     { return r.staff() }

// query runs q against the table of kind, scanning into that kind's row type.
func (s *recordStore) query(ctx context.Context, kind lifecycle.Kind, one bool, q string, args ...interface{}) ([]record.Record, error) {
	q = s.db.Rebind(q)
	switch kind {
	case lifecycle.KindDaycare:
		if one {
			rec, err := getRecord(ctx, s.exec, fromDaycareRow, q, args...)
			return []record.Record{rec}, err
		}
		return selectRecords(ctx, s.exec, fromDaycareRow, q, args...)
	case lifecycle.KindChild:
		if one {
			rec, err := getRecord(ctx, s.exec, fromChildRow, q, args...)
			return []record.Record{rec}, err
		}
		return selectRecords(ctx, s.exec, fromChildRow, q, args...)
	case lifecycle.KindStaff:
		if one {
			rec, err := getRecord(ctx, s.exec, fromStaffRow, q, args...)
			return []record.Record{rec}, err
		}
		return selectRecords(ctx, s.exec, fromStaffRow, q, args...)
	}
	return nil, errors.Wrapf(lifecycle.ErrUnknownKind, "%q", kind)
}

func (s *recordStore) Find(ctx context.Context, kind lifecycle.Kind, filter record.Filter) ([]record.Record, error) {
	if filter.TenantID == "" {
		return nil, core.ErrTenantRequired
	}
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if !validID(filter.TenantID) {
		return []record.Record{}, nil
	}

	q, args, err := findQuery(t, filter)
	if err != nil {
		return nil, err
	}
	recs, err := s.query(ctx, kind, false, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", t.name)
	}
	return recs, nil
}

// findQuery builds the SELECT of filter on t, always scoped by the tenant column. Placeholders are not rebound.
func findQuery(t table, filter record.Filter) (string, []interface{}, error) {
	where := []string{t.tenantCol + " = ?"}
	args := []interface{}{filter.TenantID}

	if len(filter.Statuses) > 0 {
		cond, inArgs, err := sqlx.In("status IN (?)", filter.Statuses)
		if err != nil {
			return "", nil, errors.Wrap(err, "building status filter")
		}
		where = append(where, cond)
		args = append(args, inArgs...)
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		ors := make([]string, 0, len(t.searchCols))
		for _, col := range t.searchCols {
			ors = append(ors, col+" ILIKE ?")
			args = append(args, val)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		strings.Join(t.columns, ", "), t.name, strings.Join(where, " AND "), orderBy(t, filter.Ordering))
	return q, args, nil
}

// orderBy keeps the orderings on known columns only & always ends with the id, for stable pages.
func orderBy(t table, ordering []core.DBOrdering) string {
	list := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if t.orderable[ord.Field] {
			list = append(list, ord.String())
		}
	}
	if len(list) == 0 {
		list = append(list, t.defaultOrd)
	}
	return strings.Join(append(list, "id ASC"), ", ")
}

func (s *recordStore) FindOne(ctx context.Context, kind lifecycle.Kind, tenantID, id string) (record.Record, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if !validID(id) || !validID(tenantID) {
		return nil, core.NewNotFoundError(kind.String(), id)
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND %s = ?", strings.Join(t.columns, ", "), t.name, t.tenantCol)
	recs, err := s.query(ctx, kind, true, q, id, tenantID)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, core.NewNotFoundError(kind.String(), id)
		}
		return nil, errors.Wrapf(err, "finding %s", t.name)
	}
	return recs[0], nil
}

func toRow(rec record.Record) (interface{}, error) {
	switch r := rec.(type) {
	case *daycare.Daycare:
		return toDaycareRow(r), nil
	case *child.Child:
		return toChildRow(r), nil
	case *staff.Staff:
		return toStaffRow(r), nil
	}
	return nil, fmt.Errorf("unsupported record %T", rec)
}

func (s *recordStore) Create(ctx context.Context, rec record.Record) (record.Record, error) {
	t, err := tableFor(rec.Kind())
	if err != nil {
		return nil, err
	}
	row, err := toRow(rec)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		t.name, strings.Join(t.columns, ", "), strings.Join(t.columns, ", :"))
	if _, err = sqlx.NamedExecContext(ctx, s.exec, q, row); err != nil {
		return nil, errors.Wrapf(err, "inserting %s", t.name)
	}
	return rec, nil
}

func (s *recordStore) Update(ctx context.Context, rec record.Record) (record.Record, error) {
	t, err := tableFor(rec.Kind())
	if err != nil {
		return nil, err
	}
	if !validID(rec.GetID()) || !validID(rec.GetTenantID()) {
		return nil, core.NewNotFoundError(rec.Kind().String(), rec.GetID())
	}
	row, err := toRow(rec)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		switch col {
		case "id", "daycare_id", "created_at":
			continue
		}
		sets = append(sets, col+" = :"+col)
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id AND %s = :%s",
		t.name, strings.Join(sets, ", "), t.tenantCol, t.tenantCol)

	res, err := sqlx.NamedExecContext(ctx, s.exec, q, row)
	if err != nil {
		return nil, errors.Wrapf(err, "updating %s", t.name)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, errors.Wrapf(err, "updating %s", t.name)
	} else if n == 0 {
		return nil, core.NewNotFoundError(rec.Kind().String(), rec.GetID())
	}
	return rec, nil
}

func (s *recordStore) Delete(ctx context.Context, kind lifecycle.Kind, tenantID, id string) error {
	if kind == lifecycle.KindDaycare {
		return errDaycareDelete
	}
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	if !validID(id) || !validID(tenantID) {
		return core.NewNotFoundError(kind.String(), id)
	}

	q := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ? AND %s = ?", t.name, t.tenantCol))
	res, err := s.exec.ExecContext(ctx, q, id, tenantID)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", t.name)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrapf(err, "deleting %s", t.name)
	} else if n == 0 {
		return core.NewNotFoundError(kind.String(), id)
	}
	return nil
}

func (s *recordStore) Transaction(ctx context.Context, fn func(tx record.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if err = fn(&tx{recordStore: &recordStore{db: s.db, exec: sqlTx}, sqlTx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(sqlTx.Commit(), "committing transaction")
}

func (s *recordStore) ListDaycares(ctx context.Context, statuses ...lifecycle.Status) ([]daycare.Daycare, error) {
	t := tables[lifecycle.KindDaycare]
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.columns, ", "), t.name)
	var args []interface{}
	if len(statuses) > 0 {
		cond, inArgs, err := sqlx.In("status IN (?)", statuses)
		if err != nil {
			return nil, errors.Wrap(err, "building status filter")
		}
		q += " WHERE " + cond
		args = inArgs
	}
	q += " ORDER BY " + t.defaultOrd + ", id ASC"

	var rows []daycareRow
	if err := sqlx.SelectContext(ctx, s.exec, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "listing daycares")
	}
	daycares := make([]daycare.Daycare, 0, len(rows))
	for _, r := range rows {
		daycares = append(daycares, *r.daycare())
	}
	return daycares, nil
}

type tx struct {
	*recordStore
	sqlTx *sqlx.Tx
}

func (t *tx) Executor() core.DBExecutor { return t.sqlTx }

// Transaction joins the running transaction.
func (t *tx) Transaction(_ context.Context, fn func(tx record.Tx) error) error {
	return fn(t)
}
