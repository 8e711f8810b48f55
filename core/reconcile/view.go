// Package reconcile keeps a client-side list of records in step with the store while status changes
// are applied optimistically: a change shows immediately, then is confirmed or rolled back once the
// store answers, and the whole list is replaced whenever fresh data is loaded.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
)

// State of a row with respect to its last status change request.
type State int

const (
	Settled State = iota
	Speculative
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Speculative:
		return "speculative"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	}
	return "settled"
}

// Notification levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

type Notification struct {
	Level    string           `json:"level"`
	Message  string           `json:"message"`
	RecordID string           `json:"record_id"`
	Code     record.ErrorCode `json:"code,omitempty"`
}

// Mutator is the authoritative side of a View.
type Mutator interface {
	ChangeStatus(ctx context.Context, kind lifecycle.Kind, id string, target lifecycle.Status) (record.Record, error)
}

// ServiceMutator binds a record.Service to the tenant of the View's user.
type ServiceMutator struct {
	svc      *record.Service
	tenantID string
}

var _ Mutator = (*ServiceMutator)(nil) // interface compliance check

func NewServiceMutator(svc *record.Service, tenantID string) *ServiceMutator {
	return &ServiceMutator{svc: svc, tenantID: tenantID}
}

func (m *ServiceMutator) ChangeStatus(ctx context.Context, kind lifecycle.Kind, id string, target lifecycle.Status) (record.Record, error) {
	return m.svc.ChangeStatus(ctx, m.tenantID, kind, id, target)
}

// Row is a record as currently displayed. Status may differ from Record.GetStatus() while Speculative.
type Row struct {
	Record record.Record
	Status lifecycle.Status
	State  State
}

type row struct {
	rec    record.Record
	status lifecycle.Status
	state  State
	// base is the last status known to be held by the store: loaded, or confirmed by a request
	base      lifecycle.Status
	baseToken uint64
	// pending holds the unsettled requests on the row, oldest first
	pending []speculation
}

type speculation struct {
	token  uint64
	target lifecycle.Status
}

// settle drops the request token from the pending ones & redisplays the newest pending target, or the base.
func (r *row) settle(token uint64, confirmed record.Record) {
	for i, sp := range r.pending {
		if sp.token == token {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			break
		}
	}
	if confirmed != nil && token > r.baseToken {
		r.rec, r.base, r.baseToken = confirmed, confirmed.GetStatus(), token
	}

	if n := len(r.pending); n > 0 {
		r.status, r.state = r.pending[n-1].target, Speculative
		return
	}
	r.status = r.base
	if confirmed != nil {
		r.state = Confirmed
	} else {
		r.state = RolledBack
	}
}

// View is safe for concurrent use.
type View struct {
	mu       sync.Mutex
	kind     lifecycle.Kind
	mutator  Mutator
	rows     []*row
	index    map[string]*row
	detailID string
	notes    []Notification
	gen      uint64 // bumped by every Refresh
	tokens   uint64
}

func NewView(kind lifecycle.Kind, mutator Mutator, recs []record.Record) *View {
	v := &View{kind: kind, mutator: mutator}
	v.load(recs)
	return v
}

func (v *View) load(recs []record.Record) {
	v.rows = make([]*row, 0, len(recs))
	v.index = make(map[string]*row, len(recs))
	for _, rec := range recs {
		r := &row{rec: rec, status: rec.GetStatus(), base: rec.GetStatus()}
		v.rows = append(v.rows, r)
		v.index[rec.GetID()] = r
	}
}

func (v *View) Kind() lifecycle.Kind { return v.kind }

// Rows returns the rows in display order.
func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := make([]Row, 0, len(v.rows))
	for _, r := range v.rows {
		rows = append(rows, Row{Record: r.rec, Status: r.status, State: r.state})
	}
	return rows
}

func (v *View) Row(id string) (Row, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, ok := v.index[id]
	if !ok {
		return Row{}, false
	}
	return Row{Record: r.rec, Status: r.status, State: r.state}, true
}

// OpenDetail opens the detail view of the record id. It returns false if id is not listed.
func (v *View) OpenDetail(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.index[id]; !ok {
		return false
	}
	v.detailID = id
	return true
}

func (v *View) CloseDetail() {
	v.mu.Lock()
	v.detailID = ""
	v.mu.Unlock()
}

// DetailID returns the id of the open detail view, if any.
func (v *View) DetailID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.detailID
}

// Notifications returns the pending notifications & clears them.
func (v *View) Notifications() []Notification {
	v.mu.Lock()
	defer v.mu.Unlock()

	notes := v.notes
	v.notes = nil
	return notes
}

// RequestStatusChange shows target on the row right away, then asks the Mutator to persist it.
// Once every request on the row has failed, it gets back the status the store was last known to hold.
// The returned error is the Mutator's.
func (v *View) RequestStatusChange(ctx context.Context, id string, target lifecycle.Status) error {
	v.mu.Lock()
	r, ok := v.index[id]
	if !ok {
		v.mu.Unlock()
		return core.NewNotFoundError(v.kind.String(), id)
	}
	gen := v.gen
	v.tokens++
	token := v.tokens
	r.pending = append(r.pending, speculation{token: token, target: target})
	r.status, r.state = target, Speculative
	v.mu.Unlock()

	rec, err := v.mutator.ChangeStatus(ctx, v.kind, id, target)

	v.mu.Lock()
	defer v.mu.Unlock()

	// a Refresh since the request holds fresher data than the speculation; leave its rows alone
	stale := v.gen != gen
	if err != nil {
		v.notify(failureNote(v.kind, id, target, err))
		if !stale {
			r.settle(token, nil)
		}
		return err
	}

	v.notify(Notification{
		Level:    LevelSuccess,
		Message:  fmt.Sprintf("%s status changed to %s", v.kind, rec.GetStatus()),
		RecordID: id,
	})
	if !stale {
		r.settle(token, rec)
	}
	return nil
}

// Refresh replaces the rows with recs, the authoritative list.
// The detail view is closed if its record is no longer listed.
func (v *View) Refresh(recs []record.Record) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.gen++
	v.load(recs)
	if _, ok := v.index[v.detailID]; !ok {
		v.detailID = ""
	}
}

func (v *View) notify(n Notification) {
	v.notes = append(v.notes, n)
}

func failureNote(kind lifecycle.Kind, id string, target lifecycle.Status, err error) Notification {
	n := Notification{Level: LevelError, RecordID: id, Code: record.Classify(err)}
	switch n.Code {
	case record.CodeValidation, record.CodeInvalidTransition:
		n.Message = fmt.Sprintf("Cannot set %s status to %s: %v", kind, target, err)
	case record.CodeNotFound:
		n.Message = fmt.Sprintf("This %s no longer exists", kind)
	default:
		n.Message = fmt.Sprintf("Could not save the %s status, please try again", kind)
	}
	return n
}
