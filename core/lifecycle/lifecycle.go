// Package lifecycle holds the status transition tables of the status-bearing entities
// (Daycare, Child & Staff) and the pure decision functions built on them.
package lifecycle

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
)

// Kind identifies a status-bearing entity type.
type Kind string

const (
	KindDaycare Kind = "daycare"
	KindChild   Kind = "child"
	KindStaff   Kind = "staff"
)

// Kinds lists every status-bearing entity type.
var Kinds = []Kind{KindDaycare, KindChild, KindStaff}

var ErrUnknownKind = errors.New("unknown entity type")

// ParseKind maps singular & plural route names to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daycare", "daycares":
		return KindDaycare, nil
	case "child", "children":
		return KindChild, nil
	case "staff", "staffs":
		return KindStaff, nil
	default:
		return "", errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}

func (k Kind) String() string { return string(k) }

// Status is the lifecycle state of a record. Each Kind has its own fixed set.
type Status string

func (s Status) String() string { return string(s) }

// Edge is a legal (From -> To) transition.
type Edge struct {
	From Status
	To   Status
}

// Table is the transition table of one entity Kind.
type Table struct {
	kind          Kind
	statuses      []Status
	initial       []Status
	edges         map[Status]map[Status]struct{}
	defaultStatus Status
}

// NewTable builds a Table. The first initial status is the default status of new records.
// It panics if an edge or initial status falls outside statuses.
func NewTable(kind Kind, statuses []Status, initial []Status, edges ...Edge) *Table {
	t := &Table{
		kind:     kind,
		statuses: statuses,
		initial:  initial,
		edges:    make(map[Status]map[Status]struct{}, len(statuses)),
	}
	for _, e := range edges {
		if !t.Valid(e.From) || !t.Valid(e.To) {
			panic("lifecycle: " + string(kind) + " edge outside of status set: " + string(e.From) + " -> " + string(e.To))
		}
		if _, ok := t.edges[e.From]; !ok {
			t.edges[e.From] = make(map[Status]struct{})
		}
		t.edges[e.From][e.To] = struct{}{}
	}
	for _, s := range initial {
		if !t.Valid(s) {
			panic("lifecycle: " + string(kind) + " initial status outside of status set: " + string(s))
		}
	}
	if len(initial) > 0 {
		t.defaultStatus = initial[0]
	}
	return t
}

func (t *Table) Kind() Kind { return t.kind }

// Statuses returns the fixed status set of the Kind.
func (t *Table) Statuses() []Status {
	return append([]Status(nil), t.statuses...)
}

// DefaultStatus is the status assigned to new records when none is requested.
func (t *Table) DefaultStatus() Status { return t.defaultStatus }

// Valid reports whether s belongs to the Kind's status set.
func (t *Table) Valid(s Status) bool {
	for _, st := range t.statuses {
		if st == s {
			return true
		}
	}
	return false
}

// ValidInitial reports whether new records may be created with status s.
func (t *Table) ValidInitial(s Status) bool {
	for _, st := range t.initial {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether (from -> to) is an edge of the table.
// Self edges are never part of a table.
func (t *Table) CanTransition(from, to Status) bool {
	targets, ok := t.edges[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Check returns a *core.InvalidTransitionError when (from -> to) is not an edge of the table.
func (t *Table) Check(from, to Status) error {
	if t.CanTransition(from, to) {
		return nil
	}
	return &core.InvalidTransitionError{Kind: string(t.kind), From: string(from), To: string(to)}
}

// Targets lists the statuses reachable from `from` in one transition, sorted.
func (t *Table) Targets(from Status) []Status {
	targets := make([]Status, 0, len(t.edges[from]))
	for to := range t.edges[from] {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// Lookup returns the transition table of kind.
func Lookup(kind Kind) (*Table, bool) {
	t, ok := tables[kind]
	return t, ok
}

// MustLookup is like Lookup but panics for unknown kinds.
func MustLookup(kind Kind) *Table {
	t, ok := Lookup(kind)
	if !ok {
		panic("lifecycle: no transition table for " + string(kind))
	}
	return t
}

// CanTransition reports whether a record of kind may move from current to target.
// Unknown kinds, statuses outside the kind's set, self transitions and missing edges all yield false.
func CanTransition(kind Kind, current, target Status) bool {
	t, ok := Lookup(kind)
	if !ok {
		return false
	}
	return t.CanTransition(current, target)
}
