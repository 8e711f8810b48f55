package lifecycle

// Daycare statuses. Only ACTIVE daycares let their users into the dashboard.
const (
	DaycarePending  Status = "PENDING"
	DaycareActive   Status = "ACTIVE"
	DaycareInactive Status = "INACTIVE"
	DaycareArchived Status = "ARCHIVED"
)

// Child statuses.
const (
	ChildActive     Status = "Active"
	ChildWaitlisted Status = "Waitlisted"
	ChildInactive   Status = "Inactive"
)

// Staff statuses.
const (
	StaffActive   Status = "Active"
	StaffInactive Status = "Inactive"
	StaffArchived Status = "Archived"
)

// ARCHIVED is only ever reachable from INACTIVE, and only left back to INACTIVE.
var (
	DaycareTable = NewTable(
		KindDaycare,
		[]Status{DaycarePending, DaycareActive, DaycareInactive, DaycareArchived},
		[]Status{DaycarePending},
		Edge{DaycarePending, DaycareActive},
		Edge{DaycareActive, DaycareInactive},
		Edge{DaycareInactive, DaycareActive},
		Edge{DaycareInactive, DaycareArchived},
		Edge{DaycareArchived, DaycareInactive},
	)

	// Waitlisted -> Active happens when a spot is offered & accepted.
	ChildTable = NewTable(
		KindChild,
		[]Status{ChildActive, ChildWaitlisted, ChildInactive},
		[]Status{ChildActive, ChildWaitlisted},
		Edge{ChildActive, ChildWaitlisted},
		Edge{ChildActive, ChildInactive},
		Edge{ChildInactive, ChildActive},
		Edge{ChildWaitlisted, ChildActive},
	)

	StaffTable = NewTable(
		KindStaff,
		[]Status{StaffActive, StaffInactive, StaffArchived},
		[]Status{StaffActive},
		Edge{StaffActive, StaffInactive},
		Edge{StaffInactive, StaffActive},
		Edge{StaffInactive, StaffArchived},
		Edge{StaffArchived, StaffInactive},
	)

	tables = map[Kind]*Table{
		KindDaycare: DaycareTable,
		KindChild:   ChildTable,
		KindStaff:   StaffTable,
	}
)
