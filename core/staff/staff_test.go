package staff_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/staff"
	"github.com/trezcool/creche/testutil"
)

func fieldMessages(t *testing.T, err error) map[string][]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	return vErr.FieldMessages()
}

func TestCreateStaff(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)

	now := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	record.NowFunc = func() time.Time { return now }
	defer func() { record.NowFunc = func() time.Time { return time.Now().UTC() } }()

	rec, err := env.RecordSvc.CreateRecord(ctx, d.ID, &staff.NewStaff{
		FirstName: "Bea",
		LastName:  "Mutombo",
		Role:      "Teacher",
		Email:     "Bea@Test.cd",
		PayRate:   18.5,
	})
	require.NoError(t, err)
	s := rec.(*staff.Staff)
	assert.Equal(t, lifecycle.StaffActive, s.Status)
	assert.Equal(t, staff.RoleTeacher, s.Role)
	assert.Equal(t, staff.PayHourly, s.PayType)
	assert.Equal(t, "bea@test.cd", s.Email)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), s.HireDate)
}

func TestCreateStaff_validation(t *testing.T) {
	env := testutil.NewEnv(t)
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)

	_, err := env.RecordSvc.CreateRecord(context.Background(), d.ID, &staff.NewStaff{
		FirstName: "B",
		Role:      "janitor",
		Email:     "nope",
		Phone:     "x",
		PayType:   "weekly",
	})
	msgs := fieldMessages(t, err)
	for _, fld := range []string{"first_name", "last_name", "role", "email", "phone", "pay_rate", "pay_type"} {
		assert.Contains(t, msgs, fld)
	}
	assert.Equal(t, []string{"this field is required"}, msgs["last_name"])
}

// Archived is only reachable from Inactive.
func TestStaffLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	s := env.CreateStaff(t, d.ID, "Bea", "Mutombo", lifecycle.StaffActive)

	_, err := env.RecordSvc.ChangeStatus(ctx, d.ID, lifecycle.KindStaff, s.ID, lifecycle.StaffArchived)
	var tErr *core.InvalidTransitionError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "Active", tErr.From)
	assert.Equal(t, "Archived", tErr.To)

	for _, target := range []lifecycle.Status{lifecycle.StaffInactive, lifecycle.StaffArchived, lifecycle.StaffInactive, lifecycle.StaffActive} {
		rec, err := env.RecordSvc.ChangeStatus(ctx, d.ID, lifecycle.KindStaff, s.ID, target)
		require.NoError(t, err, target)
		assert.Equal(t, target, rec.GetStatus())
	}
}

func TestDeleteStaff(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	other := env.CreateDaycare(t, "Little Steps", lifecycle.DaycareActive)
	s := env.CreateStaff(t, d.ID, "Bea", "Mutombo", lifecycle.StaffArchived)

	err := env.RecordSvc.DeleteRecord(ctx, other.ID, lifecycle.KindStaff, s.ID)
	assert.True(t, core.IsNotFound(err), "records of other tenants cannot be deleted")

	require.NoError(t, env.RecordSvc.DeleteRecord(ctx, d.ID, lifecycle.KindStaff, s.ID))
	_, err = env.RecordSvc.Get(ctx, d.ID, lifecycle.KindStaff, s.ID)
	assert.True(t, core.IsNotFound(err))

	err = env.RecordSvc.DeleteRecord(ctx, d.ID, lifecycle.KindStaff, s.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestUpdateStaff(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	s := env.CreateStaff(t, d.ID, "Bea", "Mutombo", lifecycle.StaffActive)

	rate, payType := 2500.0, "SALARY"
	rec, err := env.RecordSvc.UpdateFields(ctx, d.ID, lifecycle.KindStaff, s.ID, staff.UpdateStaff{PayRate: &rate, PayType: &payType})
	require.NoError(t, err)
	assert.Equal(t, staff.PaySalary, rec.(*staff.Staff).PayType)

	zero := 0.0
	_, err = env.RecordSvc.UpdateFields(ctx, d.ID, lifecycle.KindStaff, s.ID, staff.UpdateStaff{PayRate: &zero})
	assert.Contains(t, fieldMessages(t, err), "pay_rate")
}
