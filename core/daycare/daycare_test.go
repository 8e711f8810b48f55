package daycare_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/services/email"
	"github.com/trezcool/creche/testutil"
)

func signup() *daycare.NewDaycare {
	return &daycare.NewDaycare{
		Name:          " Sunny Side ",
		Capacity:      30,
		City:          "Kinshasa",
		Phone:         "+243 810 000 000",
		Email:         "Hello@SunnySide.cd",
		OwnerName:     "Olive Owner",
		OwnerEmail:    "Olive@SunnySide.cd",
		OwnerPassword: testutil.Password,
	}
}

func fieldMessages(t *testing.T, err error) map[string][]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	return vErr.FieldMessages()
}

func TestSignup(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	rec, err := env.RecordSvc.CreateRecord(ctx, "ignored", signup())
	require.NoError(t, err)

	d := rec.(*daycare.Daycare)
	assert.Equal(t, "Sunny Side", d.Name)
	assert.Equal(t, daycare.PlanFree, d.Plan)
	assert.Equal(t, lifecycle.DaycarePending, d.Status)
	assert.Equal(t, d.ID, d.GetTenantID())
	assert.False(t, d.AllowsLogin())

	owner, err := env.UserRepo.GetUserByEmail(ctx, "olive@sunnyside.cd")
	require.NoError(t, err)
	assert.Equal(t, d.ID, owner.DaycareID)
	assert.Equal(t, user.RoleOwner, owner.Role)
	assert.NoError(t, owner.CheckPassword(testutil.Password))
}

func TestSignup_ownerEmailTakenRollsBack(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	other := env.CreateDaycare(t, "Little Steps", lifecycle.DaycareActive)
	env.CreateUser(t, other.ID, "Olive", "olive@sunnyside.cd", user.RoleOwner)

	_, err := env.RecordSvc.CreateRecord(ctx, "", signup())
	msgs := fieldMessages(t, err)
	assert.Equal(t, []string{user.ErrEmailExists.Error()}, msgs["owner_email"])

	daycares, err := env.Lister.ListDaycares(ctx)
	require.NoError(t, err)
	assert.Len(t, daycares, 1, "the daycare must not outlive its owner")
}

func TestSignup_validation(t *testing.T) {
	env := testutil.NewEnv(t)

	nd := signup()
	nd.Name = "S"
	nd.Plan = "gold"
	nd.Capacity = 10
	nd.WaitlistCapacity = 11
	nd.Email = "nope"
	nd.OwnerPassword = "short"
	nd.StorageURL = "not a url"

	_, err := env.RecordSvc.CreateRecord(context.Background(), "", nd)
	msgs := fieldMessages(t, err)
	for _, fld := range []string{"name", "plan", "waitlist_capacity", "email", "owner_password", "storage_url"} {
		assert.Contains(t, msgs, fld)
	}
	assert.Equal(t, []string{"waitlist capacity cannot exceed the capacity"}, msgs["waitlist_capacity"])
}

func TestUpdateDaycare(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)

	name, capacity := "  Sunny Side Annex ", 20
	rec, err := env.RecordSvc.UpdateFields(ctx, d.ID, lifecycle.KindDaycare, d.ID, daycare.UpdateDaycare{Name: &name, Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, "Sunny Side Annex", rec.(*daycare.Daycare).Name)
	assert.Equal(t, 20, rec.(*daycare.Daycare).Capacity)

	waitlist := 21
	_, err = env.RecordSvc.UpdateFields(ctx, d.ID, lifecycle.KindDaycare, d.ID, daycare.UpdateDaycare{WaitlistCapacity: &waitlist})
	assert.Contains(t, fieldMessages(t, err), "waitlist_capacity")

	other := env.CreateDaycare(t, "Little Steps", lifecycle.DaycareActive)
	_, err = env.RecordSvc.UpdateFields(ctx, other.ID, lifecycle.KindDaycare, d.ID, daycare.UpdateDaycare{Name: &name})
	assert.True(t, core.IsNotFound(err))
}

func TestDaycare_notDeletable(t *testing.T) {
	env := testutil.NewEnv(t)
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycareInactive)

	err := env.RecordSvc.DeleteRecord(context.Background(), d.ID, lifecycle.KindDaycare, d.ID)
	assert.Equal(t, record.ErrNotDeletable, err)
}

func TestStatusNotifier(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	d := env.CreateDaycare(t, "Sunny Side", lifecycle.DaycarePending)
	env.CreateUser(t, d.ID, "Olive", "olive@test.cd", user.RoleOwner)
	env.CreateUser(t, d.ID, "Mia", "mia@test.cd", user.RoleManager)
	env.CreateUser(t, d.ID, "Sam", "sam@test.cd", user.RoleStaff)

	_, err := env.RecordSvc.ChangeStatus(ctx, d.ID, lifecycle.KindDaycare, d.ID, lifecycle.DaycareActive)
	require.NoError(t, err)

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Sunny Side is now ACTIVE", sent[0].Subject)
	recipients := make([]string, 0, len(sent[0].To))
	for _, to := range sent[0].To {
		recipients = append(recipients, to.Address)
	}
	assert.ElementsMatch(t, []string{"olive@test.cd", "mia@test.cd"}, recipients)
	assert.Contains(t, sent[0].TextContent, "changed from PENDING to ACTIVE")
	assert.Contains(t, sent[0].TextContent, "can now sign in")

	t.Run("no mail on rejected or no-op changes", func(t *testing.T) {
		_, err := env.RecordSvc.ChangeStatus(ctx, d.ID, lifecycle.KindDaycare, d.ID, lifecycle.DaycareArchived)
		var tErr *core.InvalidTransitionError
		require.True(t, errors.As(err, &tErr))
		_, err = env.RecordSvc.ChangeStatus(ctx, d.ID, lifecycle.KindDaycare, d.ID, lifecycle.DaycareActive)
		require.NoError(t, err)
		assert.Len(t, emailsvc.Sent(), 1)
	})
}
