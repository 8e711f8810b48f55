package echoapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/creche/apps/api/echo"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/testutil"
)

func TestServer_home(t *testing.T) {
	app := setup(t)
	rec := app.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Creche API!", rec.Body.String())
}

func Test_signupToLogin(t *testing.T) {
	app := setup(t)

	signup := marchallObj(t, map[string]interface{}{
		"name":           "Sunny Side",
		"capacity":       30,
		"email":          "hello@sunnyside.cd",
		"owner_name":     "Olive Owner",
		"owner_email":    "olive@sunnyside.cd",
		"owner_password": testutil.Password,
	})
	rec := app.do(http.MethodPost, "/v1/signup", "", signup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode(t, rec)
	require.True(t, res.Success)
	assert.Equal(t, "PENDING", res.Record["status"])
	daycareID := res.Record["id"].(string)

	login := marchallObj(t, LoginRequest{Email: "Olive@SunnySide.cd", Password: testutil.Password})

	// a PENDING daycare keeps its users out
	rec = app.do(http.MethodPost, "/v1/users/login", "", login)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "daycare is not active"})}, rec)

	// a platform admin approves it
	req, rec := newRequest(http.MethodPatch, "/admin/daycares/"+daycareID+"/status", marchallObj(t, StatusRequest{Status: lifecycle.DaycareActive}))
	req.SetBasicAuth("admin", adminPassword)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ACTIVE", decode(t, rec).Record["status"])

	rec = app.do(http.MethodPost, "/v1/users/login", "", login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"token"`)

	t.Run("wrong password", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/users/login", "", marchallObj(t, LoginRequest{Email: "olive@sunnyside.cd", Password: "nope"}))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})}, rec)
	})
}

func Test_signupValidation(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/signup", "", marchallObj(t, map[string]interface{}{
		"name":     "Sunny Side",
		"capacity": 10, "waitlist_capacity": 11,
		"email": "hello@sunnyside.cd", "owner_name": "Olive", "owner_email": "olive@sunnyside.cd",
		"owner_password": testutil.Password,
	}))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{
			Code:   "validation",
			Error:  "invalid input",
			Errors: map[string][]string{"waitlist_capacity": {"waitlist capacity cannot exceed the capacity"}},
		}),
	}, rec)
}

func Test_tenantGate(t *testing.T) {
	app := setup(t)
	active := app.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	inactive := app.CreateDaycare(t, "Little Steps", lifecycle.DaycareInactive)
	owner := app.CreateUser(t, active.ID, "Olive", "olive@test.cd", user.RoleOwner)
	other := app.CreateUser(t, inactive.ID, "Otto", "otto@test.cd", user.RoleOwner)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/daycare", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Active daycare", path: "/v1/daycare", token: getToken(t, app, owner), wantCode: http.StatusOK},
		{
			name: "Inactive daycare", path: "/v1/children", token: getToken(t, app, other), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "daycare is not active"}),
		},
		{
			name: "Unknown kind", path: "/v1/parents", token: getToken(t, app, owner), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, tt.path, tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Deactivated user", func(t *testing.T) {
		token := getToken(t, app, owner)
		owner.IsActive = false
		_, err := app.UserRepo.UpdateUser(context.Background(), owner)
		require.NoError(t, err)
		rec := app.do(http.MethodGet, "/v1/daycare", token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})}, rec)
	})
}

func Test_recordApi_children(t *testing.T) {
	app := setup(t)
	d := app.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	manager := getToken(t, app, app.CreateUser(t, d.ID, "Mia", "mia@test.cd", user.RoleManager))
	staffer := getToken(t, app, app.CreateUser(t, d.ID, "Sam", "sam@test.cd", user.RoleStaff))

	newChild := marchallObj(t, map[string]interface{}{
		"first_name":     "Ada",
		"last_name":      "Lovelace",
		"program":        "toddler",
		"date_of_birth":  "2024-05-01T00:00:00Z",
		"guardian_name":  "Grace Lovelace",
		"guardian_phone": "+243 810 000 001",
		"status":         "Waitlisted",
	})

	rec := app.do(http.MethodPost, "/v1/children", staffer, newChild)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	rec = app.do(http.MethodPost, "/v1/children", manager, newChild)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.Equal(t, "Waitlisted", res.Record["status"])
	assert.Equal(t, d.ID, res.Record["daycare_id"])
	path := "/v1/children/" + res.Record["id"].(string)

	t.Run("staff can read", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/children?status=Waitlisted&search=ada", staffer)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec).Records, 1)

		rec = app.do(http.MethodGet, "/v1/children?status=Active", staffer)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode(t, rec).Records)

		rec = app.do(http.MethodGet, path, staffer)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/children?status=Graduated", staffer)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", decode(t, rec).Code)
	})

	statusTests := []httpTest{
		{
			name: "status required", body: marchallObj(t, StatusRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation", Error: "status: status is a required field", Errors: map[string][]string{"status": {"status is a required field"}}}),
		},
		{name: "Waitlisted -> Active", body: marchallObj(t, StatusRequest{Status: lifecycle.ChildActive}), wantCode: http.StatusOK},
		{name: "Active -> Active (no-op)", body: marchallObj(t, StatusRequest{Status: lifecycle.ChildActive}), wantCode: http.StatusOK},
		{
			name: "Active -> Graduated", body: marchallObj(t, StatusRequest{Status: "Graduated"}), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Code: "invalid_transition", Error: "invalid child status transition: Active -> Graduated"}),
		},
		{name: "Active -> Inactive", body: marchallObj(t, StatusRequest{Status: lifecycle.ChildInactive}), wantCode: http.StatusOK},
		{
			name: "Inactive -> Waitlisted", body: marchallObj(t, StatusRequest{Status: lifecycle.ChildWaitlisted}), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Code: "invalid_transition", Error: "invalid child status transition: Inactive -> Waitlisted"}),
		},
	}
	for _, tt := range statusTests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPatch, path+"/status", manager, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPut, path, manager, []byte(`{"first_name": " Augusta ", "guardian_phone": "abc"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec).Errors, "guardian_phone")

		rec = app.do(http.MethodPut, path, manager, []byte(`{"first_name": " Augusta "}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Augusta", decode(t, rec).Record["first_name"])
		assert.Equal(t, "Inactive", decode(t, rec).Record["status"], "edits never touch the status")
	})

	t.Run("other tenant", func(t *testing.T) {
		other := app.CreateDaycare(t, "Little Steps", lifecycle.DaycareActive)
		token := getToken(t, app, app.CreateUser(t, other.ID, "Otto", "otto@test.cd", user.RoleOwner))
		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			rec := app.do(method, path, token)
			assert.Equal(t, http.StatusNotFound, rec.Code, method)
			assert.Equal(t, "not_found", decode(t, rec).Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, path, manager)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"success": true}`)}, rec)
		rec = app.do(http.MethodGet, path, manager)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_recordApi_daycare(t *testing.T) {
	app := setup(t)
	d := app.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	owner := getToken(t, app, app.CreateUser(t, d.ID, "Olive", "olive@test.cd", user.RoleOwner))

	rec := app.do(http.MethodPut, "/v1/daycare", owner, []byte(`{"name": "Sunny Side Annex", "capacity": 50}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.Equal(t, "Sunny Side Annex", res.Record["name"])
	assert.EqualValues(t, 50, res.Record["capacity"])

	// the daycare status is not the tenant's to change
	rec = app.do(http.MethodPatch, "/v1/daycare/"+d.ID+"/status", owner, marchallObj(t, StatusRequest{Status: lifecycle.DaycareInactive}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_staffLifecycle(t *testing.T) {
	app := setup(t)
	d := app.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	owner := getToken(t, app, app.CreateUser(t, d.ID, "Olive", "olive@test.cd", user.RoleOwner))
	s := app.CreateStaff(t, d.ID, "Tess", "Teacher", lifecycle.StaffActive)
	path := "/v1/staff/" + s.ID + "/status"

	rec := app.do(http.MethodPatch, path, owner, marchallObj(t, StatusRequest{Status: lifecycle.StaffArchived}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	for _, target := range []lifecycle.Status{lifecycle.StaffInactive, lifecycle.StaffArchived} {
		rec = app.do(http.MethodPatch, path, owner, marchallObj(t, StatusRequest{Status: target}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, string(target), decode(t, rec).Record["status"])
	}
}

func Test_adminApi(t *testing.T) {
	app := setup(t)
	pending := app.CreateDaycare(t, "Sunny Side", lifecycle.DaycarePending)
	app.CreateDaycare(t, "Little Steps", lifecycle.DaycareActive)

	t.Run("Basic auth required", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/admin/daycares", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req, rec := newRequest(http.MethodGet, "/admin/daycares")
		req.SetBasicAuth("admin", "wrong")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	list := func(query string) result {
		req, rec := newRequest(http.MethodGet, "/admin/daycares"+query)
		req.SetBasicAuth("admin", adminPassword)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode(t, rec)
	}
	assert.Len(t, list("").Records, 2)
	pendings := list("?status=PENDING").Records
	require.Len(t, pendings, 1)
	assert.Equal(t, pending.ID, pendings[0]["id"])
	assert.Len(t, list("?status=PENDING,ACTIVE").Records, 2)

	t.Run("unknown status filter", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/admin/daycares?status=PENDING&status=Graduated")
		req.SetBasicAuth("admin", adminPassword)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decode(t, rec)
		assert.Equal(t, "validation", res.Code)
		assert.Equal(t, []string{`invalid daycare status "Graduated"`}, res.Errors["status"])
	})

	req, rec := newRequest(http.MethodPatch, "/admin/daycares/"+pending.ID+"/status", marchallObj(t, StatusRequest{Status: lifecycle.DaycareArchived}))
	req.SetBasicAuth("admin", adminPassword)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func Test_userApi(t *testing.T) {
	app := setup(t)
	d := app.CreateDaycare(t, "Sunny Side", lifecycle.DaycareActive)
	owner := app.CreateUser(t, d.ID, "Olive", "olive@test.cd", user.RoleOwner)
	mia := app.CreateUser(t, d.ID, "Mia", "mia@test.cd", user.RoleManager)
	ownerToken, miaToken := getToken(t, app, owner), getToken(t, app, mia)

	newUser := func(email, role string) []byte {
		return marchallObj(t, user.NewUser{Name: "Sam", Email: email, Role: role, Password: testutil.Password, PasswordConfirm: testutil.Password})
	}

	tests := []httpTest{
		{
			name: "manager cannot create owners", method: http.MethodPost, path: "/v1/users", token: miaToken,
			body: newUser("boss@test.cd", user.RoleOwner), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Code: "validation", Error: "role: not enough rights to set this role", Errors: map[string][]string{"role": {"not enough rights to set this role"}}}),
		},
		{name: "manager creates staff", method: http.MethodPost, path: "/v1/users", token: miaToken, body: newUser("sam@test.cd", user.RoleStaff), wantCode: http.StatusCreated},
		{
			name: "email taken", method: http.MethodPost, path: "/v1/users", token: ownerToken, body: newUser("SAM@test.cd", user.RoleStaff),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "manager cannot edit the owner", method: http.MethodPut, path: "/v1/users/" + owner.ID, token: miaToken,
			body: []byte(`{"name": "Nope"}`), wantCode: http.StatusForbidden,
		},
		{name: "owner cannot deactivate themselves", method: http.MethodPut, path: "/v1/users/" + owner.ID, token: ownerToken, body: []byte(`{"is_active": false}`), wantCode: http.StatusForbidden},
		{name: "owner promotes manager", method: http.MethodPut, path: "/v1/users/" + mia.ID, token: ownerToken, body: []byte(`{"role": "owner"}`), wantCode: http.StatusOK},
		{name: "me", method: http.MethodGet, path: "/v1/users/me", token: ownerToken, wantCode: http.StatusOK},
		{name: "unknown user", method: http.MethodGet, path: "/v1/users/nope", token: ownerToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("query", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/users?role=owner&ordering=name", ownerToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"email":"mia@test.cd"`)
		assert.Contains(t, rec.Body.String(), `"email":"olive@test.cd"`)
		assert.NotContains(t, rec.Body.String(), "sam@test.cd")
		assert.False(t, strings.Contains(rec.Body.String(), "password"), "hashes never leave the server")
	})
}

func Test_metrics(t *testing.T) {
	app := setup(t)
	app.do(http.MethodGet, "/", "")
	app.do(http.MethodPost, "/v1/users/login", "", marchallObj(t, LoginRequest{Email: "nobody@test.cd", Password: "x"}))

	rec := app.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `creche_test_http_requests_total{method="GET",path="/",status="200"} 1`)
	assert.Contains(t, body, `creche_test_logins_total{outcome="failed"} 1`)
}
