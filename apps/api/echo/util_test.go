package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"golang.org/x/crypto/bcrypt"

	. "github.com/trezcool/creche/apps/api/echo"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/services/metrics"
	"github.com/trezcool/creche/testutil"
)

const adminPassword = "p1atformAdmin"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*testutil.Env
	Server
	metrics *metrics.Metrics
}

func setup(t *testing.T) *testApp {
	env := testutil.NewEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	env.Conf.Admin.PasswordHash = string(hash)

	m := metrics.New(env.Conf)
	env.RecordSvc.SetObserver(m)

	return &testApp{
		Env:     env,
		metrics: m,
		Server: NewServer(
			&Options{
				DisableReqLogs: true,
				Conf:           env.Conf,
				Logger:         env.Logger,
				Validate:       env.Validate,
				Translator:     env.Translator,
				RecordSvc:      env.RecordSvc,
				UserSvc:        env.UserSvc,
				Lister:         env.Lister,
				Metrics:        m,
			},
		),
	}
}

type httpErr struct {
	Success bool                `json:"success"`
	Code    string              `json:"code,omitempty"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// result is a decoded record.Result or ListResponse.
type result struct {
	Success bool                     `json:"success"`
	Record  map[string]interface{}   `json:"record"`
	Records []map[string]interface{} `json:"records"`
	Code    string                   `json:"code"`
	Error   string                   `json:"error"`
	Errors  map[string][]string      `json:"errors"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, app *testApp, usr user.User) string {
	token, err := GenerateToken(app.Conf, GetUserClaims(app.Conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	var res result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
	return res
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
