package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/formflow/formflow/app"
	"github.com/formflow/formflow/config"
	"github.com/formflow/formflow/database"
	"github.com/formflow/formflow/httpx"
)

type testEnv struct {
	t       *testing.T
	app     app.App
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		DBUrl:       filepath.Join(t.TempDir(), "formflow.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
		BcryptCost:  bcrypt.MinCost,
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}
	return &testEnv{t: t, app: a, handler: Wire(a)}
}

// do runs a request through the full router. A non-empty token goes out as
// a bearer authorization header; body is JSON-encoded when present.
func (env *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	env.t.Helper()

	var reader *bytes.Buffer = &bytes.Buffer{}
	if body != nil {
		err := json.NewEncoder(reader).Encode(body)
		require.NoError(env.t, err)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if token != "" {
		req.Header.Set("authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)
	return resp
}

func (env *testEnv) decode(resp *httptest.ResponseRecorder, out any) {
	env.t.Helper()
	require.NoError(env.t, json.Unmarshal(resp.Body.Bytes(), out))
}

func (env *testEnv) errorMessage(resp *httptest.ResponseRecorder) string {
	env.t.Helper()
	body := httpx.ErrorBody{}
	env.decode(resp, &body)
	return body.Error
}

// register creates a user through the API and returns its id.
func (env *testEnv) register(name, email, password string) string {
	env.t.Helper()

	resp := env.do("POST", "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(env.t, http.StatusCreated, resp.Code, resp.Body.String())

	body := struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}{}
	env.decode(resp, &body)
	return body.User.ID
}

func (env *testEnv) promoteAdmin(email string) {
	env.t.Helper()
	_, err := env.app.Exec("UPDATE user SET role = 'ADMIN' WHERE email = ?", email)
	require.NoError(env.t, err)
}

// login performs the password grant and returns the access token.
func (env *testEnv) login(email, password string) string {
	env.t.Helper()

	req := httptest.NewRequest("POST", "/api/login", nil)
	req.SetBasicAuth(email, password)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)
	require.Equal(env.t, http.StatusOK, resp.Code, resp.Body.String())

	body := struct {
		AccessToken string `json:"access_token"`
	}{}
	env.decode(resp, &body)
	require.NotEmpty(env.t, body.AccessToken)
	return body.AccessToken
}

// signup registers a user and logs them in.
func (env *testEnv) signup(name, email string) (id, token string) {
	env.t.Helper()
	id = env.register(name, email, "hunter2")
	return id, env.login(email, "hunter2")
}
