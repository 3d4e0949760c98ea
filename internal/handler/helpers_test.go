package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/bucketlist/internal/config"
	"github.com/sakif/bucketlist/internal/handler"
	"github.com/sakif/bucketlist/internal/repository/sqlite"
	"github.com/sakif/bucketlist/internal/server"
)

const testSecret = "handler-test-secret-0123456789"

// testAPI is the full router over an in-memory SQLite database.
type testAPI struct {
	t *testing.T
	h http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		CORSAllowedOrigins: []string{"*"},
		DatabaseURL:        ":memory:",
		JWTSecret:          testSecret,
		TokenTTL:           time.Hour,
		TokenHeader:        "X-Auth-Token",
		BcryptCost:         bcrypt.MinCost,
		PageSize:           2,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	srv, err := server.NewWithStore(cfg, logger, db)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	return &testAPI{t: t, h: srv.Handler()}
}

// do sends a request; body is JSON-encoded unless it is already a string.
func (a *testAPI) do(method, path string, body any, token string, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

// register creates a user with password "password" and returns its id.
func (a *testAPI) register(username string) int64 {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/auth/register", map[string]string{
		"first_name": "First " + username,
		"last_name":  "Last " + username,
		"username":   username,
		"email":      username + "@example.com",
		"password":   "password",
	}, "")
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[struct {
		ID int64 `json:"id"`
	}](a.t, rr).ID
}

func (a *testAPI) login(username string) string {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": "password",
	}, "")
	require.Equal(a.t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[handler.LoginResponse](a.t, rr).Token
}

// user registers and logs in, returning id and token.
func (a *testAPI) user(username string) (int64, string) {
	a.t.Helper()
	id := a.register(username)
	return id, a.login(username)
}

func (a *testAPI) createBucketlist(token, name string) int64 {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/bucketlists", map[string]string{"name": name}, token)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[bucketlistBody](a.t, rr).ID
}

func (a *testAPI) createItem(token string, bucketlistID int64, name string) int64 {
	a.t.Helper()
	rr := a.do(http.MethodPost, fmt.Sprintf("/bucketlists/%d/items", bucketlistID),
		map[string]any{"name": name, "description": "about " + name}, token)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[itemBody](a.t, rr).ID
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type itemBody struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Done          bool       `json:"done"`
	DateCompleted *time.Time `json:"date_completed"`
	BucketlistID  int64      `json:"bucketlist_id"`
}

type bucketlistBody struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	OwnerID int64      `json:"owner_id"`
	Items   []itemBody `json:"items"`
}

type userBody struct {
	ID          int64            `json:"id"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	Bucketlists []bucketlistBody `json:"bucketlists"`
}

type listBody[T any] struct {
	Bucketlists []T `json:"bucketlists"`
	Items       []T `json:"items"`
	Users       []T `json:"users"`
	Total       int `json:"total"`
	Pages       int `json:"pages"`
}
