package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/bucketlist/internal/config"
	"github.com/sakif/bucketlist/internal/repository/sqlite"
	"github.com/sakif/bucketlist/internal/server"
)

func testConfig(dsn string) *config.Config {
	return &config.Config{
		Port:               0,
		CORSAllowedOrigins: []string{"https://app.example.com"},
		DatabaseURL:        dsn,
		JWTSecret:          "server-test-secret-0123456789",
		TokenTTL:           time.Hour,
		TokenHeader:        "X-Auth-Token",
		BcryptCost:         bcrypt.MinCost,
		PageSize:           2,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newMemoryServer(t *testing.T) (*server.Server, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)

	srv, err := server.NewWithStore(testConfig(":memory:"), testLogger(), db)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv, db
}

func TestHealth(t *testing.T) {
	srv, db := newMemoryServer(t)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	require.NoError(t, db.Close())
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRequestIDAndCORS(t *testing.T) {
	srv, _ := newMemoryServer(t)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/bucketlists", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "X-Auth-Token")
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newMemoryServer(t)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewOpensFileDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "bucketlist.db")

	srv, err := server.New(testConfig(dsn), testLogger())
	require.NoError(t, err)
	defer srv.Close()

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.FileExists(t, dsn)
}

func TestNewRejectsShortSecret(t *testing.T) {
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig(":memory:")
	cfg.JWTSecret = "short"
	_, err = server.NewWithStore(cfg, testLogger(), db)
	assert.Error(t, err)
}
