package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTenant = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error.Code
}

func tenantRequest(id uuid.UUID) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	return r.WithContext(SetTenantID(r.Context(), id))
}

// --- Tenant ---

func TestTenant_MissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	Tenant(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_TENANT", errorCode(t, rec))
}

func TestTenant_InvalidHeader(t *testing.T) {
	for _, v := range []string{"not-a-uuid", uuid.Nil.String()} {
		t.Run(v, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(TenantHeader, v)
			rec := httptest.NewRecorder()
			Tenant(okHandler()).ServeHTTP(rec, r)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_REQUEST", errorCode(t, rec))
		})
	}
}

func TestTenant_SetsContext(t *testing.T) {
	var got uuid.UUID
	h := Tenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetTenantID(r)
		require.True(t, ok)
		got = id
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(TenantHeader, " "+testTenant.String()+" ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testTenant, got)
}

// --- RateLimit ---

type failingCache struct{ cache.Cache }

func (failingCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func fixedLimiter(c cache.Cache, perMin int) *RateLimit {
	rl := NewRateLimit(c, perMin, zerolog.Nop())
	rl.now = func() time.Time { return time.Date(2026, 6, 15, 10, 0, 30, 0, time.UTC) }
	return rl
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := fixedLimiter(cache.NewMemoryCache(), 2).Limit(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, tenantRequest(testTenant))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1781517660", rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := fixedLimiter(cache.NewMemoryCache(), 2).Limit(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, tenantRequest(testTenant))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, tenantRequest(testTenant))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rec))
}

func TestRateLimit_CountsPerTenant(t *testing.T) {
	h := fixedLimiter(cache.NewMemoryCache(), 1).Limit(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, tenantRequest(testTenant))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, tenantRequest(uuid.New()))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	h := fixedLimiter(failingCache{}, 1).Limit(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, tenantRequest(testTenant))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	cases := map[string]*RateLimit{
		"zero limit": fixedLimiter(failingCache{}, 0),
		"nil cache":  fixedLimiter(nil, 5),
		"nil limiter": nil,
	}
	for name, rl := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rl.Limit(okHandler()).ServeHTTP(rec, tenantRequest(testTenant))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		})
	}
}

func TestRateLimit_NoTenantPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	fixedLimiter(failingCache{}, 1).Limit(okHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- Logger / Recovery ---

func TestLogger_WritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, tenantRequest(testTenant))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request", line["message"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/api/v1/settings", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, testTenant.String(), line["tenant_id"])
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
	assert.Contains(t, buf.String(), "panic recovered")
}
