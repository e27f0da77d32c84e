package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
)

// TenantHeader carries the calling tenant. The gateway in front of the
// engine authenticates the caller and sets it.
const TenantHeader = "X-Tenant-ID"

// Tenant resolves the tenant from TenantHeader and stores it in the request
// context for handlers and the rate limiter.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(TenantHeader))
		if raw == "" {
			response.Error(w, http.StatusBadRequest, "MISSING_TENANT",
				TenantHeader+" header is required", nil)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				TenantHeader+" must be a non-nil UUID", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetTenantID(r.Context(), id)))
	})
}
