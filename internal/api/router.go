package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/dispatchiq/internal/api/middleware"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/rs/zerolog"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Logger    zerolog.Logger
	RateLimit *mw.RateLimit
	Metrics   http.Handler

	HealthHandler http.HandlerFunc

	PredictHandler       http.HandlerFunc
	OptimizeRouteHandler http.HandlerFunc
	ValidateRouteHandler http.HandlerFunc

	GenerateSuggestionsHandler http.HandlerFunc
	ListSuggestionsHandler     http.HandlerFunc
	ApproveSuggestionHandler   http.HandlerFunc
	RejectSuggestionHandler    http.HandlerFunc

	GetSettingsHandler    http.HandlerFunc
	UpdateSettingsHandler http.HandlerFunc

	QueryDecisionsHandler http.HandlerFunc
	DecisionStatsHandler  http.HandlerFunc

	ListAlertsHandler    http.HandlerFunc
	CreateAlertHandler   http.HandlerFunc
	MarkAlertReadHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.Logger(deps.Logger))
	r.Use(mw.Recovery(deps.Logger))

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Tenant-scoped routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Tenant)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/predictions", orNotImplemented(deps.PredictHandler))

		r.Post("/api/v1/routes/optimize", orNotImplemented(deps.OptimizeRouteHandler))
		r.Post("/api/v1/routes/validate", orNotImplemented(deps.ValidateRouteHandler))

		r.Get("/api/v1/drivers/{driverID}/suggestions", orNotImplemented(deps.GenerateSuggestionsHandler))
		r.Get("/api/v1/suggestions", orNotImplemented(deps.ListSuggestionsHandler))
		r.Post("/api/v1/suggestions/{suggestionID}/approve", orNotImplemented(deps.ApproveSuggestionHandler))
		r.Post("/api/v1/suggestions/{suggestionID}/reject", orNotImplemented(deps.RejectSuggestionHandler))

		r.Get("/api/v1/settings", orNotImplemented(deps.GetSettingsHandler))
		r.Patch("/api/v1/settings", orNotImplemented(deps.UpdateSettingsHandler))

		r.Get("/api/v1/decisions", orNotImplemented(deps.QueryDecisionsHandler))
		r.Get("/api/v1/decisions/stats", orNotImplemented(deps.DecisionStatsHandler))

		r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlertsHandler))
		r.Post("/api/v1/alerts", orNotImplemented(deps.CreateAlertHandler))
		r.Post("/api/v1/alerts/{alertID}/read", orNotImplemented(deps.MarkAlertReadHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
