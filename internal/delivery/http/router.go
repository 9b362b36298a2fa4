package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventflow/internal/delivery/http/controllers"
	"eventflow/internal/delivery/http/middleware"
	"eventflow/internal/domain"
)

// RouterConfig carries the controllers and middleware dependencies for NewRouter.
type RouterConfig struct {
	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Reports       *controllers.ReportController
	Verifier      domain.TokenVerifier
	Logger        *slog.Logger
	// AllowedOrigins enables CORS for the listed origins; empty disables CORS headers.
	AllowedOrigins []string
}

// NewRouter initializes the HTTP router with all application routes and wraps it
// with request logging and CORS. Every API route requires a Bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)

	// Events
	mux.HandleFunc("POST /events", auth(cfg.Events.CreateEvent))
	mux.HandleFunc("GET /events", auth(cfg.Events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(cfg.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(cfg.Events.UpdateEvent))
	mux.HandleFunc("POST /events/{eventID}/approve", auth(cfg.Events.ApproveEvent))
	mux.HandleFunc("POST /events/{eventID}/reject", auth(cfg.Events.RejectEvent))
	mux.HandleFunc("POST /events/{eventID}/cancel", auth(cfg.Events.CancelEvent))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(cfg.Registrations.Register))
	mux.HandleFunc("DELETE /events/{eventID}/registrations", auth(cfg.Registrations.CancelRegistration))
	mux.HandleFunc("GET /events/{eventID}/registrations", auth(cfg.Registrations.ListRegistrations))
	mux.HandleFunc("GET /events/{eventID}/registrations/me", auth(cfg.Registrations.GetMyRegistration))
	mux.HandleFunc("POST /events/{eventID}/registrations/{userID}/check-in", auth(cfg.Registrations.CheckIn))

	// Reports
	mux.HandleFunc("POST /events/{eventID}/report", auth(cfg.Reports.SubmitReport))
	mux.HandleFunc("GET /events/{eventID}/report", auth(cfg.Reports.GetReportByEvent))
	mux.HandleFunc("GET /reports", auth(cfg.Reports.ListReports))
	mux.HandleFunc("GET /reports/{reportID}", auth(cfg.Reports.GetReport))
	mux.HandleFunc("PUT /reports/{reportID}", auth(cfg.Reports.ResubmitReport))
	mux.HandleFunc("POST /reports/{reportID}/approve", auth(cfg.Reports.ApproveReport))
	mux.HandleFunc("POST /reports/{reportID}/reject", auth(cfg.Reports.RejectReport))
	mux.HandleFunc("POST /reports/{reportID}/revision-requests", auth(cfg.Reports.RequestRevision))

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(cfg.Logger, handler)
	if len(cfg.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.AllowedOrigins, handler)
	}
	return handler
}
