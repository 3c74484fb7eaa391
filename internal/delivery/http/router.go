package http

import (
	"net/http"

	"clinic-dashboard/internal/delivery/http/handler"
	"clinic-dashboard/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	router            *mux.Router
	dashboardHandler  *handler.DashboardHandler
	authMiddleware    *middleware.AuthMiddleware
	corsMiddleware    *middleware.CORSMiddleware
	loggingMiddleware *middleware.LoggingMiddleware
	gatherer          prometheus.Gatherer
}

func NewRouter(
	dashboardHandler *handler.DashboardHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	loggingMiddleware *middleware.LoggingMiddleware,
	gatherer prometheus.Gatherer,
) *Router {
	return &Router{
		router:            mux.NewRouter(),
		dashboardHandler:  dashboardHandler,
		authMiddleware:    authMiddleware,
		corsMiddleware:    corsMiddleware,
		loggingMiddleware: loggingMiddleware,
		gatherer:          gatherer,
	}
}

// Setup registers the routes and returns the router wrapped in the logging
// and CORS middleware. Both sit outside mux so unmatched requests, including
// OPTIONS preflights, pass through them.
func (r *Router) Setup() http.Handler {
	// Metrics
	r.router.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Dashboard routes (protected when a JWT secret is configured)
	api.Handle("/dashboard", r.authMiddleware.Authenticate(http.HandlerFunc(r.dashboardHandler.GetDashboard))).Methods(http.MethodPost)

	dashboard := api.PathPrefix("/dashboard").Subrouter()
	dashboard.Use(r.authMiddleware.Authenticate)
	dashboard.HandleFunc("/options", r.dashboardHandler.GetOptions).Methods(http.MethodGet)
	dashboard.HandleFunc("/export", r.dashboardHandler.Export).Methods(http.MethodPost)
	dashboard.Handle("/refresh", middleware.RequireAdmin(http.HandlerFunc(r.dashboardHandler.Refresh))).Methods(http.MethodPost)

	return r.loggingMiddleware.Handle(r.corsMiddleware.Handle(r.router))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
