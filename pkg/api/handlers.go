package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/carebase/pkg/auth"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/middleware"
	"github.com/platinummonkey/carebase/pkg/observability"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// Dependencies are the collaborators of the API server. Metrics and the
// limiters are optional.
type Dependencies struct {
	Auth          *auth.Service
	Gate          *middleware.AuthMiddleware
	LoginLimiter  *middleware.RateLimitMiddleware
	LogoutLimiter *middleware.RateLimitMiddleware
	Audit        *auth.AuditLogger

	Patients   storage.PatientStore
	Guardians  storage.GuardianStore
	Diseases   storage.DiseaseStore
	Attendance storage.AttendanceStore
	History    storage.HistoryStore

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Server represents our API server
type Server struct {
	router *mux.Router
	logger *observability.Logger

	authHandlers       *AuthHandlers
	patientHandlers    *PatientHandlers
	guardianHandlers   *GuardianHandlers
	diseaseHandlers    *DiseaseHandlers
	attendanceHandlers *AttendanceHandlers
	historyHandlers    *HistoryHandlers

	gate          *middleware.AuthMiddleware
	loginLimiter  *middleware.RateLimitMiddleware
	logoutLimiter *middleware.RateLimitMiddleware
	metrics       *observability.Metrics
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	gate := deps.Gate
	if gate == nil {
		gate = middleware.NewAuthMiddleware(deps.Auth)
	}

	s := &Server{
		router:             mux.NewRouter(),
		logger:             logger,
		authHandlers:       NewAuthHandlers(deps.Auth, deps.Audit),
		patientHandlers:    NewPatientHandlers(deps.Patients),
		guardianHandlers:   NewGuardianHandlers(deps.Guardians, deps.Patients),
		diseaseHandlers:    NewDiseaseHandlers(deps.Diseases),
		attendanceHandlers: NewAttendanceHandlers(deps.Attendance),
		historyHandlers:    NewHistoryHandlers(deps.History, deps.Patients),
		gate:               gate,
		loginLimiter:       deps.LoginLimiter,
		logoutLimiter:      deps.LogoutLimiter,
		metrics:            deps.Metrics,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Public routes
	s.router.HandleFunc("/users/register", s.authHandlers.register).Methods("POST")
	s.router.Handle("/users/login", throttled(s.loginLimiter, s.authHandlers.login)).Methods("POST")
	s.router.Handle("/users/logout", throttled(s.logoutLimiter, s.authHandlers.logout)).Methods("POST")

	// Everything else sits behind the token gate
	protected := s.router.NewRoute().Subrouter()
	protected.Use(s.gate.Handler)

	s.RegisterRoutes(protected, s.patientHandlers)
	s.RegisterRoutes(protected, s.guardianHandlers)
	s.RegisterRoutes(protected, s.diseaseHandlers)
	s.RegisterRoutes(protected, s.attendanceHandlers)
	s.RegisterRoutes(protected, s.historyHandlers)
}

func throttled(limiter *middleware.RateLimitMiddleware, fn http.HandlerFunc) http.Handler {
	if limiter == nil {
		return fn
	}
	return limiter.Handler(fn)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar on router
func (s *Server) RegisterRoutes(router *mux.Router, registrar RouteRegistrar) {
	registrar.RegisterRoutes(router)
}

// HandlerOptions tunes the middleware chain built by Handler
type HandlerOptions struct {
	CORSOrigins    []string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// Handler returns the server wrapped in the global middleware chain
func (s *Server) Handler(opts HandlerOptions) http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.CORSMiddleware(opts.CORSOrigins),
	}
	if opts.MaxBodyBytes > 0 {
		middlewares = append(middlewares, httputil.MaxBytesMiddleware(opts.MaxBodyBytes))
	}
	if opts.RequestTimeout > 0 {
		middlewares = append(middlewares, httputil.TimeoutMiddleware(opts.RequestTimeout))
	}
	middlewares = append(middlewares, httputil.ContentTypeMiddleware)

	return httputil.Chain(middlewares...)(s)
}
