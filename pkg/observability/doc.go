// Package observability provides structured logging, Prometheus and
// OpenTelemetry metrics, tracing setup, health checks and graceful shutdown
// for the carebase API.
//
// # Structured Logging
//
// The Logger writes JSON through log/slog:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("patient_id", id).Info("patient updated")
//
// Request scoped loggers carry request_id and user_id:
//
//	observability.FromContext(r.Context()).Warn("token revoked")
//
// # Metrics
//
// Metrics registers every carebase_* collector on a Prometheus registerer.
// Both Metrics and OTelMetrics record authentication outcomes and
// revocations, so the auth service can fan out to either or both.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient).WithVersion(version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # Shutdown
//
// ShutdownManager drains HTTP servers, then runs registered shutdown
// functions in reverse order so the database closes last.
package observability
