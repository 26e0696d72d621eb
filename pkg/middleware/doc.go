// Package middleware provides the HTTP middleware that sits between the
// router and the carebase handlers.
//
// AuthMiddleware runs the token gate from pkg/auth on every protected route
// and stores the resulting *auth.Identity in the request context:
//
//	gate := middleware.NewAuthMiddleware(authService)
//	protected := router.NewRoute().Subrouter()
//	protected.Use(gate.Handler)
//
// Failures answer before the handler runs: 400 "token not provided" when the
// header is missing, 401 "invalid token", "token revoked" or "user not
// found" otherwise, and 500 when a backing store fails.
//
// RateLimitMiddleware throttles login attempts per client IP. The limiter is
// either the in-memory token bucket (RateLimiter) or a Redis fixed window
// counter (DistributedRateLimiter):
//
//	limiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig(10, 5))
//	throttle := middleware.NewRateLimitMiddleware(limiter, middleware.WithRateLimitRecorder(metrics))
//	router.Handle("/users/login", throttle.Handler(loginHandler))
//
// Rejected requests get 429 {"error":"rate limit exceeded"} and a
// Retry-After header. Limiter errors fail open unless WithFailOpen(false).
package middleware
