// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Responses
//
// Every error body is {"error": "..."}; outcome endpoints add "ok":
//
//	httputil.WriteConflict(w, "patient already exists")
//	httputil.WriteOutcome(w, "Ana deleted")  // {"message":"Ana deleted","ok":true}
//	httputil.WriteInternalError(w, r, err)   // logs err, answers "internal server error"
//
// # Request Parsing
//
//	var req RegisterRequest
//	if !httputil.ParseAndValidate(w, r, &req) {
//		return // 400 already written
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// ParseAndValidate applies go-playground/validator tags and reports fields
// by their JSON names.
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// RequestIDMiddleware must run before LoggingMiddleware so the request id
// reaches the logger.
package httputil
