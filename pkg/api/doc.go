// Package api provides the HTTP REST API of the carebase service.
//
// # Overview
//
// The server is built on gorilla/mux. Account routes are public:
//
//	POST /users/register
//	POST /users/login    (optionally rate limited per client IP)
//	POST /users/logout
//
// Every other route sits behind the token gate of middleware.AuthMiddleware
// and serves one resource group:
//
//   - /patients: patients with their guardians
//   - /guardians: guardians with the patient they are responsible for
//   - /diseases: the disease catalogue
//   - /attendance: patient visits
//   - /history: diseases a patient has had
//
// # Errors
//
// Stores return the kinds in package storage. Handlers map them centrally:
// ErrNotFound is 404, ErrAlreadyExists is 409, ErrInvalidReference is 400 and
// ErrInUse is 409 with {"error": ..., "ok": false}. Anything else is logged
// and answered 500 without detail.
//
// # Usage
//
//	server := api.NewServer(api.Dependencies{
//		Auth:     authService,
//		Patients: repos.Patients,
//		...
//	})
//	httpServer := api.NewHTTPServer(cfg.Server, server.Handler(api.HandlerOptionsFrom(cfg.Server)))
package api
