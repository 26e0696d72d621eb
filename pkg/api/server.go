package api

import (
	"net"
	"net/http"

	"github.com/platinummonkey/carebase/pkg/config"
)

// NewHTTPServer builds the listening server for handler from the server
// configuration
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// HandlerOptionsFrom maps the server configuration onto the middleware chain
func HandlerOptionsFrom(cfg config.ServerConfig) HandlerOptions {
	return HandlerOptions{
		CORSOrigins:    cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
	}
}
