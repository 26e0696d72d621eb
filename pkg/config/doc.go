// Package config loads carebase configuration.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file named by CAREBASE_CONFIG_FILE, and CAREBASE_*
// environment variables.
//
//	CAREBASE_PORT="8080"
//	CAREBASE_HEALTH_PORT="9090"
//	CAREBASE_DATABASE_URL="postgres://carebase@localhost/carebase?sslmode=disable"
//	CAREBASE_JWT_SECRET="at-least-sixteen-bytes"
//	CAREBASE_TOKEN_TTL="1h"
//	CAREBASE_REVOCATION_BACKEND="redis"  # memory, redis, postgres
//	CAREBASE_REDIS_URL="redis://localhost:6379/0"
//	CAREBASE_LOG_LEVEL="info"
//
// The YAML file uses the snake_case keys of the struct tags:
//
//	server:
//	  port: "8080"
//	  cors_origins: ["https://app.example.com"]
//	auth:
//	  token_ttl: 30m
//	  revocation_backend: postgres
package config
