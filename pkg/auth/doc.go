// Package auth implements carebase account authentication: registration,
// password login, bearer token issue and verification, logout by token
// revocation, and the per-request gate.
//
// # Tokens
//
// Tokens are HS256 JWTs whose subject is the user id, with a one hour
// default lifetime and a unique jti:
//
//	tokens := auth.NewTokenManager(secret, time.Hour)
//	token, expiresAt, err := tokens.Issue(user.ID)
//
// # Revocation
//
// Logout records a verified token in a RevocationStore until its own exp.
// Tokens that do not verify are acknowledged and not stored. Three backends
// share the contract and key entries by the SHA-256 of the token:
//
//   - MemoryRevocationStore: expiring LRU without a size bound, single process
//   - RedisRevocationStore: shared, Redis key TTL equals remaining lifetime
//   - PersistentRevocationStore: revoked_tokens table, purged by a cron job
//
// # The Gate
//
// Service.Authenticate evaluates an Authorization header in a fixed order and
// stops at the first failure:
//
//  1. no header: ErrMissingToken
//  2. not "Bearer <token>": ErrMalformedToken
//  3. revoked: ErrRevokedToken
//  4. bad signature or expired: ErrInvalidToken
//  5. user gone: ErrUnknownUser
//
// Any other error is an infrastructure failure. The gate never writes to the
// revocation or credential stores.
//
// # Audit
//
// AuditLogger records register, login and logout outcomes through a
// storage.AuditStore without ever failing the request.
package auth
