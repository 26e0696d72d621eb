package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/carebase/pkg/observability"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// Identity is the authenticated caller attached to a request context
type Identity struct {
	User  *storage.User
	Token string
}

// Session is the result of a successful login
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *storage.User `json:"-"`
}

// RegisterInput carries the fields of a new account
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Service implements registration, login, logout and the request gate
type Service struct {
	users       storage.UserStore
	hasher      PasswordHasher
	tokens      *TokenManager
	revocations RevocationStore
	recorder    Recorder
	logger      *observability.Logger

	// compared against when the email is unknown so both login failures cost
	// one hash comparison
	dummyHash string
}

// Option configures a Service
type Option func(*Service)

// WithRecorder reports outcomes to r
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *observability.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the authentication service
func NewService(users storage.UserStore, hasher PasswordHasher, tokens *TokenManager, revocations RevocationStore, opts ...Option) (*Service, error) {
	s := &Service{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		recorder:    nopRecorder{},
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash("carebase-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// NormalizeEmail is the canonical form of a login key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with a hashed password
func (s *Service) Register(ctx context.Context, in RegisterInput) (*storage.User, error) {
	email := NormalizeEmail(in.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.recorder.RecordAuthOutcome(OperationRegister, OutcomeConflict)
		return nil, ErrUserExists
	case !errors.Is(err, storage.ErrNotFound):
		s.recorder.RecordAuthOutcome(OperationRegister, OutcomeError)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.recorder.RecordAuthOutcome(OperationRegister, OutcomeError)
		return nil, err
	}

	user := &storage.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.recorder.RecordAuthOutcome(OperationRegister, OutcomeConflict)
			return nil, ErrUserExists
		}
		s.recorder.RecordAuthOutcome(OperationRegister, OutcomeError)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.recorder.RecordAuthOutcome(OperationRegister, OutcomeSuccess)
	s.logger.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login checks the credentials and issues a token. An unknown email and a
// wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = s.hasher.Compare(s.dummyHash, password)
			s.recorder.RecordAuthOutcome(OperationLogin, OutcomeBadLogin)
			return nil, ErrInvalidCredentials
		}
		s.recorder.RecordAuthOutcome(OperationLogin, OutcomeError)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.recorder.RecordAuthOutcome(OperationLogin, OutcomeBadLogin)
			return nil, ErrInvalidCredentials
		}
		s.recorder.RecordAuthOutcome(OperationLogin, OutcomeError)
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.recorder.RecordAuthOutcome(OperationLogin, OutcomeError)
		return nil, err
	}

	s.recorder.RecordAuthOutcome(OperationLogin, OutcomeSuccess)
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the bearer token of the Authorization header value. Only
// tokens that verify are recorded: any other token already fails the gate,
// so it is acknowledged without a write. The entry lives until the token's
// own exp.
func (s *Service) Logout(ctx context.Context, authorization string) error {
	token, err := ExtractBearer(authorization)
	if err != nil {
		s.recorder.RecordAuthOutcome(OperationLogout, headerOutcome(err))
		return err
	}

	if _, err := s.tokens.Verify(token); err != nil {
		s.recorder.RecordAuthOutcome(OperationLogout, OutcomeInvalid)
		s.logger.Debug("Logout with a token that does not verify, nothing recorded")
		return nil
	}

	expiresAt, ok := s.tokens.ExpiryUnverified(token)
	if !ok {
		expiresAt = s.tokens.now().Add(s.tokens.TTL())
	}

	if err := s.revocations.Revoke(ctx, token, expiresAt); err != nil {
		s.recorder.RecordAuthOutcome(OperationLogout, OutcomeError)
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.recorder.RecordRevocation(s.revocations.Backend())
	s.recorder.RecordAuthOutcome(OperationLogout, OutcomeSuccess)
	s.logger.WithFields(map[string]interface{}{
		"backend":    s.revocations.Backend(),
		"expires_at": expiresAt,
	}).Debug("Token revoked")
	return nil
}

// Authenticate runs the gate on an Authorization header value. Checks run
// in order: header shape, revocation, signature and expiry, user lookup.
// The first failure is returned; errors other than the auth sentinels are
// infrastructure failures.
func (s *Service) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	token, err := ExtractBearer(authorization)
	if err != nil {
		s.recorder.RecordAuthOutcome(OperationGate, headerOutcome(err))
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, token)
	if err != nil {
		s.recorder.RecordAuthOutcome(OperationGate, OutcomeError)
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		s.recorder.RecordAuthOutcome(OperationGate, OutcomeRevoked)
		return nil, ErrRevokedToken
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		s.recorder.RecordAuthOutcome(OperationGate, OutcomeInvalid)
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.recorder.RecordAuthOutcome(OperationGate, OutcomeUnknownUser)
			return nil, ErrUnknownUser
		}
		s.recorder.RecordAuthOutcome(OperationGate, OutcomeError)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	s.recorder.RecordAuthOutcome(OperationGate, OutcomeSuccess)
	return &Identity{User: user, Token: token}, nil
}

func headerOutcome(err error) string {
	if errors.Is(err, ErrMissingToken) {
		return OutcomeMissing
	}
	return OutcomeMalformed
}
