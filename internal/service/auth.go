// Package service holds credential and session business logic.
//
// AccountService is the business logic layer for authentication. It sits
// between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AccountService (business rules) → AccountRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Validate signup input and enforce unique emails/usernames
//   - Verify credentials without leaking which part was wrong
//   - Issue and validate session tokens
//
// WHAT THIS LAYER DOES NOT DO:
//   - It does NOT set cookies (that's the handler's job: HTTP concern)
//   - It does NOT read HTTP requests
//   - It is NOT tied to Chi or any routing framework
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/pulsepy/internal/apperror"
	"github.com/sakif/pulsepy/internal/auth"
	"github.com/sakif/pulsepy/internal/model"
	"github.com/sakif/pulsepy/internal/repository"
)

// Client-facing messages. The frontend renders these verbatim.
const (
	MsgEmailTaken         = "An account with this email already exists."
	MsgUsernameTaken      = "That username is taken."
	MsgInvalidCredentials = "Invalid username/email or password."
	MsgMissingCredentials = "Please enter your username/email and password."
	MsgSessionExpired     = "Session expired. Please log in again."
)

// Outcome labels for AttemptRecorder.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeDenied   = "denied"
	OutcomeError    = "error"
)

// AttemptRecorder counts authentication attempts by operation and outcome.
// internal/metrics provides the Prometheus implementation.
type AttemptRecorder interface {
	AuthAttempt(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthAttempt(string, string) {}

// AuthResult is returned by Signup and Login.
// It bundles the account and the issued JWT so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// AccountService handles signup, login and session validation.
//
// DEPENDENCIES (injected via NewAccountService):
//   - accounts   repository.AccountRepository → read/write account records
//   - tokens     *auth.TokenService           → generate/validate JWTs
//   - passwords  *auth.PasswordService        → bcrypt hashing (bounded pool)
//   - logger     *slog.Logger                 → structured logging
type AccountService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	attempts  AttemptRecorder
	now       func() time.Time
}

// Option customises an AccountService.
type Option func(*AccountService)

// WithAttemptRecorder reports every signup/login outcome to r.
func WithAttemptRecorder(r AttemptRecorder) Option {
	return func(s *AccountService) {
		if r != nil {
			s.attempts = r
		}
	}
}

// NewAccountService creates an AccountService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAccountService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
	opts ...Option,
) *AccountService {
	s := &AccountService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		attempts:  nopRecorder{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup validates the form, creates the account and issues a session token.
//
// ORDER OF CHECKS:
//  1. Field rules, all reported at once (400)
//  2. Email already registered (409)
//  3. Username already taken (409)
//  4. Hash, persist, issue token
//
// The two uniqueness lookups are independent reads followed by a write, so
// two concurrent signups can both pass them. The UNIQUE indexes in the
// accounts table catch that race; the repository reports it as a Conflict.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in = in.normalized()
	if err := validateSignup(in); err != nil {
		s.attempts.AuthAttempt("signup", OutcomeInvalid)
		return nil, err
	}

	emailKey := normalizeKey(in.Email)
	usernameKey := normalizeKey(in.Username)

	if err := s.ensureAvailable(ctx, repository.FieldEmailNormalized, emailKey, MsgEmailTaken); err != nil {
		return nil, s.signupFailed(err)
	}
	if err := s.ensureAvailable(ctx, repository.FieldUsernameNormalized, usernameKey, MsgUsernameTaken); err != nil {
		return nil, s.signupFailed(err)
	}

	hash, err := s.passwords.Hash(ctx, in.Password)
	if err != nil {
		return nil, s.signupFailed(fmt.Errorf("service/auth: hashing password: %w", err))
	}

	account := &model.Account{
		FullName:           in.FullName,
		Email:              in.Email,
		EmailNormalized:    emailKey,
		Username:           in.Username,
		UsernameNormalized: usernameKey,
		PasswordHash:       hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, s.signupFailed(err)
		}
		return nil, s.signupFailed(fmt.Errorf("service/auth: creating account: %w", err))
	}

	token, err := s.tokens.Generate(account.Identity())
	if err != nil {
		return nil, s.signupFailed(fmt.Errorf("service/auth: generating token for %s: %w", account.ID, err))
	}

	s.attempts.AuthAttempt("signup", OutcomeSuccess)
	s.logger.Info("account created",
		slog.String("accountID", account.ID),
		slog.String("username", account.Username),
	)

	return &AuthResult{Account: account, Token: token}, nil
}

// ensureAvailable returns a Conflict carrying msg if an account already uses value.
func (s *AccountService) ensureAvailable(ctx context.Context, field repository.Field, value, msg string) error {
	_, err := s.accounts.FindOneByField(ctx, field, value)
	switch {
	case err == nil:
		return apperror.Conflict(msg)
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("service/auth: checking %s: %w", field, err)
	}
}

func (s *AccountService) signupFailed(err error) error {
	if errors.Is(err, apperror.ErrConflict) {
		s.attempts.AuthAttempt("signup", OutcomeConflict)
	} else {
		s.attempts.AuthAttempt("signup", OutcomeError)
		s.logger.Error("signup failed", slog.String("error", err.Error()))
	}
	return err
}

// Login verifies credentials and issues a session token.
//
// IDENTIFIER:
// The identifier is trimmed and lowercased. If it contains "@" it is looked
// up as an email, otherwise as a username.
//
// NO ENUMERATION:
// An unknown identifier and a wrong password produce the same error, and an
// unknown identifier still pays for one bcrypt comparison (VerifyDummy), so
// neither the message nor the response time tells an attacker which
// usernames exist.
func (s *AccountService) Login(ctx context.Context, usernameOrEmail, password string) (*AuthResult, error) {
	identifier := normalizeKey(usernameOrEmail)
	if identifier == "" || password == "" {
		s.attempts.AuthAttempt("login", OutcomeInvalid)
		return nil, apperror.ValidationFailed("usernameOrEmail", MsgMissingCredentials)
	}

	field := repository.FieldUsernameNormalized
	if strings.Contains(identifier, "@") {
		field = repository.FieldEmailNormalized
	}

	account, err := s.accounts.FindOneByField(ctx, field, identifier)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, s.loginFailed(fmt.Errorf("service/auth: looking up account: %w", err))
		}
		if err := s.passwords.VerifyDummy(ctx, password); !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, s.loginFailed(fmt.Errorf("service/auth: dummy verify: %w", err))
		}
		s.attempts.AuthAttempt("login", OutcomeDenied)
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}

	if err := s.passwords.Verify(ctx, account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.attempts.AuthAttempt("login", OutcomeDenied)
			s.logger.Info("login rejected", slog.String("accountID", account.ID))
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, s.loginFailed(fmt.Errorf("service/auth: verifying password: %w", err))
	}

	now := s.now()
	account.LastLoginAt = &now
	account.UpdatedAt = now
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, s.loginFailed(fmt.Errorf("service/auth: recording login for %s: %w", account.ID, err))
	}

	token, err := s.tokens.Generate(account.Identity())
	if err != nil {
		return nil, s.loginFailed(fmt.Errorf("service/auth: generating token for %s: %w", account.ID, err))
	}

	s.attempts.AuthAttempt("login", OutcomeSuccess)
	s.logger.Info("account logged in", slog.String("accountID", account.ID))

	return &AuthResult{Account: account, Token: token}, nil
}

func (s *AccountService) loginFailed(err error) error {
	s.attempts.AuthAttempt("login", OutcomeError)
	s.logger.Error("login failed", slog.String("error", err.Error()))
	return err
}

// Validate decodes a session token into the identity it was issued for.
//
// Every failure (tampered, expired, wrong issuer) collapses into one
// Unauthorized error; the reason is kept as the cause for logs only.
// AccountService satisfies auth.Validator, so it can be handed straight to
// auth.RequireAuth.
func (s *AccountService) Validate(token string) (model.Identity, error) {
	id, err := s.tokens.Validate(token)
	if err != nil {
		return model.Identity{}, &apperror.AppError{
			Err:     apperror.ErrUnauthorized,
			Message: MsgSessionExpired,
			Cause:   err,
		}
	}
	return id, nil
}

// SessionTTL is how long issued tokens (and their cookies) live.
func (s *AccountService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}
