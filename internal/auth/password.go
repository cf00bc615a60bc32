// Package auth: password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness is a security feature: it makes brute-force attacks expensive.
//
// bcrypt automatically:
//   - Generates a random salt (so two users with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/xid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor.
//
// Cost 12 takes roughly ~250ms on a modern server: negligible for one login,
// brutal for an attacker trying millions of guesses.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit. Longer input is silently truncated
// by the algorithm, so we reject it instead.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// BOUNDED CONCURRENCY:
// Each bcrypt call pins a CPU core for a few hundred milliseconds. A burst of
// signups could otherwise starve every other request on the box. The slots
// channel is a semaphore: a call must take a slot before hashing and gives
// it back afterwards. A request whose context is
// cancelled while waiting simply stops waiting.
type PasswordService struct {
	cost  int
	slots chan struct{}

	// dummyHash is built once at construction, so every unknown-account
	// login costs exactly one bcrypt comparison.
	dummyHash string
}

// NewPasswordService creates a PasswordService with the default cost (12).
// workers caps concurrent hash operations; <= 0 means GOMAXPROCS.
func NewPasswordService(workers int) *PasswordService {
	return newPasswordService(DefaultCost, workers)
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Use cost 4 (the bcrypt minimum) in tests in other packages to avoid the
// ~250ms overhead of cost 12 per hashing operation.
//
// Do NOT use in production: cost 4 is far too weak.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordService(cost, 0)
}

// NewPasswordServiceWithCost is NewPasswordService with a configured cost.
// Costs outside bcrypt's accepted range fall back to DefaultCost.
func NewPasswordServiceWithCost(cost, workers int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return newPasswordService(cost, workers)
}

func newPasswordService(cost, workers int) *PasswordService {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &PasswordService{
		cost:  cost,
		slots: make(chan struct{}, workers),
	}
	if h, err := bcrypt.GenerateFromPassword([]byte(xid.New().String()), cost); err == nil {
		p.dummyHash = string(h)
	}
	return p
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns an error if the plaintext is too long (>72 bytes, a bcrypt limit)
// or if ctx is done before a hashing slot frees up.
func (p *PasswordService) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	release, err := p.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns nil if they match, ErrPasswordMismatch if they don't, and another
// error if the hash is malformed or ctx ends while waiting for a slot.
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(ctx context.Context, hash, plaintext string) error {
	release, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyDummy burns the same time as a real Verify against a hash that never
// matches. Login calls it when the account does not exist, so response time
// does not reveal which usernames are registered.
func (p *PasswordService) VerifyDummy(ctx context.Context, plaintext string) error {
	if p.dummyHash == "" {
		return ErrPasswordMismatch
	}
	if err := p.Verify(ctx, p.dummyHash, plaintext); err != nil && !errors.Is(err, ErrPasswordMismatch) {
		return err
	}
	return ErrPasswordMismatch
}

// acquire blocks until a hashing slot is free or ctx is done.
func (p *PasswordService) acquire(ctx context.Context) (func(), error) {
	select {
	case p.slots <- struct{}{}:
		return func() { <-p.slots }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("auth: waiting for hash slot: %w", ctx.Err())
	}
}
