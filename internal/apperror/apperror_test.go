// GO TESTING BASICS:
// 1. Test files MUST end in _test.go; Go's tooling auto-discovers them
// 2. Test functions MUST start with "Test" and take *testing.T as the only param
// 3. Same package as the code being tested (so we can access unexported stuff)
// 4. Run with: go test ./internal/apperror/ -v
package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	dialErr := errors.New("dial tcp: connection refused")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("account", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("email", "email is invalid"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "ValidationList wraps ErrValidation",
			err:       ValidationList([]string{"a", "b"}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("That username is taken."),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("nope"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Unreachable wraps ErrUnreachable",
			err:       Unreachable("all down", dialErr),
			target:    ErrUnreachable,
			wantMatch: true,
		},
		{
			name:      "Unreachable also matches its cause",
			err:       Unreachable("all down", dialErr),
			target:    dialErr,
			wantMatch: true,
		},
		{
			name:      "Unauthorized does NOT match ErrForbidden",
			err:       Unauthorized("nope"),
			target:    ErrForbidden,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("name", "too long"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("account", "abc123"),
			wantMessage: "account not found with id abc123",
		},
		{
			name:        "Conflict uses the given message",
			err:         Conflict("An account with this email already exists."),
			wantMessage: "An account with this email already exists.",
		},
		{
			name:        "ValidationList joins messages",
			err:         ValidationList([]string{"First.", "Second."}),
			wantMessage: "First. Second.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestValidationList_Empty(t *testing.T) {
	// A nil *AppError must not be returned as a non-nil error interface by
	// callers, so the constructor hands back a typed nil they can check.
	if got := ValidationList(nil); got != nil {
		t.Errorf("ValidationList(nil) = %v, want nil", got)
	}
}

func TestValidationList_KeepsOrder(t *testing.T) {
	err := ValidationList([]string{"one", "two", "three"})
	if len(err.Details) != 3 || err.Details[0] != "one" || err.Details[2] != "three" {
		t.Errorf("Details = %v, want [one two three]", err.Details)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
