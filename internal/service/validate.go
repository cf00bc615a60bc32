package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/pulsepy/internal/apperror"
	"github.com/sakif/pulsepy/internal/auth"
)

// Field rules for the signup form.
const (
	MinFullNameLength = 2
	MinUsernameLength = 3
	MinPasswordLength = 8
)

// emailPattern is deliberately loose: something@something.something, no spaces.
// Deliverability is the mail server's problem, not ours.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SignupInput is the raw signup form as the client sent it.
type SignupInput struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// normalized returns a copy with the free-text fields trimmed.
// Passwords are never trimmed: a leading space is part of the secret.
func (in SignupInput) normalized() SignupInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	return in
}

// validateSignup checks every rule and reports all failures together.
//
// BATCHED VALIDATION:
// The form shows every problem at once, so we don't stop at the first one.
// Messages are appended in form order (fullName, email, username, password,
// confirmPassword), which is also the order the client renders them.
//
// The input must already be normalized.
func validateSignup(in SignupInput) error {
	var problems []string

	if utf8.RuneCountInString(in.FullName) < MinFullNameLength {
		problems = append(problems, "Please enter your full name.")
	}

	if !emailPattern.MatchString(in.Email) {
		problems = append(problems, "Please enter a valid email address.")
	}

	if utf8.RuneCountInString(in.Username) < MinUsernameLength {
		problems = append(problems,
			fmt.Sprintf("Username must be at least %d characters.", MinUsernameLength))
	}

	switch {
	case utf8.RuneCountInString(in.Password) < MinPasswordLength || !containsDigit(in.Password):
		problems = append(problems,
			fmt.Sprintf("Password must be at least %d characters and include a number.", MinPasswordLength))
	case len(in.Password) > auth.MaxPasswordBytes:
		problems = append(problems,
			fmt.Sprintf("Password is too long (maximum %d bytes).", auth.MaxPasswordBytes))
	}

	if in.Password != in.ConfirmPassword {
		problems = append(problems, "Passwords do not match.")
	}

	if len(problems) == 0 {
		return nil
	}
	return apperror.ValidationList(problems)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// normalizeKey is how emails and usernames are compared for uniqueness and login.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
