// Package model defines the data structures used throughout the application.
package model

import "time"

// Account is a registered learner.
//
// NORMALIZED FIELDS:
// EmailNormalized and UsernameNormalized are the trimmed, lowercased forms of
// Email and Username. They are the uniqueness keys: "Ada@Example.com" and
// "ada@example.com" are the same account. The display forms keep whatever
// casing the user typed.
//
// The json:"-" tags keep the hash and lookup keys out of every API response,
// even if a handler accidentally encodes the whole struct.
type Account struct {
	ID                 string     `json:"id"`
	FullName           string     `json:"fullName"`
	Email              string     `json:"email"`
	EmailNormalized    string     `json:"-"`
	Username           string     `json:"username"`
	UsernameNormalized string     `json:"-"`
	PasswordHash       string     `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"` // nil until the first login
}

// Identity is what a valid session token says about its bearer.
// It lives only in the request context; nothing caches it between requests.
type Identity struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
}

// Identity returns the session identity for the account.
func (a *Account) Identity() Identity {
	return Identity{
		AccountID: a.ID,
		Email:     a.Email,
		Username:  a.Username,
		FullName:  a.FullName,
	}
}
