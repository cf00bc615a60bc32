// Package repository declares the storage contracts the service layer depends on.
package repository

import (
	"context"

	"github.com/sakif/pulsepy/internal/model"
)

// Field names an account column that can be used for single-row lookups.
type Field string

const (
	FieldID                 Field = "id"
	FieldEmailNormalized    Field = "email_normalized"
	FieldUsernameNormalized Field = "username_normalized"
)

// AccountRepository is the document-store contract for the accounts collection.
//
// FindOneByField returns apperror.ErrNotFound when no account matches.
// Create returns apperror.ErrConflict when a normalized email or username is
// already taken.
type AccountRepository interface {
	FindOneByField(ctx context.Context, field Field, value string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) error
	Update(ctx context.Context, account *model.Account) error
}
