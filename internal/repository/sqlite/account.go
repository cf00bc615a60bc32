package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/pulsepy/internal/apperror"
	"github.com/sakif/pulsepy/internal/model"
	"github.com/sakif/pulsepy/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

// Conflict messages are part of the API contract: the signup form shows them as-is.
const (
	msgEmailTaken    = "An account with this email already exists."
	msgUsernameTaken = "That username is taken."
)

const accountColumns = `id, full_name, email, email_normalized, username, username_normalized,
	password_hash, created_at, updated_at, last_login_at`

// lookupFields whitelists the columns FindOneByField may interpolate.
// The value is always bound as a parameter; only the column name is spliced in.
var lookupFields = map[repository.Field]bool{
	repository.FieldID:                 true,
	repository.FieldEmailNormalized:    true,
	repository.FieldUsernameNormalized: true,
}

// FindOneByField returns the single account whose column equals value.
// Returns apperror.ErrNotFound if nothing matches.
func (db *DB) FindOneByField(ctx context.Context, field repository.Field, value string) (*model.Account, error) {
	if !lookupFields[field] {
		return nil, fmt.Errorf("sqlite: unsupported lookup field %q", field)
	}

	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM accounts WHERE %s = ? LIMIT 1`, accountColumns, field),
		value,
	)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("sqlite: finding account by %s: %w", field, err)
	}

	return account, nil
}

// Create inserts a new account, assigning ID and timestamps in place.
//
// The UNIQUE indexes on the normalized columns are the final word on
// uniqueness: if two signups race past the service's lookups, the second
// INSERT fails here and is reported as a Conflict.
func (db *DB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, full_name, email, email_normalized, username, username_normalized,
			password_hash, created_at, updated_at, last_login_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.FullName,
		account.Email,
		account.EmailNormalized,
		account.Username,
		account.UsernameNormalized,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
		nullTime(account.LastLoginAt),
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", account.UsernameNormalized, err)
	}

	return nil
}

// Update writes the mutable fields of an existing account.
// Returns apperror.ErrNotFound if the ID does not exist.
func (db *DB) Update(ctx context.Context, account *model.Account) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts
		 SET full_name = ?, email = ?, email_normalized = ?, username = ?, username_normalized = ?,
		     password_hash = ?, updated_at = ?, last_login_at = ?
		 WHERE id = ?`,
		account.FullName,
		account.Email,
		account.EmailNormalized,
		account.Username,
		account.UsernameNormalized,
		account.PasswordHash,
		account.UpdatedAt,
		nullTime(account.LastLoginAt),
		account.ID,
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("account", account.ID)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a         model.Account
		lastLogin sql.NullTime
	)

	err := row.Scan(
		&a.ID,
		&a.FullName,
		&a.Email,
		&a.EmailNormalized,
		&a.Username,
		&a.UsernameNormalized,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}

	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// uniqueViolation maps a UNIQUE constraint failure to a Conflict error naming
// the column that collided. It returns nil for any other error.
func uniqueViolation(err error) *apperror.AppError {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	// Primary and extended result codes share the low byte.
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT || !strings.Contains(sqliteErr.Error(), "UNIQUE") {
		return nil
	}

	// SQLite names the column in the message:
	//   "UNIQUE constraint failed: accounts.email_normalized"
	if strings.Contains(sqliteErr.Error(), "email_normalized") {
		return apperror.Conflict(msgEmailTaken)
	}
	return apperror.Conflict(msgUsernameTaken)
}
