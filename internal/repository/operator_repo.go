package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"building_automation/internal/models"
)

// ErrUsernameTaken is returned by Create when the username already exists.
var ErrUsernameTaken = errors.New("username already taken")

// OperatorSQLite stores panel operator accounts in the users table.
type OperatorSQLite struct {
	db *sql.DB
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite {
	return &OperatorSQLite{db: db}
}

var _ Operators = (*OperatorSQLite)(nil)

const (
	insertOperatorSQL       = `INSERT INTO users (username, password_hash) VALUES (?, ?)`
	selectOperatorByNameSQL = `SELECT id, username, password_hash FROM users WHERE username = ?`
)

func canonicalUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// sqlite reports duplicate keys as "UNIQUE constraint failed: users.username".
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *OperatorSQLite) Create(ctx context.Context, username, passwordHash string) (int, error) {
	name := canonicalUsername(username)
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, name, passwordHash)
	switch {
	case err != nil && isUniqueViolation(err):
		return 0, fmt.Errorf("%w: %q", ErrUsernameTaken, name)
	case err != nil:
		return 0, fmt.Errorf("insert operator %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("operator %q id: %w", name, err)
	}
	return int(id), nil
}

// GetByUsername returns (nil, nil) when no operator has that name.
func (r *OperatorSQLite) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	name := canonicalUsername(username)
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, selectOperatorByNameSQL, name).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select operator %q: %w", name, err)
	}
	return u, nil
}
