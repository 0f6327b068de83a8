package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/nhle/todoctl/internal/model"
)

// ErrDuplicateEmail is returned when registering an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// naiveTimestamp mirrors the server's timezone-less datetime format.
const naiveTimestamp = "2006-01-02T15:04:05.000000"

type userRow struct {
	ID           int    `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	IsActive     bool   `db:"is_active"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r userRow) user() model.User {
	return model.User{
		ID:        r.ID,
		Email:     r.Email,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// CreateUser inserts an active account with an already-hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.User{}, fmt.Errorf("user email must not be empty")
	}

	if _, _, err := s.UserByEmail(ctx, email); err == nil {
		return model.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}

	now := time.Now().UTC().Format(naiveTimestamp)
	query, args, err := builder.
		Insert("users").
		Columns("email", "password_hash", "is_active", "created_at").
		Values(email, passwordHash, 1, now).
		ToSql()
	if err != nil {
		return model.User{}, fmt.Errorf("building user insert: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.User{}, fmt.Errorf("creating user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("reading user id: %w", err)
	}

	return model.User{ID: int(id), Email: email, IsActive: true, CreatedAt: now}, nil
}

// UserByEmail returns the account and its password hash.
func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (model.User, string, error) {
	row, err := s.findUser(ctx, sq.Eq{"email": strings.TrimSpace(email)})
	if err != nil {
		return model.User{}, "", err
	}
	return row.user(), row.PasswordHash, nil
}

// UserByID returns the account with the given id.
func (s *SQLiteStore) UserByID(ctx context.Context, id int) (model.User, error) {
	row, err := s.findUser(ctx, sq.Eq{"id": id})
	if err != nil {
		return model.User{}, err
	}
	return row.user(), nil
}

func (s *SQLiteStore) findUser(ctx context.Context, where sq.Sqlizer) (userRow, error) {
	query, args, err := builder.
		Select("id", "email", "password_hash", "is_active", "created_at", "updated_at").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return userRow{}, fmt.Errorf("building user query: %w", err)
	}

	var row userRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return userRow{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return userRow{}, fmt.Errorf("querying user: %w", err)
	}
	return row, nil
}

// IssueToken creates an opaque access token for userID valid for ttl.
func (s *SQLiteStore) IssueToken(ctx context.Context, userID int, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	query, args, err := builder.
		Insert("access_tokens").
		Columns("token", "user_id", "expires_at").
		Values(token, userID, time.Now().Add(ttl).Unix()).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building token insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return token, nil
}

// UserByToken resolves an unexpired access token to its owner.
func (s *SQLiteStore) UserByToken(ctx context.Context, token string) (model.User, error) {
	query, args, err := builder.
		Select("u.id", "u.email", "u.password_hash", "u.is_active", "u.created_at", "u.updated_at").
		From("access_tokens t").
		Join("users u ON u.id = t.user_id").
		Where(sq.Eq{"t.token": token}).
		Where(sq.Gt{"t.expires_at": time.Now().Unix()}).
		ToSql()
	if err != nil {
		return model.User{}, fmt.Errorf("building token query: %w", err)
	}

	var row userRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("token: %w", ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("querying token: %w", err)
	}
	return row.user(), nil
}

// RevokeTokens deletes every token belonging to userID.
func (s *SQLiteStore) RevokeTokens(ctx context.Context, userID int) error {
	query, args, err := builder.
		Delete("access_tokens").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building token delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("revoking tokens for user %d: %w", userID, err)
	}
	return nil
}
