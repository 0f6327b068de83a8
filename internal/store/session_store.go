package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/model"
)

// SessionStore is a credential.Store backed by the session_entries table.
type SessionStore struct {
	store *SQLiteStore
}

var _ credential.Store = (*SessionStore)(nil)

// Sessions returns the session cache view of s.
func (s *SQLiteStore) Sessions() *SessionStore {
	return &SessionStore{store: s}
}

func (s *SessionStore) get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := builder.
		Select("value").
		From("session_entries").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("building session query: %w", err)
	}

	var value string
	err = s.store.db.GetContext(ctx, &value, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading session entry %q: %w", key, err)
	}
	return value, true, nil
}

// Token returns the cached bearer token, or "" when none is stored.
func (s *SessionStore) Token() (string, error) {
	token, _, err := s.get(context.Background(), credential.TokenKey)
	return token, err
}

// Load returns the cached token and user.
func (s *SessionStore) Load() (credential.Session, error) {
	ctx := context.Background()
	token, _, err := s.get(ctx, credential.TokenKey)
	if err != nil {
		return credential.Session{}, err
	}

	raw, ok, err := s.get(ctx, credential.UserKey)
	if err != nil {
		return credential.Session{}, err
	}
	if !ok {
		return credential.Session{Token: token}, nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return credential.Session{Token: token}, fmt.Errorf("%w: %v", credential.ErrMalformed, err)
	}
	return credential.Session{Token: token, User: &user}, nil
}

// Save writes both entries in one transaction.
func (s *SessionStore) Save(token string, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	ctx := context.Background()
	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range map[string]string{
		credential.TokenKey: token,
		credential.UserKey:  string(data),
	} {
		query, args, err := builder.
			Insert("session_entries").
			Columns("key", "value", "updated_at").
			Values(key, value, now).
			Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("building session upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("writing session entry %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// Clear removes both entries. Missing entries are not an error.
func (s *SessionStore) Clear() error {
	query, args, err := builder.
		Delete("session_entries").
		Where(sq.Eq{"key": []string{credential.TokenKey, credential.UserKey}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session delete: %w", err)
	}
	if _, err := s.store.db.Exec(query, args...); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
