// Package credential caches the auth session (bearer token and user profile)
// between runs.
package credential

import (
	"errors"

	"github.com/nhle/todoctl/internal/model"
)

// Entry names. Both are written together and cleared together.
const (
	TokenKey = "jwt_token"
	UserKey  = "user_info"
)

// ErrMalformed is returned by Load when the cached user cannot be decoded.
var ErrMalformed = errors.New("malformed cached session")

// Session is the cached pair. Either field may be empty.
type Session struct {
	Token string
	User  *model.User
}

// Complete reports whether both entries are present.
func (s Session) Complete() bool {
	return s.Token != "" && s.User != nil
}

// Store persists the session cache.
type Store interface {
	// Token returns the current bearer token, or "" when none is cached.
	Token() (string, error)

	// Load returns both cached entries.
	Load() (Session, error)

	// Save writes both entries.
	Save(token string, user model.User) error

	// Clear removes both entries. Clearing an empty store succeeds.
	Clear() error
}
