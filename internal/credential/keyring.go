package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"

	"github.com/nhle/todoctl/internal/model"
)

const serviceName = "todoctl"

// OpenKeyring returns the system keyring used for the session cache.
func OpenKeyring() (keyring.Keyring, error) {
	fileDir := "~/.config/todoctl/credentials"
	if home, err := os.UserHomeDir(); err == nil {
		fileDir = filepath.Join(home, ".config", "todoctl", "credentials")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("todoctl-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KeyringStore keeps the session in a keyring. Tests use
// keyring.NewArrayKeyring.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore wraps ring as a session Store.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Token returns the cached bearer token, or "" when none is stored.
func (s *KeyringStore) Token() (string, error) {
	item, err := s.ring.Get(TokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", TokenKey, err)
	}
	return string(item.Data), nil
}

// Load returns the cached token and user.
func (s *KeyringStore) Load() (Session, error) {
	token, err := s.Token()
	if err != nil {
		return Session{}, err
	}

	item, err := s.ring.Get(UserKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return Session{Token: token}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("getting credential %q: %w", UserKey, err)
	}

	var user model.User
	if err := json.Unmarshal(item.Data, &user); err != nil {
		return Session{Token: token}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Session{Token: token, User: &user}, nil
}

// Save writes both entries.
func (s *KeyringStore) Save(token string, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	if err := s.ring.Set(keyring.Item{Key: TokenKey, Data: []byte(token), Label: "todoctl token"}); err != nil {
		return fmt.Errorf("setting credential %q: %w", TokenKey, err)
	}
	if err := s.ring.Set(keyring.Item{Key: UserKey, Data: data, Label: "todoctl user"}); err != nil {
		return fmt.Errorf("setting credential %q: %w", UserKey, err)
	}
	return nil
}

// Clear removes both entries. Missing entries are not an error.
func (s *KeyringStore) Clear() error {
	var errs []error
	for _, key := range []string{TokenKey, UserKey} {
		err := s.ring.Remove(key)
		if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("deleting credential %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
