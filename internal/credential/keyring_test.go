package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/model"
)

func TestKeyringStoreRoundTrip(t *testing.T) {
	s := credential.NewKeyringStore(keyring.NewArrayKeyring(nil))

	sess, err := s.Load()
	require.NoError(t, err)
	assert.False(t, sess.Complete())

	user := model.User{ID: 3, Email: "dev@example.com", IsActive: true}
	require.NoError(t, s.Save("tok", user))

	token, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	sess, err = s.Load()
	require.NoError(t, err)
	require.True(t, sess.Complete())
	assert.Equal(t, user, *sess.User)
}

func TestKeyringStoreClear(t *testing.T) {
	s := credential.NewKeyringStore(keyring.NewArrayKeyring(nil))

	// Clearing an empty store is fine.
	require.NoError(t, s.Clear())

	require.NoError(t, s.Save("tok", model.User{ID: 1}))
	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())

	sess, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	assert.Nil(t, sess.User)
}

func TestKeyringStoreMalformedUser(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{
		{Key: credential.TokenKey, Data: []byte("tok")},
		{Key: credential.UserKey, Data: []byte("[]")},
	})
	s := credential.NewKeyringStore(ring)

	sess, err := s.Load()
	require.ErrorIs(t, err, credential.ErrMalformed)
	assert.Equal(t, "tok", sess.Token)
	assert.Nil(t, sess.User)
}
