package session_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/api"
	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/session"
	"github.com/nhle/todoctl/tests/testutil"
)

type harness struct {
	fake   *testutil.FakeAPI
	creds  credential.Store
	client *api.Client
	mgr    *session.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	creds := credential.NewKeyringStore(keyring.NewArrayKeyring(nil))
	client := api.NewClient(fake.URL, creds)
	mgr := session.NewManager(client, creds, client.Events())
	t.Cleanup(mgr.Close)
	return &harness{fake: fake, creds: creds, client: client, mgr: mgr}
}

// states records every state a manager publishes.
type states struct {
	mu  sync.Mutex
	all []session.State
}

func (s *states) add(st session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, st)
}

func (s *states) list() []session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.State(nil), s.all...)
}

func TestStartsLoading(t *testing.T) {
	h := newHarness(t)
	st := h.mgr.State()
	assert.True(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
}

func TestInitializeWithEmptyCache(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.mgr.Initialize(context.Background()))
	assert.Equal(t, session.State{}, h.mgr.State())
	assert.Empty(t, h.fake.Requests())
}

func TestInitializeRestoresValidSession(t *testing.T) {
	h := newHarness(t)
	user, token := h.fake.SeedUser(t, "dev@example.com", "secret1")
	require.NoError(t, h.creds.Save(token, user))

	require.NoError(t, h.mgr.Initialize(context.Background()))

	st := h.mgr.State()
	require.True(t, st.IsAuthenticated())
	assert.False(t, st.Loading)
	assert.Equal(t, token, st.Token)
	assert.Equal(t, user.Email, st.User.Email)

	reqs := h.fake.RequestsTo(http.MethodGet, "/api/auth/me")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+token, reqs[0].Header.Get("Authorization"))
}

func TestInitializeDiscardsRejectedToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.creds.Save("expired", model.User{ID: 1, Email: "dev@example.com"}))

	err := h.mgr.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	assert.Equal(t, session.State{}, h.mgr.State())
	sess, err := h.creds.Load()
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	assert.Nil(t, sess.User)
}

func TestInitializeDiscardsHalfCache(t *testing.T) {
	h := newHarness(t)
	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: credential.TokenKey, Data: []byte("tok")}})
	creds := credential.NewKeyringStore(ring)
	mgr := session.NewManager(h.client, creds, nil)

	require.NoError(t, mgr.Initialize(context.Background()))
	assert.False(t, mgr.IsAuthenticated())
	assert.False(t, mgr.State().Loading)
	assert.Empty(t, h.fake.Requests())
}

func TestInitializeDiscardsMalformedUser(t *testing.T) {
	h := newHarness(t)
	ring := keyring.NewArrayKeyring([]keyring.Item{
		{Key: credential.TokenKey, Data: []byte("tok")},
		{Key: credential.UserKey, Data: []byte("{not json")},
	})
	creds := credential.NewKeyringStore(ring)
	mgr := session.NewManager(h.client, creds, nil)

	err := mgr.Initialize(context.Background())
	require.ErrorIs(t, err, credential.ErrMalformed)
	assert.False(t, mgr.IsAuthenticated())

	token, err := creds.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestLoginCachesSession(t *testing.T) {
	h := newHarness(t)
	user, _ := h.fake.SeedUser(t, "dev@example.com", "secret1")

	var seen states
	h.mgr.Subscribe(seen.add)

	require.NoError(t, h.mgr.Login(context.Background(), "dev@example.com", "secret1"))

	st := h.mgr.State()
	require.True(t, st.IsAuthenticated())
	assert.Equal(t, user.ID, st.User.ID)

	sess, err := h.creds.Load()
	require.NoError(t, err)
	require.True(t, sess.Complete())
	assert.Equal(t, st.Token, sess.Token)
	assert.Equal(t, user.ID, sess.User.ID)

	all := seen.list()
	require.Len(t, all, 2)
	assert.True(t, all[0].Loading)
	assert.False(t, all[1].Loading)
}

func TestLoginFailureClearsState(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser(t, "dev@example.com", "secret1")

	err := h.mgr.Login(context.Background(), "dev@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, session.MsgWrongCredentials, session.LoginErrorMessage(err))
	assert.Equal(t, session.State{}, h.mgr.State())

	token, err := h.creds.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRegisterLogsIn(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.mgr.Register(context.Background(), "new@example.com", "secret1"))
	require.True(t, h.mgr.IsAuthenticated())
	assert.Equal(t, "new@example.com", h.mgr.State().User.Email)

	require.Len(t, h.fake.RequestsTo(http.MethodPost, "/api/auth/register"), 1)
	require.Len(t, h.fake.RequestsTo(http.MethodPost, "/api/auth/login"), 1)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser(t, "dev@example.com", "secret1")

	err := h.mgr.Register(context.Background(), "dev@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, session.MsgEmailTaken, session.RegisterErrorMessage(err))
	assert.False(t, h.mgr.IsAuthenticated())
	assert.False(t, h.mgr.State().Loading)
	assert.Empty(t, h.fake.RequestsTo(http.MethodPost, "/api/auth/login"))
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser(t, "dev@example.com", "secret1")
	require.NoError(t, h.mgr.Login(context.Background(), "dev@example.com", "secret1"))

	h.mgr.Logout()
	first := h.mgr.State()
	h.mgr.Logout()

	assert.Equal(t, session.State{}, first)
	assert.Equal(t, first, h.mgr.State())
	sess, err := h.creds.Load()
	require.NoError(t, err)
	assert.False(t, sess.Complete())
}

func TestUnauthorizedResponseLogsOut(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser(t, "dev@example.com", "secret1")
	require.NoError(t, h.mgr.Login(context.Background(), "dev@example.com", "secret1"))

	h.fake.FailNext(http.MethodGet, "/api/todos", http.StatusUnauthorized, "Could not validate credentials")
	_, err := h.client.ListTodos(context.Background(), model.DefaultQuery(10))
	require.True(t, api.IsUnauthorized(err))

	// Invalidation is delivered before the call returns.
	assert.False(t, h.mgr.IsAuthenticated())
}

func TestCloseStopsListening(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedUser(t, "dev@example.com", "secret1")
	require.NoError(t, h.mgr.Login(context.Background(), "dev@example.com", "secret1"))

	h.mgr.Close()
	h.client.Events().Publish(api.Invalidation{Reason: "unauthorized"})
	assert.True(t, h.mgr.IsAuthenticated())
}

func TestRefreshUserInfo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// No token: nothing is sent.
	require.NoError(t, h.mgr.RefreshUserInfo(ctx))
	assert.Empty(t, h.fake.Requests())

	h.fake.SeedUser(t, "dev@example.com", "secret1")
	require.NoError(t, h.mgr.Login(ctx, "dev@example.com", "secret1"))
	h.fake.ResetRequests()

	require.NoError(t, h.mgr.RefreshUserInfo(ctx))
	assert.Len(t, h.fake.RequestsTo(http.MethodGet, "/api/auth/me"), 1)
	assert.True(t, h.mgr.IsAuthenticated())

	h.fake.FailNext(http.MethodGet, "/api/auth/me", http.StatusUnauthorized, "Could not validate credentials")
	require.Error(t, h.mgr.RefreshUserInfo(ctx))
	assert.False(t, h.mgr.IsAuthenticated())
}

func TestRefreshAfterLogoutDoesNotRecache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fake.SeedUser(t, "dev@example.com", "secret1")
	require.NoError(t, h.mgr.Login(ctx, "dev@example.com", "secret1"))
	h.fake.ResetRequests()

	release := h.fake.HoldNext(http.MethodGet, "/api/auth/me")
	defer release()

	done := make(chan error, 1)
	go func() { done <- h.mgr.RefreshUserInfo(ctx) }()

	require.Eventually(t, func() bool {
		return len(h.fake.RequestsTo(http.MethodGet, "/api/auth/me")) == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.mgr.Logout()
	release()
	require.NoError(t, <-done)

	assert.False(t, h.mgr.IsAuthenticated())
	cached, err := h.creds.Load()
	require.NoError(t, err)
	assert.Empty(t, cached.Token)
	assert.Nil(t, cached.User)

	// A fresh manager over the same cache stays logged out.
	again := session.NewManager(h.client, h.creds, nil)
	require.NoError(t, again.Initialize(ctx))
	assert.False(t, again.IsAuthenticated())
}

func TestSubscribeCancel(t *testing.T) {
	h := newHarness(t)
	var seen states
	cancel := h.mgr.Subscribe(seen.add)

	h.mgr.Logout()
	cancel()
	h.mgr.Logout()

	assert.Len(t, seen.list(), 1)
}
