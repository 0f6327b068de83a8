package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/api"
	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/notify"
	"github.com/nhle/todoctl/tests/testutil"
)

func newCreds(t *testing.T, token string) credential.Store {
	t.Helper()
	creds := credential.NewKeyringStore(keyring.NewArrayKeyring(nil))
	if token != "" {
		require.NoError(t, creds.Save(token, model.User{ID: 1, Email: "dev@example.com"}))
	}
	return creds
}

func TestClassifiesFailures(t *testing.T) {
	tests := []struct {
		status      int
		wantMsg     string
		wantCleared bool
	}{
		{http.StatusUnauthorized, api.MsgSessionExpired, true},
		{http.StatusForbidden, api.MsgForbidden, false},
		{http.StatusNotFound, api.MsgNotFound, false},
		{http.StatusInternalServerError, api.MsgServerError, false},
		{http.StatusConflict, "", false},
		{http.StatusUnprocessableEntity, "", false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fake := testutil.NewFakeAPI(t)
			_, token := fake.SeedUser(t, "dev@example.com", "secret1")
			creds := newCreds(t, token)
			rec := &notify.Recorder{}
			client := api.NewClient(fake.URL, creds, api.WithNotifier(rec))

			var invalidations []api.Invalidation
			client.Events().Subscribe(func(inv api.Invalidation) {
				invalidations = append(invalidations, inv)
			})

			fake.FailNext(http.MethodGet, "/api/todos", tt.status, "nope")
			_, err := client.ListTodos(context.Background(), model.DefaultQuery(10))
			require.Error(t, err)
			assert.Equal(t, tt.status, api.StatusCode(err))
			assert.Equal(t, "nope", api.Detail(err))

			if tt.wantMsg == "" {
				assert.Empty(t, rec.All())
			} else {
				assert.Equal(t, []string{tt.wantMsg}, rec.Messages(notify.KindError))
			}

			cached, err := creds.Token()
			require.NoError(t, err)
			if tt.wantCleared {
				assert.Empty(t, cached)
				require.Len(t, invalidations, 1)
				assert.Equal(t, "/api/todos", invalidations[0].Path)
				assert.True(t, api.IsUnauthorized(err))
			} else {
				assert.Equal(t, token, cached)
				assert.Empty(t, invalidations)
			}
		})
	}
}

func TestAttachesHeaders(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	user, token := fake.SeedUser(t, "dev@example.com", "secret1")
	fake.SeedTodos(t, user.ID, "a")
	client := api.NewClient(fake.URL+"/", newCreds(t, token))

	q := model.DefaultQuery(5)
	q.Search = "a"
	page, err := client.ListTodos(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+token, reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	assert.NotEmpty(t, reqs[0].Header.Get("X-Request-ID"))
	assert.Equal(t, "5", reqs[0].Query.Get("limit"))
	assert.Equal(t, "a", reqs[0].Query.Get("search"))
}

func TestOmitsAuthorizationWithoutToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	rec := &notify.Recorder{}
	client := api.NewClient(fake.URL, newCreds(t, ""), api.WithNotifier(rec))

	_, err := client.ListTodos(context.Background(), model.DefaultQuery(10))
	require.True(t, api.IsUnauthorized(err))

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
	assert.Equal(t, []string{api.MsgSessionExpired}, rec.Messages(notify.KindError))
}

func TestAuthCallsAreNotIntercepted(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.SeedUser(t, "dev@example.com", "secret1")
	creds := newCreds(t, "cached-token")
	rec := &notify.Recorder{}
	client := api.NewClient(fake.URL, creds, api.WithNotifier(rec))

	published := 0
	client.Events().Subscribe(func(api.Invalidation) { published++ })

	_, err := client.Login(context.Background(), "dev@example.com", "wrong")
	require.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "Incorrect email or password", api.Detail(err))

	_, err = client.Me(context.Background(), "bogus")
	require.True(t, api.IsUnauthorized(err))

	assert.Empty(t, rec.All())
	assert.Zero(t, published)
	cached, err := creds.Token()
	require.NoError(t, err)
	assert.Equal(t, "cached-token", cached)

	// Login posts a form, not JSON, and carries no cached token.
	reqs := fake.RequestsTo(http.MethodPost, "/api/auth/login")
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/x-www-form-urlencoded", reqs[0].Header.Get("Content-Type"))
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
}

func TestLoginRegisterMe(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	client := api.NewClient(fake.URL, newCreds(t, ""))
	ctx := context.Background()

	user, err := client.Register(ctx, "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	_, err = client.Register(ctx, "new@example.com", "secret1")
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	tok, err := client.Login(ctx, "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	require.NotEmpty(t, tok.AccessToken)

	me, err := client.Me(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
}

func TestTimeoutIsClassified(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	_, token := fake.SeedUser(t, "dev@example.com", "secret1")
	rec := &notify.Recorder{}
	client := api.NewClient(fake.URL, newCreds(t, token),
		api.WithNotifier(rec), api.WithTimeout(50*time.Millisecond))

	fake.DelayNext(http.MethodGet, "/api/todos", time.Second)
	_, err := client.ListTodos(context.Background(), model.DefaultQuery(10))
	require.Error(t, err)
	assert.True(t, api.IsTimeout(err))
	assert.Equal(t, []string{api.MsgTimeout}, rec.Messages(notify.KindError))
}

func TestNetworkErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := &notify.Recorder{}
	client := api.NewClient(url, newCreds(t, "tok"), api.WithNotifier(rec))

	err := client.DeleteTodo(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, api.IsNetwork(err))
	assert.Equal(t, []string{api.MsgNetwork}, rec.Messages(notify.KindError))
}

func TestCanceledRequestIsSilent(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	rec := &notify.Recorder{}
	client := api.NewClient(fake.URL, newCreds(t, "tok"), api.WithNotifier(rec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListTodos(ctx, model.DefaultQuery(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, rec.All())
}

func TestValidationDetailList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","title"],"msg":"field required"},{"msg":"too short"}]}`))
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, newCreds(t, "tok"))
	_, err := client.CreateTodo(context.Background(), model.NewTodo{})
	require.Error(t, err)
	assert.Equal(t, "field required; too short", api.Detail(err))
}

func TestTodoEndpoints(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	_, token := fake.SeedUser(t, "dev@example.com", "secret1")
	client := api.NewClient(fake.URL, newCreds(t, token))
	ctx := context.Background()

	a, err := client.CreateTodo(ctx, model.NewTodo{Title: "a", Priority: model.PriorityLow})
	require.NoError(t, err)
	b, err := client.CreateTodo(ctx, model.NewTodo{Title: "b", Priority: model.PriorityHigh})
	require.NoError(t, err)

	a.Completed = true
	a, err = client.UpdateTodo(ctx, a)
	require.NoError(t, err)
	assert.True(t, a.Completed)

	res, err := client.ReorderTodos(ctx, []int{b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, "Todos reordered successfully", res.Message)

	page, err := client.ListTodos(ctx, model.DefaultQuery(10))
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, b.ID, page.Data[0].ID)

	res, err = client.BulkUpdate(ctx, []int{a.ID, b.ID}, model.BulkIncomplete)
	require.NoError(t, err)
	assert.Equal(t, "Updated 2 todos successfully", res.Message)
	assert.Len(t, res.UpdatedTodos, 2)

	require.NoError(t, client.DeleteTodo(ctx, a.ID))
	err = client.DeleteTodo(ctx, a.ID)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
}

func TestEventsUnsubscribe(t *testing.T) {
	events := api.NewEvents()
	calls := 0
	cancel := events.Subscribe(func(api.Invalidation) { calls++ })

	events.Publish(api.Invalidation{Reason: "unauthorized"})
	cancel()
	cancel()
	events.Publish(api.Invalidation{Reason: "unauthorized"})

	assert.Equal(t, 1, calls)
}
