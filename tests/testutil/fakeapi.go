package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/todoctl/internal/devserver"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/store"
)

// RecordedRequest is a request seen by the fake API.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type injected struct {
	method, path string
	status       int
	detail       string
	delay        time.Duration
	gate         chan struct{}
}

func (i injected) matches(r *http.Request) bool {
	return i.method == r.Method && i.path == r.URL.Path
}

// FakeAPI is the dev server on an httptest listener with a request log and
// failure injection.
type FakeAPI struct {
	*httptest.Server
	Store *store.SQLiteStore

	mu       sync.Mutex
	requests []RecordedRequest
	pending  []injected
}

// NewFakeAPI starts a fake API over a fresh in-memory store. It is shut
// down when the test completes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	st := NewTestStore(t)
	f := &FakeAPI{Store: st}
	api := devserver.New(st, devserver.WithPasswordCost(bcrypt.MinCost))

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		inj, ok := f.take(r)
		f.mu.Unlock()

		if ok {
			if inj.gate != nil {
				<-inj.gate
			}
			if inj.delay > 0 {
				select {
				case <-time.After(inj.delay):
				case <-r.Context().Done():
					return
				}
			}
			if inj.status != 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(inj.status)
				_, _ = io.WriteString(w, `{"detail":"`+inj.detail+`"}`)
				return
			}
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)

	return f
}

// take removes and returns the first injection matching r. Caller holds mu.
func (f *FakeAPI) take(r *http.Request) (injected, bool) {
	for i, inj := range f.pending {
		if inj.matches(r) {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return inj, true
		}
	}
	return injected{}, false
}

func (f *FakeAPI) inject(inj injected) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, inj)
}

// FailNext makes the next method+path request answer status with detail.
func (f *FakeAPI) FailNext(method, path string, status int, detail string) {
	f.inject(injected{method: method, path: path, status: status, detail: detail})
}

// DelayNext holds the next method+path request for d before serving it.
func (f *FakeAPI) DelayNext(method, path string, d time.Duration) {
	f.inject(injected{method: method, path: path, delay: d})
}

// HoldNext parks the next method+path request until release is called.
func (f *FakeAPI) HoldNext(method, path string) (release func()) {
	gate := make(chan struct{})
	f.inject(injected{method: method, path: path, gate: gate})
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Requests returns a copy of the request log.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsTo returns the logged requests for method+path.
func (f *FakeAPI) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests clears the request log.
func (f *FakeAPI) ResetRequests() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

// SeedUser creates an account and returns it with a valid access token.
func (f *FakeAPI) SeedUser(t *testing.T, email, password string) (model.User, string) {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u, err := f.Store.CreateUser(ctx, email, string(hash))
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	token, err := f.Store.IssueToken(ctx, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return u, token
}

// SeedTodos creates one todo per title for userID, in order.
func (f *FakeAPI) SeedTodos(t *testing.T, userID int, titles ...string) []model.Todo {
	t.Helper()

	out := make([]model.Todo, 0, len(titles))
	for _, title := range titles {
		todo, err := f.Store.CreateTodo(context.Background(), userID, model.NewTodo{
			Title:    title,
			Priority: model.PriorityMedium,
		})
		if err != nil {
			t.Fatalf("seeding todo %q: %v", title, err)
		}
		out = append(out, todo)
	}
	return out
}
