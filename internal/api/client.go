// Package api is the authenticated request gateway for the todo API. Every
// call made through Client carries the cached bearer token, and failures
// are classified into user notifications and forced logouts.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/logging"
	"github.com/nhle/todoctl/internal/notify"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// Messages shown by the gateway for each failure class.
const (
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgForbidden      = "You do not have permission to perform this action."
	MsgNotFound       = "The requested resource was not found."
	MsgServerError    = "A server error occurred. Please try again later."
	MsgTimeout        = "The request timed out."
	MsgNetwork        = "A network error occurred. Please check your connection."
)

// Client is the HTTP client for the todo API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      credential.Store
	events     *Events
	notifier   notify.Notifier
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithEvents shares an existing session-invalidated bus.
func WithEvents(e *Events) Option {
	return func(c *Client) { c.events = e }
}

// WithNotifier sets where classified failures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = notify.OrDiscard(n) }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = logging.Component(l, "api") }
}

// NewClient creates a gateway for the API at baseURL (without the /api
// prefix). creds supplies the bearer token and is cleared on a 401.
func NewClient(baseURL string, creds credential.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		creds:      creds,
		events:     NewEvents(),
		notifier:   notify.Discard,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the session-invalidated bus.
func (c *Client) Events() *Events { return c.events }

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// request describes one call.
type request struct {
	method string
	path   string
	query  url.Values

	// body is JSON-encoded unless form is set.
	body any
	form url.Values

	// token, when set, is used instead of the cached one.
	token string

	// intercept applies the gateway's failure classification.
	intercept bool
}

// do performs an intercepted call with JSON in and out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	return c.send(ctx, request{
		method:    method,
		path:      path,
		query:     query,
		body:      body,
		intercept: true,
	}, result)
}

func (c *Client) send(ctx context.Context, r request, result any) error {
	err := c.roundTrip(ctx, r, result)
	if err != nil && r.intercept {
		c.classify(err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request, result any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		bodyReader = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token := r.token
	if token == "" && r.intercept && c.creds != nil {
		cached, err := c.creds.Token()
		if err != nil {
			c.log.Warn("reading cached token", "err", err)
		}
		token = cached
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			"method", r.method, "path", r.path, "request_id", requestID, "err", err)
		return &TransportError{
			Method:  r.method,
			Path:    r.path,
			Timeout: isTimeout(err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: r.method, Path: r.path, Timeout: isTimeout(err), Err: err}
	}

	c.log.Debug("request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"dur_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Method:     r.method,
			Path:       r.path,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(respBody),
		}
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify reports err to the user. The error itself is left for the caller.
func (c *Client) classify(err error) {
	var apiErr *Error
	var tErr *TransportError

	switch {
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			if c.creds != nil {
				if cerr := c.creds.Clear(); cerr != nil {
					c.log.Error("clearing session after 401", "err", cerr)
				}
			}
			c.events.Publish(Invalidation{
				Method: apiErr.Method,
				Path:   apiErr.Path,
				Reason: "unauthorized",
			})
			c.notifier.Notify(notify.KindError, MsgSessionExpired)
		case http.StatusForbidden:
			c.notifier.Notify(notify.KindError, MsgForbidden)
		case http.StatusNotFound:
			c.notifier.Notify(notify.KindError, MsgNotFound)
		case http.StatusInternalServerError:
			c.notifier.Notify(notify.KindError, MsgServerError)
		}

	case errors.As(err, &tErr):
		if errors.Is(tErr.Err, context.Canceled) {
			return
		}
		if tErr.Timeout {
			c.notifier.Notify(notify.KindError, MsgTimeout)
		} else {
			c.notifier.Notify(notify.KindError, MsgNetwork)
		}
	}
}
