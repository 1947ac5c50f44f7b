package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outlay/internal/core"
)

// APIError is a non-2xx response from the server, carrying the decoded
// {"error": ...} message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the expense service. Requests carry the session's
// bearer token; any 401 response clears the session and fires the
// unauthorized hook before the error is returned.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	session        *Session
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// still wrapped with the auth round tripper.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUnauthorizedHook sets the callback fired when the server rejects
// the session, typically navigation back to the entry route.
func WithUnauthorizedHook(hook func()) Option {
	return func(c *Client) { c.onUnauthorized = hook }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    NewSession(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	// Copy so the caller's client is not mutated.
	hc := *c.httpClient
	hc.Transport = &authTransport{base: base, client: c}
	c.httpClient = &hc

	return c
}

// Session exposes the client's session state.
func (c *Client) Session() *Session {
	return c.session
}

// authTransport attaches the bearer token and watches for 401s.
type authTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.client.session.Token(); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.client.session.Clear()
		if t.client.onUnauthorized != nil {
			t.client.onUnauthorized()
		}
	}
	return resp, nil
}

// doJSON performs a request with an optional JSON body and decodes the
// response into out when it is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// wireExpense is the server's expense shape.
type wireExpense struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

func (w wireExpense) toExpense() core.Expense {
	return core.Expense{
		ID:          w.ID,
		UserID:      w.UserID,
		Amount:      core.Money{Cents: int64(w.Amount*100 + 0.5)},
		Category:    w.Category,
		Date:        w.Date,
		Description: w.Description,
	}
}
