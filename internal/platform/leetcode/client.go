// Package leetcode talks to the LeetCode GraphQL and submission endpoints.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autosolver/internal/common"
)

const (
	DefaultBaseURL   = "https://leetcode.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0"
)

// Error is returned for failed LeetCode calls.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("leetcode %s: %s", e.Op, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("leetcode %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Auth is a LeetCode browser session. A zero Auth makes anonymous calls.
type Auth struct {
	Session string
	CSRF    string
}

func (a Auth) set(req *http.Request) {
	if a.Session == "" || a.CSRF == "" {
		return
	}
	req.Header.Set("Cookie", fmt.Sprintf("LEETCODE_SESSION=%s; csrftoken=%s;", a.Session, a.CSRF))
	req.Header.Set("X-CSRFToken", a.CSRF)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) graphql(ctx context.Context, op, query string, vars map[string]any, auth Auth, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return &Error{Op: op, Message: "encode request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return &Error{Op: op, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	auth.set(req)

	raw, err := c.do(op, req)
	if err != nil {
		return err
	}
	var resp graphQLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &Error{Op: op, Message: "decode response", Cause: err}
	}
	if len(resp.Errors) > 0 {
		return &Error{Op: op, Message: resp.Errors[0].Message}
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return &Error{Op: op, Message: "decode data", Cause: err}
	}
	return nil
}

func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: "read body", Cause: err}
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: "session rejected", Cause: common.ErrSessionInvalid}
	case resp.StatusCode >= 300:
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: snippet(raw)}
	}
	return raw, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
