// Package apiclient is the authenticated REST client for the Academy
// backend. Every call attaches the session's bearer token; a 401 triggers
// exactly one refresh-and-retry cycle, and a second 401 (or a failed
// refresh) surfaces as a session-expired error and forces logout.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	clienterrors "github.com/aiacademy/academy-client/internal/errors"
)

const defaultTimeout = 30 * time.Second

// SessionSource is the slice of the session store the client consults.
type SessionSource interface {
	Token() (string, bool)
	Refresh(ctx context.Context) (bool, error)
	Logout(ctx context.Context)
}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Client calls the Academy backend on behalf of the current session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionSource
}

// Option modifies a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Client against the given base URL.
func New(baseURL string, sess SessionSource, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[apiclient.New] base URL is required")
	}
	if sess == nil {
		return nil, errors.New("[apiclient.New] session source is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    sess,
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// Do performs an authenticated request. body is JSON-encoded when non-nil;
// the response is decoded into out when non-nil. On a 401 it refreshes the
// session and retries once; a second 401 or a failed refresh ends the
// session.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.Do] Marshal")
		}
		payload = encoded
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)

		refreshed, refreshErr := c.session.Refresh(ctx)
		if refreshErr != nil || !refreshed {
			c.session.Logout(ctx)
			return errors.Wrap(clienterrors.ErrSessionExpired, "refresh failed")
		}

		resp, err = c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.session.Logout(ctx)
			return errors.Wrap(clienterrors.ErrSessionExpired, "still unauthorized after refresh")
		}
	}

	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.send] NewRequest")
	}

	req.Header.Set("Content-Type", "application/json")
	if tok, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(clienterrors.ErrNetwork, err.Error())
	}
	return resp, nil
}

// decode reads the response, mapping non-2xx statuses to APIError and
// tolerating empty or non-JSON success bodies the way the web client's JSON
// helper did.
func decode(resp *http.Response, out interface{}) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("response body close failed")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(clienterrors.ErrNetwork, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Debug().Err(err).Msg("undecodable response body")
		return nil
	}
	return nil
}

func errorMessage(data []byte) string {
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Detail != "" {
		return body.Detail
	}
	return body.Message
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
