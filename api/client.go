// Package api is a typed client for the CampusBites backend REST API
// (base path /api/v1). Non-2xx responses carry a {"detail": ...} body;
// detail may be a string or a structured object, both are flattened to a
// single message with a per-call fallback.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
	log      *logrus.Logger
	cookie   string
}

func New(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(),
		log:      log,
	}
}

// WithCookie returns a shallow copy of the client that sends the given
// session cookie on every request.
func (c *Client) WithCookie(cookie string) *Client {
	cp := *c
	cp.cookie = cookie
	return &cp
}

// Error is a backend error response.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %d: %s", e.StatusCode, e.Detail)
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// do performs one request. body (if non-nil) is validated then JSON-encoded;
// out (if non-nil) receives the decoded 2xx response. fallback is the detail
// used when the error body cannot be parsed.
func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		if err := c.validate.Struct(body); err != nil {
			return fmt.Errorf("validate %s %s: %w", method, path, err)
		}
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Detail: decodeDetail(raw, fallback)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// postForCookie POSTs body and returns the Set-Cookie header alongside the
// decoded response. Used by login, where the session cookie matters.
func (c *Client) postForCookie(ctx context.Context, path string, body, out any) (string, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode POST %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("build POST %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read POST %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{StatusCode: resp.StatusCode, Detail: decodeDetail(raw, "Login failed")}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return "", fmt.Errorf("decode POST %s: %w", path, err)
		}
	}

	var cookie string
	for _, ck := range resp.Cookies() {
		cookie = ck.Name + "=" + ck.Value
	}
	return cookie, nil
}

// decodeDetail flattens an error body's detail field. Validation errors
// (e.g. 422s) can carry an object or array instead of a string.
func decodeDetail(raw []byte, fallback string) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil && s != "" {
		return s
	}
	return string(body.Detail)
}
