package frappe

// Package frappe is the HTTP adapter for the remote Frappe/LMS document
// store. Authentication is cookie-based: a login sets a sid cookie and every
// follow-up call rides on it, mirroring a browser's credentials-include
// fetch. The adapter owns request timeouts so a hung backend call surfaces as
// a retryable timeout instead of waiting forever.

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
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	lmserrors "github.com/novellms/lms-gateway/internal/errors"
)

const (
	sidCookieName  = "sid"
	defaultTimeout = 20 * time.Second
)

// Config groups Client constructor options.
type Config struct {
	// BaseURL is the backend root, e.g. "https://lms.example.com".
	BaseURL string
	// Timeout bounds every backend call. Zero falls back to 20s.
	Timeout time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client talks to one Frappe backend. It is safe for concurrent use; per-user
// state lives in the session cookie passed with each call, not in the client.
type Client struct {
	baseURL   *url.URL
	transport http.RoundTripper
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClient builds a Client for the configured backend.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   base,
		transport: transport,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// newJar builds a browser-grade cookie jar. The public suffix list keeps
// cookie scoping rules identical to what the front end sees.
func newJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// httpClient builds a per-session HTTP client around the shared transport.
// sid seeds the jar when resuming an existing backend session; empty sid
// starts a clean jar for a fresh login.
func (c *Client) httpClient(sid string) (*http.Client, error) {
	jar, err := newJar()
	if err != nil {
		return nil, fmt.Errorf("new cookie jar: %w", err)
	}
	if sid != "" {
		jar.SetCookies(c.baseURL, []*http.Cookie{{Name: sidCookieName, Value: sid}})
	}
	return &http.Client{
		Transport: c.transport,
		Jar:       jar,
		Timeout:   c.timeout,
	}, nil
}

// callParams groups the pieces of one backend call.
type callParams struct {
	method string
	path   string
	query  url.Values
	body   any
	sid    string
}

// call performs one backend request and decodes the JSON response into out
// (when out is non-nil). Transport failures map to the network error code and
// deadline hits to timeout, so callers never inspect raw transport errors.
func (c *Client) call(ctx context.Context, p callParams, out any) error {
	hc, err := c.httpClient(p.sid)
	if err != nil {
		return lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "build backend client")
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + p.path
	if p.query != nil {
		u.RawQuery = p.query.Encode()
	}

	var bodyReader io.Reader
	if p.body != nil {
		data, marshalErr := json.Marshal(p.body)
		if marshalErr != nil {
			return lmserrors.Wrap(marshalErr, lmserrors.ErrCodeInternal, "encode request body")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, u.String(), bodyReader)
	if err != nil {
		return lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "create backend request")
	}
	req.Header.Set("Accept", "application/json")
	if p.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return lmserrors.Wrap(err, lmserrors.ErrCodeTimeout, "backend call timed out")
		}
		return lmserrors.Wrap(err, lmserrors.ErrCodeNetwork, "backend call failed")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return lmserrors.Wrap(decodeErr, lmserrors.ErrCodeInternal, "decode backend response")
	}
	return nil
}

// errorFromResponse maps a non-2xx backend response to an AppError. Frappe
// error payloads carry a human-readable "message" field.
func (c *Client) errorFromResponse(resp *http.Response) error {
	msg := backendMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if msg == "" {
			msg = "login rejected"
		}
		return lmserrors.InvalidCredentials(msg)
	case http.StatusForbidden:
		if msg == "" {
			msg = "session is not permitted to access this resource"
		}
		return lmserrors.SessionExpired(msg)
	case http.StatusNotFound:
		if msg == "" {
			msg = "document not found"
		}
		return lmserrors.NotFound(msg)
	default:
		if msg == "" {
			msg = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		return lmserrors.Network(msg)
	}
}

func backendMessage(body io.Reader) string {
	var payload struct {
		Message   string `json:"message"`
		Exception string `json:"exception"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 1<<16)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Exception
}

// sidFromJar pulls the backend session cookie out of a jar after login.
func (c *Client) sidFromJar(jar http.CookieJar) string {
	for _, ck := range jar.Cookies(c.baseURL) {
		if ck.Name == sidCookieName {
			return ck.Value
		}
	}
	return ""
}

// resourcePath builds /api/resource/{doctype}/{name} with proper escaping;
// doctypes contain spaces ("LMS Users").
func resourcePath(doctype, name string) string {
	p := "/api/resource/" + url.PathEscape(doctype)
	if name != "" {
		p += "/" + url.PathEscape(name)
	}
	return p
}

func methodPath(method string) string {
	return "/api/method/" + method
}
