package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// ErrNoLoggedInUser is the benign probe failure: asking the backend for the
// logged-in user when no session exists. Callers probing right after logout
// swallow this instead of surfacing it; the message matches the backend's
// wording on purpose.
var ErrNoLoggedInUser = lmserrors.SessionExpired("error fetching the logged in user")

// Ensure compile-time conformance to ports.
var (
	_ ports.Authenticator  = (*Client)(nil)
	_ ports.UserDirectory  = (*Client)(nil)
	_ ports.ProgressSource = (*Client)(nil)
)

// Login exchanges credentials for a backend session. The sid cookie the
// backend sets during login becomes the BackendRef used for every follow-up
// call on the user's behalf.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (ports.BackendRef, error) {
	if strings.TrimSpace(creds.Usr) == "" || creds.Pwd == "" {
		return ports.BackendRef{}, lmserrors.Validation("both identity and password are required")
	}

	hc, err := c.httpClient("")
	if err != nil {
		return ports.BackendRef{}, lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "build backend client")
	}

	payload, err := json.Marshal(map[string]string{"usr": creds.Usr, "pwd": creds.Pwd})
	if err != nil {
		return ports.BackendRef{}, lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "encode login payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+methodPath("login"), bytes.NewReader(payload))
	if err != nil {
		return ports.BackendRef{}, lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "create login request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return ports.BackendRef{}, lmserrors.Wrap(err, lmserrors.ErrCodeTimeout, "login timed out")
		}
		return ports.BackendRef{}, lmserrors.Wrap(err, lmserrors.ErrCodeNetwork, "login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.BackendRef{}, c.errorFromResponse(resp)
	}

	sid := c.sidFromJar(hc.Jar)
	if sid == "" {
		return ports.BackendRef{}, lmserrors.Internal("backend accepted login but set no session cookie")
	}

	ref := ports.BackendRef{SID: sid}
	identity, err := c.LoggedUser(ctx, ref)
	if err != nil {
		return ports.BackendRef{}, err
	}
	ref.Identity = identity
	return ref, nil
}

// LoggedUser asks the backend which user owns the session. A guest or
// cookieless session maps to ErrNoLoggedInUser.
func (c *Client) LoggedUser(ctx context.Context, ref ports.BackendRef) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.call(ctx, callParams{
		method: http.MethodGet,
		path:   methodPath("frappe.auth.get_logged_user"),
		sid:    ref.SID,
	}, &out)
	if err != nil {
		if lmserrors.IsSessionExpired(err) {
			return "", ErrNoLoggedInUser
		}
		return "", err
	}
	if out.Message == "" || strings.EqualFold(out.Message, "guest") {
		return "", ErrNoLoggedInUser
	}
	return out.Message, nil
}

// Logout invalidates the backend session. A session that is already gone is
// not an error.
func (c *Client) Logout(ctx context.Context, ref ports.BackendRef) error {
	if ref.SID == "" {
		return nil
	}
	err := c.call(ctx, callParams{
		method: http.MethodPost,
		path:   methodPath("logout"),
		sid:    ref.SID,
	}, nil)
	if err != nil && !lmserrors.IsSessionExpired(err) {
		return err
	}
	return nil
}

// FetchIdentity fetches the user document and maps it to the domain identity.
// The document must carry the canonical name field.
func (c *Client) FetchIdentity(ctx context.Context, ref ports.BackendRef) (domainauth.Identity, error) {
	var out struct {
		Data struct {
			Name     string `json:"name"`
			FullName string `json:"full_name"`
			Email    string `json:"email"`
		} `json:"data"`
	}
	err := c.call(ctx, callParams{
		method: http.MethodGet,
		path:   resourcePath("User", ref.Identity),
		sid:    ref.SID,
	}, &out)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if out.Data.Name == "" {
		return domainauth.Identity{}, lmserrors.Internal("user document has no canonical name")
	}
	email := out.Data.Email
	if email == "" {
		email = out.Data.Name
	}
	return domainauth.Identity{
		Name:     out.Data.Name,
		FullName: out.Data.FullName,
		Email:    email,
	}, nil
}
