package devauth

// Package devauth provides a simple, config-driven backend stand-in for
// local development. It accepts one fixed credential pair and answers role
// and progress lookups from static config, so the gateway can run without a
// reachable document store.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	"github.com/novellms/lms-gateway/internal/domain/progress"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// Config controls the dev provider behavior.
type Config struct {
	Identity string
	Password string
	Role     domainauth.Role
	FullName string
}

// Provider implements the backend ports against static config.
type Provider struct {
	identity string
	password string
	role     domainauth.Role
	fullName string
}

// Ensure compile-time conformance to ports.
var (
	_ ports.Authenticator  = (*Provider)(nil)
	_ ports.UserDirectory  = (*Provider)(nil)
	_ ports.RoleSource     = (*Provider)(nil)
	_ ports.ProgressSource = (*Provider)(nil)
)

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Identity == "" {
		return nil, errors.New("dev auth: Identity is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("dev auth: Password is required")
	}
	role := cfg.Role
	if role == "" {
		role = domainauth.RoleAdmin
	}
	fullName := cfg.FullName
	if fullName == "" {
		fullName = "Dev User"
	}
	return &Provider{
		identity: cfg.Identity,
		password: cfg.Password,
		role:     role,
		fullName: fullName,
	}, nil
}

// Login accepts only the configured credential pair.
func (p *Provider) Login(_ context.Context, creds ports.Credentials) (ports.BackendRef, error) {
	if creds.Usr != p.identity || creds.Pwd != p.password {
		return ports.BackendRef{}, lmserrors.InvalidCredentials("invalid login credentials")
	}
	sid, err := randomString(24)
	if err != nil {
		return ports.BackendRef{}, fmt.Errorf("generate dev sid: %w", err)
	}
	return ports.BackendRef{SID: sid, Identity: p.identity}, nil
}

func (p *Provider) Logout(context.Context, ports.BackendRef) error { return nil }

func (p *Provider) FetchIdentity(_ context.Context, ref ports.BackendRef) (domainauth.Identity, error) {
	if ref.Identity != p.identity {
		return domainauth.Identity{}, lmserrors.NotFoundf("user %q not found", ref.Identity)
	}
	return domainauth.Identity{Name: p.identity, FullName: p.fullName, Email: p.identity}, nil
}

func (p *Provider) FetchRole(_ context.Context, ref ports.BackendRef) (domainauth.Role, error) {
	if ref.Identity != p.identity {
		return domainauth.RoleNone, nil
	}
	return p.role, nil
}

// FetchMemberModules returns a small fixed trail of modules so the dashboard
// has something to render in development.
func (p *Provider) FetchMemberModules(context.Context, ports.BackendRef) ([]progress.Module, error) {
	half := 0.5
	full := 100.0
	return []progress.Module{
		{Name: "intro", Title: "Getting Started", Snapshot: &progress.Snapshot{Status: progress.StatusCompleted, OverallProgress: &full}},
		{Name: "authoring", Title: "Authoring Modules", Snapshot: &progress.Snapshot{Status: progress.StatusInProgress, Progress: &half}},
		{Name: "quizzes", Title: "Quizzes and Q&A"},
	}, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		return s, nil
	}
	return s[:n], nil
}
