package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeFrappe authenticates against the LMS document store.
	AuthModeFrappe AuthMode = "frappe"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "frappe", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: frappe, mock)", v)
	}
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Identity string `env:"IDENTITY"  envDefault:"dev@example.com"`
	Password string `env:"PASSWORD"  envDefault:"dev"`
	FullName string `env:"FULL_NAME" envDefault:"Dev User"`
	Role     string `env:"ROLE"      envDefault:"admin"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"frappe"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionTTL is the lifetime of a gateway session.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`

	// PermissionTTL is how long a resolved role is trusted before the
	// backend is asked again.
	PermissionTTL time.Duration `env:"PERMISSION_TTL" envDefault:"5m"`

	// LoginRatePerMinute caps login attempts per identity.
	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`

	// LoginRateBurst is the burst allowance on top of the steady rate.
	LoginRateBurst int `env:"LOGIN_RATE_BURST" envDefault:"5"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = 8 * time.Hour
	}
	if a.PermissionTTL <= 0 {
		a.PermissionTTL = 5 * time.Minute
	}
	if a.LoginRatePerMinute < 1 {
		a.LoginRatePerMinute = 10
	}
	if a.LoginRateBurst < 1 {
		a.LoginRateBurst = 5
	}
}
