package config

import "time"

// BackendConfig contains LMS document store connection configuration.
type BackendConfig struct {
	// BaseURL is the root of the document store's REST surface.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds every backend call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"20s"`

	// RolePath is the JMESPath expression extracting the role class from
	// the permissions endpoint response.
	RolePath string `env:"ROLE_PATH" envDefault:"message.user_type"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	// Clamp timeout to a sane window; a zero timeout would hang forever.
	if b.Timeout < 5*time.Second {
		b.Timeout = 5 * time.Second
	}
	if b.Timeout > 60*time.Second {
		b.Timeout = 60 * time.Second
	}
}
