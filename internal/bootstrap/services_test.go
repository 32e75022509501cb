package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novellms/lms-gateway/config"
	"github.com/novellms/lms-gateway/internal/ports"
)

func mockConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Auth.Mode = config.AuthModeMock
	cfg.Auth.DevAuth.Identity = "dev@example.com"
	cfg.Auth.DevAuth.Password = "dev"
	cfg.Auth.DevAuth.Role = "admin"
	cfg.Backend.BaseURL = "http://localhost:8000"
	cfg.Sanitize()
	return cfg
}

func TestBuildServices_MockMode(t *testing.T) {
	container, err := BuildServices(mockConfig(), nil)
	require.NoError(t, err)
	defer container.Close()

	require.NotNil(t, container.Auth)
	require.NotNil(t, container.Progress)
	require.NotNil(t, container.Navigation)
	assert.Nil(t, container.Redis)

	// The dev provider accepts its configured credentials end to end.
	result, err := container.Auth.Login(context.Background(), ports.Credentials{
		Usr: "dev@example.com",
		Pwd: "dev",
	})
	require.NoError(t, err)
	assert.Equal(t, "/", result.RedirectTo)
}

func TestBuildServices_FrappeModeRequiresBaseURL(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Auth.Mode = config.AuthModeFrappe
	cfg.Sanitize()

	_, err := BuildServices(cfg, nil)
	require.Error(t, err)
}

func TestBuildServices_InvalidRolePath(t *testing.T) {
	cfg := mockConfig()
	cfg.Auth.Mode = config.AuthModeFrappe
	cfg.Backend.RolePath = "][invalid"

	_, err := BuildServices(cfg, nil)
	require.Error(t, err)
}
