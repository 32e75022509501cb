package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novellms/lms-gateway/config"
	"github.com/novellms/lms-gateway/internal/adapters/devauth"
	"github.com/novellms/lms-gateway/internal/adapters/frappe"
	"github.com/novellms/lms-gateway/internal/adapters/memstore"
	redisadapter "github.com/novellms/lms-gateway/internal/adapters/redis"
	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	"github.com/novellms/lms-gateway/internal/ports"
	"github.com/novellms/lms-gateway/internal/service"
)

// ServiceContainer holds the constructed service layer plus shared
// infrastructure handles that need closing on shutdown.
type ServiceContainer struct {
	Auth       *service.AuthService
	Progress   *service.ProgressService
	Navigation *service.NavigationService
	Resolver   *service.PermissionResolver

	// Redis is non-nil only when the config enables it.
	Redis *redis.Client
}

// Close releases infrastructure handles held by the container.
func (c *ServiceContainer) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}

// backendPorts bundles the four backend-facing ports one provider implements.
type backendPorts struct {
	auth      ports.Authenticator
	directory ports.UserDirectory
	roles     ports.RoleSource
	progress  ports.ProgressSource
}

// BuildServices wires adapters and services from configuration.
func BuildServices(cfg *config.AppConfig, logger *slog.Logger) (*ServiceContainer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	container := &ServiceContainer{}

	var (
		sessions  ports.SessionStore
		permCache ports.PermissionCache
	)
	if cfg.Redis.Enabled {
		client, redisErr := ConnectRedis(cfg.Redis, logger)
		if redisErr != nil {
			return nil, redisErr
		}
		container.Redis = client
		sessions = redisadapter.NewSessionStore(client)
		permCache = redisadapter.NewPermissionCache(client, redisadapter.PermissionCacheConfig{
			TTL: cfg.Auth.PermissionTTL,
		})
	} else {
		sessions = memstore.NewSessionStore(memstore.SessionStoreConfig{})
		permCache = memstore.NewPermissionCache()
	}

	container.Resolver = service.NewPermissionResolver(service.PermissionResolverOptions{
		Source: backend.roles,
		Cache:  permCache,
		TTL:    cfg.Auth.PermissionTTL,
	})
	container.Auth = service.NewAuthService(service.AuthServiceOptions{
		Backend:    backend.auth,
		Directory:  backend.directory,
		Resolver:   container.Resolver,
		Sessions:   sessions,
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
	})
	container.Progress = service.NewProgressService(service.ProgressServiceOptions{
		Source:    backend.progress,
		Directory: backend.directory,
		Logger:    logger,
	})
	container.Navigation = service.NewNavigationService(service.NavigationServiceOptions{})

	return container, nil
}

func buildBackend(cfg *config.AppConfig, logger *slog.Logger) (backendPorts, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		logger.Warn("using mock authentication, do not use in production",
			"identity", cfg.Auth.DevAuth.Identity)
		provider, err := devauth.NewProvider(devauth.Config{
			Identity: cfg.Auth.DevAuth.Identity,
			Password: cfg.Auth.DevAuth.Password,
			FullName: cfg.Auth.DevAuth.FullName,
			Role:     domainauth.ParseRole(cfg.Auth.DevAuth.Role),
		})
		if err != nil {
			return backendPorts{}, fmt.Errorf("build dev auth provider: %w", err)
		}
		return backendPorts{auth: provider, directory: provider, roles: provider, progress: provider}, nil

	default:
		client, err := frappe.NewClient(frappe.Config{
			BaseURL: cfg.Backend.BaseURL,
			Timeout: cfg.Backend.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return backendPorts{}, fmt.Errorf("build backend client: %w", err)
		}
		roles, err := frappe.NewRoleSource(client, frappe.RoleSourceConfig{
			RolePath: cfg.Backend.RolePath,
		})
		if err != nil {
			return backendPorts{}, fmt.Errorf("build role source: %w", err)
		}
		return backendPorts{auth: client, directory: client, roles: roles, progress: client}, nil
	}
}

// ConnectRedis opens and verifies a Redis connection.
func ConnectRedis(cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close redis client after failed ping", "error", cerr)
		}
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}
