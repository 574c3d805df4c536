package auth

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"gorm.io/gorm"
)

// Module provides authentication services.
type Module struct {
	db      *gorm.DB
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new auth module on top of a shared database handle.
// The service is built eagerly so dependent modules can be wired to it
// before the application starts.
func NewModule(db *gorm.DB) *Module {
	m := &Module{db: db}
	m.service = NewService(NewUserRepository(db), NewPasswordHasher(), NewJWTManager(loadJWTConfig()))
	return m
}

// Name returns the module name.
func (m *Module) Name() string { return "auth" }

// Start initializes the auth module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[auth] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get database connection: %v", err)}
	}
	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Service returns the auth service for dependent modules.
func (m *Module) Service() *Service { return m.service }

func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.SecretKey = secret
	}
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}
	if d := os.Getenv("JWT_ACCESS_TTL"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			config.AccessTokenDuration = parsed
		}
	}
	return config
}
