package upload

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
)

// Module owns the attachment storage backend.
type Module struct {
	service *Service
	store   ObjectStore
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the upload module over a prepared object store.
func NewModule(store ObjectStore, publicURL string) *Module {
	return &Module{
		service: NewService(store, publicURL),
		store:   store,
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "upload" }

// Start initializes the upload module.
func (m *Module) Start(ctx context.Context) error {
	if js, ok := m.store.(*JetStreamStore); ok {
		if err := js.Init(ctx); err != nil {
			return err
		}
	}
	log.Println("[upload] Module started")
	return nil
}

// Stop releases the storage backend.
func (m *Module) Stop(_ context.Context) error {
	if js, ok := m.store.(*JetStreamStore); ok {
		js.Close()
	}
	log.Println("[upload] Module stopped")
	return nil
}

// Health reports the storage backend status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if js, ok := m.store.(*JetStreamStore); ok && !js.IsConnected() {
		return mono.HealthStatus{Healthy: false, Message: "object store disconnected"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Service returns the upload service.
func (m *Module) Service() *Service { return m.service }
