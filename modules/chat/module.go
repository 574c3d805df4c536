package chat

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
	"gorm.io/gorm"

	"github.com/Keshujangid/Chat-app/events"
)

// Module owns the conversation, friendship and message services and emits
// MessageCreated events for the realtime fan-out.
type Module struct {
	db      *gorm.DB
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)

// NewModule creates a new chat module on top of a shared database handle.
func NewModule(db *gorm.DB) *Module {
	m := &Module{db: db}
	m.service = NewService(NewRepository(db))
	return m
}

// Name returns the module name.
func (m *Module) Name() string { return "chat" }

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageCreatedV1.ToBase(),
	}
}

// Start initializes the chat module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[chat] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[chat] Module stopped")
	return nil
}

// Service returns the chat service for dependent modules.
func (m *Module) Service() *Service { return m.service }
