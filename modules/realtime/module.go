// Package realtime delivers chat and presence events to connected
// websocket clients and dispatches inbound socket frames.
package realtime

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/Keshujangid/Chat-app/events"
	"github.com/Keshujangid/Chat-app/modules/chat"
	"github.com/Keshujangid/Chat-app/modules/presence"
)

// Module consumes chat and presence events and fans them out through the
// hub. It never emits events of its own.
type Module struct {
	hub      *Hub
	handlers *Handlers
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)

// NewModule creates the realtime module over the chat and presence
// modules it delivers for.
func NewModule(chatService *chat.Service, presenceModule *presence.Module) *Module {
	hub := NewHub()
	return &Module{
		hub:      hub,
		handlers: NewHandlers(hub, chatService, presenceModule),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "realtime" }

// Start initializes the realtime module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[realtime] Module started")
	return nil
}

// Stop closes every open connection.
func (m *Module) Stop(_ context.Context) error {
	m.hub.CloseAll()
	log.Println("[realtime] Module stopped")
	return nil
}

// Hub returns the connection hub.
func (m *Module) Hub() *Hub { return m.hub }

// Handlers returns the websocket connection handlers for the HTTP layer
// to mount.
func (m *Module) Handlers() *Handlers { return m.handlers }

// RegisterEventConsumers subscribes to message and presence events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageCreatedV1, m.handleMessageCreated, m); err != nil {
		return fmt.Errorf("failed to register MessageCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserOnlineV1, m.handleUserOnline, m); err != nil {
		return fmt.Errorf("failed to register UserOnline consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserOfflineV1, m.handleUserOffline, m); err != nil {
		return fmt.Errorf("failed to register UserOffline consumer: %w", err)
	}

	log.Println("[realtime] Registered event consumers: MessageCreated, UserOnline, UserOffline")
	return nil
}

// handleMessageCreated pushes a persisted message to the conversation
// room. The sender's connection is excluded: it already received the
// message in its ack.
func (m *Module) handleMessageCreated(_ context.Context, event events.MessageCreatedEvent, _ *mono.Msg) error {
	m.hub.BroadcastToRoom(roomKey(event.ConversationID), EventMessageNew, event.Message, event.SenderConnID)
	return nil
}

// handleUserOnline announces a user's first connection to every other
// client, the user's other devices included.
func (m *Module) handleUserOnline(_ context.Context, event events.UserOnlineEvent, _ *mono.Msg) error {
	m.hub.BroadcastAll(EventUserOnline, PresenceOnlinePayload{UserID: event.UserID}, event.ConnID)
	return nil
}

// handleUserOffline announces that a user's last connection closed.
func (m *Module) handleUserOffline(_ context.Context, event events.UserOfflineEvent, _ *mono.Msg) error {
	m.hub.BroadcastAll(EventUserOffline, PresenceOfflinePayload{
		UserID:   event.UserID,
		LastSeen: event.LastSeen,
	}, "")
	return nil
}
