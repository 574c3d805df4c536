package presence

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"

	"github.com/Keshujangid/Chat-app/events"
)

// Module wraps the tracker and publishes presence transition events for
// the realtime module to broadcast.
type Module struct {
	tracker *Tracker
	bus     mono.EventBus
	logger  *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a presence module over an injectable connection-count
// store. Pass a MemoryStore for single-process deployments or a
// RedisStore to share presence across processes.
func NewModule(store Store, status StatusWriter) *Module {
	return &Module{
		tracker: NewTracker(store, status),
		logger:  slog.Default(),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "presence" }

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) { m.bus = bus }

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserOnlineV1.ToBase(),
		events.UserOfflineV1.ToBase(),
	}
}

// Start initializes the presence module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[presence] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[presence] Module stopped")
	return nil
}

// Health reports the module status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	online, err := m.tracker.OnlineUsers(ctx)
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: err.Error()}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"online_users": len(online)},
	}
}

// Tracker returns the underlying tracker.
func (m *Module) Tracker() *Tracker { return m.tracker }

// HandleConnect registers a new authenticated connection and returns the
// online snapshot for it. On a 0->1 transition a UserOnline event is
// published; connID is carried so the broadcast can skip the connection
// that caused it.
func (m *Module) HandleConnect(ctx context.Context, userID, connID string) ([]string, error) {
	tr, err := m.tracker.Connect(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tr.WentOnline && m.bus != nil {
		event := events.UserOnlineEvent{UserID: userID, ConnID: connID, Timestamp: time.Now()}
		if err := events.UserOnlineV1.Publish(m.bus, event, nil); err != nil {
			m.logger.Warn("failed to publish UserOnline event", "userID", userID, "error", err)
		}
	}
	return tr.OnlineUsers, nil
}

// HandleDisconnect unregisters a connection. When the user's last
// connection closes a UserOffline event is published to every client,
// other sessions of the same user included.
func (m *Module) HandleDisconnect(ctx context.Context, userID string) {
	tr, err := m.tracker.Disconnect(ctx, userID)
	if err != nil {
		m.logger.Error("presence disconnect failed", "userID", userID, "error", err)
		return
	}
	if tr.WentOffline && m.bus != nil {
		event := events.UserOfflineEvent{UserID: userID, LastSeen: tr.LastSeen}
		if err := events.UserOfflineV1.Publish(m.bus, event, nil); err != nil {
			m.logger.Warn("failed to publish UserOffline event", "userID", userID, "error", err)
		}
	}
}
