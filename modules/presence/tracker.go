package presence

import (
	"context"
	"log/slog"
	"time"
)

// StatusWriter persists a user's online/offline status. The user
// repository implements it.
type StatusWriter interface {
	SetOnline(userID string) error
	SetOffline(userID string, lastSeen time.Time) error
}

// Transition describes what a connect or disconnect changed.
type Transition struct {
	// WentOnline is true when the connect moved the user from zero to one
	// connection.
	WentOnline bool
	// WentOffline is true when the disconnect closed the user's last
	// connection.
	WentOffline bool
	// LastSeen is set on an offline transition.
	LastSeen time.Time
	// OnlineUsers is the snapshot handed to a new connection, excluding
	// the connecting user's own id.
	OnlineUsers []string
}

// Tracker turns raw connection counts into presence transitions and keeps
// the persisted status in sync. Status writes that fail are logged and
// swallowed: the in-memory count remains the source of truth for
// broadcasts.
type Tracker struct {
	store  Store
	status StatusWriter
	logger *slog.Logger
}

// NewTracker creates a Tracker over a connection-count store.
func NewTracker(store Store, status StatusWriter) *Tracker {
	return &Tracker{store: store, status: status, logger: slog.Default()}
}

// Connect registers one more connection for the user. On a 0->1
// transition the persisted status flips to online (last-seen untouched).
func (t *Tracker) Connect(ctx context.Context, userID string) (Transition, error) {
	count, err := t.store.Connect(ctx, userID)
	if err != nil {
		return Transition{}, err
	}

	tr := Transition{WentOnline: count == 1}
	if tr.WentOnline && t.status != nil {
		if err := t.status.SetOnline(userID); err != nil {
			t.logger.Error("failed to persist online status", "userID", userID, "error", err)
		}
	}

	online, err := t.store.OnlineUsers(ctx)
	if err != nil {
		return Transition{}, err
	}
	tr.OnlineUsers = make([]string, 0, len(online))
	for _, id := range online {
		if id != userID {
			tr.OnlineUsers = append(tr.OnlineUsers, id)
		}
	}
	return tr, nil
}

// Disconnect unregisters one connection. When the last one closes the
// entry is removed and the persisted status flips to offline with a fresh
// last-seen timestamp.
func (t *Tracker) Disconnect(ctx context.Context, userID string) (Transition, error) {
	count, err := t.store.Disconnect(ctx, userID)
	if err != nil {
		return Transition{}, err
	}
	if count > 0 {
		return Transition{}, nil
	}

	tr := Transition{WentOffline: true, LastSeen: time.Now()}
	if t.status != nil {
		if err := t.status.SetOffline(userID, tr.LastSeen); err != nil {
			t.logger.Error("failed to persist offline status", "userID", userID, "error", err)
		}
	}
	return tr, nil
}

// OnlineUsers returns the current online snapshot.
func (t *Tracker) OnlineUsers(ctx context.Context) ([]string, error) {
	return t.store.OnlineUsers(ctx)
}

// FilterOnline returns the subset of userIDs that are currently online.
func (t *Tracker) FilterOnline(ctx context.Context, userIDs []string) ([]string, error) {
	online := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		ok, err := t.store.IsOnline(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			online = append(online, id)
		}
	}
	return online, nil
}
