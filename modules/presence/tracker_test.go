package presence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// recordingStatusWriter captures status writes for assertions.
type recordingStatusWriter struct {
	mu      sync.Mutex
	online  []string
	offline []string
	fail    bool
}

func (w *recordingStatusWriter) SetOnline(userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("database unavailable")
	}
	w.online = append(w.online, userID)
	return nil
}

func (w *recordingStatusWriter) SetOffline(userID string, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("database unavailable")
	}
	w.offline = append(w.offline, userID)
	return nil
}

func TestTracker_SingleTransitionPerUser(t *testing.T) {
	status := &recordingStatusWriter{}
	tracker := NewTracker(NewMemoryStore(), status)
	ctx := context.Background()

	// Two devices connect; only the first flips the user online.
	first, err := tracker.Connect(ctx, "user-1")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !first.WentOnline {
		t.Error("expected first connection to go online")
	}

	second, err := tracker.Connect(ctx, "user-1")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if second.WentOnline {
		t.Error("expected second connection to not transition")
	}

	// First disconnect leaves one device; only the last flips offline.
	tr, err := tracker.Disconnect(ctx, "user-1")
	if err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if tr.WentOffline {
		t.Error("expected no offline transition while a device remains")
	}

	tr, err = tracker.Disconnect(ctx, "user-1")
	if err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if !tr.WentOffline {
		t.Error("expected offline transition on last disconnect")
	}
	if tr.LastSeen.IsZero() {
		t.Error("expected last seen to be set on the offline transition")
	}

	if len(status.online) != 1 || len(status.offline) != 1 {
		t.Errorf("expected exactly one online and one offline write, got %d/%d",
			len(status.online), len(status.offline))
	}
}

func TestTracker_ConcurrentChurn(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), &recordingStatusWriter{})
	ctx := context.Background()

	const devices = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	onlineCount := 0

	wg.Add(devices)
	for i := 0; i < devices; i++ {
		go func() {
			defer wg.Done()
			tr, err := tracker.Connect(ctx, "user-1")
			if err != nil {
				t.Errorf("Connect() error = %v", err)
				return
			}
			if tr.WentOnline {
				mu.Lock()
				onlineCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if onlineCount != 1 {
		t.Errorf("expected exactly one online transition, got %d", onlineCount)
	}

	offlineCount := 0
	wg.Add(devices)
	for i := 0; i < devices; i++ {
		go func() {
			defer wg.Done()
			tr, err := tracker.Disconnect(ctx, "user-1")
			if err != nil {
				t.Errorf("Disconnect() error = %v", err)
				return
			}
			if tr.WentOffline {
				mu.Lock()
				offlineCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if offlineCount != 1 {
		t.Errorf("expected exactly one offline transition, got %d", offlineCount)
	}

	online, err := tracker.OnlineUsers(ctx)
	if err != nil {
		t.Fatalf("OnlineUsers() error = %v", err)
	}
	if len(online) != 0 {
		t.Errorf("expected empty online set, got %v", online)
	}
}

func TestTracker_SnapshotExcludesSelf(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), &recordingStatusWriter{})
	ctx := context.Background()

	tr, err := tracker.Connect(ctx, "alice")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if len(tr.OnlineUsers) != 0 {
		t.Errorf("expected empty snapshot for the first user, got %v", tr.OnlineUsers)
	}

	tr, err = tracker.Connect(ctx, "bob")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if len(tr.OnlineUsers) != 1 || tr.OnlineUsers[0] != "alice" {
		t.Errorf("expected snapshot [alice], got %v", tr.OnlineUsers)
	}
}

func TestTracker_StatusWriteFailureTolerated(t *testing.T) {
	status := &recordingStatusWriter{fail: true}
	tracker := NewTracker(NewMemoryStore(), status)
	ctx := context.Background()

	tr, err := tracker.Connect(ctx, "user-1")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !tr.WentOnline {
		t.Error("expected online transition despite failed status write")
	}

	tr, err = tracker.Disconnect(ctx, "user-1")
	if err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if !tr.WentOffline {
		t.Error("expected offline transition despite failed status write")
	}
}

func TestTracker_FilterOnline(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), &recordingStatusWriter{})
	ctx := context.Background()

	for _, id := range []string{"alice", "bob"} {
		if _, err := tracker.Connect(ctx, id); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	}

	online, err := tracker.FilterOnline(ctx, []string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("FilterOnline() error = %v", err)
	}
	sort.Strings(online)
	if len(online) != 2 || online[0] != "alice" || online[1] != "bob" {
		t.Errorf("expected [alice bob], got %v", online)
	}
}

func TestMemoryStore_DisconnectUnknownUser(t *testing.T) {
	store := NewMemoryStore()

	count, err := store.Disconnect(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
}
