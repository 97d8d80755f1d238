package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker keeps heartbeats in process memory. It backs presence when
// Redis is not configured; state is per-process and lost on restart.
type MemoryTracker struct {
	mu    sync.Mutex
	beats map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		beats: make(map[string]time.Time),
		ttl:   HeartbeatTTL,
		now:   time.Now,
	}
}

func (t *MemoryTracker) Heartbeat(_ context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.beats[userID] = t.now()
	return nil
}

func (t *MemoryTracker) IsOnline(_ context.Context, userID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	beat, ok := t.beats[userID]
	if !ok {
		return false, nil
	}
	if t.now().Sub(beat) > t.ttl {
		delete(t.beats, userID)
		return false, nil
	}
	return true, nil
}

func (t *MemoryTracker) OnlineUsers(_ context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	ids := make([]string, 0, len(t.beats))
	for userID, beat := range t.beats {
		if now.Sub(beat) > t.ttl {
			delete(t.beats, userID)
			continue
		}
		ids = append(ids, userID)
	}
	return ids, nil
}

func (t *MemoryTracker) Disconnect(_ context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.beats, userID)
	return nil
}
