package presence

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTracker(t *testing.T) (*Tracker, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTracker(client), s
}

func TestHeartbeatMarksOnline(t *testing.T) {
	tracker, s := setupTracker(t)
	defer s.Close()
	ctx := context.Background()

	online, err := tracker.IsOnline(ctx, "u-1")
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if online {
		t.Error("expected offline before heartbeat")
	}

	if err := tracker.Heartbeat(ctx, "u-1"); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	online, err = tracker.IsOnline(ctx, "u-1")
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if !online {
		t.Error("expected online after heartbeat")
	}
}

func TestHeartbeatExpires(t *testing.T) {
	tracker, s := setupTracker(t)
	defer s.Close()
	ctx := context.Background()

	if err := tracker.Heartbeat(ctx, "u-2"); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	s.FastForward(HeartbeatTTL + time.Second)

	online, err := tracker.IsOnline(ctx, "u-2")
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if online {
		t.Error("expected offline after TTL elapsed")
	}
}

func TestOnlineUsers(t *testing.T) {
	tracker, s := setupTracker(t)
	defer s.Close()
	ctx := context.Background()

	for _, id := range []string{"u-a", "u-b", "u-c"} {
		if err := tracker.Heartbeat(ctx, id); err != nil {
			t.Fatalf("Heartbeat(%s) failed: %v", id, err)
		}
	}
	if err := tracker.Disconnect(ctx, "u-b"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	ids, err := tracker.OnlineUsers(ctx)
	if err != nil {
		t.Fatalf("OnlineUsers failed: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "u-a" || ids[1] != "u-c" {
		t.Errorf("expected [u-a u-c], got %v", ids)
	}
}
