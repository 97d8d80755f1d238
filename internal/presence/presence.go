// Package presence tracks which users are currently online via
// heartbeat keys in Redis with a short TTL.
package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// HeartbeatTTL is how long a heartbeat keeps a user online. Clients are
// expected to beat at roughly half this interval.
const HeartbeatTTL = 60 * time.Second

type Tracker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client, prefix: "presence:", ttl: HeartbeatTTL}
}

func (t *Tracker) key(userID string) string {
	return t.prefix + userID
}

// Heartbeat marks the user online, resetting their TTL.
func (t *Tracker) Heartbeat(ctx context.Context, userID string) error {
	if err := t.client.Set(ctx, t.key(userID), time.Now().UTC().Format(time.RFC3339), t.ttl).Err(); err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

// IsOnline reports whether the user has a live heartbeat.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check presence: %w", err)
	}
	return n > 0, nil
}

// OnlineUsers returns the IDs of all users with a live heartbeat.
func (t *Tracker) OnlineUsers(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	iter := t.client.Scan(ctx, 0, t.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), t.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan presence keys: %w", err)
	}
	return ids, nil
}

// Disconnect drops the user's heartbeat immediately, used on logout.
func (t *Tracker) Disconnect(ctx context.Context, userID string) error {
	if err := t.client.Del(ctx, t.key(userID)).Err(); err != nil {
		return fmt.Errorf("drop presence: %w", err)
	}
	return nil
}
