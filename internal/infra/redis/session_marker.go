package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionMarker records live hosted sessions in Redis so operators can see
// in-flight trials and stale ones age out via TTL. Marking is best-effort;
// session correctness never depends on it.
type SessionMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionMarker(client *redis.Client, ttl time.Duration) *SessionMarker {
	return &SessionMarker{client: client, ttl: ttl}
}

func (m *SessionMarker) MarkLive(ctx context.Context, sessionID string) {
	_ = m.client.Set(ctx, m.key(sessionID), "1", m.ttl).Err()
}

func (m *SessionMarker) Clear(ctx context.Context, sessionID string) {
	_ = m.client.Del(ctx, m.key(sessionID)).Err()
}

func (m *SessionMarker) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
