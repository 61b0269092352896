package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger claims ids with SET NX and lets Redis expire them with the
// token.
type RedisLedger struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	return &RedisLedger{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisLedger) Claim(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if err := validID(jti); err != nil {
		return false, err
	}
	ttl := expiresAt.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := l.client.SetNX(ctx, l.prefix+jti, expiresAt.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Ping checks the connection for health reporting.
func (l *RedisLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}
