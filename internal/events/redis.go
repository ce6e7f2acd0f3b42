package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// DefaultRedisChannel is the pub/sub channel used when none is configured.
const DefaultRedisChannel = "scrible-events"

const publishTimeout = 2 * time.Second

// RedisRelay delivers events to a local broadcaster and publishes them on a
// Redis channel, so every server instance sharing the channel sees them.
type RedisRelay struct {
	rdb      *goredis.Client
	channel  string
	instance string
	local    Broadcaster
	logger   *zap.Logger
}

// NewRedisRelay connects to addr and checks the connection.
func NewRedisRelay(ctx context.Context, addr, channel string, local Broadcaster, logger *zap.Logger) (*RedisRelay, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRelay(rdb, channel, local, logger), nil
}

func newRelay(rdb *goredis.Client, channel string, local Broadcaster, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:      rdb,
		channel:  channel,
		instance: uuid.New().String(),
		local:    OrDiscard(local),
		logger:   utils.OrNop(logger),
	}
}

// Broadcast implements Broadcaster. Local delivery is immediate; the publish
// happens in the background and failures are only logged.
func (r *RedisRelay) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	r.local.Broadcast(ev)

	ev.Origin = r.instance
	raw, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn("failed to marshal event", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
			r.logger.Warn("redis publish failed", zap.String("channel", r.channel), zap.Error(err))
		}
	}()
}

// Start subscribes to the channel and forwards events from other instances to
// the local broadcaster until ctx is done.
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				r.deliver(m.Payload)
			}
		}
	}()
	return nil
}

// deliver forwards a published payload unless this instance produced it.
func (r *RedisRelay) deliver(payload string) bool {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.logger.Warn("bad redis event payload", zap.Error(err))
		return false
	}
	if ev.Origin == r.instance {
		return false
	}
	r.local.Broadcast(ev)
	return true
}

// Close closes the Redis client.
func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}
