package notifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisChannel is the pub/sub channel replicas share
const RedisChannel = "civic:reports:updated"

// RedisRelay joins the local notifier to a redis channel so every replica of
// the API sees every change. The message body is the origin replica id.
type RedisRelay struct {
	rdb     *redis.Client
	local   *Notifier
	channel string
	origin  string
	pending chan struct{}
}

// NewRedisRelay hooks the relay onto local. Call Run to start moving signals.
func NewRedisRelay(rdb *redis.Client, local *Notifier) *RedisRelay {
	r := &RedisRelay{
		rdb:     rdb,
		local:   local,
		channel: RedisChannel,
		origin:  uuid.New().String(),
		pending: make(chan struct{}, 1),
	}
	local.OnPublish(func() {
		select {
		case r.pending <- struct{}{}:
		default:
		}
	})
	return r
}

// Origin is this replica's id on the channel
func (r *RedisRelay) Origin() string {
	return r.origin
}

// Run forwards signals in both directions until ctx is done
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	remote := sub.Channel()

	zap.S().Infow("redis relay started", "channel", r.channel, "origin", r.origin)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.pending:
			if err := r.rdb.Publish(ctx, r.channel, r.origin).Err(); err != nil {
				zap.S().Errorw("failed to publish change signal", "error", err)
			}
		case msg, ok := <-remote:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(origin string) {
	if origin == r.origin {
		return
	}
	r.local.Deliver()
}
