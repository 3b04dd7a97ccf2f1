package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"mxf2proxy/internal/logging"
)

// RedisOptions configures the redis publisher.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisPublisher publishes JSON-encoded events to a redis channel so that
// dashboards on other hosts can follow a batch.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisPublisher connects and pings the server.
func NewRedisPublisher(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &RedisPublisher{
		client:  client,
		channel: opts.Channel,
		logger:  logging.NewComponentLogger(logger, "events-redis"),
	}, nil
}

// Publish sends event as JSON. Failures are logged at debug level and
// otherwise ignored.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.client.Publish(pubCtx, p.channel, payload).Err(); err != nil {
		p.logger.Debug("redis publish failed", logging.Error(err), logging.String("channel", p.channel))
	}
}

// Close releases the redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// SubscribeRedis follows events published on opts.Channel. The returned
// channel closes when ctx ends; payloads that do not decode as an Event are
// skipped.
func SubscribeRedis(ctx context.Context, opts RedisOptions) (<-chan Event, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	sub := client.Subscribe(ctx, opts.Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("redis subscribe %s on %s: %w", opts.Channel, opts.Addr, err)
	}
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer client.Close()
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
