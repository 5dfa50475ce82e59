package live

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const changeChannel = "blogapp.changes"

// RedisNotifier fans change ticks out across processes via Redis
// pub/sub. Local subscribers are fed from the subscription loop, so a
// process hears its own writes the same way it hears everyone else's.
type RedisNotifier struct {
	client *redis.Client
	local  *LocalNotifier
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisNotifier(redisURL string, logger *slog.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newRedisNotifier(client, logger), nil
}

// NewRedisNotifierWithClient wraps an existing client, for tests.
func NewRedisNotifierWithClient(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return newRedisNotifier(client, logger)
}

func newRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	loopCtx, cancel := context.WithCancel(context.Background())
	n := &RedisNotifier{
		client: client,
		local:  NewLocalNotifier(),
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go n.receiveLoop(loopCtx)
	return n
}

func (n *RedisNotifier) Publish(ctx context.Context, path string) error {
	if err := n.client.Publish(ctx, changeChannel, path).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(path string) (<-chan struct{}, func()) {
	return n.local.Subscribe(path)
}

// receiveLoop keeps one pub/sub connection open and dispatches incoming
// paths into the local hub. It reconnects on transient errors until the
// notifier is closed.
func (n *RedisNotifier) receiveLoop(ctx context.Context) {
	defer close(n.done)
	for {
		if ctx.Err() != nil {
			return
		}
		pubsub := n.client.Subscribe(ctx, changeChannel)
		ch := pubsub.Channel()
		for msg := range ch {
			_ = n.local.Publish(ctx, msg.Payload)
		}
		_ = pubsub.Close()
		if ctx.Err() != nil {
			return
		}
		n.logger.Warn("redis change subscription dropped, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (n *RedisNotifier) Close() error {
	n.cancel()
	// Closing the client tears down the pub/sub connection, which is
	// what unblocks the receive loop.
	err := n.client.Close()
	<-n.done
	return err
}
