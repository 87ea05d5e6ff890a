package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis broadcasts events over a Redis pub/sub channel, reaching contexts in other
// processes and on other hosts sharing the same store origin.
type Redis struct {
	client  *redis.Client
	channel string
	log     *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedis creates a broadcaster publishing on channel.
func NewRedis(client *redis.Client, channel string, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		client:  client,
		channel: channel,
		log:     log.Named("redis").With(zap.String("channel", channel)),
	}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Post publishes e. Redis echoes it back to this process; the bus drops its own origin.
func (r *Redis) Post(ctx context.Context, e Event) error {
	data, err := encodeEvent(e)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Attach subscribes to the channel and starts forwarding decoded events to deliver.
func (r *Redis) Attach(deliver func(Event)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub != nil {
		return fmt.Errorf("redis broadcaster already attached")
	}

	ctx, cancel := context.WithCancel(context.Background())
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		ps.Close()
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}

	r.pubsub = ps
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.forward(ps.Channel(), deliver)
	return nil
}

func (r *Redis) forward(msgs <-chan *redis.Message, deliver func(Event)) {
	defer close(r.done)
	for msg := range msgs {
		e, err := decodeEvent([]byte(msg.Payload))
		if err != nil {
			r.log.Warn("ignoring malformed event", zap.Error(err))
			continue
		}
		deliver(e)
	}
}

// Close unsubscribes and waits for the forwarding goroutine to exit.
func (r *Redis) Close() error {
	r.mu.Lock()
	ps, cancel, done := r.pubsub, r.cancel, r.done
	r.pubsub = nil
	r.mu.Unlock()

	if ps == nil {
		return nil
	}
	cancel()
	err := ps.Close()
	<-done
	if err != nil {
		return fmt.Errorf("close subscription: %w", err)
	}
	return nil
}
