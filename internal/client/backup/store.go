// Package backup is the client of the realtime backup store: Redis keys hold
// collection snapshots and a Pub/Sub channel per collection pushes every change.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix    = "shopkeeper:"
	defaultPingTimeout  = 5 * time.Second
	defaultCloseTimeout = 5 * time.Second
)

// Config holds Redis connection configuration
type Config struct {
	Addr      string `mapstructure:"addr"` // пусто: backup отключен
	Password  string `mapstructure:"password"`
	KeyPrefix string `mapstructure:"key_prefix"`
	DB        int    `mapstructure:"db"`
}

// Enabled reports whether a backup store is configured
func (c Config) Enabled() bool {
	return c.Addr != ""
}

// Store implements set/subscribe per collection on top of Redis.
type Store struct {
	client     *redis.Client
	logger     *slog.Logger
	keyPrefix  string
	ownsClient bool
}

// New connects to Redis and checks the connection
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := NewWithClient(client, cfg.KeyPrefix, logger)
	s.ownsClient = true

	return s, nil
}

// NewWithClient creates a store with an existing Redis client.
// The caller keeps ownership of the client.
func NewWithClient(client *redis.Client, keyPrefix string, logger *slog.Logger) *Store {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
	}
}

func (s *Store) key(collection string) string {
	return s.keyPrefix + "data:" + collection
}

func (s *Store) channel(collection string) string {
	return s.keyPrefix + "changes:" + collection
}

// Set replaces the collection snapshot and pushes it to all subscribers.
func (s *Store) Set(ctx context.Context, collection string, snapshot json.RawMessage) error {
	if len(snapshot) == 0 {
		snapshot = json.RawMessage("null")
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(collection), []byte(snapshot), 0)
		pipe.Publish(ctx, s.channel(collection), []byte(snapshot))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set %s snapshot: %w", collection, err)
	}

	return nil
}

// Get returns the stored snapshot or nil if the collection was never set.
func (s *Store) Get(ctx context.Context, collection string) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, s.key(collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s snapshot: %w", collection, err)
	}

	return data, nil
}

// Subscribe delivers the current snapshot and then every pushed change to onChange.
// A nil payload means the collection is empty or absent.
// go-redis reconnects and resubscribes the channel on its own; Subscribe only
// returns an error if the first subscription cannot be confirmed.
func (s *Store) Subscribe(ctx context.Context, collection string, onChange func(json.RawMessage)) (io.Closer, error) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pubsub := s.client.Subscribe(subCtx, s.channel(collection))

	// Ждем подтверждения подписки
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	sub := &subscription{
		cancel: cancel,
		pubsub: pubsub,
		done:   make(chan struct{}),
		logger: s.logger,
	}

	// Начальное значение, как при первом onValue
	initial, err := s.Get(subCtx, collection)
	if err != nil {
		s.logger.Warn("Initial backup snapshot unavailable", "collection", collection, "error", err)
	} else {
		sub.deliver(onChange, initial)
	}

	go sub.loop(subCtx, collection, onChange)

	s.logger.Debug("Subscribed to backup channel", "collection", collection)

	return sub, nil
}

// Close releases the Redis client if the store created it
func (s *Store) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

type subscription struct {
	cancel    context.CancelFunc
	pubsub    *redis.PubSub
	done      chan struct{}
	logger    *slog.Logger
	closeOnce sync.Once
}

func (sub *subscription) loop(ctx context.Context, collection string, onChange func(json.RawMessage)) {
	defer close(sub.done)

	ch := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				sub.logger.Warn("Backup channel closed", "collection", collection)
				return
			}
			sub.deliver(onChange, json.RawMessage(msg.Payload))
		}
	}
}

func (sub *subscription) deliver(onChange func(json.RawMessage), payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			sub.logger.Error("Panic in backup change handler", "panic", r)
		}
	}()
	onChange(payload)
}

// Close stops the subscription and waits for the delivery loop to exit.
func (sub *subscription) Close() error {
	var err error
	sub.closeOnce.Do(func() {
		sub.cancel()
		err = sub.pubsub.Close()

		select {
		case <-sub.done:
		case <-time.After(defaultCloseTimeout):
			sub.logger.Warn("Timeout waiting for backup subscription to stop")
		}
	})
	return err
}
