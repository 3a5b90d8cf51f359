package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/librarydesk/librarydesk/internal/entities"
)

const (
	DefaultStream = "library:notifications"
	defaultMaxLen = 10000
)

// RedisConfig configures the stream sender.
type RedisConfig struct {
	Addr     string
	Password string
	Stream   string
	MaxLen   int64
}

// RedisSender appends digests to a Redis stream for an external mailer.
type RedisSender struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

// NewRedisSender creates a RedisSender. The connection is opened lazily.
func NewRedisSender(cfg RedisConfig) (*RedisSender, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, ErrRedisAddrRequired
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = DefaultStream
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &RedisSender{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		stream: stream,
		maxLen: maxLen,
		now:    time.Now,
	}, nil
}

// Send adds one stream entry per digest. The book list is JSON encoded.
func (s *RedisSender) Send(ctx context.Context, digest entities.UserDigest) error {
	books, err := json.Marshal(digest.Books)
	if err != nil {
		return fmt.Errorf("failed to encode digest: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"kind":       string(digest.Kind),
			"user_id":    digest.UserID,
			"user_name":  digest.UserName,
			"user_email": digest.UserEmail,
			"books":      string(books),
			"created_at": s.now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.stream, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisSender) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSender) Close() error {
	return s.client.Close()
}
