// Package notify delivers per-user loan digests to an outside channel.
//
// The library does not send mail itself. A Sender hands each digest to
// something that does: the process log, or a Redis stream read by a mailer.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entities"
)

var ErrRedisAddrRequired = errors.New("redis address is required for the redis sender")

// Sender delivers one digest.
type Sender interface {
	Send(ctx context.Context, digest entities.UserDigest) error
}

// LogSender writes digests to the standard logger.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender creates a LogSender. A nil logger uses the standard logger.
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, digest entities.UserDigest) error {
	titles := make([]string, 0, len(digest.Books))
	for _, b := range digest.Books {
		titles = append(titles, b.Title)
	}
	s.logger.Printf("[NOTIFY] %s digest for %s <%s>: %d book(s): %s",
		digest.Kind, digest.UserName, digest.UserEmail, len(digest.Books), strings.Join(titles, "; "))
	return nil
}

// NewSender builds the sender selected by configuration.
// The returned close function releases any connection held by the sender.
func NewSender(cfg config.Notify) (Sender, func() error, error) {
	switch cfg.Sender {
	case config.NotifySenderRedis:
		sender, err := NewRedisSender(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.RedisStream,
		})
		if err != nil {
			return nil, nil, err
		}
		return sender, sender.Close, nil
	case config.NotifySenderLog, "":
		return NewLogSender(nil), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown notification sender %q", cfg.Sender)
	}
}
