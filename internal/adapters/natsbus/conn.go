// Package natsbus carries readings in, haptic payloads out and session events
// over NATS. Subjects hang off a configurable prefix:
//
//	<prefix>.readings.<domain>        reading feed (JSON readingMessage)
//	<prefix>.haptics.<participant>    request/ack per device
//	<prefix>.events.<event type>      session lifecycle events
package natsbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultPrefix = "mycelium"

// Conn is the subset of *nats.Conn the adapters use.
type Conn interface {
	Publish(subject string, data []byte) error
	RequestWithContext(ctx context.Context, subject string, data []byte) (*nats.Msg, error)
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

var _ Conn = (*nats.Conn)(nil)

type Config struct {
	URL            string
	Name           string
	Token          string
	ConnectTimeout time.Duration
}

// Connect dials NATS and keeps reconnecting for as long as the process runs.
func Connect(cfg Config) (*nats.Conn, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = "myc"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

func subject(prefix string, parts ...string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return strings.Join(append([]string{prefix}, parts...), ".")
}

// token makes an identifier safe to use as one subject token.
func token(id string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(strings.TrimSpace(id))
}
