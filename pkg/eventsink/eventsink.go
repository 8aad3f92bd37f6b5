// Package eventsink is the optional, fire-and-forget NATS mirror of
// broadcast events for external log aggregation. It is strictly
// additive: a publish failure is logged and dropped, never propagated to
// the engine thread or to any client, matching the same no-backpressure
// rule as pkg/debugserver.
//
// Grounded on the teacher's pkg/nats.Client: connection-event handlers
// wired through nats.Option, and a PublishJSON helper, generalized from a
// bidirectional pub/sub client to a write-only mirror (Sink never
// subscribes).
package eventsink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/odin-media/playercore/pkg/event"
)

// Logger is the minimal structured-logging contract the sink needs.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Config configures Connect.
type Config struct {
	URL             string
	Subject         string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
}

// Sink publishes a JSON rendering of each event record passed to Mirror
// onto a NATS subject. It does not attach to the registry itself: only
// records handed to Mirror are published.
type Sink struct {
	conn    *nats.Conn
	subject string
	logger  Logger
}

// Connect dials NATS and returns a ready Sink. logger may be nil.
func Connect(cfg Config, logger Logger) (*Sink, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	s := &Sink{subject: cfg.Subject, logger: logger}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.logger.Printf("eventsink: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			s.logger.Printf("eventsink: reconnected to %s", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			s.logger.Printf("eventsink: nats error: %v", err)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("eventsink: connect to NATS: %w", err)
	}
	s.conn = conn
	return s, nil
}

// wireEvent mirrors debugserver's JSON rendering, kept independent since
// the two endpoints evolve separately (one is a live operator feed, the
// other a durable log sink).
type wireEvent struct {
	Kind    string `json:"kind"`
	Err     int32  `json:"err,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Mirror publishes rec onto the configured subject. Failures are logged
// and swallowed: the caller (registry.Broadcast's caller, typically) must
// never be slowed down or interrupted by sink trouble.
func (s *Sink) Mirror(rec event.Record) {
	body, err := json.Marshal(wireEvent{Kind: rec.Kind.String(), Err: int32(rec.Err), Payload: rec.Payload})
	if err != nil {
		s.logger.Printf("eventsink: marshal error: %v", err)
		return
	}
	if err := s.conn.Publish(s.subject, body); err != nil {
		s.logger.Printf("eventsink: publish error: %v", err)
	}
}

// Close closes the underlying NATS connection; it does not call Drain.
func (s *Sink) Close() {
	s.conn.Close()
}
