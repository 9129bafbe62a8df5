package tty

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jwgranville/parrotty/pkg/domain"
)

// NATSPublisher is an optional secondary sink that publishes events as
// JSON to JetStream. Publish failures are best-effort, the same contract
// the ring buffer gives the pipeline: logged and counted by the caller,
// never fatal.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewNATSPublisher connects to NATS with retry and opens a JetStream
// context.
func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		logger: logger,
	}, nil
}

// Write publishes one event. Subject format: tty.{direction}.{comm}.
func (p *NATSPublisher) Write(ev *domain.TTYEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.subjectFor(ev)
	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}

func (p *NATSPublisher) subjectFor(ev *domain.TTYEvent) string {
	direction := "output"
	if ev.Direction == domain.DirectionInput {
		direction = "input"
	}
	return fmt.Sprintf("tty.%s.%s", direction, subjectToken(ev.Comm))
}

// subjectToken sanitizes a comm value for use as a NATS subject token.
// Comm is kernel-supplied and may contain bytes that are invalid in a
// subject (dots, spaces, wildcards, arbitrary binary).
func subjectToken(comm string) string {
	if comm == "" {
		return "unknown"
	}
	token := make([]byte, len(comm))
	for i := 0; i < len(comm); i++ {
		c := comm[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			token[i] = c
		default:
			token[i] = '_'
		}
	}
	return string(token)
}
