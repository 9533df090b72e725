package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "chunkopt"

// NATSPublisher publishes events as JSON on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// NewNATSPublisher publishes on an existing connection. The caller keeps
// ownership of nc.
func NewNATSPublisher(nc *nats.Conn, prefix string) (*NATSPublisher, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, prefix string, opts ...nats.Option) (*NATSPublisher, error) {
	opts = append([]nats.Option{
		nats.Name("chunkopt"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p, err := NewNATSPublisher(nc, prefix)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p.owned = true
	return p, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.TraceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			ev.TraceID = sc.TraceID().String()
		}
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(p.prefix, ev), data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Stage, err)
	}
	return nil
}

// Prefix returns the subject prefix.
func (p *NATSPublisher) Prefix() string {
	return p.prefix
}

// Close drains the connection if the publisher owns it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}
