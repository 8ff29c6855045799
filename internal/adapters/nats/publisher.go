package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/placemark/internal/core/domain"
)

// Subjects.
const (
	SubjectLocations     = "placemark.locations"
	SubjectViewport      = "placemark.viewport.changed"
	SubjectLoading       = "placemark.loading.changed"
	SubjectAll           = "placemark.>"
	instanceHeader       = "Placemark-Instance"
	reconnectWaitSeconds = 2
)

// Publisher implements ports.EventPublisher using NATS JetStream. Location and
// viewport changes go through JetStream; loading flips are fire-and-forget.
type Publisher struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	instance string
}

// NewPublisher connects to NATS and enables JetStream. instance tags every
// message so a replica can skip its own writes.
func NewPublisher(url, instance string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "PLACEMARK_LOCATIONS",
			Subjects:  []string{SubjectLocations + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:              "PLACEMARK_VIEWPORT",
			Subjects:          []string{SubjectViewport},
			Retention:         nats.LimitsPolicy,
			MaxMsgsPerSubject: 1,
			Storage:           nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js, instance: instance}, nil
}

// PublishLocationEvent publishes to placemark.locations.<op>.
func (p *Publisher) PublishLocationEvent(ctx context.Context, event domain.LocationEvent) error {
	msg, err := p.message(SubjectLocations+"."+string(event.Op), event)
	if err != nil {
		return err
	}
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// PublishViewport publishes the new viewport. The stream keeps only the last
// one.
func (p *Publisher) PublishViewport(ctx context.Context, state domain.ViewportState) error {
	msg, err := p.message(SubjectViewport, state)
	if err != nil {
		return err
	}
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// PublishLoading publishes a busy flip on core NATS.
func (p *Publisher) PublishLoading(ctx context.Context, state domain.LoadingState) error {
	msg, err := p.message(SubjectLoading, state)
	if err != nil {
		return err
	}
	return p.conn.PublishMsg(msg)
}

// Conn exposes the underlying connection for relays and readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func (p *Publisher) message(subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(instanceHeader, p.instance)
	return msg, nil
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("placemark"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWaitSeconds*time.Second),
	)
}
