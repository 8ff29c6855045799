package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/placemark/internal/core/domain"
)

// Subscriber follows the changes other replicas publish. Messages tagged with
// this replica's own instance id are acknowledged and skipped.
type Subscriber struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	instance string
	subs     []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url, instance string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, instance: instance}, nil
}

// SubscribeViewport delivers viewport changes made by other replicas.
func (s *Subscriber) SubscribeViewport(ctx context.Context, handler func(ctx context.Context, state domain.ViewportState) error) error {
	return s.subscribe(SubjectViewport, func(msg *nats.Msg) error {
		var state domain.ViewportState
		if err := json.Unmarshal(msg.Data, &state); err != nil {
			return err
		}
		return handler(ctx, state)
	})
}

// SubscribeLocationEvents delivers saved location changes made by other
// replicas.
func (s *Subscriber) SubscribeLocationEvents(ctx context.Context, handler func(ctx context.Context, event domain.LocationEvent) error) error {
	return s.subscribe(SubjectLocations+".>", func(msg *nats.Msg) error {
		var event domain.LocationEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return err
		}
		return handler(ctx, event)
	})
}

// Every replica needs every message, so consumers are ephemeral rather than
// a shared durable.
func (s *Subscriber) subscribe(subject string, handle func(msg *nats.Msg) error) error {
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		if msg.Header.Get(instanceHeader) == s.instance {
			_ = msg.Ack()
			return
		}
		if err := handle(msg); err != nil {
			slog.Warn("replica event rejected", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
