package http

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/placemark/internal/adapters/nats"
	"github.com/samirrijal/placemark/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "locations" | "viewport" | "loading" | "all"
}

// wsEvent wraps a relayed message with its subject so clients can tell
// channels apart on one socket.
type wsEvent struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

const wsAll = "all"

// channelFor names the channel a relayed subject belongs to, or "" when it
// belongs to none.
func channelFor(subject string) string {
	switch {
	case strings.HasPrefix(subject, natsadapter.SubjectLocations+"."):
		return "locations"
	case subject == natsadapter.SubjectViewport:
		return "viewport"
	case subject == natsadapter.SubjectLoading:
		return "loading"
	}
	return ""
}

func knownChannel(ch string) bool {
	return ch == wsAll || ch == "locations" || ch == "viewport" || ch == "loading"
}

// wsSubscriptions is the set of channels one connection listens to. Events
// arrive on a single NATS subscription and are written at most once, however
// many of the subscribed channels match.
type wsSubscriptions struct {
	mu       sync.Mutex
	channels map[string]bool
}

func newWSSubscriptions() *wsSubscriptions {
	return &wsSubscriptions{channels: map[string]bool{wsAll: true}}
}

// add reports false when ch was already in the set.
func (s *wsSubscriptions) add(ch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels[ch] {
		return false
	}
	s.channels[ch] = true
	return true
}

// remove reports false when ch was not in the set.
func (s *wsSubscriptions) remove(ch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.channels[ch] {
		return false
	}
	delete(s.channels, ch)
	return true
}

func (s *wsSubscriptions) wants(subject string) bool {
	ch := channelFor(subject)
	if ch == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[wsAll] || s.channels[ch]
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// change events to connected clients, which refetch what changed.
// Clients send JSON: {"action":"subscribe","channel":"locations"}.
// Every connection starts subscribed to "all"; unsubscribe from it to narrow
// the feed to specific channels.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := newWSSubscriptions()

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		sub, err := nc.Subscribe(natsadapter.SubjectAll, func(msg *nats.Msg) {
			if subs.wants(msg.Subject) {
				_ = writeJSON(wsEvent{Subject: msg.Subject, Data: json.RawMessage(msg.Data)})
			}
		})
		if err != nil {
			slog.Error("ws subscribe failed", "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = wsAll
			}
			if !knownChannel(channel) {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if !subs.add(channel) {
					_ = writeJSON(map[string]string{"status": "already subscribed", "channel": channel})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "channel": channel})

			case "unsubscribe":
				if !subs.remove(channel) {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + channel})
					continue
				}
				_ = writeJSON(map[string]string{"status": "unsubscribed", "channel": channel})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
