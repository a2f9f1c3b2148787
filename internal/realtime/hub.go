package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/metrics"
)

// ErrHubBusy is returned by Emit when the delivery queue is full.
var ErrHubBusy = errors.New("realtime: hub queue full")

// ErrHubStopped is returned by Emit after the hub has shut down.
var ErrHubStopped = errors.New("realtime: hub stopped")

// Emitter delivers a message to every client subscribed to a channel.
// Delivery is best-effort: a nil error means the message was accepted, not
// that anyone received it.
type Emitter interface {
	Emit(ctx context.Context, ch Channel, msg Message) error
}

type delivery struct {
	ch  Channel
	msg Message
}

// Hub tracks connected clients and their channel subscriptions.  All map
// mutation happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	done       chan struct{}
	stopOnce   sync.Once

	mu    sync.RWMutex
	count int
}

// NewHub returns a hub; call Serve (or run it under a supervisor) before
// clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// String names the hub for the supervisor's logs.
func (h *Hub) String() string { return "websocket-hub" }

// Emit queues msg for channel ch without blocking.
func (h *Hub) Emit(ctx context.Context, ch Channel, msg Message) error {
	msg.Channel = ch
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case h.deliveries <- delivery{ch: ch, msg: msg}:
		return nil
	default:
		return ErrHubBusy
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Serve runs the hub until ctx is cancelled, then disconnects everyone.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
			logging.Debug().Str("client", c.id).Uint64("user_id", c.userID).Int("total_clients", len(h.clients)).
				Msg("websocket client connected")

		case c := <-h.unregister:
			h.drop(c)

		case d := <-h.deliveries:
			h.deliver(d)
		}
	}
}

func (h *Hub) deliver(d delivery) {
	for c := range h.clients {
		if !c.subscribed(d.ch) {
			continue
		}
		select {
		case c.send <- d.msg:
			metrics.WSMessagesSent.Inc()
		default:
			// Slow consumer: disconnect rather than block every other client.
			metrics.WSDropped.Inc()
			logging.Warn().Str("client", c.id).Msg("websocket client send buffer full, dropping")
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.setCount()
	logging.Debug().Str("client", c.id).Int("total_clients", len(h.clients)).Msg("websocket client disconnected")
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(h.count))
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	n := len(h.clients)
	for c := range h.clients {
		h.drop(c)
	}
	logging.Info().Str("component", h.String()).Int("clients_closed", n).Msg("websocket hub stopped")
}
