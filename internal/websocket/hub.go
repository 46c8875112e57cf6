package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/infrastructure"
)

// TypeConnection is sent to a client right after it registers
const TypeConnection = "connection"

const broadcastQueueSize = 256

// Message is the envelope every client receives
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type outbound struct {
	messageType string
	payload     []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	metrics  *hubMetrics
	greeting func() interface{}

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Hub
type Option func(*Hub)

// WithMeter records hub metrics on meter
func WithMeter(meter metric.Meter) Option {
	return func(h *Hub) { h.metrics = newHubMetrics(meter) }
}

// WithGreeting sets the data carried by the connection message, evaluated
// for each new client. The front end uses it to render the license state
// without an extra request.
func WithGreeting(fn func() interface{}) Option {
	return func(h *Hub) { h.greeting = fn }
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = newHubMetrics(nil)
	}
	return h
}

// Run serves register, unregister and broadcast requests until ctx is
// cancelled or Stop is called. All client queues are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer h.closeAll()
	defer h.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			return nil

		case <-h.done:
			h.logger.Info("hub stopped")
			return nil

		case client := <-h.register:
			h.addClient(ctx, client)

		case client := <-h.unregister:
			h.removeClient(ctx, client)

		case msg := <-h.broadcast:
			h.fanOut(ctx, msg)
		}
	}
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.connected(ctx)
	h.logger.InfoContext(infrastructure.WithTraceID(ctx, client.traceID), "client registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count),
	)

	var data interface{}
	if h.greeting != nil {
		data = h.greeting()
	}
	payload, err := encode(TypeConnection, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode connection message", slog.String("error", err.Error()))
		return
	}
	select {
	case client.send <- payload:
	default:
		h.metrics.drop(ctx, "client_queue_full")
	}
}

func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.metrics.disconnected(ctx)
	h.logger.InfoContext(infrastructure.WithTraceID(ctx, client.traceID), "client unregistered",
		slog.String("client_id", client.id),
		slog.Int("total_clients", count),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
	)
}

func (h *Hub) fanOut(ctx context.Context, msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients {
		select {
		case client.send <- msg.payload:
			delivered++
		default:
			// Slow consumer; WritePump sees the closed queue and hangs up.
			close(client.send)
			delete(h.clients, client)
			h.metrics.disconnected(ctx)
			h.metrics.drop(ctx, "client_queue_full")
			h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.metrics.delivered(ctx, msg.messageType, delivered)
	h.logger.DebugContext(ctx, "broadcast delivered",
		slog.String("type", msg.messageType),
		slog.Int("clients", delivered),
		slog.Int("payload_size", len(msg.payload)),
	)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast queues an event for every connected client. It never blocks:
// when the hub is stopped or its queue is full the event is dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	ctx := context.Background()
	payload, err := encode(messageType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode broadcast",
			slog.String("type", messageType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- outbound{messageType: messageType, payload: payload}:
	default:
		h.metrics.drop(ctx, "hub_queue_full")
		h.logger.WarnContext(ctx, "broadcast queue full, dropping event", slog.String("type", messageType))
	}
}

// Register adds a client. It returns false when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. Safe to call after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop makes Run return. It is idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func encode(messageType string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: messageType, Data: data, Timestamp: time.Now().UTC()})
}
