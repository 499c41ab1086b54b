package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types published by the engine.
const (
	TypeMarketCreated    = "market_created"
	TypeMarketFinalized  = "market_finalized"
	TypeMarketCancelled  = "market_cancelled"
	TypeDisputeRaised    = "dispute_raised"
	TypeDisputeResolved  = "dispute_resolved"
	TypeRewardClaimed    = "reward_claimed"
	TypeStakeRefunded    = "stake_refunded"
)

// Event is a single engine event pushed to websocket subscribers.
type Event struct {
	Type     string         `json:"type"`
	MarketID uuid.UUID      `json:"market_id"`
	At       time.Time      `json:"at"`
	Data     map[string]any `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster fans engine events out to websocket subscribers. Slow clients
// are dropped rather than allowed to block the engine.
type Broadcaster struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewBroadcaster creates an event broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWS upgrades the request and subscribes the connection to events.
func (b *Broadcaster) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("ws-upgrade-failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	SubscribersGauge.Inc()
	b.mu.Unlock()

	b.logger.Info("ws-subscriber-connected", zap.String("remote", conn.RemoteAddr().String()))

	go b.writePump(c)
	go b.readPump(c)
}

// Publish sends the event to every subscriber. Non-blocking: a full client
// buffer drops the event for that client only.
func (b *Broadcaster) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("event-marshal-failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	EventsPublishedTotal.WithLabelValues(ev.Type).Inc()
	for c := range b.clients {
		select {
		case c.send <- payload:
		default:
			b.logger.Warn("ws-subscriber-slow", zap.String("type", ev.Type))
		}
	}
}

// Close disconnects every subscriber.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		close(c.send)
		delete(b.clients, c)
		SubscribersGauge.Dec()
	}
	b.logger.Info("event-broadcaster-closed")
}

func (b *Broadcaster) writePump(c *client) {
	for payload := range c.send {
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		if err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

// readPump drains control frames and detects disconnects.
func (b *Broadcaster) readPump(c *client) {
	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}

	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		close(c.send)
		delete(b.clients, c)
		SubscribersGauge.Dec()
	}
	b.mu.Unlock()

	b.logger.Info("ws-subscriber-disconnected")
}
