package events

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gorilla/websocket"
)

const userEventsChannel = "events:user"

var (
	wsConnectionsGauge   = expvar.NewInt("events_ws_connections")
	wsEventsSentTotal    = expvar.NewInt("events_ws_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("events_ws_dropped_total")
)

// envelope is the wire shape events travel in over redis so every API
// instance can deliver to its own local connections
type envelope struct {
	UserID           string          `json:"user_id"`
	Payload          json.RawMessage `json:"payload"`
	SenderInstanceID string          `json:"sender_instance_id"`
}

// Connection is one websocket attached to the hub
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub fans events out to a user's live websocket connections. Redis pub/sub
// bridges instances so delivery works regardless of which instance holds
// the socket.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool
	mu          sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	register   chan *Connection
	unregister chan *Connection

	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		instanceID:  uuid.NewString(),
		ctx:         ctx,
		cancel:      cancel,
	}
	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, userEventsChannel)
	}
	return h
}

// Run starts the hub loop, call in a goroutine
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.UserID] == nil {
				h.connections[conn.UserID] = make(map[*Connection]bool)
			}
			h.connections[conn.UserID][conn] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)
			log.Debug().Str("user_id", conn.UserID.String()).Msg("event stream connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.UserID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					wsConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.connections, conn.UserID)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("user_id", conn.UserID.String()).Msg("event stream disconnected")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			if env.SenderInstanceID == h.instanceID {
				continue
			}
			userID, err := uuid.Parse(env.UserID)
			if err != nil {
				continue
			}
			h.sendLocal(userID, []byte(env.Payload))
		}
	}
}

// Publish delivers an event to the user's connections on every instance.
// Delivery is best effort; financial state never depends on it.
func (h *Hub) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", string(event.Type)).Msg("marshaling event failed")
		return
	}

	h.sendLocal(event.UserID, data)

	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(envelope{
		UserID:           event.UserID.String(),
		Payload:          data,
		SenderInstanceID: h.instanceID,
	})
	if err != nil {
		return
	}
	if err := h.redis.Publish(ctx, userEventsChannel, payload).Err(); err != nil {
		log.Error().Err(err).Msg("publishing event to redis failed")
	}
}

// sendLocal holds the read lock across the whole iteration so the hub loop
// cannot mutate the set or close a Send channel mid-send
func (h *Hub) sendLocal(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections[userID] {
		select {
		case conn.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			wsEventsDroppedTotal.Add(1)
		}
	}
}

func (h *Hub) Register(conn *Connection)   { h.register <- conn }
func (h *Hub) Unregister(conn *Connection) { h.unregister <- conn }

// Close stops the hub loop and the redis subscription
func (h *Hub) Close() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
