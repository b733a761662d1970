package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// Hub manages push-channel connections and their room memberships. Clients
// join rooms explicitly by sending joinRoom envelopes; broadcasts are scoped
// to one room or fanned out to every connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[*hubConn]bool
	rooms map[events.RoomID]map[*hubConn]bool

	upgrader websocket.Upgrader
	config   HubConfig

	broadcastCh chan broadcastMessage
}

// hubConn is one connected dashboard client.
type hubConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu     sync.Mutex
	joined map[events.RoomID]bool
}

// HubConfig holds configuration for push-channel connections.
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// broadcastMessage is a queued fan-out. A zero Room means every connection.
type broadcastMessage struct {
	Room     events.RoomID
	Envelope events.Envelope
	Global   bool
}

// DefaultHubConfig returns default push-channel configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Development harness, any origin may connect.
			return true
		},
	}
}

// NewHub creates a hub with the given configuration.
func NewHub(config HubConfig) *Hub {
	return &Hub{
		conns: make(map[*hubConn]bool),
		rooms: make(map[events.RoomID]map[*hubConn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 256),
	}
}

// Start processes queued broadcasts until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("push hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("push hub shutting down")
			return
		case message := <-h.broadcastCh:
			h.handleBroadcast(message)
		}
	}
}

// HandleWS upgrades an HTTP request onto the push channel.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade push connection")
		return
	}

	c := &hubConn{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    h,
		joined: make(map[events.RoomID]bool),
	}

	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()

	log.Info().Str("connection_id", c.id).Msg("push connection established")
}

// BroadcastToRoom queues an event for every member of one room.
func (h *Hub) BroadcastToRoom(room events.RoomID, env events.Envelope) {
	select {
	case h.broadcastCh <- broadcastMessage{Room: room, Envelope: env}:
	default:
		log.Warn().Str("room", string(room)).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastAll queues an event for every connection regardless of rooms.
func (h *Hub) BroadcastAll(env events.Envelope) {
	select {
	case h.broadcastCh <- broadcastMessage{Envelope: env, Global: true}:
	default:
		log.Warn().Str("event", string(env.Event)).Msg("broadcast channel full, dropping message")
	}
}

// Connections reports the number of live push connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(room events.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) handleBroadcast(message broadcastMessage) {
	h.mu.RLock()
	var targets []*hubConn
	if message.Global {
		for c := range h.conns {
			targets = append(targets, c)
		}
	} else {
		for c := range h.rooms[message.Room] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	payload, err := json.Marshal(message.Envelope)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast envelope")
		return
	}

	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			// Slow or dead consumer, drop it.
			log.Warn().Str("connection_id", c.id).Msg("send buffer full, closing connection")
			h.drop(c)
			c.conn.Close()
		}
	}

	log.Debug().
		Str("event", string(message.Envelope.Event)).
		Str("room", string(message.Room)).
		Int("connections", len(targets)).
		Msg("event broadcast")
}

// join adds a connection to a room pool. Joining twice is a no-op, so
// duplicated joinRoom requests never duplicate push traffic.
func (h *Hub) join(c *hubConn, room events.RoomID) {
	c.mu.Lock()
	already := c.joined[room]
	c.joined[room] = true
	c.mu.Unlock()
	if already {
		return
	}

	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*hubConn]bool)
	}
	h.rooms[room][c] = true
	members := len(h.rooms[room])
	h.mu.Unlock()

	log.Debug().
		Str("connection_id", c.id).
		Str("room", string(room)).
		Int("members", members).
		Msg("connection joined room")
}

// drop removes a connection from every pool it belongs to.
func (h *Hub) drop(c *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.conns[c] {
		return
	}
	delete(h.conns, c)
	close(c.send)

	c.mu.Lock()
	for room := range c.joined {
		delete(h.rooms[room], c)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	c.mu.Unlock()

	log.Info().Str("connection_id", c.id).Msg("push connection dropped")
}

func (c *hubConn) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.id).Msg("failed to write push message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *hubConn) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.id).Msg("unexpected push connection close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		c.handleClientMessage(message)
	}
}

// handleClientMessage processes inbound envelopes. joinRoom is the only
// client-to-server event on the push channel; anything else gets an error
// envelope back.
func (c *hubConn) handleClientMessage(message []byte) {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Warn().Err(err).Str("connection_id", c.id).Msg("dropping undecodable client message")
		return
	}

	payload, err := events.ParsePayload(env)
	if err != nil {
		log.Warn().Err(err).Str("connection_id", c.id).Msg("dropping malformed client envelope")
		c.sendError(fmt.Sprintf("malformed %s payload", env.Event))
		return
	}

	switch p := payload.(type) {
	case events.JoinRoomPayload:
		c.hub.join(c, p.QuizID)
	default:
		log.Debug().
			Str("connection_id", c.id).
			Str("event", string(env.Event)).
			Msg("ignoring unexpected client event")
	}
}

func (c *hubConn) sendError(message string) {
	env, err := events.NewEnvelope(events.EventError, map[string]string{"message": message})
	if err != nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
