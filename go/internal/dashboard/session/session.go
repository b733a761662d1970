package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// Handler consumes one push event.
type Handler func(events.Envelope)

// Config holds configuration for the push-channel session.
type Config struct {
	URL              string
	Header           http.Header
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	ReconnectWait    time.Duration
	MaxReconnectWait time.Duration
	SendBuffer       int
}

// DefaultConfig returns default session configuration.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		ReconnectWait:    time.Second,
		MaxReconnectWait: 30 * time.Second,
		SendBuffer:       64,
	}
}

// Session owns one live connection to the dashboard server. It dispatches
// inbound envelopes to registered handlers and redials with backoff after
// network loss. Connect hooks run synchronously after every (re)connect so
// room subscriptions are restored without user action.
type Session struct {
	id     string
	config Config
	clock  clockwork.Clock
	dialer *websocket.Dialer

	mu           sync.RWMutex
	handlers     map[events.EventType][]Handler
	connectHooks []func()
	connected    bool

	send chan events.Envelope
}

// New creates a session. It does not dial until Run is called.
func New(config Config) *Session {
	return newWithClock(config, clockwork.NewRealClock())
}

func newWithClock(config Config, clock clockwork.Clock) *Session {
	return &Session{
		id:       uuid.New().String(),
		config:   config,
		clock:    clock,
		dialer:   websocket.DefaultDialer,
		handlers: make(map[events.EventType][]Handler),
		send:     make(chan events.Envelope, config.SendBuffer),
	}
}

// ID returns the session's client identity.
func (s *Session) ID() string { return s.id }

// On registers a handler for an event type. Registration must happen before
// Run; handlers are invoked from the read loop.
func (s *Session) On(event events.EventType, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

// OnConnect registers a hook invoked after every successful (re)connect.
func (s *Session) OnConnect(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectHooks = append(s.connectHooks, hook)
}

// Emit queues an outbound envelope. Queued messages are dropped with a
// diagnostic when the buffer is full rather than blocking the caller.
func (s *Session) Emit(event events.EventType, payload any) {
	env, err := events.NewEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(event)).Msg("failed to encode outbound event")
		return
	}
	select {
	case s.send <- env:
	default:
		log.Warn().Str("event", string(event)).Msg("send buffer full, dropping outbound event")
	}
}

// Connected reports whether the session currently holds a live connection.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Run dials the server and services the connection until ctx is cancelled,
// redialing with exponential backoff after each loss. Disconnects never
// clear handler or subscription registrations; a stale view is preferred
// over a blanked one.
func (s *Session) Run(ctx context.Context) error {
	wait := s.config.ReconnectWait
	for {
		conn, _, err := s.dialer.DialContext(ctx, s.config.URL, s.config.Header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().
				Err(err).
				Str("url", s.config.URL).
				Dur("retry_in", wait).
				Msg("dial failed, backing off")
			if err := s.sleep(ctx, wait); err != nil {
				return err
			}
			if wait *= 2; wait > s.config.MaxReconnectWait {
				wait = s.config.MaxReconnectWait
			}
			continue
		}
		wait = s.config.ReconnectWait

		log.Info().Str("session_id", s.id).Str("url", s.config.URL).Msg("push channel connected")
		s.setConnected(true)
		s.runConnectHooks()
		s.serve(ctx, conn)
		s.setConnected(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Str("session_id", s.id).Msg("push channel lost, reconnecting")
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// serve pumps one connection until it dies.
func (s *Session) serve(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writePump(connCtx, conn)
	s.readPump(conn)
}

// readPump dispatches inbound envelopes until the connection fails.
func (s *Session) readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("session_id", s.id).Msg("unexpected close on push channel")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		var env events.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Error().Err(err).Msg("dropping undecodable push message")
			continue
		}
		s.dispatch(env)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (s *Session) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := s.clock.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return

		case env := <-s.send:
			payload, err := json.Marshal(env)
			if err != nil {
				log.Error().Err(err).Str("event", string(env.Event)).Msg("failed to marshal envelope")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Error().Err(err).Str("session_id", s.id).Msg("failed to write to push channel")
				return
			}

		case <-ticker.Chan():
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("session_id", s.id).Msg("failed to send ping")
				return
			}
		}
	}
}

func (s *Session) dispatch(env events.Envelope) {
	s.mu.RLock()
	handlers := append([]Handler(nil), s.handlers[env.Event]...)
	s.mu.RUnlock()

	if len(handlers) == 0 {
		log.Debug().Str("event", string(env.Event)).Msg("no handler for push event")
		return
	}
	for _, h := range handlers {
		h(env)
	}
}

func (s *Session) runConnectHooks() {
	s.mu.RLock()
	hooks := append([]func(){}, s.connectHooks...)
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook()
	}
}

func (s *Session) setConnected(up bool) {
	s.mu.Lock()
	s.connected = up
	s.mu.Unlock()
}

func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
