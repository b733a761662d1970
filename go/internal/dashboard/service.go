package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/api"
	"github.com/mcdev12/quizdash/go/internal/dashboard/dispatch"
	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
	"github.com/mcdev12/quizdash/go/internal/dashboard/rooms"
	"github.com/mcdev12/quizdash/go/internal/dashboard/session"
	"github.com/mcdev12/quizdash/go/internal/dashboard/state"
	"github.com/mcdev12/quizdash/go/internal/dashboard/view"
)

// Config holds configuration for the dashboard sync service.
type Config struct {
	ServerURL         string
	PushURL           string
	UserID            string
	HeartbeatInterval time.Duration
	Session           session.Config
}

// DefaultConfig returns a config pointed at serverURL, with the push channel
// derived from it.
func DefaultConfig(serverURL, pushURL, userID string) Config {
	return Config{
		ServerURL:         serverURL,
		PushURL:           pushURL,
		UserID:            userID,
		HeartbeatInterval: 30 * time.Second,
		Session:           session.DefaultConfig(pushURL),
	}
}

// Service owns the sync pipeline for one dashboard page: user gesture ->
// dispatcher -> server -> push event -> reconciler -> renderer. The session
// handle is held here rather than in package-level state so ownership is
// explicit.
type Service struct {
	config     Config
	doc        *view.Document
	session    *session.Session
	registry   *rooms.Registry
	state      *state.Manager
	renderer   *view.Renderer
	dispatcher *dispatch.Dispatcher
}

// NewService builds the full pipeline over doc. The document is scanned for
// room markers once, here; reconnects rejoin the same set via connect hooks.
func NewService(config Config) *Service {
	return NewServiceWithDocument(config, view.NewDocument())
}

// NewServiceWithDocument builds the pipeline over a pre-populated document.
func NewServiceWithDocument(config Config, doc *view.Document) *Service {
	client := api.NewClient(config.ServerURL)
	st := state.NewManager()
	renderer := view.NewRenderer(doc)
	sess := session.New(config.Session)
	registry := rooms.NewRegistry(sess)
	dispatcher := dispatch.NewDispatcher(client, st, renderer, doc, config.UserID)

	s := &Service{
		config:     config,
		doc:        doc,
		session:    sess,
		registry:   registry,
		state:      st,
		renderer:   renderer,
		dispatcher: dispatcher,
	}

	registry.ScanDocument(doc)
	sess.OnConnect(registry.JoinAll)
	dispatcher.SetReloadHook(s.Resync)
	s.registerHandlers()
	return s
}

// registerHandlers maps every push event kind onto the reconcile-then-render
// path. One dispatch table, not one ad-hoc handler per event.
func (s *Service) registerHandlers() {
	reconcile := func(env events.Envelope) {
		payload, err := s.state.Apply(env)
		if err != nil {
			log.Warn().Err(err).Str("event", string(env.Event)).Msg("dropping malformed push event")
			return
		}
		s.render(payload)
	}

	for _, event := range []events.EventType{
		events.EventLikeQuiz,
		events.EventUpdateLikes,
		events.EventNewComment,
		events.EventUpdateTimes,
		events.EventUpdateTimer,
	} {
		s.session.On(event, reconcile)
	}

	s.session.On(events.EventError, func(env events.Envelope) {
		log.Error().RawJSON("data", env.Data).Msg("server reported push-channel error")
	})
}

// render projects the slice of state the payload touched onto the document.
func (s *Service) render(payload any) {
	switch p := payload.(type) {
	case events.LikeUpdatePayload:
		if ls, ok := s.state.Likes(p.QuizID); ok {
			s.renderer.RenderLikes(ls)
		}
	case events.CommentPayload:
		s.renderer.RenderComments(p.QuizID, s.state.Comments(p.QuizID))
	case events.ActiveUsersPayload:
		s.renderer.RenderActiveUsers(s.state.ActiveUsers())
	case events.TimerPayload:
		s.renderer.RenderTimer(s.state.TimerSeconds())
	}
}

// Resync re-renders every tracked room from current state and reissues room
// joins, prompting the server to replay authoritative snapshots. Stands in
// for the page reload after a poll vote.
func (s *Service) Resync() {
	for _, id := range s.registry.Rooms() {
		if ls, ok := s.state.Likes(id); ok {
			s.renderer.RenderLikes(ls)
		}
		s.renderer.RenderComments(id, s.state.Comments(id))
	}
	s.renderer.RenderActiveUsers(s.state.ActiveUsers())
	s.renderer.RenderTimer(s.state.TimerSeconds())
	s.registry.JoinAll()
}

// Start runs the session and heartbeat until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().
		Str("server_url", s.config.ServerURL).
		Str("push_url", s.config.PushURL).
		Int("rooms", len(s.registry.Rooms())).
		Msg("starting dashboard sync service")

	go func() {
		if err := s.session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("push session failed")
		}
	}()
	go s.dispatcher.RunHeartbeat(ctx, s.config.HeartbeatInterval)

	<-ctx.Done()
	log.Info().Msg("dashboard sync service shutting down")
	return nil
}

// Dispatcher exposes the command dispatcher for user gestures.
func (s *Service) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// State exposes the reconciled view state.
func (s *Service) State() *state.Manager { return s.state }

// Document exposes the view document.
func (s *Service) Document() *view.Document { return s.doc }

// Rooms exposes the room subscription registry.
func (s *Service) Rooms() *rooms.Registry { return s.registry }

// Session exposes the transport session.
func (s *Service) Session() *session.Session { return s.session }
