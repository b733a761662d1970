package devserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Server is the development harness for the dashboard sync client. It
// implements the documented interface boundary, five HTTP endpoints plus the
// push channel, over in-memory state.
type Server struct {
	config    *Config
	store     *Store
	hub       *Hub
	countdown *Countdown
	injector  *Injector
}

// NewServer wires a harness from config.
func NewServer(config *Config) (*Server, error) {
	return newServerWithClock(config, clockwork.NewRealClock())
}

func newServerWithClock(config *Config, clock clockwork.Clock) (*Server, error) {
	store := NewStore(clock)
	hub := NewHub(DefaultHubConfig())

	s := &Server{
		config:    config,
		store:     store,
		hub:       hub,
		countdown: NewCountdown(hub, store, clock, config),
	}

	if config.NATSURL != "" {
		injector, err := NewInjector(hub, InjectorConfig{
			URL:     config.NATSURL,
			Subject: config.NATSSubject,
		})
		if err != nil {
			return nil, err
		}
		s.injector = injector
	}

	return s, nil
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/interact", s.handleInteract)
	r.Post("/comment_quiz/{quizID}", s.handleComment)
	r.Post("/submit_poll", s.handleSubmitPoll)
	r.Post("/profile/upload", s.handleUpload)
	r.Post("/track_user_activity", s.handleTrackActivity)
	r.Get("/ws", s.hub.HandleWS)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.config.UploadDir))))

	return cors.AllowAll().Handler(r)
}

// Hub exposes the push hub, mainly for injecting events in tests.
func (s *Server) Hub() *Hub { return s.hub }

// Store exposes the in-memory state.
func (s *Server) Store() *Store { return s.store }

// Start runs the hub, countdown, and optional injector until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	log.Info().Str("addr", s.config.HTTPAddr).Msg("starting dashboard dev harness")

	go s.hub.Start(ctx)
	go s.countdown.Run(ctx)
	if s.injector != nil {
		if err := s.injector.Start(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()
	log.Info().Msg("dev harness shutting down")
	if s.injector != nil {
		s.injector.Stop()
	}
	return nil
}
