package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// InjectorConfig holds the NATS settings for the event injector.
type InjectorConfig struct {
	URL     string
	Subject string // e.g. "quizdash.events.*", last token is the room id
}

// Injector forwards envelopes published on a NATS subject into push-channel
// rooms. It exists so development tooling can drive the client with
// arbitrary server events without touching the HTTP surface. The room id is
// the final subject token; the token "all" fans out to every connection.
type Injector struct {
	hub    *Hub
	nc     *nats.Conn
	sub    *nats.Subscription
	config InjectorConfig
}

// NewInjector connects to NATS. Subscription starts with Start.
func NewInjector(hub *Hub, config InjectorConfig) (*Injector, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Injector{hub: hub, nc: nc, config: config}, nil
}

// Start subscribes and forwards until Stop or ctx cancellation.
func (i *Injector) Start(ctx context.Context) error {
	sub, err := i.nc.Subscribe(i.config.Subject, i.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", i.config.Subject, err)
	}
	i.sub = sub

	log.Info().Str("subject", i.config.Subject).Msg("event injector subscribed")

	go func() {
		<-ctx.Done()
		i.Stop()
	}()
	return nil
}

// Stop drains the subscription and closes the connection.
func (i *Injector) Stop() {
	if i.sub != nil {
		if err := i.sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe injector")
		}
		i.sub = nil
	}
	if i.nc != nil && !i.nc.IsClosed() {
		i.nc.Close()
	}
}

func (i *Injector) handleMessage(msg *nats.Msg) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable injected event")
		return
	}

	tokens := strings.Split(msg.Subject, ".")
	room := tokens[len(tokens)-1]

	if room == "" || room == "all" {
		i.hub.BroadcastAll(env)
	} else {
		i.hub.BroadcastToRoom(events.RoomID(room), env)
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("event", string(env.Event)).
		Msg("injected event forwarded")
}
