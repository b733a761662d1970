package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard"
	"github.com/mcdev12/quizdash/go/internal/dashboard/view"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := getEnv("QUIZDASH_CONFIG", "quizdash.yaml")
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}

	svcCfg := dashboard.DefaultConfig(cfg.ServerURL, cfg.PushURL, cfg.UserID)
	svcCfg.HeartbeatInterval = cfg.heartbeatInterval()

	doc := buildDocument(cfg.Rooms)
	service := dashboard.NewServiceWithDocument(svcCfg, doc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := service.Start(ctx); err != nil {
			log.Error().Err(err).Msg("dashboard service failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	cancel()
}

// buildDocument assembles the dashboard page skeleton for the configured
// rooms, using the id contract the renderer targets.
func buildDocument(roomIDs []string) *view.Document {
	doc := view.NewDocument()
	root := doc.Root()

	for _, id := range roomIDs {
		section := doc.CreateElement("section")
		section.SetAttr(view.AttrRoomMarker, id)
		section.SetAttr("id", fmt.Sprintf("quiz-%s", id))

		section.AppendChild(doc.CreateElement("span").SetAttr("id", fmt.Sprintf("like-count-%s", id)).SetText("0"))
		section.AppendChild(doc.CreateElement("ul").SetAttr("id", fmt.Sprintf("likes-list-%s", id)))
		section.AppendChild(doc.CreateElement("div").
			SetAttr("id", fmt.Sprintf("likes-modal-%s", id)).
			SetAttr("style", "display:none"))
		section.AppendChild(doc.CreateElement("ul").SetAttr("class", "comments-list"))
		section.AppendChild(doc.CreateElement("input").SetAttr("id", fmt.Sprintf("comment-input-%s", id)))

		root.AppendChild(section)
	}

	root.AppendChild(doc.CreateElement("div").SetAttr("id", "questions-container"))
	root.AppendChild(doc.CreateElement("span").SetAttr("id", "quiz-timer").SetText(view.FormatCountdown(0)))
	root.AppendChild(doc.CreateElement("ul").SetAttr("id", "active-users-list"))
	root.AppendChild(doc.CreateElement("img").SetAttr("id", "profilePicture"))

	return doc
}
