package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ryotakamura/notefed/internal/auth"
	"github.com/ryotakamura/notefed/internal/config"
	"github.com/ryotakamura/notefed/internal/db"
	"github.com/ryotakamura/notefed/internal/enhance"
	"github.com/ryotakamura/notefed/internal/follow"
	"github.com/ryotakamura/notefed/internal/note"
	"github.com/ryotakamura/notefed/internal/remote"
	"github.com/ryotakamura/notefed/internal/server"
	"github.com/ryotakamura/notefed/internal/storage"
	"github.com/ryotakamura/notefed/internal/webhook"
)

func main() {
	godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()

	files, err := storage.New(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize file storage")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 30*24*time.Hour)
	hooks := webhook.NewDispatcher(cfg.WebhookURL, log.With().Str("component", "webhook").Logger())
	ai := enhance.NewClient(cfg.AIEndpoint)
	peers := remote.NewClient()

	notes := note.NewService(database, files, hooks, ai, cfg.OrderBy,
		log.With().Str("component", "note").Logger())
	follows := follow.NewService(database, peers, cfg.SiteName, cfg.SiteAvatar,
		log.With().Str("component", "follow").Logger())

	srv := server.New(database, jwtManager, notes, follows, files, cfg,
		log.With().Str("component", "http").Logger())

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().Str("addr", addr).Str("db", cfg.DBPath).Msg("starting server")

	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
