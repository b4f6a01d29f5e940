// Meeps is the lean persona: same mirror and sweep surface as Weeps, no
// LLM, analytics or HTTP endpoint.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"weeps/internal/config"
	"weeps/internal/discord"
	"weeps/internal/store"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.Warn("failed loading .env file", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed loading config", "err", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	st, err := store.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("unable to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	bot, err := discord.New("Meeps", cfg, st, nil, nil, log)
	if err != nil {
		log.Error("failed to create discord bot", "err", err)
		os.Exit(1)
	}

	if err := bot.Start(); err != nil {
		log.Error("failed to start discord bot", "err", err)
		os.Exit(1)
	}
	defer bot.Close()

	log.Info("Meeps is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}
