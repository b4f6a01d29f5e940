package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/posthog/posthog-go"

	"weeps/internal/config"
	"weeps/internal/discord"
	"weeps/internal/llm"
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

	log := newLogger(cfg)
	slog.SetDefault(log)

	var analytics posthog.Client
	if cfg.PosthogKey != "" {
		analytics, err = posthog.NewWithConfig(
			cfg.PosthogKey,
			posthog.Config{Endpoint: "https://us.i.posthog.com"},
		)
		if err != nil {
			log.Warn("posthog disabled", "err", err)
			analytics = nil
		} else {
			defer analytics.Close()
		}
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("unable to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	llmClient, err := llm.Init(ctx, "Weeps", st)
	if err != nil {
		log.Error("failed to initialize llm", "err", err)
		os.Exit(1)
	}

	bot, err := discord.New("Weeps", cfg, st, llmClient, analytics, log)
	if err != nil {
		log.Error("failed to create discord bot", "err", err)
		os.Exit(1)
	}

	go startHTTPServer(cfg.Port, st, log)

	if err := bot.Start(); err != nil {
		log.Error("failed to start discord bot", "err", err)
		os.Exit(1)
	}
	defer bot.Close()

	log.Info("Weeps is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func startHTTPServer(port string, st *store.Store, log *slog.Logger) {
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := st.Health(ctx); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "OK")
	})

	log.Info("starting http server", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error("failed to start http server", "err", err)
	}
}
