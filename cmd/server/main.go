// Package main provides the entry point for the rafflecord server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/rafflecord/internal/bot"
	"github.com/codeGROOVE-dev/rafflecord/internal/config"
	"github.com/codeGROOVE-dev/rafflecord/internal/discord"
	"github.com/codeGROOVE-dev/rafflecord/internal/store"
)

const (
	serverReadTimeout  = 15 * time.Second
	serverWriteTimeout = 15 * time.Second
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Warn("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	exitCode := run(ctx, cancel)
	cancel() // Ensure cleanup before exit
	os.Exit(exitCode)
}

func run(ctx context.Context, cancel context.CancelFunc) int {
	// Load server configuration from environment
	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	slog.Info("configuration loaded",
		"has_discord_bot_token", cfg.DiscordBotToken != "",
		"store_backend", cfg.StoreBackend,
		"history_limit", cfg.HistoryLimit)

	raffleStore, err := newStore(ctx, cfg.StoreBackend)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		return 1
	}
	defer func() {
		if err := raffleStore.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}()

	client, err := discord.New(cfg.DiscordBotToken)
	if err != nil {
		slog.Error("failed to create Discord client", "error", err)
		return 1
	}

	if err := client.Open(); err != nil {
		slog.Error("failed to connect to Discord", "error", err)
		return 1
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close Discord session", "error", err)
		}
	}()

	coordinator := bot.NewCoordinator(bot.CoordinatorConfig{
		Store:              raffleStore,
		Discord:            client,
		Logger:             slog.Default(),
		DefaultTitle:       cfg.Presentation.Title,
		DefaultDescription: cfg.Presentation.Description,
	})

	handler := discord.NewInteractionHandler(client.Session(), coordinator, cfg.HistoryLimit, slog.Default())
	handler.SetupHandler()

	// Register commands globally; every guild the bot joins gets them.
	if err := handler.RegisterCommands(""); err != nil {
		slog.Error("failed to register slash commands", "error", err)
		return 1
	}

	// Create HTTP router
	router := mux.NewRouter()
	router.Use(securityHeadersMiddleware)

	// Health endpoints
	router.HandleFunc("/", healthHandler).Methods("GET")
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.HandleFunc("/healthz", makeHealthzHandler(coordinator)).Methods("GET")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)

	// HTTP server
	eg.Go(func() error {
		slog.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down HTTP server")
		// Fast shutdown for quick handoff during deployments (250ms)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), 250*time.Millisecond)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		cancel()
		return 1
	}

	slog.Info("shutdown complete")
	return 0
}

// newStore picks the persistence backend. The memory backend exists for local
// runs without a document store.
func newStore(ctx context.Context, backend string) (store.Store, error) {
	if backend == "memory" {
		slog.Warn("using in-memory store, raffle state will not survive restarts")
		return store.NewMemoryStore(), nil
	}
	return store.NewFidoStore(ctx)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		slog.Debug("health write error", "error", err)
	}
}

func makeHealthzHandler(coordinator *bot.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		stats := coordinator.Stats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(map[string]int64{
			"raffles_started": stats.RafflesStarted,
			"raffles_ended":   stats.RafflesEnded,
			"redemptions":     stats.Redemptions,
		})
		if err != nil {
			slog.Debug("healthz write error", "error", err)
		}
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}
