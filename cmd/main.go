package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"chat-relay/auth"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included) runs
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := newLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & services
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)
	tokens := auth.NewTokenService(config.JWTSecret, config.TokenDuration)
	authService := services.NewAuthService(userRepository, tokens)
	historyService := services.NewHistoryService(messageRepository, userRepository, log, config.HistoryPageLimit)

	// 4. Relay core
	registry := runtime.NewRegistry()
	typing := runtime.NewTypingTracker()
	presence := runtime.NewPresenceBroadcaster(registry, userRepository, log)
	router := runtime.NewMessageRouter(messageRepository, userRepository, registry, log,
		config.RateLimitInterval, config.MaxTextLength)
	hub := runtime.NewHub(log, tokens, messageRepository, registry, typing, presence, router,
		config.HistoryReplayLimit)

	// 5. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	supervisor.Add(workers.NewLivenessWorker(log, registry, config.LivenessInterval))
	go supervisor.Run(ctx)

	// 7. HTTP & websocket server
	wsServer := ws.NewServer(hub, log, config.ConnectionBufferSize, config.WriteTimeout)
	authHandler := httpapi.NewAuthHandler(authService)
	chatHandler := httpapi.NewChatHandler(historyService, hub)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: httpapi.NewRouter(authHandler, chatHandler, tokens, wsServer.RegisterRoutes),
	}

	// 8. Badger key inspector, behind its flag. Development only.
	if config.InspectPort > 0 {
		inspector := internal.NewInspector(db, func() map[string]any {
			lsm, vlog := db.Size()
			return map[string]any{
				"online_sessions": len(registry.OnlineUsers()),
				"lsm_bytes":       lsm,
				"vlog_bytes":      vlog,
			}
		})
		inspectAddr := fmt.Sprintf("%s:%d", config.Host, config.InspectPort)
		go func() {
			log.Info("Key inspector listening", "address", inspectAddr)
			if err := http.ListenAndServe(inspectAddr, inspector); err != nil {
				log.Error("Key inspector stopped", "err", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	supervisor.Stop()
	return nil
}
