package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-chat/auth"
	"marketplace-chat/domain/chat"
	grpcserver "marketplace-chat/infrastructure/grpc/server"
	"marketplace-chat/infrastructure/rest"
	"marketplace-chat/infrastructure/ws"
	"marketplace-chat/internal"
	"marketplace-chat/moderation"
	"marketplace-chat/observability"
	"marketplace-chat/projection"
	"marketplace-chat/repositories"
	"marketplace-chat/runtime"
	"marketplace-chat/runtime/workers"
	"marketplace-chat/services"
	"marketplace-chat/sink"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const timelineSize = 100

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns the lifecycle, so deferred closes of
// Badger and Bluge always execute before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	messageIndex := repositories.NewMessageIndex(blugeWriter, logger)

	// 3. Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(promRegistry)

	// 4. Hub core
	moderator, err := buildModerator(config, charReplacement, logger)
	if err != nil {
		return exitRuntime, err
	}
	events := make(chan chat.MessagePersisted, config.BufferSize)
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(logger, messageRepository, registry, metrics, moderator, events, config.PushTimeout)
	timeline := projection.NewTimeline(timelineSize)

	// 5. Supervision
	supervisor := workers.NewSupervisor(logger, config.RestartInterval).OnRestart(func(name string) {
		metrics.WorkerRestarts.WithLabelValues(name).Inc()
	})
	supervisor.Add(
		workers.NewEventFanout(logger, events, metrics, config.SinkTimeout,
			sink.NewSearchSink(messageIndex, logger), timeline),
		workers.NewTelemetryWorker(logger, registry, metrics, config.MetricInterval),
		workers.NewChannelCapacityWorker(logger, []workers.NamedChannel{
			{Name: "message_persisted", Channel: events},
		}, metrics, config.MetricInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// 6. Transports
	issuer := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	hubService := services.NewHubService(logger, registry, router, metrics)
	hubHandler := ws.NewHandler(logger, hubService, issuer, ws.Options{
		MaxMessageSize:  config.MaxMessageSize,
		BufferSize:      config.ConnectionBufferSize,
		RateLimitBurst:  config.RateLimitBurst,
		RateLimitRefill: config.RateLimitRefillInterval,
		ReplyTimeout:    config.PushTimeout,
		AllowedOrigins:  config.Origins(),
	})

	var inspector http.Handler
	if logger.Enabled(ctx, slog.LevelDebug) {
		inspector = internal.NewInspectHandler(db, logger, internal.MessageMapper, statsProvider(registry, metrics, timeline))
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://%s/debug/inspect", config.HTTPAddress()))
	}

	httpServer := &http.Server{
		Addr: config.HTTPAddress(),
		Handler: rest.NewRouter(logger, rest.Dependencies{
			Auth:           services.NewAuthService(logger, userRepository, issuer),
			Chat:           services.NewChatService(logger, messageRepository, messageIndex, limitOrDefault(config.LimitMessages)),
			Hub:            hubHandler,
			Issuer:         issuer,
			Metrics:        metrics,
			Gatherer:       promRegistry,
			Inspector:      inspector,
			AllowedOrigins: config.Origins(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	healthServer := grpcserver.NewHealthServer(logger)

	grpcListener, err := net.Listen("tcp", config.GrpcAddress())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.GrpcAddress(), err)
	}

	errChan := make(chan error, 2)
	go func() {
		logger.Info("Starting HTTP server", "address", config.HTTPAddress(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		logger.Info("Starting gRPC health server", "address", config.GrpcAddress())
		if err := healthServer.Serve(grpcListener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	healthServer.SetServing(true)

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Graceful shutdown: stop advertising, stop accepting, close hub connections, drain workers
	logger.Info("Shutting down gracefully...")
	healthServer.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := hubHandler.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Hub connections not drained", "error", err)
	}
	healthServer.Stop()
	supervisor.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	// A nil Append error must mean the message is on disk
	options := badger.DefaultOptions(config.BadgerFilepath).WithSyncWrites(true)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}

func buildModerator(config internal.Config, char rune, logger *slog.Logger) (*moderation.Moderator, error) {
	if !config.EnableModeration {
		return nil, nil
	}
	data, err := runtime.LoadCensoredWords()
	if err != nil {
		return nil, fmt.Errorf("loading censored words failed: %w", err)
	}
	logger.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderation.NewModerator(data.Words, char, logger)
}

func statsProvider(registry *runtime.Registry, metrics *observability.Metrics, timeline *projection.Timeline) internal.StatsProvider {
	return func() map[string]any {
		identities, connections := registry.Stats()
		latest := metrics.GetLatest()
		stats := map[string]any{
			"OnlineIdentities": identities,
			"LiveConnections":  connections,
			"Goroutines":       latest.Goroutines,
			"RSSMb":            latest.RSSMb,
			"RecentMessages":   len(timeline.Messages()),
		}
		if recent := timeline.Messages(); len(recent) > 0 {
			stats["LastMessageAt"] = recent[len(recent)-1].CreatedAt.Format(time.RFC3339)
		}
		return stats
	}
}

func limitOrDefault(limit *int) int {
	if limit == nil {
		return 50
	}
	return *limit
}
