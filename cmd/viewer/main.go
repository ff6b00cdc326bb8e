package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"marketplace-chat/internal"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromLevel(slog.LevelInfo)

	// 2. Open Badger in Read-Only mode
	// BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Serve the inspector only, no hub is running here
	viewerStats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Time":   time.Now().Format(time.RFC822),
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/inspect", internal.NewInspectHandler(db, logger, internal.MessageMapper, viewerStats))

	logger.Info("Viewer started", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
	if err := http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", config.DebugPort), mux); err != nil {
		log.Fatalf("Viewer stopped: %v", err)
	}
}
