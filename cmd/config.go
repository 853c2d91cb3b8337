package main

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Host           string        `env:"HOST,default=localhost"`
	Port           int           `env:"PORT,default=8080"`
	BadgerFilepath string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	JWTSecret      string        `env:"JWT_SECRET,required=true"`
	TokenDuration  time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	LivenessInterval     time.Duration `env:"LIVENESS_INTERVAL,default=30s"`
	RateLimitInterval    time.Duration `env:"RATE_LIMIT_INTERVAL,default=200ms"`
	MaxTextLength        int           `env:"MAX_TEXT_LENGTH,default=2000"`
	HistoryReplayLimit   int           `env:"HISTORY_REPLAY_LIMIT,default=20"`
	HistoryPageLimit     int           `env:"HISTORY_PAGE_LIMIT,default=50"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=5s"`

	// 0 keeps the badger key inspector disabled. Development only.
	InspectPort int `env:"DEBUG_INSPECT_PORT,default=0"`
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
