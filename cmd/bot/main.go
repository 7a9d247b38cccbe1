package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GintGld/fizteh-radio-bot/internal/app"
	"github.com/GintGld/fizteh-radio-bot/internal/config"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/slogpretty"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env, cfg.Log)

	log.Info("starting bot", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	application, err := app.New(
		log,
		cfg,
		getToken(),
		os.Getenv("STORE_SECRET"),
	)
	if err != nil {
		log.Error("failed to init app", sl.Err(err))
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Error("bot stopped", sl.Err(err))
		application.Stop()
		os.Exit(1)
	}

	application.Stop()
	log.Info("Gracefully stopped")
}

func setupLogger(env string, cfg config.Log) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(logOutput(cfg), &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		panic("unknown env: " + env)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// logOutput returns rotating file if log path is set.
func logOutput(cfg config.Log) io.Writer {
	if cfg.Path == "" {
		return os.Stdout
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
}

func getToken() string {
	token := os.Getenv("TG_TOKEN")

	if token == "" {
		panic("telegram token is not specified")
	}

	return token
}
