package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/agenthands/medscan/internal/ocr/tesseract"
	"github.com/agenthands/medscan/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadWithEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.Info("no .env file found, using environment and config only")
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	svc, closeArchive := server.Build(ctx, cfg, server.BuildOptions{
		Tesseract: tesseract.New(cfg.OCR.Languages),
		Logger:    logger,
	})
	defer closeArchive(context.Background())

	return server.New(svc, logger, server.WithLimits(cfg.Limits)).Serve(ctx, cfg.Services)
}
