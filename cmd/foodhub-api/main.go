package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BotCoder254/projects254/cmd/foodhub-api/app"
	"github.com/BotCoder254/projects254/configs"
	"github.com/BotCoder254/projects254/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Init(cfg.LogOptions())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(ctx, cfg, env)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("foodhub-api listening", "env", env, "addr", cfg.App.HTTPAddr)
	if err := a.Run(ctx); err != nil {
		logger.Error("server stopped", "err", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("foodhub-api stopped")
}
