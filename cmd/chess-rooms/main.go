package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appcfg "github.com/park285/chess-rooms/internal/config"
	"github.com/park285/chess-rooms/internal/obslog"
	"github.com/park285/chess-rooms/internal/service"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.L().Sync()

	svc, err := service.Build(cfg)
	if err != nil {
		obslog.L().Fatal("service_build_failed", zap.Error(err))
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obslog.L().Info("service_started", zap.String("server_id", cfg.ServerID))

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		obslog.L().Fatal("service_stopped", zap.Error(err))
	}
	obslog.L().Info("service_shutdown")
}
