package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "coordinador/configs"
	"coordinador/pkg/api"
	"coordinador/pkg/coordinator"
	"coordinador/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	zl, err := logger.Init(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "coordinador",
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	coord := coordinator.New(cfg.PapeletaCloseDelay, zl)

	server := api.NewServer(api.Config{
		Addr:           net.JoinHostPort(cfg.Host, cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		Coordinator:    coord,
		Logger:         zl,
	})

	go func() {
		if err := server.Start(); err != nil {
			zl.Fatal("server error", zap.Error(err))
		}
	}()
	zl.Info("sistema de votacion listo para recibir conexiones",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.Duration("papeletaCloseDelay", cfg.PapeletaCloseDelay))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	zl.Info("señal recibida, iniciando apagado", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown error", zap.Error(err))
	}
}
