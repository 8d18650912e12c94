package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomrelay/internal/logging"
	"github.com/Tyrowin/roomrelay/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	config := server.NewConfigFromEnv().Sanitized()

	logger, err := logging.New(config.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if config.JWT.UsesDefaultSecret() {
		logger.Warn("JWT_SECRET is not set; signing with the insecure development default")
	}

	hub := server.NewHub(server.NewRegistry(), logger)
	server.StartHub(hub)

	router := server.NewRouter(config, hub, logger)
	httpServer := server.CreateServer(config.Port, router)

	go func() {
		if err := server.StartServer(httpServer, logger); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"relay": func(_ context.Context) error {
				if err := server.ShutdownServer(httpServer, shutdownTimeout/2, logger); err != nil {
					return err
				}
				return hub.Shutdown(shutdownTimeout / 2)
			},
		},
	)

	exitCode := <-wait
	logger.Info("relay exited", zap.Int("code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)
}
