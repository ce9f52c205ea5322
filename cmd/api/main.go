package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer srv.Close()

	port := srv.Config.Port
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := srv.App.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", port).Str("health", "http://localhost:"+port+"/health/json").Msg("server running")
	if err := srv.App.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
