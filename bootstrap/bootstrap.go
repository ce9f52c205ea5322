package bootstrap

import (
	"context"
	"fmt"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/config"
	"estate-backend/internal/interfaces/router"
	"estate-backend/internal/pkg/logger"
	"estate-backend/internal/platform"

	"github.com/rs/zerolog/log"
)

// Server is a configured app with its backends.
type Server struct {
	Config   *config.Config
	Platform *platform.Client
	App      *router.App
}

// New loads configuration, connects the platform, bootstraps the main admin and builds the app.
// The serverless handler and cmd/api share it.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	pc, err := platform.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := router.CreateApp(cfg, pc)
	_, err = app.Admins.EnsureMainAdmin(ctx, admins.MainAdmin{
		Email:     cfg.MainAdminEmail,
		Password:  cfg.MainAdminPassword,
		FirstName: cfg.MainAdminFirstName,
		LastName:  cfg.MainAdminLastName,
	})
	if err != nil {
		app.Close()
		_ = pc.Close()
		return nil, fmt.Errorf("bootstrap main admin: %w", err)
	}
	return &Server{Config: cfg, Platform: pc, App: app}, nil
}

// Close stops the listeners and releases the backends.
func (s *Server) Close() {
	s.App.Close()
	if err := s.Platform.Close(); err != nil {
		log.Warn().Err(err).Msg("platform close")
	}
}
