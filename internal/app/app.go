package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arhamfareed106/Social-Network-Platform/internal/auth"
	"github.com/arhamfareed106/Social-Network-Platform/internal/config"
	"github.com/arhamfareed106/Social-Network-Platform/internal/core"
	"github.com/arhamfareed106/Social-Network-Platform/internal/presence"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store/files"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store/sqlite"
	transporthttp "github.com/arhamfareed106/Social-Network-Platform/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	presence        *presence.Tracker
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	blobs := files.NewDisk(cfg.MediaRoot)
	st, err := sqlite.New(cfg.DatabasePath, blobs)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().
		Str("db_path", cfg.DatabasePath).
		Str("media_root", blobs.Root()).
		Msg("storage initialized")

	authService := auth.NewService(JWTConfig(cfg))
	tracker := presence.NewTracker(st, logger)
	hub := core.NewHub(logger)
	server := transporthttp.NewServer(hub, authService, st, tracker, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		presence:        tracker,
		store:           st,
		log:             logger,
	}, nil
}

// JWTConfig derives token settings from the server configuration.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	// No connection survives a restart, so nobody can still be online.
	if err := a.presence.Reset(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to reset presence")
	}

	// Handlers inherit ctx so open websockets unwind on shutdown.
	a.server.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	a.hub.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
