// Package app wires the identity store, the room registry and both
// transports into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/linechat/internal/auth"
	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store"
	"github.com/vovakirdan/linechat/internal/store/memory"
	"github.com/vovakirdan/linechat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/linechat/internal/transport/http"
	"github.com/vovakirdan/linechat/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	tcp             *tcp.Server
	http            *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.IdentityStore
	cfg             config.Config
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("identity_store", cfg.IdentityStore).Str("db_path", cfg.DatabasePath).Msg("identity store initialized")

	authService := auth.NewService(st, nil)
	hub := core.NewHub(logger)

	return &App{
		tcp:             tcp.NewServer(*cfg, hub, authService, logger),
		http:            transporthttp.NewServer(hub, authService, *cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		cfg:             *cfg,
		log:             logger,
	}, nil
}

func openStore(cfg *config.Config) (store.IdentityStore, error) {
	switch cfg.IdentityStore {
	case config.IdentityStoreSQLite:
		return sqlite.New(cfg.DatabasePath)
	case config.IdentityStoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownIdentityStore, cfg.IdentityStore)
	}
}

// Hub exposes the room registry.
func (a *App) Hub() *core.Hub {
	return a.hub
}

// Run binds the configured addresses and blocks until context cancellation
// or a fatal error.
func (a *App) Run(ctx context.Context) error {
	tcpLn, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return multierr.Append(fmt.Errorf("listen %s: %w", a.cfg.Addr, err), a.store.Close())
	}
	var httpLn net.Listener
	if a.cfg.HTTPAddr != "" {
		httpLn, err = net.Listen("tcp", a.cfg.HTTPAddr)
		if err != nil {
			return multierr.Combine(
				fmt.Errorf("listen %s: %w", a.cfg.HTTPAddr, err),
				tcpLn.Close(),
				a.store.Close(),
			)
		}
	}
	return a.Serve(ctx, tcpLn, httpLn)
}

// Serve runs both transports on the given listeners; a nil httpLn leaves the
// HTTP side off. When either fails or ctx is cancelled, both are stopped and
// the identity store is closed.
func (a *App) Serve(ctx context.Context, tcpLn, httpLn net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.tcp.Serve(ctx, tcpLn)
	})
	if httpLn != nil {
		a.serveHTTP(ctx, g, httpLn)
	}

	return multierr.Append(g.Wait(), a.cleanup())
}

func (a *App) serveHTTP(ctx context.Context, g *errgroup.Group, httpLn net.Listener) {
	// WebSocket connections are hijacked, so Shutdown does not wait for them;
	// deriving request contexts from ctx ends them instead.
	a.http.BaseContext = func(net.Listener) context.Context { return ctx }

	g.Go(func() error {
		a.log.Info().Str("addr", httpLn.Addr().String()).Msg("http listener started")
		if err := a.http.Serve(httpLn); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.http.Shutdown(shutdownCtx)
	})
}

// cleanup closes the identity store.
func (a *App) cleanup() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
		return fmt.Errorf("close store: %w", err)
	}
	a.log.Info().Msg("store closed")
	return nil
}
