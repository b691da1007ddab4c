// Package daemon assembles and runs the playback coordinator process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jfmyers9/yamp/internal/api"
	"github.com/jfmyers9/yamp/internal/auth"
	"github.com/jfmyers9/yamp/internal/config"
	"github.com/jfmyers9/yamp/internal/discord"
	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/jfmyers9/yamp/internal/sink"
	"github.com/jfmyers9/yamp/internal/store"
	"github.com/rs/zerolog"
)

// Daemon owns the coordinator and everything wired around it
type Daemon struct {
	config   *config.Config
	store    store.Store
	bridge   *sink.Bridge
	coord    *playback.Coordinator
	server   *api.Server
	presence *discord.Presence
	logger   zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg *config.Config, logger zerolog.Logger) (*Daemon, error) {
	st, err := OpenStore(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	d, err := assemble(cfg, st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	return d, nil
}

func assemble(cfg *config.Config, st store.Store, logger zerolog.Logger) (*Daemon, error) {
	tokens, err := OpenTokens(cfg.Token.Backend, st)
	if err != nil {
		return nil, err
	}

	catalog, err := NewCatalog(cfg.Catalog, tokens, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	backend, err := NewBackend(cfg.Sink, logger)
	if err != nil {
		return nil, err
	}
	bridge := sink.NewBridge(backend, cfg.Sink.ProgressInterval, logger)

	capturer := auth.NewCapturer(cfg.OAuth.ClientID, logger)

	coord := playback.New(playback.Config{
		Resolver:    catalog.Tracks(),
		Sink:        bridge,
		Snapshots:   store.NewSnapshots(st),
		Credentials: tokens,
		Login:       capturer,
		Logger:      logger,
	})

	d := &Daemon{
		config: cfg,
		store:  st,
		bridge: bridge,
		coord:  coord,
		server: api.NewServer(coord, capturer, logger),
		logger: logger.With().Str("component", "daemon").Logger(),
	}
	if cfg.Discord.AppID != "" {
		d.presence = discord.New(cfg.Discord.AppID, logger)
	}
	return d, nil
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// run starts every component and waits for them to stop. A failing API
// listener stops the rest.
func (d *Daemon) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.logger.Info().
		Str("listen", d.config.API.Listen).
		Str("storage", d.config.Storage.Backend).
		Str("sink", d.config.Sink.Backend).
		Msg("Starting daemon")

	var wg sync.WaitGroup
	var serveErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.coord.Run(ctx); err != nil {
			d.logger.Error().Err(err).Msg("Coordinator error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.bridge.Run(ctx, d.coord)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.server.ListenAndServe(ctx, d.config.API.Listen); err != nil {
			d.logger.Error().Err(err).Msg("API server error")
			serveErr = err
			cancel()
		}
	}()

	if d.presence != nil {
		sub := d.coord.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.presence.Run(ctx, sub)
		}()
	}

	wg.Wait()
	d.logger.Info().Msg("Daemon stopped")
	return serveErr
}

// Shutdown releases the audio sink and the store
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	if err := d.bridge.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to stop audio sink")
	}
	if err := d.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
