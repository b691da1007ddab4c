package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jfmyers9/yamp/internal/auth"
	"github.com/jfmyers9/yamp/internal/config"
	"github.com/jfmyers9/yamp/internal/sink"
	"github.com/jfmyers9/yamp/internal/store"
	"github.com/jfmyers9/yamp/pkg/ymusic"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// OpenStore opens the snapshot store selected by backend under dataDir.
func OpenStore(backend, dataDir string) (store.Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	switch backend {
	case config.StorageSQLite, "":
		return store.OpenSQLite(filepath.Join(dataDir, "yamp.db"))
	case config.StorageFile:
		return store.OpenFile(afero.NewOsFs(), filepath.Join(dataDir, "state.json"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// OpenTokens returns the token store selected by backend.
func OpenTokens(backend string, st store.Store) (auth.TokenStore, error) {
	switch backend {
	case config.TokenStore, "":
		return auth.NewKVStore(st), nil
	case config.TokenKeyring:
		return auth.NewKeyringStore(), nil
	default:
		return nil, fmt.Errorf("unknown token backend %q", backend)
	}
}

// catalogLogger adapts zerolog to the catalog client's logger.
type catalogLogger struct {
	logger zerolog.Logger
}

func (l catalogLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// NewCatalog creates a catalog client authorized by tokens.
func NewCatalog(cfg config.CatalogConfig, tokens auth.TokenStore, logger zerolog.Logger) (*ymusic.Client, error) {
	return ymusic.NewClient(ymusic.Config{
		TokenSource: auth.TokenSource(tokens),
		BaseURL:     cfg.BaseURL,
		RateLimit:   cfg.RateLimit,
		Logger:      catalogLogger{logger: logger.With().Str("component", "catalog").Logger()},
	})
}

// NewBackend returns the audio backend selected by cfg.
func NewBackend(cfg config.SinkConfig, logger zerolog.Logger) (sink.Backend, error) {
	switch cfg.Backend {
	case config.SinkMPV, "":
		return sink.NewMPV(cfg.MPVPath, logger), nil
	case config.SinkNull:
		return sink.NewNull(logger), nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}
}
