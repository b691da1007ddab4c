package cmd

import (
	"github.com/jfmyers9/yamp/internal/config"
	"github.com/jfmyers9/yamp/internal/daemon"
	"github.com/jfmyers9/yamp/internal/store"
	"github.com/jfmyers9/yamp/pkg/ymusic"
)

// catalogSession is a catalog client plus the store it reads its token from.
type catalogSession struct {
	catalog *ymusic.Client
	store   store.Store
}

func openCatalog(cfg *config.Config) (*catalogSession, error) {
	st, err := daemon.OpenStore(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	tokens, err := daemon.OpenTokens(cfg.Token.Backend, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	catalog, err := daemon.NewCatalog(cfg.Catalog, tokens, setupLogger(logFile, logLevel))
	if err != nil {
		st.Close()
		return nil, err
	}
	return &catalogSession{catalog: catalog, store: st}, nil
}

func (s *catalogSession) Close() error {
	return s.store.Close()
}
