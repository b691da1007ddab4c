package sink

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Null accepts every command and renders nothing. Position does not advance.
type Null struct {
	logger zerolog.Logger

	mu      sync.Mutex
	started bool
	status  Status
}

// NewNull returns a Null backend.
func NewNull(logger zerolog.Logger) *Null {
	return &Null{logger: logger.With().Str("component", "null-sink").Logger()}
}

// Start implements Backend.
func (n *Null) Start(context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return false, nil
	}
	n.started = true
	return true, nil
}

// Load implements Backend.
func (n *Null) Load(url string) error {
	n.mu.Lock()
	n.status = Status{}
	n.mu.Unlock()
	n.logger.Info().Str("url", url).Msg("load")
	return nil
}

// SetPaused implements Backend.
func (n *Null) SetPaused(paused bool) error {
	n.logger.Info().Bool("paused", paused).Msg("pause")
	return nil
}

// Seek implements Backend.
func (n *Null) Seek(seconds float64) error {
	n.mu.Lock()
	n.status.Position = seconds
	n.status.EOF = false
	n.mu.Unlock()
	n.logger.Info().Float64("position", seconds).Msg("seek")
	return nil
}

// SetVolume implements Backend.
func (n *Null) SetVolume(percent float64) error {
	n.logger.Info().Float64("volume", percent).Msg("volume")
	return nil
}

// Status implements Backend.
func (n *Null) Status() (Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status, nil
}

// Close implements Backend.
func (n *Null) Close() error {
	n.mu.Lock()
	n.started = false
	n.mu.Unlock()
	return nil
}
