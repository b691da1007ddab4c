package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultProgressInterval is how often progress is reported while playing.
const DefaultProgressInterval = 200 * time.Millisecond

// unarmedEOFPolls is how many consecutive end-of-file polls of a track that
// never reported otherwise count as a real end.
const unarmedEOFPolls = 5

// Bridge fronts a Backend with the command set the coordinator uses. The
// backend is started on the first command.
type Bridge struct {
	backend  Backend
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	initialized bool
	loaded      string
	playing     bool
	ended       bool
	// armed is set once the loaded track reported a non-EOF status, so a
	// stale end flag from the previous track is not mistaken for this one.
	armed    bool
	eofPolls int

	pull chan struct{}
}

// NewBridge creates a Bridge. A non-positive interval uses
// DefaultProgressInterval.
func NewBridge(backend Backend, interval time.Duration, logger zerolog.Logger) *Bridge {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Bridge{
		backend:  backend,
		interval: interval,
		logger:   logger.With().Str("component", "sink").Logger(),
		pull:     make(chan struct{}, 1),
	}
}

// Initialized reports whether the backend has been started.
func (b *Bridge) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// ensure starts the backend. Must be called with lock held.
func (b *Bridge) ensure(ctx context.Context) error {
	fresh, err := b.backend.Start(ctx)
	if err != nil {
		return fmt.Errorf("start sink: %w", err)
	}
	if fresh {
		if b.initialized {
			b.logger.Warn().Msg("Sink restarted, dropping loaded track")
		}
		b.loaded = ""
		b.playing = false
		b.ended = false
		b.disarm()
	}
	b.initialized = true
	return nil
}

func (b *Bridge) disarm() {
	b.armed = false
	b.eofPolls = 0
}

// Play plays url. When url is already loaded playback continues from the
// current position, or from the start if the track had ended.
func (b *Bridge) Play(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensure(ctx); err != nil {
		return err
	}

	if url == b.loaded {
		if b.ended {
			if err := b.backend.Seek(0); err != nil {
				return fmt.Errorf("rewind: %w", err)
			}
			b.disarm()
		}
	} else {
		if err := b.backend.Load(url); err != nil {
			return fmt.Errorf("load: %w", err)
		}
		b.loaded = url
		b.disarm()
	}

	if err := b.backend.SetPaused(false); err != nil {
		return fmt.Errorf("unpause: %w", err)
	}
	b.playing = true
	b.ended = false
	b.logger.Debug().Str("url", url).Msg("Playing")
	return nil
}

// Pause pauses playback. It is a no-op before the sink is initialized.
func (b *Bridge) Pause(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}
	if err := b.ensure(ctx); err != nil {
		return err
	}
	if b.loaded == "" {
		return nil
	}
	if err := b.backend.SetPaused(true); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	b.playing = false
	return nil
}

// Resume continues the loaded track. It returns ErrNothingLoaded when no
// track is loaded.
func (b *Bridge) Resume(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensure(ctx); err != nil {
		return err
	}
	if b.loaded == "" {
		return ErrNothingLoaded
	}
	if b.ended {
		if err := b.backend.Seek(0); err != nil {
			return fmt.Errorf("rewind: %w", err)
		}
		b.ended = false
		b.disarm()
	}
	if err := b.backend.SetPaused(false); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	b.playing = true
	return nil
}

// Seek moves to t seconds.
func (b *Bridge) Seek(ctx context.Context, t float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensure(ctx); err != nil {
		return err
	}
	if b.loaded == "" {
		return nil
	}
	if t < 0 {
		t = 0
	}
	if err := b.backend.Seek(t); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	b.ended = false
	return nil
}

// SetVolume sets the output level, 0 (mute) to 1 (full).
func (b *Bridge) SetVolume(ctx context.Context, level float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensure(ctx); err != nil {
		return err
	}
	switch {
	case level < 0:
		level = 0
	case level > 1:
		level = 1
	}
	if err := b.backend.SetVolume(level * 100); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

// QueryInfo asks Run to report progress now, even when paused.
func (b *Bridge) QueryInfo() {
	select {
	case b.pull <- struct{}{}:
	default:
	}
}

// Run polls the backend and relays progress to r until ctx is done.
func (b *Bridge) Run(ctx context.Context, r Reporter) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.poll(r, false)
		case <-b.pull:
			b.poll(r, true)
		}
	}
}

func (b *Bridge) poll(r Reporter, force bool) {
	b.mu.Lock()
	if !b.initialized || b.loaded == "" || (!b.playing && !force) {
		b.mu.Unlock()
		return
	}
	url := b.loaded
	b.mu.Unlock()

	st, err := b.backend.Status()
	if err != nil {
		b.logger.Debug().Err(err).Msg("Status query failed")
		return
	}

	b.mu.Lock()
	if url != b.loaded {
		b.mu.Unlock()
		return
	}
	endedNow := false
	if st.EOF {
		b.eofPolls++
		if (b.armed || b.eofPolls >= unarmedEOFPolls) && b.playing && !b.ended {
			b.ended = true
			b.playing = false
			endedNow = true
		}
	} else {
		b.armed = true
		b.eofPolls = 0
	}
	b.mu.Unlock()

	if endedNow {
		b.logger.Debug().Str("url", url).Msg("Track ended")
		r.ReportEnded()
		return
	}
	r.ReportProgress(st.Position, st.Duration)
}

// Close shuts the backend down.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil
	}
	b.initialized = false
	b.loaded = ""
	b.playing = false
	return b.backend.Close()
}
