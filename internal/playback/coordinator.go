// Package playback owns the playback state machine. A single goroutine
// drains an event queue and applies one transition at a time; network work
// runs beside it and re-enters the queue as internal events.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfmyers9/yamp/internal/sink"
	"github.com/jfmyers9/yamp/internal/store"
	"github.com/rs/zerolog"
)

var (
	// ErrNoActivePlaylist is reported when a play is requested without a
	// track list in memory or in the snapshot store.
	ErrNoActivePlaylist = errors.New("no active playlist")

	// ErrPlaylistMismatch is reported when a play names a playlist other
	// than the active one and the stored snapshot does not match either.
	ErrPlaylistMismatch = errors.New("requested playlist is not active")

	// ErrIndexOutOfRange is reported for a play index outside the track list.
	ErrIndexOutOfRange = errors.New("track index out of range")

	// ErrNoTracks is reported when resume is requested with no track list.
	ErrNoTracks = errors.New("no tracks loaded")

	// ErrStopped is returned by Dispatch once the coordinator has stopped.
	ErrStopped = errors.New("coordinator stopped")
)

// Resolver turns a track id into a playable URL.
type Resolver interface {
	ResolveURL(ctx context.Context, trackID string) (string, error)
}

// Sink is the audio sink bridge.
type Sink interface {
	Initialized() bool
	Play(ctx context.Context, url string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Seek(ctx context.Context, t float64) error
	SetVolume(ctx context.Context, level float64) error
	QueryInfo()
}

// Snapshots persists the durable state and per-playlist last index.
type Snapshots interface {
	Load(ctx context.Context) (*store.Snapshot, error)
	Save(ctx context.Context, snap store.Snapshot) error
	SetLastIndex(ctx context.Context, playlistID string, index int) error
}

// Credentials is the token store.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
}

// Login starts a browser login and yields the captured token once.
type Login interface {
	Begin(ctx context.Context) (<-chan string, error)
}

// Config holds the coordinator collaborators.
type Config struct {
	Resolver    Resolver
	Sink        Sink
	Snapshots   Snapshots
	Credentials Credentials
	Login       Login // Optional
	Logger      zerolog.Logger
	QueueSize   int // Optional: defaults to 64
}

// Coordinator applies events to the PlaybackState.
type Coordinator struct {
	resolver  Resolver
	sink      Sink
	snapshots Snapshots
	creds     Credentials
	login     Login
	logger    zerolog.Logger
	hub       *Hub

	events chan Event
	done   chan struct{}

	// Owned by the Run goroutine.
	state     PlaybackState
	seq       uint64
	lastSaved *store.Snapshot

	// resolveFailed is set when the last play could not be resolved; the
	// sink then still holds the previous track.
	resolveFailed bool
}

// New creates a Coordinator. Call Run to start processing events.
func New(cfg Config) *Coordinator {
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &Coordinator{
		resolver:  cfg.Resolver,
		sink:      cfg.Sink,
		snapshots: cfg.Snapshots,
		creds:     cfg.Credentials,
		login:     cfg.Login,
		logger:    cfg.Logger.With().Str("component", "coordinator").Logger(),
		hub:       NewHub(),
		events:    make(chan Event, size),
		done:      make(chan struct{}),
	}
}

// Subscribe registers a broadcast listener.
func (c *Coordinator) Subscribe() *Subscription {
	return c.hub.Subscribe()
}

// Unsubscribe removes a broadcast listener.
func (c *Coordinator) Unsubscribe(sub *Subscription) {
	c.hub.Unsubscribe(sub)
}

// Dispatch queues ev. It blocks while the queue is full.
func (c *Coordinator) Dispatch(ctx context.Context, ev Event) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns a copy of the current state.
func (c *Coordinator) View(ctx context.Context) (View, error) {
	q := viewQuery{reply: make(chan View, 1)}
	if err := c.Dispatch(ctx, q); err != nil {
		return View{}, err
	}
	select {
	case v := <-q.reply:
		return v, nil
	case <-c.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// ReportProgress implements sink.Reporter. Reports are dropped while the
// queue is full.
func (c *Coordinator) ReportProgress(currentTime, duration float64) {
	select {
	case c.events <- ProgressReport{CurrentTime: currentTime, Duration: duration}:
	default:
	}
}

// ReportEnded implements sink.Reporter.
func (c *Coordinator) ReportEnded() {
	select {
	case c.events <- TrackEnded{}:
	case <-c.done:
	}
}

var _ sink.Reporter = (*Coordinator)(nil)

// Run restores the durable state, resumes playback if it was active and then
// processes events until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	defer func() {
		close(c.done)
		c.hub.Close()
	}()

	if ev := c.restore(ctx); ev != nil {
		c.logger.Info().Int("index", ev.Index).Str("playlist", ev.PlaylistID).Msg("Resuming playback after restart")
		if !c.handlePlayAt(ctx, *ev) {
			// Persist the degraded state so the snapshot stops claiming playback.
			c.commit(ctx)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// post queues an internal event from a helper goroutine.
func (c *Coordinator) post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case SetPlaylist:
		c.handleSetPlaylist(ctx, e)
	case PlayAt:
		c.handlePlayAt(ctx, e)
	case resolved:
		c.handleResolved(ctx, e)
	case Next:
		c.step(ctx, 1)
	case TrackEnded:
		c.step(ctx, 1)
	case Previous:
		c.step(ctx, -1)
	case Pause:
		c.handlePause(ctx)
	case ResumeOrPlayCurrent:
		c.handleResume(ctx)
	case SetVolume:
		if err := c.sink.SetVolume(ctx, e.Value); err != nil {
			c.report("set_volume", err)
		}
	case Seek:
		if err := c.sink.Seek(ctx, e.Value); err != nil {
			c.report("seek", err)
		}
	case ProgressReport:
		c.state.CurrentTime = e.CurrentTime
		c.state.Duration = e.Duration
		c.publishState()
	case GetStateSnapshot:
		if c.sink.Initialized() {
			c.sink.QueryInfo()
		}
		c.publishState()
	case OpenOAuth:
		c.handleOpenOAuth(ctx)
	case TokenCaptured:
		c.handleTokenCaptured(ctx, e)
	case viewQuery:
		e.reply <- c.state.View()
	default:
		c.logger.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("Unknown event")
	}
}

func (c *Coordinator) handleSetPlaylist(ctx context.Context, e SetPlaylist) {
	c.state.TrackIDs = append([]string(nil), e.TrackIDs...)
	c.state.PlaylistID = e.PlaylistID
	c.state.FullTrackInfo = nil
	switch {
	case len(e.FullTrackInfo) == len(e.TrackIDs):
		c.state.FullTrackInfo = append([]TrackInfo(nil), e.FullTrackInfo...)
	case len(e.FullTrackInfo) > 0:
		c.logger.Warn().
			Int("tracks", len(e.TrackIDs)).
			Int("info", len(e.FullTrackInfo)).
			Msg("Track info not aligned with track list, dropping it")
	}
	c.logger.Debug().Str("playlist", e.PlaylistID).Int("tracks", len(e.TrackIDs)).Msg("Playlist set")
	c.commit(ctx)
}

// needsReload reports whether the in-memory track list cannot be trusted for
// a play of playlistID.
func (c *Coordinator) needsReload(playlistID string) bool {
	s := &c.state
	return len(s.TrackIDs) == 0 ||
		len(s.FullTrackInfo) == 0 ||
		s.PlaylistID == "" ||
		playlistID == "" ||
		playlistID != s.PlaylistID
}

// handlePlayAt validates e and starts resolving its track. It reports
// whether a resolution was issued.
func (c *Coordinator) handlePlayAt(ctx context.Context, e PlayAt) bool {
	if c.needsReload(e.PlaylistID) {
		c.reload(ctx)
	}

	target := e.PlaylistID
	if target == "" {
		target = c.state.PlaylistID
	}
	if len(c.state.TrackIDs) == 0 || target == "" {
		c.report("play", ErrNoActivePlaylist)
		return false
	}
	if c.state.PlaylistID != "" && target != c.state.PlaylistID {
		c.report("play", fmt.Errorf("%w: %s", ErrPlaylistMismatch, target))
		return false
	}

	if _, err := c.creds.Token(ctx); err != nil {
		c.report("play", err)
		return false
	}

	if e.Index < 0 || e.Index >= len(c.state.TrackIDs) {
		c.report("play", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, e.Index, len(c.state.TrackIDs)))
		return false
	}

	c.seq++
	req := resolved{
		seq:        c.seq,
		index:      e.Index,
		trackID:    c.state.TrackIDs[e.Index],
		playlistID: target,
	}
	c.logger.Debug().Uint64("seq", req.seq).Int("index", req.index).Str("track", req.trackID).Msg("Resolving track")

	go func() {
		req.url, req.err = c.resolver.ResolveURL(ctx, req.trackID)
		c.post(req)
	}()
	return true
}

func (c *Coordinator) handleResolved(ctx context.Context, r resolved) {
	if r.seq != c.seq {
		c.logger.Debug().Uint64("seq", r.seq).Uint64("latest", c.seq).Msg("Discarding superseded track resolution")
		return
	}
	if r.index >= len(c.state.TrackIDs) || c.state.TrackIDs[r.index] != r.trackID {
		c.logger.Warn().Int("index", r.index).Str("track", r.trackID).Msg("Track list changed during resolution, discarding")
		return
	}

	changed := r.index != c.state.CurrentIndex || r.playlistID != c.state.PlaylistID
	c.state.CurrentIndex = r.index
	c.state.PlaylistID = r.playlistID

	err := r.err
	if err == nil {
		err = c.sink.Play(ctx, r.url)
	}
	if err != nil {
		c.state.IsPlaying = false
		if c.sink.Initialized() {
			if perr := c.sink.Pause(ctx); perr != nil {
				c.logger.Warn().Err(perr).Msg("Failed to pause sink after failed play")
			}
		}
		c.resolveFailed = true
		c.report("play", fmt.Errorf("track resolution failed: %w", err))
		c.commit(ctx)
		return
	}

	c.resolveFailed = false
	c.state.IsPlaying = true
	if changed {
		c.state.CurrentTime = 0
		c.state.Duration = 0
	}
	c.logger.Info().Int("index", r.index).Str("track", r.trackID).Str("playlist", r.playlistID).Msg("Playing")
	c.commit(ctx)

	if err := c.snapshots.SetLastIndex(ctx, r.playlistID, r.index); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record last index")
	}
}

func (c *Coordinator) step(ctx context.Context, delta int) {
	n := len(c.state.TrackIDs)
	if n == 0 {
		return
	}
	next := ((c.state.CurrentIndex+delta)%n + n) % n
	c.handlePlayAt(ctx, PlayAt{Index: next, PlaylistID: c.state.PlaylistID})
}

func (c *Coordinator) handlePause(ctx context.Context) {
	if err := c.sink.Pause(ctx); err != nil {
		c.report("pause", err)
	}
	c.state.IsPlaying = false
	c.commit(ctx)
}

func (c *Coordinator) handleResume(ctx context.Context) {
	if c.state.IsPlaying {
		return
	}
	if len(c.state.TrackIDs) == 0 {
		c.logger.Warn().Msg("Resume requested without a loaded playlist")
		c.report("resume", ErrNoTracks)
		return
	}

	if c.resolveFailed {
		c.handlePlayAt(ctx, PlayAt{Index: c.state.CurrentIndex, PlaylistID: c.state.PlaylistID})
		return
	}

	err := c.sink.Resume(ctx)
	if errors.Is(err, sink.ErrNothingLoaded) {
		c.handlePlayAt(ctx, PlayAt{Index: c.state.CurrentIndex, PlaylistID: c.state.PlaylistID})
		return
	}
	if err != nil {
		c.report("resume", err)
		return
	}
	c.state.IsPlaying = true
	c.commit(ctx)
}

func (c *Coordinator) handleOpenOAuth(ctx context.Context) {
	if c.login == nil {
		c.report("open_oauth", errors.New("login is not configured"))
		return
	}
	tokens, err := c.login.Begin(ctx)
	if err != nil {
		c.report("open_oauth", err)
		return
	}
	go func() {
		select {
		case tok, ok := <-tokens:
			if ok && tok != "" {
				c.post(TokenCaptured{Token: tok})
			}
		case <-ctx.Done():
		}
	}()
}

func (c *Coordinator) handleTokenCaptured(ctx context.Context, e TokenCaptured) {
	if err := c.creds.SetToken(ctx, e.Token); err != nil {
		c.report("store_token", err)
		return
	}
	c.logger.Info().Msg("Token stored")
	c.hub.Publish(Message{Action: ActionTokenUpdated})
}

// commit persists the durable projection when it changed and broadcasts
// the full state.
func (c *Coordinator) commit(ctx context.Context) {
	snap := c.state.Durable()
	if c.lastSaved == nil || !c.lastSaved.Equal(snap) {
		if err := c.snapshots.Save(ctx, snap); err != nil {
			c.report("persist", err)
		} else {
			c.lastSaved = &snap
		}
	}
	c.publishState()
}

func (c *Coordinator) publishState() {
	v := c.state.View()
	c.hub.Publish(Message{Action: ActionStateUpdated, View: &v})
}

// report logs err and broadcasts it to UI surfaces.
func (c *Coordinator) report(operation string, err error) {
	c.logger.Error().Err(err).Str("operation", operation).Msg("Operation failed")
	c.hub.Publish(Message{Action: ActionError, Operation: operation, Error: err.Error()})
}
