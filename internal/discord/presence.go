// Package discord mirrors the current track into Discord Rich Presence.
package discord

import (
	"context"
	"math"
	"time"

	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/rs/zerolog"
)

// Seconds the computed start may drift before the activity is re-sent.
// Progress broadcasts arrive several times a second; only seeks move it this far.
const driftTolerance = 3

type rpcClient interface {
	SetActivity(Activity) error
	Close()
}

// Presence manages Discord Rich Presence updates.
type Presence struct {
	appID   string
	logger  zerolog.Logger
	client  rpcClient
	connect func(string) (rpcClient, error)
	now     func() time.Time
	last    lastActivity
}

type lastActivity struct {
	trackID, title, artists string
	playing                 bool
	start                   int64
}

// New creates a Presence for the Discord application appID.
func New(appID string, logger zerolog.Logger) *Presence {
	return &Presence{
		appID:  appID,
		logger: logger.With().Str("component", "discord").Logger(),
		connect: func(appID string) (rpcClient, error) {
			return ipcConnect(appID)
		},
		now: time.Now,
	}
}

// Run consumes broadcasts from sub and sets Discord Rich Presence.
// Connects lazily on the first playing track. If Discord isn't running,
// logs the error and retries on the next track change.
func (p *Presence) Run(ctx context.Context, sub *playback.Subscription) {
	for {
		select {
		case <-ctx.Done():
			p.close()
			return
		case <-sub.Done:
			p.close()
			return
		case m := <-sub.C:
			if m.Action != playback.ActionStateUpdated || m.View == nil {
				continue
			}
			p.handleView(*m.View)
		}
	}
}

func (p *Presence) handleView(v playback.View) {
	info, ok := v.Current()
	if !v.IsPlaying || !ok {
		if p.last.playing {
			p.clearActivity()
			p.last = lastActivity{}
		}
		return
	}

	start := p.now().Add(-time.Duration(v.CurrentTime * float64(time.Second))).Unix()
	cur := lastActivity{
		trackID: info.ID, title: info.Title, artists: info.Artists,
		playing: true, start: start,
	}
	if sameActivity(cur, p.last) {
		return
	}

	if err := p.ensureConnected(); err != nil {
		p.logger.Warn().Err(err).Msg("Discord not available")
		return
	}

	activity := Activity{
		Type:    2, // Listening
		Name:    "Yandex Music",
		Details: info.Title,
		Assets: &Assets{
			LargeImage: info.Cover,
			LargeText:  info.Title,
			SmallImage: "yamp",
			SmallText:  "yamp",
		},
	}
	if info.Artists != "" {
		activity.State = "by " + info.Artists
	}
	if v.Duration > 0 {
		end := start + int64(math.Round(v.Duration))
		activity.Timestamps = &Timestamps{Start: &start, End: &end}
	} else {
		activity.Timestamps = &Timestamps{Start: &start}
	}

	if err := p.client.SetActivity(activity); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to set activity")
		p.close()
		return
	}
	p.last = cur
}

func sameActivity(a, b lastActivity) bool {
	if a.trackID != b.trackID || a.title != b.title || a.artists != b.artists || a.playing != b.playing {
		return false
	}
	d := a.start - b.start
	return d <= driftTolerance && d >= -driftTolerance
}

func (p *Presence) ensureConnected() error {
	if p.client != nil {
		return nil
	}
	client, err := p.connect(p.appID)
	if err != nil {
		return err
	}
	p.logger.Info().Msg("Connected to Discord")
	p.client = client
	return nil
}

func (p *Presence) clearActivity() {
	if p.client == nil {
		return
	}
	if err := p.client.SetActivity(Activity{}); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to clear activity")
		p.close()
	}
}

func (p *Presence) close() {
	if p.client == nil {
		return
	}
	p.client.Close()
	p.client = nil
}
