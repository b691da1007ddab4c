package playback

import "context"

// restore hydrates the state from the snapshot store. It returns the play
// to issue when playback was active at shutdown. IsPlaying starts false and
// only that play, once the sink is commanded, sets it again.
func (c *Coordinator) restore(ctx context.Context) *PlayAt {
	snap, err := c.snapshots.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load snapshot, starting empty")
		return nil
	}
	if snap == nil {
		c.logger.Debug().Msg("No snapshot, starting empty")
		return nil
	}

	c.state = PlaybackState{
		TrackIDs:     snap.TrackIDs,
		CurrentIndex: snap.CurrentIndex,
		PlaylistID:   snap.PlaylistID,
	}
	if c.state.CurrentIndex >= len(c.state.TrackIDs) {
		c.state.CurrentIndex = 0
	}
	saved := *snap
	c.lastSaved = &saved

	c.logger.Info().
		Int("tracks", len(snap.TrackIDs)).
		Int("index", c.state.CurrentIndex).
		Bool("playing", snap.IsPlaying).
		Str("playlist", snap.PlaylistID).
		Msg("Restored snapshot")

	if snap.IsPlaying && len(c.state.TrackIDs) > 0 && c.state.PlaylistID != "" {
		return &PlayAt{Index: c.state.CurrentIndex, PlaylistID: c.state.PlaylistID}
	}
	return nil
}

// reload replaces the track list and playlist from the snapshot store. A
// missing or empty snapshot leaves the state as it is.
func (c *Coordinator) reload(ctx context.Context) {
	snap, err := c.snapshots.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load snapshot for recovery")
		return
	}
	if snap == nil || len(snap.TrackIDs) == 0 || snap.PlaylistID == "" {
		return
	}

	if !sameTracks(c.state.TrackIDs, snap.TrackIDs) {
		c.state.FullTrackInfo = nil
	}
	c.state.TrackIDs = snap.TrackIDs
	c.state.PlaylistID = snap.PlaylistID
	if c.state.CurrentIndex >= len(c.state.TrackIDs) {
		c.state.CurrentIndex = 0
	}
	c.logger.Debug().Str("playlist", snap.PlaylistID).Int("tracks", len(snap.TrackIDs)).Msg("Reloaded track list from snapshot")
}

func sameTracks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
