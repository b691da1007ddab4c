// Package store persists small JSON values by key: the durable playback
// snapshot, the credential and per-playlist bookkeeping.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Storage keys.
const (
	KeyCurrentIndex = "currentIndex"
	KeyIsPlaying    = "isPlaying"
	KeyTrackIDs     = "trackIds"
	KeyPlaylistID   = "playlistId"

	KeyToken           = "yandex-music-token"
	KeyCurrentPlaylist = "current-playlist-id"

	lastIndexPrefix = "PLIDX-"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store is a key/value store of JSON-encoded values.
type Store interface {
	// Get decodes the value stored under key into dst. It reports false
	// when the key is absent.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	// Set stores v under key.
	Set(ctx context.Context, key string, v interface{}) error
	// SetMany stores all values in one atomic write.
	SetMany(ctx context.Context, values map[string]interface{}) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Snapshot is the durable subset of playback state.
type Snapshot struct {
	CurrentIndex int      `json:"currentIndex"`
	IsPlaying    bool     `json:"isPlaying"`
	TrackIDs     []string `json:"trackIds"`
	PlaylistID   string   `json:"playlistId"`
}

// Equal reports whether two snapshots hold the same data.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.CurrentIndex != o.CurrentIndex || s.IsPlaying != o.IsPlaying || s.PlaylistID != o.PlaylistID {
		return false
	}
	if len(s.TrackIDs) != len(o.TrackIDs) {
		return false
	}
	for i := range s.TrackIDs {
		if s.TrackIDs[i] != o.TrackIDs[i] {
			return false
		}
	}
	return true
}

// Snapshots reads and writes playback bookkeeping on top of a Store.
type Snapshots struct {
	store Store
}

// NewSnapshots wraps s.
func NewSnapshots(s Store) *Snapshots {
	return &Snapshots{store: s}
}

// Load returns the stored snapshot, or nil when none was ever written. Keys
// missing from a partial snapshot keep their zero values.
func (s *Snapshots) Load(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	found := false
	fields := []struct {
		key string
		dst interface{}
	}{
		{KeyCurrentIndex, &snap.CurrentIndex},
		{KeyIsPlaying, &snap.IsPlaying},
		{KeyTrackIDs, &snap.TrackIDs},
		{KeyPlaylistID, &snap.PlaylistID},
	}
	for _, f := range fields {
		ok, err := s.store.Get(ctx, f.key, f.dst)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.key, err)
		}
		found = found || ok
	}
	if !found {
		return nil, nil
	}
	if snap.CurrentIndex < 0 {
		snap.CurrentIndex = 0
	}
	return &snap, nil
}

// Save writes all four snapshot keys at once.
func (s *Snapshots) Save(ctx context.Context, snap Snapshot) error {
	trackIDs := snap.TrackIDs
	if trackIDs == nil {
		trackIDs = []string{}
	}
	return s.store.SetMany(ctx, map[string]interface{}{
		KeyCurrentIndex: snap.CurrentIndex,
		KeyIsPlaying:    snap.IsPlaying,
		KeyTrackIDs:     trackIDs,
		KeyPlaylistID:   snap.PlaylistID,
	})
}

// LastIndex returns the index last played in playlistID.
func (s *Snapshots) LastIndex(ctx context.Context, playlistID string) (int, bool, error) {
	var idx int
	ok, err := s.store.Get(ctx, lastIndexPrefix+playlistID, &idx)
	if err != nil || !ok {
		return 0, false, err
	}
	return idx, true, nil
}

// SetLastIndex records the index last played in playlistID.
func (s *Snapshots) SetLastIndex(ctx context.Context, playlistID string, index int) error {
	if playlistID == "" {
		return nil
	}
	return s.store.Set(ctx, lastIndexPrefix+playlistID, index)
}

// CurrentPlaylist returns the id of the last loaded playlist.
func (s *Snapshots) CurrentPlaylist(ctx context.Context) (string, error) {
	var id string
	if _, err := s.store.Get(ctx, KeyCurrentPlaylist, &id); err != nil {
		return "", err
	}
	return id, nil
}

// SetCurrentPlaylist records the id of the last loaded playlist.
func (s *Snapshots) SetCurrentPlaylist(ctx context.Context, playlistID string) error {
	return s.store.Set(ctx, KeyCurrentPlaylist, playlistID)
}
