package playback

import (
	"github.com/jfmyers9/yamp/internal/store"
	"github.com/jfmyers9/yamp/pkg/ymusic"
)

// TrackInfo is display metadata for one track.
type TrackInfo = ymusic.TrackInfo

// PlaybackState is the canonical "what is playing". Only the coordinator
// loop reads or writes it.
type PlaybackState struct {
	TrackIDs      []string
	FullTrackInfo []TrackInfo
	CurrentIndex  int
	IsPlaying     bool
	PlaylistID    string

	// Transient, refreshed by progress reports.
	CurrentTime float64
	Duration    float64
}

// Durable projects the fields that survive a restart.
func (s *PlaybackState) Durable() store.Snapshot {
	return store.Snapshot{
		CurrentIndex: s.CurrentIndex,
		IsPlaying:    s.IsPlaying,
		TrackIDs:     append([]string(nil), s.TrackIDs...),
		PlaylistID:   s.PlaylistID,
	}
}

// View copies the state into its broadcast form.
func (s *PlaybackState) View() View {
	trackList := append([]string{}, s.TrackIDs...)
	info := append([]TrackInfo{}, s.FullTrackInfo...)
	return View{
		CurrentIndex:  s.CurrentIndex,
		IsPlaying:     s.IsPlaying,
		TrackList:     trackList,
		FullTrackInfo: info,
		PlaylistID:    s.PlaylistID,
		CurrentTime:   s.CurrentTime,
		Duration:      s.Duration,
	}
}

// Current returns metadata for the current track when it is known.
func (v View) Current() (TrackInfo, bool) {
	if v.CurrentIndex < 0 || v.CurrentIndex >= len(v.FullTrackInfo) {
		return TrackInfo{}, false
	}
	return v.FullTrackInfo[v.CurrentIndex], true
}

// CurrentTrackID returns the id of the current track, or "".
func (v View) CurrentTrackID() string {
	if v.CurrentIndex < 0 || v.CurrentIndex >= len(v.TrackList) {
		return ""
	}
	return v.TrackList[v.CurrentIndex]
}
