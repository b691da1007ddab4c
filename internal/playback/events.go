package playback

// Event is an inbound coordinator event.
type Event interface {
	event()
}

// SetPlaylist replaces the track list and active playlist.
type SetPlaylist struct {
	PlaylistID    string
	TrackIDs      []string
	FullTrackInfo []TrackInfo
}

// PlayAt plays the track at Index of PlaylistID.
type PlayAt struct {
	Index      int
	PlaylistID string
}

// Next advances to the following track, wrapping at the end.
type Next struct{}

// Previous goes back one track, wrapping at the start.
type Previous struct{}

// TrackEnded is sent by the sink when the current track finished.
type TrackEnded struct{}

// Pause pauses playback.
type Pause struct{}

// ResumeOrPlayCurrent resumes playback, or starts the current track.
type ResumeOrPlayCurrent struct{}

// SetVolume sets the output level, 0 to 1.
type SetVolume struct {
	Value float64
}

// Seek moves to Value seconds.
type Seek struct {
	Value float64
}

// ProgressReport carries the sink's playback position.
type ProgressReport struct {
	CurrentTime float64
	Duration    float64
}

// GetStateSnapshot asks for a full state broadcast.
type GetStateSnapshot struct{}

// OpenOAuth starts the browser login.
type OpenOAuth struct{}

// TokenCaptured delivers a token captured by the login flow.
type TokenCaptured struct {
	Token string
}

// resolved carries the outcome of a PlayAt URL lookup back to the loop.
type resolved struct {
	seq        uint64
	index      int
	trackID    string
	playlistID string
	url        string
	err        error
}

// viewQuery asks the loop for a copy of the current state.
type viewQuery struct {
	reply chan View
}

func (SetPlaylist) event()         {}
func (PlayAt) event()              {}
func (Next) event()                {}
func (Previous) event()            {}
func (TrackEnded) event()          {}
func (Pause) event()               {}
func (ResumeOrPlayCurrent) event() {}
func (SetVolume) event()           {}
func (Seek) event()                {}
func (ProgressReport) event()      {}
func (GetStateSnapshot) event()    {}
func (OpenOAuth) event()           {}
func (TokenCaptured) event()       {}
func (resolved) event()            {}
func (viewQuery) event()           {}
