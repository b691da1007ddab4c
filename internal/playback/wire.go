package playback

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound wire actions.
const (
	WireOpenOAuth       = "open_oauth"
	WireSetPlaylistInfo = "set_playlist_info"
	WirePlayTrack       = "play_track_by_index"
	WireTrackEnded      = "track_ended"
	WirePrevTrack       = "prev_track"
	WireNextTrack       = "next_track"
	WirePause           = "pause"
	WireResume          = "resume_or_play_current"
	WireSetVolume       = "set_volume"
	WireSeek            = "seek"
	WireUpdateProgress  = "update_progress"
	WireGetState        = "get_current_playback_state"
)

// ErrUnknownAction is returned for wire messages with an unrecognized action.
var ErrUnknownAction = errors.New("unknown action")

// Envelope is the wire form of an inbound event.
type Envelope struct {
	Action        string      `json:"action"`
	PlaylistID    string      `json:"playlistId,omitempty"`
	TrackIDs      []string    `json:"trackIds,omitempty"`
	FullTrackInfo []TrackInfo `json:"fullTrackInfo,omitempty"`
	Index         *int        `json:"index,omitempty"`
	Value         *float64    `json:"value,omitempty"`
	CurrentTime   float64     `json:"currentTime,omitempty"`
	Duration      float64     `json:"duration,omitempty"`
}

// DecodeEvent parses a wire message into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return env.Event()
}

// Event converts the envelope into an Event.
func (e Envelope) Event() (Event, error) {
	switch e.Action {
	case WireOpenOAuth:
		return OpenOAuth{}, nil
	case WireSetPlaylistInfo:
		return SetPlaylist{PlaylistID: e.PlaylistID, TrackIDs: e.TrackIDs, FullTrackInfo: e.FullTrackInfo}, nil
	case WirePlayTrack:
		if e.Index == nil {
			return nil, fmt.Errorf("%s: missing index", e.Action)
		}
		return PlayAt{Index: *e.Index, PlaylistID: e.PlaylistID}, nil
	case WireTrackEnded:
		return TrackEnded{}, nil
	case WirePrevTrack:
		return Previous{}, nil
	case WireNextTrack:
		return Next{}, nil
	case WirePause:
		return Pause{}, nil
	case WireResume:
		return ResumeOrPlayCurrent{}, nil
	case WireSetVolume:
		if e.Value == nil {
			return nil, fmt.Errorf("%s: missing value", e.Action)
		}
		return SetVolume{Value: *e.Value}, nil
	case WireSeek:
		if e.Value == nil {
			return nil, fmt.Errorf("%s: missing value", e.Action)
		}
		return Seek{Value: *e.Value}, nil
	case WireUpdateProgress:
		return ProgressReport{CurrentTime: e.CurrentTime, Duration: e.Duration}, nil
	case WireGetState:
		return GetStateSnapshot{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
	}
}

// EncodeEvent builds the wire form of ev.
func EncodeEvent(ev Event) (Envelope, error) {
	switch e := ev.(type) {
	case OpenOAuth:
		return Envelope{Action: WireOpenOAuth}, nil
	case SetPlaylist:
		return Envelope{Action: WireSetPlaylistInfo, PlaylistID: e.PlaylistID, TrackIDs: e.TrackIDs, FullTrackInfo: e.FullTrackInfo}, nil
	case PlayAt:
		idx := e.Index
		return Envelope{Action: WirePlayTrack, Index: &idx, PlaylistID: e.PlaylistID}, nil
	case TrackEnded:
		return Envelope{Action: WireTrackEnded}, nil
	case Previous:
		return Envelope{Action: WirePrevTrack}, nil
	case Next:
		return Envelope{Action: WireNextTrack}, nil
	case Pause:
		return Envelope{Action: WirePause}, nil
	case ResumeOrPlayCurrent:
		return Envelope{Action: WireResume}, nil
	case SetVolume:
		v := e.Value
		return Envelope{Action: WireSetVolume, Value: &v}, nil
	case Seek:
		v := e.Value
		return Envelope{Action: WireSeek, Value: &v}, nil
	case ProgressReport:
		return Envelope{Action: WireUpdateProgress, CurrentTime: e.CurrentTime, Duration: e.Duration}, nil
	case GetStateSnapshot:
		return Envelope{Action: WireGetState}, nil
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnknownAction, ev)
	}
}
