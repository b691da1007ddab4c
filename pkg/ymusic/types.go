package ymusic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ID is a catalog identifier. The API sends ids as numbers in some responses
// and as strings in others; both decode to the same value.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ymusic: invalid id %s", data)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a string.
func (id ID) String() string { return string(id) }

// Artist is a track performer.
type Artist struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Album is the minimal album shape embedded in tracks.
type Album struct {
	ID       ID     `json:"id"`
	Title    string `json:"title"`
	CoverURI string `json:"coverUri"`
}

// Cover is an image reference with a size placeholder.
type Cover struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Track is a catalog track.
type Track struct {
	ID         ID       `json:"id"`
	Title      string   `json:"title"`
	Artists    []Artist `json:"artists"`
	Albums     []Album  `json:"albums"`
	Cover      *Cover   `json:"cover,omitempty"`
	DurationMs int64    `json:"durationMs"`
}

// ArtistNames joins the performer names with ", ".
func (t Track) ArtistNames() string {
	return strings.Join(lo.Map(t.Artists, func(a Artist, _ int) string { return a.Name }), ", ")
}

// CoverURL returns an absolute cover image URL, or "" when the track has no
// artwork.
func (t Track) CoverURL() string {
	raw := ""
	if t.Cover != nil && t.Cover.URI != "" {
		raw = t.Cover.URI
	} else if len(t.Albums) > 0 {
		raw = t.Albums[0].CoverURI
	}
	return coverURL(raw, "300x300")
}

// coverURL expands a catalog image reference. References with a "%%" size
// placeholder get size; others get a "/200x200" suffix.
func coverURL(raw, size string) string {
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "%%") {
		return "https://" + strings.ReplaceAll(raw, "%%", size)
	}
	return "https://" + strings.TrimSuffix(raw, "/") + "/200x200"
}

// TrackItem is an entry of a playlist's track list. Rich responses wrap the
// track in a "track" field; terse ones are the track itself.
type TrackItem struct {
	ID    ID    `json:"id"`
	Track Track `json:"-"`
}

// UnmarshalJSON decodes either the wrapped or the bare form.
func (ti *TrackItem) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		ID    ID     `json:"id"`
		Track *Track `json:"track"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Track != nil {
		ti.Track = *wrapped.Track
		ti.ID = wrapped.ID
		if ti.ID == "" {
			ti.ID = ti.Track.ID
		}
		return nil
	}
	var bare Track
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	ti.Track = bare
	ti.ID = bare.ID
	return nil
}

// TrackID returns the id used to address the entry.
func (ti TrackItem) TrackID() string {
	if ti.ID != "" {
		return ti.ID.String()
	}
	return ti.Track.ID.String()
}

// Owner is a playlist owner.
type Owner struct {
	UID   ID     `json:"uid"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Playlist is a catalog playlist.
type Playlist struct {
	UID        ID          `json:"uid"`
	Kind       ID          `json:"kind"`
	Title      string      `json:"title"`
	Owner      *Owner      `json:"owner,omitempty"`
	TrackCount int         `json:"trackCount"`
	Tracks     []TrackItem `json:"tracks"`
	Cover      *Cover      `json:"cover,omitempty"`
}

// ID returns the playlist id in "<ownerUid>:<playlistKind>" form.
func (p Playlist) ID() string {
	uid := p.UID
	if uid == "" && p.Owner != nil {
		uid = p.Owner.UID
	}
	return uid.String() + ":" + p.Kind.String()
}

// TrackIDs returns the track ids in playlist order.
func (p Playlist) TrackIDs() []string {
	return lo.Map(p.Tracks, func(ti TrackItem, _ int) string { return ti.TrackID() })
}

// TrackInfos returns display metadata aligned with TrackIDs.
func (p Playlist) TrackInfos() []TrackInfo {
	return lo.Map(p.Tracks, func(ti TrackItem, _ int) TrackInfo {
		return TrackInfo{
			ID:      ti.TrackID(),
			Title:   ti.Track.Title,
			Artists: ti.Track.ArtistNames(),
			Cover:   ti.Track.CoverURL(),
		}
	})
}

// TrackInfo is display metadata for one track.
type TrackInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artists string `json:"artists"`
	Cover   string `json:"cover"`
}

// PlaylistRef is a lightweight entry of a playlist listing.
type PlaylistRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover,omitempty"`
}

// SplitPlaylistID splits "<ownerUid>:<playlistKind>".
func SplitPlaylistID(id string) (uid, kind string, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedPlaylistID, id)
	}
	return parts[0], parts[1], nil
}

