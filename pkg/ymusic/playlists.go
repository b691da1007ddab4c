package ymusic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/samber/lo"
)

// PlaylistService handles playlist operations.
type PlaylistService struct {
	client *Client
}

// Get fetches a playlist with rich track data. When the per-user endpoint
// answers with a non-2xx status the batch endpoint is tried once.
func (s *PlaylistService) Get(ctx context.Context, playlistID string) (*Playlist, error) {
	uid, kind, err := SplitPlaylistID(playlistID)
	if err != nil {
		return nil, err
	}

	var pl Playlist
	path := "/users/" + url.PathEscape(uid) + "/playlists/" + url.PathEscape(kind)
	err = s.client.get(ctx, path, url.Values{"rich-tracks": {"true"}}, &pl)
	if err == nil {
		return &pl, nil
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode == 0 {
		return nil, fmt.Errorf("get playlist %s: %w", playlistID, err)
	}
	s.client.logDebugf("ymusic: playlist %s: %v, trying batch endpoint", playlistID, err)

	var list []Playlist
	if err := s.client.postForm(ctx, "/playlists/list", url.Values{"playlistIds": {playlistID}}, &list); err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", playlistID, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("get playlist %s: %w", playlistID, ErrNotFound)
	}
	return &list[0], nil
}

// landingPlaylist is the playlist shape inside landing blocks.
type landingPlaylist struct {
	UID       ID     `json:"uid"`
	Kind      ID     `json:"kind"`
	Title     string `json:"title"`
	IDForFrom string `json:"idForFrom"`
	Cover     *Cover `json:"cover,omitempty"`
}

type landingItem struct {
	Type string `json:"type"`
	Data *struct {
		Playlist     *landingPlaylist `json:"playlist"`
		PlaylistType string           `json:"playlistType"`
	} `json:"data"`
	Entities []landingItem `json:"entities"`
}

type landing struct {
	Name   string        `json:"name"`
	Items  []landingItem `json:"items"`
	Blocks []landingItem `json:"blocks"`
	Result *struct {
		Blocks []landingItem `json:"blocks"`
	} `json:"result"`
}

func (l landing) blocks() []landingItem {
	if l.Items != nil {
		return l.Items
	}
	if l.Result != nil && l.Result.Blocks != nil {
		return l.Result.Blocks
	}
	return l.Blocks
}

const (
	personalItemType = "personal_playlist_item"
	likedItemType    = "liked_playlist_item"

	unavailableName = "Unavailable For Legal Reasons"

	playlistOfTheDayFrom  = "playlist_of_the_day"
	playlistOfTheDayTitle = "Плейлист дня"
	playlistOfTheDayType  = "playlistOfTheDay"
)

func (s *PlaylistService) landing(ctx context.Context, path string) (landing, error) {
	var lb landing
	body, err := s.client.getRaw(ctx, path)
	if err != nil {
		return lb, err
	}
	if err := json.Unmarshal(body, &lb); err != nil {
		return lb, fmt.Errorf("%w: landing: %v", ErrMalformed, err)
	}
	if lb.Name == unavailableName {
		return lb, ErrUnavailable
	}
	return lb, nil
}

func (p *landingPlaylist) ref() PlaylistRef {
	ref := PlaylistRef{
		ID:    p.UID.String() + ":" + p.Kind.String(),
		Title: p.Title,
	}
	if p.Cover != nil {
		ref.Cover = coverURL(p.Cover.URI, "200x200")
	}
	return ref
}

func itemsOfType(items []landingItem, typ string) []PlaylistRef {
	matching := lo.Filter(items, func(it landingItem, _ int) bool {
		return it.Type == typ && it.Data != nil && it.Data.Playlist != nil && it.Data.Playlist.UID != ""
	})
	return lo.Map(matching, func(it landingItem, _ int) PlaylistRef { return it.Data.Playlist.ref() })
}

// Personal lists the generated personal playlists from the landing page.
func (s *PlaylistService) Personal(ctx context.Context) ([]PlaylistRef, error) {
	lb, err := s.landing(ctx, "/landing-blocks/personal-playlists")
	if err != nil {
		return nil, fmt.Errorf("personal playlists: %w", err)
	}
	return itemsOfType(lb.blocks(), personalItemType), nil
}

// Recommended lists recommended playlists.
func (s *PlaylistService) Recommended(ctx context.Context) ([]PlaylistRef, error) {
	lb, err := s.landing(ctx, "/landing/block/recommended-playlists")
	if err != nil {
		return nil, fmt.Errorf("recommended playlists: %w", err)
	}
	return itemsOfType(lb.Items, likedItemType), nil
}

func isPlaylistOfTheDay(it landingItem) bool {
	if it.Type != personalItemType || it.Data == nil || it.Data.Playlist == nil {
		return false
	}
	pl := it.Data.Playlist
	return pl.IDForFrom == playlistOfTheDayFrom ||
		pl.Title == playlistOfTheDayTitle ||
		it.Data.PlaylistType == playlistOfTheDayType
}

// OfTheDay finds the daily generated playlist, looking one level into
// nested block entities.
func (s *PlaylistService) OfTheDay(ctx context.Context) (PlaylistRef, error) {
	lb, err := s.landing(ctx, "/landing-blocks/personal-playlists")
	if err != nil {
		return PlaylistRef{}, fmt.Errorf("playlist of the day: %w", err)
	}
	for _, block := range lb.blocks() {
		candidates := []landingItem{block}
		if block.Type != personalItemType && len(block.Entities) > 0 {
			candidates = block.Entities
		}
		if it, ok := lo.Find(candidates, isPlaylistOfTheDay); ok {
			return it.Data.Playlist.ref(), nil
		}
	}
	return PlaylistRef{}, fmt.Errorf("playlist of the day: %w", ErrNotFound)
}
