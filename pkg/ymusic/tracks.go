package ymusic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samber/lo"
)

// TrackService handles track operations.
type TrackService struct {
	client *Client
}

// DownloadInfo is one available encoding of a track.
type DownloadInfo struct {
	Codec           string `json:"codec"`
	BitrateInKbps   int    `json:"bitrateInKbps"`
	Gain            bool   `json:"gain"`
	Preview         bool   `json:"preview"`
	DirectURL       string `json:"directUrl,omitempty"`
	DownloadInfoURL string `json:"downloadInfoUrl,omitempty"`
}

const (
	preferredCodec   = "mp3"
	preferredBitrate = 192
)

// SelectEncoding picks mp3 at 192 kbps when offered, otherwise the first
// encoding. It returns false for an empty list.
func SelectEncoding(infos []DownloadInfo) (DownloadInfo, bool) {
	if len(infos) == 0 {
		return DownloadInfo{}, false
	}
	if d, ok := lo.Find(infos, func(d DownloadInfo) bool {
		return d.Codec == preferredCodec && d.BitrateInKbps == preferredBitrate
	}); ok {
		return d, true
	}
	return infos[0], true
}

// DownloadInfo lists the encodings available for trackID.
func (s *TrackService) DownloadInfo(ctx context.Context, trackID string) ([]DownloadInfo, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: empty track id", ErrMalformed)
	}
	var infos []DownloadInfo
	if err := s.client.get(ctx, "/tracks/"+url.PathEscape(trackID)+"/download-info", nil, &infos); err != nil {
		return nil, fmt.Errorf("download info for %s: %w", trackID, err)
	}
	return infos, nil
}

// ResolveURL turns trackID into a playable stream URL.
func (s *TrackService) ResolveURL(ctx context.Context, trackID string) (string, error) {
	infos, err := s.DownloadInfo(ctx, trackID)
	if err != nil {
		return "", err
	}
	enc, ok := SelectEncoding(infos)
	if !ok {
		return "", fmt.Errorf("%w: track %s has no encodings", ErrMalformed, trackID)
	}
	if enc.DirectURL != "" {
		return enc.DirectURL, nil
	}
	if enc.DownloadInfoURL == "" {
		return "", fmt.Errorf("%w: track %s encoding has no url", ErrMalformed, trackID)
	}

	d, err := s.fetchDescriptor(ctx, enc.DownloadInfoURL)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", trackID, err)
	}
	return d.URL(), nil
}

// fetchDescriptor downloads the indirection document. The URL is already
// signed, so no authorization header is sent.
func (s *TrackService) fetchDescriptor(ctx context.Context, rawURL string) (*Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: descriptor url: %v", ErrMalformed, err)
	}
	body, err := s.client.send(req)
	if err != nil {
		return nil, err
	}
	return ParseDescriptor(body)
}
