package ymusic

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Config holds client configuration.
type Config struct {
	TokenSource oauth2.TokenSource // Required for authenticated calls
	HTTPClient  *http.Client       // Optional: defaults to http.DefaultClient
	BaseURL     string             // Optional: defaults to DefaultBaseURL, used for testing
	RateLimit   float64            // Optional: requests per second, 0 disables pacing
	UserAgent   string             // Optional
	Logger      Logger             // Optional: debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for catalog operations.
type Client struct {
	tokens     oauth2.TokenSource
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	logger     Logger

	tracks    *TrackService
	playlists *PlaylistService
}

const (
	// DefaultBaseURL is the default catalog endpoint.
	DefaultBaseURL = "https://api.music.yandex.net"

	// TokenType is the authorization scheme the catalog expects.
	TokenType = "OAuth"

	defaultUserAgent = "yamp/1.0"
)

// NewClient creates a new catalog client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%w: negative rate limit", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	c := &Client{
		tokens:     cfg.TokenSource,
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     cfg.Logger,
	}

	c.tracks = &TrackService{client: c}
	c.playlists = &PlaylistService{client: c}

	return c, nil
}

// Tracks returns the track service.
func (c *Client) Tracks() *TrackService {
	return c.tracks
}

// Playlists returns the playlist service.
func (c *Client) Playlists() *PlaylistService {
	return c.playlists
}

// Token wraps an access token in the form the catalog expects.
func Token(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken, TokenType: TokenType}
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
