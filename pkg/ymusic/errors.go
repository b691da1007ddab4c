package ymusic

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a failed catalog request.
//
// StatusCode is the HTTP status of the response. Name and Message come from
// the API's error body when one was returned.
type Error struct {
	StatusCode int
	Name       string
	Message    string
	URL        string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("ymusic: %d %s: %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("ymusic: %d %s @ %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Is reports whether target is an *Error with the same status code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// Unauthorized returns true if the token was rejected by the API.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

var (
	// ErrNoToken is returned when an authenticated request is attempted
	// without a usable token.
	ErrNoToken = errors.New("ymusic: no token")

	// ErrMalformed is returned when the catalog answers with data that
	// cannot be used: an empty encoding list, an incomplete download-info
	// descriptor, an encoding without any URL.
	ErrMalformed = errors.New("ymusic: malformed catalog data")

	// ErrMalformedPlaylistID is returned for playlist ids that are not of
	// the form "<ownerUid>:<playlistKind>".
	ErrMalformedPlaylistID = errors.New("ymusic: malformed playlist id")

	// ErrUnavailable is returned when the landing page is refused for legal
	// reasons in the caller's region.
	ErrUnavailable = errors.New("ymusic: unavailable for legal reasons")

	// ErrNotFound is returned when a lookup over the landing page yields
	// nothing.
	ErrNotFound = errors.New("ymusic: not found")

	// ErrEmptyPlaylist is returned when a playlist has no tracks.
	ErrEmptyPlaylist = errors.New("ymusic: playlist is empty")

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("ymusic: invalid configuration")
)
