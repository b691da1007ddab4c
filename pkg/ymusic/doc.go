// Package ymusic provides a client for the Yandex Music REST API.
//
// # Overview
//
// The package covers the small slice of the catalog a player needs:
// resolving playlists to ordered track lists, listing the personal and
// recommended playlists of the landing page, and resolving a track to a
// playable media URL.
//
// # Quick Start
//
//	client, err := ymusic.NewClient(ymusic.Config{
//	    TokenSource: oauth2.StaticTokenSource(ymusic.Token(accessToken)),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pl, err := client.Playlists().Get(ctx, "503646255:3")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	url, err := client.Tracks().ResolveURL(ctx, pl.TrackIDs()[0])
//
// # Track URLs
//
// A track exposes several encodings. ResolveURL prefers mp3 at 192 kbps and
// falls back to the first encoding listed. Encodings without a direct URL
// carry a download-info URL pointing at a small XML descriptor:
//
//	<download-info>
//	    <host>s1.storage.yandex.net</host>
//	    <path>/rmusic/U2FsdGVk...</path>
//	    <ts>0005d1a2b3c4</ts>
//	    <s>4f0c...</s>
//	</download-info>
//
// which is assembled into https://<host>/get-mp3/<s>/<ts><path>.
//
// # Authentication
//
// Every catalog call except the descriptor fetch carries an
// "Authorization: OAuth <token>" header. The token is read from the
// configured oauth2.TokenSource on every request; when the source fails the
// call returns ErrNoToken without touching the network.
//
// # Errors
//
// Catalog failures are returned as *Error with the HTTP status code and the
// API's error name. Data that cannot be turned into a playable URL (an empty
// encoding list, an incomplete descriptor) wraps ErrMalformed:
//
//	url, err := client.Tracks().ResolveURL(ctx, id)
//	if errors.Is(err, ymusic.ErrMalformed) {
//	    // the track is not playable
//	}
//
// The client never retries. Requests are paced by an optional rate limit.
package ymusic
