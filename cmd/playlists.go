package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jfmyers9/yamp/pkg/ymusic"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// playlistsCmd represents the playlists command
var playlistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "List personal and recommended playlists",
	Long: `List the playlists the catalog suggests for your account.

Each line shows the playlist id (use it with 'yamp load') and its title.
The playlist of the day is marked with *.`,
	Args: cobra.NoArgs,
	RunE: runPlaylists,
}

func init() {
	rootCmd.AddCommand(playlistsCmd)

	playlistsCmd.Flags().Bool("json", false, "Print the listing as JSON")
}

// playlistListing groups the landing-page playlists.
type playlistListing struct {
	Personal    []ymusic.PlaylistRef `json:"personal"`
	Recommended []ymusic.PlaylistRef `json:"recommended"`
	OfTheDay    string               `json:"ofTheDay,omitempty"`
}

func fetchListing(ctx context.Context, playlists *ymusic.PlaylistService) (playlistListing, error) {
	var listing playlistListing

	personal, err := playlists.Personal(ctx)
	if err != nil {
		return listing, fmt.Errorf("failed to list personal playlists: %w", err)
	}
	recommended, err := playlists.Recommended(ctx)
	if err != nil {
		return listing, fmt.Errorf("failed to list recommended playlists: %w", err)
	}
	listing.Personal = personal
	// Recommended repeats some personal entries.
	listing.Recommended = lo.Reject(recommended, func(r ymusic.PlaylistRef, _ int) bool {
		return lo.ContainsBy(personal, func(p ymusic.PlaylistRef) bool { return p.ID == r.ID })
	})

	day, err := playlists.OfTheDay(ctx)
	switch {
	case err == nil:
		listing.OfTheDay = day.ID
	case !errors.Is(err, ymusic.ErrNotFound):
		return listing, fmt.Errorf("failed to find playlist of the day: %w", err)
	}
	return listing, nil
}

func runPlaylists(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	listing, err := fetchListing(ctx, session.catalog.Playlists())
	if err != nil {
		return authHint(err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}
	printListing(os.Stdout, listing)
	return nil
}

func printListing(w io.Writer, listing playlistListing) {
	refs := append(append([]ymusic.PlaylistRef{}, listing.Personal...), listing.Recommended...)
	idWidth := lo.Max(lo.Map(refs, func(r ymusic.PlaylistRef, _ int) int { return runewidth.StringWidth(r.ID) }))

	section := func(title string, refs []ymusic.PlaylistRef) {
		if len(refs) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		for _, r := range refs {
			mark := " "
			if r.ID == listing.OfTheDay {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %s  %s\n", mark, runewidth.FillRight(r.ID, idWidth), r.Title)
		}
	}
	section("Personal", listing.Personal)
	section("Recommended", listing.Recommended)
}
