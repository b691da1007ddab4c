package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jfmyers9/yamp/internal/api"
	"github.com/jfmyers9/yamp/internal/auth"
	"github.com/jfmyers9/yamp/internal/config"
	"github.com/jfmyers9/yamp/internal/daemon"
	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const maxRedirectAttempts = 3

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Log in to Yandex Music",
	Long: `Log in to Yandex Music and store the access token.

This command will guide you through the login:
1. The Yandex login page opens in your browser (the URL is printed too)
2. After you sign in, the browser lands on a music.yandex.ru URL
   containing #access_token=...
3. Paste that URL here; the token is saved to the configured token store

When the daemon is running the login is handed to it, so it picks up the
token immediately. Use --token to store a token you already have.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().String("token", "", "Store this access token without the browser login")
	authCmd.Flags().String("client-id", "", "OAuth client id to use and save to the config file")
	authCmd.Flags().Bool("logout", false, "Delete the stored token")
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if clientID, _ := cmd.Flags().GetString("client-id"); clientID != "" {
		cfg.OAuth.ClientID = clientID
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("✓ Client id saved to %s/config.yaml\n", config.GetConfigDir())
	}

	st, err := daemon.OpenStore(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens, err := daemon.OpenTokens(cfg.Token.Backend, st)
	if err != nil {
		return err
	}

	if logout, _ := cmd.Flags().GetBool("logout"); logout {
		if err := tokens.DeleteToken(ctx); err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}
		fmt.Println("✓ Token deleted")
		return nil
	}

	if token, _ := cmd.Flags().GetString("token"); token != "" {
		if err := tokens.SetToken(ctx, strings.TrimSpace(token)); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}
		fmt.Println("✓ Token stored")
		return nil
	}

	fmt.Println("Yandex Music Login")
	fmt.Println("==================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	client := daemonClient(cfg)
	if err := client.Send(ctx, playback.OpenOAuth{}); err == nil {
		return loginViaDaemon(ctx, client, reader)
	} else if !errors.Is(err, api.ErrDaemonUnavailable) {
		return err
	}
	return loginLocally(ctx, cfg, tokens, reader)
}

// loginViaDaemon hands pasted redirects to the daemon's pending login.
func loginViaDaemon(ctx context.Context, client *api.Client, reader *bufio.Reader) error {
	fmt.Println("The daemon opened the login page in your browser.")

	for i := 0; i < maxRedirectAttempts; i++ {
		redirect, err := promptRedirect(reader)
		if err != nil {
			return err
		}
		err = client.SubmitRedirect(ctx, redirect)
		if err == nil {
			fmt.Println("\n✓ Login successful! The daemon is using the new token.")
			return nil
		}
		if !errors.Is(err, api.ErrNoPendingLogin) {
			return err
		}
		fmt.Printf("No access token found in that URL (attempt %d/%d).\n", i+1, maxRedirectAttempts)
	}
	return fmt.Errorf("login failed after %d attempts", maxRedirectAttempts)
}

// loginLocally runs the login in this process and writes the token store.
func loginLocally(ctx context.Context, cfg *config.Config, tokens auth.TokenStore, reader *bufio.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	capturer := auth.NewCapturer(cfg.OAuth.ClientID, zerolog.Nop())
	result, err := capturer.Begin(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Please sign in at this URL if your browser did not open:")
	fmt.Printf("\n  %s\n\n", capturer.AuthURL())

	captured := false
	for i := 0; i < maxRedirectAttempts && !captured; i++ {
		redirect, err := promptRedirect(reader)
		if err != nil {
			return err
		}
		if captured = capturer.Observe(redirect); !captured {
			fmt.Printf("No access token found in that URL (attempt %d/%d).\n", i+1, maxRedirectAttempts)
		}
	}
	if !captured {
		// Ends the pending login so result closes.
		cancel()
	}

	token, ok := <-result
	if !ok {
		return fmt.Errorf("login failed after %d attempts", maxRedirectAttempts)
	}
	if err := tokens.SetToken(context.Background(), token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	fmt.Println("\n✓ Login successful!")
	fmt.Println("\nYou can now use 'yamp daemon' to start playback.")
	return nil
}

func promptRedirect(reader *bufio.Reader) (string, error) {
	fmt.Print("Paste the URL from your browser: ")
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read URL: %w", err)
	}
	return strings.TrimSpace(line), nil
}
