package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the yamp daemon user service",
	Long: `Stop the yamp daemon and remove the launchd agent or systemd user unit
written by 'yamp install'. The daemon will no longer start on login.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := currentServiceManager()
		if err != nil {
			return err
		}

		path, err := mgr.path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Printf("Daemon is not installed (%s not found)\n", path)
			return nil
		}

		fmt.Println("Stopping daemon...")
		if err := mgr.unload(); err != nil {
			fmt.Printf("Warning: failed to stop daemon: %v\n", err)
		} else {
			fmt.Println("✓ Daemon stopped")
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		fmt.Printf("✓ Removed %s\n", path)

		if runtime.GOOS == "linux" {
			// Forget the removed unit.
			if err := runTool("systemctl", "--user", "daemon-reload"); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
		}

		fmt.Println("\nThe yamp daemon has been uninstalled.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  yamp install")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
