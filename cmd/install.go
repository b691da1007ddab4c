package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jfmyers9/yamp/internal/daemon"
	"github.com/spf13/cobra"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the yamp daemon as a user service",
	Long: `Install the yamp daemon so it runs automatically on login.

On macOS this writes a launchd agent to ~/Library/LaunchAgents/ and
bootstraps it with launchctl. On Linux it writes a systemd user unit to
~/.config/systemd/user/ and enables it with systemctl --user.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

// serviceManager installs the daemon with the platform's service manager.
type serviceManager struct {
	name     string
	path     func() (string, error)
	generate func(daemon.ServiceConfig) (string, error)
	load     func(path string) error
	unload   func() error
	status   string
}

func currentServiceManager() (serviceManager, error) {
	switch runtime.GOOS {
	case "darwin":
		return serviceManager{
			name:     "launchd agent",
			path:     daemon.GetPlistPath,
			generate: daemon.GeneratePlist,
			load:     launchdLoad,
			unload:   launchdUnload,
			status:   "launchctl list | grep " + daemon.LaunchdLabel,
		}, nil
	case "linux":
		return serviceManager{
			name:     "systemd user unit",
			path:     daemon.GetUnitPath,
			generate: daemon.GenerateUnit,
			load:     systemdLoad,
			unload:   systemdUnload,
			status:   "systemctl --user status " + daemon.SystemdUnit,
		}, nil
	default:
		return serviceManager{}, fmt.Errorf("install is not supported on %s", runtime.GOOS)
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	mgr, err := currentServiceManager()
	if err != nil {
		return err
	}

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	logPath, err := daemon.GetDefaultLogPath()
	if err != nil {
		return fmt.Errorf("failed to get log path: %w", err)
	}
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	content, err := mgr.generate(daemon.ServiceConfig{
		BinaryPath:       binaryPath,
		LogPath:          logPath,
		WorkingDirectory: home,
	})
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", mgr.name, err)
	}

	path, err := mgr.path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Println("Daemon is already installed. Reinstalling...")
		if err := mgr.unload(); err != nil {
			fmt.Printf("Warning: failed to stop existing daemon: %v\n", err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("✓ Installed %s to %s\n", mgr.name, path)

	if err := mgr.load(path); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Println("✓ Daemon started")
	fmt.Printf("✓ Logs will be written to %s\n", logPath)
	fmt.Println("\nCheck the daemon status with:")
	fmt.Printf("  %s\n", mgr.status)
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  yamp uninstall")
	return nil
}

// runTool runs a service manager command, folding its output into the error.
func runTool(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("%s %s: %s", name, args[0], msg)
		}
		return fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return nil
}

func launchdDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

func launchdLoad(plistPath string) error {
	return runTool("launchctl", "bootstrap", launchdDomain(), plistPath)
}

// launchdUnload boots the agent out; an agent that is not loaded is fine.
func launchdUnload() error {
	if err := runTool("launchctl", "bootout", launchdDomain()+"/"+daemon.LaunchdLabel); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	return nil
}

func systemdLoad(string) error {
	if err := runTool("systemctl", "--user", "daemon-reload"); err != nil {
		return err
	}
	return runTool("systemctl", "--user", "enable", "--now", daemon.SystemdUnit)
}

func systemdUnload() error {
	if err := runTool("systemctl", "--user", "disable", "--now", daemon.SystemdUnit); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	return nil
}
