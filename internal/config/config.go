package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artists}} - {{.Title}}"
	OutputFormat string

	// Fixed output width for the now command (0 disables padding)
	OutputWidth int

	// Marquee scrolling for text longer than OutputWidth
	MarqueeEnabled   bool
	MarqueeSpeed     int
	MarqueeSeparator string

	// Directory for the snapshot store and logs
	DataDir string

	API     APIConfig
	Catalog CatalogConfig
	OAuth   OAuthConfig
	Sink    SinkConfig
	Storage StorageConfig
	Token   TokenConfig
	Discord DiscordConfig
}

// APIConfig configures the local UI API
type APIConfig struct {
	Listen string
}

// CatalogConfig configures the music catalog client
type CatalogConfig struct {
	BaseURL   string
	RateLimit float64 // requests per second, 0 means unlimited
}

// OAuthConfig holds the login client registration
type OAuthConfig struct {
	ClientID string
}

// SinkConfig selects and tunes the audio sink
type SinkConfig struct {
	Backend          string // "mpv" or "null"
	MPVPath          string
	ProgressInterval time.Duration
}

// StorageConfig selects the snapshot store backend
type StorageConfig struct {
	Backend string // "sqlite" or "file"
}

// TokenConfig selects where the catalog token lives
type TokenConfig struct {
	Backend string // "store" or "keyring"
}

// DiscordConfig enables Rich Presence when AppID is set
type DiscordConfig struct {
	AppID string
}

// Storage and token backends.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"

	TokenStore   = "store"
	TokenKeyring = "keyring"

	SinkMPV  = "mpv"
	SinkNull = "null"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_format", "{{.Artists}} - {{.Title}}")
	v.SetDefault("width", 0)
	v.SetDefault("marquee", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("api.listen", "127.0.0.1:7451")
	v.SetDefault("catalog.base_url", "https://api.music.yandex.net")
	v.SetDefault("catalog.rate_limit", 5)
	v.SetDefault("oauth.client_id", "23cabbbdc6cd418abb4b39c32c41195d")
	v.SetDefault("sink.backend", SinkMPV)
	v.SetDefault("sink.mpv_path", "mpv")
	v.SetDefault("sink.progress_interval", 200*time.Millisecond)
	v.SetDefault("storage.backend", StorageSQLite)
	v.SetDefault("token.backend", TokenStore)
	v.SetDefault("discord.app_id", "")
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// Config file locations (in order of precedence)
	return loadFrom(getConfigDir(), ".")
}

func loadFrom(dirs ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	setDefaults(v)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	// Read from environment variables, e.g. YAMP_API_LISTEN
	v.SetEnvPrefix("YAMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("width"),
		MarqueeEnabled:   v.GetBool("marquee"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
		DataDir:          v.GetString("data_dir"),
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Catalog: CatalogConfig{
			BaseURL:   v.GetString("catalog.base_url"),
			RateLimit: v.GetFloat64("catalog.rate_limit"),
		},
		OAuth: OAuthConfig{
			ClientID: v.GetString("oauth.client_id"),
		},
		Sink: SinkConfig{
			Backend:          v.GetString("sink.backend"),
			MPVPath:          v.GetString("sink.mpv_path"),
			ProgressInterval: v.GetDuration("sink.progress_interval"),
		},
		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
		},
		Token: TokenConfig{
			Backend: v.GetString("token.backend"),
		},
		Discord: DiscordConfig{
			AppID: v.GetString("discord.app_id"),
		},
	}
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "yamp")
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "yamp")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes the user-editable subset of the configuration to file
func (c *Config) Save() error {
	return c.saveTo(filepath.Join(getConfigDir(), "config.yaml"))
}

func (c *Config) saveTo(configFile string) error {
	v := viper.New()

	v.Set("output_format", c.OutputFormat)
	v.Set("width", c.OutputWidth)
	v.Set("marquee", c.MarqueeEnabled)
	v.Set("api.listen", c.API.Listen)
	v.Set("oauth.client_id", c.OAuth.ClientID)
	v.Set("storage.backend", c.Storage.Backend)
	v.Set("token.backend", c.Token.Backend)
	v.Set("discord.app_id", c.Discord.AppID)

	return v.WriteConfigAs(configFile)
}
