package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanbriolat/youtube-to-go/internal/session"
)

const (
	EnvAPIKey    = "YOUTUBE_API_KEY"
	EnvChannelID = "YOUTUBE_CHANNEL_ID"

	DefaultDatabasePath = ".youtube-to-go.db"
)

var (
	ErrNoMode = errors.New("either a URL or a channel must be specified")
)

type Mode int

const (
	ModeURL Mode = iota
	ModeChannel
)

func (m Mode) String() string {
	switch m {
	case ModeURL:
		return "url"
	case ModeChannel:
		return "channel"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Config holds application configuration. Values come from defaults, then the TOML file, then the environment,
// then command line flags, each overriding the last.
type Config struct {
	APIKey             string `toml:"api_key"`
	Channel            string `toml:"channel"`
	Concurrency        int    `toml:"concurrency"`
	ConvertConcurrency int    `toml:"convert_concurrency"`
	ConvertCommand     string `toml:"convert_command"`
	SourceExt          string `toml:"source_ext"`
	TargetExt          string `toml:"target_ext"`
	// Match URLs only against the named provider.
	Provider string `toml:"provider"`
	// Path of the fetch index, or empty to disable it.
	Database string `toml:"database"`

	// Only settable from the command line.
	URL            string `toml:"-"`
	Audio          bool   `toml:"-"`
	RebuildCatalog bool   `toml:"-"`
}

func Default() *Config {
	return &Config{
		Concurrency:        session.DefaultConfig.Concurrency,
		ConvertConcurrency: session.DefaultConfig.ConvertConcurrency,
		ConvertCommand:     session.DefaultConfig.ConvertCommand,
		SourceExt:          session.DefaultConfig.SourceExt,
		TargetExt:          session.DefaultConfig.TargetExt,
		Database:           DefaultDatabasePath,
	}
}

// Load returns the default Config overridden by the TOML file at path, if path isn't empty. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from the named files, or .env by default, without overriding variables
// that are already set. Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, filename := range filenames {
		if err := godotenv.Load(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", filename, err)
		}
	}
	return nil
}

// ApplyEnv overrides the config with any non-empty environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvChannelID); v != "" {
		c.Channel = v
	}
}

// Mode decides what to download: a URL takes priority over a channel.
func (c *Config) Mode() (Mode, error) {
	switch {
	case c.URL != "":
		return ModeURL, nil
	case c.Channel != "":
		return ModeChannel, nil
	default:
		return 0, ErrNoMode
	}
}

// Validate checks the config is usable for mode.
func (c *Config) Validate(mode Mode) error {
	if mode == ModeChannel && c.APIKey == "" {
		return session.ErrMissingAPIKey
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.ConvertConcurrency < 1 {
		return fmt.Errorf("convert concurrency must be at least 1, got %d", c.ConvertConcurrency)
	}
	if !strings.HasPrefix(c.SourceExt, ".") || !strings.HasPrefix(c.TargetExt, ".") {
		return fmt.Errorf("extensions must start with \".\", got %q and %q", c.SourceExt, c.TargetExt)
	}
	return nil
}

// SessionConfig converts to a session.Config, using db as the fetch index.
func (c *Config) SessionConfig(db session.Database) session.Config {
	sc := session.DefaultConfig
	sc.APIKey = c.APIKey
	sc.Audio = c.Audio
	sc.RebuildCatalog = c.RebuildCatalog
	sc.Concurrency = c.Concurrency
	sc.ConvertCommand = c.ConvertCommand
	sc.ConvertConcurrency = c.ConvertConcurrency
	sc.SourceExt = c.SourceExt
	sc.TargetExt = c.TargetExt
	sc.Provider = c.Provider
	if db != nil {
		sc.Database = db
	}
	return sc
}
