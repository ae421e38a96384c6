// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Database  DatabaseConfig  `toml:"database"`
	Storage   StorageConfig   `toml:"storage"`
	Limits    LimitsConfig    `toml:"limits"`
	Progress  ProgressConfig  `toml:"progress"`
	Extractor ExtractorConfig `toml:"extractor"`
}

type ServerConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "text" or "json"
}

type TelegramConfig struct {
	Token       string `toml:"token"`
	PollTimeout int    `toml:"poll_timeout"` // seconds
	Debug       bool   `toml:"debug"`
}

type DatabaseConfig struct {
	// Path of the SQLite file holding the event journal and usage counters.
	// Empty disables persistence.
	Path          string        `toml:"path"`
	JournalMaxAge time.Duration `toml:"journal_max_age"`
}

type StorageConfig struct {
	Root          string        `toml:"root"`
	SweepHorizon  time.Duration `toml:"sweep_horizon"`
	SweepInterval time.Duration `toml:"sweep_interval"`
}

type LimitsConfig struct {
	Cooldown          time.Duration `toml:"cooldown"`
	MaxDuration       time.Duration `toml:"max_duration"`
	MaxFileSize       ByteSize      `toml:"max_file_size"`
	MaxConcurrentJobs int           `toml:"max_concurrent_jobs"`
	UploadTimeout     time.Duration `toml:"upload_timeout"`
	SessionTTL        time.Duration `toml:"session_ttl"`
	MetadataTTL       time.Duration `toml:"metadata_ttl"`
}

type ProgressConfig struct {
	Interval       time.Duration `toml:"interval"`
	MinDelta       float64       `toml:"min_delta"` // percentage points
	HandoffTimeout time.Duration `toml:"handoff_timeout"`
	ControlQueue   int           `toml:"control_queue"`
}

type ExtractorConfig struct {
	Binary          string        `toml:"binary"` // empty uses the go-ytdlp managed install
	ProbeTimeout    time.Duration `toml:"probe_timeout"`
	FetchTimeout    time.Duration `toml:"fetch_timeout"`
	SocketTimeout   time.Duration `toml:"socket_timeout"`
	Retries         int           `toml:"retries"`
	CookieFile      string        `toml:"cookie_file"`
	AudioCodec      string        `toml:"audio_codec"`
	AudioTiers      []string      `toml:"audio_tiers"`
	MaxVideoOptions int           `toml:"max_video_options"`
}

// ByteSize is a byte count written in TOML as a human string ("50MiB", "2GB").
type ByteSize int64

// UnmarshalText parses values accepted by humanize.ParseBytes.
func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", text, err)
	}
	*b = ByteSize(n)
	return nil
}

// MarshalText renders the size in IEC units.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(strings.ReplaceAll(humanize.IBytes(uint64(b)), " ", "")), nil
}

// Int64 returns the size in bytes.
func (b ByteSize) Int64() int64 {
	return int64(b)
}

// Load reads, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file and applies
// defaults, but skips Validate. Used by commands that never talk to Telegram.
func LoadWithoutValidation(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied and no token.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60
	}
	if c.Database.JournalMaxAge == 0 {
		c.Database.JournalMaxAge = 7 * 24 * time.Hour
	}

	if c.Storage.Root == "" {
		c.Storage.Root = "./data/downloads"
	}
	if c.Storage.SweepHorizon == 0 {
		c.Storage.SweepHorizon = time.Hour
	}
	if c.Storage.SweepInterval == 0 {
		c.Storage.SweepInterval = 10 * time.Minute
	}

	if c.Limits.Cooldown == 0 {
		c.Limits.Cooldown = 30 * time.Second
	}
	if c.Limits.MaxDuration == 0 {
		c.Limits.MaxDuration = 2 * time.Hour
	}
	if c.Limits.MaxFileSize == 0 {
		c.Limits.MaxFileSize = 50 << 20
	}
	if c.Limits.MaxConcurrentJobs == 0 {
		c.Limits.MaxConcurrentJobs = 4
	}
	if c.Limits.UploadTimeout == 0 {
		c.Limits.UploadTimeout = 10 * time.Minute
	}
	if c.Limits.SessionTTL == 0 {
		c.Limits.SessionTTL = time.Hour
	}
	if c.Limits.MetadataTTL == 0 {
		c.Limits.MetadataTTL = 10 * time.Minute
	}

	if c.Progress.Interval == 0 {
		c.Progress.Interval = time.Second
	}
	if c.Progress.HandoffTimeout == 0 {
		c.Progress.HandoffTimeout = 5 * time.Second
	}
	if c.Progress.ControlQueue == 0 {
		c.Progress.ControlQueue = 64
	}

	if c.Extractor.ProbeTimeout == 0 {
		c.Extractor.ProbeTimeout = time.Minute
	}
	if c.Extractor.FetchTimeout == 0 {
		c.Extractor.FetchTimeout = 30 * time.Minute
	}
	if c.Extractor.SocketTimeout == 0 {
		c.Extractor.SocketTimeout = 30 * time.Second
	}
	if c.Extractor.Retries == 0 {
		c.Extractor.Retries = 3
	}
	if c.Extractor.AudioCodec == "" {
		c.Extractor.AudioCodec = "mp3"
	}
	if len(c.Extractor.AudioTiers) == 0 {
		c.Extractor.AudioTiers = []string{"128", "320"}
	}
	if c.Extractor.MaxVideoOptions == 0 {
		c.Extractor.MaxVideoOptions = 3
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars expands environment references in content. It returns
// the expanded content and one entry per reference that could not be
// resolved; unresolved references are left in place.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if !ok || value == "" {
				return arg
			}
			return value
		case ":?":
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, arg))
				return match
			}
			return value
		default:
			if !ok {
				missing = append(missing, name)
				return match
			}
			return value
		}
	})
	return out, missing
}
