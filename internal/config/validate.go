// internal/config/validate.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "": true,
}

var validAudioCodecs = map[string]bool{
	"mp3": true, "m4a": true, "opus": true, "vorbis": true, "flac": true, "wav": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Telegram.Token == "" {
		errs = append(errs, "telegram.token: required")
	}

	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}
	if !validLogFormats[c.Server.LogFormat] {
		errs = append(errs, fmt.Sprintf("server.log_format: must be text or json; got %q", c.Server.LogFormat))
	}

	if c.Storage.Root == "" {
		errs = append(errs, "storage.root: required")
	}
	if c.Storage.SweepInterval < 0 || c.Storage.SweepHorizon < 0 {
		errs = append(errs, "storage: sweep_horizon and sweep_interval must not be negative")
	}

	if c.Limits.Cooldown < 0 {
		errs = append(errs, fmt.Sprintf("limits.cooldown: must not be negative, got %s", c.Limits.Cooldown))
	}
	if c.Limits.MaxDuration < 0 {
		errs = append(errs, fmt.Sprintf("limits.max_duration: must not be negative, got %s", c.Limits.MaxDuration))
	}
	if c.Limits.MaxFileSize < 0 {
		errs = append(errs, "limits.max_file_size: must not be negative")
	}
	if c.Limits.MaxConcurrentJobs < 0 || c.Limits.MaxConcurrentJobs > 64 {
		errs = append(errs, fmt.Sprintf("limits.max_concurrent_jobs: must be between 1 and 64, got %d", c.Limits.MaxConcurrentJobs))
	}

	if c.Progress.MinDelta < 0 || c.Progress.MinDelta > 5 {
		errs = append(errs, fmt.Sprintf("progress.min_delta: must be between 0 and 5, got %g", c.Progress.MinDelta))
	}
	if c.Progress.Interval < 0 {
		errs = append(errs, "progress.interval: must not be negative")
	}

	if c.Extractor.AudioCodec != "" && !validAudioCodecs[c.Extractor.AudioCodec] {
		errs = append(errs, fmt.Sprintf("extractor.audio_codec: unsupported codec %q", c.Extractor.AudioCodec))
	}
	for _, tier := range c.Extractor.AudioTiers {
		if n, err := strconv.Atoi(tier); err != nil || n <= 0 {
			errs = append(errs, fmt.Sprintf("extractor.audio_tiers: %q is not a bitrate in kbps", tier))
		}
	}
	if c.Extractor.MaxVideoOptions < 0 {
		errs = append(errs, "extractor.max_video_options: must not be negative")
	}
	if c.Extractor.Retries < 0 {
		errs = append(errs, "extractor.retries: must not be negative")
	}

	// Cookie file warning (non-fatal for the extractor, but usually a typo)
	if c.Extractor.CookieFile != "" {
		if _, err := os.Stat(c.Extractor.CookieFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("extractor.cookie_file: file %q does not exist", c.Extractor.CookieFile))
		}
	}

	return errs
}
