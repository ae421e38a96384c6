package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Defaults used when Config fields are zero.
const (
	DefaultMaxDuration     = 2 * time.Hour
	DefaultProbeTimeout    = time.Minute
	DefaultMaxVideoOptions = 3
)

// DefaultAudioTiers are offered for every resolved candidate.
var DefaultAudioTiers = []AudioTier{"128", "320"}

// Mode selects which validation path Resolve applies.
type Mode int

const (
	// ModeVideo requires at least one format with both video and audio.
	ModeVideo Mode = iota
	// ModeAudio only offers audio tiers and skips the playable-format check.
	ModeAudio
)

// Config controls resolution policy.
type Config struct {
	MaxDuration     time.Duration
	ProbeTimeout    time.Duration
	MaxVideoOptions int
	AudioTiers      []AudioTier
}

// Resolver turns a raw URL into a Candidate.
type Resolver struct {
	prober Prober
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// NewResolver creates a resolver backed by the given prober.
func NewResolver(p Prober, cfg Config, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.MaxVideoOptions <= 0 {
		cfg.MaxVideoOptions = DefaultMaxVideoOptions
	}
	if len(cfg.AudioTiers) == 0 {
		cfg.AudioTiers = DefaultAudioTiers
	}
	return &Resolver{
		prober: p,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// MaxDuration returns the configured duration ceiling.
func (r *Resolver) MaxDuration() time.Duration {
	return r.cfg.MaxDuration
}

// Resolve probes rawURL and validates the result against policy.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, mode Mode) (*Candidate, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	meta, err := r.prober.Probe(ctx, rawURL)
	if err != nil {
		r.log.Warn("probe failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnextractable, err)
	}
	if meta == nil {
		return nil, ErrUnextractable
	}

	if meta.IsLive || meta.LiveStatus == "is_live" || meta.LiveStatus == "is_upcoming" {
		return nil, ErrUnsupportedLive
	}

	duration := time.Duration(meta.Duration * float64(time.Second))
	if duration > r.cfg.MaxDuration {
		return nil, fmt.Errorf("%w: %s > %s", ErrDurationExceeded, duration, r.cfg.MaxDuration)
	}

	c := &Candidate{
		URL:        rawURL,
		Title:      DisplayTitle(meta.Title),
		Uploader:   meta.Uploader,
		Duration:   duration,
		Thumbnail:  pickThumbnail(meta.Thumbnails),
		AudioTiers: append([]AudioTier(nil), r.cfg.AudioTiers...),
		ResolvedAt: r.now(),
	}

	if mode == ModeVideo {
		ranked := RankFormats(meta.Formats)
		if len(ranked) == 0 {
			return nil, ErrNoPlayableFormat
		}
		if len(ranked) > r.cfg.MaxVideoOptions {
			ranked = ranked[:r.cfg.MaxVideoOptions]
		}
		c.Videos = ranked
	}

	r.log.Info("candidate resolved",
		"url", rawURL,
		"title", c.Title,
		"duration", c.Duration,
		"videos", len(c.Videos))
	return c, nil
}

// RankFormats keeps formats with both a video and an audio track and orders
// them by height, width, then bitrate, descending. Ties keep declaration order.
func RankFormats(raw []RawFormat) []Format {
	formats := make([]Format, 0, len(raw))
	for i, f := range raw {
		if !hasVideo(f) || !hasAudio(f) {
			continue
		}
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}
		formats = append(formats, Format{
			ID:      f.ID,
			Ext:     f.Ext,
			VCodec:  f.VCodec,
			ACodec:  f.ACodec,
			Width:   f.Width,
			Height:  f.Height,
			Bitrate: f.Bitrate,
			Size:    size,
			Note:    f.Note,
			order:   i,
		})
	}

	sort.SliceStable(formats, func(i, j int) bool {
		a, b := formats[i], formats[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.Width != b.Width {
			return a.Width > b.Width
		}
		if a.Bitrate != b.Bitrate {
			return a.Bitrate > b.Bitrate
		}
		return a.order < b.order
	})
	return formats
}

func hasVideo(f RawFormat) bool {
	if f.VCodec == "none" || f.VideoExt == "none" {
		return false
	}
	return f.VCodec != "" || f.Height > 0
}

func hasAudio(f RawFormat) bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// pickThumbnail returns the last thumbnail with a usable URL. Collaborators
// list thumbnails in ascending quality.
func pickThumbnail(thumbs []Thumbnail) string {
	for i := len(thumbs) - 1; i >= 0; i-- {
		if u := strings.TrimSpace(thumbs[i].URL); u != "" {
			return u
		}
	}
	return ""
}

// ValidateURL rejects anything that is not an absolute http(s) URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
