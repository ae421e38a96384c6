// Package media resolves source URLs into ranked, selectable encodings.
package media

import (
	"context"
	"fmt"
	"time"
)

// Metadata is what the extraction collaborator reports for a URL in
// metadata-only mode.
type Metadata struct {
	ID         string
	Title      string
	Uploader   string
	WebpageURL string
	Duration   float64 // seconds
	IsLive     bool
	LiveStatus string // "is_live", "is_upcoming", "was_live", "not_live"
	Formats    []RawFormat
	Thumbnails []Thumbnail
}

// RawFormat is one format entry as declared by the collaborator.
type RawFormat struct {
	ID             string
	Ext            string
	Note           string
	VCodec         string
	ACodec         string
	VideoExt       string
	Width          int
	Height         int
	Bitrate        float64 // total bitrate, kbit/s
	Filesize       int64
	FilesizeApprox int64
}

// Thumbnail is a preview image reference.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// Prober invokes the extraction collaborator without fetching media bytes.
type Prober interface {
	Probe(ctx context.Context, url string) (*Metadata, error)
}

// Format is a ranked, selectable video encoding. Immutable once built.
type Format struct {
	ID      string
	Ext     string
	VCodec  string
	ACodec  string
	Width   int
	Height  int
	Bitrate float64
	Size    int64 // estimated bytes, 0 if unknown
	Note    string
	order   int
}

// Label returns the button text for the format, e.g. "720p (mp4)".
func (f Format) Label() string {
	q := f.Note
	if q == "" && f.Height > 0 {
		q = fmt.Sprintf("%dp", f.Height)
	}
	if q == "" {
		q = f.ID
	}
	if f.Ext == "" {
		return q
	}
	return fmt.Sprintf("%s (%s)", q, f.Ext)
}

// AudioTier is a fixed audio quality offered regardless of the probe.
type AudioTier string

// Label returns the button text for the tier.
func (t AudioTier) Label() string {
	return fmt.Sprintf("MP3 %skbps", string(t))
}

// Candidate is the resolved metadata plus the selectable options for one URL.
type Candidate struct {
	URL        string
	Title      string
	Uploader   string
	Duration   time.Duration
	Thumbnail  string // empty when no usable preview exists
	Videos     []Format
	AudioTiers []AudioTier
	ResolvedAt time.Time
}

// Video returns the surfaced video format with the given ID.
func (c *Candidate) Video(id string) (Format, bool) {
	for _, f := range c.Videos {
		if f.ID == id {
			return f, true
		}
	}
	return Format{}, false
}

// HasTier reports whether tier is one of the offered audio tiers.
func (c *Candidate) HasTier(tier AudioTier) bool {
	for _, t := range c.AudioTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// File is a delivered artifact with the metadata the messaging surface shows.
type File struct {
	Path      string
	Name      string
	Title     string
	Performer string
	Duration  time.Duration
	Size      int64
}

//go:generate mockgen -destination=mocks/mock_prober.go -package=mocks github.com/vmunix/tubebot/internal/media Prober
