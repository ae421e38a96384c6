// Package progress throttles extractor progress callbacks into chat edits.
package progress

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the phase reported by the extractor callback.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
)

// Update is one raw callback from the extractor.
type Update struct {
	Status     Status
	Downloaded int64
	Total      int64   // 0 when neither exact nor estimated size is known
	Rate       float64 // bytes per second, 0 if unknown
	ETA        time.Duration
}

// barCells is the width of the rendered progress bar.
const barCells = 20

// Snapshot is the latest rendered view of a job's progress. Each one
// replaces the previous; no history is kept.
type Snapshot struct {
	Downloaded int64
	Total      int64
	Rate       float64
	ETA        time.Duration
	Percent    float64
	Bar        string
}

// NewSnapshot derives the percentage and bar from u.
func NewSnapshot(u Update) Snapshot {
	p := percent(u.Downloaded, u.Total)
	return Snapshot{
		Downloaded: u.Downloaded,
		Total:      u.Total,
		Rate:       u.Rate,
		ETA:        u.ETA,
		Percent:    p,
		Bar:        Bar(p),
	}
}

// Text renders the message body for an in-flight download.
func (s Snapshot) Text() string {
	var b strings.Builder
	b.WriteString(TextDownloading)
	b.WriteString("\n")
	fmt.Fprintf(&b, "[%s] %.1f%%", s.Bar, s.Percent)
	if s.Rate > 0 {
		fmt.Fprintf(&b, "\n%s/s", humanize.IBytes(uint64(s.Rate)))
		if s.ETA > 0 {
			fmt.Fprintf(&b, " · %s left", s.ETA.Round(time.Second))
		}
	}
	return b.String()
}

// Bar renders percent as barCells cells, rounded down.
func Bar(percent float64) string {
	blocks := int(math.Floor(percent / (100.0 / barCells)))
	if blocks < 0 {
		blocks = 0
	}
	if blocks > barCells {
		blocks = barCells
	}
	return strings.Repeat("█", blocks) + strings.Repeat(" ", barCells-blocks)
}

func percent(done, total int64) float64 {
	if total <= 0 || done <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Status texts shown in the progress message.
const (
	TextStarting    = "⏳ Starting download..."
	TextDownloading = "⏳ Downloading..."
	TextUploading   = "✅ Processing complete! Uploading file..."
)
