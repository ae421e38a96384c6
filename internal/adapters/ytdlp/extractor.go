// Package ytdlp drives the yt-dlp binary for metadata probes and downloads.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/vmunix/tubebot/internal/job"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/progress"
)

// Defaults used when Config fields are zero.
const (
	DefaultSocketTimeout    = 30 * time.Second
	DefaultRetries          = 3
	DefaultProgressInterval = 500 * time.Millisecond
	mergeFormat             = "mp4"
)

// Config controls how yt-dlp is invoked.
type Config struct {
	Binary           string // empty uses the one on PATH or the managed install
	SocketTimeout    time.Duration
	Retries          int
	CookieFile       string
	ProgressInterval time.Duration
}

// Extractor implements media.Prober and job.Fetcher on yt-dlp.
type Extractor struct {
	cfg Config
	log *slog.Logger
}

var (
	_ media.Prober = (*Extractor)(nil)
	_ job.Fetcher  = (*Extractor)(nil)
)

// New returns an extractor for cfg.
func New(cfg Config, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = DefaultSocketTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	return &Extractor{cfg: cfg, log: log.With("component", "ytdlp")}
}

// Install makes sure a usable yt-dlp binary is available, downloading one
// into the cache directory when none is found.
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// command returns a builder with the options shared by probes and fetches.
func (e *Extractor) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		SocketTimeout(e.cfg.SocketTimeout.Seconds()).
		Retries(strconv.Itoa(e.cfg.Retries))
	if e.cfg.Binary != "" {
		cmd.SetExecutable(e.cfg.Binary)
	}
	if e.cfg.CookieFile != "" {
		cmd.Cookies(e.cfg.CookieFile)
	}
	return cmd
}

// Probe fetches metadata for url without downloading media.
func (e *Extractor) Probe(ctx context.Context, url string) (*media.Metadata, error) {
	start := time.Now()
	res, err := e.command().
		DumpSingleJSON().
		SkipDownload().
		Run(ctx, url)
	if err != nil {
		return nil, runError(ctx, res, err)
	}

	md, err := parseInfo([]byte(res.Stdout))
	if err != nil {
		return nil, err
	}
	e.log.Debug("probed", "url", url, "id", md.ID, "formats", len(md.Formats), "took", time.Since(start).Round(time.Millisecond))
	return md, nil
}

// Fetch downloads req into its output template, forwarding progress to
// report. The returned path is empty when yt-dlp did not name a file that
// exists on disk.
func (e *Extractor) Fetch(ctx context.Context, req job.FetchRequest, report func(progress.Update)) (string, error) {
	cmd := e.command().
		Format(req.Selector).
		Output(req.OutputTemplate).
		ForceOverwrites()
	if pp := req.PostProcess; pp != nil {
		cmd.ExtractAudio().AudioFormat(pp.Codec)
		if pp.Quality != "" {
			cmd.AudioQuality(pp.Quality + "K")
		}
	} else {
		cmd.MergeOutputFormat(mergeFormat)
	}
	if report != nil {
		cmd.ProgressFunc(e.cfg.ProgressInterval, func(u ytdlp.ProgressUpdate) {
			report(convertProgress(u, time.Now()))
		})
	}

	res, err := cmd.Run(ctx, req.URL)
	if err != nil {
		return "", runError(ctx, res, err)
	}
	return artifactPath(res), nil
}

// artifactPath returns the final filename yt-dlp reported, if it exists.
func artifactPath(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	info, err := res.GetExtractedInfo()
	if err != nil || len(info) == 0 || info[0].Filename == nil {
		return ""
	}
	path := *info[0].Filename
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// runError turns a failed run into an error carrying yt-dlp's own message.
func runError(ctx context.Context, res *ytdlp.Result, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if res != nil {
		if msg := lastErrorLine(res.Stderr); msg != "" {
			return errors.New(msg)
		}
	}
	return fmt.Errorf("yt-dlp: %w", err)
}

// lastErrorLine picks the final "ERROR:" line from yt-dlp's stderr.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if rest, ok := strings.CutPrefix(line, "ERROR:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// convertProgress maps a yt-dlp progress update onto the reporter's model.
func convertProgress(u ytdlp.ProgressUpdate, now time.Time) progress.Update {
	out := progress.Update{
		Status:     progress.StatusDownloading,
		Downloaded: int64(u.DownloadedBytes),
		Total:      int64(u.TotalBytes),
		ETA:        u.ETA(),
	}
	if u.Status == ytdlp.ProgressStatusFinished {
		out.Status = progress.StatusFinished
	}
	if !u.Started.IsZero() {
		if elapsed := now.Sub(u.Started).Seconds(); elapsed > 0 {
			out.Rate = float64(u.DownloadedBytes) / elapsed
		}
	}
	if out.ETA < 0 {
		out.ETA = 0
	}
	return out
}

// info is the subset of yt-dlp's JSON output the resolver needs.
type info struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Uploader   string      `json:"uploader"`
	Channel    string      `json:"channel"`
	WebpageURL string      `json:"webpage_url"`
	Duration   float64     `json:"duration"`
	IsLive     bool        `json:"is_live"`
	LiveStatus string      `json:"live_status"`
	Formats    []format    `json:"formats"`
	Thumbnails []thumbnail `json:"thumbnails"`
	Thumbnail  string      `json:"thumbnail"`
}

type format struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	FormatNote     string  `json:"format_note"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	VideoExt       string  `json:"video_ext"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	TBR            float64 `json:"tbr"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

type thumbnail struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// parseInfo decodes a --dump-single-json document.
func parseInfo(data []byte) (*media.Metadata, error) {
	var in info
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	if in.ID == "" && in.Title == "" {
		return nil, errors.New("yt-dlp returned no video information")
	}

	md := &media.Metadata{
		ID:         in.ID,
		Title:      in.Title,
		Uploader:   in.Uploader,
		WebpageURL: in.WebpageURL,
		Duration:   in.Duration,
		IsLive:     in.IsLive,
		LiveStatus: in.LiveStatus,
	}
	if md.Uploader == "" {
		md.Uploader = in.Channel
	}
	for _, f := range in.Formats {
		md.Formats = append(md.Formats, media.RawFormat{
			ID:             f.FormatID,
			Ext:            f.Ext,
			Note:           f.FormatNote,
			VCodec:         f.VCodec,
			ACodec:         f.ACodec,
			VideoExt:       f.VideoExt,
			Width:          int(f.Width),
			Height:         int(f.Height),
			Bitrate:        f.TBR,
			Filesize:       int64(f.Filesize),
			FilesizeApprox: int64(f.FilesizeApprox),
		})
	}
	for _, t := range in.Thumbnails {
		md.Thumbnails = append(md.Thumbnails, media.Thumbnail{
			URL:    t.URL,
			Width:  int(t.Width),
			Height: int(t.Height),
		})
	}
	if len(md.Thumbnails) == 0 && in.Thumbnail != "" {
		md.Thumbnails = []media.Thumbnail{{URL: in.Thumbnail}}
	}
	return md, nil
}
