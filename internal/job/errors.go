package job

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/storage"
)

// Sentinel errors for the job package.
var (
	// ErrSessionExpired is returned when a selection arrives for a session
	// that no longer holds resolved metadata.
	ErrSessionExpired = errors.New("session expired")

	// ErrJobActive is returned when the identity already has a job in flight.
	ErrJobActive = errors.New("a download is already in progress")

	// ErrRateLimited is returned when the identity is inside its cooldown window.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient is returned when the extractor gave up after its own retries.
	ErrTransient = errors.New("fetch failed")

	// ErrUploadFailed is returned when the messaging surface rejected the file.
	ErrUploadFailed = errors.New("upload failed")

	// ErrCancelled is recorded on jobs the user cancelled.
	ErrCancelled = errors.New("cancelled by user")

	// ErrNoJob is returned by Cancel when the identity has no job in flight.
	ErrNoJob = errors.New("no active download")

	// ErrNotCancellable is returned by Cancel once the job is past fetching.
	ErrNotCancellable = errors.New("download is already being delivered")
)

// Kind classifies a terminal failure.
type Kind string

const (
	KindUnextractable    Kind = "unextractable"
	KindUnsupportedLive  Kind = "unsupported_live"
	KindDurationExceeded Kind = "duration_exceeded"
	KindNoPlayableFormat Kind = "no_playable_format"
	KindInvalidURL       Kind = "invalid_url"
	KindSessionExpired   Kind = "session_expired"
	KindTransient        Kind = "transient"
	KindNotFound         Kind = "not_found"
	KindEmptyFile        Kind = "empty_file"
	KindSizeExceeded     Kind = "size_exceeded"
	KindUploadFailed     Kind = "upload_failed"
	KindRateLimited      Kind = "rate_limited"
	KindStorage          Kind = "storage"
	KindCancelled        Kind = "cancelled"
	KindInternal         Kind = "internal"
)

// Failure is the typed terminal error of a job.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail wraps err with the kind derived from it.
func Fail(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: Classify(err), Err: err}
}

// Classify maps an error from any stage to its failure kind.
func Classify(err error) Kind {
	var rl *RateLimitedError
	switch {
	case errors.As(err, &rl), errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, media.ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, media.ErrUnextractable):
		return KindUnextractable
	case errors.Is(err, media.ErrUnsupportedLive):
		return KindUnsupportedLive
	case errors.Is(err, media.ErrDurationExceeded):
		return KindDurationExceeded
	case errors.Is(err, media.ErrNoPlayableFormat):
		return KindNoPlayableFormat
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, storage.ErrNotFound):
		return KindNotFound
	case errors.Is(err, storage.ErrEmptyFile):
		return KindEmptyFile
	case errors.Is(err, storage.ErrSizeExceeded):
		return KindSizeExceeded
	case errors.Is(err, ErrUploadFailed):
		return KindUploadFailed
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	default:
		return KindInternal
	}
}

// RateLimitedError carries how long the identity must wait.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry in %s", e.Wait.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Limits are the values user messages quote back.
type Limits struct {
	MaxDuration time.Duration
	MaxFileSize int64
}

// maxMessageRunes bounds the user-visible error line.
const maxMessageRunes = 200

// UserMessage renders err as the single line shown to the user.
func UserMessage(err error, limits Limits) string {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return fmt.Sprintf("⏳ Please wait %d seconds between requests", int(math.Ceil(rl.Wait.Seconds())))
	}

	switch Classify(err) {
	case KindSessionExpired:
		return "❌ Session expired. Please send a new link"
	case KindInvalidURL:
		return "❌ Please send a valid http(s) link"
	case KindUnsupportedLive:
		return "📡 Live streams are not supported"
	case KindDurationExceeded:
		return fmt.Sprintf("⏳ Videos longer than %s are not supported", humanDuration(limits.MaxDuration))
	case KindNoPlayableFormat:
		return "❌ No downloadable video format with sound was found. Try /audio instead"
	case KindSizeExceeded:
		if limits.MaxFileSize > 0 {
			return fmt.Sprintf("📁 File exceeds the %s size limit", humanize.IBytes(uint64(limits.MaxFileSize)))
		}
		return "📁 File exceeds the size limit"
	case KindEmptyFile:
		return "❌ Error: the download produced an empty file"
	case KindNotFound:
		return "❌ Error: the download produced no file"
	}
	return "❌ Error: " + truncate(rootCause(err).Error(), maxMessageRunes)
}

// rootCause unwraps Failure so the message shows the collaborator's text.
func rootCause(err error) error {
	var f *Failure
	if errors.As(err, &f) && f.Err != nil {
		return f.Err
	}
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "the limit"
	}
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
