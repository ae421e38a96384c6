package media

import "errors"

// Resolution errors, checked in this order by Resolve.
var (
	// ErrUnextractable is returned when the collaborator yields no metadata.
	ErrUnextractable = errors.New("media could not be extracted")

	// ErrUnsupportedLive is returned for live or upcoming streams.
	ErrUnsupportedLive = errors.New("live streams are not supported")

	// ErrDurationExceeded is returned when the media is longer than the ceiling.
	ErrDurationExceeded = errors.New("media duration exceeds maximum allowed")

	// ErrNoPlayableFormat is returned when no format carries both video and audio.
	ErrNoPlayableFormat = errors.New("no playable format with video and audio")
)

var (
	// ErrInvalidURL is returned for text that is not an http(s) URL.
	ErrInvalidURL = errors.New("not a valid link")

	// ErrInvalidToken is returned when a selection token cannot be parsed.
	ErrInvalidToken = errors.New("invalid selection token")
)

// IsResolutionError reports whether err is one of the resolution failures.
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrUnextractable) ||
		errors.Is(err, ErrUnsupportedLive) ||
		errors.Is(err, ErrDurationExceeded) ||
		errors.Is(err, ErrNoPlayableFormat)
}
