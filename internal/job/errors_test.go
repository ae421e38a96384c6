package job

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{&RateLimitedError{Wait: time.Second}, KindRateLimited},
		{media.ErrInvalidURL, KindInvalidURL},
		{fmt.Errorf("%w: exit 1", media.ErrUnextractable), KindUnextractable},
		{media.ErrUnsupportedLive, KindUnsupportedLive},
		{media.ErrDurationExceeded, KindDurationExceeded},
		{media.ErrNoPlayableFormat, KindNoPlayableFormat},
		{ErrSessionExpired, KindSessionExpired},
		{storage.ErrNotFound, KindNotFound},
		{storage.ErrEmptyFile, KindEmptyFile},
		{fmt.Errorf("%w: 60 MiB > 50 MiB", storage.ErrSizeExceeded), KindSizeExceeded},
		{ErrUploadFailed, KindUploadFailed},
		{ErrTransient, KindTransient},
		{ErrCancelled, KindCancelled},
		{errors.New("something else"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFail_KeepsExistingFailure(t *testing.T) {
	f := &Failure{Kind: KindStorage, Err: errors.New("disk full")}
	assert.Same(t, f, Fail(fmt.Errorf("wrapped: %w", f)))
	assert.Equal(t, KindSizeExceeded, Fail(storage.ErrSizeExceeded).Kind)
}

func TestUserMessage(t *testing.T) {
	limits := Limits{MaxDuration: 2 * time.Hour, MaxFileSize: 50 << 20}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limit rounds up", &RateLimitedError{Wait: 12300 * time.Millisecond}, "⏳ Please wait 13 seconds between requests"},
		{"session", Fail(ErrSessionExpired), "❌ Session expired. Please send a new link"},
		{"live", media.ErrUnsupportedLive, "📡 Live streams are not supported"},
		{"duration", media.ErrDurationExceeded, "⏳ Videos longer than 2 hours are not supported"},
		{"size", Fail(storage.ErrSizeExceeded), "📁 File exceeds the 50 MiB size limit"},
		{"transient", &Failure{Kind: KindTransient, Err: fmt.Errorf("%w: HTTP Error 429", ErrTransient)}, "❌ Error: fetch failed: HTTP Error 429"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, limits))
		})
	}
}

func TestUserMessage_Truncates(t *testing.T) {
	long := errors.New(strings.Repeat("x", 500))
	msg := UserMessage(long, Limits{})
	assert.Equal(t, "❌ Error: "+strings.Repeat("x", 200), msg)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "3 hours", humanDuration(3*time.Hour))
	assert.Equal(t, "90 minutes", humanDuration(90*time.Minute))
	assert.Equal(t, "the limit", humanDuration(0))
}
