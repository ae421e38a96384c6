package bot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/tubebot/internal/bot"
	botmocks "github.com/vmunix/tubebot/internal/bot/mocks"
	"github.com/vmunix/tubebot/internal/job"
	jobmocks "github.com/vmunix/tubebot/internal/job/mocks"
	"github.com/vmunix/tubebot/internal/media"
	mediamocks "github.com/vmunix/tubebot/internal/media/mocks"
	"github.com/vmunix/tubebot/internal/progress"
	"github.com/vmunix/tubebot/internal/ratelimit"
	"github.com/vmunix/tubebot/internal/storage"
	"go.uber.org/mock/gomock"
)

const (
	testURL  = "https://youtu.be/abc123"
	userID   = int64(42)
	chatID   = int64(4242)
	promptID = 555
)

type edit struct {
	messageID int
	text      string
	caption   bool
}

type fixture struct {
	bot     *bot.Bot
	orch    *job.Orchestrator
	msgr    *botmocks.MockMessenger
	prober  *mediamocks.MockProber
	fetcher *jobmocks.MockFetcher

	mu    sync.Mutex
	sent  []string
	edits []edit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		msgr:    botmocks.NewMockMessenger(ctrl),
		prober:  mediamocks.NewMockProber(ctrl),
		fetcher: jobmocks.NewMockFetcher(ctrl),
	}

	mgr, err := storage.NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	f.orch = job.New(job.Deps{
		Resolver:  media.NewResolver(f.prober, media.Config{}, nil),
		Limiter:   ratelimit.New(30 * time.Second),
		Storage:   mgr,
		Fetcher:   f.fetcher,
		Sink:      f.msgr,
		Deliverer: f.msgr,
	}, job.Config{}, nil)
	f.bot = bot.New(f.msgr, f.orch, nil)

	// Progress edits are asynchronous; record them all.
	f.msgr.EXPECT().EditText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, id int, text string) error {
			f.recordEdit(edit{messageID: id, text: text})
			return nil
		}).AnyTimes()
	f.msgr.EXPECT().EditCaption(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, id int, text string) error {
			f.recordEdit(edit{messageID: id, text: text, caption: true})
			return nil
		}).AnyTimes()
	return f
}

func (f *fixture) recordEdit(e edit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, e)
}

func (f *fixture) allEdits() []edit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]edit(nil), f.edits...)
}

// expectReplies records plain text replies without keyboards.
func (f *fixture) expectReplies() {
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Nil()).
		DoAndReturn(func(_ context.Context, _ int64, text string, _ bot.Keyboard) (int, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sent = append(f.sent, text)
			return 1000 + len(f.sent), nil
		}).AnyTimes()
}

func (f *fixture) lastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func message(text string) bot.Update {
	return bot.Update{Kind: bot.UpdateMessage, UserID: userID, ChatID: chatID, MessageID: 1, Text: text}
}

func callback(data string, caption bool) bot.Update {
	return bot.Update{
		Kind:       bot.UpdateCallback,
		UserID:     userID,
		ChatID:     chatID,
		MessageID:  promptID,
		CallbackID: "cb-1",
		Data:       data,
		Caption:    caption,
	}
}

func metadata(withThumb bool) *media.Metadata {
	m := &media.Metadata{
		ID:       "abc123",
		Title:    "Test Video",
		Uploader: "Channel",
		Duration: 300,
		Formats: []media.RawFormat{
			{ID: "18", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Height: 360},
			{ID: "22", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Height: 720},
			{ID: "43", Ext: "webm", VCodec: "vp8", ACodec: "vorbis", Height: 480},
			{ID: "37", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Height: 1080},
		},
	}
	if withThumb {
		m.Thumbnails = []media.Thumbnail{{URL: "https://i.ytimg.com/vi/abc123/maxresdefault.jpg"}}
	}
	return m
}

func TestBot_Start(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()

	f.bot.Handle(context.Background(), message("/start"))
	assert.Contains(t, f.lastReply(), "Welcome to YouTube Downloader Pro")
}

func TestBot_Help(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()

	f.bot.Handle(context.Background(), message("/help@tubebot"))
	help := f.lastReply()
	assert.Contains(t, help, "Max video length: 2 hours")
	assert.Contains(t, help, "Max file size: 50 MiB")
	assert.Contains(t, help, "/stats - Show usage statistics")
}

func TestBot_Stats(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()
	require.NoError(t, f.orch.Usage.Record(userID, 3<<20, time.Now()))
	require.NoError(t, f.orch.Usage.Record(7, 1<<20, time.Now()))

	f.bot.Handle(context.Background(), message("/stats"))
	stats := f.lastReply()
	assert.Contains(t, stats, "Your downloads: 1 (3.0 MiB)")
	assert.Contains(t, stats, "All users: 2 users, 2 downloads, 4.0 MiB")
	assert.Contains(t, stats, "Active downloads: 0")
}

func TestBot_CancelWithoutJob(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()

	f.bot.Handle(context.Background(), message("/cancel"))
	assert.Equal(t, "Nothing to cancel", f.lastReply())
}

func TestBot_CancelCommandClosesPrompt(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(6)).Return(promptID, nil)

	f.bot.Handle(context.Background(), message(testURL))
	f.bot.Handle(context.Background(), message("/cancel"))

	_, open := f.orch.Session(userID)
	assert.False(t, open)
	edits := f.allEdits()
	require.NotEmpty(t, edits)
	last := edits[len(edits)-1]
	assert.Equal(t, job.TextCancelled, last.text)
	assert.Equal(t, promptID, last.messageID)
}

func TestBot_CancelCommandWithoutPromptMessage(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(6)).Return(0, errors.New("chat not found"))

	f.bot.Handle(context.Background(), message(testURL))
	_, open := f.orch.Session(userID)
	require.True(t, open)

	f.bot.Handle(context.Background(), message("/cancel"))

	_, open = f.orch.Session(userID)
	assert.False(t, open)
	assert.Equal(t, "✖ Cancelling download...", f.lastReply())
	edits := f.allEdits()
	require.NotEmpty(t, edits)
	assert.Equal(t, job.TextCancelled, edits[len(edits)-1].text)
	assert.Equal(t, 1001, edits[len(edits)-1].messageID)
}

func TestBot_CallbackFromReplacedPrompt(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(6)).Return(promptID, nil)
	f.msgr.EXPECT().AnswerCallback(gomock.Any(), "cb-1", "").Return(nil)

	f.bot.Handle(context.Background(), message(testURL))

	stale := callback("v:22", false)
	stale.MessageID = promptID - 1
	f.bot.Handle(context.Background(), stale)

	edits := f.allEdits()
	require.NotEmpty(t, edits)
	last := edits[len(edits)-1]
	assert.Equal(t, "❌ Session expired. Please send a new link", last.text)
	assert.Equal(t, promptID-1, last.messageID)

	sess, open := f.orch.Session(userID)
	require.True(t, open, "the current prompt still works")
	assert.Equal(t, promptID, sess.Prompt)
	assert.Nil(t, sess.Selection)
}

func TestBot_PromptWithThumbnail(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(true), nil)

	var kb bot.Keyboard
	f.msgr.EXPECT().
		SendPhoto(gomock.Any(), chatID, "https://i.ytimg.com/vi/abc123/maxresdefault.jpg", "📽 Test Video\nSelect quality:", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, _, _ string, k bot.Keyboard) (int, error) {
			kb = k
			return promptID, nil
		})

	f.bot.Handle(context.Background(), message(testURL))

	require.Len(t, kb, 6, "three videos, two audio tiers, cancel")
	assert.Equal(t, "v:37", kb[0][0].Data)
	assert.Equal(t, "🎥 1080p (mp4)", kb[0][0].Text)
	assert.Equal(t, "v:22", kb[1][0].Data)
	assert.Equal(t, "v:43", kb[2][0].Data)
	assert.Equal(t, "a:128", kb[3][0].Data)
	assert.Equal(t, "a:320", kb[4][0].Data)
	assert.Equal(t, "x", kb[5][0].Data)
}

func TestBot_PromptWithoutThumbnail(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().
		SendText(gomock.Any(), chatID, "📽 Test Video\nSelect quality:", gomock.Len(6)).
		Return(promptID, nil)

	f.bot.Handle(context.Background(), message(testURL))
}

func TestBot_PromptPhotoFallsBackToText(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(true), nil)
	f.msgr.EXPECT().SendPhoto(gomock.Any(), chatID, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, errors.New("Bad Request: wrong file identifier"))
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(6)).Return(promptID, nil)

	f.bot.Handle(context.Background(), message(testURL))
}

func TestBot_AudioCommandOffersOnlyAudio(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(3)).Return(promptID, nil)

	f.bot.Handle(context.Background(), message("/audio "+testURL))
}

func TestBot_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Not(gomock.Nil())).Return(promptID, nil)

	f.bot.Handle(context.Background(), message(testURL))
	f.bot.Handle(context.Background(), message(testURL))

	assert.Regexp(t, `^⏳ Please wait \d+ seconds between requests$`, f.lastReply())
}

func TestBot_ResolutionErrorIsReported(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()
	live := metadata(false)
	live.IsLive = true
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(live, nil)

	f.bot.Handle(context.Background(), message(testURL))
	assert.Equal(t, "📡 Live streams are not supported", f.lastReply())
}

func TestBot_NotALink(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()

	f.bot.Handle(context.Background(), message("hello"))
	assert.Equal(t, "❌ Please send a valid http(s) link", f.lastReply())
}

func TestBot_ExpiredSessionCallback(t *testing.T) {
	f := newFixture(t)
	f.msgr.EXPECT().AnswerCallback(gomock.Any(), "cb-1", "").Return(nil)

	f.bot.Handle(context.Background(), callback("v:22", false))

	edits := f.allEdits()
	require.NotEmpty(t, edits)
	last := edits[len(edits)-1]
	assert.Equal(t, "❌ Session expired. Please send a new link", last.text)
	assert.Equal(t, promptID, last.messageID)
	assert.False(t, last.caption)
}

func TestBot_GarbledCallback(t *testing.T) {
	f := newFixture(t)
	f.msgr.EXPECT().AnswerCallback(gomock.Any(), "cb-1", "❌ Session expired. Please send a new link").Return(nil)

	f.bot.Handle(context.Background(), callback("format_22", true))
}

// fetchInto writes a small artifact into the job scope.
func fetchInto(_ context.Context, req job.FetchRequest, report func(progress.Update)) (string, error) {
	path := filepath.Join(filepath.Dir(req.OutputTemplate), "Test Video [abc123].mp4")
	if err := os.WriteFile(path, []byte(strings.Repeat("v", 4096)), 0o640); err != nil {
		return "", err
	}
	report(progress.Update{Status: progress.StatusFinished, Downloaded: 4096, Total: 4096})
	return path, nil
}

func TestBot_SelectionFlow(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(true), nil)
	f.msgr.EXPECT().SendPhoto(gomock.Any(), chatID, gomock.Any(), gomock.Any(), gomock.Any()).Return(promptID, nil)
	f.msgr.EXPECT().AnswerCallback(gomock.Any(), "cb-1", "").Return(nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(fetchInto)

	sent := make(chan media.File, 1)
	f.msgr.EXPECT().SendVideo(gomock.Any(), chatID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, file media.File) error {
			sent <- file
			return nil
		})

	f.bot.Handle(context.Background(), message(testURL))
	f.bot.Handle(context.Background(), callback("v:22", true))

	select {
	case file := <-sent:
		assert.Equal(t, "Test Video", file.Title)
		assert.Equal(t, int64(4096), file.Size)
	case <-time.After(5 * time.Second):
		t.Fatal("video never delivered")
	}

	require.Eventually(t, func() bool { return f.orch.ActiveCount() == 0 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		edits := f.allEdits()
		return len(edits) > 0 && edits[len(edits)-1].text == job.TextSent
	}, 5*time.Second, 5*time.Millisecond)

	for _, e := range f.allEdits() {
		assert.True(t, e.caption, "photo prompts are edited through the caption")
		assert.Equal(t, promptID, e.messageID)
	}
}

func TestBot_TypedChoice(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(6)).Return(promptID, nil)
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req job.FetchRequest, report func(progress.Update)) (string, error) {
			assert.Equal(t, media.AudioSelector, req.Selector)
			require.NotNil(t, req.PostProcess)
			assert.Equal(t, "128", req.PostProcess.Quality)
			return fetchInto(ctx, req, report)
		})

	done := make(chan struct{})
	f.msgr.EXPECT().SendAudio(gomock.Any(), chatID, gomock.Any()).
		DoAndReturn(func(context.Context, int64, media.File) error {
			close(done)
			return nil
		})

	f.bot.Handle(context.Background(), message(testURL))
	f.bot.Handle(context.Background(), message("mp3 128"))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("audio never delivered")
	}
	require.Eventually(t, func() bool { return f.orch.ActiveCount() == 0 }, 5*time.Second, 5*time.Millisecond)

	for _, e := range f.allEdits() {
		assert.Equal(t, promptID, e.messageID, "typed replies draw progress into the prompt")
		assert.False(t, e.caption)
	}
}

func TestBot_TypedChoiceUnrecognized(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(6)).Return(promptID, nil)
	f.expectReplies()

	f.bot.Handle(context.Background(), message(testURL))
	f.bot.Handle(context.Background(), message("qqqqqqqq"))

	assert.Equal(t, "Pick one of the options above, or send a new link", f.lastReply())
}

func TestBot_CancelButtonStopsRunningJob(t *testing.T) {
	f := newFixture(t)
	f.prober.EXPECT().Probe(gomock.Any(), testURL).Return(metadata(false), nil)
	f.msgr.EXPECT().SendText(gomock.Any(), chatID, gomock.Any(), gomock.Len(6)).Return(promptID, nil)
	f.msgr.EXPECT().AnswerCallback(gomock.Any(), "cb-1", "").Return(nil)
	f.msgr.EXPECT().AnswerCallback(gomock.Any(), "cb-1", "✖ Cancelling download...").Return(nil)

	started := make(chan struct{})
	f.fetcher.EXPECT().
		Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ job.FetchRequest, _ func(progress.Update)) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})

	f.bot.Handle(context.Background(), message(testURL))
	f.bot.Handle(context.Background(), callback("v:37", false))
	<-started
	f.bot.Handle(context.Background(), callback("x", false))

	require.Eventually(t, func() bool { return f.orch.ActiveCount() == 0 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		edits := f.allEdits()
		return len(edits) > 0 && edits[len(edits)-1].text == job.TextCancelled
	}, 5*time.Second, 5*time.Millisecond)
}

func TestBot_RunStopsWhenUpdatesClose(t *testing.T) {
	f := newFixture(t)
	f.expectReplies()

	updates := make(chan bot.Update, 2)
	updates <- message("/start")
	updates <- message("/help")
	close(updates)
	f.msgr.EXPECT().Updates(gomock.Any()).Return((<-chan bot.Update)(updates))

	err := f.bot.Start(context.Background())
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.sent, 2)
}
