package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink edits an already-sent message.
type Sink interface {
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error
}

// Target identifies the message progress is rendered into. Caption is set
// when the prompt was a photo, so edits go to its caption instead of its text.
type Target struct {
	ChatID    int64
	MessageID int
	Caption   bool
}

// Handoff runs fn on the control task and waits for it.
type Handoff interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Defaults used when Options fields are zero.
const (
	DefaultInterval       = time.Second
	DefaultHandoffTimeout = 5 * time.Second
)

// Options configures throttling and delivery.
type Options struct {
	Interval       time.Duration // minimum time between forwarded updates
	MinDelta       float64       // minimum percentage movement, 0..5
	HandoffTimeout time.Duration
	OnSnapshot     func(Snapshot) // called for every forwarded snapshot
}

// throttle is the per-reporter bookkeeping for forwarding decisions.
type throttle struct {
	lastUpdate  time.Time
	lastPercent float64
	finished    bool
}

// Reporter turns extractor callbacks into throttled edits on a Target.
type Reporter struct {
	sink    Sink
	handoff Handoff
	target  Target
	opts    Options
	log     *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	state throttle
	last  Snapshot

	// sendMu orders edits: once closed, nothing more reaches the sink.
	sendMu sync.Mutex
	closed bool
}

// New creates a reporter. The throttle window starts at construction.
func New(sink Sink, handoff Handoff, target Target, opts Options, log *slog.Logger) *Reporter {
	return newReporter(sink, handoff, target, opts, log, time.Now)
}

func newReporter(sink Sink, handoff Handoff, target Target, opts Options, log *slog.Logger, now func() time.Time) *Reporter {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MinDelta < 0 {
		opts.MinDelta = 0
	}
	if opts.HandoffTimeout <= 0 {
		opts.HandoffTimeout = DefaultHandoffTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{
		sink:    sink,
		handoff: handoff,
		target:  target,
		opts:    opts,
		log:     log,
		now:     now,
		state:   throttle{lastUpdate: now()},
	}
}

// Report is the extractor callback. It blocks for at most the hand-off
// timeout when an update is forwarded.
func (r *Reporter) Report(u Update) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	if r.closed {
		return
	}
	text, ok := r.decide(u)
	if !ok {
		return
	}
	r.deliver(text)
}

// Last returns the most recent forwarded snapshot.
func (r *Reporter) Last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Reporter) decide(u Update) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.finished {
		return "", false
	}

	now := r.now()
	if u.Status == StatusFinished {
		r.state.finished = true
		r.state.lastUpdate = now
		r.state.lastPercent = 100
		return TextUploading, true
	}

	snap := NewSnapshot(u)
	if now.Sub(r.state.lastUpdate) < r.opts.Interval {
		return "", false
	}
	if snap.Percent-r.state.lastPercent < r.opts.MinDelta {
		return "", false
	}

	r.state.lastUpdate = now
	r.state.lastPercent = snap.Percent
	r.last = snap
	if r.opts.OnSnapshot != nil {
		r.opts.OnSnapshot(snap)
	}
	return snap.Text(), true
}

// Show forwards a status text unconditionally, unless the reporter is closed.
func (r *Reporter) Show(text string) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	if r.closed {
		return
	}
	r.deliver(text)
}

// Close shows text as the final edit. Reports and Shows still in flight
// from the worker are dropped after it. Later calls are no-ops.
func (r *Reporter) Close(text string) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.deliver(text)
}

func (r *Reporter) deliver(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.HandoffTimeout)
	defer cancel()

	edit := func(ctx context.Context) error {
		if r.target.Caption {
			return r.sink.EditCaption(ctx, r.target.ChatID, r.target.MessageID, text)
		}
		return r.sink.EditText(ctx, r.target.ChatID, r.target.MessageID, text)
	}

	var err error
	if r.handoff != nil {
		err = r.handoff.Do(ctx, edit)
	} else {
		err = edit(ctx)
	}
	if err != nil {
		r.log.Warn("progress update dropped",
			"chat_id", r.target.ChatID,
			"message_id", r.target.MessageID,
			"error", err)
	}
}
