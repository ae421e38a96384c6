package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmunix/tubebot/internal/events"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/progress"
	"github.com/vmunix/tubebot/internal/ratelimit"
	"github.com/vmunix/tubebot/internal/storage"
)

// Messages shown in the progress message on terminal transitions.
const (
	TextSent      = "✅ Successfully sent!"
	TextCancelled = "✖ Download cancelled"
)

// Defaults used when Config fields are zero.
const (
	DefaultMaxFileSize   = 50 << 20
	DefaultFetchTimeout  = 30 * time.Minute
	DefaultUploadTimeout = 10 * time.Minute
	DefaultMetadataTTL   = 10 * time.Minute
	DefaultAudioCodec    = "mp3"
)

// Config holds orchestration policy.
type Config struct {
	MaxFileSize   int64
	FetchTimeout  time.Duration
	UploadTimeout time.Duration
	MetadataTTL   time.Duration // older candidates are re-probed before fetching
	AudioCodec    string
	Progress      progress.Options
}

// Deps are the collaborators an Orchestrator drives. Sessions, Usage and
// Pool get defaults when nil; Bus and Handoff are optional.
type Deps struct {
	Resolver  *media.Resolver
	Limiter   *ratelimit.Limiter
	Storage   *storage.Manager
	Fetcher   Fetcher
	Sink      progress.Sink
	Deliverer Deliverer
	Handoff   progress.Handoff
	Bus       *events.Bus
	Sessions  *SessionStore
	Usage     *Usage
	Pool      *Pool
}

// Orchestrator coordinates requests, selections and the jobs they start.
type Orchestrator struct {
	Deps
	cfg Config
	log *slog.Logger
	now func() time.Time

	mu        sync.Mutex
	base      context.Context
	active    map[int64]*Job // identity -> running job
	wg        sync.WaitGroup
	ready     chan struct{}
	readyOnce sync.Once
}

// New creates an orchestrator.
func New(deps Deps, cfg Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = DefaultMetadataTTL
	}
	if cfg.AudioCodec == "" {
		cfg.AudioCodec = DefaultAudioCodec
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessionStore(time.Hour)
	}
	if deps.Usage == nil {
		deps.Usage = NewUsage(nil)
	}
	if deps.Pool == nil {
		deps.Pool = NewPool(4, log)
	}
	return &Orchestrator{
		Deps:   deps,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		base:   context.Background(),
		active: make(map[int64]*Job),
		ready:  make(chan struct{}),
	}
}

// Name returns the runner name.
func (o *Orchestrator) Name() string {
	return "orchestrator"
}

// Start binds job lifetimes to ctx and blocks until it ends, then waits for
// running jobs to wind down.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	o.base = ctx
	o.mu.Unlock()
	o.readyOnce.Do(func() { close(o.ready) })

	<-ctx.Done()
	o.log.Info("waiting for active jobs", "count", o.ActiveCount())
	o.Wait()
	return ctx.Err()
}

// Ready is closed once Start has bound job lifetimes to its context.
func (o *Orchestrator) Ready() <-chan struct{} {
	return o.ready
}

// Wait blocks until every started job has released its scope.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
	o.Pool.Wait()
}

// Limits returns the ceilings quoted in user messages.
func (o *Orchestrator) Limits() Limits {
	return Limits{MaxDuration: o.Resolver.MaxDuration(), MaxFileSize: o.cfg.MaxFileSize}
}

// Session returns the identity's open session.
func (o *Orchestrator) Session(identity int64) (*Session, bool) {
	return o.Sessions.Get(identity)
}

// AttachPrompt ties the prompt message to sess. Selections made from any other
// message are then rejected as expired.
func (o *Orchestrator) AttachPrompt(sess *Session, messageID int) bool {
	return o.Sessions.SetPrompt(sess, messageID)
}

// Active returns the identity's running job.
func (o *Orchestrator) Active(identity int64) (*Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.active[identity]
	return j, ok
}

// ActiveCount returns the number of running jobs.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// Request resolves rawURL for identity and opens a session. The rate limit is
// consumed here, after the URL is known to be well formed.
func (o *Orchestrator) Request(ctx context.Context, identity, chatID int64, rawURL string, mode media.Mode) (*Session, error) {
	if err := media.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	if !o.Limiter.Allow(identity) {
		err := &RateLimitedError{Wait: o.Limiter.Remaining(identity)}
		o.reject(identity, rawURL, err)
		return nil, err
	}

	cand, err := o.Resolver.Resolve(ctx, rawURL, mode)
	if err != nil {
		o.reject(identity, rawURL, err)
		return nil, err
	}

	sess := &Session{
		Identity:  identity,
		ChatID:    chatID,
		URL:       rawURL,
		Mode:      mode,
		Candidate: cand,
	}
	o.Sessions.Put(sess)

	o.publish(&events.CandidateResolved{
		BaseEvent: events.NewBaseEvent(events.EventCandidateResolved, events.EntitySession, strconv.FormatInt(identity, 10)),
		Identity:  identity,
		URL:       rawURL,
		Title:     cand.Title,
		Duration:  cand.Duration.Seconds(),
		Videos:    len(cand.Videos),
	})
	return sess, nil
}

func (o *Orchestrator) reject(identity int64, rawURL string, err error) {
	kind := Classify(err)
	o.log.Info("request rejected", "identity", identity, "url", rawURL, "kind", kind, "error", err)
	o.publish(&events.RequestRejected{
		BaseEvent: events.NewBaseEvent(events.EventRequestRejected, events.EntitySession, strconv.FormatInt(identity, 10)),
		Identity:  identity,
		URL:       rawURL,
		Kind:      string(kind),
		Reason:    err.Error(),
	})
}

// SelectRequest is a user's choice on a rendered prompt.
type SelectRequest struct {
	Identity  int64
	ChatID    int64
	Selection media.Selection
	Target    progress.Target // the prompt message progress is drawn into

	// Prompt is the message id the button was pressed on, 0 for typed choices.
	Prompt int
}

// Select starts a job for the selection. Validation failures end the job
// before Select returns; the job is returned with its failure. Fetching and
// everything after it runs in the background.
func (o *Orchestrator) Select(ctx context.Context, req SelectRequest) (*Job, error) {
	o.mu.Lock()
	if running, ok := o.active[req.Identity]; ok {
		o.mu.Unlock()
		return running, ErrJobActive
	}
	j := &Job{
		ID:        uuid.NewString(),
		Identity:  req.Identity,
		ChatID:    req.ChatID,
		Selection: req.Selection,
		Target:    req.Target,
		CreatedAt: o.now(),
		status:    StatusSelecting,
		done:      make(chan struct{}),
	}
	o.active[req.Identity] = j
	o.mu.Unlock()

	log := o.log.With("job_id", j.ID, "identity", j.Identity)
	rep := o.newReporter(j, log)

	o.publish(&events.JobCreated{
		BaseEvent: events.NewBaseEvent(events.EventJobCreated, events.EntityJob, j.ID),
		Identity:  j.Identity,
		Selector:  req.Selection.Selector(),
		Audio:     req.Selection.IsAudio(),
	})

	if req.Selection.Kind == media.KindCancel {
		if sess, ok := o.Sessions.Get(req.Identity); ok && fromPrompt(sess, req.Prompt) {
			j.Session = sess
		}
		o.terminate(j, rep, log, StatusCancelled, &Failure{Kind: KindCancelled, Err: ErrCancelled})
		o.cleanup(j, log)
		return j, nil
	}

	if err := o.transition(j, StatusValidating, log); err != nil {
		return o.abort(j, rep, log, &Failure{Kind: KindInternal, Err: err})
	}
	sess, err := o.validate(ctx, req)
	if err != nil {
		return o.abort(j, rep, log, Fail(err))
	}
	j.Session = sess

	jobCtx, cancel := context.WithCancelCause(o.baseContext())
	j.mu.Lock()
	j.cancel = func() { cancel(ErrCancelled) }
	j.mu.Unlock()

	if err := o.transition(j, StatusFetching, log); err != nil {
		cancel(err)
		return o.abort(j, rep, log, &Failure{Kind: KindInternal, Err: err})
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel(nil)
		o.run(jobCtx, j, rep, log)
	}()
	return j, nil
}

func (o *Orchestrator) abort(j *Job, rep *progress.Reporter, log *slog.Logger, f *Failure) (*Job, error) {
	o.terminate(j, rep, log, StatusFailed, f)
	o.cleanup(j, log)
	return j, f
}

// validate checks the session still holds metadata and that the selection is
// one it offered. Candidates older than MetadataTTL are re-probed first. The
// returned session is a private copy owned by the job.
func (o *Orchestrator) validate(ctx context.Context, req SelectRequest) (*Session, error) {
	identity, sel := req.Identity, req.Selection
	cur, ok := o.Sessions.Get(identity)
	if !ok || cur.Candidate == nil {
		return nil, ErrSessionExpired
	}
	if !fromPrompt(cur, req.Prompt) {
		return nil, fmt.Errorf("%w: prompt %d was replaced by %d", ErrSessionExpired, req.Prompt, cur.Prompt)
	}

	owned := *cur
	if o.now().Sub(owned.Candidate.ResolvedAt) > o.cfg.MetadataTTL {
		o.log.Debug("re-probing stale candidate", "identity", identity, "url", owned.URL)
		cand, err := o.Resolver.Resolve(ctx, owned.URL, owned.Mode)
		if err != nil {
			return nil, err
		}
		owned.Candidate = cand
	}

	if !owned.Candidate.Valid(sel) {
		return nil, fmt.Errorf("%w: option %q is no longer offered", ErrSessionExpired, sel.Token())
	}
	owned.Selection = &sel
	o.Sessions.Put(&owned)
	return &owned, nil
}

// fromPrompt reports whether a selection made on message prompt belongs to
// sess. Unknown ids on either side match.
func fromPrompt(sess *Session, prompt int) bool {
	return prompt == 0 || sess.Prompt == 0 || sess.Prompt == prompt
}

// run drives a job from Fetching to a terminal state.
func (o *Orchestrator) run(ctx context.Context, j *Job, rep *progress.Reporter, log *slog.Logger) {
	defer o.cleanup(j, log)

	fail := func(f *Failure) {
		o.terminate(j, rep, log, StatusFailed, f)
	}

	scope, err := o.Storage.Acquire(j.ID)
	if err != nil {
		fail(&Failure{Kind: KindStorage, Err: err})
		return
	}
	j.mu.Lock()
	j.scope = scope
	j.mu.Unlock()

	rep.Show(progress.TextStarting)

	req := FetchRequest{
		URL:            j.Session.URL,
		Selector:       j.Selection.Selector(),
		OutputTemplate: scope.OutputTemplate(),
	}
	if j.Selection.IsAudio() {
		req.PostProcess = &PostProcess{Codec: o.cfg.AudioCodec, Quality: string(j.Selection.Tier)}
	}

	fetchCtx, cancelFetch := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancelFetch()

	started := o.now()
	outcome := o.Pool.Submit(fetchCtx, func(ctx context.Context) (string, error) {
		return o.Fetcher.Fetch(ctx, req, rep.Report)
	})

	var res Outcome
	select {
	case res = <-outcome:
	case <-ctx.Done():
		// Cancelled while fetching: report it now, reclaim the scope once
		// the worker lets go of it. The reporter is closed by terminate, so
		// progress the worker still emits never replaces the cancel text.
		o.terminate(j, rep, log, StatusCancelled, &Failure{Kind: KindCancelled, Err: context.Cause(ctx)})
		cancelFetch()
		<-outcome
		return
	}
	if ctx.Err() != nil {
		o.terminate(j, rep, log, StatusCancelled, &Failure{Kind: KindCancelled, Err: context.Cause(ctx)})
		return
	}
	if res.Err != nil {
		if errors.Is(res.Err, context.DeadlineExceeded) {
			fail(&Failure{Kind: KindTransient, Err: fmt.Errorf("%w: timed out after %s", ErrTransient, o.cfg.FetchTimeout)})
			return
		}
		fail(&Failure{Kind: KindTransient, Err: fmt.Errorf("%w: %v", ErrTransient, res.Err)})
		return
	}
	log.Info("fetch finished", "elapsed", o.now().Sub(started).Round(time.Millisecond))

	if err := o.transition(j, StatusVerifying, log); err != nil {
		fail(&Failure{Kind: KindInternal, Err: err})
		return
	}
	path, size, err := o.verify(scope, res.Path, log)
	if err != nil {
		fail(Fail(err))
		return
	}
	j.mu.Lock()
	j.size = size
	j.mu.Unlock()

	if err := o.transition(j, StatusDelivering, log); err != nil {
		fail(&Failure{Kind: KindInternal, Err: err})
		return
	}
	if err := o.deliver(ctx, j, path, size); err != nil {
		fail(&Failure{Kind: KindUploadFailed, Err: fmt.Errorf("%w: %v", ErrUploadFailed, err)})
		return
	}

	o.terminate(j, rep, log, StatusCompleted, nil)
}

// verify locates the artifact inside the scope and applies the size ceiling.
func (o *Orchestrator) verify(scope *storage.Scope, reported string, log *slog.Logger) (string, int64, error) {
	path := reported
	if path == "" || !scope.Contains(path) {
		if path != "" {
			log.Warn("extractor reported a path outside the job scope", "path", path)
		}
		found, _, err := scope.Artifact()
		if err != nil && !errors.Is(err, storage.ErrEmptyFile) {
			return "", 0, err
		}
		path = found
	}
	size, err := storage.Verify(path, o.cfg.MaxFileSize)
	if err != nil {
		return "", size, err
	}
	return path, size, nil
}

// deliver uploads the artifact. Cancellation of the job no longer applies
// here, but the upload has its own deadline.
func (o *Orchestrator) deliver(ctx context.Context, j *Job, path string, size int64) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.UploadTimeout)
	defer cancel()

	cand := j.Session.Candidate
	f := media.File{
		Path:      path,
		Name:      filepath.Base(path),
		Title:     cand.Title,
		Performer: cand.Uploader,
		Duration:  cand.Duration,
		Size:      size,
	}
	if j.Selection.IsAudio() {
		return o.Deliverer.SendAudio(ctx, j.ChatID, f)
	}
	return o.Deliverer.SendVideo(ctx, j.ChatID, f)
}

// transition moves j to a non-terminal state.
func (o *Orchestrator) transition(j *Job, to Status, log *slog.Logger) error {
	j.mu.Lock()
	from := j.status
	if !from.CanTransitionTo(to) {
		j.mu.Unlock()
		log.Error("invalid job transition", "from", from, "to", to)
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	j.status = to
	j.mu.Unlock()

	log.Debug("job transitioned", "from", from, "to", to)
	o.publish(&events.JobTransitioned{
		BaseEvent: events.NewBaseEvent(events.EventJobTransitioned, events.EntityJob, j.ID),
		From:      string(from),
		To:        string(to),
	})
	return nil
}

// terminate moves j to a terminal state, tells the user, and frees the
// identity for a new job. Storage is released separately by cleanup.
func (o *Orchestrator) terminate(j *Job, rep *progress.Reporter, log *slog.Logger, to Status, f *Failure) {
	j.mu.Lock()
	from := j.status
	if !from.CanTransitionTo(to) {
		j.mu.Unlock()
		log.Error("invalid terminal transition", "from", from, "to", to)
		return
	}
	j.status = to
	j.err = f
	size := j.size
	j.mu.Unlock()

	if j.Session != nil {
		o.Sessions.Delete(j.Session)
	}
	o.mu.Lock()
	if o.active[j.Identity] == j {
		delete(o.active, j.Identity)
	}
	o.mu.Unlock()

	base := events.NewBaseEvent("", events.EntityJob, j.ID)
	switch to {
	case StatusCompleted:
		if err := o.Usage.Record(j.Identity, size, o.now()); err != nil {
			log.Error("failed to record usage", "error", err)
		}
		rep.Close(TextSent)
		log.Info("job completed", "title", j.title(), "size", size, "elapsed", o.now().Sub(j.CreatedAt).Round(time.Millisecond))
		base.Type = events.EventJobCompleted
		o.publish(&events.JobCompleted{
			BaseEvent: base,
			Identity:  j.Identity,
			Size:      size,
			Elapsed:   o.now().Sub(j.CreatedAt).Seconds(),
		})

	case StatusCancelled:
		rep.Close(TextCancelled)
		log.Info("job cancelled", "from", from)
		base.Type = events.EventJobCancelled
		o.publish(&events.JobCancelled{BaseEvent: base, Identity: j.Identity, From: string(from)})

	case StatusFailed:
		rep.Close(UserMessage(f, o.Limits()))
		log.Warn("job failed", "from", from, "kind", f.Kind, "error", f.Err)
		base.Type = events.EventJobFailed
		o.publish(&events.JobFailed{
			BaseEvent: base,
			Identity:  j.Identity,
			From:      string(from),
			Kind:      string(f.Kind),
			Reason:    f.Err.Error(),
		})
	}
}

// cleanup releases the job's scope, if any, and marks it done. Release
// failures are logged and never change the reported outcome.
func (o *Orchestrator) cleanup(j *Job, log *slog.Logger) {
	j.mu.Lock()
	scope := j.scope
	j.mu.Unlock()

	if scope != nil {
		if err := scope.Release(); err != nil {
			log.Error("scope cleanup failed", "error", err)
		}
	}
	close(j.done)
}

// Cancel asks the identity's running job to stop. It is best effort: the
// job observes the request at its next state boundary.
func (o *Orchestrator) Cancel(identity int64) error {
	o.mu.Lock()
	j, ok := o.active[identity]
	o.mu.Unlock()
	if !ok {
		return ErrNoJob
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.Cancellable() || j.cancel == nil {
		return ErrNotCancellable
	}
	j.cancel()
	return nil
}

func (o *Orchestrator) newReporter(j *Job, log *slog.Logger) *progress.Reporter {
	opts := o.cfg.Progress
	opts.OnSnapshot = func(s progress.Snapshot) {
		j.setSnapshot(s)
		o.publish(&events.JobProgressed{
			BaseEvent:  events.NewBaseEvent(events.EventJobProgressed, events.EntityJob, j.ID),
			Percent:    s.Percent,
			Downloaded: s.Downloaded,
			Total:      s.Total,
			Speed:      int64(s.Rate),
		})
	}
	return progress.New(o.Sink, o.Handoff, j.Target, opts, log.With("component", "progress"))
}

func (o *Orchestrator) baseContext() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.base
}

func (o *Orchestrator) publish(e events.Event) {
	if err := o.Bus.Publish(context.Background(), e); err != nil {
		o.log.Warn("failed to publish event", "type", e.EventType(), "error", err)
	}
}
