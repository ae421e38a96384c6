// Package job runs a user's selection through fetch, verification and
// delivery, with guaranteed release of the job's storage scope.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/progress"
	"github.com/vmunix/tubebot/internal/storage"
)

// PostProcess is an opaque transcoding directive for the extractor.
type PostProcess struct {
	Codec   string // e.g. "mp3"
	Quality string // e.g. "320"
}

// FetchRequest describes one retrieval.
type FetchRequest struct {
	URL            string
	Selector       string
	OutputTemplate string
	PostProcess    *PostProcess
}

// Fetcher performs the blocking retrieval, calling report zero or more times.
// It returns the artifact path when known; an empty path means the caller
// should locate the artifact in the scope.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest, report func(progress.Update)) (string, error)
}

// Deliverer uploads a finished artifact to the chat.
type Deliverer interface {
	SendVideo(ctx context.Context, chatID int64, f media.File) error
	SendAudio(ctx context.Context, chatID int64, f media.File) error
}

//go:generate mockgen -destination=mocks/mock_job.go -package=mocks github.com/vmunix/tubebot/internal/job Fetcher,Deliverer

// Job is one in-flight selection. Status and the counters are written only
// by the job's own goroutine; the progress snapshot is written only by its
// reporter.
type Job struct {
	ID        string
	Identity  int64
	ChatID    int64
	Session   *Session
	Selection media.Selection
	Target    progress.Target
	CreatedAt time.Time

	mu       sync.Mutex
	status   Status
	snapshot progress.Snapshot
	size     int64
	err      *Failure
	scope    *storage.Scope
	cancel   context.CancelFunc
	done     chan struct{}
}

// Status returns the current lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Snapshot returns the last forwarded progress snapshot.
func (j *Job) Snapshot() progress.Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot
}

// Size returns the verified artifact size, 0 before verification.
func (j *Job) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Err returns the terminal failure, nil unless the job failed or was cancelled.
func (j *Job) Err() *Failure {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed once the job reached a terminal state and released its scope.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) setSnapshot(s progress.Snapshot) {
	j.mu.Lock()
	j.snapshot = s
	j.mu.Unlock()
}

func (j *Job) title() string {
	if j.Session != nil && j.Session.Candidate != nil {
		return j.Session.Candidate.Title
	}
	return ""
}
