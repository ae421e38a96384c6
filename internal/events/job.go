package events

// Entity types
const (
	EntityJob     = "job"
	EntitySession = "session"
	EntityStorage = "storage"
)

// Event type constants
const (
	EventRequestRejected   = "request.rejected"
	EventCandidateResolved = "candidate.resolved"
	EventJobCreated        = "job.created"
	EventJobTransitioned   = "job.transitioned"
	EventJobProgressed     = "job.progressed"
	EventJobCompleted      = "job.completed"
	EventJobFailed         = "job.failed"
	EventJobCancelled      = "job.cancelled"
	EventStorageSwept      = "storage.swept"
)

// RequestRejected is emitted when a URL request is refused before a session
// exists: rate limited or failed resolution.
type RequestRejected struct {
	BaseEvent
	Identity int64  `json:"identity"`
	URL      string `json:"url"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// CandidateResolved is emitted when a URL resolves and a session is opened.
type CandidateResolved struct {
	BaseEvent
	Identity int64   `json:"identity"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration_seconds"`
	Videos   int     `json:"videos"`
}

// JobCreated is emitted when a user selects an option and a job begins.
type JobCreated struct {
	BaseEvent
	Identity int64  `json:"identity"`
	URL      string `json:"url"`
	Selector string `json:"selector"`
	Audio    bool   `json:"audio,omitempty"`
}

// JobTransitioned is emitted on every non-terminal state change.
type JobTransitioned struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// JobProgressed is emitted for every forwarded progress snapshot.
type JobProgressed struct {
	BaseEvent
	Percent    float64 `json:"percent"` // 0.0 - 100.0
	Downloaded int64   `json:"downloaded_bytes"`
	Total      int64   `json:"total_bytes"`
	Speed      int64   `json:"speed_bps"`
}

// JobCompleted is emitted when the artifact was delivered.
type JobCompleted struct {
	BaseEvent
	Identity int64   `json:"identity"`
	Size     int64   `json:"size_bytes"`
	Elapsed  float64 `json:"elapsed_seconds"`
}

// JobFailed is emitted when a job ends in a typed failure.
type JobFailed struct {
	BaseEvent
	Identity int64  `json:"identity"`
	From     string `json:"from"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// JobCancelled is emitted when the user cancels a job.
type JobCancelled struct {
	BaseEvent
	Identity int64  `json:"identity"`
	From     string `json:"from"`
}

// StorageSwept is emitted when a sweep pass removed leaked scopes.
type StorageSwept struct {
	BaseEvent
	Removed        int `json:"removed"`
	Errors         int `json:"errors,omitempty"`
	SessionsPruned int `json:"sessions_pruned,omitempty"`
}
