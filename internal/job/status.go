package job

// Status is a job's lifecycle state.
type Status string

const (
	StatusSelecting  Status = "selecting"
	StatusValidating Status = "validating"
	StatusFetching   Status = "fetching"
	StatusVerifying  Status = "verifying"
	StatusDelivering Status = "delivering"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
var validTransitions = map[Status][]Status{
	StatusSelecting:  {StatusValidating, StatusFailed, StatusCancelled},
	StatusValidating: {StatusFetching, StatusFailed},
	StatusFetching:   {StatusVerifying, StatusFailed, StatusCancelled},
	StatusVerifying:  {StatusDelivering, StatusFailed},
	StatusDelivering: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, v := range validTransitions[s] {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Cancellable reports whether a user cancel is honored in this state.
func (s Status) Cancellable() bool {
	return s.CanTransitionTo(StatusCancelled)
}
