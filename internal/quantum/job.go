package quantum

import "strings"

// Terminal job statuses as reported by the runtime service. Comparisons are
// case-insensitive because the reported casing varies by API version.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Job is a remote execution unit. Its state changes only by re-fetching it
// from the service, never locally.
type Job struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Backend      string `json:"backend"`
	Created      string `json:"created"`
	ErrorMessage string `json:"error_message"`
}

// Terminal reports whether the job has reached a state from which no further
// transition occurs.
func (j *Job) Terminal() bool {
	switch strings.ToUpper(j.Status) {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Completed reports whether the job finished successfully.
func (j *Job) Completed() bool {
	return strings.EqualFold(j.Status, StatusCompleted)
}
