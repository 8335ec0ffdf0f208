package quantum

import (
	"fmt"
	"io"
	"time"
)

const maxResponseSize int64 = 10 * 1024 * 1024 // 10MB

// APIError reports a non-2xx response from the runtime service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quantum: HTTP %d: %s", e.StatusCode, e.Body)
}

// SubmissionError reports a job submission the service rejected, carrying
// the remote error code and message when the body provided them.
type SubmissionError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("quantum: job submission rejected: code %s: %s", e.Code, e.Message)
}

// TimeoutError reports a polling loop that exhausted its wall-clock budget
// without observing a terminal job status.
type TimeoutError struct {
	JobID   string
	MaxWait time.Duration
	Elapsed time.Duration
	Polls   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("quantum: job %s not terminal after %s (%d polls)", e.JobID, e.MaxWait, e.Polls)
}

// readBody reads a response body up to maxResponseSize.
func readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxResponseSize {
		return data[:maxResponseSize], nil
	}
	return data, nil
}
