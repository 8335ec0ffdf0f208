package quantum

import (
	"context"
	"time"
)

// Default polling parameters.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 300 * time.Second
)

// PollResult is the outcome of a completed polling loop: the terminal job
// handle plus how long and how many fetches it took to reach it.
type PollResult struct {
	Job     *Job
	Elapsed time.Duration
	Polls   int
}

// WaitForJob polls the job status at a fixed interval until the job reaches
// a terminal state or the wall-clock budget runs out. Fetch failures
// (transport errors and non-2xx statuses alike) are logged and retried; they
// never end the loop on their own. A terminal job is returned as-is
// regardless of its final status. Exhausting the budget yields a
// *TimeoutError carrying the elapsed time and poll count.
func (c *Client) WaitForJob(ctx context.Context, jobID string, maxWait, interval time.Duration) (*PollResult, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	start := c.clock.Now()
	polls := 0

	for c.clock.Now().Sub(start) < maxWait {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		polls++
		job, err := c.JobStatus(ctx, jobID)
		if err != nil {
			c.logger.Warn("job status fetch failed", "job_id", jobID, "poll", polls, "error", err)
			c.clock.Sleep(interval)
			continue
		}

		c.logger.Debug("job status", "job_id", jobID, "poll", polls, "status", job.Status)

		if job.Terminal() {
			return &PollResult{
				Job:     job,
				Elapsed: c.clock.Now().Sub(start),
				Polls:   polls,
			}, nil
		}

		c.clock.Sleep(interval)
	}

	return nil, &TimeoutError{
		JobID:   jobID,
		MaxWait: maxWait,
		Elapsed: c.clock.Now().Sub(start),
		Polls:   polls,
	}
}
