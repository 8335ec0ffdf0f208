// Package quantum implements a client for the Qiskit Runtime REST API:
// backend catalog, sampler job submission, status polling, and result
// retrieval. Every request authenticates with a bearer token and carries the
// service instance CRN plus a pinned API version header.
package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Minapak/SwiftQuantum/internal/clock"
)

// Default Qiskit Runtime API parameters.
const (
	DefaultBaseURL    = "https://quantum.cloud.ibm.com/api/v1"
	DefaultAPIVersion = "2025-05-01"
	DefaultShots      = 1024
)

// Client talks to the Qiskit Runtime service on behalf of one service
// instance. Submission uses a longer timeout than the other calls because
// the service validates the circuit synchronously.
type Client struct {
	baseURL      string
	token        string
	serviceCRN   string
	apiVersion   string
	httpClient   *http.Client
	submitClient *http.Client
	logger       *slog.Logger
	clock        clock.Clock
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets the client used for catalog, status, and result calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithSubmitClient sets the client used for job submission.
func WithSubmitClient(c *http.Client) Option {
	return func(cl *Client) { cl.submitClient = c }
}

// WithAPIVersion overrides the IBM-API-Version header value.
func WithAPIVersion(v string) Option {
	return func(cl *Client) { cl.apiVersion = v }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithClock substitutes the time source used by the polling loop.
func WithClock(c clock.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// NewClient creates a runtime client bound to one service instance.
func NewClient(baseURL, token, serviceCRN string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		serviceCRN:   serviceCRN,
		apiVersion:   DefaultAPIVersion,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		submitClient: &http.Client{Timeout: 60 * time.Second},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:        clock.Real(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("quantum: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Service-CRN", c.serviceCRN)
	req.Header.Set("IBM-API-Version", c.apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// get performs a GET against path and returns the body on any 2xx status.
// Non-2xx statuses yield an *APIError.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quantum: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("quantum: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ListBackends fetches the backend catalog and normalizes it into an
// order-preserving descriptor list. An empty catalog is not an error.
func (c *Client) ListBackends(ctx context.Context) ([]Backend, error) {
	body, err := c.get(ctx, "/backends")
	if err != nil {
		return nil, err
	}
	backends, err := parseBackends(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("backend catalog fetched", "total", len(backends))
	return backends, nil
}

type submitRequest struct {
	ProgramID string       `json:"program_id"`
	Backend   string       `json:"backend"`
	Params    submitParams `json:"params"`
}

type submitParams struct {
	Version int           `json:"version"`
	Pubs    [][]string    `json:"pubs"`
	Options submitOptions `json:"options"`
}

type submitOptions struct {
	DefaultShots int `json:"default_shots"`
}

// SubmitJob posts a sampler job running the given circuit text on the named
// backend. Any 2xx response carrying a job id succeeds; a remote rejection
// yields a *SubmissionError. Submission is not retried.
func (c *Client) SubmitJob(ctx context.Context, backend, circuit string, shots int) (*Job, error) {
	if shots <= 0 {
		shots = DefaultShots
	}

	payload, err := json.Marshal(submitRequest{
		ProgramID: "sampler",
		Backend:   backend,
		Params: submitParams{
			Version: 2,
			Pubs:    [][]string{{circuit}},
			Options: submitOptions{DefaultShots: shots},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("quantum: marshal job request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/jobs", payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.submitClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quantum: submit request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("quantum: read submit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, submissionError(resp.StatusCode, body)
	}

	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("quantum: decode submit response: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("quantum: submit response missing job id")
	}

	c.logger.Info("job submitted", "job_id", job.ID, "backend", backend, "shots", shots)
	return &job, nil
}

// submissionError classifies a non-2xx submission response. A JSON body is
// mined for the remote code and message; anything else keeps the raw text.
func submissionError(statusCode int, body []byte) error {
	var remote struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &remote) == nil {
		code := ""
		switch v := remote.Code.(type) {
		case string:
			code = v
		case float64:
			code = strconv.Itoa(int(v))
		}
		if code == "" {
			code = strconv.Itoa(statusCode)
		}
		message := remote.Message
		if message == "" {
			message = string(body)
		}
		return &SubmissionError{StatusCode: statusCode, Code: code, Message: message}
	}
	return fmt.Errorf("quantum: job submission failed: HTTP %d: %s", statusCode, string(body))
}

// JobStatus fetches the current remote state of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Job, error) {
	body, err := c.get(ctx, "/jobs/"+jobID)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("quantum: decode job status: %w", err)
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

// JobResults fetches the raw result payload of a job. The schema varies by
// service version, so the body is returned unparsed for the analyzer.
func (c *Client) JobResults(ctx context.Context, jobID string) ([]byte, error) {
	return c.get(ctx, "/jobs/"+jobID+"/results")
}
