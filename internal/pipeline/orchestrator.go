package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Minapak/SwiftQuantum/internal/analysis"
	"github.com/Minapak/SwiftQuantum/internal/clock"
	"github.com/Minapak/SwiftQuantum/internal/config"
	"github.com/Minapak/SwiftQuantum/internal/ibmcloud"
	"github.com/Minapak/SwiftQuantum/internal/qasm"
	"github.com/Minapak/SwiftQuantum/internal/quantum"
	"github.com/Minapak/SwiftQuantum/internal/telemetry"
)

// CloudAPI is the subset of the IBM Cloud client the pipeline drives.
type CloudAPI interface {
	ExchangeAPIKey(ctx context.Context, apiKey string) (*ibmcloud.Credential, error)
	LookupInstance(ctx context.Context, cred *ibmcloud.Credential, resourceTypeID string) (*ibmcloud.ServiceInstance, error)
}

// RuntimeAPI is the subset of the Qiskit Runtime client the pipeline drives.
type RuntimeAPI interface {
	ListBackends(ctx context.Context) ([]quantum.Backend, error)
	SubmitJob(ctx context.Context, backend, circuit string, shots int) (*quantum.Job, error)
	WaitForJob(ctx context.Context, jobID string, maxWait, interval time.Duration) (*quantum.PollResult, error)
	JobResults(ctx context.Context, jobID string) ([]byte, error)
}

// RuntimeFactory builds the runtime client once a run holds a credential and
// a service CRN.
type RuntimeFactory func(token, serviceCRN string) RuntimeAPI

// Orchestrator executes the six integration steps in fixed order, stopping
// at the first failure. Each attempted step contributes an in_progress and a
// terminal record to the run report; the report is returned to the caller in
// every case.
type Orchestrator struct {
	cfg      *config.Config
	cloud    CloudAPI
	runtime  RuntimeFactory
	selector *Selector
	compile  func(qubits int) qasm.Circuit
	clk      clock.Clock
	logger   *slog.Logger
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithClock substitutes the time source used for step timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clk = c }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithCompiler substitutes the circuit compiler.
func WithCompiler(f func(qubits int) qasm.Circuit) Option {
	return func(o *Orchestrator) { o.compile = f }
}

// New creates an orchestrator. The backend filter expression, if configured,
// is compiled here so an invalid one fails before any run starts.
func New(cfg *config.Config, cloud CloudAPI, runtime RuntimeFactory, opts ...Option) (*Orchestrator, error) {
	selector, err := NewSelector(cfg.Backend)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:      cfg,
		cloud:    cloud,
		runtime:  runtime,
		selector: selector,
		compile:  qasm.BellState,
		clk:      clock.Real(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes one full pipeline pass. It always returns a finalized report;
// remote failures are recorded, never raised.
func (o *Orchestrator) Run(ctx context.Context) *Report {
	report := newReport(NewRunID())
	logger := telemetry.RunLogger(o.logger, report.RunID)

	// Step 1: exchange the API key for a bearer credential.
	const titleExchange = "IAM token exchange"
	report.begin(1, titleExchange, o.clk.Now())
	apiKey, err := o.cfg.ResolveAPIKey()
	if err == nil && apiKey == "" {
		err = errors.New("api key is empty")
	}
	var cred *ibmcloud.Credential
	if err == nil {
		cred, err = o.cloud.ExchangeAPIKey(ctx, apiKey)
	}
	if err != nil {
		o.failStep(report, logger, 1, titleExchange, err)
		return report
	}
	report.succeed(1, titleExchange, o.clk.Now(), map[string]any{
		"token_type": cred.TokenType,
		"expires_in": formatExpiry(cred.ExpiresIn),
	})
	logger.Info("token exchanged", "expires_in", cred.ExpiresIn.String())

	// Step 2: locate the provisioned service instance.
	const titleLookup = "Service CRN lookup"
	report.begin(2, titleLookup, o.clk.Now())
	instance, err := o.cloud.LookupInstance(ctx, cred, o.cfg.ResourceTypeID)
	if err != nil {
		o.failStep(report, logger, 2, titleLookup, err)
		return report
	}
	report.succeed(2, titleLookup, o.clk.Now(), map[string]any{
		"instance_name":   instance.Name,
		"region":          instance.RegionID,
		"state":           instance.State,
		"crn":             instance.CRN,
		"total_instances": instance.TotalInstances,
	})
	logger.Info("instance located", "name", instance.Name, "region", instance.RegionID)

	rt := o.runtime(cred.AccessToken, instance.CRN)

	// Step 3: fetch and normalize the backend catalog.
	const titleCatalog = "Backend catalog"
	report.begin(3, titleCatalog, o.clk.Now())
	backends, err := rt.ListBackends(ctx)
	if err != nil {
		o.failStep(report, logger, 3, titleCatalog, err)
		return report
	}
	report.succeed(3, titleCatalog, o.clk.Now(), map[string]any{
		"total_backends": len(backends),
		"backends":       displayBackends(backends),
	})
	if len(backends) == 0 {
		// The catalog call itself worked, but there is nothing to submit to.
		logger.Error("backend catalog is empty, stopping")
		return report
	}

	target := o.selector.Select(backends)
	logger.Info("backend selected", "backend", target)

	// Step 4: compile the Bell circuit and submit the sampler job.
	circuit := o.compile(o.cfg.Qubits)
	titleSubmit := fmt.Sprintf("Job submission (%s)", target)
	report.begin(4, titleSubmit, o.clk.Now())
	job, err := rt.SubmitJob(ctx, target, circuit.Text, o.cfg.Job.Shots)
	if err != nil {
		o.failStep(report, logger, 4, titleSubmit, err)
		return report
	}
	report.succeed(4, titleSubmit, o.clk.Now(), map[string]any{
		"job_id":  job.ID,
		"status":  job.Status,
		"backend": job.Backend,
		"created": job.Created,
	})
	logger.Info("job submitted", "job_id", job.ID, "backend", target)

	// Step 5: poll until the job reaches a terminal status.
	titlePoll := fmt.Sprintf("Job polling (%s)", job.ID)
	report.begin(5, titlePoll, o.clk.Now())
	polled, err := rt.WaitForJob(ctx, job.ID, o.cfg.Job.MaxWait(), o.cfg.Job.PollInterval())
	if err != nil {
		o.failStep(report, logger, 5, titlePoll, err)
		return report
	}
	final := polled.Job
	finalStatus := strings.ToUpper(final.Status)
	if !final.Completed() {
		message := final.ErrorMessage
		if message == "" {
			message = "Unknown error"
		}
		report.fail(5, titlePoll, o.clk.Now(), map[string]any{
			"final_status":  finalStatus,
			"error_message": message,
		}, fmt.Sprintf("job %s", finalStatus))
		logger.Error("job did not complete", "job_id", job.ID, "status", finalStatus)
		return report
	}
	report.succeed(5, titlePoll, o.clk.Now(), map[string]any{
		"final_status": finalStatus,
		"elapsed_time": formatDuration(polled.Elapsed),
		"poll_count":   polled.Polls,
	})
	logger.Info("job completed", "job_id", job.ID, "polls", polled.Polls, "elapsed", polled.Elapsed.String())

	// Step 6: fetch the result payload and derive the statistics.
	titleResults := fmt.Sprintf("Result retrieval (%s)", job.ID)
	report.begin(6, titleResults, o.clk.Now())
	raw, err := rt.JobResults(ctx, job.ID)
	if err != nil {
		o.failStep(report, logger, 6, titleResults, err)
		return report
	}
	result := analysis.Analyze(raw)
	report.succeed(6, titleResults, o.clk.Now(), analysisDetails(result))

	report.Summary = &Summary{JobID: job.ID, Backend: target, Analysis: result}
	report.Success = true
	logger.Info("pipeline succeeded", "job_id", job.ID, "backend", target, "fidelity", result.Fidelity)
	return report
}

func (o *Orchestrator) failStep(report *Report, logger *slog.Logger, step int, title string, err error) {
	report.fail(step, title, o.clk.Now(), errorDetails(err), err.Error())
	logger.Error("step failed", "step", step, "error", err)
}

// errorDetails surfaces the structured fields of known error types into a
// step record's details.
func errorDetails(err error) map[string]any {
	var auth *ibmcloud.AuthError
	if errors.As(err, &auth) {
		return map[string]any{"status_code": auth.StatusCode}
	}
	var api *quantum.APIError
	if errors.As(err, &api) {
		return map[string]any{"status_code": api.StatusCode}
	}
	var sub *quantum.SubmissionError
	if errors.As(err, &sub) {
		return map[string]any{
			"status_code":   sub.StatusCode,
			"error_code":    sub.Code,
			"error_message": sub.Message,
		}
	}
	var timeout *quantum.TimeoutError
	if errors.As(err, &timeout) {
		return map[string]any{
			"elapsed":    formatDuration(timeout.Elapsed),
			"poll_count": timeout.Polls,
		}
	}
	return nil
}

// displayBackends limits the catalog echoed into the report to the first 10
// entries.
func displayBackends(backends []quantum.Backend) []quantum.Backend {
	if len(backends) > 10 {
		return backends[:10]
	}
	return backends
}

// analysisDetails flattens an analysis report into step details, keeping the
// fallback shape to its single snapshot field.
func analysisDetails(r analysis.Report) map[string]any {
	if r.Fallback() {
		return map[string]any{"raw_results": r.RawResults}
	}
	return map[string]any{
		"total_shots":        r.TotalShots,
		"counts":             r.Counts,
		"correlated_count":   r.Correlated,
		"uncorrelated_count": r.Uncorrelated,
		"fidelity":           r.Fidelity,
	}
}

// formatExpiry renders a credential lifetime as seconds and whole minutes,
// e.g. "3600s (60m)".
func formatExpiry(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%ds (%dm)", secs, secs/60)
}

// formatDuration renders an elapsed duration as seconds with one decimal,
// e.g. "12.3s".
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
