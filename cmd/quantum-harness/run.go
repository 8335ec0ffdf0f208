package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/Minapak/SwiftQuantum/internal/config"
	"github.com/Minapak/SwiftQuantum/internal/ibmcloud"
	"github.com/Minapak/SwiftQuantum/internal/pipeline"
	"github.com/Minapak/SwiftQuantum/internal/quantum"
	"github.com/Minapak/SwiftQuantum/internal/report"
)

func newRunCmd() *cobra.Command {
	var (
		backend  string
		shots    int
		qubits   int
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the integration test pipeline",
		Long: `Executes the six-step integration test against the live IBM Quantum
cloud: token exchange, instance lookup, backend catalog, job submission,
polling, and result analysis. With --schedule the pipeline repeats on a
cron expression until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if backend != "" {
				cfg.Backend.Preferred = backend
			}
			if shots > 0 {
				cfg.Job.Shots = shots
			}
			if qubits > 0 {
				cfg.Qubits = qubits
			}
			if schedule != "" {
				cfg.Schedule = schedule
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var archiver *report.S3Archiver
			if cfg.Report.S3.Bucket != "" {
				archiver, err = report.NewS3Archiver(ctx, cfg.Report.S3)
				if err != nil {
					return err
				}
			}

			if cfg.Schedule != "" {
				return runScheduled(ctx, cfg, logger, archiver)
			}

			rep, err := executeRun(ctx, cfg, logger, archiver)
			if err != nil {
				return err
			}
			if !rep.Success {
				return fmt.Errorf("run %s failed, see %s", rep.RunID, cfg.Report.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Preferred backend name (overrides config)")
	cmd.Flags().IntVar(&shots, "shots", 0, "Sampler shots (overrides config)")
	cmd.Flags().IntVar(&qubits, "qubits", 0, "Circuit register width (overrides config)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression for repeated runs")

	return cmd
}

// executeRun performs one full pipeline pass, then writes the report and
// prints the summary. The report is returned even when the run failed.
func executeRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, archiver *report.S3Archiver) (*pipeline.Report, error) {
	cloud := ibmcloud.NewClient(
		ibmcloud.WithTokenURL(cfg.Endpoints.TokenURL),
		ibmcloud.WithResourceControllerURL(cfg.Endpoints.ResourceControllerURL),
		ibmcloud.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
		ibmcloud.WithLogger(logger),
	)

	factory := func(token, serviceCRN string) pipeline.RuntimeAPI {
		return quantum.NewClient(cfg.Endpoints.QuantumAPIURL, token, serviceCRN,
			quantum.WithAPIVersion(cfg.APIVersion),
			quantum.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
			quantum.WithSubmitClient(&http.Client{Timeout: cfg.Job.SubmitTimeout()}),
			quantum.WithLogger(logger),
		)
	}

	orch, err := pipeline.New(cfg, cloud, factory, pipeline.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	rep := orch.Run(ctx)

	if err := report.Write(cfg.Report.Path, rep); err != nil {
		return rep, err
	}
	logger.Info("report written", "path", cfg.Report.Path, "run_id", rep.RunID)

	if archiver != nil {
		if err := archiver.Archive(ctx, rep); err != nil {
			logger.Warn("report archival failed", "error", err)
		}
	}

	printSummary(rep)
	return rep, nil
}

// runScheduled repeats the pipeline on a cron schedule until the context is
// cancelled. Triggers that fire while a run is still in flight are skipped.
func runScheduled(ctx context.Context, cfg *config.Config, logger *slog.Logger, archiver *report.S3Archiver) error {
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	inFlight := semaphore.NewWeighted(1)
	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		if !inFlight.TryAcquire(1) {
			logger.Warn("previous run still in flight, skipping trigger")
			return
		}
		defer inFlight.Release(1)

		rep, err := executeRun(ctx, cfg, logger, archiver)
		if err != nil {
			logger.Error("scheduled run failed", "error", err)
			return
		}
		if !rep.Success {
			logger.Error("scheduled run finished with failures", "run_id", rep.RunID)
		}
	}))

	logger.Info("scheduler started", "schedule", cfg.Schedule)
	c.Start()

	<-ctx.Done()
	logger.Info("scheduler stopping")
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

// printSummary writes a human-readable digest of the run to stdout.
func printSummary(rep *pipeline.Report) {
	status := "PASSED"
	if !rep.Success {
		status = "FAILED"
	}
	fmt.Printf("\nRun %s: %s\n", rep.RunID, status)
	fmt.Printf("%-6s %-32s %s\n", "STEP", "TITLE", "STATUS")
	fmt.Println(strings.Repeat("-", 60))
	for _, s := range rep.Steps {
		if s.Status == pipeline.StepInProgress {
			continue
		}
		fmt.Printf("%-6d %-32s %s\n", s.Step, s.Title, s.Status)
	}
	if rep.Summary != nil {
		fmt.Printf("\nJob %s on %s", rep.Summary.JobID, rep.Summary.Backend)
		if rep.Summary.Analysis.Fidelity != "" {
			fmt.Printf(": fidelity %s over %d shots", rep.Summary.Analysis.Fidelity, rep.Summary.Analysis.TotalShots)
		}
		fmt.Println()
	}
	for _, e := range rep.Errors {
		fmt.Printf("\nStep %d error: %s\n", e.Step, e.Error)
	}
}
