// Package config holds the harness configuration: defaults, optional YAML
// overlay, and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/expr-lang/expr"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/Minapak/SwiftQuantum/internal/ibmcloud"
	"github.com/Minapak/SwiftQuantum/internal/quantum"
)

// Backend-selection policies. PolicyPreferredFirst stops scanning the catalog
// as soon as the preferred backend is seen operational; PolicyLastEligible
// scans the whole catalog and lets the last eligible entry win.
const (
	PolicyPreferredFirst = "preferred_first"
	PolicyLastEligible   = "last_eligible"
)

// Config is the complete harness configuration.
type Config struct {
	// APIKey is either a literal IBM Cloud API key or an env(VAR_NAME)
	// reference resolved at run time.
	APIKey             string         `yaml:"api_key"`
	Endpoints          EndpointConfig `yaml:"endpoints"`
	APIVersion         string         `yaml:"api_version"`
	ResourceTypeID     string         `yaml:"resource_type_id"`
	Backend            BackendConfig  `yaml:"backend"`
	Job                JobConfig      `yaml:"job"`
	Qubits             int            `yaml:"qubits"`
	HTTPTimeoutSeconds int            `yaml:"http_timeout_seconds"`
	Report             ReportConfig   `yaml:"report"`
	// Schedule is an optional cron expression; when set, the run command
	// repeats the pipeline on that schedule instead of running once.
	Schedule string `yaml:"schedule"`
}

// EndpointConfig holds the IBM Cloud service URLs.
type EndpointConfig struct {
	TokenURL              string `yaml:"token_url"`
	ResourceControllerURL string `yaml:"resource_controller_url"`
	QuantumAPIURL         string `yaml:"quantum_api_url"`
}

// BackendConfig controls backend selection.
type BackendConfig struct {
	Preferred      string `yaml:"preferred"`
	MaxPendingJobs int    `yaml:"max_pending_jobs"`
	Policy         string `yaml:"policy"`
	// Filter is an optional boolean expression over name, qubits,
	// operational, pending_jobs, and processor that narrows the catalog
	// before the policy runs.
	Filter string `yaml:"filter"`
}

// JobConfig controls job submission and polling.
type JobConfig struct {
	Shots                int `yaml:"shots"`
	PollIntervalSeconds  int `yaml:"poll_interval_seconds"`
	MaxWaitSeconds       int `yaml:"max_wait_seconds"`
	SubmitTimeoutSeconds int `yaml:"submit_timeout_seconds"`
}

// ReportConfig controls report persistence.
type ReportConfig struct {
	Path string   `yaml:"path"`
	S3   S3Config `yaml:"s3"`
}

// S3Config enables report archival to an S3 bucket when Bucket is set.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIKey: "env(IBM_QUANTUM_API_KEY)",
		Endpoints: EndpointConfig{
			TokenURL:              ibmcloud.DefaultTokenURL,
			ResourceControllerURL: ibmcloud.DefaultResourceControllerURL,
			QuantumAPIURL:         quantum.DefaultBaseURL,
		},
		APIVersion:     quantum.DefaultAPIVersion,
		ResourceTypeID: ibmcloud.QiskitRuntimeResourceID,
		Backend: BackendConfig{
			Preferred:      "ibm_fez",
			MaxPendingJobs: 100,
			Policy:         PolicyPreferredFirst,
		},
		Job: JobConfig{
			Shots:                1024,
			PollIntervalSeconds:  5,
			MaxWaitSeconds:       300,
			SubmitTimeoutSeconds: 60,
		},
		Qubits:             156,
		HTTPTimeoutSeconds: 30,
		Report: ReportConfig{
			Path: "test_results.json",
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at
// path. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveAPIKey returns the API key with any env(VAR_NAME) reference
// resolved from the process environment.
func (c *Config) ResolveAPIKey() (string, error) {
	return resolveRef(c.APIKey)
}

// Validate checks the configuration before a run.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config: api_key is required")
	}
	if c.Qubits < 2 {
		return fmt.Errorf("config: qubits must be at least 2, got %d", c.Qubits)
	}
	if c.Job.Shots <= 0 {
		return fmt.Errorf("config: job.shots must be positive, got %d", c.Job.Shots)
	}
	if c.Job.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: job.poll_interval_seconds must be positive, got %d", c.Job.PollIntervalSeconds)
	}
	if c.Job.MaxWaitSeconds <= 0 {
		return fmt.Errorf("config: job.max_wait_seconds must be positive, got %d", c.Job.MaxWaitSeconds)
	}
	switch c.Backend.Policy {
	case PolicyPreferredFirst, PolicyLastEligible:
	default:
		return fmt.Errorf("config: unknown backend.policy %q", c.Backend.Policy)
	}
	if c.Backend.Filter != "" {
		if _, err := expr.Compile(c.Backend.Filter); err != nil {
			return fmt.Errorf("config: invalid backend.filter: %w", err)
		}
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("config: invalid schedule: %w", err)
		}
	}
	return nil
}

// PollInterval returns the polling interval as a duration.
func (j JobConfig) PollInterval() time.Duration {
	return time.Duration(j.PollIntervalSeconds) * time.Second
}

// MaxWait returns the polling budget as a duration.
func (j JobConfig) MaxWait() time.Duration {
	return time.Duration(j.MaxWaitSeconds) * time.Second
}

// SubmitTimeout returns the job-submission HTTP timeout as a duration.
func (j JobConfig) SubmitTimeout() time.Duration {
	return time.Duration(j.SubmitTimeoutSeconds) * time.Second
}

// HTTPTimeout returns the general HTTP timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
