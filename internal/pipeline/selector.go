package pipeline

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Minapak/SwiftQuantum/internal/config"
	"github.com/Minapak/SwiftQuantum/internal/quantum"
)

// Selector chooses the submission backend from a normalized catalog.
//
// Under config.PolicyPreferredFirst the preferred backend wins the moment it
// is seen operational, with the last otherwise-eligible backend (operational,
// queue below the pending threshold) as the standing fallback. Under
// config.PolicyLastEligible the scan never stops early, so a later eligible
// entry silently overrides an earlier operational preferred backend. When
// nothing in the catalog qualifies, the preferred name is used regardless.
type Selector struct {
	preferred  string
	maxPending int
	policy     string
	filter     *vm.Program
}

// NewSelector builds a selector from configuration, compiling the optional
// filter expression once.
func NewSelector(cfg config.BackendConfig) (*Selector, error) {
	s := &Selector{
		preferred:  cfg.Preferred,
		maxPending: cfg.MaxPendingJobs,
		policy:     cfg.Policy,
	}
	if s.preferred == "" {
		s.preferred = "ibm_fez"
	}
	if s.maxPending <= 0 {
		s.maxPending = 100
	}
	if s.policy == "" {
		s.policy = config.PolicyPreferredFirst
	}
	if cfg.Filter != "" {
		program, err := expr.Compile(cfg.Filter, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("pipeline: compile backend filter: %w", err)
		}
		s.filter = program
	}
	return s, nil
}

// Select scans the catalog in order and returns the chosen backend name.
func (s *Selector) Select(backends []quantum.Backend) string {
	chosen := s.preferred
	for _, b := range backends {
		if s.filter != nil && !s.matches(b) {
			continue
		}
		if b.Name == s.preferred && b.Operational {
			chosen = b.Name
			if s.policy == config.PolicyPreferredFirst {
				break
			}
			continue
		}
		if b.Operational && b.PendingJobs < s.maxPending {
			chosen = b.Name
		}
	}
	return chosen
}

// matches evaluates the filter expression for one backend. Backends whose
// evaluation fails are excluded.
func (s *Selector) matches(b quantum.Backend) bool {
	out, err := expr.Run(s.filter, map[string]any{
		"name":         b.Name,
		"qubits":       b.Qubits,
		"operational":  b.Operational,
		"pending_jobs": b.PendingJobs,
		"processor":    b.Processor,
	})
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
