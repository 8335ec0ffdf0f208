// Package analysis turns raw sampler result payloads into Bell-pair
// correlation statistics. The payload schema varies across service versions,
// so extraction probes a fixed priority order of known shapes and degrades
// to a raw snapshot instead of failing.
package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Report holds the derived statistics for one measurement histogram. A
// fallback report, produced when no counts mapping could be found, carries
// only RawResults.
type Report struct {
	TotalShots   int            `json:"total_shots"`
	Counts       map[string]int `json:"counts,omitempty"`
	Correlated   int            `json:"correlated_count"`
	Uncorrelated int            `json:"uncorrelated_count"`
	Fidelity     string         `json:"fidelity,omitempty"`
	RawResults   string         `json:"raw_results,omitempty"`
}

// Fallback reports whether the analyzer failed to find a counts mapping and
// degraded to a raw snapshot.
func (r Report) Fallback() bool {
	return r.RawResults != ""
}

const (
	rawSnapshotLimit  = 500
	displayCountLimit = 10
)

// Correlated measurement outcomes: both qubits zero or both one, in
// bitstring and hex key encodings.
var correlatedKeys = []string{"00", "11", "0x0", "0x3"}

// Analyze computes Bell-pair statistics from a raw result payload. It never
// fails: payloads with no recognizable counts mapping produce a fallback
// report with a truncated snapshot of the input.
func Analyze(raw []byte) Report {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fallback(raw)
	}

	counts, _ := countsCandidate(payload).(map[string]any)
	if len(counts) == 0 {
		// Last resort: some payloads are the bare counts object itself.
		counts, _ = payload.(map[string]any)
	}

	total, tallied := tally(counts)
	if total <= 0 {
		return fallback(raw)
	}

	correlated := 0
	for _, key := range correlatedKeys {
		correlated += tallied[key]
	}

	return Report{
		TotalShots:   total,
		Counts:       truncate(tallied),
		Correlated:   correlated,
		Uncorrelated: total - correlated,
		Fidelity:     fmt.Sprintf("%.1f%%", float64(correlated)/float64(total)*100),
	}
}

// countsCandidate walks the known result shapes in priority order and
// returns the value expected to hold the counts mapping, or nil:
//
//  1. {"results": [{"data": {"c": ...}}]} with the data object itself
//     standing in when the register key "c" is absent
//  2. {"results": [{"counts": ...}]}
//  3. {"counts": ...} at the top level
//
// Presence of a key decides the path even when its value turns out to be
// unusable, mirroring how the versioned schemas nest each other.
func countsCandidate(payload any) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	if res, present := obj["results"]; present {
		list, ok := res.([]any)
		if !ok || len(list) == 0 {
			return nil
		}
		pub, ok := list[0].(map[string]any)
		if !ok {
			return nil
		}
		if data, present := pub["data"]; present {
			dm, ok := data.(map[string]any)
			if !ok {
				return nil
			}
			if c, present := dm["c"]; present {
				return c
			}
			return dm
		}
		if c, present := pub["counts"]; present {
			return c
		}
		return nil
	}
	if c, present := obj["counts"]; present {
		return c
	}
	return nil
}

// tally converts a raw counts object into integer counts, summing the total.
// Non-numeric values carry no shots and are dropped.
func tally(counts map[string]any) (int, map[string]int) {
	if len(counts) == 0 {
		return 0, nil
	}
	out := make(map[string]int, len(counts))
	total := 0
	for key, v := range counts {
		n, ok := asInt(v)
		if !ok {
			continue
		}
		out[key] = n
		total += n
	}
	return total, out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// truncate limits the displayed counts to displayCountLimit entries, keyed
// in sorted order for determinism. The numeric statistics are computed from
// the full mapping before truncation.
func truncate(counts map[string]int) map[string]int {
	if len(counts) <= displayCountLimit {
		return counts
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]int, displayCountLimit)
	for _, k := range keys[:displayCountLimit] {
		out[k] = counts[k]
	}
	return out
}

func fallback(raw []byte) Report {
	s := string(raw)
	if len(s) > rawSnapshotLimit {
		s = s[:rawSnapshotLimit]
	}
	return Report{RawResults: s}
}
