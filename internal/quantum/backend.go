package quantum

import (
	"encoding/json"
	"fmt"
)

// Backend is one compute backend's capability snapshot, normalized from the
// heterogeneous catalog schemas the service has shipped over time.
type Backend struct {
	Name        string `json:"name"`
	Qubits      int    `json:"qubits"`
	Operational bool   `json:"operational"`
	PendingJobs int    `json:"pending_jobs"`
	Processor   string `json:"processor"`
}

// Catalog field aliases, tried in priority order. Presence of an alias key
// wins over the next alias even when its value has an unexpected type.
var (
	catalogListKeys  = []string{"devices", "backends"}
	backendNameKeys  = []string{"name", "backend_name"}
	backendQubitKeys = []string{"n_qubits", "num_qubits"}
	backendStateKeys = []string{"status", "backend_status"}
)

// parseBackends normalizes a catalog payload. The payload is either a bare
// JSON array of backend objects or an object wrapping that array under one
// of the known list keys. Non-object entries are skipped. Defaults when a
// field is absent or malformed: name "unknown", qubits 0, operational true,
// pending jobs 0, processor family "Unknown".
func parseBackends(data []byte) ([]Backend, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("quantum: decode backend catalog: %w", err)
	}

	var entries []any
	switch v := raw.(type) {
	case []any:
		entries = v
	case map[string]any:
		for _, key := range catalogListKeys {
			if list, ok := v[key].([]any); ok {
				entries = list
				break
			}
		}
	}

	backends := make([]Backend, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		backends = append(backends, backendFromObject(obj))
	}
	return backends, nil
}

func backendFromObject(obj map[string]any) Backend {
	b := Backend{
		Name:        "unknown",
		Operational: true,
		Processor:   "Unknown",
	}

	for _, key := range backendNameKeys {
		if v, ok := obj[key]; ok {
			if s, ok := v.(string); ok {
				b.Name = s
			}
			break
		}
	}

	for _, key := range backendQubitKeys {
		if v, ok := obj[key]; ok {
			b.Qubits = toInt(v)
			break
		}
	}

	// Some schema versions report status as an object with operational and
	// queue fields, others as a bare string. Only the object form carries
	// usable data; everything else keeps the defaults.
	var state any
	for _, key := range backendStateKeys {
		if v, ok := obj[key]; ok {
			state = v
			break
		}
	}
	if st, ok := state.(map[string]any); ok {
		if op, ok := st["operational"].(bool); ok {
			b.Operational = op
		}
		if v, ok := st["pending_jobs"]; ok {
			b.PendingJobs = toInt(v)
		}
	}

	if pt, ok := obj["processor_type"].(map[string]any); ok {
		if family, ok := pt["family"].(string); ok {
			b.Processor = family
		}
	}

	return b
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}
