package pipeline

import "github.com/oklog/ulid/v2"

// NewRunID returns a unique run identifier. ULIDs sort lexicographically by
// creation time, so archived reports list in chronological order.
func NewRunID() string {
	return "run_" + ulid.Make().String()
}
