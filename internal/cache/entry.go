package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
	"github.com/zclconf/go-cty/cty"
)

// Status is the lifecycle state of an Entry.
type Status int

const (
	StatusPending Status = iota
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "done":
		return StatusDone, nil
	case "failed":
		return StatusFailed, nil
	}
	return 0, fmt.Errorf("unknown cache entry status %q", s)
}

// Entry is the record of one fingerprint. Stores only ever receive Done
// entries; pending and failed states live in the reservation table.
type Entry struct {
	Fingerprint fingerprint.Fingerprint
	// Task is the identity string of the TaskSpec that produced the entry.
	Task      string
	Outputs   map[string]cty.Value
	Status    Status
	Error     string
	CreatedAt time.Time
}

// Store persists Done entries keyed by fingerprint. Implementations must be
// safe for concurrent use. Get returns ErrNotFound for an absent key.
type Store interface {
	Get(ctx context.Context, fp fingerprint.Fingerprint) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, fp fingerprint.Fingerprint) error
	Flush(ctx context.Context) error
}
