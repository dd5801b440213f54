package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sprites20/barangay-proceedings/internal/timeline"
)

var ErrClosed = errors.New("storage closed")

// Config configures persistence.
//
// Driver values:
//   - "file": single JSON snapshot file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", persistence is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Snapshot is the full persisted state: every track and every event,
// whichever date they fall on. Track order is significant.
type Snapshot struct {
	SavedAt time.Time        `json:"saved_at"`
	Tracks  []timeline.Track `json:"tracks"`
	Events  []timeline.Event `json:"events"`
}

// Store is the snapshot persistence API. Saves replace the previous
// snapshot wholesale; there is no incremental write path.
type Store interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	// LoadSnapshot reports ok=false when no snapshot has been saved yet;
	// that is a fresh install, not an error.
	LoadSnapshot(ctx context.Context) (snap Snapshot, ok bool, err error)
	Close() error
}
