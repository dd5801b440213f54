// Package timeline holds the scheduler's domain state: the track registry
// and the event store, plus the per-date view projection.
//
// Contract:
//   - Tracks are identified by a stable, immutable id. Display names are
//     cosmetic and may collide; renaming never touches events.
//   - Every stored event references exactly one track by id.
//   - The package assumes a single writer (see internal/dispatch for the
//     mutual-exclusion layer). Nothing here blocks or spawns goroutines.
package timeline

import "time"

// Origin records how an event came to exist.
type Origin string

const (
	OriginTemplate  Origin = "template"
	OriginRecurring Origin = "recurring"
	OriginManual    Origin = "manual"
)

// Track is a named resource owning an independent sequence of events.
type Track struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Hidden      bool   `json:"hidden"`
}

// Event is a time-boxed activity assigned to exactly one track.
// Invariant: End is strictly after Start.
type Event struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	TrackID string    `json:"track_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Origin  Origin    `json:"origin"`
}

// DurationMinutes is always derived from the boundaries, never stored.
func (e Event) DurationMinutes() int {
	return int(e.End.Sub(e.Start) / time.Minute)
}
