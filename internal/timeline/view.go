package timeline

import (
	"sort"
	"time"

	"github.com/sprites20/barangay-proceedings/internal/timeslot"
)

// EventsOnDate projects one track's events for a single calendar date,
// ordered by start instant. This is the renderer's read path; combine with
// timeslot.EventBox for geometry.
func (s *Store) EventsOnDate(trackID string, date time.Time) []Event {
	var out []Event
	for _, ev := range s.ListByTrack(trackID) {
		if timeslot.SameDate(ev.Start, date) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// DayView is the per-date projection for all visible tracks.
type DayView struct {
	Date   time.Time   `json:"date"`
	Tracks []TrackView `json:"tracks"`
}

type TrackView struct {
	Track  Track   `json:"track"`
	Events []Event `json:"events"`
}

// ViewDay assembles the full projection a renderer needs for one date.
// Hidden tracks are excluded.
func ViewDay(reg *Registry, store *Store, date time.Time) DayView {
	v := DayView{Date: timeslot.StartOfDay(date)}
	for _, t := range reg.Visible() {
		v.Tracks = append(v.Tracks, TrackView{
			Track:  t,
			Events: store.EventsOnDate(t.ID, date),
		})
	}
	return v
}
