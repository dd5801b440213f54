// Package recur expands recurring rules into concrete events.
//
// A rule names a time-of-day window, a set of weekdays repeated for a number
// of weeks relative to an anchor date, and optional explicit extra dates.
// Expansion is a single logical transaction: every event is computed and the
// rule fully validated before anything is inserted, so a rejection never
// leaves partial state behind.
package recur

import (
	"time"

	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/internal/timeslot"
)

// Rule describes a recurring activity.
//
// Weekly expansion resolves each weekday to its first occurrence on or after
// the anchor date, then repeats weekly RepeatWeeks times. ExtraDates are
// taken as-is, not offset by the anchor.
type Rule struct {
	Title       string
	StartClock  timeslot.Clock
	EndClock    timeslot.Clock
	Weekdays    []time.Weekday
	RepeatWeeks int
	ExtraDates  []time.Time
}

// DurationMinutes is derived from the window, never stored separately.
func (r Rule) DurationMinutes() int {
	return r.EndClock.Minutes() - r.StartClock.Minutes()
}

// Validate rejects malformed rules before any expansion work happens.
func (r Rule) Validate() error {
	if r.DurationMinutes() <= 0 {
		return timeline.Validationf("rule %q: time window %s-%s is inverted or empty",
			r.Title, r.StartClock, r.EndClock)
	}
	if r.RepeatWeeks < 0 {
		return timeline.Validationf("rule %q: repeat weeks must not be negative", r.Title)
	}
	if r.RepeatWeeks == 0 && len(r.ExtraDates) == 0 {
		return timeline.Validationf("rule %q: zero repeat weeks and no explicit dates", r.Title)
	}
	for _, wd := range r.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return timeline.Validationf("rule %q: weekday %d out of range", r.Title, wd)
		}
	}
	return nil
}
