package recur

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/internal/timeslot"
	"github.com/sprites20/barangay-proceedings/pkg/logx"
)

// Options tunes a single rule application.
type Options struct {
	// AllowDuplicates reproduces the historical behavior where re-applying
	// the same rule stacked duplicate events. Default (false) skips dates
	// that already carry an identical event on the target track.
	AllowDuplicates bool
}

// Expander turns rules into events and injects them into the store.
type Expander struct {
	log   logx.Logger
	newID func() string
}

func NewExpander(log logx.Logger) *Expander {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Expander{log: log, newID: uuid.NewString}
}

// Expand computes the concrete events for one rule application without
// touching any store. The anchor resolves relative weekday offsets; extra
// dates are used directly.
func (x *Expander) Expand(rule Rule, anchor time.Time, trackID string) ([]timeline.Event, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	dates, err := weeklyDates(anchor, rule.Weekdays, rule.RepeatWeeks)
	if err != nil {
		return nil, err
	}
	for _, d := range rule.ExtraDates {
		dates = append(dates, timeslot.StartOfDay(d))
	}

	out := make([]timeline.Event, 0, len(dates))
	for _, d := range dates {
		out = append(out, timeline.Event{
			ID:      x.newID(),
			Title:   rule.Title,
			TrackID: trackID,
			Start:   timeslot.WithTimeOfDay(d, rule.StartClock),
			End:     timeslot.WithTimeOfDay(d, rule.EndClock),
			Origin:  timeline.OriginRecurring,
		})
	}
	return out, nil
}

// Apply expands the rule onto one track and inserts the result. It fails
// with ErrTrackNotFound before expanding if the track id is unknown, and
// inserts nothing when validation fails.
func (x *Expander) Apply(reg *timeline.Registry, store *timeline.Store, rule Rule, anchor time.Time, trackID string, opt Options) (int, error) {
	if _, err := reg.Get(trackID); err != nil {
		return 0, err
	}
	events, err := x.Expand(rule, anchor, trackID)
	if err != nil {
		return 0, err
	}

	if !opt.AllowDuplicates {
		events = withoutExisting(store, trackID, events)
	}

	for _, ev := range events {
		if err := store.Insert(ev); err != nil {
			// Unreachable for a validated rule; surface it loudly anyway.
			return 0, fmt.Errorf("recur: insert %q: %w", ev.Title, err)
		}
	}
	x.log.Debug("recurring rule applied",
		logx.String("title", rule.Title),
		logx.String("track", trackID),
		logx.Int("events", len(events)),
	)
	return len(events), nil
}

// ApplyAll applies the rule to every visible track. The rule is validated
// once up front so either every track receives its events or none does.
func (x *Expander) ApplyAll(reg *timeline.Registry, store *timeline.Store, rule Rule, anchor time.Time, opt Options) (int, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}
	total := 0
	for _, t := range reg.Visible() {
		n, err := x.Apply(reg, store, rule, anchor, t.ID, opt)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// weeklyDates computes the expansion dates via an RRULE: FREQ=WEEKLY over
// the given weekdays, bounded to the window of `weeks` whole weeks starting
// at the anchor's date. That window contains each weekday exactly `weeks`
// times, which matches resolving every weekday to its first occurrence on or
// after the anchor and repeating weekly.
func weeklyDates(anchor time.Time, weekdays []time.Weekday, weeks int) ([]time.Time, error) {
	if weeks <= 0 || len(weekdays) == 0 {
		return nil, nil
	}

	day0 := timeslot.StartOfDay(anchor)
	by := make([]rrule.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		by = append(by, rruleWeekday(wd))
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   day0,
		Byweekday: by,
	})
	if err != nil {
		return nil, fmt.Errorf("recur: build rrule: %w", err)
	}

	windowEnd := day0.AddDate(0, 0, 7*weeks).Add(-time.Second)
	return r.Between(day0, windowEnd, true), nil
}

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	switch wd {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

// withoutExisting drops expansion results that already have an identical
// event (same title and boundaries) on the track, making repeated rule
// application idempotent.
func withoutExisting(store *timeline.Store, trackID string, events []timeline.Event) []timeline.Event {
	existing := map[string]struct{}{}
	for _, ev := range store.ListByTrack(trackID) {
		existing[dupKey(ev)] = struct{}{}
	}
	kept := events[:0]
	for _, ev := range events {
		if _, dup := existing[dupKey(ev)]; dup {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

func dupKey(ev timeline.Event) string {
	return ev.Title + "|" + ev.Start.Format(time.RFC3339) + "|" + ev.End.Format(time.RFC3339)
}
