// Package placement resolves interactive gestures (template drops, event
// drags, properties-panel edits) into track registry and event store
// mutations. It is the only writer of the two and sequences every
// multi-step change so the store never references an unknown track.
package placement

import (
	"time"

	"github.com/google/uuid"

	"github.com/sprites20/barangay-proceedings/internal/template"
	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/internal/timeslot"
	"github.com/sprites20/barangay-proceedings/pkg/logx"
)

// Drop is the landing position of a drag gesture: a target track, the
// viewed date, and the horizontal pixel offset at the caller's scale.
type Drop struct {
	TrackID       string
	Date          time.Time
	PixelOffset   float64
	PixelsPerHour float64
}

func (d Drop) clock() timeslot.Clock {
	return timeslot.Quantize(d.PixelOffset, d.PixelsPerHour)
}

// Engine mutates the registry and store on behalf of the interaction layer.
// It assumes exclusive access per call (see internal/dispatch).
type Engine struct {
	log       logx.Logger
	tracks    *timeline.Registry
	events    *timeline.Store
	templates *template.Catalog

	newID func() string
}

func New(tracks *timeline.Registry, events *timeline.Store, templates *template.Catalog, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		log:       log,
		tracks:    tracks,
		events:    events,
		templates: templates,
		newID:     uuid.NewString,
	}
}

func (e *Engine) Tracks() *timeline.Registry { return e.tracks }
func (e *Engine) Events() *timeline.Store    { return e.events }

// DropTemplate stamps a template onto a track at the quantized slot.
// Supersession rule: at most one instance of a given template-derived
// activity per track per day, so an existing event with the same title and
// duration on that date is removed before the new one is inserted.
func (e *Engine) DropTemplate(templateID string, drop Drop) (timeline.Event, error) {
	tpl, err := e.templates.FindByID(templateID)
	if err != nil {
		return timeline.Event{}, err
	}
	if _, err := e.tracks.Get(drop.TrackID); err != nil {
		return timeline.Event{}, err
	}

	start := timeslot.WithTimeOfDay(drop.Date, drop.clock())
	end := start.Add(time.Duration(tpl.DurationMinutes) * time.Minute)

	for _, old := range e.events.EventsOnDate(drop.TrackID, drop.Date) {
		if old.Title == tpl.Title && old.DurationMinutes() == tpl.DurationMinutes {
			e.events.Remove(old.ID)
			e.log.Debug("template drop superseded event",
				logx.String("event", old.ID),
				logx.String("track", drop.TrackID),
			)
		}
	}

	ev := timeline.Event{
		ID:      e.newID(),
		Title:   tpl.Title,
		TrackID: drop.TrackID,
		Start:   start,
		End:     end,
		Origin:  timeline.OriginTemplate,
	}
	if err := e.events.Insert(ev); err != nil {
		return timeline.Event{}, err
	}
	return ev, nil
}

// MoveEvent re-slots an existing event onto the drop position, preserving
// its duration. Dropping onto another track migrates the event; overlap with
// other events is allowed by design.
func (e *Engine) MoveEvent(eventID string, drop Drop) (timeline.Event, error) {
	ev, ok := e.events.Get(eventID)
	if !ok {
		return timeline.Event{}, timeline.ErrEventNotFound
	}
	if _, err := e.tracks.Get(drop.TrackID); err != nil {
		return timeline.Event{}, err
	}

	dur := ev.End.Sub(ev.Start)
	start := timeslot.WithTimeOfDay(drop.Date, drop.clock())
	end := start.Add(dur)

	if _, err := e.events.Update(eventID, timeline.Patch{Start: &start, End: &end}); err != nil {
		return timeline.Event{}, err
	}
	if ev.TrackID != drop.TrackID {
		return e.events.MoveToTrack(eventID, drop.TrackID)
	}
	moved, _ := e.events.Get(eventID)
	return moved, nil
}

// SetStartTime applies a direct numeric edit of the start boundary. The
// date is held fixed, out-of-range values normalize to 0, and the duration
// is preserved (the whole event shifts).
func (e *Engine) SetStartTime(eventID string, hour, minute int) (timeline.Event, error) {
	ev, ok := e.events.Get(eventID)
	if !ok {
		return timeline.Event{}, timeline.ErrEventNotFound
	}
	dur := ev.End.Sub(ev.Start)
	start := timeslot.WithTimeOfDay(ev.Start, timeslot.NormalizeClock(hour, minute))
	end := start.Add(dur)
	return e.events.Update(eventID, timeline.Patch{Start: &start, End: &end})
}

// SetEndTime applies a direct numeric edit of the end boundary. An edit
// that would make the duration non-positive is rejected and the prior value
// retained.
func (e *Engine) SetEndTime(eventID string, hour, minute int) (timeline.Event, error) {
	ev, ok := e.events.Get(eventID)
	if !ok {
		return timeline.Event{}, timeline.ErrEventNotFound
	}
	end := timeslot.WithTimeOfDay(ev.End, timeslot.NormalizeClock(hour, minute))
	return e.events.Update(eventID, timeline.Patch{End: &end})
}

// RenameEvent updates the title in place. Empty titles are permitted and
// rendered as-is.
func (e *Engine) RenameEvent(eventID, title string) (timeline.Event, error) {
	return e.events.Update(eventID, timeline.Patch{Title: &title})
}

// DeleteEvent removes the event unconditionally and reports whether it
// existed. The delete-mode gate is interaction state and lives with the
// caller.
func (e *Engine) DeleteEvent(eventID string) bool {
	return e.events.Remove(eventID)
}

// CreateEvent builds a manual event from an explicit date and time window.
func (e *Engine) CreateEvent(title, trackID string, date time.Time, start, end timeslot.Clock) (timeline.Event, error) {
	if _, err := e.tracks.Get(trackID); err != nil {
		return timeline.Event{}, err
	}
	if end.Minutes() <= start.Minutes() {
		return timeline.Event{}, timeline.Validationf("event %q: time window %s-%s is inverted or empty", title, start, end)
	}
	ev := timeline.Event{
		ID:      e.newID(),
		Title:   title,
		TrackID: trackID,
		Start:   timeslot.WithTimeOfDay(date, start),
		End:     timeslot.WithTimeOfDay(date, end),
		Origin:  timeline.OriginManual,
	}
	if err := e.events.Insert(ev); err != nil {
		return timeline.Event{}, err
	}
	return ev, nil
}

// AddTrack registers a new track.
func (e *Engine) AddTrack(name string) timeline.Track {
	return e.tracks.AddTrack(name)
}

// RenameTrack changes a display name; events are keyed by id and unaffected.
func (e *Engine) RenameTrack(id, name string) error {
	return e.tracks.RenameTrack(id, name)
}

// SetTrackHidden toggles display-only visibility.
func (e *Engine) SetTrackHidden(id string, hidden bool) error {
	return e.tracks.SetHidden(id, hidden)
}

// RemoveTrack deletes a track and cascades to its events. Events go first
// so no stored event ever references an unreachable track id. Returns the
// number of events removed.
func (e *Engine) RemoveTrack(id string) (int, error) {
	if _, err := e.tracks.Get(id); err != nil {
		return 0, err
	}
	n := e.events.RemoveByTrack(id)
	if err := e.tracks.RemoveTrack(id); err != nil {
		return n, err
	}
	if n > 0 {
		e.log.Info("track removed with events",
			logx.String("track", id),
			logx.Int("events", n),
		)
	}
	return n, nil
}
