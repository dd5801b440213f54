package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sprites20/barangay-proceedings/internal/eventbus"
	"github.com/sprites20/barangay-proceedings/internal/placement"
	"github.com/sprites20/barangay-proceedings/internal/recur"
	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/internal/timeslot"
)

const dateLayout = "2006-01-02"

// atoiOrZero is the tolerant numeric parse of the properties panel: any
// garbage in an hour or minute field reads as zero and the engine's
// normalization takes it from there.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// dateOrView resolves an optional "YYYY-MM-DD" payload field against the
// session's viewed date.
func (d *Dispatcher) dateOrView(s string) (time.Time, error) {
	if s == "" {
		return d.session.ViewDate, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// eventOrSelected resolves an optional event id against the session
// selection.
func (d *Dispatcher) eventOrSelected(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if d.session.SelectedEventID == "" {
		return "", fmt.Errorf("no event id given and none selected")
	}
	return d.session.SelectedEventID, nil
}

func (d *Dispatcher) handleAddTrack(raw json.RawMessage) (any, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	t := d.engine.AddTrack(p.Name)
	d.publish(eventbus.KindTrackAdded, t.ID, "")
	return t, nil
}

func (d *Dispatcher) handleListTracks(json.RawMessage) (any, error) {
	return d.engine.Tracks().Tracks(), nil
}

func (d *Dispatcher) handleRenameTrack(raw json.RawMessage) (any, error) {
	var p struct {
		TrackID string `json:"track_id"`
		Name    string `json:"name"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := d.engine.RenameTrack(p.TrackID, p.Name); err != nil {
		return nil, err
	}
	d.publish(eventbus.KindTrackRenamed, p.TrackID, "")
	t, _ := d.engine.Tracks().Get(p.TrackID)
	return t, nil
}

func (d *Dispatcher) handleSetTrackHidden(raw json.RawMessage) (any, error) {
	var p struct {
		TrackID string `json:"track_id"`
		Hidden  bool   `json:"hidden"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := d.engine.SetTrackHidden(p.TrackID, p.Hidden); err != nil {
		return nil, err
	}
	d.publish(eventbus.KindTrackHidden, p.TrackID, "")
	return nil, nil
}

func (d *Dispatcher) handleRemoveTrack(raw json.RawMessage) (any, error) {
	var p struct {
		TrackID string `json:"track_id"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	n, err := d.engine.RemoveTrack(p.TrackID)
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindTrackRemoved, p.TrackID, "")
	return map[string]int{"events_removed": n}, nil
}

func (d *Dispatcher) handleListTemplates(json.RawMessage) (any, error) {
	return d.templates.List(), nil
}

func (d *Dispatcher) handleDropTemplate(raw json.RawMessage) (any, error) {
	var p struct {
		TemplateID    string  `json:"template_id"`
		TrackID       string  `json:"track_id"`
		Date          string  `json:"date,omitempty"`
		PixelOffset   float64 `json:"pixel_offset"`
		PixelsPerHour float64 `json:"pixels_per_hour"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	date, err := d.dateOrView(p.Date)
	if err != nil {
		return nil, err
	}
	ev, err := d.engine.DropTemplate(p.TemplateID, placement.Drop{
		TrackID:       p.TrackID,
		Date:          date,
		PixelOffset:   p.PixelOffset,
		PixelsPerHour: p.PixelsPerHour,
	})
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindEventCreated, ev.TrackID, ev.ID)
	return ev, nil
}

func (d *Dispatcher) handleCreateEvent(raw json.RawMessage) (any, error) {
	var p struct {
		Title       string `json:"title"`
		TrackID     string `json:"track_id"`
		Date        string `json:"date,omitempty"`
		StartHour   string `json:"start_hour"`
		StartMinute string `json:"start_minute"`
		EndHour     string `json:"end_hour"`
		EndMinute   string `json:"end_minute"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	date, err := d.dateOrView(p.Date)
	if err != nil {
		return nil, err
	}
	title := p.Title
	if title == "" {
		title = "Untitled"
	}
	ev, err := d.engine.CreateEvent(title, p.TrackID, date,
		timeslot.NormalizeClock(atoiOrZero(p.StartHour), atoiOrZero(p.StartMinute)),
		timeslot.NormalizeClock(atoiOrZero(p.EndHour), atoiOrZero(p.EndMinute)),
	)
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindEventCreated, ev.TrackID, ev.ID)
	return ev, nil
}

func (d *Dispatcher) handleMoveEvent(raw json.RawMessage) (any, error) {
	var p struct {
		EventID       string  `json:"event_id,omitempty"`
		TrackID       string  `json:"track_id"`
		Date          string  `json:"date,omitempty"`
		PixelOffset   float64 `json:"pixel_offset"`
		PixelsPerHour float64 `json:"pixels_per_hour"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := d.eventOrSelected(p.EventID)
	if err != nil {
		return nil, err
	}
	date, err := d.dateOrView(p.Date)
	if err != nil {
		return nil, err
	}
	ev, err := d.engine.MoveEvent(id, placement.Drop{
		TrackID:       p.TrackID,
		Date:          date,
		PixelOffset:   p.PixelOffset,
		PixelsPerHour: p.PixelsPerHour,
	})
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindEventMoved, ev.TrackID, ev.ID)
	return ev, nil
}

func (d *Dispatcher) handleSetStartTime(raw json.RawMessage) (any, error) {
	return d.retime(raw, d.engine.SetStartTime)
}

func (d *Dispatcher) handleSetEndTime(raw json.RawMessage) (any, error) {
	return d.retime(raw, d.engine.SetEndTime)
}

func (d *Dispatcher) retime(raw json.RawMessage, edit func(string, int, int) (timeline.Event, error)) (any, error) {
	var p struct {
		EventID string `json:"event_id,omitempty"`
		Hour    string `json:"hour"`
		Minute  string `json:"minute"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := d.eventOrSelected(p.EventID)
	if err != nil {
		return nil, err
	}
	ev, err := edit(id, atoiOrZero(p.Hour), atoiOrZero(p.Minute))
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindEventRetimed, ev.TrackID, ev.ID)
	return ev, nil
}

func (d *Dispatcher) handleRenameEvent(raw json.RawMessage) (any, error) {
	var p struct {
		EventID string `json:"event_id,omitempty"`
		Title   string `json:"title"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := d.eventOrSelected(p.EventID)
	if err != nil {
		return nil, err
	}
	ev, err := d.engine.RenameEvent(id, p.Title)
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindEventRenamed, ev.TrackID, ev.ID)
	return ev, nil
}

// handleDeleteEvent is gated by the session's delete mode, matching the
// click-to-delete interaction. Deleting the selected event clears the
// selection.
func (d *Dispatcher) handleDeleteEvent(raw json.RawMessage) (any, error) {
	var p struct {
		EventID string `json:"event_id,omitempty"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if !d.session.DeleteMode {
		return nil, fmt.Errorf("delete mode is not enabled")
	}
	id, err := d.eventOrSelected(p.EventID)
	if err != nil {
		return nil, err
	}
	deleted := d.engine.DeleteEvent(id)
	if deleted {
		if d.session.SelectedEventID == id {
			d.session.SelectedEventID = ""
		}
		d.publish(eventbus.KindEventDeleted, "", id)
	}
	return map[string]bool{"deleted": deleted}, nil
}

type rulePayload struct {
	Title           string   `json:"title"`
	StartHour       string   `json:"start_hour"`
	StartMinute     string   `json:"start_minute"`
	EndHour         string   `json:"end_hour"`
	EndMinute       string   `json:"end_minute"`
	Weekdays        []int    `json:"weekdays"` // 0 = Sunday
	RepeatWeeks     int      `json:"repeat_weeks"`
	ExtraDates      []string `json:"extra_dates,omitempty"`
	AllowDuplicates bool     `json:"allow_duplicates,omitempty"`
}

func (p rulePayload) rule() (recur.Rule, error) {
	r := recur.Rule{
		Title:       p.Title,
		StartClock:  timeslot.NormalizeClock(atoiOrZero(p.StartHour), atoiOrZero(p.StartMinute)),
		EndClock:    timeslot.NormalizeClock(atoiOrZero(p.EndHour), atoiOrZero(p.EndMinute)),
		RepeatWeeks: p.RepeatWeeks,
	}
	for _, wd := range p.Weekdays {
		r.Weekdays = append(r.Weekdays, time.Weekday(wd))
	}
	for _, s := range p.ExtraDates {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return recur.Rule{}, fmt.Errorf("bad date %q: want YYYY-MM-DD", s)
		}
		r.ExtraDates = append(r.ExtraDates, t)
	}
	return r, nil
}

func (d *Dispatcher) handleApplyRule(raw json.RawMessage) (any, error) {
	var p struct {
		rulePayload
		TrackID string `json:"track_id"`
		Anchor  string `json:"anchor,omitempty"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	rule, err := p.rule()
	if err != nil {
		return nil, err
	}
	anchor, err := d.dateOrView(p.Anchor)
	if err != nil {
		return nil, err
	}
	n, err := d.expander.Apply(d.engine.Tracks(), d.engine.Events(), rule, anchor, p.TrackID, recur.Options{AllowDuplicates: p.AllowDuplicates})
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindRuleApplied, p.TrackID, "")
	return map[string]int{"events_created": n}, nil
}

func (d *Dispatcher) handleApplyRuleAll(raw json.RawMessage) (any, error) {
	var p struct {
		rulePayload
		Anchor string `json:"anchor,omitempty"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	rule, err := p.rule()
	if err != nil {
		return nil, err
	}
	anchor, err := d.dateOrView(p.Anchor)
	if err != nil {
		return nil, err
	}
	n, err := d.expander.ApplyAll(d.engine.Tracks(), d.engine.Events(), rule, anchor, recur.Options{AllowDuplicates: p.AllowDuplicates})
	if err != nil {
		return nil, err
	}
	d.publish(eventbus.KindRuleApplied, "", "")
	return map[string]int{"events_created": n}, nil
}

func (d *Dispatcher) handleViewDay(raw json.RawMessage) (any, error) {
	var p struct {
		Date string `json:"date,omitempty"`
	}
	if len(raw) > 0 {
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
	}
	date, err := d.dateOrView(p.Date)
	if err != nil {
		return nil, err
	}
	return timeline.ViewDay(d.engine.Tracks(), d.engine.Events(), date), nil
}

func (d *Dispatcher) handleSetViewDate(raw json.RawMessage) (any, error) {
	var p struct {
		Date string `json:"date"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	t, err := time.Parse(dateLayout, p.Date)
	if err != nil {
		return nil, fmt.Errorf("bad date %q: want YYYY-MM-DD", p.Date)
	}
	d.session.ViewDate = timeslot.StartOfDay(t)
	return d.session, nil
}

// handleSelectEvent sets the selection for id-less follow-up calls. An
// empty id clears it.
func (d *Dispatcher) handleSelectEvent(raw json.RawMessage) (any, error) {
	var p struct {
		EventID string `json:"event_id"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.EventID != "" {
		if _, ok := d.engine.Events().Get(p.EventID); !ok {
			return nil, timeline.ErrEventNotFound
		}
	}
	d.session.SelectedEventID = p.EventID
	return d.session, nil
}

func (d *Dispatcher) handleSetDeleteMode(raw json.RawMessage) (any, error) {
	var p struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	d.session.DeleteMode = p.Enabled
	return d.session, nil
}
