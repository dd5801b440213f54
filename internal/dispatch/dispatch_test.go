package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sprites20/barangay-proceedings/internal/eventbus"
	"github.com/sprites20/barangay-proceedings/internal/placement"
	"github.com/sprites20/barangay-proceedings/internal/recur"
	"github.com/sprites20/barangay-proceedings/internal/template"
	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/pkg/logx"
)

func newDispatcher(t *testing.T) (*Dispatcher, *eventbus.Bus) {
	t.Helper()
	reg := timeline.NewRegistry()
	store := timeline.NewStore()
	cat, err := template.NewCatalog(nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	bus := eventbus.New()
	engine := placement.New(reg, store, cat, logx.Nop())
	d := New(engine, recur.NewExpander(logx.Nop()), cat, bus, logx.Nop())
	return d, bus
}

func call(t *testing.T, d *Dispatcher, op Op, payload any) Response {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		raw = b
	}
	return d.Handle(Request{Op: op, Data: raw})
}

func mustOK(t *testing.T, resp Response) any {
	t.Helper()
	if !resp.OK {
		t.Fatalf("request failed: %s", resp.Error)
	}
	return resp.Data
}

func addTrack(t *testing.T, d *Dispatcher, name string) timeline.Track {
	t.Helper()
	data := mustOK(t, call(t, d, OpAddTrack, map[string]string{"name": name}))
	track, ok := data.(timeline.Track)
	if !ok {
		t.Fatalf("OpAddTrack returned %T", data)
	}
	return track
}

func TestUnknownOpcode(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	resp := d.Handle(Request{Op: 999})
	if resp.OK || resp.Error == "" {
		t.Fatalf("unknown opcode accepted: %+v", resp)
	}
}

func TestTrackLifecycle(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)

	track := addTrack(t, d, "Person 1")
	mustOK(t, call(t, d, OpRenameTrack, map[string]string{"track_id": track.ID, "name": "Barangay Hall"}))

	data := mustOK(t, call(t, d, OpListTracks, nil))
	tracks := data.([]timeline.Track)
	if len(tracks) != 1 || tracks[0].DisplayName != "Barangay Hall" {
		t.Fatalf("tracks = %+v", tracks)
	}

	mustOK(t, call(t, d, OpRemoveTrack, map[string]string{"track_id": track.ID}))
	if resp := call(t, d, OpRenameTrack, map[string]string{"track_id": track.ID, "name": "x"}); resp.OK {
		t.Fatal("rename succeeded on removed track")
	}
}

func TestDropTemplateUsesViewDate(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	track := addTrack(t, d, "Person 1")

	mustOK(t, call(t, d, OpSetViewDate, map[string]string{"date": "2024-03-01"}))
	data := mustOK(t, call(t, d, OpDropTemplate, map[string]any{
		"template_id":     "template_1",
		"track_id":        track.ID,
		"pixel_offset":    540.0,
		"pixels_per_hour": 60.0,
	}))
	ev := data.(timeline.Event)
	if got := ev.Start.Format("2006-01-02 15:04"); got != "2024-03-01 09:00" {
		t.Fatalf("start = %s", got)
	}
}

func TestCreateEventSubstitutesUntitled(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	track := addTrack(t, d, "Person 1")

	data := mustOK(t, call(t, d, OpCreateEvent, map[string]string{
		"title":        "",
		"track_id":     track.ID,
		"date":         "2024-03-01",
		"start_hour":   "9",
		"start_minute": "0",
		"end_hour":     "10",
		"end_minute":   "30",
	}))
	ev := data.(timeline.Event)
	if ev.Title != "Untitled" {
		t.Fatalf("title = %q, want Untitled", ev.Title)
	}
	if ev.DurationMinutes() != 90 {
		t.Fatalf("duration = %d", ev.DurationMinutes())
	}
}

func TestRetimeParsesGarbageAsZero(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	track := addTrack(t, d, "Person 1")

	ev := mustOK(t, call(t, d, OpCreateEvent, map[string]string{
		"title": "Standup", "track_id": track.ID, "date": "2024-03-01",
		"start_hour": "9", "start_minute": "0", "end_hour": "10", "end_minute": "0",
	})).(timeline.Event)

	got := mustOK(t, call(t, d, OpSetStartTime, map[string]string{
		"event_id": ev.ID, "hour": "banana", "minute": "7",
	})).(timeline.Event)
	if got.Start.Hour() != 0 || got.Start.Minute() != 7 {
		t.Fatalf("start = %v, want 00:07", got.Start)
	}
}

func TestDeleteModeGating(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	track := addTrack(t, d, "Person 1")

	ev := mustOK(t, call(t, d, OpCreateEvent, map[string]string{
		"title": "Standup", "track_id": track.ID, "date": "2024-03-01",
		"start_hour": "9", "start_minute": "0", "end_hour": "10", "end_minute": "0",
	})).(timeline.Event)
	mustOK(t, call(t, d, OpSelectEvent, map[string]string{"event_id": ev.ID}))

	if resp := call(t, d, OpDeleteEvent, map[string]string{}); resp.OK {
		t.Fatal("delete succeeded with delete mode off")
	}

	mustOK(t, call(t, d, OpSetDeleteMode, map[string]bool{"enabled": true}))
	mustOK(t, call(t, d, OpDeleteEvent, map[string]string{}))

	if s := d.Session(); s.SelectedEventID != "" {
		t.Fatalf("selection not cleared after delete: %q", s.SelectedEventID)
	}
}

func TestSelectEventValidates(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	if resp := call(t, d, OpSelectEvent, map[string]string{"event_id": "ghost"}); resp.OK {
		t.Fatal("selecting unknown event succeeded")
	}
	mustOK(t, call(t, d, OpSelectEvent, map[string]string{"event_id": ""}))
}

func TestApplyRuleAndViewDay(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	track := addTrack(t, d, "Person 1")

	data := mustOK(t, call(t, d, OpApplyRule, map[string]any{
		"title":        "Lunch Break",
		"track_id":     track.ID,
		"anchor":       "2024-03-03", // Sunday
		"start_hour":   "12",
		"start_minute": "0",
		"end_hour":     "13",
		"end_minute":   "0",
		"weekdays":     []int{1, 3},
		"repeat_weeks": 2,
	}))
	if n := data.(map[string]int)["events_created"]; n != 4 {
		t.Fatalf("events_created = %d, want 4", n)
	}

	view := mustOK(t, call(t, d, OpViewDay, map[string]string{"date": "2024-03-04"})).(timeline.DayView)
	if len(view.Tracks) != 1 || len(view.Tracks[0].Events) != 1 {
		t.Fatalf("view = %+v", view)
	}
	if view.Tracks[0].Events[0].Title != "Lunch Break" {
		t.Fatalf("event = %+v", view.Tracks[0].Events[0])
	}
}

func TestMutationsReachBus(t *testing.T) {
	t.Parallel()
	d, bus := newDispatcher(t)
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	addTrack(t, d, "Person 1")

	select {
	case m := <-ch:
		if m.Kind != eventbus.KindTrackAdded {
			t.Fatalf("kind = %q", m.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no mutation published")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	d.SetRateLimit(1)

	mustOK(t, call(t, d, OpListTracks, nil))
	if resp := call(t, d, OpListTracks, nil); resp.OK {
		t.Fatal("second immediate request should be limited")
	}

	d.SetRateLimit(0)
	for i := 0; i < 10; i++ {
		mustOK(t, call(t, d, OpListTracks, nil))
	}
}
