package timeline

import (
	"errors"
	"testing"
	"time"
)

func mkEvent(id, trackID, title string, day int, hour, minute, durMin int) Event {
	start := time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
	return Event{
		ID:      id,
		Title:   title,
		TrackID: trackID,
		Start:   start,
		End:     start.Add(time.Duration(durMin) * time.Minute),
		Origin:  OriginManual,
	}
}

func TestStoreInsertValidation(t *testing.T) {
	t.Parallel()
	s := NewStore()

	ev := mkEvent("e1", "t1", "Hearing", 1, 9, 0, 60)
	if err := s.Insert(ev); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ev); !IsValidation(err) {
		t.Fatalf("duplicate id should be a validation error, got %v", err)
	}

	bad := ev
	bad.ID = "e2"
	bad.End = bad.Start
	if err := s.Insert(bad); !IsValidation(err) {
		t.Fatalf("zero-length event should be rejected, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestStoreUpdate(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ev := mkEvent("e1", "t1", "Hearing", 1, 9, 0, 60)
	if err := s.Insert(ev); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	title := "Continued hearing"
	got, err := s.Update("e1", Patch{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != title || got.DurationMinutes() != 60 {
		t.Fatalf("unexpected event after update: %+v", got)
	}

	// Inverting the window must be rejected with prior values retained.
	badEnd := ev.Start.Add(-time.Minute)
	if _, err := s.Update("e1", Patch{End: &badEnd}); !IsValidation(err) {
		t.Fatalf("inverted window should be a validation error, got %v", err)
	}
	cur, _ := s.Get("e1")
	if !cur.End.Equal(ev.End) {
		t.Fatalf("rejected update mutated event: %+v", cur)
	}

	if _, err := s.Update("missing", Patch{Title: &title}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestStoreRemoveIsSilentNoOp(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if s.Remove("ghost") {
		t.Fatal("removing an absent event must report false, not error")
	}
	ev := mkEvent("e1", "t1", "Hearing", 1, 9, 0, 60)
	_ = s.Insert(ev)
	if !s.Remove("e1") {
		t.Fatal("expected removal")
	}
	if got := s.ListByTrack("t1"); len(got) != 0 {
		t.Fatalf("track still has events: %+v", got)
	}
}

func TestStoreMoveToTrack(t *testing.T) {
	t.Parallel()
	s := NewStore()
	_ = s.Insert(mkEvent("e1", "a", "Hearing", 1, 9, 0, 45))

	got, err := s.MoveToTrack("e1", "b")
	if err != nil {
		t.Fatalf("MoveToTrack: %v", err)
	}
	if got.TrackID != "b" {
		t.Fatalf("TrackID = %q, want b", got.TrackID)
	}
	if got.DurationMinutes() != 45 {
		t.Fatalf("duration changed on move: %d", got.DurationMinutes())
	}
	if len(s.ListByTrack("a")) != 0 || len(s.ListByTrack("b")) != 1 {
		t.Fatal("event not migrated between track collections")
	}

	if _, err := s.MoveToTrack("missing", "b"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestStoreRemoveByTrack(t *testing.T) {
	t.Parallel()
	s := NewStore()
	_ = s.Insert(mkEvent("e1", "a", "One", 1, 9, 0, 30))
	_ = s.Insert(mkEvent("e2", "a", "Two", 1, 10, 0, 30))
	_ = s.Insert(mkEvent("e3", "b", "Three", 1, 11, 0, 30))

	if n := s.RemoveByTrack("a"); n != 2 {
		t.Fatalf("RemoveByTrack = %d, want 2", n)
	}
	if len(s.ListByTrack("a")) != 0 {
		t.Fatal("track a still has events")
	}
	for _, ev := range s.All() {
		if ev.TrackID == "a" {
			t.Fatalf("event %q still references removed track", ev.ID)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestEventsOnDateFiltersAndSorts(t *testing.T) {
	t.Parallel()
	s := NewStore()
	_ = s.Insert(mkEvent("late", "a", "Late", 1, 15, 0, 30))
	_ = s.Insert(mkEvent("early", "a", "Early", 1, 8, 30, 30))
	_ = s.Insert(mkEvent("other-day", "a", "Tomorrow", 2, 9, 0, 30))
	_ = s.Insert(mkEvent("other-track", "b", "Elsewhere", 1, 9, 0, 30))

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := s.EventsOnDate("a", day)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("wrong order: %q, %q", got[0].ID, got[1].ID)
	}

	// An event on 2024-03-01 must not appear on 2024-03-02.
	next := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	for _, ev := range s.EventsOnDate("a", next) {
		if ev.ID == "early" || ev.ID == "late" {
			t.Fatalf("event %q leaked across dates", ev.ID)
		}
	}
}

func TestViewDaySkipsHiddenTracks(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	store := NewStore()
	a := reg.AddTrack("A")
	b := reg.AddTrack("B")
	_ = reg.SetHidden(b.ID, true)

	_ = store.Insert(mkEvent("e1", a.ID, "Visible", 1, 9, 0, 60))
	_ = store.Insert(mkEvent("e2", b.ID, "Hidden", 1, 9, 0, 60))

	v := ViewDay(reg, store, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if len(v.Tracks) != 1 {
		t.Fatalf("Tracks = %d, want 1", len(v.Tracks))
	}
	if v.Tracks[0].Track.ID != a.ID || len(v.Tracks[0].Events) != 1 {
		t.Fatalf("unexpected view: %+v", v.Tracks[0])
	}
	// Hidden track's events are still there for direct queries.
	if len(store.EventsOnDate(b.ID, v.Date)) != 1 {
		t.Fatal("hidden track lost its events")
	}
}
