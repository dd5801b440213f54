package app

import (
	"testing"
	"time"

	"github.com/sprites20/barangay-proceedings/internal/storage"
	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/pkg/logx"
)

func TestRestoreSnapshotRepairsIntegrity(t *testing.T) {
	t.Parallel()
	tracks := timeline.NewRegistry()
	events := timeline.NewStore()

	snap := storage.Snapshot{
		Tracks: []timeline.Track{
			{ID: "t1", DisplayName: "Person 1"},
			{ID: "t2", DisplayName: "Person 2", Hidden: true},
		},
		Events: []timeline.Event{
			{
				ID: "e1", Title: "Lunch Break", TrackID: "t1",
				Start:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
				End:    time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
				Origin: timeline.OriginRecurring,
			},
			{
				// Track was deleted but the event survived in an old snapshot.
				ID: "e2", Title: "Orphan", TrackID: "gone",
				Start:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
				End:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
				Origin: timeline.OriginManual,
			},
			{
				// Hand-edited snapshot with an inverted window.
				ID: "e3", Title: "Broken", TrackID: "t1",
				Start:  time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
				End:    time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
				Origin: timeline.OriginManual,
			},
		},
	}

	dropped := restoreSnapshot(tracks, events, snap, logx.Nop())
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	if tracks.Len() != 2 {
		t.Fatalf("tracks = %d, want 2", tracks.Len())
	}
	if got, err := tracks.Get("t2"); err != nil || !got.Hidden {
		t.Fatalf("t2 = %+v, %v", got, err)
	}
	if events.Len() != 1 {
		t.Fatalf("events = %d, want 1", events.Len())
	}
	if _, ok := events.Get("e1"); !ok {
		t.Fatal("valid event e1 not restored")
	}
}

func TestRestoreSnapshotEmpty(t *testing.T) {
	t.Parallel()
	tracks := timeline.NewRegistry()
	events := timeline.NewStore()
	if dropped := restoreSnapshot(tracks, events, storage.Snapshot{}, logx.Nop()); dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if tracks.Len() != 0 || events.Len() != 0 {
		t.Fatal("empty snapshot should restore nothing")
	}
}

func TestMapTemplatesFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	got := orDefaults(mapTemplates(nil))
	if len(got) != 2 || got[0].ID != "template_1" {
		t.Fatalf("defaults = %+v", got)
	}
}
