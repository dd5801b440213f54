package timeline

import (
	"errors"
	"testing"
)

func TestRegistryAddAndGet(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	a := r.AddTrack("Person 1")
	b := r.AddTrack("Person 2")
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}

	got, err := r.Get(a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DisplayName != "Person 1" || got.Hidden {
		t.Fatalf("unexpected track: %+v", got)
	}

	if _, err := r.Get("nope"); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestRegistryRenameKeepsIdentity(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	tr := r.AddTrack("Person 1")

	if err := r.RenameTrack(tr.ID, "Alice"); err != nil {
		t.Fatalf("RenameTrack: %v", err)
	}
	got, err := r.Get(tr.ID)
	if err != nil {
		t.Fatalf("Get after rename: %v", err)
	}
	if got.DisplayName != "Alice" {
		t.Fatalf("DisplayName = %q, want Alice", got.DisplayName)
	}
	if got.ID != tr.ID {
		t.Fatalf("rename changed id: %q -> %q", tr.ID, got.ID)
	}

	// Duplicate display names are allowed; identity is the id.
	other := r.AddTrack("Alice")
	if other.ID == tr.ID {
		t.Fatal("duplicate display name must not collide ids")
	}

	if err := r.RenameTrack("nope", "x"); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestRegistryHiddenTracks(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	a := r.AddTrack("A")
	b := r.AddTrack("B")

	if err := r.SetHidden(a.ID, true); err != nil {
		t.Fatalf("SetHidden: %v", err)
	}

	vis := r.Visible()
	if len(vis) != 1 || vis[0].ID != b.ID {
		t.Fatalf("Visible = %+v, want only %q", vis, b.ID)
	}
	// Hidden tracks remain addressable for data operations.
	if _, err := r.Get(a.ID); err != nil {
		t.Fatalf("hidden track not addressable: %v", err)
	}
	if len(r.Tracks()) != 2 {
		t.Fatalf("Tracks() = %d entries, want 2", len(r.Tracks()))
	}

	if err := r.SetHidden(a.ID, false); err != nil {
		t.Fatalf("unhide: %v", err)
	}
	if len(r.Visible()) != 2 {
		t.Fatal("expected both tracks visible again")
	}
}

func TestRegistryRemoveTrack(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	a := r.AddTrack("A")
	b := r.AddTrack("B")

	if err := r.RemoveTrack(a.ID); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if _, err := r.Get(a.ID); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound after removal, got %v", err)
	}
	if err := r.RemoveTrack(a.ID); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("second removal should fail NotFound, got %v", err)
	}

	ts := r.Tracks()
	if len(ts) != 1 || ts[0].ID != b.ID {
		t.Fatalf("Tracks = %+v, want only %q", ts, b.ID)
	}
}

func TestRegistryRestorePreservesOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Restore(Track{ID: "t1", DisplayName: "One"})
	r.Restore(Track{ID: "t2", DisplayName: "Two", Hidden: true})
	r.Restore(Track{ID: "t1", DisplayName: "One renamed"})

	ts := r.Tracks()
	if len(ts) != 2 {
		t.Fatalf("len = %d, want 2", len(ts))
	}
	if ts[0].ID != "t1" || ts[0].DisplayName != "One renamed" {
		t.Fatalf("unexpected first track: %+v", ts[0])
	}
	if ts[1].ID != "t2" || !ts[1].Hidden {
		t.Fatalf("unexpected second track: %+v", ts[1])
	}
}
