package timeline

import (
	"github.com/google/uuid"
)

// Registry is the authority for which track identifiers are valid. It owns
// no events; cascading deletion is coordinated by the placement engine so
// events are removed before the track id becomes unreachable.
type Registry struct {
	order []string
	byID  map[string]*Track

	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:  map[string]*Track{},
		newID: uuid.NewString,
	}
}

// AddTrack registers a new visible track and returns it. Display names are
// not required to be unique; identity is the generated id.
func (r *Registry) AddTrack(name string) Track {
	t := &Track{ID: r.newID(), DisplayName: name}
	r.byID[t.ID] = t
	r.order = append(r.order, t.ID)
	return *t
}

// Restore re-inserts a track verbatim (snapshot load). An existing track
// with the same id is replaced in place.
func (r *Registry) Restore(t Track) {
	if _, ok := r.byID[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	cp := t
	r.byID[t.ID] = &cp
}

// Get returns the track by id.
func (r *Registry) Get(id string) (Track, error) {
	t, ok := r.byID[id]
	if !ok {
		return Track{}, ErrTrackNotFound
	}
	return *t, nil
}

// RenameTrack changes the display name only. Events key on the id and are
// unaffected.
func (r *Registry) RenameTrack(id, newName string) error {
	t, ok := r.byID[id]
	if !ok {
		return ErrTrackNotFound
	}
	t.DisplayName = newName
	return nil
}

// SetHidden toggles display-only visibility. Hidden tracks stay addressable
// by id for data operations.
func (r *Registry) SetHidden(id string, hidden bool) error {
	t, ok := r.byID[id]
	if !ok {
		return ErrTrackNotFound
	}
	t.Hidden = hidden
	return nil
}

// RemoveTrack drops the track from the registry. The track's events must be
// removed first so no event ever references an unreachable id; the placement
// engine sequences the two calls.
func (r *Registry) RemoveTrack(id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrTrackNotFound
	}
	delete(r.byID, id)
	for i, tid := range r.order {
		if tid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Tracks returns all tracks in insertion order, hidden included.
func (r *Registry) Tracks() []Track {
	out := make([]Track, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Visible returns the tracks that participate in "all visible tracks"
// enumerations. Hiding is a display concern, not a deletion.
func (r *Registry) Visible() []Track {
	out := make([]Track, 0, len(r.order))
	for _, id := range r.order {
		if t := r.byID[id]; !t.Hidden {
			out = append(out, *t)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
