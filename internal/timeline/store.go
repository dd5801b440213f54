package timeline

import (
	"sort"
	"time"
)

// Store is the single source of truth for all scheduled activity, keyed by
// track id. Events within a track keep insertion order; date views sort by
// start instant on the way out.
type Store struct {
	byTrack map[string][]string
	byID    map[string]*Event
}

func NewStore() *Store {
	return &Store{
		byTrack: map[string][]string{},
		byID:    map[string]*Event{},
	}
}

// Patch carries the mutable fields of an update. Nil fields are left as-is.
type Patch struct {
	Title *string
	Start *time.Time
	End   *time.Time
}

// Insert adds an event. The boundaries must satisfy End > Start; the track
// id must be validated against the registry by the caller beforehand.
func (s *Store) Insert(ev Event) error {
	if !ev.End.After(ev.Start) {
		return Validationf("event %q: end %v is not after start %v", ev.Title, ev.End, ev.Start)
	}
	if _, ok := s.byID[ev.ID]; ok {
		return Validationf("event id %q already present", ev.ID)
	}
	cp := ev
	s.byID[ev.ID] = &cp
	s.byTrack[ev.TrackID] = append(s.byTrack[ev.TrackID], ev.ID)
	return nil
}

// Update applies a patch in place. Fails with ErrEventNotFound for unknown
// ids; a patch that would invert the boundaries is rejected with no change.
func (s *Store) Update(id string, p Patch) (Event, error) {
	ev, ok := s.byID[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	start, end := ev.Start, ev.End
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	if !end.After(start) {
		return Event{}, Validationf("end %v is not after start %v", end, start)
	}
	if p.Title != nil {
		ev.Title = *p.Title
	}
	ev.Start, ev.End = start, end
	return *ev, nil
}

// Remove deletes an event and reports whether it existed. Removing an
// unknown id is a silent no-op, never an error.
func (s *Store) Remove(id string) bool {
	ev, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	s.byTrack[ev.TrackID] = removeID(s.byTrack[ev.TrackID], id)
	return true
}

// RemoveByTrack drops every event on the given track and returns how many
// were removed. Used by the track-deletion cascade.
func (s *Store) RemoveByTrack(trackID string) int {
	ids := s.byTrack[trackID]
	for _, id := range ids {
		delete(s.byID, id)
	}
	delete(s.byTrack, trackID)
	return len(ids)
}

// MoveToTrack reassigns an event to another track, keeping its boundaries.
func (s *Store) MoveToTrack(id, newTrackID string) (Event, error) {
	ev, ok := s.byID[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	if ev.TrackID == newTrackID {
		return *ev, nil
	}
	s.byTrack[ev.TrackID] = removeID(s.byTrack[ev.TrackID], id)
	ev.TrackID = newTrackID
	s.byTrack[newTrackID] = append(s.byTrack[newTrackID], id)
	return *ev, nil
}

// Get returns the event by id.
func (s *Store) Get(id string) (Event, bool) {
	ev, ok := s.byID[id]
	if !ok {
		return Event{}, false
	}
	return *ev, true
}

// ListByTrack returns the track's events in insertion order. An unknown or
// empty track yields an empty slice.
func (s *Store) ListByTrack(trackID string) []Event {
	ids := s.byTrack[trackID]
	out := make([]Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.byID[id])
	}
	return out
}

// All returns every stored event, ordered by track insertion then event
// insertion. Used for snapshots.
func (s *Store) All() []Event {
	trackIDs := make([]string, 0, len(s.byTrack))
	for tid := range s.byTrack {
		trackIDs = append(trackIDs, tid)
	}
	sort.Strings(trackIDs)
	out := make([]Event, 0, len(s.byID))
	for _, tid := range trackIDs {
		out = append(out, s.ListByTrack(tid)...)
	}
	return out
}

func (s *Store) Len() int { return len(s.byID) }

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
