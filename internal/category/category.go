package category

import (
	"time"
)

// LevelCount is the depth of the shop taxonomy; every uploadable leaf
// sits at level 3 with exactly one root-to-leaf path.
const LevelCount = 3

// Entry is one node of the shop taxonomy. Entries are immutable once
// fetched.
type Entry struct {
	ID       string `json:"cat_id"`
	ParentID string `json:"parent_id,omitempty"`
	Level    int    `json:"level"`
	Label    string `json:"label"`
}

// Snapshot is an immutable view of the taxonomy taken at FetchedAt.
// It is replaced atomically on refresh, never mutated, so concurrent
// readers need no locking.
type Snapshot struct {
	Entries   []Entry
	FetchedAt time.Time

	byID map[string]Entry
}

// NewSnapshot builds a snapshot and its id index.
func NewSnapshot(entries []Entry, fetchedAt time.Time) *Snapshot {
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Snapshot{
		Entries:   entries,
		FetchedAt: fetchedAt,
		byID:      byID,
	}
}

// Valid reports whether the snapshot may serve lookups without a refetch.
func (s *Snapshot) Valid(ttl time.Duration, now time.Time) bool {
	return len(s.Entries) > 0 && now.Sub(s.FetchedAt) < ttl
}

// Entry returns the entry with the given id.
func (s *Snapshot) Entry(id string) (Entry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Leaves returns all level-3 entries.
func (s *Snapshot) Leaves() []Entry {
	var leaves []Entry
	for _, e := range s.Entries {
		if e.Level == LevelCount {
			leaves = append(leaves, e)
		}
	}
	return leaves
}

// Path returns the root-to-leaf id path for a leaf. It fails when the
// entry is unknown, not a leaf, or its ancestor chain is broken.
func (s *Snapshot) Path(leafID string) ([]string, bool) {
	e, ok := s.byID[leafID]
	if !ok || e.Level != LevelCount {
		return nil, false
	}

	path := make([]string, LevelCount)
	for i := LevelCount - 1; i >= 0; i-- {
		if e.Level != i+1 {
			return nil, false
		}
		path[i] = e.ID
		if i > 0 {
			if e, ok = s.byID[e.ParentID]; !ok {
				return nil, false
			}
		}
	}
	return path, true
}

// FullLabel joins the ancestor labels of a leaf, root first.
func (s *Snapshot) FullLabel(leafID string) string {
	path, ok := s.Path(leafID)
	if !ok {
		return ""
	}
	label := ""
	for i, id := range path {
		if i > 0 {
			label += "-"
		}
		label += s.byID[id].Label
	}
	return label
}
