package board

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Store is the in-memory item collection for one open board view. It is
// single-owner: all access must happen on the owning session goroutine.
type Store struct {
	items map[string]*Item
	order []*Item
}

func NewStore() *Store {
	return &Store{items: make(map[string]*Item)}
}

func (s *Store) Len() int { return len(s.order) }

func (s *Store) Get(id string) *Item { return s.items[id] }

// Items returns the canonical render order: oldest first by creation
// timestamp, ties broken by id. The slice is owned by the store.
func (s *Store) Items() []*Item { return s.order }

// Upsert inserts the item or, when the id is already present, leaves the
// existing entry in place. Idempotent on id; a remote create that races a
// locally confirmed create never produces a duplicate.
func (s *Store) Upsert(it *Item) *Item {
	if cur, ok := s.items[it.ID]; ok {
		return cur
	}
	s.items[it.ID] = it
	s.order = append(s.order, it)
	s.resort()
	return it
}

// Patch carries the fields present in an item-updated event. Nil fields were
// absent from the event and must retain their current local value.
type Patch struct {
	ID        string
	Pos       *Vec2
	LikedBy   []string
	Content   *string
	Pinned    *bool
	UpdatedAt time.Time
}

// Merge applies a shallow field merge. Events older than the entry's last
// update are ignored (monotonic newer-than check, not field-level CRDT).
// Unknown ids and empty ids are silent no-ops.
func (s *Store) Merge(p Patch) bool {
	if p.ID == "" {
		return false
	}
	it, ok := s.items[p.ID]
	if !ok {
		return false
	}
	if !p.UpdatedAt.IsZero() && p.UpdatedAt.Before(it.UpdatedAt) {
		return false
	}
	if p.Pos != nil {
		it.Pos = *p.Pos
	}
	if p.LikedBy != nil {
		liked := make(map[string]struct{}, len(p.LikedBy))
		for _, u := range p.LikedBy {
			liked[u] = struct{}{}
		}
		it.LikedBy = liked
	}
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.Pinned != nil {
		it.Pinned = *p.Pinned
	}
	if !p.UpdatedAt.IsZero() {
		it.UpdatedAt = p.UpdatedAt
	}
	s.resort()
	return true
}

// Remove deletes by id. Removing an unknown id is a silent no-op.
func (s *Store) Remove(id string) (*Item, bool) {
	it, ok := s.items[id]
	if !ok {
		return nil, false
	}
	delete(s.items, id)
	for i, o := range s.order {
		if o.ID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return it, true
}

// Reinsert puts back an item previously obtained from Remove, preserving its
// identity. Used by the mutation pipeline to roll back a failed delete.
func (s *Store) Reinsert(it *Item) {
	if _, ok := s.items[it.ID]; ok {
		return
	}
	s.items[it.ID] = it
	s.order = append(s.order, it)
	s.resort()
}

// ResolvePending swaps an optimistic placeholder for the authoritative item
// returned by the server. Matching is by correlation id; only an empty
// corrID falls back to the oldest still-pending entry. If the authoritative
// id already landed via the realtime channel the placeholder is dropped so
// exactly one item with that id remains.
func (s *Store) ResolvePending(corrID string, authoritative *Item) *Item {
	ph := s.findPending(corrID)
	if existing, ok := s.items[authoritative.ID]; ok {
		if ph != nil && ph != existing {
			s.Remove(ph.ID)
		}
		return existing
	}
	if ph == nil {
		return s.Upsert(authoritative)
	}
	delete(s.items, ph.ID)
	*ph = *authoritative
	s.items[ph.ID] = ph
	s.resort()
	return ph
}

// DropPending removes the placeholder for a failed create.
func (s *Store) DropPending(corrID string) bool {
	ph := s.findPending(corrID)
	if ph == nil {
		return false
	}
	_, ok := s.Remove(ph.ID)
	return ok
}

// findPending locates the placeholder for a create. The oldest-pending
// fallback exists only for servers that never echo a correlation id: a
// non-empty corrID that matches nothing means the placeholder is already
// resolved (or dropped), and grabbing another create's placeholder instead
// would lose that in-flight create.
func (s *Store) findPending(corrID string) *Item {
	if corrID != "" {
		for _, it := range s.order {
			if it.Pending && it.CorrID == corrID {
				return it
			}
		}
		return nil
	}
	for _, it := range s.order {
		if it.Pending {
			return it
		}
	}
	return nil
}

// PendingByCorrID reports whether a placeholder with this correlation id is
// still awaiting its server id.
func (s *Store) PendingByCorrID(corrID string) *Item {
	if corrID == "" {
		return nil
	}
	for _, it := range s.order {
		if it.Pending && it.CorrID == corrID {
			return it
		}
	}
	return nil
}

// resort recomputes the canonical order from the timestamp field. Arrival
// order of events is never trusted as semantic order.
func (s *Store) resort() {
	sort.SliceStable(s.order, func(i, j int) bool {
		a, b := s.order[i], s.order[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Digest is a stable fingerprint of the store contents, used by the replay
// tool to compare end states.
func (s *Store) Digest() string {
	h := sha256.New()
	for _, it := range s.order {
		fmt.Fprintf(h, "%s|%.4f|%.4f|%d|%t|%s\n", it.ID, it.Pos.X, it.Pos.Y, it.LikeCount(), it.Pinned, it.ParentID)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
