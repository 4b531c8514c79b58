package session

import (
	"context"
	"time"

	"tweetwall.live/internal/board"
	"tweetwall.live/internal/persistence/journal"
)

// DragState is the lifecycle of one drag session. The debounce is a
// deadline owned by the session instance, not a shared debounced callback.
type DragState int

const (
	DragIdle DragState = iota
	DragDragging
	DragPendingCommit
	DragCommitted
)

// DragSession shadows the store position of one item while the user drags
// it, so movement is visually immediate and independent of any round trip.
type DragSession struct {
	ItemID string

	state       DragState
	startScreen board.Vec2
	startPos    board.Vec2
	local       board.Vec2
	scale       float64

	commitPos board.Vec2
	dueAt     time.Time
}

func (d *DragSession) State() DragState { return d.state }

// StartDrag begins a drag if the permission gate allows it. scale is the
// current viewport scale, needed to convert screen deltas to board space.
// A new drag on an item whose previous commit is still pending collapses
// into that session: the timer restarts and only the final position ships.
func (s *Session) StartDrag(itemID string, sx, sy, scale float64) bool {
	if !s.interactive() {
		return false
	}
	it := s.store.Get(itemID)
	if !CanDrag(it, s.cfg.User, s.cfg.Role) {
		return false
	}
	if scale <= 0 {
		return false
	}
	if _, ok := s.lastCommitted[itemID]; !ok {
		// The store position is what the server last told us.
		s.lastCommitted[itemID] = it.Pos
	}
	d := s.drags[itemID]
	if d == nil {
		d = &DragSession{ItemID: itemID}
		s.drags[itemID] = d
	}
	d.state = DragDragging
	d.startScreen = board.Vec2{X: sx, Y: sy}
	d.startPos = it.Pos
	d.local = it.Pos
	d.scale = scale
	d.dueAt = time.Time{}
	s.active = d
	return true
}

// MoveDrag updates the local drag position only; the store is untouched
// until drop. The position is clamped on every frame.
func (s *Session) MoveDrag(sx, sy float64) {
	d := s.active
	if d == nil || d.state != DragDragging {
		return
	}
	raw := board.Vec2{
		X: d.startPos.X + (sx-d.startScreen.X)/d.scale,
		Y: d.startPos.Y + (sy-d.startScreen.Y)/d.scale,
	}
	d.local = s.cfg.Bounds.Clamp(raw)
}

// DragPos is the visual position override for the render layer: while an
// item is dragged (or its drop awaits commit) this wins over the store.
func (s *Session) DragPos(itemID string) (board.Vec2, bool) {
	d := s.drags[itemID]
	if d == nil || d.state == DragIdle || d.state == DragCommitted {
		return board.Vec2{}, false
	}
	return d.local, true
}

// Dragging reports whether a drag session is currently active.
func (s *Session) Dragging() bool {
	return s.active != nil && s.active.state == DragDragging
}

// EndDrag drops the item. overChrome marks a drop landing on UI chrome
// (menus, item controls); such drops are discarded entirely so interacting
// with controls never triggers a spurious move. Otherwise the clamped
// position is written to the store optimistically and the debounced commit
// is scheduled; it ships only if the position actually changed since the
// last network commit for this item.
func (s *Session) EndDrag(sx, sy float64, overChrome bool) {
	d := s.active
	if d == nil || d.state != DragDragging {
		return
	}
	s.active = nil
	if overChrome {
		delete(s.drags, d.ItemID)
		return
	}
	s.MoveDragTo(d, sx, sy)
	if !d.local.IsFinite() {
		s.cfg.Logger.Printf("drag %s: non-finite position, commit aborted", d.ItemID)
		delete(s.drags, d.ItemID)
		return
	}
	final := s.cfg.Bounds.Clamp(d.local)

	// Optimistic: the item must not snap back while the request is in
	// flight. Zero-time patch: local wins now, timestamps come from events.
	s.store.Merge(board.Patch{ID: d.ItemID, Pos: &final})
	s.cacheSave()

	if final == s.lastCommitted[d.ItemID] {
		delete(s.drags, d.ItemID)
		return
	}
	d.state = DragPendingCommit
	d.local = final
	d.commitPos = final
	d.dueAt = s.now().Add(s.cfg.CommitDebounce)
}

// MoveDragTo applies a final pointer position to the session. Split out so
// EndDrag handles drops with and without a trailing move event.
func (s *Session) MoveDragTo(d *DragSession, sx, sy float64) {
	raw := board.Vec2{
		X: d.startPos.X + (sx-d.startScreen.X)/d.scale,
		Y: d.startPos.Y + (sy-d.startScreen.Y)/d.scale,
	}
	if raw.IsFinite() {
		d.local = s.cfg.Bounds.Clamp(raw)
	} else {
		d.local = raw
	}
}

// NextCommitDue reports the earliest pending commit deadline, for owners
// that schedule their own frame timer instead of calling Run.
func (s *Session) NextCommitDue() (time.Time, bool) {
	var min time.Time
	found := false
	for _, d := range s.drags {
		if d.state != DragPendingCommit {
			continue
		}
		if !found || d.dueAt.Before(min) {
			min = d.dueAt
			found = true
		}
	}
	return min, found
}

// flushDueCommits ships every pending commit whose quiet period elapsed.
// Intermediate positions inside the window were never transmitted.
func (s *Session) flushDueCommits(now time.Time) {
	for id, d := range s.drags {
		if d.state != DragPendingCommit || now.Before(d.dueAt) {
			continue
		}
		d.state = DragCommitted
		delete(s.drags, id)
		s.commitPosition(id, d.commitPos)
	}
}

func (s *Session) commitPosition(itemID string, pos board.Vec2) {
	s.lastCommitted[itemID] = pos
	s.journal(journal.Record{
		Origin: journal.OriginLocal, Op: journal.OpMove,
		ItemID: itemID, X: &pos.X, Y: &pos.Y, UserID: s.cfg.User.ID,
	})
	apic := s.api
	s.exec(func() result {
		err := apic.UpdateItemPosition(context.Background(), itemID, pos.X, pos.Y)
		return result{kind: resMove, itemID: itemID, err: err}
	})
}

// discardDrag drops any drag state for an item, pending commit included.
// Used when the item is deleted remotely mid-drag.
func (s *Session) discardDrag(itemID string) {
	if d, ok := s.drags[itemID]; ok {
		if s.active == d {
			s.active = nil
		}
		delete(s.drags, itemID)
	}
	delete(s.lastCommitted, itemID)
}
