package session

import (
	"time"

	"tweetwall.live/internal/board"
	"tweetwall.live/internal/persistence/journal"
	"tweetwall.live/internal/protocol"
)

// ApplyRemote merges one realtime event into the store. Handlers are
// idempotent: replaying an event leaves the state of the first application.
// Malformed events are dropped without touching the store.
func (s *Session) ApplyRemote(ev protocol.EventMsg) {
	if s.closed {
		return
	}
	switch ev.Name {
	case protocol.EventItemCreated:
		if ev.Item == nil || ev.Item.ID == "" {
			s.cfg.Logger.Printf("remote %s: missing item, dropped", ev.Name)
			return
		}
		auth := itemFromWire(*ev.Item)
		if ev.Item.CorrID != "" && s.store.PendingByCorrID(ev.Item.CorrID) != nil {
			// Our own create echoed back before the POST response landed.
			s.store.ResolvePending(ev.Item.CorrID, auth)
		} else {
			s.store.Upsert(auth)
		}
		s.journal(journal.Record{Origin: journal.OriginRemote, Op: journal.OpCreate, ItemID: auth.ID, X: &auth.Pos.X, Y: &auth.Pos.Y, UserID: auth.OwnerID})

	case protocol.EventItemUpdated:
		if ev.ItemID == "" {
			s.cfg.Logger.Printf("remote %s: missing item_id, dropped", ev.Name)
			return
		}
		cur := s.store.Get(ev.ItemID)
		if cur == nil {
			return
		}
		if !s.store.Merge(patchFromEvent(ev, cur)) {
			return
		}
		s.journal(journal.Record{Origin: journal.OriginRemote, Op: journal.OpMerge, ItemID: ev.ItemID, X: ev.X, Y: ev.Y})

	case protocol.EventItemDeleted:
		if ev.ItemID == "" {
			s.cfg.Logger.Printf("remote %s: missing item_id, dropped", ev.Name)
			return
		}
		if _, ok := s.store.Remove(ev.ItemID); !ok {
			return
		}
		s.discardDrag(ev.ItemID)
		s.journal(journal.Record{Origin: journal.OriginRemote, Op: journal.OpDelete, ItemID: ev.ItemID})

	default:
		return
	}
	s.cacheSave()
}

// patchFromEvent maps an ITEM_UPDATED wire event onto a shallow store
// patch. A one-axis position event keeps the other axis from the current
// entry; absent fields stay nil so the merge leaves them alone.
func patchFromEvent(ev protocol.EventMsg, cur *board.Item) board.Patch {
	p := board.Patch{ID: ev.ItemID, LikedBy: ev.LikedBy, Pinned: ev.Pinned}
	if ev.X != nil || ev.Y != nil {
		pos := cur.Pos
		if ev.X != nil {
			pos.X = *ev.X
		}
		if ev.Y != nil {
			pos.Y = *ev.Y
		}
		p.Pos = &pos
	}
	if ev.UpdatedAtMs > 0 {
		p.UpdatedAt = time.UnixMilli(ev.UpdatedAtMs)
	}
	return p
}

func itemFromWire(w protocol.ItemWire) *board.Item {
	it := &board.Item{
		ID:        w.ID,
		CorrID:    w.CorrID,
		Pos:       board.Vec2{X: w.X, Y: w.Y},
		Content:   w.Content,
		OwnerID:   w.OwnerID,
		OwnerName: w.OwnerName,
		ParentID:  w.ParentID,
		Pinned:    w.Pinned,
		CreatedAt: time.UnixMilli(w.CreatedAtMs),
		UpdatedAt: time.UnixMilli(w.UpdatedAtMs),
	}
	for _, u := range w.LikedBy {
		it.SetLiked(u, true)
	}
	return it
}

func itemToWire(it *board.Item) protocol.ItemWire {
	w := protocol.ItemWire{
		ID:          it.ID,
		CorrID:      it.CorrID,
		X:           it.Pos.X,
		Y:           it.Pos.Y,
		Content:     it.Content,
		OwnerID:     it.OwnerID,
		OwnerName:   it.OwnerName,
		ParentID:    it.ParentID,
		Pinned:      it.Pinned,
		CreatedAtMs: it.CreatedAt.UnixMilli(),
		UpdatedAtMs: it.UpdatedAt.UnixMilli(),
	}
	for u := range it.LikedBy {
		w.LikedBy = append(w.LikedBy, u)
	}
	return w
}

// patchFromWire converts a full wire item into a patch covering every
// mergeable field, used when the initial fetch refreshes existing entries.
func patchFromWire(w protocol.ItemWire) board.Patch {
	pos := board.Vec2{X: w.X, Y: w.Y}
	content := w.Content
	pinned := w.Pinned
	liked := w.LikedBy
	if liked == nil {
		liked = []string{}
	}
	return board.Patch{
		ID:        w.ID,
		Pos:       &pos,
		LikedBy:   liked,
		Content:   &content,
		Pinned:    &pinned,
		UpdatedAt: time.UnixMilli(w.UpdatedAtMs),
	}
}
