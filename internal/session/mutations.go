package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"tweetwall.live/internal/api"
	"tweetwall.live/internal/board"
	"tweetwall.live/internal/persistence/journal"
	"tweetwall.live/internal/protocol"
)

type resKind int

const (
	resFetch resKind = iota + 1
	resCreate
	resMove
	resLike
	resDelete
)

type result struct {
	kind resKind
	err  error

	items []protocol.ItemWire // fetch
	item  protocol.ItemWire   // create

	corrID      string
	itemID      string
	likedBefore bool
	removed     *board.Item
}

// Create inserts an optimistic placeholder at the given board position and
// issues the create call. Returns the correlation id, or "" when the
// session refuses the mutation.
func (s *Session) Create(content string, bx, by float64) string {
	if !s.interactive() {
		return ""
	}
	pos := board.Vec2{X: bx, Y: by}
	if !pos.IsFinite() {
		s.cfg.Logger.Printf("create: non-finite position, aborted")
		return ""
	}
	pos = s.cfg.Bounds.Clamp(pos)

	corrID := uuid.NewString()
	now := s.now()
	ph := &board.Item{
		ID:        "local-" + corrID,
		CorrID:    corrID,
		Pending:   true,
		Pos:       pos,
		Content:   content,
		OwnerID:   s.cfg.User.ID,
		OwnerName: s.cfg.User.Username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Upsert(ph)
	s.journal(journal.Record{
		Origin: journal.OriginLocal, Op: journal.OpCreate,
		ItemID: ph.ID, X: &pos.X, Y: &pos.Y, UserID: s.cfg.User.ID,
	})

	boardID := s.cfg.BoardID
	apic := s.api
	s.exec(func() result {
		item, err := apic.CreateItem(context.Background(), boardID, content, corrID, pos.X, pos.Y)
		return result{kind: resCreate, corrID: corrID, item: item, err: err}
	})
	return corrID
}

// ToggleLike flips the caller's like optimistically and issues the call.
// Items still awaiting their server id cannot be liked yet.
func (s *Session) ToggleLike(itemID string) {
	if !s.interactive() {
		return
	}
	it := s.store.Get(itemID)
	if it == nil || it.Pending {
		return
	}
	before := it.LikedByUser(s.cfg.User.ID)
	it.SetLiked(s.cfg.User.ID, !before)
	op := journal.OpLike
	if before {
		op = journal.OpUnlike
	}
	s.journal(journal.Record{Origin: journal.OriginLocal, Op: op, ItemID: itemID, UserID: s.cfg.User.ID})
	s.cacheSave()

	apic := s.api
	s.exec(func() result {
		err := apic.ToggleLike(context.Background(), itemID, before)
		return result{kind: resLike, itemID: itemID, likedBefore: before, err: err}
	})
}

// Delete removes the item optimistically and issues the call. The removed
// entry is kept for rollback.
func (s *Session) Delete(itemID string) {
	if !s.interactive() {
		return
	}
	it := s.store.Get(itemID)
	if it == nil || it.Pending {
		return
	}
	removed, _ := s.store.Remove(itemID)
	s.discardDrag(itemID)
	s.journal(journal.Record{Origin: journal.OriginLocal, Op: journal.OpDelete, ItemID: itemID, UserID: s.cfg.User.ID})
	s.cacheSave()

	apic := s.api
	s.exec(func() result {
		err := apic.DeleteItem(context.Background(), itemID)
		return result{kind: resDelete, itemID: itemID, removed: removed, err: err}
	})
}

// apply reconciles an API completion against the store. Runs on the loop
// goroutine only.
func (s *Session) apply(r result) {
	if r.err != nil {
		s.applyFailure(r)
		return
	}
	switch r.kind {
	case resFetch:
		s.applyFetch(r.items)
	case resCreate:
		auth := itemFromWire(r.item)
		s.store.ResolvePending(r.corrID, auth)
		s.cacheSave()
	case resMove, resLike, resDelete:
		// Optimistic state already matches the confirmed outcome.
	}
}

func (s *Session) applyFailure(r result) {
	if api.IsAuthError(r.err) {
		s.failAuth(r.err)
		return
	}
	switch r.kind {
	case resFetch:
		if errors.Is(r.err, context.Canceled) {
			return
		}
		s.cfg.Logger.Printf("fetch: %v", r.err)
		s.notify("couldn't load the board")
	case resCreate:
		s.store.DropPending(r.corrID)
		s.journal(journal.Record{Origin: journal.OriginRollback, Op: journal.OpCreate, ItemID: "local-" + r.corrID})
		s.cfg.Logger.Printf("create: %v", r.err)
		s.notify("couldn't post your tweet")
	case resMove:
		// Deliberate asymmetry: the optimistic position stays; a remote
		// event, if any, is the correction path.
		s.cfg.Logger.Printf("move %s: %v", r.itemID, r.err)
		s.notify("couldn't save the new position")
	case resLike:
		if it := s.store.Get(r.itemID); it != nil {
			it.SetLiked(s.cfg.User.ID, r.likedBefore)
		}
		s.journal(journal.Record{Origin: journal.OriginRollback, Op: journal.OpLike, ItemID: r.itemID})
		s.cfg.Logger.Printf("like %s: %v", r.itemID, r.err)
		s.notify("couldn't update the like")
	case resDelete:
		if r.removed != nil {
			s.store.Reinsert(r.removed)
		}
		s.journal(journal.Record{Origin: journal.OriginRollback, Op: journal.OpDelete, ItemID: r.itemID})
		s.cfg.Logger.Printf("delete %s: %v", r.itemID, r.err)
		s.notify("couldn't delete the tweet")
	}
	s.cacheSave()
}

// applyFetch replaces store contents with the authoritative list. Existing
// entries are field-merged so local optimistic changes applied after the
// request went out are not silently clobbered wholesale; entries absent
// from the list are dropped unless they are still-pending placeholders.
func (s *Session) applyFetch(items []protocol.ItemWire) {
	seen := make(map[string]struct{}, len(items))
	for _, w := range items {
		seen[w.ID] = struct{}{}
		if s.store.Get(w.ID) == nil {
			s.store.Upsert(itemFromWire(w))
			continue
		}
		s.store.Merge(patchFromWire(w))
	}
	var stale []string
	for _, it := range s.store.Items() {
		if it.Pending {
			continue
		}
		if _, ok := seen[it.ID]; !ok {
			stale = append(stale, it.ID)
		}
	}
	for _, id := range stale {
		s.store.Remove(id)
	}
	s.cacheSave()
}
