package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tweetwall.live/internal/board"
	"tweetwall.live/internal/persistence/journal"
)

// replay rebuilds a board from a session journal and prints the resulting
// state digest, which can be compared against a live session's Digest to
// spot divergence.
func main() {
	var (
		dir     = flag.String("dir", "", "journal directory")
		prefix  = flag.String("prefix", "journal", "journal file prefix")
		boardID = flag.String("board", "", "replay only this board (optional)")
		verbose = flag.Bool("v", false, "print every record")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "missing -dir")
		os.Exit(2)
	}

	files, err := journal.Files(*dir, *prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journals:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files in", *dir)
		os.Exit(1)
	}

	store := board.NewStore()
	var applied, skipped int
	for _, path := range files {
		recs, err := journal.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
			os.Exit(1)
		}
		for _, rec := range recs {
			if *boardID != "" && rec.BoardID != *boardID {
				continue
			}
			if *verbose {
				fmt.Printf("%s %s %s item=%s\n", time.UnixMilli(rec.AtMs).Format(time.RFC3339), rec.Origin, rec.Op, rec.ItemID)
			}
			if apply(store, rec) {
				applied++
			} else {
				skipped++
			}
		}
	}

	fmt.Printf("files=%d applied=%d skipped=%d items=%d digest=%s\n",
		len(files), applied, skipped, store.Len(), store.Digest())
}

// apply folds a single journal record into the store. Rollback records for
// likes and deletes cannot be reconstructed without the pre-mutation state,
// so they count as skipped.
func apply(store *board.Store, rec journal.Record) bool {
	at := time.UnixMilli(rec.AtMs)
	switch {
	case rec.Op == journal.OpCreate && rec.Origin == journal.OriginRollback:
		_, ok := store.Remove(rec.ItemID)
		return ok

	case rec.Op == journal.OpCreate:
		it := &board.Item{ID: rec.ItemID, OwnerID: rec.UserID, CreatedAt: at, UpdatedAt: at}
		if rec.X != nil {
			it.Pos.X = *rec.X
		}
		if rec.Y != nil {
			it.Pos.Y = *rec.Y
		}
		store.Upsert(it)
		return true

	case rec.Op == journal.OpMove, rec.Op == journal.OpMerge:
		if rec.X == nil && rec.Y == nil {
			return false
		}
		cur := store.Get(rec.ItemID)
		if cur == nil {
			return false
		}
		pos := cur.Pos
		if rec.X != nil {
			pos.X = *rec.X
		}
		if rec.Y != nil {
			pos.Y = *rec.Y
		}
		return store.Merge(board.Patch{ID: rec.ItemID, Pos: &pos, UpdatedAt: at})

	case rec.Op == journal.OpLike && rec.Origin == journal.OriginLocal:
		it := store.Get(rec.ItemID)
		if it == nil {
			return false
		}
		it.SetLiked(rec.UserID, true)
		return true

	case rec.Op == journal.OpUnlike && rec.Origin == journal.OriginLocal:
		it := store.Get(rec.ItemID)
		if it == nil {
			return false
		}
		it.SetLiked(rec.UserID, false)
		return true

	case rec.Op == journal.OpDelete && rec.Origin != journal.OriginRollback:
		_, ok := store.Remove(rec.ItemID)
		return ok
	}
	return false
}
