// Package cache keeps the last-known item set per board in a local sqlite
// file so a reopened board renders immediately while the initial fetch is
// still in flight. Writes are funneled through a single writer goroutine;
// the cache never sits on the session loop's critical path.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"tweetwall.live/internal/protocol"
)

type Cache struct {
	db *sql.DB

	// mu covers closed and every send on ch, so Close can never close the
	// channel between a saver's check and its send.
	mu     sync.Mutex
	ch     chan saveReq
	closed bool

	wg   sync.WaitGroup
	once sync.Once
}

type saveReq struct {
	boardID string
	items   []protocol.ItemWire
	done    chan struct{}
}

const schema = `
CREATE TABLE IF NOT EXISTS board_items (
	board_id   TEXT NOT NULL,
	item_id    TEXT NOT NULL,
	payload    TEXT NOT NULL,
	updated_ms INTEGER NOT NULL,
	PRIMARY KEY (board_id, item_id)
);
CREATE TABLE IF NOT EXISTS boards (
	board_id  TEXT PRIMARY KEY,
	saved_ms  INTEGER NOT NULL
);
`

func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache schema: %w", err)
	}

	c := &Cache{db: db, ch: make(chan saveReq, 16)}
	c.wg.Add(1)
	go c.writer()
	return c, nil
}

// SaveBoard replaces the cached item set for a board. Non-blocking: when the
// write queue is full the save is dropped, the next one supersedes it anyway.
func (c *Cache) SaveBoard(boardID string, items []protocol.ItemWire) {
	if c == nil {
		return
	}
	cp := make([]protocol.ItemWire, len(items))
	copy(cp, items)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- saveReq{boardID: boardID, items: cp}:
	default:
	}
}

// LoadBoard returns the cached items for a board, oldest first. A board
// never saved yields an empty slice, not an error.
func (c *Cache) LoadBoard(boardID string) ([]protocol.ItemWire, error) {
	rows, err := c.db.Query(
		`SELECT payload FROM board_items WHERE board_id = ? ORDER BY updated_ms, item_id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []protocol.ItemWire
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return items, err
		}
		var it protocol.ItemWire
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
		c.wg.Wait()
	})
	return c.db.Close()
}

func (c *Cache) writer() {
	defer c.wg.Done()
	for req := range c.ch {
		if req.done != nil {
			close(req.done)
			continue
		}
		c.applySave(req)
	}
}

func (c *Cache) applySave(req saveReq) {
	tx, err := c.db.Begin()
	if err != nil {
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM board_items WHERE board_id = ?`, req.boardID); err != nil {
		return
	}
	for _, it := range req.items {
		raw, err := json.Marshal(it)
		if err != nil {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO board_items (board_id, item_id, payload, updated_ms) VALUES (?, ?, ?, ?)`,
			req.boardID, it.ID, string(raw), it.UpdatedAtMs); err != nil {
			return
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO boards (board_id, saved_ms) VALUES (?, ?)
		 ON CONFLICT(board_id) DO UPDATE SET saved_ms = excluded.saved_ms`,
		req.boardID, time.Now().UnixMilli()); err != nil {
		return
	}
	_ = tx.Commit()
}

// Flush blocks until every save queued before the call has been applied.
// Test helper; production callers rely on Close.
func (c *Cache) Flush() {
	done := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.ch <- saveReq{done: done}
	c.mu.Unlock()
	<-done
}
