// Package session is the synchronization engine for one open board view: it
// owns the entity store, the drag reconciliation machine and the optimistic
// mutation pipeline, and merges realtime events into the same store so the
// render layer never needs to know which path produced a change.
//
// All state is single-owner. Methods must be called from the owning
// goroutine; Run provides a loop that serializes commands, API completions,
// remote events and debounce deadlines onto that one goroutine, so no
// locking exists anywhere in the engine.
package session

import (
	"context"
	"log"
	"os"
	"time"

	"tweetwall.live/internal/api"
	"tweetwall.live/internal/board"
	"tweetwall.live/internal/persistence/cache"
	"tweetwall.live/internal/persistence/journal"
	"tweetwall.live/internal/protocol"
)

type User struct {
	ID       string
	Username string
}

type Config struct {
	BoardID string
	User    User
	Role    Role

	Bounds         board.Bounds
	CommitDebounce time.Duration

	// OnAuthFailure is the session-invalidation collaborator. Called at
	// most once; afterwards the session refuses further board interaction.
	OnAuthFailure func()

	// Notify surfaces recoverable failures as a transient, dismissible
	// user-visible message. Optional.
	Notify func(msg string)

	// Journal and Cache are optional persistence sinks.
	Journal *journal.Writer
	Cache   *cache.Cache

	Logger *log.Logger

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

type Session struct {
	cfg   Config
	api   api.Client
	store *board.Store

	active        *DragSession
	drags         map[string]*DragSession
	lastCommitted map[string]board.Vec2

	commands chan func()
	remote   chan protocol.EventMsg
	results  chan result

	// exec runs an API call off the loop goroutine and posts its result
	// back. Tests replace it with an inline executor.
	exec func(func() result)

	fetchCancel context.CancelFunc
	authFailed  bool
	closed      bool
}

func New(cfg Config, client api.Client) *Session {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.CommitDebounce < 100*time.Millisecond {
		cfg.CommitDebounce = 120 * time.Millisecond
	}
	s := &Session{
		cfg:           cfg,
		api:           client,
		store:         board.NewStore(),
		drags:         make(map[string]*DragSession),
		lastCommitted: make(map[string]board.Vec2),
		commands:      make(chan func(), 16),
		remote:        make(chan protocol.EventMsg, 64),
		results:       make(chan result, 64),
	}
	s.exec = func(f func() result) {
		go func() { s.results <- f() }()
	}
	return s
}

// Store exposes the item collection for rendering. Owner goroutine only.
func (s *Session) Store() *board.Store { return s.store }

// Start seeds the store from the local cache, if any, and launches the
// initial fetch. The fetch is cancellable via Teardown.
func (s *Session) Start() {
	if s.cfg.Cache != nil {
		cached, err := s.cfg.Cache.LoadBoard(s.cfg.BoardID)
		if err != nil {
			s.cfg.Logger.Printf("cache load %s: %v", s.cfg.BoardID, err)
		}
		for _, w := range cached {
			s.store.Upsert(itemFromWire(w))
		}
	}
	s.Refetch()
}

// Refetch reloads the item list. Also the owner's recovery path after a
// realtime reconnect; the bridge never resyncs on its own.
func (s *Session) Refetch() {
	if s.authFailed || s.closed {
		return
	}
	if s.fetchCancel != nil {
		s.fetchCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.fetchCancel = cancel
	boardID := s.cfg.BoardID
	s.exec(func() result {
		items, err := s.api.FetchItems(ctx, boardID)
		return result{kind: resFetch, items: items, err: err}
	})
}

// Teardown cancels the in-flight fetch and discards (not flushes) any
// pending debounced commits. Detaching the realtime subscription is the
// owner's job, it holds the subscription handle.
func (s *Session) Teardown() {
	s.closed = true
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
	s.active = nil
	s.drags = make(map[string]*DragSession)
}

// Do posts work onto the session loop from another goroutine.
func (s *Session) Do(f func()) {
	s.commands <- f
}

// DeliverRemote hands a realtime event to the loop. Safe for the bridge's
// reader goroutine.
func (s *Session) DeliverRemote(ev protocol.EventMsg) {
	select {
	case s.remote <- ev:
	default:
		s.cfg.Logger.Printf("remote event queue full, dropping %s", ev.Name)
	}
}

// Step advances time-driven work: due debounced commits. The rendering
// surface calls this once per frame; Run calls it on a ticker.
func (s *Session) Step(now time.Time) {
	s.flushDueCommits(now)
}

// Run owns the session until ctx ends. Commands, API completions and
// remote events interleave here and nowhere else.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Teardown()
			return ctx.Err()
		case f := <-s.commands:
			f()
		case ev := <-s.remote:
			s.ApplyRemote(ev)
		case r := <-s.results:
			s.apply(r)
		case <-ticker.C:
			s.Step(s.now())
		}
	}
}

func (s *Session) now() time.Time { return s.cfg.Clock() }

func (s *Session) notify(msg string) {
	if s.cfg.Notify != nil {
		s.cfg.Notify(msg)
	}
}

// failAuth routes a fatal authorization error to the invalidation
// collaborator exactly once and freezes the session.
func (s *Session) failAuth(err error) {
	s.cfg.Logger.Printf("authorization failure: %v", err)
	if s.authFailed {
		return
	}
	s.authFailed = true
	s.Teardown()
	if s.cfg.OnAuthFailure != nil {
		s.cfg.OnAuthFailure()
	}
}

func (s *Session) interactive() bool {
	return !s.authFailed && !s.closed
}

func (s *Session) journal(rec journal.Record) {
	rec.AtMs = s.now().UnixMilli()
	rec.BoardID = s.cfg.BoardID
	if err := s.cfg.Journal.Append(rec); err != nil {
		s.cfg.Logger.Printf("journal: %v", err)
	}
}

// cacheSave snapshots the confirmed items into the local cache. Pending
// placeholders are skipped, their server ids are not known yet.
func (s *Session) cacheSave() {
	if s.cfg.Cache == nil {
		return
	}
	items := s.store.Items()
	wires := make([]protocol.ItemWire, 0, len(items))
	for _, it := range items {
		if it.Pending {
			continue
		}
		wires = append(wires, itemToWire(it))
	}
	s.cfg.Cache.SaveBoard(s.cfg.BoardID, wires)
}
