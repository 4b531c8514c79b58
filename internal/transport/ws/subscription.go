package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tweetwall.live/internal/protocol"
)

// Handlers receive room events on the bridge's reader goroutine. An absent
// handler drops its events. AuthFailure mirrors an HTTP 401: the
// subscription stops for good and the session must be invalidated.
type Handlers struct {
	OnCreated      func(protocol.ItemWire)
	OnUpdated      func(protocol.EventMsg)
	OnDeleted      func(itemID string)
	OnConnectError func(err error, authFailure bool)

	// OnReconnect fires after the room has been rejoined following a
	// dropped connection. The bridge never replays a full resync itself;
	// whether to refetch the item list is the owner's call.
	OnReconnect func()
}

type Subscription struct {
	mgr      *Manager
	boardID  string
	identity Identity
	handlers Handlers
	log      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	welcome protocol.WelcomeMsg
}

func newSubscription(mgr *Manager, boardID string, id Identity, h Handlers, logger *log.Logger) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscription{
		mgr:      mgr,
		boardID:  boardID,
		identity: id,
		handlers: h,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (s *Subscription) BoardID() string { return s.boardID }

// Welcome returns the last WELCOME received for this room. Zero value until
// the first successful join.
func (s *Subscription) Welcome() protocol.WelcomeMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.welcome
}

// Unsubscribe detaches the room: the reader stops, the socket closes, and
// no further handlers fire. Local state held by the owner is untouched.
func (s *Subscription) Unsubscribe() {
	s.mgr.forget(s.boardID, s)
	s.close()
}

func (s *Subscription) close() {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Subscription) start() {
	go s.run()
}

func (s *Subscription) run() {
	defer close(s.done)

	attempt := 0
	joinedOnce := false
	for {
		if s.ctx.Err() != nil {
			return
		}
		conn, err := s.join()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			auth := isAuthClose(err)
			if h := s.handlers.OnConnectError; h != nil {
				h(err, auth)
			}
			if auth {
				// Same contract as an HTTP 401: stop, do not retry.
				s.mgr.forget(s.boardID, s)
				return
			}
			attempt++
			if !sleepCtx(s.ctx, backoff(attempt)) {
				return
			}
			continue
		}
		attempt = 0

		if joinedOnce {
			if h := s.handlers.OnReconnect; h != nil {
				h()
			}
		}
		joinedOnce = true

		s.readLoop(conn)
		_ = conn.Close()
		// Dropped connection: nothing local is discarded, rejoin the room.
	}
}

func (s *Subscription) join() (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.mgr.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.mgr.url, err)
	}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		BoardID:         s.boardID,
		ClientName:      s.identity.ClientName,
	}
	if s.identity.Token != "" {
		hello.Auth = &protocol.HelloAuth{Token: s.identity.Token}
	}
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("await WELCOME: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	base, err := protocol.DecodeBase(msg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("decode WELCOME: %w", err)
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("decode WELCOME: %w", err)
		}
		s.mu.Lock()
		s.conn = conn
		s.welcome = w
		s.mu.Unlock()
		return conn, nil
	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		_ = conn.Close()
		return nil, &JoinError{Code: e.Code, Message: e.Message}
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("expected WELCOME, got %s", base.Type)
	}
}

func (s *Subscription) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type != protocol.TypeEvent {
			continue
		}
		var ev protocol.EventMsg
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		s.dispatch(ev)
	}
}

// dispatch drops malformed events (missing ids) silently; a bad payload
// must never take down the merge loop.
func (s *Subscription) dispatch(ev protocol.EventMsg) {
	switch ev.Name {
	case protocol.EventItemCreated:
		if ev.Item == nil || ev.Item.ID == "" {
			return
		}
		if h := s.handlers.OnCreated; h != nil {
			h(*ev.Item)
		}
	case protocol.EventItemUpdated:
		if ev.ItemID == "" {
			return
		}
		if h := s.handlers.OnUpdated; h != nil {
			h(ev)
		}
	case protocol.EventItemDeleted:
		if ev.ItemID == "" {
			return
		}
		if h := s.handlers.OnDeleted; h != nil {
			h(ev.ItemID)
		}
	}
}

// JoinError is a server rejection during the room handshake.
type JoinError struct {
	Code    string
	Message string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("ws: join rejected (%s): %s", e.Code, e.Message)
}

func isAuthClose(err error) bool {
	var je *JoinError
	if errors.As(err, &je) {
		return je.Code == protocol.ErrAuth
	}
	return websocket.IsCloseError(err, websocket.ClosePolicyViolation)
}

func backoff(attempt int) time.Duration {
	if attempt > 5 {
		return 15 * time.Second
	}
	return 500 * time.Millisecond << uint(attempt-1)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
