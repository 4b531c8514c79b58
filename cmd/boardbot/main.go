package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"tweetwall.live/internal/api"
	"tweetwall.live/internal/board"
	"tweetwall.live/internal/persistence/cache"
	"tweetwall.live/internal/persistence/journal"
	"tweetwall.live/internal/protocol"
	"tweetwall.live/internal/session"
	"tweetwall.live/internal/transport/ws"
	"tweetwall.live/internal/tuning"
)

func main() {
	var (
		apiURL   = flag.String("api", "http://localhost:8080", "REST base url")
		wsURL    = flag.String("ws", "ws://localhost:8080/v1/ws", "realtime url")
		boardID  = flag.String("board", "demo", "board id")
		token    = flag.String("token", "", "bearer token")
		name     = flag.String("name", "boardbot", "client name")
		tunePath = flag.String("tuning", "./configs/tuning.yaml", "tuning file")
		dataDir  = flag.String("data", "", "journal/cache directory (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[boardbot] ", log.LstdFlags|log.Lmicroseconds)

	tun, err := tuning.Load(*tunePath)
	if err != nil {
		logger.Printf("tuning: %v (using defaults)", err)
		tun = tuning.Defaults()
	}

	var jw *journal.Writer
	var cc *cache.Cache
	if *dataDir != "" {
		jw = journal.NewWriter(*dataDir, "journal")
		defer jw.Close()
		cc, err = cache.Open(filepath.Join(*dataDir, "boards.db"))
		if err != nil {
			logger.Fatalf("cache: %v", err)
		}
		defer cc.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		cancel()
	}()

	mgr := ws.NewManager(*wsURL, logger)
	mgr.Connect(ws.Identity{Token: *token, ClientName: *name})
	defer mgr.Disconnect()

	// Events may start flowing before the session exists, so the handlers
	// stage them through a channel the session drains once it is up.
	events := make(chan protocol.EventMsg, 256)
	reconnects := make(chan struct{}, 1)
	authErr := make(chan error, 1)
	sub, err := mgr.Subscribe(*boardID, ws.Handlers{
		OnCreated: func(it protocol.ItemWire) {
			events <- protocol.EventMsg{Type: protocol.TypeEvent, Name: protocol.EventItemCreated, ItemID: it.ID, Item: &it}
		},
		OnUpdated: func(ev protocol.EventMsg) {
			events <- ev
		},
		OnDeleted: func(itemID string) {
			events <- protocol.EventMsg{Type: protocol.TypeEvent, Name: protocol.EventItemDeleted, ItemID: itemID}
		},
		OnConnectError: func(err error, authFailure bool) {
			if authFailure {
				select {
				case authErr <- err:
				default:
				}
			}
		},
		OnReconnect: func() {
			select {
			case reconnects <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		logger.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	w, err := awaitWelcome(ctx, sub, authErr)
	if err != nil {
		logger.Fatalf("join %s: %v", *boardID, err)
	}
	logger.Printf("WELCOME user_id=%s role=%s board=%s size=%.0f", w.UserID, w.Role, w.BoardID, w.BoardParams.Size)

	bounds := board.Bounds{Size: tun.BoardSize, ItemW: tun.ItemWidth, ItemH: tun.ItemHeight}
	if w.BoardParams.Size > 0 {
		bounds = board.Bounds{Size: w.BoardParams.Size, ItemW: w.BoardParams.ItemWidth, ItemH: w.BoardParams.ItemHeight}
	}

	sess := session.New(session.Config{
		BoardID:        *boardID,
		User:           session.User{ID: w.UserID, Username: w.Username},
		Role:           session.Role(w.Role),
		Bounds:         bounds,
		CommitDebounce: time.Duration(tun.CommitDebounceMs) * time.Millisecond,
		OnAuthFailure:  func() { logger.Printf("session invalidated, sign in again") },
		Notify:         func(msg string) { logger.Printf("notice: %s", msg) },
		Journal:        jw,
		Cache:          cc,
		Logger:         logger,
	}, api.NewHTTPClient(*apiURL, *token))
	sess.Start()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				sess.DeliverRemote(ev)
			case <-reconnects:
				logger.Printf("rejoined %s, refetching", *boardID)
				sess.Do(sess.Refetch)
			case err := <-authErr:
				logger.Printf("auth rejected: %v", err)
				cancel()
			}
		}
	}()

	go wander(ctx, sess, w.UserID, bounds, logger)

	if err := sess.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatalf("session: %v", err)
	}
}

func awaitWelcome(ctx context.Context, sub *ws.Subscription, authErr chan error) (protocol.WelcomeMsg, error) {
	deadline := time.After(15 * time.Second)
	for {
		if w := sub.Welcome(); w.UserID != "" {
			return w, nil
		}
		select {
		case <-ctx.Done():
			return protocol.WelcomeMsg{}, ctx.Err()
		case err := <-authErr:
			return protocol.WelcomeMsg{}, err
		case <-deadline:
			return protocol.WelcomeMsg{}, fmt.Errorf("no WELCOME within 15s")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// wander posts a tweet, then periodically drags it around and likes random
// items, exercising the optimistic pipeline end to end.
func wander(ctx context.Context, sess *session.Session, userID string, bounds board.Bounds, logger *log.Logger) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	var myItem string
	sess.Do(func() {
		x := r.Float64() * bounds.Size
		y := r.Float64() * bounds.Size
		corrID := sess.Create(fmt.Sprintf("boardbot was here at %s", time.Now().Format(time.RFC3339)), x, y)
		logger.Printf("posted corr_id=%s at (%.0f, %.0f)", corrID, x, y)
	})

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		sess.Do(func() {
			items := sess.Store().Items()
			if len(items) == 0 {
				return
			}

			if myItem == "" {
				for _, it := range items {
					if !it.Pending && it.OwnerID == userID {
						myItem = it.ID
						break
					}
				}
			}

			switch r.Intn(3) {
			case 0:
				if myItem == "" {
					return
				}
				if !sess.StartDrag(myItem, 100, 100, 1.0) {
					return
				}
				dx := r.Float64()*200 - 100
				dy := r.Float64()*200 - 100
				sess.MoveDrag(100+dx, 100+dy)
				sess.EndDrag(100+dx, 100+dy, false)
			case 1:
				it := items[r.Intn(len(items))]
				sess.ToggleLike(it.ID)
			default:
				// Let the board breathe.
			}
		})
	}
}
