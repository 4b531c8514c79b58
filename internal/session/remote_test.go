package session

import (
	"testing"
	"time"

	"tweetwall.live/internal/protocol"
)

func createdEvent(id, corrID string, x, y float64) protocol.EventMsg {
	return protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemCreated,
		Item: &protocol.ItemWire{
			ID: id, CorrID: corrID, X: x, Y: y, Content: "hi",
			OwnerID: "U2", CreatedAtMs: 2000, UpdatedAtMs: 2000,
		},
	}
}

func TestRemoteCreateUpsert(t *testing.T) {
	fx := newFixture(t, RoleUser)
	fx.s.ApplyRemote(createdEvent("T1", "", 10, 20))
	if fx.s.store.Len() != 1 || fx.s.store.Get("T1") == nil {
		t.Fatalf("create not applied")
	}
	// Replay is a no-op merge, not a duplicate insert.
	fx.s.ApplyRemote(createdEvent("T1", "", 99, 99))
	if fx.s.store.Len() != 1 {
		t.Fatalf("duplicate insert on replay")
	}
	if got := fx.s.store.Get("T1").Pos; got.X != 10 {
		t.Fatalf("replay clobbered entry: %+v", got)
	}
}

func TestRemoteCreateResolvesOwnOptimistic(t *testing.T) {
	fx := newFixture(t, RoleUser)
	// Defer API completions so the realtime echo races the POST response.
	var deferred []result
	fx.s.exec = func(f func() result) { deferred = append(deferred, f()) }

	corr := fx.s.Create("mine", 5, 5)
	if fx.s.store.Len() != 1 || !fx.s.store.Items()[0].Pending {
		t.Fatalf("placeholder missing")
	}

	// Realtime delivers our own create first, under the server-assigned id.
	fx.s.ApplyRemote(createdEvent("T1", corr, 5, 5))
	if fx.s.store.Len() != 1 {
		t.Fatalf("echo duplicated the placeholder: %d items", fx.s.store.Len())
	}
	if it := fx.s.store.Get("T1"); it == nil || it.Pending {
		t.Fatalf("placeholder not resolved by echo")
	}

	// Now the POST response lands; still exactly one item.
	for _, r := range deferred {
		fx.s.apply(r)
	}
	if fx.s.store.Len() != 1 || fx.s.store.Get("T1") == nil {
		t.Fatalf("POST response duplicated the item: %d items", fx.s.store.Len())
	}
}

func TestTwoInFlightCreatesRaceRealtimeEcho(t *testing.T) {
	fx := newFixture(t, RoleUser)
	var deferred []result
	fx.s.exec = func(f func() result) { deferred = append(deferred, f()) }

	corrA := fx.s.Create("first", 5, 5)
	corrB := fx.s.Create("second", 50, 50)
	if fx.s.store.Len() != 2 {
		t.Fatalf("%d placeholders, want 2", fx.s.store.Len())
	}

	// The first create's realtime echo lands before either POST response.
	fx.s.ApplyRemote(createdEvent("T1", corrA, 5, 5))
	if fx.s.store.Get("T1") == nil {
		t.Fatalf("echo did not resolve the first placeholder")
	}
	if ph := fx.s.store.PendingByCorrID(corrB); ph == nil {
		t.Fatalf("echo for the first create consumed the second's placeholder")
	}

	// Both POST responses land afterwards. Each logical creation ends up
	// replaced, never duplicated and never lost.
	for _, r := range deferred {
		fx.s.apply(r)
	}
	if fx.s.store.Len() != 2 {
		t.Fatalf("%d items after reconciliation, want 2", fx.s.store.Len())
	}
	for _, id := range []string{"T1", "T2"} {
		it := fx.s.store.Get(id)
		if it == nil || it.Pending {
			t.Fatalf("item %s missing or still pending: %+v", id, it)
		}
	}
	if fx.s.store.Get("T2").Content != "second" {
		t.Fatalf("second create resolved to the wrong placeholder")
	}
}

func TestRemoteUpdateShallowMerge(t *testing.T) {
	fx := newFixture(t, RoleUser)
	it := fx.seed("T1", 10, 10, "U2", false)
	// A like applied locally in between.
	it.SetLiked("U1", true)

	x, y := 300.0, 400.0
	ev := protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemUpdated, ItemID: "T1",
		X: &x, Y: &y, UpdatedAtMs: fx.now.Add(time.Second).UnixMilli(),
	}
	fx.s.ApplyRemote(ev)
	if got := it.Pos; got.X != 300 || got.Y != 400 {
		t.Fatalf("position not merged: %+v", got)
	}
	if !it.LikedByUser("U1") {
		t.Fatalf("position-only event clobbered local like")
	}

	// Idempotent: replay changes nothing.
	digest := fx.s.store.Digest()
	fx.s.ApplyRemote(ev)
	if fx.s.store.Digest() != digest {
		t.Fatalf("replay changed state")
	}
}

func TestRemoteUpdateLikeSetOnly(t *testing.T) {
	fx := newFixture(t, RoleUser)
	it := fx.seed("T1", 10, 10, "U2", false)

	ev := protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemUpdated, ItemID: "T1",
		LikedBy: []string{"U2", "U3"}, UpdatedAtMs: fx.now.Add(time.Second).UnixMilli(),
	}
	fx.s.ApplyRemote(ev)
	if it.LikeCount() != 2 {
		t.Fatalf("like set not merged: %d", it.LikeCount())
	}
	if it.Pos.X != 10 {
		t.Fatalf("like-only event moved the item")
	}
}

func TestRemoteUpdateMalformedDropped(t *testing.T) {
	fx := newFixture(t, RoleUser)
	fx.seed("T1", 10, 10, "U2", false)
	digest := fx.s.store.Digest()

	x := 99.0
	fx.s.ApplyRemote(protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemUpdated, X: &x,
	})
	fx.s.ApplyRemote(protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemCreated,
	})
	if fx.s.store.Digest() != digest {
		t.Fatalf("malformed events changed state")
	}
}

func TestRemoteDeleteAndUnknownNoop(t *testing.T) {
	fx := newFixture(t, RoleUser)
	fx.seed("T1", 10, 10, "U2", false)

	del := protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemDeleted, ItemID: "T1",
	}
	fx.s.ApplyRemote(del)
	if fx.s.store.Len() != 0 {
		t.Fatalf("delete not applied")
	}
	// Already removed locally: silent no-op.
	fx.s.ApplyRemote(del)
	fx.s.ApplyRemote(protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemDeleted, ItemID: "T404",
	})
	if fx.s.store.Len() != 0 {
		t.Fatalf("noop deletes changed state")
	}
}

func TestRemoteDeleteCancelsActiveDrag(t *testing.T) {
	fx := newFixture(t, RoleUser)
	fx.seed("T1", 100, 100, "U1", false)

	fx.s.StartDrag("T1", 0, 0, 1.0)
	fx.s.MoveDrag(50, 50)
	fx.s.ApplyRemote(protocol.EventMsg{
		Type: protocol.TypeEvent, ProtocolVersion: protocol.Version,
		Name: protocol.EventItemDeleted, ItemID: "T1",
	})

	if _, ok := fx.s.DragPos("T1"); ok {
		t.Fatalf("drag survived remote delete")
	}
	// A drop after the delete must not resurrect anything.
	fx.s.EndDrag(60, 60, false)
	fx.advance(time.Second)
	if len(fx.fa.moves) != 0 {
		t.Fatalf("commit shipped for deleted item")
	}
	if fx.s.store.Len() != 0 {
		t.Fatalf("deleted item resurrected")
	}
}
