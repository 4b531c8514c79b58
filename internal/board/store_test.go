package board

import (
	"testing"
	"time"
)

func item(id string, x, y float64, t time.Time) *Item {
	return &Item{ID: id, Pos: Vec2{x, y}, CreatedAt: t, UpdatedAt: t}
}

func TestUpsertIdempotent(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	first := s.Upsert(item("T1", 10, 20, t0))
	second := s.Upsert(item("T1", 99, 99, t0))
	if s.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", s.Len())
	}
	if first != second {
		t.Fatalf("second upsert must return the existing entry")
	}
	if got := s.Get("T1").Pos; got.X != 10 || got.Y != 20 {
		t.Fatalf("existing entry clobbered: %+v", got)
	}
}

func TestMergeShallow(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	it := item("T1", 10, 20, t0)
	it.SetLiked("U9", true)
	s.Upsert(it)

	// Position-only event must not clobber the like applied locally.
	pos := Vec2{300, 400}
	if !s.Merge(Patch{ID: "T1", Pos: &pos, UpdatedAt: t0.Add(time.Second)}) {
		t.Fatalf("merge rejected")
	}
	got := s.Get("T1")
	if got.Pos != pos {
		t.Fatalf("pos not merged: %+v", got.Pos)
	}
	if !got.LikedByUser("U9") {
		t.Fatalf("like lost by position-only merge")
	}

	// Like-set-only event must not clobber the new position.
	if !s.Merge(Patch{ID: "T1", LikedBy: []string{"U9", "U2"}, UpdatedAt: t0.Add(2 * time.Second)}) {
		t.Fatalf("merge rejected")
	}
	got = s.Get("T1")
	if got.Pos != pos || got.LikeCount() != 2 {
		t.Fatalf("shallow merge broke: pos=%+v likes=%d", got.Pos, got.LikeCount())
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	s.Upsert(item("T1", 0, 0, t0))
	pos := Vec2{5, 6}
	p := Patch{ID: "T1", Pos: &pos, LikedBy: []string{"U1"}, UpdatedAt: t0.Add(time.Second)}
	s.Merge(p)
	before := s.Digest()
	s.Merge(p)
	if s.Digest() != before {
		t.Fatalf("replaying the same event changed state")
	}
}

func TestMergeIgnoresStaleAndUnknown(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	s.Upsert(item("T1", 1, 1, t0))

	old := Vec2{77, 77}
	if s.Merge(Patch{ID: "T1", Pos: &old, UpdatedAt: t0.Add(-time.Minute)}) {
		t.Fatalf("stale event applied")
	}
	if s.Merge(Patch{ID: "T404", Pos: &old}) {
		t.Fatalf("unknown id applied")
	}
	if s.Merge(Patch{Pos: &old}) {
		t.Fatalf("missing id applied")
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s := NewStore()
	if _, ok := s.Remove("nope"); ok {
		t.Fatalf("remove of unknown id reported success")
	}
	if s.Len() != 0 {
		t.Fatalf("store changed")
	}
}

func TestOrderRecomputedFromTimestamps(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	// Arrival order deliberately newest-first.
	s.Upsert(item("T3", 0, 0, t0.Add(3*time.Second)))
	s.Upsert(item("T1", 0, 0, t0.Add(1*time.Second)))
	s.Upsert(item("T2", 0, 0, t0.Add(2*time.Second)))

	want := []string{"T1", "T2", "T3"}
	for i, it := range s.Items() {
		if it.ID != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, it.ID, want[i])
		}
	}
}

func TestResolvePendingByCorrID(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	ph := item("local-abc", 10, 10, t0)
	ph.Pending = true
	ph.CorrID = "abc"
	s.Upsert(ph)

	auth := item("T9", 10, 10, t0)
	got := s.ResolvePending("abc", auth)
	if s.Len() != 1 {
		t.Fatalf("expected 1 item after resolve, got %d", s.Len())
	}
	if got.ID != "T9" || got.Pending {
		t.Fatalf("placeholder not replaced: %+v", got)
	}
	if s.Get("local-abc") != nil {
		t.Fatalf("placeholder id still present")
	}
}

func TestResolvePendingAfterRemoteCreateLanded(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	ph := item("local-abc", 10, 10, t0)
	ph.Pending = true
	ph.CorrID = "abc"
	s.Upsert(ph)

	// The realtime channel delivered the authoritative item first.
	s.Upsert(item("T9", 10, 10, t0))
	got := s.ResolvePending("abc", item("T9", 10, 10, t0))
	if s.Len() != 1 {
		t.Fatalf("duplicate after create raced realtime event: %d items", s.Len())
	}
	if got.ID != "T9" {
		t.Fatalf("resolved to %s", got.ID)
	}
}

func TestResolvePendingNeverTakesAnotherCreatesPlaceholder(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	for _, corr := range []string{"c1", "c2"} {
		ph := item("local-"+corr, 10, 10, t0)
		ph.Pending = true
		ph.CorrID = corr
		s.Upsert(ph)
	}

	// First create confirmed via the realtime channel.
	s.ResolvePending("c1", item("T1", 10, 10, t0))
	// Its POST response lands afterwards and resolves the same corrID.
	s.ResolvePending("c1", item("T1", 10, 10, t0))

	if s.Len() != 2 {
		t.Fatalf("%d items, want T1 plus the still-pending second create", s.Len())
	}
	if ph := s.Get("local-c2"); ph == nil || !ph.Pending {
		t.Fatalf("second create's placeholder was taken: %+v", ph)
	}

	// A failed create whose placeholder is already resolved must not drop
	// the other create's placeholder either.
	if s.DropPending("c1") {
		t.Fatalf("dropped a placeholder for an already-resolved corrID")
	}
	if s.Get("local-c2") == nil {
		t.Fatalf("second create's placeholder removed by unrelated drop")
	}
}

func TestDropPendingRestoresLength(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)
	s.Upsert(item("T1", 0, 0, t0))
	before := s.Len()

	ph := item("local-x", 5, 5, t0.Add(time.Second))
	ph.Pending = true
	ph.CorrID = "x"
	s.Upsert(ph)
	if !s.DropPending("x") {
		t.Fatalf("placeholder not dropped")
	}
	if s.Len() != before {
		t.Fatalf("length %d, want %d", s.Len(), before)
	}
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{Size: 10000, ItemW: 260, ItemH: 180}
	cases := []struct {
		in, want Vec2
	}{
		{Vec2{-5, -5}, Vec2{0, 0}},
		{Vec2{500, 600}, Vec2{500, 600}},
		{Vec2{9990 + 50, 9990 + 50}, Vec2{10000 - 260, 10000 - 180}},
	}
	for _, c := range cases {
		if got := b.Clamp(c.in); got != c.want {
			t.Fatalf("clamp(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}
