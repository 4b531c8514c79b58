package board

import (
	"math"
	"time"
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Item is a single note placed on a board. Ownership may be recorded
// redundantly (id and display name); resolution to a single effective owner
// happens in the session layer.
type Item struct {
	ID        string
	CorrID    string
	Pending   bool
	Pos       Vec2
	Content   string
	OwnerID   string
	OwnerName string
	ParentID  string
	Pinned    bool
	LikedBy   map[string]struct{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (it *Item) LikeCount() int { return len(it.LikedBy) }

func (it *Item) LikedByUser(userID string) bool {
	_, ok := it.LikedBy[userID]
	return ok
}

// SetLiked flips the membership of userID in the like set.
func (it *Item) SetLiked(userID string, liked bool) {
	if liked {
		if it.LikedBy == nil {
			it.LikedBy = make(map[string]struct{})
		}
		it.LikedBy[userID] = struct{}{}
		return
	}
	delete(it.LikedBy, userID)
}

// Bounds describes the committable region of a board. Items occupy a
// footprint of ItemW x ItemH, so the top-left position of an item may not
// exceed Size minus that footprint.
type Bounds struct {
	Size  float64
	ItemW float64
	ItemH float64
}

// Clamp confines a position to [0, Size-ItemW] x [0, Size-ItemH].
func (b Bounds) Clamp(p Vec2) Vec2 {
	maxX := b.Size - b.ItemW
	maxY := b.Size - b.ItemH
	if p.X < 0 {
		p.X = 0
	} else if p.X > maxX {
		p.X = maxX
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > maxY {
		p.Y = maxY
	}
	return p
}
