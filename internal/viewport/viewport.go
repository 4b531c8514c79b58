// Package viewport owns the coordinate transform between screen space
// (pixels in the rendering surface) and board space (the logical canvas).
// It is single-owner state, mutated only by the surface presenting a board.
package viewport

import (
	"time"

	"tweetwall.live/internal/board"
	"tweetwall.live/internal/tuning"
)

type Viewport struct {
	Scale  float64
	Offset board.Vec2

	// Visible surface size in pixels; set on mount and on resize.
	Width  float64
	Height float64

	zoom tuning.Zoom
	anim *resetAnim
}

type resetAnim struct {
	start     time.Time
	duration  time.Duration
	fromScale float64
}

func New(z tuning.Zoom, width, height float64) *Viewport {
	return &Viewport{Scale: 1.0, Width: width, Height: height, zoom: z}
}

// Init centers the board in the visible viewport. Called on mount.
func (v *Viewport) Init(boardSize float64) {
	v.Scale = clamp(1.0, v.zoom.ScaleMin, v.zoom.ScaleMax)
	v.CenterOn(boardSize/2, boardSize/2)
}

func (v *Viewport) Resize(width, height float64) {
	v.Width = width
	v.Height = height
}

func (v *Viewport) ToBoard(sx, sy float64) (float64, float64) {
	return (sx - v.Offset.X) / v.Scale, (sy - v.Offset.Y) / v.Scale
}

func (v *Viewport) ToScreen(bx, by float64) (float64, float64) {
	return bx*v.Scale + v.Offset.X, by*v.Scale + v.Offset.Y
}

// ZoomAt changes scale by delta with the board point under (sx, sy) held
// fixed on screen. The cursor is converted to board space before the scale
// changes, then the offset is solved so the same board point maps back to
// the same screen point at the new scale. Scale is clamped before any
// offset math uses it.
func (v *Viewport) ZoomAt(sx, sy, delta float64) {
	bx, by := v.ToBoard(sx, sy)
	v.Scale = clamp(v.Scale+delta, v.zoom.ScaleMin, v.zoom.ScaleMax)
	v.Offset.X = sx - bx*v.Scale
	v.Offset.Y = sy - by*v.Scale
}

// Wheel maps a scroll wheel delta to an anchored zoom at the cursor.
// Wheel-up (negative delta in screen convention) zooms in.
func (v *Viewport) Wheel(sx, sy, wheelDelta float64) {
	v.ZoomAt(sx, sy, -wheelDelta*v.zoom.WheelFactor)
}

// ZoomStep applies one fixed zoom increment anchored at the viewport
// center. dir > 0 zooms in, dir < 0 zooms out.
func (v *Viewport) ZoomStep(dir int) {
	step := v.zoom.Step
	if dir < 0 {
		step = -step
	}
	v.ZoomAt(v.Width/2, v.Height/2, step)
}

// Pan translates the board. No bounds clamp: the board is conceptually
// infinite within its committable region.
func (v *Viewport) Pan(dx, dy float64) {
	v.Offset.X += dx
	v.Offset.Y += dy
}

// CenterOn sets the offset so the given board point maps to the viewport
// center.
func (v *Viewport) CenterOn(bx, by float64) {
	v.Offset.X = v.Width/2 - bx*v.Scale
	v.Offset.Y = v.Height/2 - by*v.Scale
}

// StartResetZoom begins the eased animation of scale back to 1.0.
func (v *Viewport) StartResetZoom(now time.Time) {
	v.anim = &resetAnim{
		start:     now,
		duration:  time.Duration(v.zoom.ResetMs) * time.Millisecond,
		fromScale: v.Scale,
	}
}

// StepAnimation advances the reset animation to now and reports whether it
// is still running. Each frame re-derives the offset through ZoomAt
// anchored at the viewport center, so the anchor-preserving invariant holds
// throughout the animation, not just at the endpoints.
func (v *Viewport) StepAnimation(now time.Time) bool {
	a := v.anim
	if a == nil {
		return false
	}
	t := 1.0
	if a.duration > 0 {
		t = float64(now.Sub(a.start)) / float64(a.duration)
		if t >= 1 {
			t = 1
		}
	}
	eased := easeOutCubic(t)
	target := a.fromScale + (1.0-a.fromScale)*eased
	v.ZoomAt(v.Width/2, v.Height/2, target-v.Scale)
	if t >= 1 {
		v.anim = nil
		return false
	}
	return true
}

func (v *Viewport) Animating() bool { return v.anim != nil }

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
