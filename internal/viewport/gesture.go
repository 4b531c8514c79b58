package viewport

import "math"

// Recognizer separates clicks from pans on empty board space. A pointer
// sequence that never strays beyond the pixel threshold is a click and
// yields the board coordinate for the creation popup; once the threshold is
// crossed the sequence is a pan and the popup is suppressed for good.
type Recognizer struct {
	thresholdPx float64

	active bool
	panned bool
	downX  float64
	downY  float64
	lastX  float64
	lastY  float64
}

func NewRecognizer(thresholdPx float64) *Recognizer {
	return &Recognizer{thresholdPx: thresholdPx}
}

func (r *Recognizer) Down(sx, sy float64) {
	r.active = true
	r.panned = false
	r.downX, r.downY = sx, sy
	r.lastX, r.lastY = sx, sy
}

// Move returns the pan delta to apply since the previous event. The delta
// is zero until the movement threshold is crossed.
func (r *Recognizer) Move(sx, sy float64) (dx, dy float64) {
	if !r.active {
		return 0, 0
	}
	if !r.panned {
		if math.Hypot(sx-r.downX, sy-r.downY) <= r.thresholdPx {
			return 0, 0
		}
		r.panned = true
		// First recognized pan frame carries the accumulated movement.
		dx, dy = sx-r.downX, sy-r.downY
		r.lastX, r.lastY = sx, sy
		return dx, dy
	}
	dx, dy = sx-r.lastX, sy-r.lastY
	r.lastX, r.lastY = sx, sy
	return dx, dy
}

// Up ends the sequence. click is true only when the pointer never crossed
// the threshold; sx, sy are the release coordinates.
func (r *Recognizer) Up(sx, sy float64) (click bool) {
	if !r.active {
		return false
	}
	r.active = false
	return !r.panned
}
