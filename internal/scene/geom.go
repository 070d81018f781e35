package scene

import "math"

// World dimensions in logical units. Everything in the scene lives in this
// space regardless of the viewport it is drawn into.
const (
	WorldWidth  = 1280.0
	WorldHeight = 720.0
)

// Vertical band that wandering and meeting points are kept inside, so agents
// never walk into the wall art or the server room.
const (
	SafeMinY = 70.0
	SafeMaxY = 410.0
)

// Position is a point in world space. It is a value type and is always
// copied when stored.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p offset by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// DistSq returns the squared distance between p and q.
func (p Position) DistSq(q Position) float64 {
	dx, dy := q.X-p.X, q.Y-p.Y
	return dx*dx + dy*dy
}

// Dist returns the straight-line distance between p and q.
func (p Position) Dist(q Position) float64 {
	return math.Sqrt(p.DistSq(q))
}

// Lerp interpolates between p and q by t in [0,1].
func (p Position) Lerp(q Position, t float64) Position {
	return Position{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// Midpoint returns the point halfway between p and q.
func Midpoint(p, q Position) Position {
	return p.Lerp(q, 0.5)
}

// Rect is an axis-aligned box in world space.
type Rect struct {
	X, Y, W, H float64
}

// CenteredRect returns a size×size box centred on p.
func CenteredRect(p Position, size float64) Rect {
	return Rect{X: p.X - size/2, Y: p.Y - size/2, W: size, H: size}
}

// Pad grows the box by n on every side.
func (r Rect) Pad(n float64) Rect {
	return Rect{X: r.X - n, Y: r.Y - n, W: r.W + 2*n, H: r.H + 2*n}
}

// Contains reports whether p lies inside the box, edges included.
func (r Rect) Contains(p Position) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the middle of the box.
func (r Rect) Center() Position {
	return Position{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Ease is the ease-in-out quadratic curve used for all agent movement.
func Ease(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
