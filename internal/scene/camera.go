package scene

import "math"

// Camera maps between screen pixels and world units using a "cover" fit:
// the world is scaled uniformly until it fills the viewport and is centred,
// so one axis may overflow but there are never empty bars.
type Camera struct {
	Scale   float64 `json:"scale"`
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	ViewW   float64 `json:"view_w"`
	ViewH   float64 `json:"view_h"`
}

// NewCamera returns a camera fitted to a viewport the size of the world.
func NewCamera() *Camera {
	c := &Camera{}
	c.FitToScreen(WorldWidth, WorldHeight)
	return c
}

// FitToScreen recomputes scale and origin for a viewport. Call it on every
// resize. Non-positive dimensions are ignored.
func (c *Camera) FitToScreen(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	c.ViewW, c.ViewH = w, h
	c.Scale = math.Max(w/WorldWidth, h/WorldHeight)
	c.OriginX = (w - WorldWidth*c.Scale) / 2
	c.OriginY = (h - WorldHeight*c.Scale) / 2
}

// ScreenToWorld converts a screen point to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) Position {
	return Position{
		X: (sx - c.OriginX) / c.Scale,
		Y: (sy - c.OriginY) / c.Scale,
	}
}

// WorldToScreen converts a world point to screen coordinates.
func (c *Camera) WorldToScreen(p Position) (float64, float64) {
	return p.X*c.Scale + c.OriginX, p.Y*c.Scale + c.OriginY
}
