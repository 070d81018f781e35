package scene

// Layer orders what a surface draws, back to front.
type Layer int

const (
	LayerFurniture Layer = iota
	LayerWorkers
	LayerBubbles
)

// Surface is the drawing target. The scene only ever mutates placement,
// frames, scale and bubbles; the surface owns the actual draw calls.
type Surface interface {
	Place(layer Layer, id string, p Position)
	SetFrame(id, frame string)
	SetScale(id string, scale float64)
	SetBubble(id, text string, alpha float64)
	SetVisible(id string, visible bool)
}

// NopSurface discards all drawing, for headless scenes.
type NopSurface struct{}

func (NopSurface) Place(Layer, string, Position) {}
func (NopSurface) SetFrame(string, string) {}
func (NopSurface) SetScale(string, float64) {}
func (NopSurface) SetBubble(string, string, float64) {}
func (NopSurface) SetVisible(string, bool) {}
