package scene

const (
	FurnitureSize = 48.0

	hoverScale = 1.06
	pulseScale = 1.12
	pulseTicks = 9 // ~150ms at 60fps
	scaleLerp  = 0.15
)

// FurnitureConfig is the static description of an infrastructure prop.
type FurnitureConfig struct {
	ID       string
	Type     string
	Name     string
	Position Position
	Color    string
}

// Furniture is an infrastructure prop. It never moves; its visual state
// follows the workers connected to it and the pointer.
type Furniture struct {
	cfg FurnitureConfig

	active    bool
	hovered   bool
	scale     float64
	pulse     int
	destroyed bool
}

// NewFurniture creates an inactive prop at its configured position.
func NewFurniture(cfg FurnitureConfig) *Furniture {
	return &Furniture{cfg: cfg, scale: 1}
}

func (f *Furniture) ID() string { return f.cfg.ID }
func (f *Furniture) Type() string { return f.cfg.Type }
func (f *Furniture) Position() Position { return f.cfg.Position }
func (f *Furniture) Active() bool { return f.active }
func (f *Furniture) Hovered() bool { return f.hovered }
func (f *Furniture) Scale() float64 { return f.scale }

// Bounds is the prop's unpadded hit box.
func (f *Furniture) Bounds() Rect { return CenteredRect(f.cfg.Position, FurnitureSize) }

// SetActive marks whether any connected worker is working.
func (f *Furniture) SetActive(active bool) { f.active = active }

// SetHover updates pointer hover state.
func (f *Furniture) SetHover(h bool) { f.hovered = h }

// Pulse plays the short click acknowledgment.
func (f *Furniture) Pulse() { f.pulse = pulseTicks }

// Destroy releases the prop.
func (f *Furniture) Destroy() { f.destroyed = true }

// Tick eases the scale toward its target.
func (f *Furniture) Tick() {
	if f.destroyed {
		return
	}
	target := 1.0
	switch {
	case f.pulse > 0:
		target = pulseScale
		f.pulse--
	case f.hovered:
		target = hoverScale
	}
	f.scale += (target - f.scale) * scaleLerp
}
