package terminal

import (
	"sort"
	"sync"

	"github.com/nidhogg/spritedash/internal/scene"
)

// Sprite is the drawable state of one scene entity.
type Sprite struct {
	ID      string
	Layer   scene.Layer
	Pos     scene.Position
	Frame   string
	Scale   float64
	Bubble  string
	Alpha   float64
	Visible bool
}

// Surface records what the scene asks to draw so a terminal frame can be
// rendered from it later.
type Surface struct {
	mu      sync.Mutex
	sprites map[string]*Sprite
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{sprites: make(map[string]*Sprite)}
}

func (s *Surface) get(id string) *Sprite {
	sp, ok := s.sprites[id]
	if !ok {
		sp = &Sprite{ID: id, Scale: 1, Visible: true}
		s.sprites[id] = sp
	}
	return sp
}

func (s *Surface) Place(layer scene.Layer, id string, p scene.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.get(id)
	sp.Layer = layer
	sp.Pos = p
}

func (s *Surface) SetFrame(id, frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).Frame = frame
}

func (s *Surface) SetScale(id string, scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).Scale = scale
}

func (s *Surface) SetBubble(id, text string, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.get(id)
	sp.Bubble = text
	sp.Alpha = alpha
}

func (s *Surface) SetVisible(id string, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).Visible = visible
}

// Sprites returns copies in draw order: by layer, then top to bottom.
func (s *Surface) Sprites() []Sprite {
	s.mu.Lock()
	out := make([]Sprite, 0, len(s.sprites))
	for _, sp := range s.sprites {
		out = append(out, *sp)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		if out[i].Pos.Y != out[j].Pos.Y {
			return out[i].Pos.Y < out[j].Pos.Y
		}
		return out[i].ID < out[j].ID
	})
	return out
}
