package scene

import "testing"

func TestResolveSpriteBeatsFurniture(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	f := NewFurniture(FurnitureConfig{ID: "kv-1", Type: "kv", Position: Position{X: 110, Y: 110}})
	r := NewResolver([]*Worker{w}, []*Furniture{f})

	sel := r.Resolve(Position{X: 108, Y: 108})
	if sel == nil || sel.Kind != KindWorker || sel.ID != "a" {
		t.Fatalf("overlap resolved to %+v, want worker a", sel)
	}
	sel = r.Resolve(Position{X: 141, Y: 141})
	if sel == nil || sel.Kind != KindInfra {
		t.Fatalf("furniture-only point resolved to %+v", sel)
	}
	if sel := r.Resolve(Position{X: 600, Y: 600}); sel != nil {
		t.Fatalf("empty floor resolved to %+v", sel)
	}
}

func TestResolveNearestSprite(t *testing.T) {
	rnd, timers := &stubRandom{}, &manualTimers{}
	a := newTestWorker("a", Position{X: 100, Y: 100}, rnd, timers)
	b := newTestWorker("b", Position{X: 140, Y: 100}, rnd, timers)
	r := NewResolver([]*Worker{a, b}, nil)

	if sel := r.Resolve(Position{X: 125, Y: 100}); sel == nil || sel.ID != "b" {
		t.Fatalf("resolved %+v, want b", sel)
	}
	if sel := r.Resolve(Position{X: 115, Y: 100}); sel == nil || sel.ID != "a" {
		t.Fatalf("resolved %+v, want a", sel)
	}
	// Equidistant: the first registered sprite keeps the tie.
	if sel := r.Resolve(Position{X: 120, Y: 100}); sel == nil || sel.ID != "a" {
		t.Fatalf("tie resolved to %+v, want a", sel)
	}
}

func TestResolvePaddingEdge(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	r := NewResolver([]*Worker{w}, nil)
	edge := SpriteSize/2 + HitPadding
	if r.Resolve(Position{X: 100 + edge, Y: 100}) == nil {
		t.Error("point on the padded edge missed")
	}
	if r.Resolve(Position{X: 100 + edge + 0.5, Y: 100}) != nil {
		t.Error("point past the padded edge hit")
	}
}

func TestResolveFurnitureFirstMatch(t *testing.T) {
	f1 := NewFurniture(FurnitureConfig{ID: "one", Position: Position{X: 100, Y: 100}})
	f2 := NewFurniture(FurnitureConfig{ID: "two", Position: Position{X: 120, Y: 100}})
	r := NewResolver(nil, []*Furniture{f1, f2})
	if sel := r.Resolve(Position{X: 118, Y: 100}); sel == nil || sel.ID != "one" {
		t.Fatalf("resolved %+v, want first registered prop", sel)
	}
}

func TestPickAcknowledges(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	f := NewFurniture(FurnitureConfig{ID: "kv-1", Position: Position{X: 400, Y: 400}})
	r := NewResolver([]*Worker{w}, []*Furniture{f})

	r.Resolve(Position{X: 100, Y: 100})
	if text, _ := w.Bubble(); text != "" {
		t.Fatalf("Resolve had a side effect: %q", text)
	}
	r.Pick(Position{X: 100, Y: 100})
	if text, _ := w.Bubble(); text == "" {
		t.Error("Pick on a worker did not acknowledge")
	}

	r.Pick(Position{X: 400, Y: 400})
	f.Tick()
	if f.Scale() <= 1 {
		t.Errorf("scale after pulse = %v, want > 1", f.Scale())
	}
}

func TestFurnitureScaleSettles(t *testing.T) {
	f := NewFurniture(FurnitureConfig{ID: "kv-1", Position: Position{X: 400, Y: 400}})
	f.SetHover(true)
	for i := 0; i < 200; i++ {
		f.Tick()
	}
	if d := f.Scale() - hoverScale; d > 1e-6 || d < -1e-6 {
		t.Fatalf("hover scale = %v, want %v", f.Scale(), hoverScale)
	}
	f.SetHover(false)
	for i := 0; i < 200; i++ {
		f.Tick()
	}
	if d := f.Scale() - 1; d > 1e-6 || d < -1e-6 {
		t.Fatalf("rest scale = %v, want 1", f.Scale())
	}
}
