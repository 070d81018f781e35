package terminal

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/nidhogg/spritedash/internal/activity"
	"github.com/nidhogg/spritedash/internal/registry"
	"github.com/nidhogg/spritedash/internal/scene"
	"go.uber.org/zap"
)

// heldTimers never fires, so nothing moves between the test's own ticks.
type heldTimers struct{}

func (heldTimers) AfterFunc(time.Duration, func()) {}

func newTestApp(t *testing.T) (*App, tcell.SimulationScreen) {
	t.Helper()
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(160, 48)
	t.Cleanup(screen.Fini)

	surface := NewSurface()
	sc := scene.New(reg, scene.Options{
		Random:  scene.NewRandom(1),
		Timers:  heldTimers{},
		Surface: surface,
	}, zap.NewNop())
	t.Cleanup(sc.Close)
	sc.Tick()

	return NewApp(screen, sc, surface, activity.NewFeed(0), zap.NewNop()), screen
}

func workerView(t *testing.T, a *App, id string) scene.WorkerView {
	t.Helper()
	for _, w := range a.scene.Snapshot().Workers {
		if w.ID == id {
			return w
		}
	}
	t.Fatalf("worker %s not in scene", id)
	return scene.WorkerView{}
}

func rowText(screen tcell.SimulationScreen, y, width int) string {
	var b strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := screen.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func TestDrawPlacesManager(t *testing.T) {
	a, screen := newTestApp(t)
	a.Draw()

	mgr := workerView(t, a, "sonne-manager")
	col, row := a.toCell(a.scene.Camera(), mgr.Position)
	if r, _, _, _ := screen.GetContent(col, row); r != '@' {
		t.Fatalf("expected manager glyph at (%d,%d), got %q", col, row, r)
	}
	if footer := rowText(screen, a.rows-2, a.cols); !strings.Contains(footer, "phase: idle") {
		t.Errorf("unexpected footer %q", footer)
	}
}

func TestClickSelectsWorker(t *testing.T) {
	a, screen := newTestApp(t)
	w := workerView(t, a, "oncstrata-worker")
	col, row := a.toCell(a.scene.Camera(), w.Position)

	if !a.HandleEvent(tcell.NewEventMouse(col, row, tcell.Button1, tcell.ModNone)) {
		t.Fatal("click should not quit")
	}
	sel := a.scene.Selection()
	if sel == nil || sel.ID != "oncstrata-worker" {
		t.Fatalf("expected oncstrata-worker selected, got %+v", sel)
	}

	// Holding the button does not click again.
	a.HandleEvent(tcell.NewEventMouse(col, row, tcell.Button1, tcell.ModNone))
	if a.scene.Selection() == nil {
		t.Fatal("drag should not toggle the selection")
	}

	a.Draw()
	if footer := rowText(screen, a.rows-2, a.cols); !strings.Contains(footer, "selected: worker oncstrata-worker") {
		t.Errorf("footer missing selection: %q", footer)
	}

	a.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	if a.scene.Selection() != nil {
		t.Error("escape should clear the selection")
	}
}

func TestKeyForcesChat(t *testing.T) {
	a, _ := newTestApp(t)
	if !a.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModNone)) {
		t.Fatal("'c' should not quit")
	}
	if !a.scene.Busy() {
		t.Error("expected a conversation to start")
	}
}

func TestQuitKeys(t *testing.T) {
	a, _ := newTestApp(t)
	if a.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("'q' should quit")
	}
	if a.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)) {
		t.Error("ctrl-c should quit")
	}
}

func TestSurfaceOrder(t *testing.T) {
	s := NewSurface()
	s.Place(scene.LayerWorkers, "b", scene.Position{X: 1, Y: 20})
	s.Place(scene.LayerWorkers, "a", scene.Position{X: 1, Y: 10})
	s.Place(scene.LayerFurniture, "desk", scene.Position{X: 1, Y: 500})
	s.SetVisible("b", false)

	got := s.Sprites()
	if len(got) != 3 {
		t.Fatalf("expected 3 sprites, got %d", len(got))
	}
	if got[0].ID != "desk" || got[1].ID != "a" || got[2].ID != "b" {
		t.Errorf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[2].Visible {
		t.Error("b should be hidden")
	}
}
