package terminal

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/nidhogg/spritedash/internal/activity"
	"github.com/nidhogg/spritedash/internal/registry"
	"github.com/nidhogg/spritedash/internal/scene"
	"go.uber.org/zap"
)

// A terminal cell is about twice as tall as it is wide, so the scene is fit
// into a viewport of cols x rows*cellAspect units.
const cellAspect = 2.0

const footerRows = 2

var (
	styleIdle      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleWorking   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleError     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleCelebrate = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	stylePropOff   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	stylePropOn    = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleBubble    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	styleBubbleDim = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleFooter    = tcell.StyleDefault.Foreground(tcell.ColorSilver)
)

// App draws the office into a terminal and feeds mouse and keyboard input
// back into the scene. The scene is ticked elsewhere.
type App struct {
	screen  tcell.Screen
	scene   *scene.Scene
	surface *Surface
	feed    *activity.Feed
	labels  map[string]string
	cols    int
	rows    int
	pressed bool
	logger  *zap.Logger
}

// NewApp creates a terminal view. screen must already be initialised; feed
// may be nil.
func NewApp(screen tcell.Screen, sc *scene.Scene, surface *Surface, feed *activity.Feed, logger *zap.Logger) *App {
	a := &App{
		screen:  screen,
		scene:   sc,
		surface: surface,
		feed:    feed,
		labels:  make(map[string]string),
		logger:  logger,
	}
	snap := sc.Snapshot()
	for _, w := range snap.Workers {
		label := "?"
		if r := []rune(w.Name); len(r) > 0 {
			label = string(r[0])
		}
		if w.Manager {
			label = "@"
		}
		a.labels[w.ID] = label
	}
	for _, f := range snap.Furniture {
		a.labels[f.ID] = "[" + registry.InfraTypes[f.Type] + "]"
	}
	a.Resize()
	return a
}

// Resize refits the scene camera to the terminal.
func (a *App) Resize() {
	a.cols, a.rows = a.screen.Size()
	h := a.rows - footerRows
	if h < 1 {
		h = 1
	}
	a.scene.Resize(float64(a.cols), float64(h)*cellAspect)
}

func (a *App) toCell(cam scene.Camera, p scene.Position) (int, int) {
	sx, sy := cam.WorldToScreen(p)
	return int(math.Floor(sx)), int(math.Floor(sy / cellAspect))
}

// Run polls terminal events and redraws at the given interval until the
// user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context, interval time.Duration) error {
	a.screen.EnableMouse()
	defer a.screen.DisableMouse()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	a.Draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-eventChan:
			if !ok {
				return nil
			}
			if !a.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			a.Draw()
		}
	}
}

// HandleEvent applies one terminal event. It returns false when the user
// asked to quit.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyCtrlC:
			return false
		case tcell.KeyEscape:
			a.scene.ClearSelection()
		case tcell.KeyRune:
			if ev.Rune() == 'q' {
				return false
			}
			act := a.scene.Key(ev.Rune(), false)
			a.logAction(act)
		}

	case *tcell.EventMouse:
		x, y := ev.Position()
		sx, sy := float64(x)+0.5, (float64(y)+0.5)*cellAspect
		a.scene.Hover(sx, sy)
		down := ev.Buttons()&tcell.Button1 != 0
		if down && !a.pressed {
			act := a.scene.Click(sx, sy)
			a.logAction(act)
		}
		a.pressed = down

	case *tcell.EventResize:
		a.screen.Sync()
		a.Resize()
	}
	return true
}

func (a *App) logAction(act scene.Action) {
	if act.Kind == scene.ActionNone {
		return
	}
	a.logger.Debug("terminal action",
		zap.String("kind", string(act.Kind)),
		zap.String("id", act.ID),
		zap.Bool("accepted", act.Accepted))
}

// Draw renders one frame.
func (a *App) Draw() {
	a.screen.Clear()
	snap := a.scene.Snapshot()
	display := make(map[string]scene.Status, len(snap.Workers))
	for _, w := range snap.Workers {
		display[w.ID] = w.Display
	}
	sel := snap.Selection

	for _, sp := range a.surface.Sprites() {
		if !sp.Visible {
			continue
		}
		col, row := a.toCell(snap.Camera, sp.Pos)
		label := a.labels[sp.ID]
		switch sp.Layer {
		case scene.LayerFurniture:
			style := stylePropOff
			if strings.HasSuffix(sp.Frame, "/on") {
				style = stylePropOn
			}
			if sp.Scale > 1 {
				style = style.Reverse(true)
			}
			a.text(col-len(label)/2, row, label, style)
		case scene.LayerWorkers:
			style := statusStyle(display[sp.ID])
			if sel != nil && sel.ID == sp.ID {
				style = style.Underline(true).Reverse(true)
			}
			a.text(col, row, label, style)
			if sp.Bubble != "" && sp.Alpha > 0 {
				bs := styleBubble
				if sp.Alpha < 0.5 {
					bs = styleBubbleDim
				}
				text := " " + sp.Bubble + " "
				a.text(col-len([]rune(text))/2, row-1, text, bs)
			}
		}
	}
	a.drawFooter(snap)
	a.screen.Show()
}

func (a *App) drawFooter(snap scene.Snapshot) {
	status := "phase: " + snap.Phase
	if snap.Selection != nil {
		status += fmt.Sprintf("  selected: %s %s", snap.Selection.Kind, snap.Selection.ID)
	}
	if a.feed != nil {
		if recent := a.feed.Recent(); len(recent) > 0 {
			status += "  last: " + recent[len(recent)-1].Text
		}
	}
	a.text(0, a.rows-2, status, styleFooter)
	a.text(0, a.rows-1, "click select  double-click dispatch  c chat  1-9 dispatch  esc clear  q quit", styleFooter)
}

func (a *App) text(x, y int, s string, style tcell.Style) {
	if y < 0 || y >= a.rows {
		return
	}
	for _, r := range s {
		if x >= 0 && x < a.cols {
			a.screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

func statusStyle(st scene.Status) tcell.Style {
	switch st {
	case scene.StatusError:
		return styleError
	case scene.StatusWorking:
		return styleWorking
	case scene.StatusCelebrate:
		return styleCelebrate
	}
	return styleIdle
}
