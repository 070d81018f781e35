package scene

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nidhogg/spritedash/internal/registry"
	"github.com/nidhogg/spritedash/internal/status"
	"go.uber.org/zap"
)

// ErrUnknownWorker is returned for ids that are not in the registry.
var ErrUnknownWorker = errors.New("unknown worker")

// Options carries the scene's collaborators. Zero values pick real-time
// defaults and a headless surface.
type Options struct {
	Random  Random
	Timers  Timers
	Surface Surface
	Events  EventSink
	Now     func() time.Time
}

// Scene owns every agent in the office and serialises all access to them.
// One Tick advances workers, then furniture, then the choreographer, then
// pushes the result to the surface.
type Scene struct {
	mu sync.Mutex

	camera    *Camera
	workers   []*Worker
	byID      map[string]*Worker
	furniture []*Furniture
	connected map[string][]*Worker
	reported  map[string]Status
	choreo    *Choreographer
	resolver  *Resolver
	input     *InputRouter

	surface Surface
	sink    EventSink
	timers  Timers

	tick   uint64
	closed bool
	logger *zap.Logger
}

// New builds a scene from a validated registry.
func New(reg *registry.Registry, opts Options, logger *zap.Logger) *Scene {
	if opts.Random == nil {
		opts.Random = NewRandom(0)
	}
	if opts.Timers == nil {
		opts.Timers = WallTimers{}
	}
	if opts.Surface == nil {
		opts.Surface = NopSurface{}
	}
	if opts.Events == nil {
		opts.Events = nopSink{}
	}

	s := &Scene{
		camera:    NewCamera(),
		byID:      make(map[string]*Worker, len(reg.Workers)),
		connected: make(map[string][]*Worker),
		reported:  make(map[string]Status, len(reg.Workers)),
		surface:   opts.Surface,
		sink:      opts.Events,
		timers:    opts.Timers,
		logger:    logger,
	}

	for _, ri := range reg.Infra {
		s.furniture = append(s.furniture, NewFurniture(FurnitureConfig{
			ID:       ri.ID,
			Type:     ri.Type,
			Name:     ri.Name,
			Position: Position{X: ri.Position.X, Y: ri.Position.Y},
			Color:    ri.Color,
		}))
	}

	var shortcuts []string
	managerID := ""
	for _, rw := range reg.Workers {
		cfg := WorkerConfig{
			ID:        rw.ID,
			Name:      rw.Name,
			Character: rw.Character,
			Color:     rw.Color,
			Home:      Position{X: rw.Home.X, Y: rw.Home.Y},
			Manager:   rw.IsManager(),
			Frames:    make(map[Status][]string, len(rw.Frames)),
		}
		for st, frames := range rw.Frames {
			cfg.Frames[Status(st)] = frames
		}
		for _, id := range rw.ConnectedInfra {
			if inf, err := reg.InfraByID(id); err == nil {
				cfg.Patrol = append(cfg.Patrol, Position{X: inf.Position.X, Y: inf.Position.Y})
			}
		}
		w := NewWorker(cfg, opts.Random, s.deferred, logger)
		s.workers = append(s.workers, w)
		s.byID[w.ID()] = w
		s.reported[w.ID()] = w.Reported()
		for _, id := range rw.ConnectedInfra {
			s.connected[id] = append(s.connected[id], w)
		}
		if rw.IsManager() {
			managerID = rw.ID
		} else {
			shortcuts = append(shortcuts, rw.ID)
		}
	}

	s.choreo = NewChoreographer(s.workers, reg.Scripts, opts.Random, s.deferred, opts.Events, logger)
	s.resolver = NewResolver(s.workers, s.furniture)
	s.input = NewInputRouter(opts.Now, managerID, shortcuts)

	for _, f := range s.furniture {
		s.surface.SetVisible(f.ID(), true)
	}
	for _, w := range s.workers {
		s.surface.SetVisible(w.ID(), true)
	}
	s.sync()

	logger.Info("scene created",
		zap.Int("workers", len(s.workers)),
		zap.Int("furniture", len(s.furniture)))
	return s
}

// deferred runs fn after d under the scene lock, unless the scene has been
// closed by then.
func (s *Scene) deferred(d time.Duration, fn func()) {
	s.timers.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		fn()
	})
}

// Tick advances the whole scene by one frame.
func (s *Scene) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.tick++
	for _, w := range s.workers {
		w.Tick()
	}
	for _, f := range s.furniture {
		f.Tick()
	}
	s.choreo.Tick()
	s.emitStatusChanges()
	s.refreshFurniture()
	s.sync()
}

// OnTick lets a clock drive the scene.
func (s *Scene) OnTick(time.Time) { s.Tick() }

func (s *Scene) refreshFurniture() {
	for _, f := range s.furniture {
		active := false
		for _, w := range s.connected[f.ID()] {
			if w.Status() == StatusWorking {
				active = true
				break
			}
		}
		f.SetActive(active)
	}
}

func (s *Scene) sync() {
	for _, f := range s.furniture {
		state := "off"
		if f.Active() {
			state = "on"
		}
		s.surface.Place(LayerFurniture, f.ID(), f.Position())
		s.surface.SetFrame(f.ID(), fmt.Sprintf("infra/%s/%s", f.Type(), state))
		s.surface.SetScale(f.ID(), f.Scale())
	}
	for _, w := range s.workers {
		s.surface.Place(LayerWorkers, w.ID(), w.Position())
		s.surface.SetFrame(w.ID(), w.Frame())
		text, alpha := w.Bubble()
		s.surface.SetBubble(w.ID(), text, alpha)
	}
}

// ApplyStatus maps a polled payload onto the workers. Workers that are
// missing from the payload, have no self-report or report an unknown value
// keep their last status.
func (s *Scene) ApplyStatus(p *status.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || p == nil {
		return
	}
	for _, w := range s.workers {
		raw, ok := p.StatusOf(w.ID())
		if !ok {
			continue
		}
		st, ok := ParseStatus(raw)
		if !ok {
			s.logger.Debug("ignoring unknown status",
				zap.String("worker", w.ID()), zap.String("status", raw))
			continue
		}
		w.SetStatus(st)
	}
	s.emitStatusChanges()
	s.refreshFurniture()
}

// emitStatusChanges reports every worker whose polled status took effect
// since the last call. Statuses held during an interaction are reported once
// FinishInteraction applies them.
func (s *Scene) emitStatusChanges() {
	for _, w := range s.workers {
		now := w.Reported()
		if s.reported[w.ID()] == now {
			continue
		}
		s.reported[w.ID()] = now
		s.sink.Emit(Event{
			Kind:    EventStatusChanged,
			Workers: []string{w.ID()},
			Text:    fmt.Sprintf("%s is %s", w.Name(), now),
			Status:  now,
		})
	}
}

// Resize refits the camera to a new viewport.
func (s *Scene) Resize(w, h float64) Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.FitToScreen(w, h)
	return *s.camera
}

// Camera returns a copy of the current camera.
func (s *Scene) Camera() Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.camera
}

// Click routes a pointer click at screen coordinates.
func (s *Scene) Click(sx, sy float64) Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Action{Kind: ActionNone}
	}
	hit := s.resolver.Pick(s.camera.ScreenToWorld(sx, sy))
	return s.perform(s.input.Click(hit))
}

// Hover updates furniture hover state and returns the agent under the
// pointer, if any.
func (s *Scene) Hover(sx, sy float64) *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	p := s.camera.ScreenToWorld(sx, sy)
	for _, f := range s.furniture {
		f.SetHover(f.Bounds().Pad(HitPadding).Contains(p))
	}
	return s.resolver.Resolve(p)
}

// Key routes a key press.
func (s *Scene) Key(key rune, inTextInput bool) Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Action{Kind: ActionNone}
	}
	return s.perform(s.input.Key(key, inTextInput))
}

func (s *Scene) perform(a Action) Action {
	switch a.Kind {
	case ActionSelect:
		text := "selection cleared"
		if a.Selection != nil {
			text = fmt.Sprintf("selected %s %s", a.Selection.Kind, a.Selection.ID)
		}
		s.sink.Emit(Event{Kind: EventSelected, Selection: a.Selection, Text: text})
		a.Accepted = true
	case ActionDispatch:
		a.Accepted = s.choreo.TriggerWorker(a.ID)
	case ActionForceChat:
		a.Accepted = s.choreo.ForceChat()
	}
	return a
}

// Dispatch asks the manager to run a worker. It reports false without error
// while another interaction is in progress.
func (s *Scene) Dispatch(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false, fmt.Errorf("dispatch %s: %w", id, ErrUnknownWorker)
	}
	if s.closed {
		return false, nil
	}
	return s.choreo.TriggerWorker(id), nil
}

// ForceChat starts a conversation immediately if the office is idle.
func (s *Scene) ForceChat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.choreo.ForceChat()
}

// Busy reports whether an interaction is in progress.
func (s *Scene) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choreo.IsBusy()
}

// Selection returns the current selection.
func (s *Scene) Selection() *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Selection()
}

// ClearSelection drops the current selection, as the panel close button does.
func (s *Scene) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.ClearSelection()
}

// WorkerView is a read-only copy of a worker's state.
type WorkerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Character string   `json:"character"`
	Manager   bool     `json:"manager,omitempty"`
	Status    Status   `json:"status"`
	Display   Status   `json:"display"`
	Deferred  Status   `json:"deferred,omitempty"`
	Phase     string   `json:"phase"`
	Position  Position `json:"position"`
	Home      Position `json:"home"`
	Moving    bool     `json:"moving"`
	Available bool     `json:"available"`
	Bubble    string   `json:"bubble,omitempty"`
	Frame     string   `json:"frame"`
}

// FurnitureView is a read-only copy of a prop's state.
type FurnitureView struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Active   bool     `json:"active"`
	Hovered  bool     `json:"hovered"`
	Scale    float64  `json:"scale"`
}

// Snapshot is a consistent read-only view of the whole scene.
type Snapshot struct {
	Tick      uint64          `json:"tick"`
	Camera    Camera          `json:"camera"`
	Phase     string          `json:"phase"`
	Busy      bool            `json:"busy"`
	Session   *SessionView    `json:"session,omitempty"`
	Selection *Selection      `json:"selection,omitempty"`
	Workers   []WorkerView    `json:"workers"`
	Furniture []FurnitureView `json:"furniture"`
}

// Snapshot copies the current state.
func (s *Scene) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tick:      s.tick,
		Camera:    *s.camera,
		Phase:     s.choreo.Phase().String(),
		Busy:      s.choreo.IsBusy(),
		Session:   s.choreo.Session(),
		Selection: s.input.Selection(),
		Workers:   make([]WorkerView, 0, len(s.workers)),
		Furniture: make([]FurnitureView, 0, len(s.furniture)),
	}
	for _, w := range s.workers {
		text, _ := w.Bubble()
		deferred, _ := w.Deferred()
		snap.Workers = append(snap.Workers, WorkerView{
			ID:        w.ID(),
			Name:      w.Name(),
			Character: w.Character(),
			Manager:   w.IsManager(),
			Status:    w.Status(),
			Display:   w.Display(),
			Deferred:  deferred,
			Phase:     w.Phase().String(),
			Position:  w.Position(),
			Home:      w.Home(),
			Moving:    w.Moving(),
			Available: w.Available(),
			Bubble:    text,
			Frame:     w.Frame(),
		})
	}
	for _, f := range s.furniture {
		snap.Furniture = append(snap.Furniture, FurnitureView{
			ID:       f.ID(),
			Type:     f.Type(),
			Position: f.Position(),
			Active:   f.Active(),
			Hovered:  f.Hovered(),
			Scale:    f.Scale(),
		})
	}
	return snap
}

// Close tears the scene down: the choreographer goes first so no session
// outlives the workers it borrows. Timers that fire later do nothing.
func (s *Scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.choreo.Destroy()
	for _, w := range s.workers {
		w.Destroy()
	}
	for _, f := range s.furniture {
		f.Destroy()
	}
	s.logger.Info("scene closed")
}
