package scene

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Status is a worker's displayed state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusWorking   Status = "working"
	StatusError     Status = "error"
	StatusCelebrate Status = "celebrate"
)

// ParseStatus maps a polled status value onto a Status. Only the values a
// worker can report about itself are accepted; celebrate is scene-internal.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusIdle, StatusWorking, StatusError:
		return Status(s), true
	}
	return "", false
}

const (
	SpriteSize   = 64.0
	MoveSpeed    = 1.5 // world units per tick
	MinMoveTicks = 10

	patrolPauseMin   = 80
	patrolPauseMax   = 140
	patrolSideOffset = 20.0
	patrolLift       = 16.0

	restMin        = 300
	restMax        = 1800
	wanderPauseMin = 30
	wanderPauseMax = 90
	wanderRadius   = 60.0
	wanderCountMin = 1
	wanderCountMax = 3

	BubbleTicks     = 180
	bubbleFadeTicks = 30

	CelebrateDelay = 1200 * time.Millisecond
)

// framePeriod is how many ticks each animation frame is held per status.
var framePeriod = map[Status]int{
	StatusWorking:   12,
	StatusError:     24,
	StatusCelebrate: 18,
	StatusIdle:      30,
}

var statusLines = map[Status][]string{
	StatusIdle:      {"Waiting for work...", "Taking a break", "All caught up!", "☕ Coffee time"},
	StatusWorking:   {"On it!", "Syncing data...", "Processing...", "Almost done!"},
	StatusError:     {"Something broke!", "Need help here!", "Retrying...", "Ugh, errors!"},
	StatusCelebrate: {"Done! 🎉", "Nailed it!", "Ship it!", "All green ✓"},
}

// WorkerConfig is the static description of a sprite agent.
type WorkerConfig struct {
	ID        string
	Name      string
	Character string
	Color     string
	Home      Position
	Manager   bool
	Patrol    []Position          // infra positions visited while working
	Frames    map[Status][]string // texture keys per status, may be empty
}

type movement struct {
	from, to Position
	elapsed  int
	duration int
}

type bubble struct {
	text  string
	ticks int
}

// Worker is a sprite agent: a character with a home desk, a status driven by
// polled data, an idle wander cycle, a working patrol and a speech bubble.
// It is not safe for concurrent use; the owning Scene serialises access.
type Worker struct {
	cfg WorkerConfig

	status   Status
	reported Status
	deferred *Status
	phase    WanderPhase

	pos    Position
	move   *movement
	arrive func()

	patrol     []Position
	lastStop   int
	pauseTimer int
	restTimer  int
	wanders    int

	bubble    bubble
	flashing  bool
	frameTick int
	gen       int
	destroyed bool

	rnd    Random
	after  afterFunc
	logger *zap.Logger
}

// NewWorker creates an idle worker sitting at its home position.
func NewWorker(cfg WorkerConfig, rnd Random, after func(time.Duration, func()), logger *zap.Logger) *Worker {
	w := &Worker{
		cfg:      cfg,
		status:   StatusIdle,
		reported: StatusIdle,
		phase:    PhaseSitting,
		pos:      cfg.Home,
		patrol:   append([]Position(nil), cfg.Patrol...),
		lastStop: -1,
		rnd:      rnd,
		after:    after,
		logger:   logger.With(zap.String("worker", cfg.ID)),
	}
	w.restTimer = between(rnd, restMin, restMax)
	return w
}

func (w *Worker) ID() string { return w.cfg.ID }
func (w *Worker) Name() string { return w.cfg.Name }
func (w *Worker) Character() string { return w.cfg.Character }
func (w *Worker) Home() Position { return w.cfg.Home }
func (w *Worker) Position() Position { return w.pos }
func (w *Worker) IsManager() bool { return w.cfg.Manager }
func (w *Worker) Phase() WanderPhase { return w.phase }
func (w *Worker) Moving() bool { return w.move != nil }

// Status returns the current status. The brief working flash played during a
// dispatch does not show up here; see Display.
func (w *Worker) Status() Status { return w.status }

// Reported returns the last polled status that took effect. Unlike Status it
// never shows the celebration that follows finished work.
func (w *Worker) Reported() Status { return w.reported }

// Display returns the status to draw, including cosmetic overrides.
func (w *Worker) Display() Status {
	if w.flashing {
		return StatusWorking
	}
	return w.status
}

// Deferred returns the status captured while the worker was in an interaction.
func (w *Worker) Deferred() (Status, bool) {
	if w.deferred == nil {
		return "", false
	}
	return *w.deferred, true
}

// Interacting reports whether the choreographer currently drives this worker.
func (w *Worker) Interacting() bool { return w.phase.Interacting() }

// Available reports whether the worker may join a spontaneous conversation.
func (w *Worker) Available() bool {
	return !w.destroyed && w.status == StatusIdle && w.phase == PhaseSitting && w.move == nil
}

// Bounds is the worker's unpadded hit box.
func (w *Worker) Bounds() Rect { return CenteredRect(w.pos, SpriteSize) }

// Bubble returns the current speech text and its opacity.
func (w *Worker) Bubble() (string, float64) {
	if w.bubble.ticks <= 0 {
		return "", 0
	}
	alpha := 1.0
	if w.bubble.ticks < bubbleFadeTicks {
		alpha = float64(w.bubble.ticks) / bubbleFadeTicks
	}
	return w.bubble.text, alpha
}

// Say shows text in the speech bubble.
func (w *Worker) Say(text string) {
	w.bubble = bubble{text: text, ticks: BubbleTicks}
}

// Acknowledge shows a line matching the displayed status.
func (w *Worker) Acknowledge() {
	lines := statusLines[w.Display()]
	if len(lines) == 0 {
		return
	}
	w.Say(lines[w.rnd.Intn(len(lines))])
}

// Frame returns the texture key to draw this tick. Workers without frames
// for their status fall back to a procedural placeholder key.
func (w *Worker) Frame() string {
	st := w.Display()
	frames := w.cfg.Frames[st]
	if len(frames) == 0 {
		return fmt.Sprintf("placeholder/%s/%s", w.cfg.Character, st)
	}
	period := framePeriod[st]
	if period <= 0 {
		period = 1
	}
	return frames[(w.frameTick/period)%len(frames)]
}

// SetStatus applies a polled status. Repeating the current value is a no-op.
// While the worker is in an interaction the value is held and applied by
// FinishInteraction.
func (w *Worker) SetStatus(s Status) {
	if w.destroyed {
		return
	}
	if w.phase.Interacting() {
		if target, ok := w.Deferred(); ok && target == s {
			return
		}
		if s == w.reported {
			w.deferred = nil
			return
		}
		w.deferred = &s
		w.logger.Debug("status deferred", zap.String("status", string(s)))
		return
	}
	if s == w.reported {
		return
	}
	w.applyStatus(s)
}

// StartWorking installs the patrol stops and switches the worker to working.
func (w *Worker) StartWorking(stops []Position) {
	w.patrol = append(w.patrol[:0], stops...)
	w.lastStop = -1
	w.SetStatus(StatusWorking)
}

func (w *Worker) applyStatus(s Status) {
	prev := w.status
	w.reported = s
	w.gen++
	w.cancelMove()
	w.logger.Debug("status changed",
		zap.String("from", string(prev)),
		zap.String("to", string(s)))

	switch s {
	case StatusError:
		w.status = StatusError
		w.setPhase(PhaseSitting)
	case StatusWorking:
		w.status = StatusWorking
		w.setPhase(PhaseSitting)
		w.pauseTimer = 0
		w.lastStop = -1
	case StatusIdle:
		if prev == StatusWorking {
			w.celebrate()
			return
		}
		w.status = StatusIdle
		w.goHome()
	}
}

func (w *Worker) celebrate() {
	w.status = StatusCelebrate
	w.Acknowledge()
	w.goHome()
	gen := w.gen
	w.after(CelebrateDelay, func() { w.endCelebrate(gen) })
}

func (w *Worker) endCelebrate(gen int) {
	if w.destroyed || gen != w.gen || w.status != StatusCelebrate {
		return
	}
	w.status = StatusIdle
	if w.phase.Interacting() || w.move != nil {
		return
	}
	w.sit()
}

func (w *Worker) goHome() {
	if w.pos == w.cfg.Home {
		w.sit()
		return
	}
	w.setPhase(PhaseReturning)
	w.SetMoveTarget(w.cfg.Home)
}

func (w *Worker) sit() {
	w.setPhase(PhaseSitting)
	w.restTimer = between(w.rnd, restMin, restMax)
}

func (w *Worker) cancelMove() {
	w.move = nil
	w.arrive = nil
}

// SetMoveTarget starts an eased move from the current position and returns
// its duration in ticks. It replaces any movement in flight.
func (w *Worker) SetMoveTarget(target Position) int {
	ticks := int(math.Ceil(w.pos.Dist(target) / MoveSpeed))
	if ticks < MinMoveTicks {
		ticks = MinMoveTicks
	}
	w.move = &movement{from: w.pos, to: target, duration: ticks}
	return ticks
}

// WalkToPoint starts an interaction walk. Register OnArrive afterwards.
func (w *Worker) WalkToPoint(target Position) {
	w.cancelMove()
	w.setPhase(PhaseInteractionWalk)
	w.SetMoveTarget(target)
}

// OnArrive sets the one-shot continuation for the movement in flight. It is
// cleared before it runs and cannot fire twice.
func (w *Worker) OnArrive(cb func()) {
	w.arrive = cb
}

// StartConversing freezes the worker in place for a conversation.
func (w *Worker) StartConversing() {
	w.cancelMove()
	w.setPhase(PhaseInteractionConverse)
}

// ReturnFromInteraction walks the worker home. Register OnArrive afterwards.
func (w *Worker) ReturnFromInteraction() {
	w.flashing = false
	w.setPhase(PhaseInteractionReturn)
	w.SetMoveTarget(w.cfg.Home)
}

// FinishInteraction hands the worker back to its own behavior and applies
// any status that arrived during the interaction.
func (w *Worker) FinishInteraction() {
	w.flashing = false
	w.sit()
	if d := w.deferred; d != nil {
		w.deferred = nil
		w.applyStatus(*d)
		return
	}
	if w.status == StatusWorking {
		w.pauseTimer = 0
	}
}

// PlayBriefWorking shows the working animation without touching Status.
func (w *Worker) PlayBriefWorking() { w.flashing = true }

// EndBriefWorking clears the cosmetic working animation.
func (w *Worker) EndBriefWorking() { w.flashing = false }

// Destroy releases the worker. Pending timers become no-ops.
func (w *Worker) Destroy() {
	w.destroyed = true
	w.cancelMove()
	w.deferred = nil
}

// Tick advances the worker by one animation frame.
func (w *Worker) Tick() {
	if w.destroyed {
		return
	}
	w.frameTick++
	if w.bubble.ticks > 0 {
		w.bubble.ticks--
	}
	if w.move != nil {
		w.step()
		return
	}
	if w.phase.Interacting() {
		return
	}
	switch w.status {
	case StatusIdle:
		w.wander()
	case StatusWorking:
		w.walkPatrol()
	}
}

func (w *Worker) step() {
	m := w.move
	m.elapsed++
	if m.elapsed < m.duration {
		w.pos = m.from.Lerp(m.to, Ease(float64(m.elapsed)/float64(m.duration)))
		return
	}
	w.pos = m.to
	w.move = nil
	if cb := w.arrive; cb != nil {
		w.arrive = nil
		cb()
	}
	w.afterArrival()
}

// afterArrival runs status-driven follow-ups once the arrival continuation
// has had its turn.
func (w *Worker) afterArrival() {
	if w.destroyed || w.move != nil || w.phase.Interacting() {
		return
	}
	switch w.phase {
	case PhaseWandering:
		w.wanders--
		if w.wanders > 0 {
			w.setPhase(PhasePausing)
			w.pauseTimer = between(w.rnd, wanderPauseMin, wanderPauseMax)
			return
		}
		w.setPhase(PhaseReturning)
		w.SetMoveTarget(w.cfg.Home)
	case PhaseReturning:
		w.sit()
	default:
		if w.status == StatusWorking {
			w.pauseTimer = between(w.rnd, patrolPauseMin, patrolPauseMax)
		}
	}
}

func (w *Worker) wander() {
	switch w.phase {
	case PhaseSitting:
		w.restTimer--
		if w.restTimer <= 0 {
			w.setPhase(PhasePausing)
			w.pauseTimer = between(w.rnd, wanderPauseMin, wanderPauseMax)
			w.wanders = between(w.rnd, wanderCountMin, wanderCountMax)
		}
	case PhasePausing:
		w.pauseTimer--
		if w.pauseTimer <= 0 {
			w.setPhase(PhaseWandering)
			w.SetMoveTarget(w.wanderPoint())
		}
	case PhaseWandering, PhaseReturning:
		w.goHome()
	}
}

func (w *Worker) wanderPoint() Position {
	angle := w.rnd.Float64() * 2 * math.Pi
	r := w.rnd.Float64() * wanderRadius
	p := w.cfg.Home.Add(math.Cos(angle)*r, math.Sin(angle)*r)
	p.X = clamp(p.X, SpriteSize/2, WorldWidth-SpriteSize/2)
	p.Y = clamp(p.Y, SafeMinY, SafeMaxY)
	return p
}

func (w *Worker) walkPatrol() {
	n := len(w.patrol)
	if n == 0 {
		return
	}
	if w.pauseTimer > 0 {
		w.pauseTimer--
		return
	}
	idx := 0
	switch {
	case n > 1 && w.lastStop >= 0:
		idx = w.rnd.Intn(n - 1)
		if idx >= w.lastStop {
			idx++
		}
	default:
		idx = w.rnd.Intn(n)
	}
	w.lastStop = idx
	side := patrolSideOffset
	if w.rnd.Float64() < 0.5 {
		side = -side
	}
	w.SetMoveTarget(w.patrol[idx].Add(side, -patrolLift))
}

func (w *Worker) setPhase(next WanderPhase) {
	if !w.phase.canMoveTo(next) {
		panic(fmt.Sprintf("worker %s: illegal wander transition %s -> %s", w.cfg.ID, w.phase, next))
	}
	w.phase = next
}
