package scene

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestMoveDurationAndEasing(t *testing.T) {
	rnd := &stubRandom{}
	w := newTestWorker("a", Position{X: 100, Y: 100}, rnd, &manualTimers{})

	ticks := w.SetMoveTarget(Position{X: 130, Y: 100})
	if ticks != 20 {
		t.Fatalf("duration = %d, want 20", ticks)
	}
	for i := 0; i < 10; i++ {
		w.Tick()
	}
	if got := w.Position().X; got != 115 {
		t.Errorf("x after 10 ticks = %v, want 115", got)
	}
	for i := 0; i < 10; i++ {
		w.Tick()
	}
	if got := w.Position(); got != (Position{X: 130, Y: 100}) {
		t.Errorf("position after 20 ticks = %+v, want (130,100)", got)
	}
	if w.Moving() {
		t.Error("still moving after the full duration")
	}
}

func TestMoveAlwaysLandsOnTarget(t *testing.T) {
	targets := []Position{{X: 101, Y: 100}, {X: 333.3, Y: 71.7}, {X: 1200, Y: 409.9}, {X: 0.1, Y: 0.2}}
	for _, target := range targets {
		w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
		n := w.SetMoveTarget(target)
		if n < MinMoveTicks {
			t.Fatalf("duration %d below minimum", n)
		}
		for i := 0; i < n; i++ {
			w.Tick()
		}
		if w.Position() != target {
			t.Errorf("landed at %+v, want %+v", w.Position(), target)
		}
	}
}

func TestShortMoveUsesMinimumDuration(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	if n := w.SetMoveTarget(Position{X: 101, Y: 100}); n != MinMoveTicks {
		t.Fatalf("duration = %d, want %d", n, MinMoveTicks)
	}
}

func TestArrivalContinuationFiresOnce(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	calls := 0
	w.WalkToPoint(Position{X: 120, Y: 100})
	w.OnArrive(func() { calls++ })
	for i := 0; i < 40; i++ {
		w.Tick()
	}
	if calls != 1 {
		t.Fatalf("continuation ran %d times, want 1", calls)
	}
}

func TestIdleWanderCycle(t *testing.T) {
	rnd := &stubRandom{}
	home := Position{X: 400, Y: 250}
	w := newTestWorker("a", home, rnd, &manualTimers{})

	tickN := func(n int) {
		for i := 0; i < n; i++ {
			w.Tick()
		}
	}
	tickN(restMin)
	if w.Phase() != PhasePausing {
		t.Fatalf("phase after rest = %s, want pausing", w.Phase())
	}
	tickN(wanderPauseMin)
	if w.Phase() != PhaseWandering || !w.Moving() {
		t.Fatalf("phase after pause = %s moving=%v, want wandering", w.Phase(), w.Moving())
	}
	tickN(2 * MinMoveTicks)
	if w.Phase() != PhaseSitting {
		t.Fatalf("phase after return = %s, want sitting", w.Phase())
	}
	if w.Position() != home {
		t.Errorf("position = %+v, want home %+v", w.Position(), home)
	}
	if !w.Available() {
		t.Error("worker back at its desk should be available")
	}
}

func TestWanderPointStaysInSafeBand(t *testing.T) {
	rnd := &stubRandom{floats: []float64{0.75, 1}}
	w := newTestWorker("a", Position{X: 100, Y: 80}, rnd, &manualTimers{})
	p := w.wanderPoint()
	if p.Y < SafeMinY || p.Y > SafeMaxY {
		t.Fatalf("wander point %+v outside safe band", p)
	}
}

func TestPatrolNeverRepeatsStop(t *testing.T) {
	stops := []Position{{X: 200, Y: 500}, {X: 400, Y: 500}, {X: 600, Y: 500}}
	w := newTestWorker("a", Position{X: 100, Y: 100}, NewRandom(42), &manualTimers{})
	w.StartWorking(stops)

	prev := -1
	for i := 0; i < 200; i++ {
		w.pauseTimer = 0
		w.walkPatrol()
		if w.lastStop == prev {
			t.Fatalf("stop %d chosen twice in a row", prev)
		}
		prev = w.lastStop
		to := w.move.to
		stop := stops[w.lastStop]
		if to.Y != stop.Y-patrolLift {
			t.Fatalf("patrol y = %v, want %v", to.Y, stop.Y-patrolLift)
		}
		if dx := to.X - stop.X; dx != patrolSideOffset && dx != -patrolSideOffset {
			t.Fatalf("patrol lateral offset = %v", dx)
		}
	}
}

func TestPatrolWithoutStopsStaysPut(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	w.SetStatus(StatusWorking)
	for i := 0; i < 50; i++ {
		w.Tick()
	}
	if w.Moving() || w.Position() != w.Home() {
		t.Fatalf("worker without patrol stops moved to %+v", w.Position())
	}
}

func TestAvailability(t *testing.T) {
	timers := &manualTimers{}
	cases := []struct {
		name  string
		setup func(w *Worker)
		want  bool
	}{
		{"idle at desk", func(*Worker) {}, true},
		{"moving", func(w *Worker) { w.SetMoveTarget(Position{X: 200, Y: 100}) }, false},
		{"working", func(w *Worker) { w.SetStatus(StatusWorking) }, false},
		{"error", func(w *Worker) { w.SetStatus(StatusError) }, false},
		{"interacting", func(w *Worker) { w.StartConversing() }, false},
		{"destroyed", func(w *Worker) { w.Destroy() }, false},
	}
	for _, tc := range cases {
		w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, timers)
		tc.setup(w)
		if got := w.Available(); got != tc.want {
			t.Errorf("%s: Available() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDeferredStatusAppliedOnFinish(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	w.WalkToPoint(Position{X: 140, Y: 100})

	w.SetStatus(StatusWorking)
	if w.Status() != StatusIdle {
		t.Fatalf("status changed mid-interaction: %s", w.Status())
	}
	if d, ok := w.Deferred(); !ok || d != StatusWorking {
		t.Fatalf("deferred = %q,%v, want working", d, ok)
	}

	// A later poll back to the current value cancels the pending change.
	w.SetStatus(StatusIdle)
	if _, ok := w.Deferred(); ok {
		t.Fatal("deferred status not cleared")
	}

	w.SetStatus(StatusError)
	for w.Moving() {
		w.Tick()
	}
	w.StartConversing()
	w.ReturnFromInteraction()
	w.OnArrive(w.FinishInteraction)
	for i := 0; i < 100 && w.Interacting(); i++ {
		w.Tick()
	}
	if w.Interacting() {
		t.Fatal("worker never finished the interaction")
	}
	if w.Status() != StatusError {
		t.Fatalf("status after finish = %s, want error", w.Status())
	}
	if _, ok := w.Deferred(); ok {
		t.Error("deferred status not consumed")
	}
}

func TestCelebrateOncePerTransition(t *testing.T) {
	timers := &manualTimers{}
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, timers)

	w.SetStatus(StatusWorking)
	w.SetStatus(StatusWorking)
	w.SetStatus(StatusIdle)
	if w.Status() != StatusCelebrate {
		t.Fatalf("status = %s, want celebrate", w.Status())
	}
	if text, _ := w.Bubble(); text == "" {
		t.Error("celebration should say something")
	}
	// The next poll repeats idle and must not start a second celebration.
	w.SetStatus(StatusIdle)
	if timers.Len() != 1 {
		t.Fatalf("pending timers = %d, want 1", timers.Len())
	}

	timers.Advance(CelebrateDelay)
	if w.Status() != StatusIdle {
		t.Fatalf("status after delay = %s, want idle", w.Status())
	}
	if w.Phase() != PhaseSitting {
		t.Errorf("phase = %s, want sitting", w.Phase())
	}
}

func TestStaleCelebrationIgnored(t *testing.T) {
	timers := &manualTimers{}
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, timers)
	w.SetStatus(StatusWorking)
	w.SetStatus(StatusIdle)
	w.SetStatus(StatusWorking)
	timers.Advance(CelebrateDelay)
	if w.Status() != StatusWorking {
		t.Fatalf("status = %s, want working", w.Status())
	}
}

func TestBriefWorkingIsCosmetic(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	w.PlayBriefWorking()
	if w.Display() != StatusWorking {
		t.Errorf("display = %s, want working", w.Display())
	}
	if w.Status() != StatusIdle {
		t.Errorf("status = %s, want idle", w.Status())
	}
	w.EndBriefWorking()
	if w.Display() != StatusIdle {
		t.Errorf("display after flash = %s, want idle", w.Display())
	}
}

func TestFrameFallsBackToPlaceholder(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	if got := w.Frame(); got != "placeholder/clerk/idle" {
		t.Fatalf("frame = %q", got)
	}

	w = NewWorker(WorkerConfig{
		ID:        "b",
		Character: "clerk",
		Home:      Position{X: 100, Y: 100},
		Frames:    map[Status][]string{StatusIdle: {"idle-0", "idle-1"}},
	}, &stubRandom{}, (&manualTimers{}).AfterFunc, zap.NewNop())
	if got := w.Frame(); got != "idle-0" {
		t.Fatalf("first frame = %q", got)
	}
	for i := 0; i < framePeriod[StatusIdle]; i++ {
		w.Tick()
	}
	if got := w.Frame(); got != "idle-1" {
		t.Fatalf("frame after one period = %q", got)
	}
	w.SetStatus(StatusError)
	if got := w.Frame(); !strings.HasPrefix(got, "placeholder/") {
		t.Fatalf("error frame = %q, want placeholder", got)
	}
}

func TestBubbleFades(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	w.Say("hello")
	if _, alpha := w.Bubble(); alpha != 1 {
		t.Fatalf("alpha = %v, want 1", alpha)
	}
	for i := 0; i < BubbleTicks-bubbleFadeTicks/2; i++ {
		w.Tick()
	}
	if _, alpha := w.Bubble(); alpha <= 0 || alpha >= 1 {
		t.Fatalf("alpha mid-fade = %v", alpha)
	}
	for i := 0; i < bubbleFadeTicks; i++ {
		w.Tick()
	}
	if text, _ := w.Bubble(); text != "" {
		t.Fatalf("bubble still showing %q", text)
	}
}

func TestIllegalTransitionPanics(t *testing.T) {
	w := newTestWorker("a", Position{X: 100, Y: 100}, &stubRandom{}, &manualTimers{})
	w.WalkToPoint(Position{X: 200, Y: 100})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on interaction_walk -> sitting")
		}
	}()
	w.setPhase(PhaseSitting)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"idle", "working", "error"} {
		if _, ok := ParseStatus(s); !ok {
			t.Errorf("ParseStatus(%q) rejected", s)
		}
	}
	for _, s := range []string{"", "celebrate", "WORKING", "busy"} {
		if _, ok := ParseStatus(s); ok {
			t.Errorf("ParseStatus(%q) accepted", s)
		}
	}
}
