package scene

import (
	"sort"
	"testing"
	"time"

	"github.com/nidhogg/spritedash/internal/registry"
	"go.uber.org/zap"
)

// stubRandom replays queued values and returns zero once they run out.
// Intn clamps queued values into range.
type stubRandom struct {
	floats []float64
	ints   []int
}

func (r *stubRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *stubRandom) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

type pendingTimer struct {
	at time.Duration
	fn func()
}

// manualTimers runs deferred callbacks only when the test advances time.
type manualTimers struct {
	now     time.Duration
	pending []pendingTimer
}

func (m *manualTimers) AfterFunc(d time.Duration, fn func()) {
	m.pending = append(m.pending, pendingTimer{at: m.now + d, fn: fn})
}

func (m *manualTimers) Advance(d time.Duration) {
	m.now += d
	for {
		sort.SliceStable(m.pending, func(i, j int) bool { return m.pending[i].at < m.pending[j].at })
		if len(m.pending) == 0 || m.pending[0].at > m.now {
			return
		}
		next := m.pending[0]
		m.pending = m.pending[1:]
		next.fn()
	}
}

func (m *manualTimers) Len() int { return len(m.pending) }

type recordSink struct {
	events []Event
}

func (r *recordSink) Emit(e Event) { r.events = append(r.events, e) }

func (r *recordSink) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestWorker(id string, home Position, rnd Random, timers Timers) *Worker {
	return NewWorker(WorkerConfig{
		ID:        id,
		Name:      id,
		Character: "clerk",
		Home:      home,
	}, rnd, timers.AfterFunc, zap.NewNop())
}

// crew is a small hand-built office: two workers and a manager.
type crew struct {
	a, b, m *Worker
	all     []*Worker
	rnd     *stubRandom
	timers  *manualTimers
	sink    *recordSink
	choreo  *Choreographer
}

func testScripts() registry.Scripts {
	return registry.Scripts{
		Generic: []registry.Script{{Lines: []registry.Line{
			{Speaker: 0, Text: "Morning."},
			{Speaker: 1, Text: "Morning!"},
		}}},
		Trigger: map[string]registry.Script{
			"a": {Lines: []registry.Line{
				{Speaker: 0, Text: "Run a now."},
				{Speaker: 1, Text: "Running."},
			}},
		},
	}
}

func newCrew(t *testing.T) *crew {
	t.Helper()
	c := &crew{rnd: &stubRandom{}, timers: &manualTimers{}, sink: &recordSink{}}
	c.a = newTestWorker("a", Position{X: 100, Y: 200}, c.rnd, c.timers)
	c.b = newTestWorker("b", Position{X: 300, Y: 200}, c.rnd, c.timers)
	c.m = NewWorker(WorkerConfig{
		ID:        "m",
		Name:      "Boss",
		Character: "manager",
		Home:      Position{X: 640, Y: 380},
		Manager:   true,
	}, c.rnd, c.timers.AfterFunc, zap.NewNop())
	c.all = []*Worker{c.a, c.b, c.m}
	c.choreo = NewChoreographer(c.all, testScripts(), c.rnd, c.timers.AfterFunc, c.sink, zap.NewNop())
	return c
}

func (c *crew) tick() {
	for _, w := range c.all {
		w.Tick()
	}
	c.choreo.Tick()
}

// tickUntil ticks until cond holds and fails the test after limit ticks.
func (c *crew) tickUntil(t *testing.T, limit int, cond func() bool) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		c.tick()
		if cond() {
			return i
		}
	}
	t.Fatalf("condition not reached after %d ticks (choreo phase %s)", limit, c.choreo.Phase())
	return 0
}
