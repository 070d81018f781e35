package scene

import (
	"math/rand"
	"time"
)

// Random is the source of every randomized choice in the scene. *rand.Rand
// satisfies it; tests substitute scripted sources.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// NewRandom returns a seeded source. A zero seed uses the current time.
func NewRandom(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// between returns a value in [lo, hi].
func between(r Random, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Timers schedules the few wall-clock deferrals the scene uses. Callbacks are
// fire-and-forget and cannot be cancelled.
type Timers interface {
	AfterFunc(d time.Duration, fn func())
}

// WallTimers schedules callbacks on the real clock.
type WallTimers struct{}

// AfterFunc runs fn after d on its own goroutine.
func (WallTimers) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// afterFunc is how agents ask the owning scene for a deferral. The scene
// re-enters its lock before running fn and drops it once closed.
type afterFunc func(d time.Duration, fn func())
