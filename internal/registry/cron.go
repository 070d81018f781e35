package registry

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// NextRun returns the next UTC fire time of a standard five-field cron
// expression after now.
func NextRun(expr string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return sched.Next(now.UTC()), nil
}

// FormatUntil renders the gap to target compactly: "now", "42m", "2h 30m",
// "2h" or "1d 3h".
func FormatUntil(target, now time.Time) string {
	diff := target.Sub(now)
	if diff <= 0 {
		return "now"
	}
	minutes := int(diff / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours, rem := minutes/60, minutes%60
	if hours < 24 {
		if rem > 0 {
			return fmt.Sprintf("%dh %dm", hours, rem)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dd %dh", hours/24, hours%24)
}

// NextRun returns when w fires next. ok is false for workers without a
// schedule.
func (w *Worker) NextRun(now time.Time) (next time.Time, ok bool) {
	if w.Cron == "" {
		return time.Time{}, false
	}
	next, err := NextRun(w.Cron, now)
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}
