package registry

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return v
}

func TestNextRun(t *testing.T) {
	cases := []struct {
		cron, now, want string
	}{
		{"0 */2 * * *", "2026-02-24T03:30:00Z", "2026-02-24T04:00:00Z"},
		{"0 */2 * * *", "2026-02-24T04:00:00Z", "2026-02-24T06:00:00Z"},
		{"30 */4 * * *", "2026-02-24T01:00:00Z", "2026-02-24T04:30:00Z"},
		{"0 */1 * * *", "2026-02-24T14:15:00Z", "2026-02-24T15:00:00Z"},
		{"0 */6 * * *", "2026-02-24T07:30:00Z", "2026-02-24T12:00:00Z"},
		{"0 */6 * * *", "2026-02-24T19:00:00Z", "2026-02-25T00:00:00Z"},
		{"0 3 * * *", "2026-02-24T01:00:00Z", "2026-02-24T03:00:00Z"},
		{"0 3 * * *", "2026-02-24T04:00:00Z", "2026-02-25T03:00:00Z"},
		// 2026-02-24 is a Tuesday.
		{"0 5 * * 1", "2026-02-24T04:00:00Z", "2026-03-02T05:00:00Z"},
		{"0 5 * * 2", "2026-02-24T04:00:00Z", "2026-02-24T05:00:00Z"},
		{"0 5 * * 0", "2026-02-24T04:00:00Z", "2026-03-01T05:00:00Z"},
		{"*/15 * * * *", "2026-02-24T04:00:00Z", "2026-02-24T04:15:00Z"},
		// Steps restart at midnight rather than running past 23h.
		{"0 */5 * * *", "2026-03-10T21:00:00Z", "2026-03-11T00:00:00Z"},
		{"0 */5 * * *", "2026-03-10T19:59:00Z", "2026-03-10T20:00:00Z"},
		// 2026-03-10 is a Tuesday; ranges and lists of weekdays.
		{"15 9 * * 1-5", "2026-03-10T21:00:00Z", "2026-03-11T09:15:00Z"},
		{"15 9 * * 1-5", "2026-03-13T21:00:00Z", "2026-03-16T09:15:00Z"},
		{"0 12 * * 1,3", "2026-03-10T13:00:00Z", "2026-03-11T12:00:00Z"},
		{"30 6 1 * *", "2026-03-10T00:00:00Z", "2026-04-01T06:30:00Z"},
		{"@daily", "2026-03-10T21:00:00Z", "2026-03-11T00:00:00Z"},
	}
	for _, tc := range cases {
		got, err := NextRun(tc.cron, mustTime(t, tc.now))
		if err != nil {
			t.Errorf("NextRun(%q): %v", tc.cron, err)
			continue
		}
		if want := mustTime(t, tc.want); !got.Equal(want) {
			t.Errorf("NextRun(%q, %s) = %s, want %s", tc.cron, tc.now, got.Format(time.RFC3339), tc.want)
		}
	}

	for _, bad := range []string{"0 3 * *", "61 3 * * *", "0 3 * * mon-", ""} {
		if _, err := NextRun(bad, time.Now()); err == nil {
			t.Errorf("NextRun(%q) accepted", bad)
		}
	}
}

func TestFormatUntil(t *testing.T) {
	now := mustTime(t, "2026-02-24T14:00:00Z")
	cases := map[string]string{
		"2026-02-24T14:42:00Z": "42m",
		"2026-02-24T16:30:00Z": "2h 30m",
		"2026-02-24T16:00:00Z": "2h",
		"2026-02-24T13:00:00Z": "now",
		"2026-02-25T17:00:00Z": "1d 3h",
	}
	for target, want := range cases {
		if got := FormatUntil(mustTime(t, target), now); got != want {
			t.Errorf("FormatUntil(%s) = %q, want %q", target, got, want)
		}
	}
}

func TestWorkerNextRun(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	now := mustTime(t, "2026-02-24T01:00:00Z")
	var scheduled int
	for i := range reg.Workers {
		w := &reg.Workers[i]
		next, ok := w.NextRun(now)
		if w.Cron == "" {
			if ok {
				t.Errorf("%s has no schedule but reported %s", w.ID, next)
			}
			continue
		}
		scheduled++
		if !ok || !next.After(now) {
			t.Errorf("%s next run = %s, %v", w.ID, next, ok)
		}
	}
	if scheduled == 0 {
		t.Fatal("no scheduled workers in the default office")
	}
}
