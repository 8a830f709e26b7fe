package traffic

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestTracker_Window(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := &Tracker{now: clk.now}

	tr.Record(Success)
	tr.Record(Success)
	tr.Record(Error)
	tr.Record(Denied)

	got := tr.Window(time.Minute)
	want := Counts{Success: 2, Error: 1, Denied: 1}
	if got != want {
		t.Errorf("Window() = %+v, want %+v", got, want)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	tr.Record(Error)
	if got := tr.Window(time.Minute); got != (Counts{Error: 1}) {
		t.Errorf("Window() after 2m = %+v, want only the new error", got)
	}
	if got := tr.Window(3 * time.Minute); got.Success != 2 || got.Error != 2 {
		t.Errorf("Window(3m) = %+v, want 2 successes and 2 errors", got)
	}
}

func TestTracker_PrunesPastRetention(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := &Tracker{now: clk.now}
	tr.Record(Success)

	clk.t = clk.t.Add(retention + time.Second)
	tr.Record(Denied)

	if n := len(tr.times[Success]); n != 0 {
		t.Errorf("success entries after retention = %d, want 0", n)
	}
	if got := tr.Window(time.Hour); got != (Counts{Denied: 1}) {
		t.Errorf("Window() = %+v, want only the denial", got)
	}
}

func TestTracker_IgnoresUnknownOutcome(t *testing.T) {
	var tr Tracker
	tr.Record(Outcome(7))
	if got := tr.Window(time.Minute); got != (Counts{}) {
		t.Errorf("Window() = %+v, want zero", got)
	}
}

func TestCounts_ErrorPct(t *testing.T) {
	tests := []struct {
		c    Counts
		want int
	}{
		{Counts{}, 0},
		{Counts{Success: 3, Error: 1}, 25},
		{Counts{Error: 2}, 100},
		{Counts{Success: 1, Denied: 50}, 0},
	}
	for _, tt := range tests {
		if got := tt.c.ErrorPct(); got != tt.want {
			t.Errorf("%+v.ErrorPct() = %d, want %d", tt.c, got, tt.want)
		}
	}
}

func TestPackageTracker(t *testing.T) {
	Reset()
	defer Reset()
	Record(Success)
	Record(Error)
	if got := Window(time.Minute); got.Success != 1 || got.Error != 1 {
		t.Errorf("Window() = %+v", got)
	}
}
