package recovery

import (
	"testing"

	"github.com/powergrid-labs/blackoutd/core/model"
)

func TestPhase(t *testing.T) {
	cases := []struct {
		progress float64
		want     int
	}{
		{0, 1}, {19.9, 1}, {20, 2}, {39.9, 2}, {40, 3}, {59.9, 3},
		{60, 4}, {79.9, 4}, {80, 5}, {100, 5},
	}
	for _, c := range cases {
		if got := Phase(c.progress); got != c.want {
			t.Errorf("Phase(%v) = %d, want %d", c.progress, got, c.want)
		}
	}
}

func TestZoneTargetAtHoldsBeforePhase(t *testing.T) {
	// A MEDIUM zone keeps its planned target until progress 40.
	if got := ZoneTargetAt(30, 40, model.PriorityMedium); got != 40 {
		t.Fatalf("expected 40 got %v", got)
	}
}

func TestZoneTargetAtInterpolates(t *testing.T) {
	// Halfway through the CRITICAL window (progress 10), a zone planned at
	// 60 sits at 80.
	if got := ZoneTargetAt(10, 60, model.PriorityCritical); got != 80 {
		t.Fatalf("expected 80 got %v", got)
	}
	// HIGH window is 20-40: at progress 30 a 70% plan sits at 85.
	if got := ZoneTargetAt(30, 70, model.PriorityHigh); got != 85 {
		t.Fatalf("expected 85 got %v", got)
	}
}

func TestZoneTargetAtCompletesAfterPhase(t *testing.T) {
	if got := ZoneTargetAt(40, 70, model.PriorityHigh); got != 100 {
		t.Fatalf("expected 100 at phase end got %v", got)
	}
	if got := ZoneTargetAt(85, 10, model.PriorityLow); got != 100 {
		t.Fatalf("expected 100 in final sweep got %v", got)
	}
}

func TestZoneTargetAtMonotonic(t *testing.T) {
	for _, p := range []model.ZonePriority{
		model.PriorityCritical, model.PriorityHigh, model.PriorityMedium, model.PriorityLow,
	} {
		last := -1.0
		for progress := 0.0; progress <= 100; progress += 0.5 {
			got := ZoneTargetAt(progress, 35, p)
			if got < last {
				t.Fatalf("%s: target decreased at progress %v: %v < %v", p, progress, got, last)
			}
			last = got
		}
		if last != 100 {
			t.Fatalf("%s: expected 100 at full progress got %v", p, last)
		}
	}
}

func TestGridRestored(t *testing.T) {
	if GridRestored(19, model.PriorityCritical) {
		t.Fatal("CRITICAL grid restored before phase end")
	}
	if !GridRestored(20, model.PriorityCritical) {
		t.Fatal("CRITICAL grid not restored at phase end")
	}
	if GridRestored(79, model.PriorityLow) || !GridRestored(80, model.PriorityLow) {
		t.Fatal("LOW grid restoration boundary mismatch")
	}
}

func TestZoneTargetAtClampsPlanTarget(t *testing.T) {
	if got := ZoneTargetAt(0, 150, model.PriorityLow); got != 100 {
		t.Fatalf("expected clamp to 100 got %v", got)
	}
	if got := ZoneTargetAt(0, -10, model.PriorityLow); got != 0 {
		t.Fatalf("expected clamp to 0 got %v", got)
	}
}
