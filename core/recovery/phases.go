// Package recovery advances incident allocations toward full power over the
// estimated recovery window, in five monotonic priority-gated phases.
package recovery

import "github.com/powergrid-labs/blackoutd/core/model"

// phaseBounds returns the progress window [start,end] in which zones of the
// given priority interpolate from their planned target to 100%.
func phaseBounds(p model.ZonePriority) (start, end float64) {
	switch p {
	case model.PriorityCritical:
		return 0, 20
	case model.PriorityHigh:
		return 20, 40
	case model.PriorityMedium:
		return 40, 60
	default:
		return 60, 80
	}
}

// Phase maps an overall recovery progress (0-100) to its phase number 1-5.
// Phase 5 (80-100) is the final sweep that brings every remaining zone to
// exactly 100 and resolves the incident.
func Phase(progress float64) int {
	switch {
	case progress < 20:
		return 1
	case progress < 40:
		return 2
	case progress < 60:
		return 3
	case progress < 80:
		return 4
	default:
		return 5
	}
}

// GridRestored reports whether grid supply is fully re-established for zones
// of the given priority at the given overall progress. Zones running on
// backup switch back to the grid at this point.
func GridRestored(progress float64, p model.ZonePriority) bool {
	_, end := phaseBounds(p)
	return progress >= end
}

// ZoneTargetAt returns the allocation a zone should hold at the given overall
// recovery progress. Before its phase the zone stays at its planned target;
// inside the phase the allocation interpolates linearly to 100; after the
// phase boundary it holds 100. The result is non-decreasing in progress.
func ZoneTargetAt(progress, planTarget float64, priority model.ZonePriority) float64 {
	if planTarget > 100 {
		planTarget = 100
	}
	if planTarget < 0 {
		planTarget = 0
	}
	start, end := phaseBounds(priority)
	switch {
	case progress >= 100 || progress >= end:
		return 100
	case progress <= start:
		return planTarget
	default:
		return planTarget + (100-planTarget)*(progress-start)/(end-start)
	}
}
