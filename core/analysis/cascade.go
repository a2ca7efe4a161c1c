// Package analysis derives advisory scores from an incident and the grid
// state. Everything here is pure arithmetic: out-of-range inputs are clamped,
// never rejected.
package analysis

import "github.com/powergrid-labs/blackoutd/core/model"

// Risk term weights. Severity provides the base; the other terms add
// fragility from blast radius, cause and the already-degraded grid.
const (
	zoneSpreadWeight = 0.10
	causeWeight      = 0.15
	gridHealthWeight = 0.10
)

func severityBaseRisk(s model.Severity) float64 {
	switch s {
	case model.SeverityMinor:
		return 0.05
	case model.SeverityModerate:
		return 0.25
	case model.SeverityMajor:
		return 0.55
	case model.SeverityCatastrophic:
		return 0.80
	default:
		return 0.25
	}
}

// CascadeRisk estimates the probability of a cascading failure in [0,1].
// totalZones of zero is treated as full spread.
func CascadeRisk(severity model.Severity, cause model.Cause, affectedZones, totalZones int, snap model.GridSnapshot) float64 {
	risk := severityBaseRisk(severity)

	spread := 1.0
	if totalZones > 0 {
		spread = float64(affectedZones) / float64(totalZones)
		if spread > 1 {
			spread = 1
		}
		if spread < 0 {
			spread = 0
		}
	}
	risk += zoneSpreadWeight * spread

	if cause.Structural() {
		risk += causeWeight
	}

	health := snap.GridHealthScore
	if health < 0 {
		health = 0
	}
	if health > 100 {
		health = 100
	}
	risk += gridHealthWeight * (1 - health/100)

	return clamp01(risk)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
