// Package grid computes derived whole-grid views from the zone catalog and
// the live incident set.
package grid

import (
	"gonum.org/v1/gonum/floats"

	"github.com/powergrid-labs/blackoutd/core/model"
)

// Snapshot aggregates per-zone load and capacity into a grid health view.
// It is a pure function: safe for concurrent callers, no side effects.
// lostMW is the summed capacity loss of all ACTIVE/RECOVERING incidents.
func Snapshot(zones []model.Zone, lostMW float64) model.GridSnapshot {
	caps := make([]float64, len(zones))
	loads := make([]float64, len(zones))
	backups := make([]float64, len(zones))
	for i, z := range zones {
		caps[i] = z.CapacityMW
		loads[i] = z.CurrentLoadMW * z.AllocationPercent / 100
		if z.BackupAvailable && z.BackupDurationH > 0 {
			backups[i] = z.BackupCapacityMW
		}
	}

	snap := model.GridSnapshot{
		TotalCapacityMW:   floats.Sum(caps),
		TotalLoadMW:       floats.Sum(loads),
		AvailableBackupMW: floats.Sum(backups),
	}
	snap.GridHealthScore = HealthScore(snap.TotalCapacityMW, lostMW)
	return snap
}

// HealthScore maps active capacity loss to a 0-100 grid health score.
func HealthScore(totalCapacityMW, lostMW float64) float64 {
	if totalCapacityMW <= 0 {
		return 0
	}
	score := 100 * (1 - lostMW/totalCapacityMW)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
