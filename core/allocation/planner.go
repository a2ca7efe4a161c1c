// Package allocation computes per-zone power targets for an incident under
// priority constraints. The planner is pure and idempotent: the same inputs
// always yield the same plan.
package allocation

import (
	"github.com/powergrid-labs/blackoutd/core/logger"
	"github.com/powergrid-labs/blackoutd/core/model"
)

// Rationale tags attached to plan entries.
const (
	TagCriticalFloor  = "critical_floor"
	TagHighFloor      = "high_floor"
	TagSeverityTarget = "severity_target"
	TagCeilingClamp   = "ceiling_clamp"
	TagBackupEngaged  = "backup_engaged"
	TagBackupDenied   = "backup_denied"
)

// SeverityTarget returns the percent of normal allocation the damaged grid
// can carry for non-CRITICAL zones, before floor/ceiling clamping.
func SeverityTarget(s model.Severity) float64 {
	switch s {
	case model.SeverityMinor:
		return 90
	case model.SeverityModerate:
		return 65
	case model.SeverityMajor:
		return 35
	case model.SeverityCatastrophic:
		return 10
	default:
		return 65
	}
}

// bounds returns the guaranteed floor and ceiling for a priority tier.
func bounds(p model.ZonePriority) (floor, ceiling float64) {
	switch p {
	case model.PriorityCritical:
		return 100, 100
	case model.PriorityHigh:
		return 70, 100
	case model.PriorityMedium:
		return 0, 40
	default:
		return 0, 20
	}
}

// Planner turns an incident into an AllocationPlan. It holds no mutable
// state; the logger is only used for plan-level diagnostics.
type Planner struct {
	log logger.Logger
}

// NewPlanner creates a Planner. A nil logger disables diagnostics.
func NewPlanner(log logger.Logger) Planner {
	return Planner{log: log}
}

// gridTarget computes the grid-only target and its rationale for one zone.
func gridTarget(p model.ZonePriority, severity model.Severity) (float64, string) {
	floor, ceiling := bounds(p)
	target := SeverityTarget(severity)
	switch {
	case p == model.PriorityCritical:
		return 100, TagCriticalFloor
	case target < floor:
		return floor, TagHighFloor
	case target > ceiling:
		return ceiling, TagCeilingClamp
	default:
		return target, TagSeverityTarget
	}
}

// Plan assigns a target percent to every affected zone. Zones must be given
// in registration order; that order is the tie-break inside a priority tier
// when backup power is scarce. Zones not passed in are untouched by contract.
func (pl Planner) Plan(incidentID string, severity model.Severity, zones []model.Zone) model.AllocationPlan {
	plan := model.AllocationPlan{IncidentID: incidentID}
	if len(zones) == 0 {
		return plan
	}

	entries := make([]model.ZoneAllocation, len(zones))
	for i, z := range zones {
		target, tag := gridTarget(z.Priority, severity)
		entries[i] = model.ZoneAllocation{ZoneID: z.ID, TargetPercent: target, RationaleTag: tag}
	}

	pool := backupPool(zones)
	for _, tier := range []model.ZonePriority{model.PriorityCritical, model.PriorityHigh} {
		for i, z := range zones {
			if z.Priority != tier || !backupEligible(z, severity) {
				continue
			}
			shortfall := entries[i].TargetPercent
			if tier == model.PriorityCritical {
				// The damaged grid only carries the severity target; the
				// rest of a CRITICAL zone's load must come from backup.
				shortfall = SeverityTarget(severity)
			}
			need := z.CurrentLoadMW * (100 - shortfall) / 100
			granted := pool.draw(need)
			switch {
			case granted >= need:
				entries[i].TargetPercent = 100
				entries[i].OnBackup = true
				entries[i].BackupDrawMW = need
				entries[i].RationaleTag = TagBackupEngaged
			case tier == model.PriorityCritical:
				// Best effort: grid share plus whatever backup remains.
				covered := shortfall
				if z.CurrentLoadMW > 0 {
					covered += 100 * granted / z.CurrentLoadMW
				}
				if covered > 100 {
					covered = 100
				}
				entries[i].TargetPercent = covered
				entries[i].OnBackup = granted > 0
				entries[i].BackupDrawMW = granted
				entries[i].RationaleTag = TagBackupDenied
				plan.Infeasible = true
				if pl.log != nil {
					pl.log.Warnf("critical zone %s under-served at %.1f%%: backup exhausted", z.ID, covered)
				}
			default:
				// HIGH zones keep their grid-only target without backup.
				pool.refund(granted)
				entries[i].RationaleTag = TagBackupDenied
			}
		}
	}

	plan.Entries = entries
	plansBuilt.WithLabelValues(severity.String()).Inc()
	if plan.Infeasible {
		infeasiblePlans.Inc()
	}
	return plan
}

// backupEligible reports whether a zone may top up to 100% from backup.
// Only CRITICAL and HIGH zones with working backup qualify, and only when the
// grid alone leaves them short.
func backupEligible(z model.Zone, severity model.Severity) bool {
	if !z.BackupAvailable || z.BackupCapacityMW <= 0 || z.BackupDurationH <= 0 {
		return false
	}
	if z.Priority != model.PriorityCritical && z.Priority != model.PriorityHigh {
		return false
	}
	target, _ := gridTarget(z.Priority, severity)
	if z.Priority == model.PriorityCritical {
		target = SeverityTarget(severity)
	}
	return target < 100
}
