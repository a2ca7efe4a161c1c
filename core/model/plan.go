package model

// ZoneAllocation is one planner decision for a single affected zone.
type ZoneAllocation struct {
	ZoneID        string  `json:"zone_id"`
	TargetPercent float64 `json:"target_percent"`
	// RationaleTag names the rule that produced the target, e.g.
	// "critical_floor", "high_floor", "severity_target", "ceiling_clamp",
	// "backup_engaged" or "backup_denied".
	RationaleTag string  `json:"rationale_tag"`
	OnBackup     bool    `json:"on_backup"`
	BackupDrawMW float64 `json:"backup_draw_mw,omitempty"`
}

// AllocationPlan is the per-incident planner output, one entry per affected
// zone. It is recomputed whenever severity, weather or a manual override
// changes; never persisted beyond the incident.
type AllocationPlan struct {
	IncidentID string           `json:"incident_id"`
	Entries    []ZoneAllocation `json:"entries"`
	// Infeasible flags that a CRITICAL zone could not be brought to 100%
	// even with all backup engaged. The plan is still best effort.
	Infeasible bool `json:"infeasible"`
	// RationaleText is an optional human-readable annotation attached after
	// planning. It never influences the numeric decisions above.
	RationaleText *string `json:"rationale_text,omitempty"`
}

// Entry returns the allocation for the given zone, if present.
func (p AllocationPlan) Entry(zoneID string) (ZoneAllocation, bool) {
	for _, e := range p.Entries {
		if e.ZoneID == zoneID {
			return e, true
		}
	}
	return ZoneAllocation{}, false
}

// GridSnapshot is a derived view of whole-grid health. It is computed on
// demand from the zone list and the live incident set, never stored.
type GridSnapshot struct {
	TotalCapacityMW   float64 `json:"total_capacity_mw"`
	TotalLoadMW       float64 `json:"total_load_mw"`
	AvailableBackupMW float64 `json:"available_backup_mw"`
	GridHealthScore   float64 `json:"grid_health_score"`
}
