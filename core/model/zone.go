package model

import (
	"encoding/json"
	"fmt"
)

// ZonePriority ranks how strongly a zone must be protected during load
// shedding. CRITICAL zones are never cut.
type ZonePriority int

const (
	PriorityCritical ZonePriority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// String returns a human-readable representation of the priority.
func (p ZonePriority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	default:
		return "unknown"
	}
}

// ParsePriority converts a priority label to its enum value. Unknown labels
// map to PriorityLow so a bad catalog entry degrades instead of failing load.
func ParsePriority(s string) ZonePriority {
	switch s {
	case "CRITICAL":
		return PriorityCritical
	case "HIGH":
		return PriorityHigh
	case "MEDIUM":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// MarshalJSON encodes the priority as its label.
func (p ZonePriority) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// UnmarshalJSON decodes a priority label.
func (p *ZonePriority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = ParsePriority(s)
	return nil
}

// PowerState describes the supply mode a zone currently operates in.
type PowerState int

const (
	FullPower PowerState = iota
	ReducedPower
	BackupPower
	NoPower
)

func (s PowerState) String() string {
	switch s {
	case FullPower:
		return "FULL_POWER"
	case ReducedPower:
		return "REDUCED_POWER"
	case BackupPower:
		return "BACKUP_POWER"
	case NoPower:
		return "NO_POWER"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the power state as its label.
func (s PowerState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON decodes a power state label.
func (s *PowerState) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "REDUCED_POWER":
		*s = ReducedPower
	case "BACKUP_POWER":
		*s = BackupPower
	case "NO_POWER":
		*s = NoPower
	default:
		*s = FullPower
	}
	return nil
}

// Zone represents a power-consuming city region.
type Zone struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Type               string       `json:"zone_type"`
	Priority           ZonePriority `json:"priority"`
	State              PowerState   `json:"power_state"`
	CapacityMW         float64      `json:"capacity_mw"`
	CurrentLoadMW      float64      `json:"current_load_mw"`
	BackupAvailable    bool         `json:"backup_available"`
	BackupCapacityMW   float64      `json:"backup_capacity_mw"`
	BackupDurationH    float64      `json:"backup_duration_hours"`
	AffectedPopulation int          `json:"affected_population"`
	CriticalFacilities []string     `json:"critical_facilities"`
	AllocationPercent  float64      `json:"power_allocation_percent"`
	OnBackup           bool         `json:"on_backup"`
	Lat                float64      `json:"lat"`
	Lon                float64      `json:"lon"`
}

// Validate checks that the zone configuration is sound.
// In particular CapacityMW must be positive.
func (z Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone id must not be empty")
	}
	if z.CapacityMW <= 0 {
		return fmt.Errorf("zone %s: capacity must be positive", z.ID)
	}
	return nil
}

// DeriveState returns the power state implied by an allocation percent and
// backup engagement. 100% means full power; 0% means backup power when backup
// is engaged, otherwise no power; anything in between is reduced power.
func DeriveState(allocation float64, onBackup bool) PowerState {
	switch {
	case allocation >= 100:
		return FullPower
	case allocation <= 0 && onBackup:
		return BackupPower
	case allocation <= 0:
		return NoPower
	default:
		return ReducedPower
	}
}

// SyncState recomputes State from the current allocation and backup flag.
func (z *Zone) SyncState() {
	z.State = DeriveState(z.AllocationPercent, z.OnBackup)
}

// LoadFactor returns the ratio of current load to capacity.
func (z Zone) LoadFactor() float64 {
	if z.CapacityMW <= 0 {
		return 0
	}
	return z.CurrentLoadMW / z.CapacityMW
}
