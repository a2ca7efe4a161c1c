package model

import (
	"encoding/json"
	"time"
)

// Severity grades the scale of a blackout incident.
type Severity int

const (
	SeverityMinor Severity = iota
	SeverityModerate
	SeverityMajor
	SeverityCatastrophic
)

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "MINOR"
	case SeverityModerate:
		return "MODERATE"
	case SeverityMajor:
		return "MAJOR"
	case SeverityCatastrophic:
		return "CATASTROPHIC"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a severity label to its enum value. The second
// return value reports whether the label was recognized.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "MINOR":
		return SeverityMinor, true
	case "MODERATE":
		return SeverityModerate, true
	case "MAJOR":
		return SeverityMajor, true
	case "CATASTROPHIC":
		return SeverityCatastrophic, true
	default:
		return SeverityMinor, false
	}
}

// MarshalJSON encodes the severity as its label.
func (s Severity) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON decodes a severity label.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, _ := ParseSeverity(str)
	*s = v
	return nil
}

// Cause identifies what triggered a blackout.
type Cause string

const (
	CauseGridFailure      Cause = "grid_failure"
	CauseOverload         Cause = "overload"
	CauseWeatherDamage    Cause = "weather_damage"
	CauseCyberAttack      Cause = "cyber_attack"
	CauseEquipmentFailure Cause = "equipment_failure"
)

// Valid reports whether the cause is one of the known values.
func (c Cause) Valid() bool {
	switch c {
	case CauseGridFailure, CauseOverload, CauseWeatherDamage, CauseCyberAttack, CauseEquipmentFailure:
		return true
	}
	return false
}

// Structural reports whether the cause increases grid fragility beyond the
// immediate capacity loss. Cyber attacks and weather damage compromise
// equipment that would otherwise contain a failure.
func (c Cause) Structural() bool {
	return c == CauseCyberAttack || c == CauseWeatherDamage
}

// IncidentStatus tracks the lifecycle of an incident. Transitions are
// monotonic: ACTIVE -> RECOVERING -> RESOLVED.
type IncidentStatus int

const (
	StatusActive IncidentStatus = iota
	StatusRecovering
	StatusResolved
)

func (s IncidentStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusRecovering:
		return "RECOVERING"
	case StatusResolved:
		return "RESOLVED"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its label.
func (s IncidentStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON decodes a status label.
func (s *IncidentStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "RECOVERING":
		*s = StatusRecovering
	case "RESOLVED":
		*s = StatusResolved
	default:
		*s = StatusActive
	}
	return nil
}

// Incident records one blackout event and its recovery estimate.
type Incident struct {
	ID                 string         `json:"incident_id"`
	Cause              Cause          `json:"cause"`
	Severity           Severity       `json:"severity"`
	AffectedZones      []string       `json:"affected_zones"`
	CapacityLostMW     float64        `json:"total_capacity_lost_mw"`
	EstimatedRecoveryH float64        `json:"estimated_recovery_hours"`
	Status             IncidentStatus `json:"status"`
	InitiatedAt        time.Time      `json:"initiated_at"`
	ResolvedAt         *time.Time     `json:"resolved_at,omitempty"`
	WeatherRelated     bool           `json:"weather_related"`
	WeatherCondition   string         `json:"weather_condition,omitempty"`
	CascadeRisk        float64        `json:"cascade_risk"`
	RecoveryProgress   float64        `json:"recovery_progress"`
}

// Affects reports whether the incident touches the given zone.
func (i Incident) Affects(zoneID string) bool {
	for _, id := range i.AffectedZones {
		if id == zoneID {
			return true
		}
	}
	return false
}

// Live reports whether the incident still drives zone allocations.
func (i Incident) Live() bool {
	return i.Status != StatusResolved
}
