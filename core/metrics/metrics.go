package metrics

import (
	"time"

	"github.com/powergrid-labs/blackoutd/core/model"
)

// AllocationRecord represents a per-zone planner decision to be recorded.
type AllocationRecord struct {
	IncidentID    string
	ZoneID        string
	Severity      model.Severity
	Cause         model.Cause
	TargetPercent float64
	OnBackup      bool
	BackupDrawMW  float64
	RationaleTag  string
	PlanTime      time.Time
}

// MetricsSink records allocation results for observability purposes.
type MetricsSink interface {
	RecordAllocationResult(records []AllocationRecord) error
}

// IncidentEvent captures an incident lifecycle transition.
type IncidentEvent struct {
	IncidentID  string
	Severity    model.Severity
	Cause       model.Cause
	Status      model.IncidentStatus
	CascadeRisk float64
	ZoneCount   int
	Time        time.Time
}

// IncidentRecorder records incident lifecycle transitions.
type IncidentRecorder interface {
	RecordIncident(ev IncidentEvent) error
}

// RecoveryTickEvent captures one scheduler advance for an incident.
type RecoveryTickEvent struct {
	IncidentID string
	Progress   float64
	Phase      int
	Time       time.Time
}

// RecoveryRecorder records scheduler progress ticks.
type RecoveryRecorder interface {
	RecordRecoveryTick(ev RecoveryTickEvent) error
}

// GridHealthEvent is a snapshot of whole-grid health.
type GridHealthEvent struct {
	Snapshot model.GridSnapshot
	Time     time.Time
}

// GridHealthRecorder records grid health snapshots.
type GridHealthRecorder interface {
	RecordGridHealth(ev GridHealthEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocationResult([]AllocationRecord) error { return nil }

func (NopSink) RecordIncident(IncidentEvent) error { return nil }

func (NopSink) RecordRecoveryTick(RecoveryTickEvent) error { return nil }

func (NopSink) RecordGridHealth(GridHealthEvent) error { return nil }
