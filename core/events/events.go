// Package events defines the incident lifecycle events emitted on the event
// bus. They are pure data; transport (SSE, MQTT) is an adapter concern.
//
// Available event types:
//   - AlertEvent: new incident created
//   - UpdateEvent: plan and analysis ready for an incident
//   - ProgressEvent: periodic recovery tick with zone deltas
//   - ResolvedEvent: incident resolved
//   - ManualAllocationEvent: operator override applied
package events

import "github.com/powergrid-labs/blackoutd/core/model"

// AlertEvent is published as soon as a new blackout incident is created.
type AlertEvent struct {
	Incident model.Incident
}

// UpdateEvent is published once the allocation plan and diagnostic analysis
// are available for an incident.
type UpdateEvent struct {
	Incident model.Incident
	Plan     model.AllocationPlan
	Zones    []model.Zone
}

// ProgressEvent is published on each recovery tick.
type ProgressEvent struct {
	IncidentID      string
	Progress        float64 // 0-100
	Status          model.IncidentStatus
	Zones           []model.Zone
	OutdoorWorkSafe bool
}

// ResolvedEvent is published when an incident reaches RESOLVED.
type ResolvedEvent struct {
	Incident model.Incident
	Zones    []model.Zone
}

// ManualAllocationEvent is published after an operator override.
type ManualAllocationEvent struct {
	IncidentID string
	Zones      []model.Zone
}
