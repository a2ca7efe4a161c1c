// Package incident owns the incident lifecycle and orchestrates the
// allocation pipeline: snapshot -> cascade risk -> weather adjustment ->
// allocation plan -> recovery task. All request validation happens here;
// the inner stages never fail, they clamp.
package incident

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/powergrid-labs/blackoutd/core/allocation"
	"github.com/powergrid-labs/blackoutd/core/analysis"
	"github.com/powergrid-labs/blackoutd/core/events"
	"github.com/powergrid-labs/blackoutd/core/grid"
	"github.com/powergrid-labs/blackoutd/core/logger"
	"github.com/powergrid-labs/blackoutd/core/metrics"
	"github.com/powergrid-labs/blackoutd/core/model"
	"github.com/powergrid-labs/blackoutd/core/narrative"
	"github.com/powergrid-labs/blackoutd/core/recovery"
	"github.com/powergrid-labs/blackoutd/core/registry"
	"github.com/powergrid-labs/blackoutd/internal/eventbus"
)

// maxHistory bounds the resolved-incident log kept in memory.
const maxHistory = 256

// SimulateRequest describes one blackout event to inject.
type SimulateRequest struct {
	Cause               model.Cause `json:"cause"`
	Severity            string      `json:"severity"`
	AffectedZones       []string    `json:"affected_zones"`
	CapacityLostPercent float64     `json:"capacity_lost_percent"`
	WeatherCondition    string      `json:"weather_condition,omitempty"`
}

// Analysis carries the diagnostic outputs of a simulate call.
type Analysis struct {
	Snapshot    model.GridSnapshot      `json:"grid_snapshot"`
	CascadeRisk float64                 `json:"cascade_risk"`
	Weather     *analysis.WeatherImpact `json:"weather_impact,omitempty"`
}

// SimulateResult is the full outcome of a simulate call.
type SimulateResult struct {
	Incident model.Incident       `json:"incident"`
	Plan     model.AllocationPlan `json:"allocation_plan"`
	Analysis Analysis             `json:"analysis"`
}

// State is the read-only dashboard view.
type State struct {
	Zones           []model.Zone       `json:"zones"`
	ActiveIncidents []model.Incident   `json:"active_incidents"`
	Snapshot        model.GridSnapshot `json:"grid_snapshot"`
}

// incidentState is the per-incident mutable record owned by the manager.
type incidentState struct {
	incident    model.Incident
	plan        model.AllocationPlan
	frozen      map[string]bool // zones under manual override
	outdoorSafe bool
}

// Manager owns the zone and incident tables and serializes all mutations.
type Manager struct {
	registry *registry.Registry
	planner  allocation.Planner
	sched    *recovery.Scheduler
	bus      eventbus.EventBus
	sink     metrics.MetricsSink
	annotate narrative.Annotator
	clock    recovery.Clock
	log      logger.Logger
	ctx      context.Context

	mu        sync.RWMutex
	incidents map[string]*incidentState
	history   []model.Incident
}

// NewManager creates a Manager. registry, scheduler and logger are required;
// bus, sink, annotator and clock may be nil (nil clock uses the system clock).
func NewManager(ctx context.Context, reg *registry.Registry, planner allocation.Planner, sched *recovery.Scheduler, bus eventbus.EventBus, sink metrics.MetricsSink, ann narrative.Annotator, clock recovery.Clock, log logger.Logger) (*Manager, error) {
	if reg == nil || sched == nil || log == nil {
		return nil, fmt.Errorf("incident: nil parameter provided to NewManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if clock == nil {
		clock = recovery.RealClock{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Manager{
		registry:  reg,
		planner:   planner,
		sched:     sched,
		bus:       bus,
		sink:      sink,
		annotate:  ann,
		clock:     clock,
		log:       log,
		ctx:       ctx,
		incidents: make(map[string]*incidentState),
	}, nil
}

// Close stops all recovery tasks.
func (m *Manager) Close() error {
	m.sched.StopAll()
	if m.bus != nil {
		m.bus.Close()
	}
	return nil
}

// Simulate validates the request, creates the incident, runs the pipeline and
// starts the recovery task. On validation failure no state is changed.
func (m *Manager) Simulate(req SimulateRequest) (SimulateResult, error) {
	if len(req.AffectedZones) == 0 {
		return SimulateResult{}, fmt.Errorf("%w: affected_zones must not be empty", ErrInvalidRequest)
	}
	if !req.Cause.Valid() {
		return SimulateResult{}, fmt.Errorf("%w: unknown cause %q", ErrInvalidRequest, req.Cause)
	}
	severity, ok := model.ParseSeverity(req.Severity)
	if !ok {
		return SimulateResult{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidRequest, req.Severity)
	}
	if req.CapacityLostPercent < 0 || req.CapacityLostPercent > 100 {
		return SimulateResult{}, fmt.Errorf("%w: capacity_lost_percent must be in [0,100]", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(req.AffectedZones))
	for _, id := range req.AffectedZones {
		if !m.registry.Has(id) {
			return SimulateResult{}, fmt.Errorf("%w: %s", ErrUnknownZone, id)
		}
		if seen[id] {
			return SimulateResult{}, fmt.Errorf("%w: duplicate zone %s", ErrInvalidRequest, id)
		}
		seen[id] = true
	}

	m.mu.Lock()
	now := m.clock.Now()
	zones := m.registry.List()
	totalCap := grid.Snapshot(zones, 0).TotalCapacityMW
	lostMW := totalCap * req.CapacityLostPercent / 100
	snap := grid.Snapshot(zones, m.activeLostLocked()+lostMW)

	risk := analysis.CascadeRisk(severity, req.Cause, len(req.AffectedZones), len(zones), snap)
	hours := analysis.BaseRecoveryHours(severity)

	var impact *analysis.WeatherImpact
	outdoorSafe := true
	if req.WeatherCondition != "" {
		w := analysis.AdjustForWeather(req.WeatherCondition, hours, risk, m.log)
		hours = w.RecoveryHours
		risk = w.CascadeRisk
		outdoorSafe = w.OutdoorWorkSafe
		impact = &w
	}

	inc := model.Incident{
		ID:                 uuid.NewString(),
		Cause:              req.Cause,
		Severity:           severity,
		AffectedZones:      append([]string(nil), req.AffectedZones...),
		CapacityLostMW:     lostMW,
		EstimatedRecoveryH: hours,
		Status:             model.StatusActive,
		InitiatedAt:        now,
		WeatherRelated:     req.WeatherCondition != "",
		WeatherCondition:   req.WeatherCondition,
		CascadeRisk:        risk,
	}

	affected := m.affectedInOrder(zones, seen)
	plan := m.planner.Plan(inc.ID, severity, affected)
	m.applyPlanLocked(plan)

	st := &incidentState{incident: inc, plan: plan, frozen: make(map[string]bool), outdoorSafe: outdoorSafe}
	m.incidents[inc.ID] = st
	updatedZones := m.zonesOf(inc)
	m.mu.Unlock()

	m.log.Infof("incident %s: %s %s across %d zones, risk %.2f, recovery %.1fh",
		inc.ID, inc.Severity, inc.Cause, len(inc.AffectedZones), inc.CascadeRisk, inc.EstimatedRecoveryH)
	m.publish(events.AlertEvent{Incident: inc})
	m.publish(events.UpdateEvent{Incident: inc, Plan: plan, Zones: updatedZones})
	m.recordPlan(inc, plan, now)
	m.recordHealth(snap)
	m.annotatePlan(inc)

	m.sched.Start(m.ctx, inc.ID, hours, m)

	return SimulateResult{
		Incident: inc,
		Plan:     plan,
		Analysis: Analysis{Snapshot: snap, CascadeRisk: risk, Weather: impact},
	}, nil
}

// ManualAllocate overrides zone allocations for a live incident, freezing the
// touched zones against further scheduler updates.
func (m *Manager) ManualAllocate(incidentID string, allocations map[string]float64) ([]model.Zone, error) {
	if len(allocations) == 0 {
		return nil, fmt.Errorf("%w: no allocations given", ErrInvalidRequest)
	}

	m.mu.Lock()
	st, ok := m.incidents[incidentID]
	if !ok || !st.incident.Live() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownIncident, incidentID)
	}
	for zoneID, pct := range allocations {
		if pct < 0 || pct > 100 {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: allocation %.1f for %s out of [0,100]", ErrInvalidRequest, pct, zoneID)
		}
		if !st.incident.Affects(zoneID) {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: zone %s not affected by incident %s", ErrInvalidRequest, zoneID, incidentID)
		}
	}

	updated := make([]model.Zone, 0, len(allocations))
	for zoneID, pct := range allocations {
		z, err := m.registry.Update(zoneID, func(z *model.Zone) {
			z.AllocationPercent = pct
		})
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		st.frozen[zoneID] = true
		updated = append(updated, z)
	}
	m.mu.Unlock()

	m.log.Infof("manual allocation on incident %s for %d zones", incidentID, len(updated))
	m.publish(events.ManualAllocationEvent{IncidentID: incidentID, Zones: updated})
	return updated, nil
}

// Resolve terminates an incident: all affected zones return to full power and
// the recovery task is canceled before Resolve returns. Resolving an already
// RESOLVED incident is a no-op success.
func (m *Manager) Resolve(incidentID string) (model.Incident, error) {
	m.mu.Lock()
	st, ok := m.incidents[incidentID]
	if !ok {
		m.mu.Unlock()
		return model.Incident{}, fmt.Errorf("%w: %s", ErrUnknownIncident, incidentID)
	}
	if !st.incident.Live() {
		inc := st.incident
		m.mu.Unlock()
		return inc, nil
	}
	inc := m.resolveLocked(st)
	zones := m.zonesOf(inc)
	m.mu.Unlock()

	// Cancel outside the lock: the task's tick path takes the same lock.
	m.sched.Stop(incidentID)

	m.log.Infof("incident %s resolved", incidentID)
	m.publish(events.ResolvedEvent{Incident: inc, Zones: zones})
	m.recordIncident(inc)
	return inc, nil
}

// resolveLocked finalizes the incident record and restores its zones.
// Caller holds m.mu.
func (m *Manager) resolveLocked(st *incidentState) model.Incident {
	for _, zoneID := range st.incident.AffectedZones {
		_, _ = m.registry.Update(zoneID, func(z *model.Zone) {
			z.AllocationPercent = 100
			z.OnBackup = false
		})
	}
	now := m.clock.Now()
	st.incident.Status = model.StatusResolved
	st.incident.ResolvedAt = &now
	st.incident.RecoveryProgress = 100
	m.history = append(m.history, st.incident)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	return st.incident
}

// ApplyRecoveryProgress implements recovery.Applier. It advances every
// non-frozen affected zone toward 100% per the phase schedule and drains
// backup reserves by the elapsed simulated time.
func (m *Manager) ApplyRecoveryProgress(incidentID string, progress, elapsedHours float64) bool {
	m.mu.Lock()
	st, ok := m.incidents[incidentID]
	if !ok || !st.incident.Live() {
		m.mu.Unlock()
		return true
	}

	if progress > 0 && st.incident.Status == model.StatusActive {
		st.incident.Status = model.StatusRecovering
	}
	if progress > st.incident.RecoveryProgress {
		st.incident.RecoveryProgress = progress
	}

	for _, zoneID := range st.incident.AffectedZones {
		entry, hasEntry := st.plan.Entry(zoneID)
		if !hasEntry || st.frozen[zoneID] {
			continue
		}
		_, _ = m.registry.Update(zoneID, func(z *model.Zone) {
			target := recovery.ZoneTargetAt(progress, entry.TargetPercent, z.Priority)
			if target > z.AllocationPercent {
				z.AllocationPercent = target
			}
			if z.OnBackup && elapsedHours > 0 {
				z.BackupDurationH -= elapsedHours
				if z.BackupDurationH <= 0 {
					z.BackupDurationH = 0
					z.OnBackup = false
				}
			}
			if z.OnBackup && recovery.GridRestored(progress, z.Priority) {
				z.OnBackup = false
			}
		})
	}

	done := progress >= 100
	var inc model.Incident
	if done {
		inc = m.resolveLocked(st)
	} else {
		inc = st.incident
	}
	zones := m.zonesOf(inc)
	outdoorSafe := st.outdoorSafe
	m.mu.Unlock()

	if done {
		m.log.Infof("incident %s fully recovered", incidentID)
		m.publish(events.ResolvedEvent{Incident: inc, Zones: zones})
		m.recordIncident(inc)
		return true
	}
	m.publish(events.ProgressEvent{
		IncidentID:      incidentID,
		Progress:        progress,
		Status:          inc.Status,
		Zones:           zones,
		OutdoorWorkSafe: outdoorSafe,
	})
	if rec, ok := m.sink.(metrics.RecoveryRecorder); ok {
		if err := rec.RecordRecoveryTick(metrics.RecoveryTickEvent{
			IncidentID: incidentID,
			Progress:   progress,
			Phase:      recovery.Phase(progress),
			Time:       m.clock.Now(),
		}); err != nil {
			m.log.Errorf("recovery tick metrics error: %v", err)
		}
	}
	return false
}

// GetState returns the dashboard view. Safe for concurrent callers.
func (m *Manager) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	zones := m.registry.List()
	active := make([]model.Incident, 0, len(m.incidents))
	for _, st := range m.incidents {
		if st.incident.Live() {
			active = append(active, st.incident)
		}
	}
	return State{
		Zones:           zones,
		ActiveIncidents: active,
		Snapshot:        grid.Snapshot(zones, m.activeLostLocked()),
	}
}

// Zone returns the full record for one zone.
func (m *Manager) Zone(zoneID string) (model.Zone, error) {
	return m.registry.Get(zoneID)
}

// Incident returns the record for an incident, live or resolved.
func (m *Manager) Incident(incidentID string) (model.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.incidents[incidentID]
	if !ok {
		return model.Incident{}, fmt.Errorf("%w: %s", ErrUnknownIncident, incidentID)
	}
	return st.incident, nil
}

// Plan returns the current allocation plan for an incident.
func (m *Manager) Plan(incidentID string) (model.AllocationPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.incidents[incidentID]
	if !ok {
		return model.AllocationPlan{}, fmt.Errorf("%w: %s", ErrUnknownIncident, incidentID)
	}
	return st.plan, nil
}

// History returns the resolved-incident log, oldest first.
func (m *Manager) History() []model.Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Incident(nil), m.history...)
}

// activeLostLocked sums the capacity lost across live incidents.
// Caller holds m.mu.
func (m *Manager) activeLostLocked() float64 {
	var lost float64
	for _, st := range m.incidents {
		if st.incident.Live() {
			lost += st.incident.CapacityLostMW
		}
	}
	return lost
}

// affectedInOrder filters the registry-ordered zone list down to the affected
// set, preserving registration order for the planner tie-break.
func (m *Manager) affectedInOrder(zones []model.Zone, affected map[string]bool) []model.Zone {
	out := make([]model.Zone, 0, len(affected))
	for _, z := range zones {
		if affected[z.ID] {
			out = append(out, z)
		}
	}
	return out
}

// applyPlanLocked commits the plan targets to the registry. Caller holds m.mu.
func (m *Manager) applyPlanLocked(plan model.AllocationPlan) {
	for _, e := range plan.Entries {
		entry := e
		_, _ = m.registry.Update(entry.ZoneID, func(z *model.Zone) {
			z.AllocationPercent = entry.TargetPercent
			z.OnBackup = entry.OnBackup
		})
	}
}

// zonesOf returns copies of the incident's affected zones.
func (m *Manager) zonesOf(inc model.Incident) []model.Zone {
	out := make([]model.Zone, 0, len(inc.AffectedZones))
	for _, id := range inc.AffectedZones {
		if z, err := m.registry.Get(id); err == nil {
			out = append(out, z)
		}
	}
	return out
}

func (m *Manager) publish(e eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

// recordPlan forwards the plan to the metrics sink.
func (m *Manager) recordPlan(inc model.Incident, plan model.AllocationPlan, now time.Time) {
	recs := make([]metrics.AllocationRecord, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		recs = append(recs, metrics.AllocationRecord{
			IncidentID:    inc.ID,
			ZoneID:        e.ZoneID,
			Severity:      inc.Severity,
			Cause:         inc.Cause,
			TargetPercent: e.TargetPercent,
			OnBackup:      e.OnBackup,
			BackupDrawMW:  e.BackupDrawMW,
			RationaleTag:  e.RationaleTag,
			PlanTime:      now,
		})
	}
	if err := m.sink.RecordAllocationResult(recs); err != nil {
		m.log.Errorf("metrics error: %v", err)
	}
	m.recordIncident(inc)
}

func (m *Manager) recordIncident(inc model.Incident) {
	rec, ok := m.sink.(metrics.IncidentRecorder)
	if !ok {
		return
	}
	if err := rec.RecordIncident(metrics.IncidentEvent{
		IncidentID:  inc.ID,
		Severity:    inc.Severity,
		Cause:       inc.Cause,
		Status:      inc.Status,
		CascadeRisk: inc.CascadeRisk,
		ZoneCount:   len(inc.AffectedZones),
		Time:        m.clock.Now(),
	}); err != nil {
		m.log.Errorf("incident metrics error: %v", err)
	}
}

func (m *Manager) recordHealth(snap model.GridSnapshot) {
	rec, ok := m.sink.(metrics.GridHealthRecorder)
	if !ok {
		return
	}
	if err := rec.RecordGridHealth(metrics.GridHealthEvent{Snapshot: snap, Time: m.clock.Now()}); err != nil {
		m.log.Errorf("grid health metrics error: %v", err)
	}
}

// annotatePlan attaches the rationale text asynchronously so a slow annotator
// never blocks plan application.
func (m *Manager) annotatePlan(inc model.Incident) {
	if m.annotate == nil {
		return
	}
	go func() {
		m.mu.RLock()
		st, ok := m.incidents[inc.ID]
		var plan model.AllocationPlan
		if ok {
			plan = st.plan
		}
		m.mu.RUnlock()
		if !ok {
			return
		}
		text := m.annotate.Annotate(inc, plan)
		m.mu.Lock()
		if st, ok := m.incidents[inc.ID]; ok {
			st.plan.RationaleText = &text
		}
		m.mu.Unlock()
	}()
}
