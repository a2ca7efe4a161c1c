package incident

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/powergrid-labs/blackoutd/core/allocation"
	"github.com/powergrid-labs/blackoutd/core/events"
	"github.com/powergrid-labs/blackoutd/core/metrics"
	"github.com/powergrid-labs/blackoutd/core/model"
	"github.com/powergrid-labs/blackoutd/core/recovery"
	"github.com/powergrid-labs/blackoutd/core/registry"
	"github.com/powergrid-labs/blackoutd/infra/logger"
	"github.com/powergrid-labs/blackoutd/internal/eventbus"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func testZones() []model.Zone {
	return []model.Zone{
		{ID: "z_hospital", Priority: model.PriorityCritical, CapacityMW: 40, CurrentLoadMW: 35,
			BackupAvailable: true, BackupCapacityMW: 40, BackupDurationH: 96},
		{ID: "z_airport", Priority: model.PriorityHigh, CapacityMW: 100, CurrentLoadMW: 80,
			BackupAvailable: true, BackupCapacityMW: 80, BackupDurationH: 48},
		{ID: "z_mall", Priority: model.PriorityMedium, CapacityMW: 150, CurrentLoadMW: 120},
		{ID: "z_homes", Priority: model.PriorityLow, CapacityMW: 100, CurrentLoadMW: 90},
	}
}

// newTestManager builds a manager whose recovery tasks never tick on their
// own, so tests drive ApplyRecoveryProgress directly.
func newTestManager(t *testing.T, bus eventbus.EventBus) *Manager {
	t.Helper()
	reg, err := registry.New(testZones())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	sched := recovery.NewScheduler(
		recovery.Config{TickIntervalMS: 3_600_000, SecondsPerHour: 3600},
		&fakeClock{now: time.Unix(0, 0)},
		logger.NopLogger{},
	)
	m, err := NewManager(
		context.Background(),
		reg,
		allocation.NewPlanner(logger.NopLogger{}),
		sched,
		bus,
		nil,
		nil,
		&fakeClock{now: time.Unix(1000, 0)},
		logger.NopLogger{},
	)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return m
}

func simulateMajor(t *testing.T, m *Manager) SimulateResult {
	t.Helper()
	res, err := m.Simulate(SimulateRequest{
		Cause:               model.CauseGridFailure,
		Severity:            "MAJOR",
		AffectedZones:       []string{"z_hospital", "z_airport", "z_homes"},
		CapacityLostPercent: 40,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	return res
}

func TestSimulateValidation(t *testing.T) {
	m := newTestManager(t, nil)
	cases := []struct {
		name string
		req  SimulateRequest
		want error
	}{
		{"no zones", SimulateRequest{Cause: model.CauseOverload, Severity: "MINOR"}, ErrInvalidRequest},
		{"bad cause", SimulateRequest{Cause: "meteor_strike", Severity: "MINOR", AffectedZones: []string{"z_homes"}}, ErrInvalidRequest},
		{"bad severity", SimulateRequest{Cause: model.CauseOverload, Severity: "minor", AffectedZones: []string{"z_homes"}}, ErrInvalidRequest},
		{"pct too high", SimulateRequest{Cause: model.CauseOverload, Severity: "MINOR", AffectedZones: []string{"z_homes"}, CapacityLostPercent: 101}, ErrInvalidRequest},
		{"pct negative", SimulateRequest{Cause: model.CauseOverload, Severity: "MINOR", AffectedZones: []string{"z_homes"}, CapacityLostPercent: -1}, ErrInvalidRequest},
		{"unknown zone", SimulateRequest{Cause: model.CauseOverload, Severity: "MINOR", AffectedZones: []string{"z_missing"}}, ErrUnknownZone},
		{"duplicate zone", SimulateRequest{Cause: model.CauseOverload, Severity: "MINOR", AffectedZones: []string{"z_homes", "z_homes"}}, ErrInvalidRequest},
	}
	for _, c := range cases {
		if _, err := m.Simulate(c.req); !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v got %v", c.name, c.want, err)
		}
	}

	// Rejected requests must not leave partial state behind.
	st := m.GetState()
	if len(st.ActiveIncidents) != 0 {
		t.Fatalf("expected no incidents, got %d", len(st.ActiveIncidents))
	}
	for _, z := range st.Zones {
		if z.AllocationPercent != 100 || z.State != model.FullPower {
			t.Fatalf("zone %s mutated by rejected request: %+v", z.ID, z)
		}
	}
}

func TestSimulateAppliesPlan(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	if res.Incident.Status != model.StatusActive {
		t.Fatalf("expected ACTIVE got %v", res.Incident.Status)
	}
	// 40% of the 390 MW grid.
	if res.Incident.CapacityLostMW != 156 {
		t.Fatalf("expected 156 MW lost got %v", res.Incident.CapacityLostMW)
	}
	if res.Incident.EstimatedRecoveryH != 12 {
		t.Fatalf("expected 12h recovery got %v", res.Incident.EstimatedRecoveryH)
	}
	if res.Analysis.Weather != nil {
		t.Fatal("no weather requested but impact present")
	}

	hospital, _ := m.Zone("z_hospital")
	if hospital.AllocationPercent != 100 || !hospital.OnBackup || hospital.State != model.FullPower {
		t.Fatalf("hospital not bridged to full power: %+v", hospital)
	}
	homes, _ := m.Zone("z_homes")
	if homes.AllocationPercent != 20 || homes.State != model.ReducedPower {
		t.Fatalf("homes not shed to 20%%: %+v", homes)
	}
	// Unaffected zones are untouched.
	mall, _ := m.Zone("z_mall")
	if mall.AllocationPercent != 100 {
		t.Fatalf("unaffected zone mutated: %+v", mall)
	}
}

func TestSimulateWithWeather(t *testing.T) {
	m := newTestManager(t, nil)
	res, err := m.Simulate(SimulateRequest{
		Cause:               model.CauseWeatherDamage,
		Severity:            "MAJOR",
		AffectedZones:       []string{"z_homes"},
		CapacityLostPercent: 30,
		WeatherCondition:    "storm",
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if res.Incident.EstimatedRecoveryH != 18 {
		t.Fatalf("expected 12h*1.5 got %v", res.Incident.EstimatedRecoveryH)
	}
	if !res.Incident.WeatherRelated || res.Incident.WeatherCondition != "storm" {
		t.Fatalf("weather not recorded: %+v", res.Incident)
	}
	if res.Analysis.Weather == nil || res.Analysis.Weather.OutdoorWorkSafe {
		t.Fatalf("expected unsafe outdoor work, got %+v", res.Analysis.Weather)
	}
}

func TestResolveRestoresAndIsIdempotent(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	first, err := m.Resolve(res.Incident.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Status != model.StatusResolved || first.ResolvedAt == nil || first.RecoveryProgress != 100 {
		t.Fatalf("incident not finalized: %+v", first)
	}
	for _, id := range res.Incident.AffectedZones {
		z, _ := m.Zone(id)
		if z.AllocationPercent != 100 || z.OnBackup || z.State != model.FullPower {
			t.Fatalf("zone %s not restored: %+v", id, z)
		}
	}

	second, err := m.Resolve(res.Incident.ID)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.Status != model.StatusResolved || !second.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Fatalf("second resolve diverged: %+v", second)
	}
	if got := len(m.History()); got != 1 {
		t.Fatalf("expected 1 history entry got %d", got)
	}
}

func TestResolveUnknownIncident(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.Resolve("missing"); !errors.Is(err, ErrUnknownIncident) {
		t.Fatalf("expected ErrUnknownIncident got %v", err)
	}
}

func TestManualAllocateFreezesZone(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	zones, err := m.ManualAllocate(res.Incident.ID, map[string]float64{"z_homes": 42})
	if err != nil {
		t.Fatalf("manual allocate: %v", err)
	}
	if len(zones) != 1 || zones[0].AllocationPercent != 42 {
		t.Fatalf("override not applied: %+v", zones)
	}

	// The scheduler keeps advancing everyone else; the frozen zone holds.
	m.ApplyRecoveryProgress(res.Incident.ID, 90, 0)
	homes, _ := m.Zone("z_homes")
	if homes.AllocationPercent != 42 {
		t.Fatalf("frozen zone moved: %v", homes.AllocationPercent)
	}
	airport, _ := m.Zone("z_airport")
	if airport.AllocationPercent != 100 {
		t.Fatalf("non-frozen zone not advanced: %v", airport.AllocationPercent)
	}
}

func TestManualAllocateValidation(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	if _, err := m.ManualAllocate(res.Incident.ID, nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty overrides: expected ErrInvalidRequest got %v", err)
	}
	if _, err := m.ManualAllocate(res.Incident.ID, map[string]float64{"z_homes": 120}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("out of range: expected ErrInvalidRequest got %v", err)
	}
	if _, err := m.ManualAllocate(res.Incident.ID, map[string]float64{"z_mall": 50}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("unaffected zone: expected ErrInvalidRequest got %v", err)
	}
	if _, err := m.ManualAllocate("missing", map[string]float64{"z_homes": 50}); !errors.Is(err, ErrUnknownIncident) {
		t.Fatalf("unknown incident: expected ErrUnknownIncident got %v", err)
	}

	if _, err := m.Resolve(res.Incident.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := m.ManualAllocate(res.Incident.ID, map[string]float64{"z_homes": 50}); !errors.Is(err, ErrUnknownIncident) {
		t.Fatalf("resolved incident: expected ErrUnknownIncident got %v", err)
	}
}

func TestRecoveryProgressTransitions(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	if done := m.ApplyRecoveryProgress(res.Incident.ID, 10, 0); done {
		t.Fatal("incident finished too early")
	}
	inc, _ := m.Incident(res.Incident.ID)
	if inc.Status != model.StatusRecovering || inc.RecoveryProgress != 10 {
		t.Fatalf("expected RECOVERING at 10, got %+v", inc)
	}

	// Progress never moves backwards.
	m.ApplyRecoveryProgress(res.Incident.ID, 5, 0)
	inc, _ = m.Incident(res.Incident.ID)
	if inc.RecoveryProgress != 10 {
		t.Fatalf("progress regressed: %v", inc.RecoveryProgress)
	}

	if done := m.ApplyRecoveryProgress(res.Incident.ID, 100, 0); !done {
		t.Fatal("expected completion at 100")
	}
	inc, _ = m.Incident(res.Incident.ID)
	if inc.Status != model.StatusResolved {
		t.Fatalf("expected RESOLVED got %v", inc.Status)
	}
	homes, _ := m.Zone("z_homes")
	if homes.AllocationPercent != 100 {
		t.Fatalf("zone not restored at completion: %v", homes.AllocationPercent)
	}

	// Ticks racing past resolution report done without touching state.
	if done := m.ApplyRecoveryProgress(res.Incident.ID, 100, 0); !done {
		t.Fatal("late tick must report done")
	}
	if got := len(m.History()); got != 1 {
		t.Fatalf("expected 1 history entry got %d", got)
	}
}

func TestRecoveryRaisesAllocationsByPhase(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	// Midway through the HIGH phase the airport interpolates; the LOW zone
	// still waits at its planned target.
	m.ApplyRecoveryProgress(res.Incident.ID, 30, 0)
	homes, _ := m.Zone("z_homes")
	if homes.AllocationPercent != 20 {
		t.Fatalf("LOW zone advanced too early: %v", homes.AllocationPercent)
	}

	m.ApplyRecoveryProgress(res.Incident.ID, 70, 0)
	homes, _ = m.Zone("z_homes")
	if homes.AllocationPercent != 60 {
		t.Fatalf("expected 60 at progress 70 got %v", homes.AllocationPercent)
	}
}

func TestRecoveryDrainsBackup(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	// The hospital runs on backup with 96 hours of fuel.
	m.ApplyRecoveryProgress(res.Incident.ID, 5, 2)
	hospital, _ := m.Zone("z_hospital")
	if !hospital.OnBackup || hospital.BackupDurationH != 94 {
		t.Fatalf("expected 94h remaining on backup, got %+v", hospital)
	}

	// Once the CRITICAL phase window closes the grid carries the load again.
	m.ApplyRecoveryProgress(res.Incident.ID, 20, 1)
	hospital, _ = m.Zone("z_hospital")
	if hospital.OnBackup {
		t.Fatal("hospital still on backup after grid restoration")
	}
	if hospital.AllocationPercent != 100 {
		t.Fatalf("allocation dropped during backup handover: %v", hospital.AllocationPercent)
	}
}

func TestRecoveryBackupExhaustionKeepsAllocation(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	// Burn far more simulated hours than the hospital's reserve while the
	// grid is still down for CRITICAL zones.
	m.ApplyRecoveryProgress(res.Incident.ID, 5, 200)
	hospital, _ := m.Zone("z_hospital")
	if hospital.OnBackup || hospital.BackupDurationH != 0 {
		t.Fatalf("backup not exhausted: %+v", hospital)
	}
	if hospital.AllocationPercent != 100 {
		t.Fatalf("exhaustion must never lower the allocation: %v", hospital.AllocationPercent)
	}
}

func TestGetStateAggregates(t *testing.T) {
	m := newTestManager(t, nil)
	res := simulateMajor(t, m)

	st := m.GetState()
	if len(st.ActiveIncidents) != 1 || st.ActiveIncidents[0].ID != res.Incident.ID {
		t.Fatalf("active incidents mismatch: %+v", st.ActiveIncidents)
	}
	if len(st.Zones) != 4 {
		t.Fatalf("expected 4 zones got %d", len(st.Zones))
	}
	// 156 MW lost out of 390 leaves 60% health.
	if st.Snapshot.GridHealthScore != 60 {
		t.Fatalf("expected health 60 got %v", st.Snapshot.GridHealthScore)
	}

	if _, err := m.Resolve(res.Incident.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	st = m.GetState()
	if len(st.ActiveIncidents) != 0 || st.Snapshot.GridHealthScore != 100 {
		t.Fatalf("state not restored after resolve: %+v", st.Snapshot)
	}
}

type captureSink struct {
	mu     sync.Mutex
	allocs int
	incs   int
	ticks  int
	health int
}

func (c *captureSink) RecordAllocationResult(recs []metrics.AllocationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allocs += len(recs)
	return nil
}

func (c *captureSink) RecordIncident(metrics.IncidentEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incs++
	return nil
}

func (c *captureSink) RecordRecoveryTick(metrics.RecoveryTickEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return nil
}

func (c *captureSink) RecordGridHealth(metrics.GridHealthEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health++
	return nil
}

func TestManagerRecordsMetrics(t *testing.T) {
	reg, err := registry.New(testZones())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	sched := recovery.NewScheduler(
		recovery.Config{TickIntervalMS: 3_600_000, SecondsPerHour: 3600},
		&fakeClock{now: time.Unix(0, 0)},
		logger.NopLogger{},
	)
	sink := &captureSink{}
	m, err := NewManager(
		context.Background(), reg, allocation.NewPlanner(logger.NopLogger{}),
		sched, nil, sink, nil, &fakeClock{now: time.Unix(1000, 0)}, logger.NopLogger{},
	)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	res := simulateMajor(t, m)
	m.ApplyRecoveryProgress(res.Incident.ID, 30, 1)
	if _, err := m.Resolve(res.Incident.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.allocs != 3 {
		t.Errorf("expected 3 allocation records got %d", sink.allocs)
	}
	// One transition at simulate, one at resolve.
	if sink.incs != 2 {
		t.Errorf("expected 2 incident records got %d", sink.incs)
	}
	if sink.ticks != 1 {
		t.Errorf("expected 1 recovery tick got %d", sink.ticks)
	}
	if sink.health != 1 {
		t.Errorf("expected 1 grid health record got %d", sink.health)
	}
}

func TestSimulatePublishesEvents(t *testing.T) {
	bus := eventbus.New()
	m := newTestManager(t, bus)
	sub := bus.Subscribe()

	res := simulateMajor(t, m)

	alert, ok := (<-sub).(events.AlertEvent)
	if !ok || alert.Incident.ID != res.Incident.ID {
		t.Fatalf("expected AlertEvent for %s, got %+v", res.Incident.ID, alert)
	}
	update, ok := (<-sub).(events.UpdateEvent)
	if !ok || len(update.Plan.Entries) != 3 {
		t.Fatalf("expected UpdateEvent with 3 entries, got %+v", update)
	}

	if _, err := m.Resolve(res.Incident.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resolved, ok := (<-sub).(events.ResolvedEvent)
	if !ok || resolved.Incident.Status != model.StatusResolved {
		t.Fatalf("expected ResolvedEvent, got %+v", resolved)
	}
}
