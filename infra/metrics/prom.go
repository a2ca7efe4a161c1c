package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/powergrid-labs/blackoutd/core/metrics"
)

// PromSink records allocation events in Prometheus metrics.
type PromSink struct {
	allocations *prometheus.CounterVec
	targets     *prometheus.GaugeVec
	incidents   *prometheus.CounterVec
	risk        *prometheus.GaugeVec
	progress    *prometheus.GaugeVec
	health      prometheus.Gauge
}

// NewPromSink registers allocation metrics on the default Prometheus
// registerer. The metrics HTTP server is started separately.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_allocations_total",
		Help: "Total number of per-zone allocation decisions",
	}, []string{"zone_id", "severity", "rationale", "on_backup"})
	targets := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zone_allocation_percent",
		Help: "Latest planned allocation percent per zone",
	}, []string{"zone_id"})
	incidents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_transitions_total",
		Help: "Incident lifecycle transitions",
	}, []string{"severity", "cause", "status"})
	risk := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "incident_cascade_risk",
		Help: "Cascade failure risk per incident",
	}, []string{"incident_id"})
	progress := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "incident_recovery_progress",
		Help: "Recovery progress percent per incident",
	}, []string{"incident_id"})
	health := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_health_score",
		Help: "Whole-grid health score between 0 and 100",
	})

	s := &PromSink{allocations: allocations, targets: targets, incidents: incidents, risk: risk, progress: progress, health: health}
	for _, c := range []prometheus.Collector{allocations, targets, incidents, risk, progress, health} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordAllocationResult increments the counter for each plan entry.
func (s *PromSink) RecordAllocationResult(recs []coremetrics.AllocationRecord) error {
	for _, r := range recs {
		s.allocations.WithLabelValues(r.ZoneID, r.Severity.String(), r.RationaleTag, strconv.FormatBool(r.OnBackup)).Inc()
		s.targets.WithLabelValues(r.ZoneID).Set(r.TargetPercent)
	}
	return nil
}

// RecordIncident counts the lifecycle transition and tracks cascade risk.
func (s *PromSink) RecordIncident(ev coremetrics.IncidentEvent) error {
	s.incidents.WithLabelValues(ev.Severity.String(), string(ev.Cause), ev.Status.String()).Inc()
	s.risk.WithLabelValues(ev.IncidentID).Set(ev.CascadeRisk)
	return nil
}

// RecordRecoveryTick tracks per-incident recovery progress.
func (s *PromSink) RecordRecoveryTick(ev coremetrics.RecoveryTickEvent) error {
	s.progress.WithLabelValues(ev.IncidentID).Set(ev.Progress)
	return nil
}

// RecordGridHealth sets the grid health gauge.
func (s *PromSink) RecordGridHealth(ev coremetrics.GridHealthEvent) error {
	s.health.Set(ev.Snapshot.GridHealthScore)
	return nil
}
