package metrics

import coremetrics "github.com/powergrid-labs/blackoutd/core/metrics"

// MultiSink fans allocation records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocationResult forwards the records to all sinks, returning the
// first error encountered.
func (m *MultiSink) RecordAllocationResult(recs []coremetrics.AllocationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordAllocationResult(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordIncident forwards incident transitions.
func (m *MultiSink) RecordIncident(ev coremetrics.IncidentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.IncidentRecorder); ok {
			if err := rec.RecordIncident(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRecoveryTick forwards scheduler ticks.
func (m *MultiSink) RecordRecoveryTick(ev coremetrics.RecoveryTickEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.RecoveryRecorder); ok {
			if err := rec.RecordRecoveryTick(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordGridHealth forwards grid snapshots.
func (m *MultiSink) RecordGridHealth(ev coremetrics.GridHealthEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.GridHealthRecorder); ok {
			if err := rec.RecordGridHealth(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
