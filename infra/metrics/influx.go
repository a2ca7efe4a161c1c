package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/powergrid-labs/blackoutd/core/metrics"
	"github.com/powergrid-labs/blackoutd/infra/logger"
)

// InfluxSink writes allocation events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordAllocationResult writes each plan entry as a point.
func (s *InfluxSink) RecordAllocationResult(recs []coremetrics.AllocationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("zone_allocation").
			AddTag("incident_id", r.IncidentID).
			AddTag("zone_id", r.ZoneID).
			AddTag("severity", r.Severity.String()).
			AddTag("cause", string(r.Cause)).
			AddTag("rationale", r.RationaleTag).
			AddTag("on_backup", strconv.FormatBool(r.OnBackup)).
			AddField("target_percent", round3(r.TargetPercent)).
			AddField("backup_draw_mw", round3(r.BackupDrawMW)).
			SetTime(r.PlanTime)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordIncident persists an incident lifecycle transition.
func (s *InfluxSink) RecordIncident(ev coremetrics.IncidentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("incident_event").
		AddTag("incident_id", ev.IncidentID).
		AddTag("severity", ev.Severity.String()).
		AddTag("cause", string(ev.Cause)).
		AddTag("status", ev.Status.String()).
		AddField("cascade_risk", round3(ev.CascadeRisk)).
		AddField("zone_count", ev.ZoneCount).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRecoveryTick persists one scheduler advance.
func (s *InfluxSink) RecordRecoveryTick(ev coremetrics.RecoveryTickEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("recovery_tick").
		AddTag("incident_id", ev.IncidentID).
		AddTag("phase", strconv.Itoa(ev.Phase)).
		AddField("progress", round3(ev.Progress)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordGridHealth persists a grid snapshot.
func (s *InfluxSink) RecordGridHealth(ev coremetrics.GridHealthEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("grid_health").
		AddField("total_capacity_mw", round3(ev.Snapshot.TotalCapacityMW)).
		AddField("total_load_mw", round3(ev.Snapshot.TotalLoadMW)).
		AddField("available_backup_mw", round3(ev.Snapshot.AvailableBackupMW)).
		AddField("health_score", round3(ev.Snapshot.GridHealthScore)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
