package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/powergrid-labs/blackoutd/app"
	"github.com/powergrid-labs/blackoutd/config"
	"github.com/powergrid-labs/blackoutd/core/incident"
	"github.com/powergrid-labs/blackoutd/core/model"
)

var simulateFlags struct {
	cause    string
	severity string
	zones    []string
	lostPct  float64
	weather  string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Inject a test blackout incident and print the allocation plan",
	RunE:  simulateIncident,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateFlags.cause, "cause", "equipment_failure", "incident cause")
	simulateCmd.Flags().StringVar(&simulateFlags.severity, "severity", "MODERATE", "incident severity")
	simulateCmd.Flags().StringSliceVar(&simulateFlags.zones, "zones", nil, "affected zone ids")
	simulateCmd.Flags().Float64Var(&simulateFlags.lostPct, "capacity-lost", 30, "grid capacity lost, percent")
	simulateCmd.Flags().StringVar(&simulateFlags.weather, "weather", "", "weather condition")
	rootCmd.AddCommand(simulateCmd)
}

func simulateIncident(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close() //nolint:errcheck

	res, err := svc.Manager.Simulate(incident.SimulateRequest{
		Cause:               model.Cause(simulateFlags.cause),
		Severity:            simulateFlags.severity,
		AffectedZones:       simulateFlags.zones,
		CapacityLostPercent: simulateFlags.lostPct,
		WeatherCondition:    simulateFlags.weather,
	})
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
