package config

import "github.com/powergrid-labs/blackoutd/core/model"

// ZoneConfig describes one power zone in the catalog file.
type ZoneConfig struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Type                string   `json:"zone_type"`
	Priority            string   `json:"priority"`
	CapacityMW          float64  `json:"capacity_mw"`
	CurrentLoadMW       float64  `json:"current_load_mw"`
	BackupAvailable     bool     `json:"backup_available"`
	BackupCapacityMW    float64  `json:"backup_capacity_mw"`
	BackupDurationHours float64  `json:"backup_duration_hours"`
	AffectedPopulation  int      `json:"affected_population"`
	CriticalFacilities  []string `json:"critical_facilities"`
	Lat                 float64  `json:"lat"`
	Lon                 float64  `json:"lon"`
}

// Zone converts the config entry into the domain model, starting at full
// power.
func (c ZoneConfig) Zone() model.Zone {
	z := model.Zone{
		ID:                 c.ID,
		Name:               c.Name,
		Type:               c.Type,
		Priority:           model.ParsePriority(c.Priority),
		CapacityMW:         c.CapacityMW,
		CurrentLoadMW:      c.CurrentLoadMW,
		BackupAvailable:    c.BackupAvailable,
		BackupCapacityMW:   c.BackupCapacityMW,
		BackupDurationH:    c.BackupDurationHours,
		AffectedPopulation: c.AffectedPopulation,
		CriticalFacilities: append([]string(nil), c.CriticalFacilities...),
		AllocationPercent:  100,
		Lat:                c.Lat,
		Lon:                c.Lon,
	}
	z.SyncState()
	return z
}

// Catalog converts the configured zones into domain models.
func Catalog(zones []ZoneConfig) []model.Zone {
	out := make([]model.Zone, len(zones))
	for i, zc := range zones {
		out[i] = zc.Zone()
	}
	return out
}

// DefaultZones returns the built-in city catalog used when the config file
// does not define one.
func DefaultZones() []ZoneConfig {
	return []ZoneConfig{
		{
			ID: "zone_defence", Name: "Defence Zone", Type: "Defence", Priority: "CRITICAL",
			CapacityMW: 50, CurrentLoadMW: 45,
			BackupAvailable: true, BackupCapacityMW: 50, BackupDurationHours: 72,
			AffectedPopulation: 250000,
			CriticalFacilities: []string{"Naval Base", "Air Force Station", "Military Hospital", "Command Center"},
			Lat:                18.9220, Lon: 72.8347,
		},
		{
			ID: "zone_airport", Name: "Airport Zone", Type: "Airport", Priority: "HIGH",
			CapacityMW: 100, CurrentLoadMW: 80,
			BackupAvailable: true, BackupCapacityMW: 80, BackupDurationHours: 48,
			AffectedPopulation: 150000,
			CriticalFacilities: []string{"International Airport", "Air Traffic Control", "Cargo Terminal"},
			Lat:                19.0896, Lon: 72.8656,
		},
		{
			ID: "zone_hospital", Name: "Hospital Zone", Type: "Hospital", Priority: "CRITICAL",
			CapacityMW: 40, CurrentLoadMW: 35,
			BackupAvailable: true, BackupCapacityMW: 40, BackupDurationHours: 96,
			AffectedPopulation: 400000,
			CriticalFacilities: []string{"General Hospital", "Trauma Center", "ICU Units"},
			Lat:                19.0596, Lon: 72.8295,
		},
		{
			ID: "zone_commercial", Name: "Commercial Zone", Type: "Commercial", Priority: "MEDIUM",
			CapacityMW: 150, CurrentLoadMW: 120,
			BackupAvailable: true, BackupCapacityMW: 60, BackupDurationHours: 12,
			AffectedPopulation: 100000,
			CriticalFacilities: []string{"Stock Exchange", "Banks", "Corporate Offices", "Data Centers"},
			Lat:                19.0625, Lon: 72.8681,
		},
		{
			ID: "zone_education", Name: "Education Zone", Type: "Education", Priority: "MEDIUM",
			CapacityMW: 30, CurrentLoadMW: 25,
			BackupAvailable: true, BackupCapacityMW: 15, BackupDurationHours: 8,
			AffectedPopulation: 80000,
			CriticalFacilities: []string{"University Campus", "Schools", "Research Labs", "Libraries"},
			Lat:                19.1334, Lon: 72.9133,
		},
		{
			ID: "zone_residential_north", Name: "Residential Zone (North)", Type: "Residential", Priority: "LOW",
			CapacityMW: 100, CurrentLoadMW: 90,
			AffectedPopulation: 800000,
			CriticalFacilities: []string{"Residential Complexes", "Local Markets", "Community Centers"},
			Lat:                19.1136, Lon: 72.8697,
		},
		{
			ID: "zone_residential_west", Name: "Residential Zone (West)", Type: "Residential", Priority: "LOW",
			CapacityMW: 80, CurrentLoadMW: 70,
			AffectedPopulation: 600000,
			CriticalFacilities: []string{"Residential Areas", "Shopping Centers", "Parks"},
			Lat:                19.2403, Lon: 72.8540,
		},
		{
			ID: "zone_port", Name: "Port Zone", Type: "Port", Priority: "HIGH",
			CapacityMW: 60, CurrentLoadMW: 55,
			BackupAvailable: true, BackupCapacityMW: 40, BackupDurationHours: 24,
			AffectedPopulation: 50000,
			CriticalFacilities: []string{"Port Authority", "Container Terminal", "Warehouses", "Customs"},
			Lat:                18.9388, Lon: 72.8354,
		},
	}
}
