package analysis

import (
	"strings"

	"github.com/powergrid-labs/blackoutd/core/logger"
)

// weatherMultipliers maps a condition to its severity multiplier. Conditions
// at or above unsafeThreshold make outdoor repair work unsafe.
var weatherMultipliers = map[string]float64{
	"clear":    1.0,
	"rain":     1.1,
	"heatwave": 1.3,
	"storm":    1.5,
	"flooding": 1.7,
	"cyclone":  2.0,
}

const unsafeThreshold = 1.5

// WeatherImpact is the result of adjusting an incident for weather.
type WeatherImpact struct {
	Condition           string  `json:"condition"`
	Multiplier          float64 `json:"multiplier"`
	RecoveryHours       float64 `json:"recovery_hours"`
	CascadeRisk         float64 `json:"cascade_risk"`
	OutdoorWorkSafe     bool    `json:"outdoor_work_safe"`
	RecognizedCondition bool    `json:"-"`
}

// AdjustForWeather scales the recovery estimate and cascade risk for the
// given condition. Unknown conditions are treated as clear weather and logged
// as a warning, never rejected.
func AdjustForWeather(condition string, recoveryHours, cascadeRisk float64, log logger.Logger) WeatherImpact {
	key := strings.ToLower(strings.TrimSpace(condition))
	mult, ok := weatherMultipliers[key]
	if !ok {
		mult = 1.0
		if log != nil {
			log.Warnf("unknown weather condition %q, assuming no impact", condition)
		}
	}
	return WeatherImpact{
		Condition:           key,
		Multiplier:          mult,
		RecoveryHours:       recoveryHours * mult,
		CascadeRisk:         clamp01(cascadeRisk + 0.3*(mult-1.0)),
		OutdoorWorkSafe:     mult < unsafeThreshold,
		RecognizedCondition: ok,
	}
}

// Multiplier returns the severity multiplier for a condition and whether the
// condition is known.
func Multiplier(condition string) (float64, bool) {
	m, ok := weatherMultipliers[strings.ToLower(strings.TrimSpace(condition))]
	if !ok {
		return 1.0, false
	}
	return m, true
}
