package analysis

import "github.com/powergrid-labs/blackoutd/core/model"

// BaseRecoveryHours returns the pre-weather recovery estimate for a severity.
func BaseRecoveryHours(s model.Severity) float64 {
	switch s {
	case model.SeverityMinor:
		return 2
	case model.SeverityModerate:
		return 6
	case model.SeverityMajor:
		return 12
	case model.SeverityCatastrophic:
		return 24
	default:
		return 6
	}
}
