package incident

import (
	"errors"

	"github.com/powergrid-labs/blackoutd/core/registry"
)

var (
	// ErrInvalidRequest marks malformed or out-of-range input. The request
	// is rejected before any state change.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownIncident marks a reference to a missing incident.
	ErrUnknownIncident = errors.New("unknown incident")
	// ErrUnknownZone marks a reference to a zone not in the catalog.
	ErrUnknownZone = registry.ErrUnknownZone
)
