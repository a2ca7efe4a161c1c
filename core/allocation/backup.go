package allocation

import "github.com/powergrid-labs/blackoutd/core/model"

// pool tracks the backup MW shared between the affected zones of one
// incident while a plan is built.
type pool struct {
	remaining float64
}

// backupPool sums the working backup capacity of the given zones.
func backupPool(zones []model.Zone) *pool {
	var total float64
	for _, z := range zones {
		if z.BackupAvailable && z.BackupDurationH > 0 {
			total += z.BackupCapacityMW
		}
	}
	return &pool{remaining: total}
}

// draw takes up to need MW from the pool and returns the amount granted.
func (p *pool) draw(need float64) float64 {
	if need <= 0 {
		return 0
	}
	granted := need
	if granted > p.remaining {
		granted = p.remaining
	}
	p.remaining -= granted
	return granted
}

// refund returns MW to the pool after a tentative draw was rejected.
func (p *pool) refund(mw float64) {
	if mw > 0 {
		p.remaining += mw
	}
}
