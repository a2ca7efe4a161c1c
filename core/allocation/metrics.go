package allocation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	plansBuilt      *prometheus.CounterVec
	infeasiblePlans prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter) {
	plans := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_plans_built_total",
			Help: "Number of allocation plans computed",
		},
		[]string{"severity"},
	)
	infeasible := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_plans_infeasible_total",
			Help: "Plans where a critical zone could not reach full power",
		},
	)
	return plans, infeasible
}

func init() {
	plansBuilt, infeasiblePlans = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers allocation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(plansBuilt, infeasiblePlans)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	plansBuilt, infeasiblePlans = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
