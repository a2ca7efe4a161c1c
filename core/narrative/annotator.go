// Package narrative produces optional human-readable commentary for
// allocation plans. Annotations are attached post-hoc, off the hot path, and
// never influence the numeric decisions of the pipeline.
package narrative

import (
	"fmt"
	"strings"

	"github.com/powergrid-labs/blackoutd/core/model"
)

// Annotator renders a rationale text for a committed plan. Implementations
// may be slow or non-deterministic; callers must invoke them asynchronously.
type Annotator interface {
	Annotate(incident model.Incident, plan model.AllocationPlan) string
}

// TemplateAnnotator derives the rationale from the plan itself. It is the
// default: deterministic and dependency-free.
type TemplateAnnotator struct{}

// Annotate summarizes the plan decisions in one paragraph.
func (TemplateAnnotator) Annotate(inc model.Incident, plan model.AllocationPlan) string {
	var reduced, backed, denied int
	for _, e := range plan.Entries {
		switch {
		case e.OnBackup:
			backed++
		case e.RationaleTag == "backup_denied":
			denied++
		case e.TargetPercent < 100:
			reduced++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s incident (%s) across %d zones: %d shed load, %d on backup",
		inc.Severity, inc.Cause, len(plan.Entries), reduced, backed)
	if denied > 0 {
		fmt.Fprintf(&b, ", %d denied backup", denied)
	}
	fmt.Fprintf(&b, "; cascade risk %.2f, est. recovery %.1fh", inc.CascadeRisk, inc.EstimatedRecoveryH)
	if plan.Infeasible {
		b.WriteString("; WARNING: a critical zone is under-served")
	}
	return b.String()
}
