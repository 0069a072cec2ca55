package phase

import "github.com/xchecker/xchecker/internal/phaseid"

// All returns the six concrete phases in declared order, for the
// orchestrator's run_all loop and façade introspection.
func All() []Phase {
	return []Phase{
		NewRequirements(),
		NewDesign(),
		NewTasks(),
		NewReview(),
		NewFixup(),
		NewFinal(),
	}
}

// Get returns the concrete phase for id.
func Get(id phaseid.ID) (Phase, bool) {
	for _, p := range All() {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}
