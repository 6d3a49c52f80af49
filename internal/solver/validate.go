package solver

// CoverageReport lists how a route set diverges from the service catalog.
type CoverageReport struct {
	Missing    []int // catalog ids absent from every route
	Duplicated []int // catalog ids appearing more than once across all routes
}

// OK reports whether the routes cover the catalog exactly.
func (r CoverageReport) OK() bool { return len(r.Missing) == 0 && len(r.Duplicated) == 0 }

// CheckCoverage verifies that every catalog service appears in exactly one
// route, exactly once. The check is pure; it backs both the fatal guards
// after structural stages and the permissive per-trial validation.
func CheckCoverage(p Problem, s Solution) CoverageReport {
	seen := make(map[int]int, len(p.Services))
	for _, r := range s.Routes {
		for _, si := range r {
			seen[p.Services[si].ID]++
		}
	}
	var rep CoverageReport
	for _, sv := range p.Services {
		switch n := seen[sv.ID]; {
		case n == 0:
			rep.Missing = append(rep.Missing, sv.ID)
		case n > 1:
			rep.Duplicated = append(rep.Duplicated, sv.ID)
		}
	}
	return rep
}

// guardCoverage turns a failed coverage check into the fatal engine error.
func guardCoverage(stage string, p Problem, s Solution) error {
	rep := CheckCoverage(p, s)
	if rep.OK() {
		return nil
	}
	return &FatalInvariantViolation{Stage: stage, Missing: rep.Missing, Duplicated: rep.Duplicated}
}

// CheckFeasible rejects instances where some service alone exceeds the
// vehicle capacity. It runs once, centrally, before any constructor.
func CheckFeasible(p Problem) error {
	for _, sv := range p.Services {
		if sv.Demand > p.Capacity {
			return &ConfigurationError{ServiceID: sv.ID, Demand: sv.Demand, Capacity: p.Capacity}
		}
	}
	return nil
}
