// Package solver implements the CARP heuristic core: randomized savings
// construction, local-search descent and a multi-start driver that keeps the
// best valid route set.
package solver

// ServiceKind tells which graph element a mandatory service covers.
type ServiceKind string

const (
	KindVertex ServiceKind = "vertex"
	KindEdge   ServiceKind = "edge"
	KindArc    ServiceKind = "arc"
)

// Service is one mandatory service of a CARP instance. Services are created
// once by the instance reader and never mutated; Origin equals Destination
// for vertex services.
type Service struct {
	ID          int
	Kind        ServiceKind
	Origin      int
	Destination int
	Demand      int
	ServiceCost float64
}

// DistanceOracle answers shortest-path distance lookups between graph
// vertices. Implementations must be immutable and safe for concurrent reads.
type DistanceOracle interface {
	Dist(from, to int) float64
}

// Problem bundles everything one solver run needs: the service catalog, the
// depot vertex, the vehicle capacity and the distance oracle.
type Problem struct {
	Services []Service
	Depot    int
	Capacity int
	Dist     DistanceOracle
}

// Route is an ordered visit sequence stored as indices into Problem.Services.
type Route []int

// Solution is a set of routes plus the per-route demand slice kept in sync
// with it. Cost is filled in when the multi-start driver scores a trial.
type Solution struct {
	Routes  []Route
	Demands []int
	Cost    float64
}

// RouteCost is the full cost of serving one route: the service costs of its
// members plus transport from the depot to the first origin, from each
// destination to the next origin, and from the last destination back to the
// depot.
func RouteCost(p Problem, r Route) float64 {
	if len(r) == 0 {
		return 0
	}
	cost := 0.0
	for _, si := range r {
		cost += p.Services[si].ServiceCost
	}
	cost += p.Dist.Dist(p.Depot, p.Services[r[0]].Origin)
	for i := 0; i < len(r)-1; i++ {
		cost += p.Dist.Dist(p.Services[r[i]].Destination, p.Services[r[i+1]].Origin)
	}
	cost += p.Dist.Dist(p.Services[r[len(r)-1]].Destination, p.Depot)
	return cost
}

func totalCost(p Problem, s Solution) float64 {
	total := 0.0
	for _, r := range s.Routes {
		total += RouteCost(p, r)
	}
	return total
}

func routeDemand(p Problem, r Route) int {
	d := 0
	for _, si := range r {
		d += p.Services[si].Demand
	}
	return d
}

// prune drops emptied routes, keeping the demand slice aligned pairwise.
func (s *Solution) prune() {
	routes := s.Routes[:0]
	demands := s.Demands[:0]
	for i, r := range s.Routes {
		if len(r) > 0 {
			routes = append(routes, r)
			demands = append(demands, s.Demands[i])
		}
	}
	s.Routes = routes
	s.Demands = demands
}
