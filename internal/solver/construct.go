package solver

import (
	"math/rand"
	"sort"
)

// Saving scores how much transport cost two services save when served on one
// route instead of two separate depot round trips. I and J index into
// Problem.Services with I < J.
type Saving struct {
	Value float64
	I, J  int
}

// Savings computes the Clarke & Wright saving of every unordered service pair
// and returns them sorted by decreasing value. The formula uses the
// destination-to-destination distance regardless of arc direction; the
// simplification is deliberate so that costs stay comparable with the
// existing evaluator. Ties order by the larger I, then the larger J.
func Savings(p Problem) []Saving {
	n := len(p.Services)
	out := make([]Saving, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			di := p.Services[i].Destination
			dj := p.Services[j].Destination
			v := p.Dist.Dist(p.Depot, di) + p.Dist.Dist(p.Depot, dj) - p.Dist.Dist(di, dj)
			out = append(out, Saving{Value: v, I: i, J: j})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		sa, sb := out[a], out[b]
		if sa.Value != sb.Value {
			return sa.Value > sb.Value
		}
		if sa.I != sb.I {
			return sa.I > sb.I
		}
		return sa.J > sb.J
	})
	return out
}

// singletons starts every service in its own route.
func singletons(p Problem) Solution {
	s := Solution{
		Routes:  make([]Route, len(p.Services)),
		Demands: make([]int, len(p.Services)),
	}
	for i, sv := range p.Services {
		s.Routes[i] = Route{i}
		s.Demands[i] = sv.Demand
	}
	return s
}

// mergeRoutes walks the available savings, spending each exactly once whether
// or not its merge applies. pick chooses among the first top candidates. A
// merge happens when some route starts with service I, a different route ends
// with service J, and their combined demand fits the capacity: the J route is
// appended after the I route.
func mergeRoutes(p Problem, s *Solution, avail []Saving, top int, pick func(n int) int) {
	for len(avail) > 0 {
		n := top
		if n > len(avail) {
			n = len(avail)
		}
		choice := pick(n)
		sv := avail[choice]
		avail = append(avail[:choice], avail[choice+1:]...)

		ri, rj := -1, -1
		for idx, r := range s.Routes {
			if len(r) == 0 {
				continue
			}
			if r[0] == sv.I {
				ri = idx
			}
			if r[len(r)-1] == sv.J {
				rj = idx
			}
		}
		if ri < 0 || rj < 0 || ri == rj {
			continue
		}
		if s.Demands[ri]+s.Demands[rj] > p.Capacity {
			continue
		}
		s.Routes[ri] = append(s.Routes[ri], s.Routes[rj]...)
		s.Demands[ri] += s.Demands[rj]
		s.Routes[rj] = nil
		s.Demands[rj] = 0
	}
}

// GreedyRandomized builds an initial solution with the GRASP-randomized
// savings heuristic: merges are attempted in saving order, choosing uniformly
// among the k best still-unspent pairs at each step. Identical seeds yield
// identical solutions.
func GreedyRandomized(p Problem, rng *rand.Rand, k int) (Solution, error) {
	if k < 1 {
		k = 1
	}
	s := singletons(p)
	mergeRoutes(p, &s, Savings(p), k, func(n int) int { return rng.Intn(n) })
	s.prune()
	if err := guardCoverage("construction", p, s); err != nil {
		return Solution{}, err
	}
	return s, nil
}

// GreedyDeterministic is the non-randomized variant: it always spends the
// best remaining saving first. Useful when a reproducible intermediate state
// is needed.
func GreedyDeterministic(p Problem) (Solution, error) {
	s := singletons(p)
	mergeRoutes(p, &s, Savings(p), 1, func(int) int { return 0 })
	s.prune()
	if err := guardCoverage("construction", p, s); err != nil {
		return Solution{}, err
	}
	return s, nil
}
