package solver

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

// distGrid is a literal distance oracle for tests; row and column 0 are
// padding so vertex ids can be used directly.
type distGrid [][]float64

func (g distGrid) Dist(from, to int) float64 { return g[from][to] }

// edgeFixture is four vertices with the depot at 1 and three edge services
// of demands 3, 4 and 5 against capacity 8, so demands 4 and 5 can never
// share a route while 3+5 hits the capacity exactly.
func edgeFixture() Problem {
	d := distGrid{
		{0, 0, 0, 0, 0},
		{0, 0, 2, 3, 4},
		{0, 2, 0, 1, 2},
		{0, 3, 1, 0, 1},
		{0, 4, 2, 1, 0},
	}
	return Problem{
		Services: []Service{
			{ID: 1, Kind: KindEdge, Origin: 1, Destination: 2, Demand: 3, ServiceCost: 1},
			{ID: 2, Kind: KindEdge, Origin: 2, Destination: 3, Demand: 4, ServiceCost: 1},
			{ID: 3, Kind: KindEdge, Origin: 3, Destination: 4, Demand: 5, ServiceCost: 1},
		},
		Depot:    1,
		Capacity: 8,
		Dist:     d,
	}
}

// lineFixture places vertices 1..4 on a line one unit apart with three
// unit-demand vertex services at 2, 3 and 4.
func lineFixture() Problem {
	d := distGrid{
		{0, 0, 0, 0, 0},
		{0, 0, 1, 2, 3},
		{0, 1, 0, 1, 2},
		{0, 2, 1, 0, 1},
		{0, 3, 2, 1, 0},
	}
	return Problem{
		Services: []Service{
			{ID: 1, Kind: KindVertex, Origin: 2, Destination: 2, Demand: 1},
			{ID: 2, Kind: KindVertex, Origin: 3, Destination: 3, Demand: 1},
			{ID: 3, Kind: KindVertex, Origin: 4, Destination: 4, Demand: 1},
		},
		Depot:    1,
		Capacity: 3,
		Dist:     d,
	}
}

// clusterFixture has two far-apart vertex clusters {2,3} and {4,5}; mixing
// them in one route costs a 10-unit crossing.
func clusterFixture() Problem {
	d := distGrid{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 1, 1, 10, 10},
		{0, 1, 0, 1, 10, 10},
		{0, 1, 1, 0, 10, 10},
		{0, 10, 10, 10, 0, 1},
		{0, 10, 10, 10, 1, 0},
	}
	return Problem{
		Services: []Service{
			{ID: 1, Kind: KindVertex, Origin: 2, Destination: 2, Demand: 1},
			{ID: 2, Kind: KindVertex, Origin: 3, Destination: 3, Demand: 1},
			{ID: 3, Kind: KindVertex, Origin: 4, Destination: 4, Demand: 1},
			{ID: 4, Kind: KindVertex, Origin: 5, Destination: 5, Demand: 1},
		},
		Depot:    1,
		Capacity: 3,
		Dist:     d,
	}
}

func checkSolution(t *testing.T, p Problem, s Solution) {
	t.Helper()
	if rep := CheckCoverage(p, s); !rep.OK() {
		t.Fatalf("coverage broken: missing=%v duplicated=%v", rep.Missing, rep.Duplicated)
	}
	for i, r := range s.Routes {
		if len(r) == 0 {
			t.Fatalf("route %d is empty", i)
		}
		if got := routeDemand(p, r); got != s.Demands[i] {
			t.Fatalf("route %d demand out of sync: slice says %d, services sum to %d", i, s.Demands[i], got)
		}
		if s.Demands[i] > p.Capacity {
			t.Fatalf("route %d demand %d exceeds capacity %d", i, s.Demands[i], p.Capacity)
		}
	}
}

func TestSavings_OrderAndTies(t *testing.T) {
	p := edgeFixture()
	got := Savings(p)
	want := []Saving{
		{Value: 6, I: 1, J: 2},
		{Value: 4, I: 0, J: 2},
		{Value: 4, I: 0, J: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("savings = %+v, want %+v", got, want)
	}
}

func TestRouteCost_DepotRoundTrip(t *testing.T) {
	p := edgeFixture()
	if got := RouteCost(p, Route{0, 2}); got != 7 {
		t.Fatalf("RouteCost([0 2]) = %v, want 7", got)
	}
	if got := RouteCost(p, Route{1}); got != 6 {
		t.Fatalf("RouteCost([1]) = %v, want 6", got)
	}
	if got := RouteCost(p, Route{}); got != 0 {
		t.Fatalf("RouteCost(empty) = %v, want 0", got)
	}
}

func TestGreedyDeterministic_MergesBySavingOrder(t *testing.T) {
	p := edgeFixture()
	s, err := GreedyDeterministic(p)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	// The best saving pairs demands 4 and 5 (9 > 8) and is spent without a
	// merge; the next one joins demands 3 and 5 at exactly the capacity.
	wantRoutes := []Route{{0, 2}, {1}}
	if !reflect.DeepEqual(s.Routes, wantRoutes) {
		t.Fatalf("routes = %v, want %v", s.Routes, wantRoutes)
	}
	if !reflect.DeepEqual(s.Demands, []int{8, 4}) {
		t.Fatalf("demands = %v, want [8 4]", s.Demands)
	}
	checkSolution(t, p, s)
}

func TestGreedyRandomized_DeterministicPerSeed(t *testing.T) {
	p := edgeFixture()
	a, err := GreedyRandomized(p, rand.New(rand.NewSource(42)), 2)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	b, err := GreedyRandomized(p, rand.New(rand.NewSource(42)), 2)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if !reflect.DeepEqual(a.Routes, b.Routes) || !reflect.DeepEqual(a.Demands, b.Demands) {
		t.Fatalf("same seed produced different solutions: %v vs %v", a.Routes, b.Routes)
	}
}

func TestGreedyRandomized_CapacityNeverPairsLargeDemands(t *testing.T) {
	p := edgeFixture()
	for seed := int64(0); seed < 25; seed++ {
		s, err := GreedyRandomized(p, rand.New(rand.NewSource(seed)), 3)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		checkSolution(t, p, s)
		for _, r := range s.Routes {
			has4, has5 := false, false
			for _, si := range r {
				if p.Services[si].Demand == 4 {
					has4 = true
				}
				if p.Services[si].Demand == 5 {
					has5 = true
				}
			}
			if has4 && has5 {
				t.Fatalf("seed %d: demands 4 and 5 share a route: %v", seed, s.Routes)
			}
		}
	}
}

func TestCheckFeasible_DemandOverCapacity(t *testing.T) {
	p := edgeFixture()
	p.Capacity = 4
	err := CheckFeasible(p)
	var cfg *ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfg.ServiceID != 3 || cfg.Demand != 5 {
		t.Fatalf("wrong offender reported: %+v", cfg)
	}

	p.Capacity = 5 // equal to the largest demand is still feasible
	if err := CheckFeasible(p); err != nil {
		t.Fatalf("capacity == max demand should be feasible, got %v", err)
	}
}

func TestPrune_KeepsDemandsAligned(t *testing.T) {
	s := Solution{
		Routes:  []Route{{0}, {}, {1}, {}},
		Demands: []int{3, 0, 4, 0},
	}
	s.prune()
	if !reflect.DeepEqual(s.Routes, []Route{{0}, {1}}) {
		t.Fatalf("routes = %v", s.Routes)
	}
	if !reflect.DeepEqual(s.Demands, []int{3, 4}) {
		t.Fatalf("demands = %v", s.Demands)
	}
}
