package solver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestBetterThan_SelectionRule(t *testing.T) {
	cases := []struct {
		name       string
		cost       float64
		routes     int
		bestCost   float64
		bestRoutes int
		want       bool
	}{
		{"fewer routes win an exact cost tie", 100, 2, 100, 3, true},
		{"more routes lose an exact cost tie", 100, 3, 100, 2, false},
		{"lower cost beats fewer routes", 90, 5, 100, 2, true},
		{"higher cost never wins", 110, 1, 100, 5, false},
		{"full tie keeps the incumbent", 100, 3, 100, 3, false},
	}
	for _, c := range cases {
		if got := betterThan(c.cost, c.routes, c.bestCost, c.bestRoutes); got != c.want {
			t.Fatalf("%s: betterThan(%v,%d vs %v,%d) = %v, want %v",
				c.name, c.cost, c.routes, c.bestCost, c.bestRoutes, got, c.want)
		}
	}
}

func TestSolve_DeterministicForSeedBase(t *testing.T) {
	p := edgeFixture()
	params := Params{Trials: 5, PoolSize: 2, SeedBase: 12345}
	a, err := Solve(p, params, zerolog.Nop())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	b, err := Solve(p, params, zerolog.Nop())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if a.Best.Cost != b.Best.Cost || len(a.Best.Routes) != len(b.Best.Routes) {
		t.Fatalf("repeated run diverged: cost %v/%v routes %d/%d",
			a.Best.Cost, b.Best.Cost, len(a.Best.Routes), len(b.Best.Routes))
	}
	if !reflect.DeepEqual(a.Best.Routes, b.Best.Routes) {
		t.Fatalf("repeated run picked different routes: %v vs %v", a.Best.Routes, b.Best.Routes)
	}
	checkSolution(t, p, a.Best)
}

func TestSolve_TimingOffsetsRecorded(t *testing.T) {
	p := clusterFixture()
	res, err := Solve(p, Params{Trials: 3, PoolSize: 2, SeedBase: 7}, zerolog.Nop())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.BestFoundNs < 0 {
		t.Fatalf("best-found offset missing: %d", res.BestFoundNs)
	}
	if res.TotalNs < res.BestFoundNs {
		t.Fatalf("total %d precedes best-found %d", res.TotalNs, res.BestFoundNs)
	}
	if res.TrialsImproved < 1 || res.TrialsImproved > 3 {
		t.Fatalf("improved tally out of range: %d", res.TrialsImproved)
	}
	if res.TrialsDisqualified != 0 {
		t.Fatalf("no trial should be disqualified on a feasible fixture, got %d", res.TrialsDisqualified)
	}
}

func TestSolve_ProgressSeesImprovements(t *testing.T) {
	p := edgeFixture()
	var trials []int
	params := Params{Trials: 4, PoolSize: 2, SeedBase: 1,
		Progress: func(trial int, cost float64, routes int) { trials = append(trials, trial) }}
	if _, err := Solve(p, params, zerolog.Nop()); err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(trials) == 0 {
		t.Fatalf("progress callback never fired")
	}
	if trials[0] != 1 {
		t.Fatalf("first improvement must come from trial 1, got %d", trials[0])
	}
	for i := 1; i < len(trials); i++ {
		if trials[i] <= trials[i-1] {
			t.Fatalf("trial numbers must increase: %v", trials)
		}
	}
}

func TestSolve_InfeasibleInstanceAborts(t *testing.T) {
	p := edgeFixture()
	p.Capacity = 4
	_, err := Solve(p, Params{Trials: 2, PoolSize: 2, SeedBase: 1}, zerolog.Nop())
	var cfg *ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestSolve_EmptyCatalog(t *testing.T) {
	p := edgeFixture()
	p.Services = nil
	res, err := Solve(p, Params{Trials: 2, PoolSize: 2, SeedBase: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Best.Cost != 0 || len(res.Best.Routes) != 0 {
		t.Fatalf("empty catalog should solve to nothing, got cost %v routes %v", res.Best.Cost, res.Best.Routes)
	}
}
