package solver

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Params tunes one multi-start run.
type Params struct {
	Trials   int
	PoolSize int // GRASP candidate pool size (top-k)
	SeedBase int64

	// Progress, when set, is told about every new incumbent. The trial
	// number is 1-based.
	Progress func(trial int, cost float64, routes int)
}

// Result carries the best valid solution of a run plus the two timing
// offsets recorded for the output header: nanoseconds from loop start to the
// start of the winning trial (-1 when every trial was disqualified) and the
// total loop duration. The trial tallies break the run down by outcome.
type Result struct {
	Best        Solution
	TotalNs     int64
	BestFoundNs int64

	TrialsImproved     int
	TrialsDisqualified int
}

// betterThan decides whether a candidate replaces the incumbent: strictly
// lower cost wins, an exact cost tie goes to fewer routes, anything else
// keeps the incumbent.
func betterThan(cost float64, routes int, bestCost float64, bestRoutes int) bool {
	if cost < bestCost {
		return true
	}
	return cost == bestCost && routes < bestRoutes
}

// Solve runs the full pipeline — randomized construction, VND descent,
// segment relocation — once per trial and keeps the best valid outcome.
// Trial t draws its seed as SeedBase+t, so identical inputs reproduce
// identical best cost and route count. Invalid trials are logged and
// skipped; a coverage divergence inside the engine aborts the whole run.
func Solve(p Problem, params Params, log zerolog.Logger) (Result, error) {
	if err := CheckFeasible(p); err != nil {
		return Result{}, err
	}
	if params.Trials < 1 {
		params.Trials = 1
	}
	if params.PoolSize < 1 {
		params.PoolSize = 1
	}

	res := Result{BestFoundNs: -1}
	bestRoutes := 0
	found := false
	start := time.Now()
	for t := 0; t < params.Trials; t++ {
		trialStart := time.Since(start).Nanoseconds()
		rng := rand.New(rand.NewSource(params.SeedBase + int64(t)))

		sol, err := GreedyRandomized(p, rng, params.PoolSize)
		if err != nil {
			return Result{}, err
		}
		VND(p, &sol)
		if err := SegmentRelocate(p, &sol); err != nil {
			return Result{}, err
		}
		sol.Cost = totalCost(p, sol)

		if rep := CheckCoverage(p, sol); !rep.OK() {
			res.TrialsDisqualified++
			log.Warn().Int("trial", t+1).Ints("missing", rep.Missing).Ints("duplicated", rep.Duplicated).Msg("trial disqualified")
			continue
		}
		if !found || betterThan(sol.Cost, len(sol.Routes), res.Best.Cost, bestRoutes) {
			res.Best = sol
			bestRoutes = len(sol.Routes)
			res.BestFoundNs = trialStart
			res.TrialsImproved++
			found = true
			log.Info().Int("trial", t+1).Float64("cost", sol.Cost).Int("routes", bestRoutes).Msg("new best solution")
			if params.Progress != nil {
				params.Progress(t+1, sol.Cost, bestRoutes)
			}
		}
	}
	res.TotalNs = time.Since(start).Nanoseconds()
	if !found {
		return res, ErrNoValidSolution
	}
	return res, nil
}
