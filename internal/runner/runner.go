// Package runner executes solver runs: one-shot files and directory batches
// for the CLI, and a bounded worker pool for the API server.
package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MatheusssGM/Grafos/internal/instance"
	"github.com/MatheusssGM/Grafos/internal/metrics"
	"github.com/MatheusssGM/Grafos/internal/solution"
	"github.com/MatheusssGM/Grafos/internal/solver"
)

// Options carries the solver knobs shared by both entry points.
type Options struct {
	Trials   int
	PoolSize int
	SeedBase int64
}

func (o Options) params() solver.Params {
	return solver.Params{Trials: o.Trials, PoolSize: o.PoolSize, SeedBase: o.SeedBase}
}

// SolveFile parses one .dat instance, solves it, and writes sol-<name> into
// outDir.
func SolveFile(path, outDir string, opts Options, log zerolog.Logger) error {
	inst, err := instance.Load(path)
	if err != nil {
		return err
	}
	if inst.BadLines > 0 {
		log.Warn().Str("instance", inst.Name).Int("badLines", inst.BadLines).Msg("skipped malformed lines")
	}
	p := inst.Problem()
	start := time.Now()
	res, err := solver.Solve(p, opts.params(), log)
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", inst.Name, err)
	}
	out := filepath.Join(outDir, "sol-"+inst.Name)
	if err := solution.Write(out, p, res); err != nil {
		return err
	}
	log.Info().Str("instance", inst.Name).Float64("cost", res.Best.Cost).Int("routes", len(res.Best.Routes)).Str("out", out).Msg("solved")
	return nil
}

// BatchResult tallies a directory run.
type BatchResult struct {
	Solved int
	Failed int
}

// Batch solves every .dat file in inDir on a fixed number of workers,
// writing sol-<name> files into outDir. Files are picked up in sorted order;
// per-file failures are counted and logged, never fatal. An empty directory
// is a warning, not an error.
func Batch(inDir, outDir string, workers int, opts Options, log zerolog.Logger) (BatchResult, error) {
	info, err := os.Stat(inDir)
	if err != nil || !info.IsDir() {
		return BatchResult{}, fmt.Errorf("input directory %q not found", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return BatchResult{}, err
	}
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return BatchResult{}, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".dat") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Warn().Str("dir", inDir).Msg("no .dat files to solve")
		return BatchResult{}, nil
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	var mu sync.Mutex
	res := BatchResult{}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				metrics.PoolBusy.Inc()
				err := SolveFile(filepath.Join(inDir, name), outDir, opts, log)
				metrics.PoolBusy.Dec()
				mu.Lock()
				if err != nil {
					res.Failed++
					log.Error().Err(err).Str("instance", name).Msg("solve failed")
				} else {
					res.Solved++
				}
				mu.Unlock()
			}
		}()
	}
	for _, name := range files {
		jobs <- name
	}
	close(jobs)
	wg.Wait()
	return res, nil
}
