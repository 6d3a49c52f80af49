package runner

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MatheusssGM/Grafos/internal/instance"
	"github.com/MatheusssGM/Grafos/internal/metrics"
	"github.com/MatheusssGM/Grafos/internal/model"
	"github.com/MatheusssGM/Grafos/internal/solution"
	"github.com/MatheusssGM/Grafos/internal/solver"
	"github.com/MatheusssGM/Grafos/internal/store"
)

// Events receives run lifecycle events for fan-out to websocket clients and
// webhook subscribers.
type Events interface {
	Publish(ev model.RunEvent)
}

// Pool executes queued runs on a fixed number of workers. Submit never
// blocks: a full queue is reported to the caller instead of stalling the
// API handler.
type Pool struct {
	store  store.Store
	events Events
	opts   Options
	log    zerolog.Logger

	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	runID string
	name  string
	data  []byte
}

func NewPool(s store.Store, ev Events, workers int, opts Options, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{store: s, events: ev, opts: opts, log: log, jobs: make(chan job, 64)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				p.runOne(j)
			}
		}()
	}
	return p
}

// Submit queues a run, reporting false when the queue is full.
func (p *Pool) Submit(runID, name string, data []byte) bool {
	select {
	case p.jobs <- job{runID: runID, name: name, data: data}:
		return true
	default:
		return false
	}
}

// Close stops intake, drains the queue, and waits for in-flight runs.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pool) runOne(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	metrics.PoolBusy.Inc()
	defer metrics.PoolBusy.Dec()

	run, err := p.store.GetRun(ctx, j.runID)
	if err != nil {
		p.log.Error().Err(err).Str("run", j.runID).Msg("queued run vanished")
		return
	}
	run.Status = model.StatusRunning
	run.StartedAt = time.Now().UTC().Format(time.RFC3339)
	if err := p.store.UpdateRun(ctx, run); err != nil {
		p.log.Error().Err(err).Str("run", run.ID).Msg("mark running failed")
		return
	}
	p.publish(run.ID, model.EventStarted, map[string]any{"instance": run.Instance})

	inst, err := instance.Parse(bytes.NewReader(j.data), j.name)
	if err != nil {
		p.finish(ctx, run, model.StatusFailed, err.Error())
		return
	}
	prob := inst.Problem()
	params := p.opts.params()
	if run.Params.Trials > 0 {
		params.Trials = run.Params.Trials
	}
	if run.Params.PoolSize > 0 {
		params.PoolSize = run.Params.PoolSize
	}
	if run.Params.SeedBase != 0 {
		params.SeedBase = run.Params.SeedBase
	}
	params.Progress = func(trial int, cost float64, routes int) {
		p.publish(run.ID, model.EventImproved, map[string]any{"trial": trial, "cost": cost, "routes": routes})
	}

	start := time.Now()
	res, err := solver.Solve(prob, params, p.log.With().Str("run", run.ID).Logger())
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := model.StatusFailed
		if errors.Is(err, solver.ErrNoValidSolution) {
			status = model.StatusNoSolution
		}
		p.finish(ctx, run, status, err.Error())
		return
	}

	metrics.TrialsTotal.WithLabelValues("improved").Add(float64(res.TrialsImproved))
	metrics.TrialsTotal.WithLabelValues("disqualified").Add(float64(res.TrialsDisqualified))
	if kept := params.Trials - res.TrialsImproved - res.TrialsDisqualified; kept > 0 {
		metrics.TrialsTotal.WithLabelValues("kept").Add(float64(kept))
	}

	if err := p.store.SaveSolution(ctx, run.ID, solution.Render(prob, res)); err != nil {
		p.finish(ctx, run, model.StatusFailed, err.Error())
		return
	}
	run.Status = model.StatusDone
	run.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	run.Result = &model.RunResult{
		Cost:        res.Best.Cost,
		Routes:      len(res.Best.Routes),
		Services:    len(prob.Services),
		BadLines:    inst.BadLines,
		TotalNs:     res.TotalNs,
		BestFoundNs: res.BestFoundNs,
	}
	if err := p.store.UpdateRun(ctx, run); err != nil {
		p.log.Error().Err(err).Str("run", run.ID).Msg("mark done failed")
		return
	}
	metrics.RunsTotal.WithLabelValues(model.StatusDone).Inc()
	p.publish(run.ID, model.EventDone, map[string]any{"cost": run.Result.Cost, "routes": run.Result.Routes})
	p.log.Info().Str("run", run.ID).Str("instance", run.Instance).Float64("cost", run.Result.Cost).Int("routes", run.Result.Routes).Msg("run done")
}

// finish parks a run in a terminal non-success state and tells subscribers.
func (p *Pool) finish(ctx context.Context, run model.Run, status, msg string) {
	run.Status = status
	run.Error = msg
	run.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	if err := p.store.UpdateRun(ctx, run); err != nil {
		p.log.Error().Err(err).Str("run", run.ID).Msg("mark terminal failed")
	}
	metrics.RunsTotal.WithLabelValues(status).Inc()
	p.publish(run.ID, model.EventFailed, map[string]any{"status": status, "error": msg})
	p.log.Warn().Str("run", run.ID).Str("status", status).Str("error", msg).Msg("run did not produce a solution")
}

func (p *Pool) publish(runID, typ string, data map[string]any) {
	if p.events == nil {
		return
	}
	p.events.Publish(model.RunEvent{RunID: runID, Type: typ, TS: time.Now().UTC().Format(time.RFC3339), Data: data})
}
