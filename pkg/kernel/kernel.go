// Package kernel drives the trial loop: seed, reset, sample-update until
// the time horizon or quiescence, record.
package kernel

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jihwankim/pssakit/pkg/emergency"
	"github.com/jihwankim/pssakit/pkg/grouping"
	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/report"
	"github.com/jihwankim/pssakit/pkg/sampling"
	"github.com/jihwankim/pssakit/pkg/update"
)

// Config holds everything one trial batch needs beyond the reaction
// network itself.
type Config struct {
	TimeStart    time.Duration
	TimeStep     time.Duration
	TimeEnd      time.Duration
	SamplesTotal int

	Method            kinetics.Method
	InitialPopulation kinetics.InitialPopulationStrategy
	PopulationFunc    kinetics.PopulationFunc

	Trials      int
	Seed        int64
	Concurrency int

	OnEvent    func(*kinetics.DataModel, time.Duration)
	OnProgress func(done, total int, pct float64)
}

// TimePoint is one sampled trajectory record: every subvolume's population
// vector at one trial, at one sample-grid time.
type TimePoint struct {
	Trial      int
	Time       time.Duration
	Population [][]int64
}

// Runner owns the model, its grouping, and the surrounding report/
// emergency plumbing for one batch of trials against one reaction
// network.
type Runner struct {
	Network *kinetics.Network
	Grid    kinetics.GridConfig
	Cfg     Config

	Logger    *report.Logger
	Storage   *report.Storage
	Emergency *emergency.Controller

	ModelName string
}

// RunTrials runs cfg.Trials sequential trials and returns the aggregate
// BatchReport, persisting it via Storage when Storage is set.
func (r *Runner) RunTrials(ctx context.Context) (*report.BatchReport, error) {
	return r.run(ctx, 1)
}

// RunTrialsConcurrent fans trials out over a bounded worker pool — each
// trial owns its own DataModel and *rand.Rand, so no locking is needed
// between them; only result collection is synchronized.
func (r *Runner) RunTrialsConcurrent(ctx context.Context, workers int) (*report.BatchReport, error) {
	if workers < 1 {
		workers = 1
	}
	return r.run(ctx, workers)
}

func (r *Runner) run(ctx context.Context, workers int) (*report.BatchReport, error) {
	start := time.Now()
	batchID := fmt.Sprintf("%d-%d", r.Cfg.Seed, start.UnixNano())

	dm := &kinetics.DataModel{Method: r.Cfg.Method}
	if err := grouping.Preinitialize(dm, r.Network, r.Grid); err != nil {
		return nil, fmt.Errorf("preinitialize: %w", err)
	}

	results := make([]report.TrialResult, r.Cfg.Trials)
	timePoints := make([][]TimePoint, r.Cfg.Trials)

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	var done int
	var mu sync.Mutex

	for trial := 0; trial < r.Cfg.Trials; trial++ {
		if ctx.Err() != nil || (r.Emergency != nil && r.Emergency.IsStopped()) {
			break
		}
		if r.Emergency != nil {
			r.Emergency.SetProgress(emergency.Progress{
				BatchID: batchID, Method: r.Cfg.Method.String(), Trial: trial, Trials: r.Cfg.Trials,
			})
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(trial int) {
			defer wg.Done()
			defer func() { <-sem }()

			trialStart := time.Now()
			points, err := r.runOneTrial(ctx, trial, dm)

			status := report.StatusCompleted
			errMsg := ""
			if err != nil {
				status = report.StatusFailed
				errMsg = err.Error()
				if r.Logger != nil {
					r.Logger.WithBatch(batchID, r.Cfg.Method.String()).WithTrial(trial).Warn("trial failed", "error", err)
				}
			}

			results[trial] = report.TrialResult{
				Trial:    trial,
				Status:   status,
				Error:    errMsg,
				Duration: time.Since(trialStart).String(),
			}
			timePoints[trial] = points

			mu.Lock()
			done++
			if r.Cfg.OnProgress != nil {
				r.Cfg.OnProgress(done, r.Cfg.Trials, float64(done)/float64(r.Cfg.Trials)*100)
			}
			mu.Unlock()
		}(trial)
	}
	wg.Wait()

	batch := &report.BatchReport{
		BatchID:   batchID,
		ModelName: r.ModelName,
		Method:    r.Cfg.Method.String(),
		Trials:    r.Cfg.Trials,
		Seed:      r.Cfg.Seed,
		StartTime: start,
		EndTime:   time.Now(),
	}
	batch.Duration = batch.EndTime.Sub(batch.StartTime).String()

	for _, result := range results {
		if result.Duration == "" {
			continue // trial skipped by ctx cancellation / emergency stop
		}
		batch.Results = append(batch.Results, result)
		if result.Status == report.StatusCompleted {
			batch.Passed++
		} else {
			batch.Failed++
		}
	}
	for _, points := range timePoints {
		for _, p := range points {
			batch.TimePoints = append(batch.TimePoints, report.TimePointRecord{
				Trial:      p.Trial,
				Time:       p.Time.Seconds(),
				Population: p.Population,
			})
		}
	}

	if r.Storage != nil {
		if _, err := r.Storage.SaveReport(batch); err != nil {
			return batch, fmt.Errorf("save report: %w", err)
		}
	}

	return batch, nil
}

// runOneTrial copies the batch's preinitialized DataModel (sharing its
// read-only network copy, topology and PSSA-CR floors), resets the copy via
// Initialize/PostInitialize, seeds a trial-local RNG deterministically from
// (baseSeed, trialIndex), and steps the sample-update loop until TimeEnd or
// quiescence, collecting TimePoints at each crossed sample grid point.
func (r *Runner) runOneTrial(ctx context.Context, trial int, base *kinetics.DataModel) ([]TimePoint, error) {
	model := *base
	dm := &model
	if err := grouping.Initialize(dm, r.Cfg.InitialPopulation, r.Cfg.PopulationFunc); err != nil {
		return nil, err
	}
	if err := grouping.PostInitialize(dm); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(trialSeed(r.Cfg.Seed, trial)))

	var points []TimePoint
	nextSample := r.Cfg.TimeStart
	step := r.Cfg.TimeStep
	now := r.Cfg.TimeStart

	recordUpTo := func(upTo time.Duration) {
		for ; nextSample <= upTo && nextSample <= r.Cfg.TimeEnd; nextSample += step {
			points = append(points, snapshot(dm, trial, nextSample))
		}
	}

	for now < r.Cfg.TimeEnd {
		if ctx.Err() != nil {
			return points, ctx.Err()
		}
		if r.Emergency != nil && r.Emergency.IsStopped() {
			return points, nil
		}

		if dm.TotalPropensity <= 0 && dm.Delayed.Len() == 0 {
			break
		}

		ev, tau, err := sampling.Draw(dm, now, rng)
		if err != nil {
			return points, err
		}

		now += tau
		if now > r.Cfg.TimeEnd {
			now = r.Cfg.TimeEnd
			recordUpTo(now)
			break
		}
		recordUpTo(now)

		if err := update.Update(dm, ev); err != nil {
			return points, err
		}

		if r.Cfg.OnEvent != nil {
			r.Cfg.OnEvent(dm, now)
		}
	}
	recordUpTo(r.Cfg.TimeEnd)

	return points, nil
}

func snapshot(dm *kinetics.DataModel, trial int, t time.Duration) TimePoint {
	pop := make([][]int64, len(dm.Subvolumes))
	for i, sv := range dm.Subvolumes {
		pop[i] = append([]int64(nil), sv.Population...)
	}
	return TimePoint{Trial: trial, Time: t, Population: pop}
}

// trialSeed derives a per-trial seed deterministically from the batch's
// base seed and the trial index, so RunTrials and RunTrialsConcurrent
// produce identical per-trial trajectories regardless of goroutine
// scheduling order.
func trialSeed(base int64, trial int) int64 {
	h := uint64(base)*2654435761 + uint64(trial)*40503
	return int64(h)
}
