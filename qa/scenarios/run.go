package scenarios

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/robotaxi/app"
	"github.com/kilianp07/robotaxi/core/command"
	"github.com/kilianp07/robotaxi/core/logger"
	"github.com/kilianp07/robotaxi/core/metrics"
	"github.com/kilianp07/robotaxi/core/report"
	"github.com/kilianp07/robotaxi/core/sim"
	"github.com/kilianp07/robotaxi/core/triplog"
)

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string              `json:"scenario"`
	Final    report.Snapshot     `json:"final"`
	Pricing  []report.PricePoint `json:"pricing"`
	Commands []command.Result    `json:"commands"`
}

// Options carries optional collaborators of the engine.
type Options struct {
	Logger  logger.Logger
	Sink    metrics.MetricsSink
	TripLog triplog.Store
}

// Run builds an engine for sc and steps it sc.Ticks times, injecting the
// scripted commands. Cancellation of ctx stops the run early; the engine is
// closed in every case.
func Run(ctx context.Context, sc *Scenario, opts Options) (*Result, error) {
	queued := make(map[int][]command.Command, len(sc.Commands))
	for _, c := range sc.Commands {
		cmd, err := command.Parse(c.Kind, c.Count)
		if err != nil {
			return nil, err
		}
		queued[c.At] = append(queued[c.At], cmd)
	}
	sections := sc.EngineSections
	sections.SetDefaults()
	e, err := app.BuildEngine(sections, sim.Deps{Logger: opts.Logger, Sink: opts.Sink, TripLog: opts.TripLog})
	if err != nil {
		return nil, err
	}
	stepCtx := context.WithoutCancel(ctx)
	sample := sc.SampleEvery
	if sample == 0 {
		sample = sections.Simulation.ReportEvery
	}

	res := &Result{Scenario: sc.Name}
	runErr := e.Init(stepCtx)
	for tick := 0; runErr == nil && tick < sc.Ticks && ctx.Err() == nil; tick++ {
		for _, cmd := range queued[tick] {
			e.Queue().Push(cmd, "scenario")
		}
		if runErr = e.Step(stepCtx); runErr != nil {
			break
		}
		res.Commands = append(res.Commands, e.LastResults()...)
		if tick%sample == 0 {
			res.Pricing = append(res.Pricing, e.Snapshot().PricePoint())
		}
	}
	if err := e.Close(stepCtx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, runErr)
	}
	res.Final, _ = e.Reports().Latest()
	return res, nil
}

// Check compares the final snapshot of r with the expectations of sc.
func (s *Scenario) Check(r *Result) error {
	var errs []error
	f := r.Final
	if f.Completed < s.Expect.MinCompleted {
		errs = append(errs, fmt.Errorf("completed %d, expected at least %d", f.Completed, s.Expect.MinCompleted))
	}
	if s.Expect.MaxUnsatisfied > 0 && f.Unsatisfied > s.Expect.MaxUnsatisfied {
		errs = append(errs, fmt.Errorf("unsatisfied %.3f above %.3f", f.Unsatisfied, s.Expect.MaxUnsatisfied))
	}
	if s.Expect.MinProfit != nil && f.Economics.Total.Profit < *s.Expect.MinProfit {
		errs = append(errs, fmt.Errorf("profit %.2f below %.2f", f.Economics.Total.Profit, *s.Expect.MinProfit))
	}
	if s.Expect.MaxUnderfulfilled != nil && f.Underfulfilled > *s.Expect.MaxUnderfulfilled {
		errs = append(errs, fmt.Errorf("%d underfulfilled commands, expected at most %d", f.Underfulfilled, *s.Expect.MaxUnderfulfilled))
	}
	return errors.Join(errs...)
}
