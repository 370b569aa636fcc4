package pipeline

import (
	"context"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/observability"
	"github.com/matzehuels/patchy/pkg/patchy"
	"github.com/matzehuels/patchy/pkg/store"
)

// Runner executes materialization sweeps against a record store.
//
// The Runner is stateless except for the store and logger - it doesn't
// hold sweep results. Multiple goroutines can safely use the same Runner
// with different options, though two concurrent sweeps must not target
// the same split.
type Runner struct {
	Store  store.Store
	Logger *log.Logger
}

// NewRunner creates a runner over the given store.
func NewRunner(st store.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Store: st, Logger: logger}
}

// SplitPlan is one split sweep to execute.
type SplitPlan struct {
	Split   string
	Dataset Dataset
	Epochs  int
	Distort bool
}

// MaterializeAll writes all dataset splits:
//   - train: MaxNumEpochs sweeps of the train set, distorted when
//     DistortInputs is set so each epoch differs
//   - eval: one undistorted sweep of the eval set
//   - train_eval: one undistorted sweep of the train set, written only
//     when DistortInputs is set (otherwise train itself is undistorted)
//
// Splits already present in the store are left untouched unless Force is
// set, provided the stored descriptor matches the requested options. A
// descriptor mismatch with existing data is a configuration error; Force
// overrides it and rewrites everything.
func (r *Runner) MaterializeAll(ctx context.Context, opts Options, train, eval Dataset) ([]SplitResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	channels, err := datasetChannels(train, eval)
	if err != nil {
		return nil, err
	}
	desc := opts.Descriptor(channels)

	existing, err := r.Store.LoadDescriptor(ctx)
	switch {
	case err == nil:
		if !existing.Matches(desc) && !opts.Force {
			return nil, errors.New(errors.ErrCodeInvalidConfig,
				"store holds data written with different parameters; pass force to rewrite")
		}
	case errors.Is(err, errors.ErrCodeNotFound):
		// Fresh store.
	default:
		return nil, err
	}

	plans := []SplitPlan{
		{store.SplitTrain, train, opts.MaxNumEpochs, opts.DistortInputs},
		{store.SplitEval, eval, 1, false},
	}
	if opts.DistortInputs {
		plans = append(plans, SplitPlan{store.SplitTrainEval, train, 1, false})
	}

	var results []SplitResult
	for _, plan := range plans {
		if plan.Dataset == nil || plan.Dataset.Len() == 0 {
			continue
		}
		res, err := r.Materialize(ctx, opts, plan)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}

	if err := r.Store.SaveDescriptor(ctx, store.NewDescriptor(desc)); err != nil {
		return results, err
	}
	return results, nil
}

// Materialize executes one split sweep. Callers normally go through
// MaterializeAll; this is exposed for writing a single split.
func (r *Runner) Materialize(ctx context.Context, opts Options, plan SplitPlan) (SplitResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return SplitResult{}, err
	}

	// Existing splits are reused, not silently rewritten.
	if _, err := r.Store.LoadInfo(ctx, plan.Split); err == nil {
		if !opts.Force {
			opts.Logger.Info("split already materialized, skipping", "split", plan.Split)
			return SplitResult{Split: plan.Split, Reused: true}, nil
		}
		if err := r.Store.Reset(ctx, plan.Split); err != nil {
			return SplitResult{}, err
		}
	} else if !errors.Is(err, errors.ErrCodeNotFound) {
		return SplitResult{}, err
	}

	cfg, err := opts.transformerConfig()
	if err != nil {
		return SplitResult{}, err
	}
	tr, err := patchy.New(cfg)
	if err != nil {
		return SplitResult{}, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	start := time.Now()
	total := plan.Dataset.Len() * plan.Epochs
	observability.Pipeline().OnSplitStart(ctx, plan.Split, total)
	opts.Logger.Info("materializing split",
		"split", plan.Split,
		"examples", plan.Dataset.Len(),
		"epochs", plan.Epochs,
		"distort", plan.Distort)

	res := SplitResult{Split: plan.Split}
	processed := 0
	for epoch := 0; epoch < plan.Epochs; epoch++ {
		for i := 0; i < plan.Dataset.Len(); i++ {
			if err := ctx.Err(); err != nil {
				return res, errors.Wrap(err, errors.ErrCodeInternal, "sweep interrupted")
			}
			processed++

			ex, err := plan.Dataset.Example(i)
			if err != nil {
				return res, err
			}
			g := ex.Graph
			if plan.Distort {
				g = Distort(rng, g)
			}

			out, err := tr.Transform(g)
			if err != nil {
				if !errors.Is(err, errors.ErrCodeGraphShape) {
					return res, err
				}
				// Malformed graphs are dropped, not fatal: one bad example
				// must not abort a long sweep.
				res.Skipped++
				opts.Logger.Warn("skipping malformed graph", "split", plan.Split, "index", i, "err", err)
				observability.Pipeline().OnGraphSkipped(ctx, plan.Split, i, err)
				observability.Pipeline().OnProgress(ctx, plan.Split, processed, total)
				continue
			}

			rec := &store.Record{Features: out.Features, Table: out.Table, Label: ex.Label}
			if err := r.Store.Append(ctx, plan.Split, rec); err != nil {
				return res, err
			}
			res.Written++
			observability.Pipeline().OnProgress(ctx, plan.Split, processed, total)
		}
	}

	if err := r.Store.SaveInfo(ctx, plan.Split, store.SplitInfo{Count: res.Written}); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	observability.Pipeline().OnSplitComplete(ctx, plan.Split, res.Written, res.Skipped, res.Duration, nil)
	opts.Logger.Info("split complete",
		"split", plan.Split,
		"written", res.Written,
		"skipped", res.Skipped,
		"duration", res.Duration)
	return res, nil
}

// datasetChannels returns the feature channel count of the first readable
// example. Zero-node graphs carry no channel information and are passed
// over; a fully empty input yields zero channels.
func datasetChannels(datasets ...Dataset) (int, error) {
	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		for i := 0; i < ds.Len(); i++ {
			ex, err := ds.Example(i)
			if err != nil {
				return 0, err
			}
			if c := ex.Graph.NumChannels(); c > 0 {
				return c, nil
			}
		}
	}
	return 0, nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
