// Package sweep runs a car through a deterministic series of attitudes on the
// job pool and hands the results back in step order.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/jobs"
	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// Plan interpolates every attitude input linearly from From to To. Steps is
// the number of analyses including both ends; the sequence is taken from
// From.
type Plan struct {
	From  model.KinematicsInputs
	To    model.KinematicsInputs
	Steps int
}

// Heave sweeps heave from lo to hi with everything else at rest.
func Heave(lo, hi float64, steps int) Plan {
	return Plan{
		From:  model.KinematicsInputs{Heave: lo},
		To:    model.KinematicsInputs{Heave: hi},
		Steps: steps,
	}
}

// Inputs expands the plan into one command per step.
func (p Plan) Inputs() ([]model.KinematicsInputs, error) {
	if p.Steps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one step, got %d", model.ErrInvalidConfiguration, p.Steps)
	}
	out := make([]model.KinematicsInputs, p.Steps)
	for i := range out {
		t := 0.0
		if p.Steps > 1 {
			t = float64(i) / float64(p.Steps-1)
		}
		out[i] = interpolate(p.From, p.To, t)
	}
	return out, nil
}

func interpolate(a, b model.KinematicsInputs, t float64) model.KinematicsInputs {
	lerp := func(x, y float64) float64 { return x + (y-x)*t }
	in := model.KinematicsInputs{
		Pitch:            lerp(a.Pitch, b.Pitch),
		Roll:             lerp(a.Roll, b.Roll),
		Heave:            lerp(a.Heave, b.Heave),
		RackTravel:       lerp(a.RackTravel, b.RackTravel),
		CenterOfRotation: a.CenterOfRotation.Add(b.CenterOfRotation.Sub(a.CenterOfRotation).Mul(t)),
		Sequence:         a.Sequence,
	}
	for _, loc := range model.Locations {
		in.TireDeflections.Set(loc, lerp(a.TireDeflections.Get(loc), b.TireDeflections.Get(loc)))
	}
	return in
}

// Step is the outcome of one sweep point. A failed step carries its error
// and the sweep moves on.
type Step struct {
	Index  int
	Inputs model.KinematicsInputs
	Result *core.Result
	Err    error
}

// Runner submits sweeps to a job pool.
type Runner struct {
	pool     *jobs.Pool
	priority jobs.Priority
	log      logging.Logger

	mu        sync.RWMutex
	listeners []func(Step)
}

// Option configures a Runner.
type Option func(*Runner)

// WithPriority sets the queue priority of sweep jobs. The default is Normal.
func WithPriority(p jobs.Priority) Option {
	return func(r *Runner) { r.priority = p }
}

// WithLogger sets the runner logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner constructs a runner on pool.
func NewRunner(pool *jobs.Pool, opts ...Option) *Runner {
	r := &Runner{pool: pool, priority: jobs.Normal, log: logging.Noop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// AddListener registers a callback invoked for every step, in index order,
// once the whole sweep has been collected.
func (r *Runner) AddListener(fn func(Step)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Run analyses car at every point of plan under a fresh generation. If ctx
// ends first the generation is abandoned and ctx's error returned; jobs
// already running finish and are discarded.
func (r *Runner) Run(ctx context.Context, car *model.Car, plan Plan) ([]Step, error) {
	inputs, err := plan.Inputs()
	if err != nil {
		return nil, err
	}
	gen := r.pool.NewGeneration()
	reply := make(chan jobs.Result, len(inputs))
	for i, in := range inputs {
		job := jobs.Job{
			Name:       "sweep",
			Index:      i,
			Generation: gen,
			Priority:   r.priority,
			Car:        car,
			Inputs:     in,
			Reply:      reply,
		}
		if _, err := r.pool.Submit(ctx, job); err != nil {
			r.pool.Abandon(gen)
			return nil, fmt.Errorf("submit sweep step %d: %w", i, err)
		}
	}

	steps := make([]Step, 0, len(inputs))
	for len(steps) < len(inputs) {
		select {
		case <-ctx.Done():
			r.pool.Abandon(gen)
			r.log.Info(ctx, "sweep abandoned",
				logging.Int("collected", len(steps)),
				logging.Int("steps", len(inputs)),
			)
			return nil, ctx.Err()
		case res := <-reply:
			steps = append(steps, Step{
				Index:  res.Job.Index,
				Inputs: res.Job.Inputs,
				Result: res.Kinematics,
				Err:    res.Err,
			})
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Index < steps[j].Index })

	failed := 0
	for _, s := range steps {
		if s.Err != nil {
			failed++
		}
	}
	r.log.Debug(ctx, "sweep finished", logging.Int("steps", len(steps)), logging.Int("failed", failed))

	r.mu.RLock()
	listeners := append([]func(Step){}, r.listeners...)
	r.mu.RUnlock()
	for _, s := range steps {
		for _, fn := range listeners {
			fn(s)
		}
	}
	return steps, nil
}
