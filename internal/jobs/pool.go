// Package jobs runs kinematic and quasi-static analyses on a bounded pool of
// workers fed from a six-level priority queue.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

var (
	// ErrCancelled is reported for jobs dropped before a worker ran them:
	// their generation was abandoned, their context ended or the pool closed.
	ErrCancelled = errors.New("jobs: job cancelled")
	// ErrClosed is returned by Submit once Close has been called.
	ErrClosed = errors.New("jobs: pool closed")
)

// Analyzer is the solver surface the pool drives. *core.Solver satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, car *model.Car, in model.KinematicsInputs) (*core.Result, error)
	QuasiStatic(ctx context.Context, car *model.Car, q model.QuasiStaticInputs) (*core.QuasiStaticResult, error)
}

// Recorder receives queue measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	SetQueued(count int)
	SetBusy(count int)
	ObserveJob(priority, outcome string, elapsed time.Duration)
}

// Config sizes the pool.
type Config struct {
	// Workers defaults to runtime.NumCPU().
	Workers int
	// ResultBuffer is the capacity of the shared Results channel.
	ResultBuffer int
}

// ApplyDefaults fills unset fields.
func (c Config) ApplyDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ResultBuffer <= 0 {
		c.ResultBuffer = 64
	}
	return c
}

// Job is one analysis request. Car is the original car; the solver clones it
// under its read lock, so editors may keep mutating it under the write lock.
type Job struct {
	// ID is assigned by Submit when empty.
	ID string
	// Name and Index let consumers key results; the pool does not read them.
	Name  string
	Index int
	// Generation tags the job for Abandon. Zero is never abandoned.
	Generation uint64
	Priority   Priority

	Car    *model.Car
	Inputs model.KinematicsInputs
	// QuasiStatic selects a quasi-static analysis instead of a single solve.
	QuasiStatic *model.QuasiStaticInputs

	// Reply receives the result when set; otherwise it goes to Results.
	Reply chan<- Result
}

// Result is posted once per submitted job.
type Result struct {
	Job         Job
	Kinematics  *core.Result
	QuasiStatic *core.QuasiStaticResult
	Err         error
	Elapsed     time.Duration
}

type entry struct {
	ctx context.Context
	job Job
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRecorder attaches queue metrics.
func WithRecorder(r Recorder) Option {
	return func(p *Pool) { p.rec = r }
}

// Pool is a fixed set of workers consuming a priority queue. Jobs at the same
// priority start in submission order; results of independent jobs arrive in
// completion order.
type Pool struct {
	cfg    Config
	solver Analyzer
	log    logging.Logger
	rec    Recorder

	queue *queue

	mu        sync.Mutex
	cond      *sync.Cond
	closed    bool
	abandoned map[uint64]struct{}

	generation atomic.Uint64
	busy       atomic.Int64

	results   chan Result
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts cfg.Workers workers running jobs against solver.
func NewPool(solver Analyzer, cfg Config, opts ...Option) *Pool {
	cfg = cfg.ApplyDefaults()
	p := &Pool{
		cfg:       cfg,
		solver:    solver,
		log:       logging.Noop(),
		queue:     newQueue(),
		abandoned: make(map[uint64]struct{}),
		results:   make(chan Result, cfg.ResultBuffer),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	p.log.Debug(context.Background(), "job pool started", logging.Int("workers", cfg.Workers))
	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.cfg.Workers }

// Results carries results of jobs submitted without a Reply channel. It is
// closed after Close returns.
func (p *Pool) Results() <-chan Result { return p.results }

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *Pool) Pending() int { return p.queue.Len() }

// NewGeneration returns a fresh generation tag.
func (p *Pool) NewGeneration() uint64 {
	return p.generation.Add(1)
}

// Abandon posts the exit command for generation: workers report its queued
// jobs as ErrCancelled at their next pop. Jobs already running complete and
// deliver their results normally.
func (p *Pool) Abandon(generation uint64) {
	if generation == 0 {
		return
	}
	p.mu.Lock()
	p.abandoned[generation] = struct{}{}
	p.mu.Unlock()
	p.log.Debug(context.Background(), "generation abandoned", logging.Any("generation", generation))
}

// Submit queues job and returns its ID. ctx is carried into the solve for
// tracing and request-scoped logging; if it ends before a worker picks the
// job up, the job is reported as ErrCancelled.
func (p *Pool) Submit(ctx context.Context, job Job) (string, error) {
	if job.Car == nil {
		return "", fmt.Errorf("%w: job has no car", model.ErrInvalidConfiguration)
	}
	if !job.Priority.Valid() {
		return "", fmt.Errorf("%w: job priority %d", model.ErrInvalidConfiguration, int(job.Priority))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrClosed
	}
	p.queue.Push(&entry{ctx: ctx, job: job})
	p.cond.Signal()
	p.mu.Unlock()

	if p.rec != nil {
		p.rec.SetQueued(p.queue.Len())
	}
	return job.ID, nil
}

// Close stops the workers after their current job and reports every job
// still queued as ErrCancelled. Results must be drained until it is closed,
// otherwise Close blocks on delivery.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.cond.Broadcast()
		p.mu.Unlock()

		p.wg.Wait()
		for _, e := range p.queue.drain() {
			p.deliver(e, Result{Job: e.job, Err: ErrCancelled}, 0)
		}
		if p.rec != nil {
			p.rec.SetQueued(0)
		}
		close(p.results)
		p.log.Debug(context.Background(), "job pool stopped")
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		e, cancelled, ok := p.next()
		if !ok {
			return
		}
		if cancelled {
			p.deliver(e, Result{Job: e.job, Err: ErrCancelled}, 0)
			continue
		}
		p.run(e)
	}
}

// next blocks until a job is available or the pool closes.
func (p *Pool) next() (e *entry, cancelled, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return nil, false, false
		}
		if e = p.queue.Pop(); e != nil {
			if p.rec != nil {
				p.rec.SetQueued(p.queue.Len())
			}
			_, gone := p.abandoned[e.job.Generation]
			return e, gone, true
		}
		p.cond.Wait()
	}
}

func (p *Pool) run(e *entry) {
	if err := e.ctx.Err(); err != nil {
		p.deliver(e, Result{Job: e.job, Err: fmt.Errorf("%w: %w", ErrCancelled, err)}, 0)
		return
	}
	if p.rec != nil {
		p.rec.SetBusy(int(p.busy.Add(1)))
	}
	start := time.Now()

	// Solves are short and run to completion once started.
	ctx := context.WithoutCancel(e.ctx)
	if logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRequestID(ctx, e.job.ID)
	}
	res := Result{Job: e.job}
	if e.job.QuasiStatic != nil {
		res.QuasiStatic, res.Err = p.solver.QuasiStatic(ctx, e.job.Car, *e.job.QuasiStatic)
	} else {
		res.Kinematics, res.Err = p.solver.Analyze(ctx, e.job.Car, e.job.Inputs)
	}
	elapsed := time.Since(start)

	if p.rec != nil {
		p.rec.SetBusy(int(p.busy.Add(-1)))
	}
	p.deliver(e, res, elapsed)
}

func (p *Pool) deliver(e *entry, res Result, elapsed time.Duration) {
	res.Elapsed = elapsed
	outcome := Outcome(res.Err)
	if p.rec != nil {
		p.rec.ObserveJob(e.job.Priority.String(), outcome, elapsed)
	}
	p.log.Debug(e.ctx, "job finished",
		logging.String("job_id", e.job.ID),
		logging.String("name", e.job.Name),
		logging.Int("index", e.job.Index),
		logging.String("priority", e.job.Priority.String()),
		logging.String("outcome", outcome),
		logging.Bool("quasi_static", e.job.QuasiStatic != nil),
		logging.Duration("elapsed", elapsed),
	)
	if e.job.Reply != nil {
		e.job.Reply <- res
		return
	}
	p.results <- res
}

// Outcome labels err the way core.Outcome does, adding "cancelled" for jobs
// the pool dropped.
func Outcome(err error) string {
	if errors.Is(err, ErrCancelled) {
		return "cancelled"
	}
	return core.Outcome(err)
}
