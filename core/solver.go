package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

const tracerName = "github.com/signalsfoundry/suspension-kinematics/core"

// Recorder receives one observation per finished analysis. kind is
// "kinematics" or "quasi_static"; outcome is Outcome(err).
type Recorder interface {
	ObserveAnalysis(kind, outcome string, elapsed time.Duration, iterations int)
}

// Solver runs kinematic and quasi-static analyses. A Solver holds no state
// between calls apart from a cache of corner step orders and is safe for
// concurrent use.
type Solver struct {
	cfg      SolverConfig
	qsCfg    QuasiStaticConfig
	log      logging.Logger
	tracer   trace.Tracer
	recorder Recorder

	mu     sync.Mutex
	orders map[orderKey][]solveStep
}

// Option configures a Solver.
type Option func(*Solver)

// WithConfig overrides the solver configuration.
func WithConfig(cfg SolverConfig) Option {
	return func(s *Solver) { s.cfg = cfg.ApplyDefaults() }
}

// WithQuasiStaticConfig overrides the force-balance configuration.
func WithQuasiStaticConfig(cfg QuasiStaticConfig) Option {
	return func(s *Solver) { s.qsCfg = cfg.ApplyDefaults() }
}

// WithLogger injects the log sink. The default drops everything.
func WithLogger(l logging.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracer overrides the tracer used for analysis spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Solver) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithRecorder attaches an analysis metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Solver) { s.recorder = r }
}

// NewSolver builds a Solver with defaults completed by opts.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		cfg:    DefaultSolverConfig(),
		qsCfg:  DefaultQuasiStaticConfig(),
		log:    logging.Noop(),
		tracer: otel.Tracer(tracerName),
		orders: make(map[orderKey][]solveStep),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective solver configuration.
func (s *Solver) Config() SolverConfig { return s.cfg }

// Result is the outcome of one kinematic analysis.
type Result struct {
	Inputs model.KinematicsInputs
	// Original is the validated snapshot the analysis borrowed.
	Original *model.Car
	// Working holds the solved positions, kept for rendering.
	Working    *model.Car
	Outputs    Outputs
	Iterations model.WheelSet[int]
}

// solution is the scratch state of one solve.
type solution struct {
	in   model.KinematicsInputs
	ref  *model.Car
	soft *model.Car
	work *model.Car
	att  attitude

	spin       model.WheelSet[model.Point]
	iterations model.WheelSet[int]
	mirrored   bool
}

// Analyze solves the car under one attitude command and computes every
// output. The car is cloned under its read lock and never modified.
func (s *Solver) Analyze(ctx context.Context, car *model.Car, in model.KinematicsInputs) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "core.Analyze", trace.WithAttributes(
		attribute.Float64("kinematics.pitch", in.Pitch),
		attribute.Float64("kinematics.roll", in.Roll),
		attribute.Float64("kinematics.heave", in.Heave),
		attribute.Float64("kinematics.rack_travel", in.RackTravel),
		attribute.String("kinematics.sequence", in.Sequence.String()),
	))
	defer span.End()

	res, err := s.analyze(ctx, car, in)
	iterations := 0
	if res != nil {
		for _, loc := range model.Locations {
			iterations += res.Iterations.Get(loc)
		}
	}
	s.observe("kinematics", err, time.Since(start), iterations)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn(ctx, "kinematic analysis failed", failureFields(err)...)
		return nil, err
	}
	return res, nil
}

func (s *Solver) analyze(ctx context.Context, car *model.Car, in model.KinematicsInputs) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref := car.Clone()
	ref.UpdateDerivedPoints()
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	sol, err := s.solve(ctx, ref, in)
	if err != nil {
		return nil, err
	}
	outputs, err := s.computeOutputs(sol)
	if err != nil {
		return nil, err
	}
	return &Result{
		Inputs:     in,
		Original:   ref,
		Working:    sol.work,
		Outputs:    outputs,
		Iterations: sol.iterations,
	}, nil
}

// Solve positions every point for the command without computing outputs.
// The car must already be valid.
func (s *Solver) Solve(ctx context.Context, car *model.Car, in model.KinematicsInputs) (*model.Car, error) {
	ref := car.Clone()
	ref.UpdateDerivedPoints()
	sol, err := s.solve(ctx, ref, in)
	if err != nil {
		return nil, err
	}
	return sol.work, nil
}

func (s *Solver) solve(ctx context.Context, ref *model.Car, in model.KinematicsInputs) (*solution, error) {
	soft := ref.Clone()
	att := moveSprungMass(soft, in)
	sol := &solution{
		in:   in,
		ref:  ref,
		soft: soft,
		work: soft.Clone(),
		att:  att,
	}

	sol.mirrored = ref.Suspension.IsSymmetric && in.IsLaterallySymmetric()
	locs := model.Locations[:]
	if sol.mirrored {
		locs = []model.Location{model.RightFront, model.RightRear}
	}
	span := trace.SpanFromContext(ctx)
	for _, loc := range locs {
		cs, err := s.solveCorner(sol, loc, 0)
		if err != nil {
			return nil, err
		}
		*sol.work.Suspension.Corner(loc) = cs.out
		sol.spin.Set(loc, cs.spin)
		sol.iterations.Set(loc, cs.iterations)
		span.AddEvent("corner solved", trace.WithAttributes(
			attribute.String("corner", loc.String()),
			attribute.Int("iterations", cs.iterations),
		))
		s.log.Debug(ctx, "corner solved",
			logging.String("corner", loc.String()),
			logging.Int("iterations", cs.iterations),
			logging.Float64("residual", cs.residual),
		)
	}
	if sol.mirrored {
		for _, loc := range locs {
			left := loc.Opposite()
			*sol.work.Suspension.Corner(left) = sol.work.Suspension.Corner(loc).Mirrored(left)
			sol.spin.Set(left, model.Mirror(sol.spin.Get(loc)))
			sol.iterations.Set(left, sol.iterations.Get(loc))
		}
	}
	for _, axle := range []model.Axle{model.Front, model.Rear} {
		sol.moveThirdElements(axle)
	}
	return sol, nil
}

// solveCorner solves one corner against the moved sprung mass. groundOffset
// lengthens the loaded radius, raising the wheel relative to the ground.
func (s *Solver) solveCorner(sol *solution, loc model.Location, groundOffset float64) (*cornerSolve, error) {
	axle := sol.ref.Suspension.Axle(loc.Axle())
	loaded := sol.ref.TireRadius(loc) - sol.in.TireDeflections.Get(loc) + groundOffset
	driven := sol.ref.Drivetrain.IsDriven(loc)
	cs := newCornerSolve(sol.ref.Suspension.Corner(loc), sol.soft.Suspension.Corner(loc), axle, driven, s.cfg, loaded)
	if axle.BarStyle != model.BarNone {
		cs.barPivot, cs.barDir = barAxis(&sol.soft.Suspension, loc, axle.BarStyle)
	}
	order, err := s.order(cs.key())
	if err != nil {
		return nil, err
	}
	if err := cs.run(order); err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *Solver) order(key orderKey) ([]solveStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.orders[key]; ok {
		return order, nil
	}
	order, err := solveOrder(key)
	if err != nil {
		return nil, err
	}
	s.orders[key] = order
	return order, nil
}

// moveThirdElements slides the third spring and damper shuttles by the mean
// travel of the two inboard pushrod ends along each element's axis.
func (sol *solution) moveThirdElements(axle model.Axle) {
	cfg := sol.ref.Suspension.Axle(axle)
	if !cfg.HasThirdSpring && !cfg.HasThirdDamper {
		return
	}
	var travel model.Point
	for _, loc := range []model.Location{axle.Right(), axle.Left()} {
		moved := sol.work.Suspension.Corner(loc).Point(model.InboardPushrod)
		start := sol.soft.Suspension.Corner(loc).Point(model.InboardPushrod)
		travel = travel.Add(moved.Sub(start).Mul(0.5))
	}
	hp := model.HardpointsFor(axle)
	pairs := [][2]model.SuspensionHardpoint{
		{hp.ThirdSpringInboard, hp.ThirdSpringOutboard},
		{hp.ThirdDamperInboard, hp.ThirdDamperOutboard},
	}
	for _, p := range pairs {
		inboard := sol.soft.Suspension.Point(p[0])
		outboard := sol.soft.Suspension.Point(p[1])
		d := outboard.Sub(inboard)
		if d.Len() == 0 {
			continue
		}
		u := d.Normalize()
		sol.work.Suspension.SetPoint(p[1], outboard.Add(u.Mul(travel.Dot(u))))
	}
}

// barAxis returns a point on and the direction of the axis the bar arm of
// loc rotates about. Both sides of a U-bar share one oriented axis.
func barAxis(s *model.Suspension, loc model.Location, style model.BarStyle) (model.Point, model.Point) {
	axle := loc.Axle()
	switch style {
	case model.BarTBar:
		hp := model.HardpointsFor(axle)
		mid := s.Point(hp.BarMidPoint)
		return mid, s.Point(hp.BarPivotAxis).Sub(mid)
	case model.BarGeared:
		c := s.Corner(loc)
		p := c.Point(model.BarArmAtPivot)
		return p, c.Point(model.GearEndBarShaft).Sub(p)
	default:
		r := s.Corner(axle.Right()).Point(model.BarArmAtPivot)
		l := s.Corner(axle.Left()).Point(model.BarArmAtPivot)
		return r, r.Sub(l)
	}
}

func (s *Solver) observe(kind string, err error, elapsed time.Duration, iterations int) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveAnalysis(kind, Outcome(err), elapsed, iterations)
}

// Outcome classifies an analysis error for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrInvalidConfiguration):
		return "invalid"
	case errors.Is(err, ErrGeometricInfeasibility):
		return "infeasible"
	case errors.Is(err, ErrKinematicDivergence):
		return "diverged"
	case errors.Is(err, ErrQuasiStaticDivergence):
		return "quasi_static_diverged"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func failureFields(err error) []logging.Field {
	fields := []logging.Field{logging.String("outcome", Outcome(err)), logging.Error(err)}
	var se *SolveError
	if errors.As(err, &se) {
		if se.Corner != nil {
			fields = append(fields, logging.String("corner", se.Corner.String()))
		}
		fields = append(fields, logging.String("step", se.Step))
		if se.Iterations > 0 {
			fields = append(fields, logging.Int("iterations", se.Iterations), logging.Float64("residual", se.Residual))
		}
	}
	return fields
}

// wrapStep adds the analysis phase to an error from a nested solve.
func wrapStep(phase string, err error) error {
	return fmt.Errorf("%s: %w", phase, err)
}
