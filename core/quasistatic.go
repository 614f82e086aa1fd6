package core

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// QuasiStaticResult is the balanced attitude for a steady acceleration.
type QuasiStaticResult struct {
	// Inputs is the attitude and tire deflection set at which the loads
	// balance; Kinematics is the analysis at that attitude.
	Inputs     model.KinematicsInputs
	Kinematics *Result
	Loads      model.WheelSet[float64]
	Iterations int
	// Residual is the largest wheel-load change of the last iteration.
	Residual  float64
	Converged bool
}

// loadState is one tested attitude with its balanced tire deflections.
type loadState struct {
	x        [3]float64 // heave, roll, pitch
	in       model.KinematicsInputs
	result   *Result
	loads    model.WheelSet[float64]
	residual [3]float64
}

func (st *loadState) residualNorm(weight, length float64) float64 {
	return math.Hypot(st.residual[0]/weight, math.Hypot(st.residual[1]/(weight*length), st.residual[2]/(weight*length)))
}

// QuasiStatic finds the heave, roll and pitch at which the wheel loads from
// spring, bar and tire deflections balance gravity and the demanded
// accelerations. On divergence the best attitude tested is returned together
// with an error matching ErrQuasiStaticDivergence.
func (s *Solver) QuasiStatic(ctx context.Context, car *model.Car, q model.QuasiStaticInputs) (*QuasiStaticResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "core.QuasiStatic", trace.WithAttributes(
		attribute.Float64("quasi_static.gx", q.Gx),
		attribute.Float64("quasi_static.gy", q.Gy),
	))
	defer span.End()

	res, err := s.quasiStatic(ctx, car, q)
	iterations := 0
	if res != nil {
		iterations = res.Iterations
	}
	s.observe("quasi_static", err, time.Since(start), iterations)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn(ctx, "quasi-static analysis failed", failureFields(err)...)
	}
	return res, err
}

func (s *Solver) quasiStatic(ctx context.Context, car *model.Car, q model.QuasiStaticInputs) (*QuasiStaticResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref := car.Clone()
	ref.UpdateDerivedPoints()
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	weight := ref.Mass.Weight()
	track := axleTrack(ref, model.Front)
	w0 := staticLoads(ref)

	eval := func(x [3]float64) (*loadState, error) {
		return s.balanceTires(ctx, ref, q, w0, x)
	}

	cur, err := eval([3]float64{})
	if err != nil {
		return nil, err
	}
	best := cur
	var delta float64
	for i := 1; i <= s.qsCfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		jac := mat.NewDense(3, 3, nil)
		steps := [3]float64{s.qsCfg.HeaveStep, s.qsCfg.AngleStep, s.qsCfg.AngleStep}
		for j := 0; j < 3; j++ {
			x := cur.x
			x[j] += steps[j]
			nudged, err := eval(x)
			if err != nil {
				return s.qsDiverged(best, i, delta, err)
			}
			for r := 0; r < 3; r++ {
				jac.Set(r, j, (nudged.residual[r]-cur.residual[r])/steps[j])
			}
		}

		rhs := mat.NewVecDense(3, []float64{-cur.residual[0], -cur.residual[1], -cur.residual[2]})
		var dx mat.VecDense
		if err := dx.SolveVec(jac, rhs); err != nil {
			return s.qsDiverged(best, i, delta, nil)
		}

		next := cur.x
		for j := 0; j < 3; j++ {
			next[j] += dx.AtVec(j)
		}
		nextState, err := eval(next)
		if err != nil {
			return s.qsDiverged(best, i, delta, err)
		}
		delta = maxLoadChange(&cur.loads, &nextState.loads)
		cur = nextState
		if cur.residualNorm(weight, track) <= best.residualNorm(weight, track) {
			best = cur
		}
		s.log.Debug(ctx, "quasi-static iteration",
			logging.Int("iteration", i),
			logging.Float64("load_change", delta),
			logging.Float64("roll", cur.x[1]),
			logging.Float64("pitch", cur.x[2]),
		)
		if delta < s.qsCfg.LoadTolerance {
			return &QuasiStaticResult{
				Inputs:     cur.in,
				Kinematics: cur.result,
				Loads:      cur.loads,
				Iterations: i,
				Residual:   delta,
				Converged:  true,
			}, nil
		}
	}
	return s.qsDiverged(best, s.qsCfg.MaxIterations, delta, nil)
}

func (s *Solver) qsDiverged(best *loadState, iterations int, delta float64, cause error) (*QuasiStaticResult, error) {
	cond := "wheel loads did not settle"
	if cause != nil {
		cond = "perturbed attitude failed: " + cause.Error()
	}
	res := &QuasiStaticResult{
		Inputs:     best.in,
		Kinematics: best.result,
		Loads:      best.loads,
		Iterations: iterations,
		Residual:   delta,
	}
	return res, &SolveError{
		Kind:       ErrQuasiStaticDivergence,
		Step:       "ForceBalance",
		Condition:  cond,
		Residual:   delta,
		Iterations: iterations,
	}
}

// balanceTires evaluates the attitude x, iterating the tire deflections
// until they agree with the wheel loads they produce.
func (s *Solver) balanceTires(ctx context.Context, ref *model.Car, q model.QuasiStaticInputs, w0 model.WheelSet[float64], x [3]float64) (*loadState, error) {
	in := model.KinematicsInputs{
		Heave:            x[0],
		Roll:             x[1],
		Pitch:            x[2],
		RackTravel:       q.RackTravel,
		CenterOfRotation: q.CenterOfRotation,
		Sequence:         q.Sequence,
	}
	var st *loadState
	for i := 0; i < s.qsCfg.TireIterations; i++ {
		sol, err := s.solve(ctx, ref, in)
		if err != nil {
			return nil, err
		}
		outputs, err := s.computeOutputs(sol)
		if err != nil {
			return nil, err
		}
		res := &Result{Inputs: in, Original: ref, Working: sol.work, Outputs: outputs, Iterations: sol.iterations}
		loads := wheelLoads(ref, res, w0)
		st = &loadState{x: x, in: in, result: res, loads: loads}

		var change float64
		next := in
		for _, loc := range model.Locations {
			k := ref.Tires.Get(loc).Stiffness
			if k <= 0 {
				continue
			}
			d := (loads.Get(loc) - w0.Get(loc)) / k
			change = math.Max(change, math.Abs(d-in.TireDeflections.Get(loc))*k)
			next.TireDeflections.Set(loc, d)
		}
		if change < s.qsCfg.LoadTolerance {
			break
		}
		in = next
	}
	st.residual = balanceResidual(ref, st, q)
	return st, nil
}

// wheelLoads is the static corner weight plus the spring, bar and third
// spring forces carried to the contact patch through their motion ratios.
func wheelLoads(ref *model.Car, res *Result, w0 model.WheelSet[float64]) model.WheelSet[float64] {
	var loads model.WheelSet[float64]
	for _, loc := range model.Locations {
		c := res.Outputs.Corners.Get(loc)
		spring := ref.Suspension.Corner(loc).SpringRate * c.SpringDisplacement * c.SpringMotionRatio
		axle := res.Outputs.Axles.Get(loc.Axle())
		cfg := ref.Suspension.Axle(loc.Axle())
		bar := cfg.BarRate * axle.ARBTwist * c.ARBMotionRatio
		var third float64
		if cfg.HasThirdSpring {
			third = cfg.ThirdSpringRate * axle.ThirdSpringDisplacement * c.ThirdSpringMotionRatio
		}
		loads.Set(loc, w0.Get(loc)+spring+bar+third)
	}
	return loads
}

// balanceResidual returns the vertical, roll and pitch imbalance. Inertial
// loads act at the displaced center of gravity; gy is the centripetal
// acceleration toward +Y and gx the acceleration toward +X, both in g.
func balanceResidual(ref *model.Car, st *loadState, q model.QuasiStaticInputs) [3]float64 {
	m := ref.Mass.Mass
	g := ref.Mass.Gravity
	cg := st.result.Working.Mass.CenterOfGravity
	var sum, sumY, sumX float64
	for _, loc := range model.Locations {
		w := st.loads.Get(loc)
		cp := st.result.Working.Suspension.Corner(loc).Point(model.ContactPatch)
		sum += w
		sumY += cp.Y() * w
		sumX += cp.X() * w
	}
	h := cg.Z()
	return [3]float64{
		sum - m*g,
		sumY - (m*g*cg.Y() - m*q.Gy*g*h),
		sumX - (m*g*cg.X() - m*q.Gx*g*h),
	}
}

// staticLoads distributes the weight over the contact patches as a
// statically determinate four-point support.
func staticLoads(car *model.Car) model.WheelSet[float64] {
	var loads model.WheelSet[float64]
	s := &car.Suspension
	cg := car.Mass.CenterOfGravity
	weight := car.Mass.Weight()
	xf := axleX(s, model.Front)
	xr := axleX(s, model.Rear)
	rearShare := 0.5
	if xr != xf {
		rearShare = (cg.X() - xf) / (xr - xf)
	}
	for _, axle := range []model.Axle{model.Front, model.Rear} {
		w := weight * (1 - rearShare)
		if axle == model.Rear {
			w = weight * rearShare
		}
		yr := s.Corner(axle.Right()).Point(model.ContactPatch).Y()
		yl := s.Corner(axle.Left()).Point(model.ContactPatch).Y()
		rightShare := 0.5
		if yr != yl {
			rightShare = (cg.Y() - yl) / (yr - yl)
		}
		loads.Set(axle.Right(), w*rightShare)
		loads.Set(axle.Left(), w*(1-rightShare))
	}
	return loads
}

func axleX(s *model.Suspension, axle model.Axle) float64 {
	return 0.5 * (s.Corner(axle.Right()).Point(model.ContactPatch).X() + s.Corner(axle.Left()).Point(model.ContactPatch).X())
}

func axleTrack(car *model.Car, axle model.Axle) float64 {
	s := &car.Suspension
	t := s.Corner(axle.Right()).Point(model.ContactPatch).Y() - s.Corner(axle.Left()).Point(model.ContactPatch).Y()
	if t <= 0 {
		return 1
	}
	return t
}

func maxLoadChange(a, b *model.WheelSet[float64]) float64 {
	var d float64
	for _, loc := range model.Locations {
		d = math.Max(d, math.Abs(a.Get(loc)-b.Get(loc)))
	}
	return d
}
