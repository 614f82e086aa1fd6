package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

func quasiStatic(t *testing.T, car *model.Car, q model.QuasiStaticInputs) *QuasiStaticResult {
	t.Helper()
	res, err := NewSolver().QuasiStatic(context.Background(), car, q)
	if err != nil {
		t.Fatalf("QuasiStatic(%+v) returned error: %v", q, err)
	}
	if !res.Converged {
		t.Fatalf("QuasiStatic(%+v) did not converge", q)
	}
	return res
}

func totalLoad(w model.WheelSet[float64]) float64 {
	var sum float64
	for _, loc := range model.Locations {
		sum += w.Get(loc)
	}
	return sum
}

func TestQuasiStatic_ZeroAccelerationBalancesWeight(t *testing.T) {
	car := model.SampleCar()
	res := quasiStatic(t, car, model.QuasiStaticInputs{})

	weight := car.Mass.Weight()
	if got := totalLoad(res.Loads); math.Abs(got-weight) > 1e-3 {
		t.Fatalf("total load = %v, want %v", got, weight)
	}
	for _, axle := range []model.Axle{model.Front, model.Rear} {
		r, l := res.Loads.Get(axle.Right()), res.Loads.Get(axle.Left())
		if math.Abs(r-l) > 1e-6 {
			t.Fatalf("%s loads right %v left %v, want equal", axle, r, l)
		}
	}
	if math.Abs(res.Inputs.Roll) > 1e-9 {
		t.Fatalf("roll = %v, want 0", res.Inputs.Roll)
	}
	if res.Kinematics == nil {
		t.Fatalf("expected the kinematic result at the balanced attitude")
	}
}

func TestQuasiStatic_OneGLateral(t *testing.T) {
	car := model.SampleCar()
	res := quasiStatic(t, car, model.QuasiStaticInputs{Gy: 1})

	if res.Inputs.Roll < 0.015 || res.Inputs.Roll > 0.035 {
		t.Fatalf("roll = %v, want positive and about 0.024", res.Inputs.Roll)
	}
	weight := car.Mass.Weight()
	if got := totalLoad(res.Loads); math.Abs(got-weight) > 1e-2 {
		t.Fatalf("total load = %v, want %v", got, weight)
	}

	l := res.Loads
	transfer := l.LeftFront + l.LeftRear - l.RightFront - l.RightRear
	// m g h / (track/2), before geometric corrections.
	want := weight * car.Mass.CenterOfGravity.Z() / 27
	if math.Abs(transfer-want) > 0.1*want {
		t.Fatalf("left minus right load = %v, want about %v", transfer, want)
	}

	front := l.LeftFront - l.RightFront
	rear := l.LeftRear - l.RightRear
	if front <= rear {
		t.Fatalf("front transfer %v, rear %v, want the stiffer front bar to carry more", front, rear)
	}
	for _, loc := range model.Locations {
		if td := res.Inputs.TireDeflections.Get(loc); loc.IsRight() == (td > 0) {
			t.Fatalf("%s tire deflection = %v, want unloaded right and loaded left tires", loc, td)
		}
	}
}

func TestQuasiStatic_LongitudinalPitchesCar(t *testing.T) {
	res := quasiStatic(t, model.SampleCar(), model.QuasiStaticInputs{Gx: 0.5})
	if res.Inputs.Pitch >= 0 {
		t.Fatalf("pitch = %v, want nose down", res.Inputs.Pitch)
	}
	if res.Loads.RightFront <= res.Loads.RightRear {
		t.Fatalf("front load %v, rear %v, want front loaded", res.Loads.RightFront, res.Loads.RightRear)
	}
	if math.Abs(res.Inputs.Roll) > 1e-9 {
		t.Fatalf("roll = %v, want 0", res.Inputs.Roll)
	}
}

func TestQuasiStatic_BellcrankCar(t *testing.T) {
	res := quasiStatic(t, model.SampleBellcrankCar(), model.QuasiStaticInputs{Gy: 1})
	if res.Inputs.Roll <= 0 {
		t.Fatalf("roll = %v, want positive", res.Inputs.Roll)
	}
}

func TestQuasiStatic_DivergenceKeepsBestAttitude(t *testing.T) {
	s := NewSolver(WithQuasiStaticConfig(QuasiStaticConfig{MaxIterations: 1, LoadTolerance: 1e-12}))
	res, err := s.QuasiStatic(context.Background(), model.SampleCar(), model.QuasiStaticInputs{Gy: 1})
	if !errors.Is(err, ErrQuasiStaticDivergence) {
		t.Fatalf("err = %v, want ErrQuasiStaticDivergence", err)
	}
	if res == nil || res.Converged || res.Kinematics == nil {
		t.Fatalf("result = %+v, want the best unconverged attitude", res)
	}
	if res.Iterations != 1 {
		t.Fatalf("iterations = %d, want 1", res.Iterations)
	}
	if Outcome(err) != "quasi_static_diverged" {
		t.Fatalf("Outcome = %q", Outcome(err))
	}
}

func TestStaticLoads_SplitByCenterOfGravity(t *testing.T) {
	car := model.SampleCar()
	w := staticLoads(car)
	weight := car.Mass.Weight()
	// CG at x = 45 between axles at -5 and 95.
	if math.Abs(w.RightFront-weight/4) > 1e-9 || math.Abs(w.LeftRear-weight/4) > 1e-9 {
		t.Fatalf("static loads = %+v, want %v each", w, weight/4)
	}

	car.Mass.CenterOfGravity = model.Point{70, 0, 12}
	w = staticLoads(car)
	if math.Abs(w.RightRear-0.75*weight/2) > 1e-9 {
		t.Fatalf("rear corner load = %v, want %v", w.RightRear, 0.75*weight/2)
	}
}

func TestQuasiStatic_ThirdSpringResistsPitch(t *testing.T) {
	q := model.QuasiStaticInputs{Gx: 0.5}
	base := quasiStatic(t, model.SampleBellcrankCar(), q)

	car := model.SampleBellcrankCar()
	car.Suspension.Front.HasThirdSpring = true
	car.Suspension.Front.ThirdSpringRate = 5000
	stiff := quasiStatic(t, car, q)

	if math.Abs(stiff.Inputs.Pitch) >= math.Abs(base.Inputs.Pitch) {
		t.Fatalf("pitch with third spring = %v, without = %v, want less pitch", stiff.Inputs.Pitch, base.Inputs.Pitch)
	}
	rf := stiff.Kinematics.Outputs.Corners.RightFront
	lf := stiff.Kinematics.Outputs.Corners.LeftFront
	if rf.ThirdSpringMotionRatio <= 0 || math.Abs(rf.ThirdSpringMotionRatio-lf.ThirdSpringMotionRatio) > 1e-6 {
		t.Fatalf("third spring motion ratios = %v, %v, want equal and positive", rf.ThirdSpringMotionRatio, lf.ThirdSpringMotionRatio)
	}
	if got := totalLoad(stiff.Loads); math.Abs(got-car.Mass.Weight()) > 1e-2 {
		t.Fatalf("total load = %v, want %v", got, car.Mass.Weight())
	}
}
