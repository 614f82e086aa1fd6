package core

import (
	"fmt"
	"math"
	"testing"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// memberPickups are the points that define each rigid member a point can
// ride on.
var memberPickups = map[model.ActuationAttachment][]model.Hardpoint{
	model.AttachLowerAArm: {model.LowerFrontTubMount, model.LowerRearTubMount, model.LowerBallJoint},
	model.AttachUpperAArm: {model.UpperFrontTubMount, model.UpperRearTubMount, model.UpperBallJoint},
	model.AttachUpright:   {model.LowerBallJoint, model.UpperBallJoint, model.OutboardTieRod},
}

func barMember(a model.BarAttachment, push model.ActuationAttachment) model.ActuationAttachment {
	switch a {
	case model.BarAttachUpperAArm:
		return model.AttachUpperAArm
	case model.BarAttachUpright:
		return model.AttachUpright
	case model.BarAttachBellcrank:
		return push
	default:
		return model.AttachLowerAArm
	}
}

func checkRigid(t *testing.T, label string, orig, solved *model.Corner, p model.Hardpoint, on []model.Hardpoint) {
	t.Helper()
	for _, q := range on {
		want := model.Distance(orig.Point(p), orig.Point(q))
		got := model.Distance(solved.Point(p), solved.Point(q))
		if math.Abs(got-want) > 1e-7 {
			t.Fatalf("%s %s %s-%s = %v, want %v", label, orig.Location, p, q, got, want)
		}
	}
}

func TestBarAndActuationVariants(t *testing.T) {
	styles := []model.BarStyle{model.BarUBar, model.BarTBar, model.BarGeared}
	bars := []model.BarAttachment{model.BarAttachBellcrank, model.BarAttachLowerAArm, model.BarAttachUpperAArm, model.BarAttachUpright}
	pushes := []model.ActuationAttachment{model.AttachLowerAArm, model.AttachUpperAArm, model.AttachUpright}
	actuations := map[string]model.ActuationType{
		"rocker":    model.OutboardRockerArm,
		"bellcrank": model.PushPullrodWithBellcrank,
	}

	for actName, actuation := range actuations {
		for _, push := range pushes {
			for _, style := range styles {
				for _, bar := range bars {
					if bar == model.BarAttachBellcrank && actuation != model.PushPullrodWithBellcrank {
						continue
					}
					name := fmt.Sprintf("%s/%s/%s/%s", actName, push, style, bar)
					t.Run(name, func(t *testing.T) {
						car := model.SampleCar()
						if actuation == model.PushPullrodWithBellcrank {
							car = model.SampleBellcrankCar()
						}
						for _, loc := range model.Locations {
							car.Suspension.Corner(loc).ActuationAttachment = push
						}
						for _, axle := range []model.Axle{model.Front, model.Rear} {
							cfg := car.Suspension.Axle(axle)
							cfg.BarStyle = style
							cfg.BarAttachment = bar
						}
						car.UpdateDerivedPoints()
						checkBarVariant(t, car, push, bar)
					})
				}
			}
		}
	}
}

func checkBarVariant(t *testing.T, car *model.Car, push model.ActuationAttachment, bar model.BarAttachment) {
	t.Helper()
	for _, in := range []model.KinematicsInputs{{Heave: 0.75}, {Roll: 0.03}, {Roll: 0.02, Heave: -0.5}} {
		res := analyze(t, car, in)
		label := fmt.Sprintf("%+v", in)
		for _, loc := range model.Locations {
			o, w := car.Suspension.Corner(loc), res.Working.Suspension.Corner(loc)
			checkRigid(t, label, o, w, model.OutboardPushrod, memberPickups[push])
			checkRigid(t, label, o, w, model.OutboardBarLink, []model.Hardpoint{model.InboardBarLink})
			if bar == model.BarAttachBellcrank {
				checkRigid(t, label, o, w, model.OutboardBarLink, []model.Hardpoint{model.BellCrankPivot1, model.BellCrankPivot2, model.InboardPushrod})
			} else {
				checkRigid(t, label, o, w, model.OutboardBarLink, memberPickups[barMember(bar, push)])
			}
			if o.ActuationType == model.PushPullrodWithBellcrank {
				checkRigid(t, label, o, w, model.InboardPushrod, []model.Hardpoint{model.OutboardPushrod, model.BellCrankPivot1, model.BellCrankPivot2})
			} else {
				checkRigid(t, label, o, w, model.OutboardSpring, memberPickups[push])
			}

			style := car.Suspension.Axle(loc.Axle()).BarStyle
			pivot, dir := barAxis(&car.Suspension, loc, style)
			want := distanceToLine(o.Point(model.InboardBarLink), pivot, pivot.Add(dir))
			pivot, dir = barAxis(&res.Working.Suspension, loc, style)
			got := distanceToLine(w.Point(model.InboardBarLink), pivot, pivot.Add(dir))
			if math.Abs(got-want) > 1e-7 {
				t.Fatalf("%s %s bar arm radius = %v, want %v", label, loc, got, want)
			}
		}
	}

	// Bar twist is linear in the wheel travels through the per-corner bar
	// motion ratios, and reverses with the roll direction.
	for _, in := range []model.KinematicsInputs{{Roll: 0.004}, {Heave: 0.05}} {
		res := analyze(t, car, in)
		for _, axle := range []model.Axle{model.Front, model.Rear} {
			var predicted float64
			for _, loc := range []model.Location{axle.Right(), axle.Left()} {
				c := res.Outputs.Corners.Get(loc)
				predicted += c.ARBMotionRatio * c.WheelTravel
			}
			twist := res.Outputs.Axles.Get(axle).ARBTwist
			if math.Abs(twist-predicted) > 0.05*math.Abs(predicted)+1e-6 {
				t.Fatalf("%+v %s twist = %v, want about %v from the motion ratios", in, axle, twist, predicted)
			}
		}
	}
	pos := analyze(t, car, model.KinematicsInputs{Roll: 0.02}).Outputs.Axles.Front.ARBTwist
	neg := analyze(t, car, model.KinematicsInputs{Roll: -0.02}).Outputs.Axles.Front.ARBTwist
	if math.Abs(pos) < 1e-4 || math.Signbit(pos) == math.Signbit(neg) {
		t.Fatalf("front twist under roll = %v, reversed roll = %v, want nonzero and opposite", pos, neg)
	}
}

func TestBarTwist_SignFlag(t *testing.T) {
	car := model.SampleCar()
	want := analyze(t, car, model.KinematicsInputs{Roll: 0.02}).Outputs.Axles.Front.ARBTwist

	car.Suspension.Front.BarSignGreaterThan = false
	got := analyze(t, car, model.KinematicsInputs{Roll: 0.02}).Outputs.Axles.Front.ARBTwist
	if math.Abs(got+want) > 1e-12 || want == 0 {
		t.Fatalf("twist with flipped sign flag = %v, want %v", got, -want)
	}
}

// At CG height 12 over a 100 wheelbase one unit of side-view slope is
// 100/12*100 percent.
const antiScale = 100.0 / 12 * 100

func TestAntiGeometry_InjectedInstantCenters(t *testing.T) {
	center := Center{Point: model.Point{45, 27, 13}}
	tests := []struct {
		name  string
		setup func(car *model.Car)
		loc   model.Location
		dive  float64
		lift  float64
		squat float64
	}{
		{
			// Contact patch (-5, 0) to (45, 13): slope 0.26 with 60% front braking.
			name: "outboard front brakes",
			loc:  model.RightFront,
			dive: 0.26 * antiScale * 0.6,
		},
		{
			// Wheel center (-5, 10) to (45, 13): slope 0.06.
			name:  "inboard front brakes",
			setup: func(car *model.Car) { car.Brakes.FrontBrakesInboard = true },
			loc:   model.RightFront,
			dive:  0.06 * antiScale * 0.6,
		},
		{
			name:  "front wheel drive",
			setup: func(car *model.Car) { car.Drivetrain.DriveType = model.FrontWheelDrive },
			loc:   model.RightFront,
			dive:  0.26 * antiScale * 0.6,
			lift:  0.06 * antiScale,
		},
		{
			// Rear wheel center (95, 10) toward (45, 13): slope 0.06.
			name:  "rear wheel drive",
			loc:   model.RightRear,
			lift:  0.26 * antiScale * 0.4,
			squat: 0.06 * antiScale,
		},
		{
			name:  "unbraked rear",
			setup: func(car *model.Car) { car.Brakes.Braked.RightRear = false },
			loc:   model.RightRear,
			squat: 0.06 * antiScale,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			car := model.SampleCar()
			if tt.setup != nil {
				tt.setup(car)
			}
			sol := &solution{ref: car, work: car}
			c := CornerOutputs{SideViewInstantCenter: center}
			sol.antiGeometry(tt.loc, &c)
			for name, pair := range map[string][2]float64{
				"anti-dive":  {c.AntiDive, tt.dive},
				"anti-lift":  {c.AntiLift, tt.lift},
				"anti-squat": {c.AntiSquat, tt.squat},
			} {
				if math.Abs(pair[0]-pair[1]) > 1e-9 {
					t.Fatalf("%s = %v, want %v", name, pair[0], pair[1])
				}
			}
		})
	}
}

// inclineUpperArms tilts the upper A-arm pivot line by 0.1 in side view so
// the arm planes meet at a finite side-view instant center. At y = 27 the
// lower planes sit at z = 4.1875 and the upper planes at z = 12 - 0.1(x-x0),
// putting the centers 83.125 behind each contact patch toward +x.
func inclineUpperArms(car *model.Car) {
	for _, loc := range []model.Location{model.RightFront, model.RightRear} {
		c := car.Suspension.Corner(loc)
		f, r := c.Point(model.UpperFrontTubMount), c.Point(model.UpperRearTubMount)
		c.SetPoint(model.UpperFrontTubMount, model.Point{f.X(), f.Y(), f.Z() + 0.4})
		c.SetPoint(model.UpperRearTubMount, model.Point{r.X(), r.Y(), r.Z() - 0.4})
	}
	car.UpdateDerivedPoints()
}

func TestAntiGeometry_InclinedArms(t *testing.T) {
	car := model.SampleCar()
	inclineUpperArms(car)
	res := analyze(t, car, model.KinematicsInputs{})
	rf, rr := res.Outputs.Corners.RightFront, res.Outputs.Corners.RightRear

	if svic := rf.SideViewInstantCenter; svic.AtInfinity || !near(svic.Point, model.Point{78.125, 27, 4.1875}, 1e-6) {
		t.Fatalf("front side-view instant center = %+v, want (78.125, 27, 4.1875)", svic)
	}
	// Contact patch (-5, 0): slope 4.1875/83.125 with 60% front braking.
	if want := 4.1875 / 83.125 * antiScale * 0.6; math.Abs(rf.AntiDive-want) > 1e-4 {
		t.Fatalf("anti-dive = %v, want %v", rf.AntiDive, want)
	}
	// Rear wheel center (95, 10) toward center (178.125, 4.1875) falls by
	// 5.8125 over 83.125 away from the car, so it rises toward the car.
	if want := 5.8125 / 83.125 * antiScale; math.Abs(rr.AntiSquat-want) > 1e-4 {
		t.Fatalf("anti-squat = %v, want %v", rr.AntiSquat, want)
	}
	if want := -4.1875 / 83.125 * antiScale * 0.4; math.Abs(rr.AntiLift-want) > 1e-4 {
		t.Fatalf("rear anti-lift = %v, want %v", rr.AntiLift, want)
	}

	car.Brakes.FrontBrakesInboard = true
	car.Drivetrain.DriveType = model.FrontWheelDrive
	res = analyze(t, car, model.KinematicsInputs{})
	rf, rr = res.Outputs.Corners.RightFront, res.Outputs.Corners.RightRear
	// Wheel center (-5, 10) to (78.125, 4.1875).
	slope := -5.8125 / 83.125
	if want := slope * antiScale * 0.6; math.Abs(rf.AntiDive-want) > 1e-4 {
		t.Fatalf("inboard anti-dive = %v, want %v", rf.AntiDive, want)
	}
	if want := slope * antiScale; math.Abs(rf.AntiLift-want) > 1e-4 {
		t.Fatalf("front-drive anti-lift = %v, want %v", rf.AntiLift, want)
	}
	if rr.AntiSquat != 0 {
		t.Fatalf("rear anti-squat = %v, want 0 on a front-drive car", rr.AntiSquat)
	}
}
