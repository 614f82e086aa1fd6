package core

import (
	"math"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// motionRatios re-solves one corner with its ground lowered and raised by the
// configured step and differentiates the spring, damper and bar against the
// wheel-center rise. Positive ratios compress the element in bump.
func (s *Solver) motionRatios(sol *solution, loc model.Location, c *CornerOutputs) error {
	step := s.cfg.MotionRatioStep
	plus, err := s.solveCorner(sol, loc, step)
	if err != nil {
		return err
	}
	minus, err := s.solveCorner(sol, loc, -step)
	if err != nil {
		return err
	}
	dz := plus.out.Point(model.WheelCenter).Z() - minus.out.Point(model.WheelCenter).Z()
	if math.Abs(dz) < parallelTol {
		return nil
	}

	c.SpringMotionRatio = (linkLength(&minus.out, model.InboardSpring, model.OutboardSpring) -
		linkLength(&plus.out, model.InboardSpring, model.OutboardSpring)) / dz
	c.DamperMotionRatio = (linkLength(&minus.out, model.InboardDamper, model.OutboardDamper) -
		linkLength(&plus.out, model.InboardDamper, model.OutboardDamper)) / dz

	cfg := sol.ref.Suspension.Axle(loc.Axle())
	if cfg.BarStyle != model.BarNone {
		soft := &sol.soft.Suspension
		dTheta := barArmAngle(soft, &plus.out, loc, cfg.BarStyle) - barArmAngle(soft, &minus.out, loc, cfg.BarStyle)
		c.ARBMotionRatio = barSensitivity(cfg, loc) * wrapAngle(dTheta) / dz
	}
	if cfg.HasThirdSpring {
		hp := model.HardpointsFor(loc.Axle())
		d := sol.soft.Suspension.Point(hp.ThirdSpringOutboard).Sub(sol.soft.Suspension.Point(hp.ThirdSpringInboard))
		if d.Len() > 0 {
			// The shuttle follows half of this corner's pushrod travel.
			travel := minus.out.Point(model.InboardPushrod).Sub(plus.out.Point(model.InboardPushrod))
			c.ThirdSpringMotionRatio = 0.5 * travel.Dot(d.Normalize()) / dz
		}
	}
	return nil
}

// antiGeometry fills the anti-dive, anti-lift and anti-squat percentages of
// a corner from its side-view instant center, following the RCVD
// construction. Braking reacts at the contact patch for outboard brakes and
// at the wheel center for inboard brakes; drive torque always reacts at the
// wheel center.
func (sol *solution) antiGeometry(loc model.Location, c *CornerOutputs) {
	car := sol.work
	h := car.Mass.CenterOfGravity.Z()
	s := &car.Suspension
	wheelbase := 0.5 * (s.Corner(model.RightRear).Point(model.ContactPatch).X() - s.Corner(model.RightFront).Point(model.ContactPatch).X() +
		s.Corner(model.LeftRear).Point(model.ContactPatch).X() - s.Corner(model.LeftFront).Point(model.ContactPatch).X())
	if h <= 0 || wheelbase <= 0 {
		return
	}
	w := s.Corner(loc)
	axle := loc.Axle()
	front := loc.IsFront()
	scale := wheelbase / h * 100

	brakePoint := w.Point(model.ContactPatch)
	if sol.ref.Brakes.IsInboard(axle) {
		brakePoint = w.Point(model.WheelCenter)
	}
	if sol.ref.Brakes.Braked.Get(loc) {
		tan := antiTangent(c.SideViewInstantCenter, c.InstantAxis, brakePoint, front)
		share := sol.ref.Brakes.AxleFraction(axle)
		if front {
			c.AntiDive = tan * scale * share
		} else {
			c.AntiLift = tan * scale * share
		}
	}
	if drive := sol.ref.Drivetrain.AxleFraction(axle); drive > 0 {
		tan := antiTangent(c.SideViewInstantCenter, c.InstantAxis, w.Point(model.WheelCenter), front)
		if front {
			c.AntiLift = tan * scale * drive
		} else {
			c.AntiSquat = tan * scale * drive
		}
	}
}

// antiTangent is the slope of the side-view line from p to the instant
// center, rising toward the car's center.
func antiTangent(svic Center, axis Axis, p model.Point, front bool) float64 {
	var dx, dz float64
	if svic.AtInfinity {
		dx, dz = axis.Direction.X(), axis.Direction.Z()
		if (dx < 0) == front {
			dx, dz = -dx, -dz
		}
	} else {
		dx = svic.Point.X() - p.X()
		dz = svic.Point.Z() - p.Z()
	}
	if !front {
		dx = -dx
	}
	if math.Abs(dx) < parallelTol {
		return 0
	}
	return dz / dx
}
