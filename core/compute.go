package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

var (
	unitX = model.Point{1, 0, 0}
	unitY = model.Point{0, 1, 0}
	unitZ = model.Point{0, 0, 1}
)

var groundPlane = Plane{Normal: unitZ}

// computeOutputs derives every output from a solved snapshot. Corner outputs
// come first; axle and car outputs are then built from them.
func (s *Solver) computeOutputs(sol *solution) (Outputs, error) {
	var out Outputs
	for _, loc := range model.Locations {
		c := sol.cornerOutputs(loc)
		out.Corners.Set(loc, c)
	}
	if !s.cfg.SkipMotionRatios {
		for _, loc := range model.Locations {
			if err := s.motionRatios(sol, loc, out.Corners.Ptr(loc)); err != nil {
				return Outputs{}, wrapStep("motion ratio", err)
			}
		}
	}
	for _, loc := range model.Locations {
		sol.antiGeometry(loc, out.Corners.Ptr(loc))
	}
	for _, axle := range []model.Axle{model.Front, model.Rear} {
		out.Axles.Set(axle, sol.axleOutputs(axle, &out))
	}
	out.RollAxis = axisThrough(out.Axles.Front.RollCenter, out.Axles.Rear.RollCenter)
	out.RightPitchCenter = sol.pitchCenter(model.RightFront, model.RightRear, &out)
	out.LeftPitchCenter = sol.pitchCenter(model.LeftFront, model.LeftRear, &out)
	out.PitchAxis = axisThrough(out.RightPitchCenter, out.LeftPitchCenter)

	work := &sol.work.Suspension
	out.RightWheelbase = work.Corner(model.RightRear).Point(model.ContactPatch).X() - work.Corner(model.RightFront).Point(model.ContactPatch).X()
	out.LeftWheelbase = work.Corner(model.LeftRear).Point(model.ContactPatch).X() - work.Corner(model.LeftFront).Point(model.ContactPatch).X()
	return out, nil
}

func (sol *solution) cornerOutputs(loc model.Location) CornerOutputs {
	var c CornerOutputs
	w := sol.work.Suspension.Corner(loc)
	o := sol.ref.Suspension.Corner(loc)
	n := sol.spin.Get(loc)
	side := loc.Side()

	c.Camber = math.Asin(clamp(-n.Z(), -1, 1))
	c.Steer = math.Atan2(n.X(), side*n.Y())

	lbj, ubj := w.Point(model.LowerBallJoint), w.Point(model.UpperBallJoint)
	k := ubj.Sub(lbj).Normalize()
	c.Caster = math.Atan2(k.X(), k.Z())
	c.KPI = math.Atan2(-side*k.Y(), k.Z())

	cp, wc := w.Point(model.ContactPatch), w.Point(model.WheelCenter)
	if g, ok := LinePlane(Axis{Point: lbj, Direction: k}, groundPlane); ok {
		lateral := model.Point{n.X(), n.Y(), 0}
		if lateral.Len() > 0 {
			c.ScrubRadius = cp.Sub(g).Dot(lateral.Normalize())
			forward := model.Point{-n.Y(), n.X(), 0}.Mul(side).Normalize()
			c.CasterTrail = g.Sub(cp).Dot(forward)
		}
	}
	c.SpindleLength = distanceToLine(wc, lbj, ubj)

	c.WheelCenterTranslation = wc.Sub(o.Point(model.WheelCenter))
	c.WheelTravel = sol.att.toChassis(wc).Z() - o.Point(model.WheelCenter).Z()

	c.SpringDisplacement = linkLength(o, model.InboardSpring, model.OutboardSpring) - linkLength(w, model.InboardSpring, model.OutboardSpring)
	c.DamperDisplacement = linkLength(o, model.InboardDamper, model.OutboardDamper) - linkLength(w, model.InboardDamper, model.OutboardDamper)

	if sol.ref.Suspension.Axle(loc.Axle()).HasHalfShafts && sol.ref.Drivetrain.IsDriven(loc) {
		d := w.Point(model.OutboardHalfShaft).Sub(w.Point(model.InboardHalfShaft))
		if l := d.Len(); l > 0 {
			c.HalfShaftAngle = math.Acos(clamp(math.Abs(d.Y())/l, 0, 1))
			c.AxlePlunge = l - linkLength(o, model.OutboardHalfShaft, model.InboardHalfShaft)
		}
	}

	c.InstantAxis = instantAxis(w)
	c.FrontViewInstantCenter = viewCenter(c.InstantAxis, Plane{Normal: unitX, Point: wc})
	c.SideViewInstantCenter = viewCenter(c.InstantAxis, Plane{Normal: unitY, Point: wc})
	c.FrontViewSwingArm = math.Inf(1)
	if !c.FrontViewInstantCenter.AtInfinity {
		c.FrontViewSwingArm = math.Abs(c.FrontViewInstantCenter.Point.Y() - cp.Y())
	}
	c.SideViewSwingArm = math.Inf(1)
	if !c.SideViewInstantCenter.AtInfinity {
		c.SideViewSwingArm = math.Abs(c.SideViewInstantCenter.Point.X() - cp.X())
	}
	return c
}

// instantAxis intersects the planes of the two A-arms. Parallel arm planes
// put the axis at infinity along the lower arm pivot line.
func instantAxis(c *model.Corner) Axis {
	lower, okL := PlaneFromPoints(c.Point(model.LowerFrontTubMount), c.Point(model.LowerRearTubMount), c.Point(model.LowerBallJoint))
	upper, okU := PlaneFromPoints(c.Point(model.UpperFrontTubMount), c.Point(model.UpperRearTubMount), c.Point(model.UpperBallJoint))
	if okL && okU {
		if ax, ok := PlanePlane(lower, upper); ok {
			if ax.Direction.X() < 0 {
				ax.Direction = ax.Direction.Mul(-1)
			}
			return ax
		}
	}
	d := c.Point(model.LowerRearTubMount).Sub(c.Point(model.LowerFrontTubMount))
	return Axis{Direction: d.Normalize(), AtInfinity: true}
}

func viewCenter(ax Axis, view Plane) Center {
	if ax.AtInfinity {
		return Center{AtInfinity: true}
	}
	p, ok := LinePlane(ax, view)
	if !ok {
		return Center{AtInfinity: true}
	}
	return Center{Point: p}
}

func (sol *solution) axleOutputs(axle model.Axle, out *Outputs) AxleOutputs {
	var a AxleOutputs
	right, left := axle.Right(), axle.Left()
	wr, wl := sol.work.Suspension.Corner(right), sol.work.Suspension.Corner(left)
	cr, cl := out.Corners.Get(right), out.Corners.Get(left)

	x := 0.5 * (wr.Point(model.WheelCenter).X() + wl.Point(model.WheelCenter).X())
	a.RollCenter = viewIntersection(
		lineInView(wr.Point(model.ContactPatch), cr.FrontViewInstantCenter, cr.InstantAxis, yz),
		lineInView(wl.Point(model.ContactPatch), cl.FrontViewInstantCenter, cl.InstantAxis, yz),
		func(v mgl64.Vec2) model.Point { return model.Point{x, v.X(), v.Y()} },
	)

	cfg := sol.ref.Suspension.Axle(axle)
	if cfg.BarStyle != model.BarNone {
		thetaR := barArmAngle(&sol.soft.Suspension, wr, right, cfg.BarStyle)
		thetaL := barArmAngle(&sol.soft.Suspension, wl, left, cfg.BarStyle)
		a.ARBTwist = barSensitivity(cfg, right)*thetaR + barSensitivity(cfg, left)*thetaL
	}
	a.NetSteer = cr.Steer - cl.Steer
	a.NetScrub = cr.ScrubRadius + cl.ScrubRadius
	a.Track = wr.Point(model.ContactPatch).Y() - wl.Point(model.ContactPatch).Y()

	hp := model.HardpointsFor(axle)
	ref, work := &sol.ref.Suspension, &sol.work.Suspension
	if cfg.HasThirdSpring {
		a.ThirdSpringDisplacement = sharedLength(ref, hp.ThirdSpringInboard, hp.ThirdSpringOutboard) -
			sharedLength(work, hp.ThirdSpringInboard, hp.ThirdSpringOutboard)
	}
	if cfg.HasThirdDamper {
		a.ThirdDamperDisplacement = sharedLength(ref, hp.ThirdDamperInboard, hp.ThirdDamperOutboard) -
			sharedLength(work, hp.ThirdDamperInboard, hp.ThirdDamperOutboard)
	}
	return a
}

// pitchCenter intersects the side-view lines of the front and rear corners
// of one side.
func (sol *solution) pitchCenter(front, rear model.Location, out *Outputs) Center {
	wf, wr := sol.work.Suspension.Corner(front), sol.work.Suspension.Corner(rear)
	cf, cr := out.Corners.Get(front), out.Corners.Get(rear)
	y := 0.5 * (wf.Point(model.WheelCenter).Y() + wr.Point(model.WheelCenter).Y())
	return viewIntersection(
		lineInView(wf.Point(model.ContactPatch), cf.SideViewInstantCenter, cf.InstantAxis, xz),
		lineInView(wr.Point(model.ContactPatch), cr.SideViewInstantCenter, cr.InstantAxis, xz),
		func(v mgl64.Vec2) model.Point { return model.Point{v.X(), y, v.Y()} },
	)
}

type viewProjection func(model.Point) mgl64.Vec2

func yz(p model.Point) mgl64.Vec2 { return mgl64.Vec2{p.Y(), p.Z()} }
func xz(p model.Point) mgl64.Vec2 { return mgl64.Vec2{p.X(), p.Z()} }

type viewLine struct {
	point, dir mgl64.Vec2
	ok         bool
}

// lineInView is the 2D line from the contact patch toward the instant
// center, or along the instant axis when the center is at infinity.
func lineInView(cp model.Point, ic Center, axis Axis, proj viewProjection) viewLine {
	p := proj(cp)
	var d mgl64.Vec2
	if ic.AtInfinity {
		d = proj(axis.Direction)
	} else {
		d = proj(ic.Point).Sub(p)
	}
	return viewLine{point: p, dir: d, ok: d.Len() > parallelTol}
}

func viewIntersection(a, b viewLine, lift func(mgl64.Vec2) model.Point) Center {
	if !a.ok || !b.ok {
		return Center{AtInfinity: true}
	}
	v, ok := LineIntersect2D(a.point, a.dir, b.point, b.dir)
	if !ok {
		return Center{AtInfinity: true}
	}
	return Center{Point: lift(v)}
}

func axisThrough(a, b Center) Axis {
	if a.AtInfinity || b.AtInfinity {
		return Axis{Direction: unitX, AtInfinity: true}
	}
	d := b.Point.Sub(a.Point)
	if d.Len() < parallelTol {
		return Axis{Point: a.Point, Direction: unitX, AtInfinity: true}
	}
	return Axis{Point: a.Point, Direction: d.Normalize()}
}

// barArmAngle is the rotation of the inboard bar link about its arm axis
// relative to the chassis.
func barArmAngle(soft *model.Suspension, solved *model.Corner, loc model.Location, style model.BarStyle) float64 {
	pivot, dir := barAxis(soft, loc, style)
	ref := soft.Corner(loc).Point(model.InboardBarLink)
	circle := CircleAbout(ref, pivot, dir)
	return SignedAngle(ref.Sub(circle.Center), solved.Point(model.InboardBarLink).Sub(circle.Center), dir)
}

// barSensitivity is the change in bar twist per unit arm rotation at loc.
func barSensitivity(cfg *model.AxleConfig, loc model.Location) float64 {
	var s float64
	switch cfg.BarStyle {
	case model.BarUBar:
		s = loc.Side()
	case model.BarTBar:
		s = 0.5
	case model.BarGeared:
		s = 1
	}
	if !cfg.BarSignGreaterThan {
		s = -s
	}
	return s
}

func linkLength(c *model.Corner, a, b model.Hardpoint) float64 {
	return model.Distance(c.Point(a), c.Point(b))
}

func sharedLength(s *model.Suspension, a, b model.SuspensionHardpoint) float64 {
	return model.Distance(s.Point(a), s.Point(b))
}

func distanceToLine(p, a, b model.Point) float64 {
	d := b.Sub(a)
	if d.Len() == 0 {
		return model.Distance(p, a)
	}
	return p.Sub(a).Cross(d.Normalize()).Len()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
