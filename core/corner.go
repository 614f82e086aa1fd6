package core

import (
	"math"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// cornerSolve holds the scratch state of one corner while its steps run.
type cornerSolve struct {
	loc  model.Location
	orig *model.Corner // undisplaced geometry
	soft model.Corner  // after the sprung-mass motion, before the solve
	out  model.Corner  // solved positions

	axle     *model.AxleConfig
	driven   bool
	topology cornerTopology
	cfg      SolverConfig

	loadedRadius float64
	barPivot     model.Point
	barDir       model.Point

	lower, upper, upright RigidTransform
	spin                  model.Point

	crankPivot model.Point
	crankAxis  model.Point
	crankAngle float64

	iterations int
	residual   float64
}

func newCornerSolve(orig *model.Corner, soft *model.Corner, axle *model.AxleConfig, driven bool, cfg SolverConfig, loadedRadius float64) *cornerSolve {
	return &cornerSolve{
		loc:          orig.Location,
		orig:         orig,
		soft:         *soft,
		out:          *soft,
		axle:         axle,
		driven:       driven,
		topology:     topologyFor(orig),
		cfg:          cfg,
		loadedRadius: loadedRadius,
	}
}

func (cs *cornerSolve) key() orderKey {
	return orderKey{
		bellcrank:  cs.topology.hasBellcrank(),
		bar:        cs.axle.BarStyle != model.BarNone,
		barOnCrank: cs.axle.BarAttachment == model.BarAttachBellcrank,
		halfShafts: cs.axle.HasHalfShafts && cs.driven,
	}
}

func (cs *cornerSolve) run(order []solveStep) error {
	for _, step := range order {
		var err error
		switch step {
		case stepContact:
			err = cs.solveContact()
		case stepOutboardPushrod:
			cs.moveWithMember(cs.orig.ActuationAttachment, model.OutboardPushrod)
		case stepBellcrank:
			err = cs.topology.solveCrank(cs)
		case stepSpringDamper:
			err = cs.topology.solveSpringDamper(cs)
		case stepOutboardBarLink:
			cs.solveOutboardBarLink()
		case stepInboardBarLink:
			err = cs.solveInboardBarLink()
		case stepHalfShaft:
			cs.out.SetPoint(model.OutboardHalfShaft, cs.upright.Apply(cs.orig.Point(model.OutboardHalfShaft)))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (cs *cornerSolve) length(a, b model.Hardpoint) float64 {
	return model.Distance(cs.orig.Point(a), cs.orig.Point(b))
}

// armCircle returns the circle swept by the original point p about the
// original mount axis (a, b), carried onto the moved mounts.
func (cs *cornerSolve) armCircle(p, a, b model.Hardpoint) Circle {
	a0, b0 := cs.orig.Point(a), cs.orig.Point(b)
	u0 := b0.Sub(a0).Normalize()
	t := cs.orig.Point(p).Sub(a0).Dot(u0)
	a1, b1 := cs.out.Point(a), cs.out.Point(b)
	u1 := b1.Sub(a1).Normalize()
	center := a1.Add(u1.Mul(t))
	return Circle{Center: center, Normal: u1, Radius: model.Distance(cs.orig.Point(p), a0.Add(u0.Mul(t)))}
}

// solveContact runs the ball joint and contact patch loop. The lower ball
// joint is held at the height above the ground that the previous upright
// pose implies, the upper ball joint and tie rod follow by three-sphere, and
// the upright carries the wheel until the wheel center stops moving.
func (cs *cornerSolve) solveContact() error {
	o := cs.orig
	lowerCircle := cs.armCircle(model.LowerBallJoint, model.LowerFrontTubMount, model.LowerRearTubMount)
	uft := Sphere{cs.out.Point(model.UpperFrontTubMount), cs.length(model.UpperFrontTubMount, model.UpperBallJoint)}
	urt := Sphere{cs.out.Point(model.UpperRearTubMount), cs.length(model.UpperRearTubMount, model.UpperBallJoint)}
	kingpin := cs.length(model.LowerBallJoint, model.UpperBallJoint)
	upperToTie := cs.length(model.UpperBallJoint, model.OutboardTieRod)
	lowerToTie := cs.length(model.LowerBallJoint, model.OutboardTieRod)
	tieRod := Sphere{cs.out.Point(model.InboardTieRod), cs.length(model.InboardTieRod, model.OutboardTieRod)}

	n0 := o.WheelSpinAxis()
	wc0 := o.Point(model.WheelCenter)
	zStar := o.Point(model.LowerBallJoint).Z() - o.Point(model.ContactPatch).Z()
	prev := cs.soft.Point(model.WheelCenter)

	for i := 1; i <= cs.cfg.MaxIterations; i++ {
		cs.iterations = i
		ground := Plane{Normal: model.Point{0, 0, 1}, Point: model.Point{0, 0, zStar}}
		a, b, ok := CirclePlane(lowerCircle, ground)
		if !ok {
			return infeasible(cs.loc, model.LowerBallJoint, "lower A-arm cannot reach the contact patch height")
		}
		lbj := ClosestTo(cs.soft.Point(model.LowerBallJoint), a, b)

		a, b, ok = ThreeSphere(uft, urt, Sphere{lbj, kingpin})
		if !ok {
			return infeasible(cs.loc, model.UpperBallJoint, "three-sphere intersection has no real solution")
		}
		ubj := ClosestTo(cs.soft.Point(model.UpperBallJoint), a, b)

		a, b, ok = ThreeSphere(Sphere{ubj, upperToTie}, Sphere{lbj, lowerToTie}, tieRod)
		if !ok {
			return infeasible(cs.loc, model.OutboardTieRod, "tie rod cannot reach the upright")
		}
		otr := ClosestTo(cs.soft.Point(model.OutboardTieRod), a, b)

		upright, ok := TriadTransform(o.Point(model.LowerBallJoint), o.Point(model.UpperBallJoint), o.Point(model.OutboardTieRod), lbj, ubj, otr)
		if !ok {
			return infeasible(cs.loc, model.WheelCenter, "upright pickups are collinear")
		}
		wc := upright.Apply(wc0)
		spin := upright.ApplyDir(n0)
		cp := wc.Sub(model.WheelUp(spin).Mul(cs.loadedRadius))

		cs.out.SetPoint(model.LowerBallJoint, lbj)
		cs.out.SetPoint(model.UpperBallJoint, ubj)
		cs.out.SetPoint(model.OutboardTieRod, otr)
		cs.out.SetPoint(model.WheelCenter, wc)
		cs.out.SetPoint(model.ContactPatch, cp)
		cs.upright = upright
		cs.spin = spin

		cs.residual = model.Distance(wc, prev)
		prev = wc
		zStar = lbj.Z() - cp.Z()
		if cs.residual < cs.cfg.Tolerance && math.Abs(cp.Z()) < cs.cfg.Tolerance {
			return cs.finishArms()
		}
	}
	return diverged(cs.loc, cs.iterations, cs.residual)
}

func (cs *cornerSolve) finishArms() error {
	o, m := cs.orig, &cs.out
	var ok bool
	cs.lower, ok = TriadTransform(
		o.Point(model.LowerFrontTubMount), o.Point(model.LowerRearTubMount), o.Point(model.LowerBallJoint),
		m.Point(model.LowerFrontTubMount), m.Point(model.LowerRearTubMount), m.Point(model.LowerBallJoint))
	if !ok {
		return infeasible(cs.loc, model.LowerBallJoint, "lower A-arm pickups are collinear")
	}
	cs.upper, ok = TriadTransform(
		o.Point(model.UpperFrontTubMount), o.Point(model.UpperRearTubMount), o.Point(model.UpperBallJoint),
		m.Point(model.UpperFrontTubMount), m.Point(model.UpperRearTubMount), m.Point(model.UpperBallJoint))
	if !ok {
		return infeasible(cs.loc, model.UpperBallJoint, "upper A-arm pickups are collinear")
	}
	return nil
}

func (cs *cornerSolve) member(a model.ActuationAttachment) RigidTransform {
	switch a {
	case model.AttachUpperAArm:
		return cs.upper
	case model.AttachUpright:
		return cs.upright
	default:
		return cs.lower
	}
}

// moveWithMember places points that are rigidly attached to an A-arm or the
// upright.
func (cs *cornerSolve) moveWithMember(a model.ActuationAttachment, hs ...model.Hardpoint) {
	t := cs.member(a)
	for _, h := range hs {
		cs.out.SetPoint(h, t.Apply(cs.orig.Point(h)))
	}
}

func (cs *cornerSolve) solveBellcrank() error {
	p1 := cs.out.Point(model.BellCrankPivot1)
	axis := cs.out.Point(model.BellCrankPivot2).Sub(p1)
	ref := cs.soft.Point(model.InboardPushrod)
	circle := CircleAbout(ref, p1, axis)
	rod := Sphere{cs.out.Point(model.OutboardPushrod), cs.length(model.OutboardPushrod, model.InboardPushrod)}
	a, b, ok := CircleSphere(circle, rod)
	if !ok {
		return infeasible(cs.loc, model.InboardPushrod, "pushrod cannot reach the bellcrank")
	}
	ipr := ClosestTo(ref, a, b)
	cs.out.SetPoint(model.InboardPushrod, ipr)
	cs.crankPivot = p1
	cs.crankAxis = axis
	cs.crankAngle = SignedAngle(ref.Sub(circle.Center), ipr.Sub(circle.Center), axis)
	return nil
}

func (cs *cornerSolve) moveWithBellcrank(h model.Hardpoint) {
	cs.out.SetPoint(h, RotateAbout(cs.soft.Point(h), cs.crankPivot, cs.crankAxis, cs.crankAngle))
}

func (cs *cornerSolve) solveOutboardBarLink() {
	switch cs.axle.BarAttachment {
	case model.BarAttachBellcrank:
		if cs.topology.hasBellcrank() {
			cs.moveWithBellcrank(model.OutboardBarLink)
			return
		}
		cs.moveWithMember(cs.orig.ActuationAttachment, model.OutboardBarLink)
	case model.BarAttachUpperAArm:
		cs.moveWithMember(model.AttachUpperAArm, model.OutboardBarLink)
	case model.BarAttachUpright:
		cs.moveWithMember(model.AttachUpright, model.OutboardBarLink)
	default:
		cs.moveWithMember(model.AttachLowerAArm, model.OutboardBarLink)
	}
}

func (cs *cornerSolve) solveInboardBarLink() error {
	ref := cs.soft.Point(model.InboardBarLink)
	circle := CircleAbout(ref, cs.barPivot, cs.barDir)
	link := Sphere{cs.out.Point(model.OutboardBarLink), cs.length(model.OutboardBarLink, model.InboardBarLink)}
	a, b, ok := CircleSphere(circle, link)
	if !ok {
		return infeasible(cs.loc, model.InboardBarLink, "bar link cannot reach the bar arm")
	}
	cs.out.SetPoint(model.InboardBarLink, ClosestTo(ref, a, b))
	return nil
}
