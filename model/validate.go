package model

import (
	"errors"
	"math"
)

const (
	minLinkLength  = 1e-6
	groundPlaneTol = 1e-6
)

// Validate checks the car for configurations the solver cannot handle. Every
// failure is a *ConfigError; the returned error matches ErrInvalidConfiguration.
func (c *Car) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	s := &c.Suspension
	if !(s.RackRatio > 0) {
		errs = append(errs, &ConfigError{Hardpoint: "RackRatio", Reason: "rack ratio must be positive"})
	}
	for _, loc := range Locations {
		if r := c.Tires.Get(loc).Radius(); !(r > 0) {
			l := loc
			errs = append(errs, &ConfigError{Corner: &l, Hardpoint: "Tire", Reason: "tire diameter must be positive"})
		}
		errs = append(errs, validateCorner(s.Corner(loc))...)
	}
	for _, axle := range []Axle{Front, Rear} {
		errs = append(errs, validateAxle(s, axle)...)
	}
	return errors.Join(errs...)
}

func validateCorner(c *Corner) []error {
	var errs []error
	loc := c.Location
	for _, p := range c.Hardpoints {
		if !IsFinite(p) {
			errs = append(errs, &ConfigError{Corner: &loc, Reason: "hardpoint coordinates must be finite"})
			return errs
		}
	}

	if collinear(c.Point(LowerFrontTubMount), c.Point(LowerRearTubMount), c.Point(LowerBallJoint)) {
		errs = append(errs, cornerError(loc, LowerBallJoint, "lower A-arm mounts and ball joint are collinear"))
	}
	if collinear(c.Point(UpperFrontTubMount), c.Point(UpperRearTubMount), c.Point(UpperBallJoint)) {
		errs = append(errs, cornerError(loc, UpperBallJoint, "upper A-arm mounts and ball joint are collinear"))
	}
	if collinear(c.Point(LowerBallJoint), c.Point(UpperBallJoint), c.Point(OutboardTieRod)) {
		errs = append(errs, cornerError(loc, OutboardTieRod, "tie rod pickup lies on the steering axis"))
	}
	if z := c.Point(ContactPatch).Z(); math.Abs(z) > groundPlaneTol {
		errs = append(errs, cornerError(loc, ContactPatch, "contact patch must lie on the ground plane (z = %g)", z))
	}

	links := []struct {
		a, b Hardpoint
	}{
		{LowerFrontTubMount, LowerBallJoint},
		{LowerRearTubMount, LowerBallJoint},
		{UpperFrontTubMount, UpperBallJoint},
		{UpperRearTubMount, UpperBallJoint},
		{LowerBallJoint, UpperBallJoint},
		{InboardTieRod, OutboardTieRod},
		{InboardSpring, OutboardSpring},
		{InboardDamper, OutboardDamper},
	}
	if c.ActuationType == PushPullrodWithBellcrank {
		links = append(links,
			struct{ a, b Hardpoint }{OutboardPushrod, InboardPushrod},
			struct{ a, b Hardpoint }{BellCrankPivot1, BellCrankPivot2},
		)
	}
	for _, l := range links {
		if Distance(c.Point(l.a), c.Point(l.b)) < minLinkLength {
			errs = append(errs, cornerError(loc, l.b, "link %s-%s has non-positive length", l.a, l.b))
		}
	}
	if c.ActuationType == PushPullrodWithBellcrank &&
		distanceToLine(c.Point(InboardPushrod), c.Point(BellCrankPivot1), c.Point(BellCrankPivot2)) < minLinkLength {
		errs = append(errs, cornerError(loc, InboardPushrod, "pushrod pickup lies on the bellcrank pivot axis"))
	}
	return errs
}

func validateAxle(s *Suspension, axle Axle) []error {
	cfg := s.Axle(axle)
	if cfg.BarStyle == BarNone {
		return nil
	}
	var errs []error
	hp := HardpointsFor(axle)
	for _, loc := range []Location{axle.Right(), axle.Left()} {
		c := s.Corner(loc)
		if cfg.BarAttachment == BarAttachBellcrank && c.ActuationType != PushPullrodWithBellcrank {
			errs = append(errs, cornerError(loc, OutboardBarLink, "bar attached to a bellcrank but the corner uses a rocker arm"))
		}
		if Distance(c.Point(OutboardBarLink), c.Point(InboardBarLink)) < minLinkLength {
			errs = append(errs, cornerError(loc, InboardBarLink, "bar link has non-positive length"))
		}
		switch cfg.BarStyle {
		case BarGeared:
			if Distance(c.Point(BarArmAtPivot), c.Point(GearEndBarShaft)) < minLinkLength {
				errs = append(errs, cornerError(loc, GearEndBarShaft, "geared bar shaft has no length"))
			}
		}
	}
	switch cfg.BarStyle {
	case BarUBar:
		r, l := s.Corner(axle.Right()), s.Corner(axle.Left())
		if Distance(r.Point(BarArmAtPivot), l.Point(BarArmAtPivot)) < minLinkLength {
			errs = append(errs, &ConfigError{Hardpoint: BarArmAtPivot.String(), Reason: axle.String() + " U-bar pivots coincide"})
		}
	case BarTBar:
		if Distance(s.Point(hp.BarMidPoint), s.Point(hp.BarPivotAxis)) < minLinkLength {
			errs = append(errs, &ConfigError{Hardpoint: hp.BarPivotAxis.String(), Reason: "T-bar pivot axis has no length"})
		}
	}
	return errs
}

func collinear(a, b, c Point) bool {
	ab, ac := b.Sub(a), c.Sub(a)
	scale := ab.Len() * ac.Len()
	if scale < minLinkLength*minLinkLength {
		return true
	}
	return ab.Cross(ac).Len() < 1e-9*scale
}

func distanceToLine(p, a, b Point) float64 {
	d := b.Sub(a)
	if d.Len() == 0 {
		return Distance(p, a)
	}
	return p.Sub(a).Cross(d.Normalize()).Len()
}
