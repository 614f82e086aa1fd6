package core

import (
	"math"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// Center is a point output that may lie at infinity.
type Center struct {
	Point      model.Point
	AtInfinity bool
}

// CornerOutputs are the per-wheel results. Angles are radians; lengths are in
// the hardpoint units.
type CornerOutputs struct {
	Camber      float64
	Caster      float64
	KPI         float64
	Steer       float64
	ScrubRadius float64
	CasterTrail float64
	// SpindleLength is the distance from the wheel center to the steering axis.
	SpindleLength float64

	WheelCenterTranslation model.Point
	// WheelTravel is the wheel-center motion along the chassis Z axis,
	// measured in the chassis frame. Positive is bump.
	WheelTravel float64

	// Displacements are positive in compression.
	SpringDisplacement float64
	DamperDisplacement float64
	SpringMotionRatio  float64
	DamperMotionRatio  float64
	// ARBMotionRatio is the bar twist per unit wheel-center rise at this corner.
	ARBMotionRatio float64
	// ThirdSpringMotionRatio is the third spring compression per unit
	// wheel-center rise at this corner alone.
	ThirdSpringMotionRatio float64

	HalfShaftAngle float64
	AxlePlunge     float64

	FrontViewSwingArm float64
	SideViewSwingArm  float64

	FrontViewInstantCenter Center
	SideViewInstantCenter  Center
	InstantAxis            Axis

	AntiDive  float64
	AntiLift  float64
	AntiSquat float64
}

// AxleOutputs are results that need both corners of an axle.
type AxleOutputs struct {
	RollCenter Center
	ARBTwist   float64
	NetSteer   float64
	NetScrub   float64
	Track      float64

	ThirdSpringDisplacement float64
	ThirdDamperDisplacement float64
}

// Outputs is the full output set of one analysis.
type Outputs struct {
	Corners model.WheelSet[CornerOutputs]
	Axles   model.FrontRear[AxleOutputs]

	RollAxis Axis

	RightPitchCenter Center
	LeftPitchCenter  Center
	PitchAxis        Axis

	RightWheelbase float64
	LeftWheelbase  float64
}

// Flatten returns every scalar output keyed "<Location>.<Name>",
// "<Axle>.<Name>" or "<Name>". Points contribute X, Y and Z entries.
// Outputs that lie at infinity are reported as +Inf.
func (o *Outputs) Flatten() map[string]float64 {
	m := make(map[string]float64, 192)
	for _, loc := range model.Locations {
		c := o.Corners.Get(loc)
		p := loc.String() + "."
		for name, v := range map[string]float64{
			"Camber":                 c.Camber,
			"Caster":                 c.Caster,
			"KPI":                    c.KPI,
			"Steer":                  c.Steer,
			"ScrubRadius":            c.ScrubRadius,
			"CasterTrail":            c.CasterTrail,
			"SpindleLength":          c.SpindleLength,
			"WheelTravel":            c.WheelTravel,
			"SpringDisplacement":     c.SpringDisplacement,
			"DamperDisplacement":     c.DamperDisplacement,
			"SpringMotionRatio":      c.SpringMotionRatio,
			"DamperMotionRatio":      c.DamperMotionRatio,
			"ARBMotionRatio":         c.ARBMotionRatio,
			"ThirdSpringMotionRatio": c.ThirdSpringMotionRatio,
			"HalfShaftAngle":         c.HalfShaftAngle,
			"AxlePlunge":             c.AxlePlunge,
			"FrontViewSwingArm":      c.FrontViewSwingArm,
			"SideViewSwingArm":       c.SideViewSwingArm,
			"AntiDive":               c.AntiDive,
			"AntiLift":               c.AntiLift,
			"AntiSquat":              c.AntiSquat,
		} {
			m[p+name] = v
		}
		putPoint(m, p+"WheelCenterTranslation", c.WheelCenterTranslation)
		putCenter(m, p+"FrontViewInstantCenter", c.FrontViewInstantCenter)
		putCenter(m, p+"SideViewInstantCenter", c.SideViewInstantCenter)
		putAxis(m, p+"InstantAxis", c.InstantAxis)
	}
	for _, axle := range []model.Axle{model.Front, model.Rear} {
		a := o.Axles.Get(axle)
		p := axle.String() + "."
		m[p+"ARBTwist"] = a.ARBTwist
		m[p+"NetSteer"] = a.NetSteer
		m[p+"NetScrub"] = a.NetScrub
		m[p+"Track"] = a.Track
		m[p+"ThirdSpringDisplacement"] = a.ThirdSpringDisplacement
		m[p+"ThirdDamperDisplacement"] = a.ThirdDamperDisplacement
		putCenter(m, p+"RollCenter", a.RollCenter)
	}
	putAxis(m, "RollAxis", o.RollAxis)
	putCenter(m, "RightPitchCenter", o.RightPitchCenter)
	putCenter(m, "LeftPitchCenter", o.LeftPitchCenter)
	putAxis(m, "PitchAxis", o.PitchAxis)
	m["RightWheelbase"] = o.RightWheelbase
	m["LeftWheelbase"] = o.LeftWheelbase
	return m
}

func putPoint(m map[string]float64, key string, p model.Point) {
	m[key+".X"] = p.X()
	m[key+".Y"] = p.Y()
	m[key+".Z"] = p.Z()
}

func putCenter(m map[string]float64, key string, c Center) {
	if c.AtInfinity {
		inf := math.Inf(1)
		putPoint(m, key, model.Point{inf, inf, inf})
		return
	}
	putPoint(m, key, c.Point)
}

func putAxis(m map[string]float64, key string, a Axis) {
	putPoint(m, key+".Direction", a.Direction)
	if a.AtInfinity {
		inf := math.Inf(1)
		putPoint(m, key+".Point", model.Point{inf, inf, inf})
		return
	}
	putPoint(m, key+".Point", a.Point)
}
