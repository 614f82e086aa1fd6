package core

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// attitude is the rigid motion of the sprung mass for one command.
type attitude struct {
	r      mgl64.Mat3
	center model.Point
	heave  float64
	rack   float64
}

func newAttitude(in model.KinematicsInputs) attitude {
	pitch := mgl64.Rotate3DY(in.Pitch)
	roll := mgl64.Rotate3DX(in.Roll)
	r := roll.Mul3(pitch)
	if in.Sequence == model.RollThenPitch {
		r = pitch.Mul3(roll)
	}
	return attitude{r: r, center: in.CenterOfRotation, heave: in.Heave, rack: in.RackTravel}
}

// apply moves a chassis point into the ground frame.
func (a attitude) apply(p model.Point) model.Point {
	return a.r.Mul3x1(p.Sub(a.center)).Add(a.center).Add(model.Point{0, 0, a.heave})
}

// toChassis maps a ground-frame point back into the undisplaced chassis frame.
func (a attitude) toChassis(p model.Point) model.Point {
	q := p.Sub(model.Point{0, 0, a.heave}).Sub(a.center)
	return a.r.Transpose().Mul3x1(q).Add(a.center)
}

// moveSprungMass applies the attitude to every point of the car. Chassis
// mounted points land in their final positions; the rest become the soft
// references used for branch selection. The rack displaces the front inboard
// tie rods along the chassis lateral axis before the rotation.
func moveSprungMass(car *model.Car, in model.KinematicsInputs) attitude {
	att := newAttitude(in)
	for _, loc := range model.Locations {
		c := car.Suspension.Corner(loc)
		for h := model.Hardpoint(0); h < model.NumHardpoints; h++ {
			p := c.Point(h)
			if h == model.InboardTieRod && loc.IsFront() {
				p = p.Add(model.Point{0, att.rack, 0})
			}
			c.SetPoint(h, att.apply(p))
		}
	}
	for h := model.SuspensionHardpoint(0); h < model.NumSuspensionHardpoints; h++ {
		car.Suspension.SetPoint(h, att.apply(car.Suspension.Point(h)))
	}
	car.Mass.CenterOfGravity = att.apply(car.Mass.CenterOfGravity)
	return att
}
