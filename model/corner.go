package model

import (
	"fmt"
	"math"
)

// ActuationAttachment selects the member that carries the outboard pushrod pickup.
type ActuationAttachment int

const (
	AttachLowerAArm ActuationAttachment = iota
	AttachUpperAArm
	AttachUpright
)

func (a ActuationAttachment) String() string {
	switch a {
	case AttachLowerAArm:
		return "LowerAArm"
	case AttachUpperAArm:
		return "UpperAArm"
	case AttachUpright:
		return "Upright"
	default:
		return fmt.Sprintf("ActuationAttachment(%d)", int(a))
	}
}

// ActuationType selects the rocker topology of a corner.
type ActuationType int

const (
	PushPullrodWithBellcrank ActuationType = iota
	OutboardRockerArm
)

func (a ActuationType) String() string {
	switch a {
	case PushPullrodWithBellcrank:
		return "PushPullrodWithBellcrank"
	case OutboardRockerArm:
		return "OutboardRockerArm"
	default:
		return fmt.Sprintf("ActuationType(%d)", int(a))
	}
}

// Corner is the suspension at one wheel.
type Corner struct {
	Location   Location
	Hardpoints [NumHardpoints]Point

	// StaticCamber is positive when the wheel top tilts away from the
	// centerline; StaticToe is positive when the forward tangent points away
	// from the centerline. Radians.
	StaticCamber float64
	StaticToe    float64

	ActuationAttachment ActuationAttachment
	ActuationType       ActuationType

	// SpringRate is the coil rate in force per unit spring compression. It is
	// only consumed by the quasi-static wrapper.
	SpringRate float64
}

// Point returns the position of hardpoint h.
func (c *Corner) Point(h Hardpoint) Point {
	return c.Hardpoints[h]
}

// SetPoint moves hardpoint h to p.
func (c *Corner) SetPoint(h Hardpoint, p Point) {
	c.Hardpoints[h] = p
}

// WheelSpinAxis returns the outboard-pointing unit spin axis implied by the
// static camber and toe.
func (c *Corner) WheelSpinAxis() Point {
	return SpinAxis(c.Location, c.StaticCamber, c.StaticToe)
}

// SpinAxis returns the outboard-pointing unit wheel spin axis of a corner with
// the given camber and toe.
func SpinAxis(loc Location, camber, toe float64) Point {
	sc, cc := math.Sincos(camber)
	st, ct := math.Sincos(toe)
	return Point{st * cc, loc.Side() * ct * cc, -sc}
}

// WheelUp returns the unit direction, lying in the wheel plane, from the
// contact patch toward the wheel center for a wheel with spin axis n.
func WheelUp(n Point) Point {
	z := Point{0, 0, 1}
	up := z.Sub(n.Mul(z.Dot(n)))
	if up.Len() == 0 {
		return z
	}
	return up.Normalize()
}

// DeriveWheelCenter recomputes the wheel center from the contact patch, the
// static angles and the tire radius.
func (c *Corner) DeriveWheelCenter(tireRadius float64) {
	up := WheelUp(c.WheelSpinAxis())
	c.Hardpoints[WheelCenter] = c.Hardpoints[ContactPatch].Add(up.Mul(tireRadius))
}

// Mirrored returns a copy of c reflected through the longitudinal plane and
// relabelled as the given location.
func (c Corner) Mirrored(loc Location) Corner {
	out := c
	out.Location = loc
	for i := range out.Hardpoints {
		out.Hardpoints[i] = Mirror(c.Hardpoints[i])
	}
	return out
}
