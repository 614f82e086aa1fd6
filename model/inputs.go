package model

import "fmt"

// RotationSequence selects the order in which pitch and roll are applied.
type RotationSequence int

const (
	PitchThenRoll RotationSequence = iota
	RollThenPitch
)

func (r RotationSequence) String() string {
	switch r {
	case PitchThenRoll:
		return "PitchThenRoll"
	case RollThenPitch:
		return "RollThenPitch"
	default:
		return fmt.Sprintf("RotationSequence(%d)", int(r))
	}
}

// Inverse returns the sequence that undoes r when applied with negated angles.
func (r RotationSequence) Inverse() RotationSequence {
	if r == PitchThenRoll {
		return RollThenPitch
	}
	return PitchThenRoll
}

// KinematicsInputs is one chassis attitude command.
type KinematicsInputs struct {
	Pitch      float64 // radians, nose up positive
	Roll       float64 // radians, right side up positive
	Heave      float64 // positive up
	RackTravel float64 // positive toward the driver's right

	CenterOfRotation Point
	Sequence         RotationSequence

	TireDeflections WheelSet[float64]
}

// Inverse returns the command that restores a car moved by in. Translations
// are expressed in the ground frame, so the center of rotation is displaced
// by the heave.
//
// A command that combines roll with rack travel is not exactly invertible.
// The rack offset is applied along the chassis lateral axis before the
// rotation, so on the rolled car the inverse rack acts along a rotated axis
// and the inboard tie rods come back off by roughly rack times roll.
func (in KinematicsInputs) Inverse() KinematicsInputs {
	out := in
	out.Pitch = -in.Pitch
	out.Roll = -in.Roll
	out.Heave = -in.Heave
	out.RackTravel = -in.RackTravel
	out.Sequence = in.Sequence.Inverse()
	out.CenterOfRotation = in.CenterOfRotation.Add(Point{0, 0, in.Heave})
	out.TireDeflections = WheelSet[float64]{}
	return out
}

// IsLaterallySymmetric reports whether the command treats both sides alike.
func (in KinematicsInputs) IsLaterallySymmetric() bool {
	return in.Roll == 0 && in.RackTravel == 0 && in.CenterOfRotation.Y() == 0 &&
		in.TireDeflections.RightFront == in.TireDeflections.LeftFront &&
		in.TireDeflections.RightRear == in.TireDeflections.LeftRear
}

// QuasiStaticInputs is the demanded steady-state acceleration, in g. Gx is
// positive toward +X (braking), Gy positive toward +Y (turning right).
type QuasiStaticInputs struct {
	Gx         float64
	Gy         float64
	RackTravel float64

	CenterOfRotation Point
	Sequence         RotationSequence
}
