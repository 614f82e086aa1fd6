package model

import "fmt"

// Hardpoint names one linkage point of a corner. The names are stable and
// are used by sweeps, optimisers and the saved-state layout.
type Hardpoint int

const (
	LowerFrontTubMount Hardpoint = iota
	LowerRearTubMount
	LowerBallJoint
	UpperFrontTubMount
	UpperRearTubMount
	UpperBallJoint
	OutboardTieRod
	InboardTieRod
	OutboardPushrod
	InboardPushrod
	BellCrankPivot1
	BellCrankPivot2
	OutboardSpring
	InboardSpring
	OutboardDamper
	InboardDamper
	ContactPatch
	WheelCenter
	OutboardBarLink
	InboardBarLink
	BarArmAtPivot
	GearEndBarShaft
	OutboardHalfShaft
	InboardHalfShaft
	NumHardpoints
)

var hardpointNames = [NumHardpoints]string{
	"LowerFrontTubMount",
	"LowerRearTubMount",
	"LowerBallJoint",
	"UpperFrontTubMount",
	"UpperRearTubMount",
	"UpperBallJoint",
	"OutboardTieRod",
	"InboardTieRod",
	"OutboardPushrod",
	"InboardPushrod",
	"BellCrankPivot1",
	"BellCrankPivot2",
	"OutboardSpring",
	"InboardSpring",
	"OutboardDamper",
	"InboardDamper",
	"ContactPatch",
	"WheelCenter",
	"OutboardBarLink",
	"InboardBarLink",
	"BarArmAtPivot",
	"GearEndBarShaft",
	"OutboardHalfShaft",
	"InboardHalfShaft",
}

func (h Hardpoint) String() string {
	if h < 0 || h >= NumHardpoints {
		return fmt.Sprintf("Hardpoint(%d)", int(h))
	}
	return hardpointNames[h]
}

// ParseHardpoint maps a stable hardpoint name back to its Hardpoint.
func ParseHardpoint(s string) (Hardpoint, error) {
	for i, name := range hardpointNames {
		if name == s {
			return Hardpoint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown hardpoint %q", s)
}

// IsChassisMounted reports whether the point is fixed to the sprung mass and
// therefore moves rigidly with the attitude command.
func (h Hardpoint) IsChassisMounted() bool {
	switch h {
	case LowerFrontTubMount, LowerRearTubMount,
		UpperFrontTubMount, UpperRearTubMount,
		InboardTieRod,
		BellCrankPivot1, BellCrankPivot2,
		InboardSpring, InboardDamper,
		BarArmAtPivot, GearEndBarShaft,
		InboardHalfShaft:
		return true
	}
	return false
}

// SuspensionHardpoint names a chassis point shared by both corners of an axle.
type SuspensionHardpoint int

const (
	FrontBarMidPoint SuspensionHardpoint = iota
	FrontBarPivotAxis
	FrontThirdSpringInboard
	FrontThirdSpringOutboard
	FrontThirdDamperInboard
	FrontThirdDamperOutboard
	RearBarMidPoint
	RearBarPivotAxis
	RearThirdSpringInboard
	RearThirdSpringOutboard
	RearThirdDamperInboard
	RearThirdDamperOutboard
	NumSuspensionHardpoints
)

var suspensionHardpointNames = [NumSuspensionHardpoints]string{
	"FrontBarMidPoint",
	"FrontBarPivotAxis",
	"FrontThirdSpringInboard",
	"FrontThirdSpringOutboard",
	"FrontThirdDamperInboard",
	"FrontThirdDamperOutboard",
	"RearBarMidPoint",
	"RearBarPivotAxis",
	"RearThirdSpringInboard",
	"RearThirdSpringOutboard",
	"RearThirdDamperInboard",
	"RearThirdDamperOutboard",
}

func (h SuspensionHardpoint) String() string {
	if h < 0 || h >= NumSuspensionHardpoints {
		return fmt.Sprintf("SuspensionHardpoint(%d)", int(h))
	}
	return suspensionHardpointNames[h]
}

// ParseSuspensionHardpoint maps a stable name back to its SuspensionHardpoint.
func ParseSuspensionHardpoint(s string) (SuspensionHardpoint, error) {
	for i, name := range suspensionHardpointNames {
		if name == s {
			return SuspensionHardpoint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suspension hardpoint %q", s)
}

// IsChassisMounted reports whether the shared point is fixed to the sprung mass.
// Third spring and damper outboard ends ride on the bellcrank shuttle.
func (h SuspensionHardpoint) IsChassisMounted() bool {
	switch h {
	case FrontThirdSpringOutboard, FrontThirdDamperOutboard,
		RearThirdSpringOutboard, RearThirdDamperOutboard:
		return false
	}
	return h >= 0 && h < NumSuspensionHardpoints
}

// AxleHardpoints groups the shared points that belong to one axle.
type AxleHardpoints struct {
	BarMidPoint         SuspensionHardpoint
	BarPivotAxis        SuspensionHardpoint
	ThirdSpringInboard  SuspensionHardpoint
	ThirdSpringOutboard SuspensionHardpoint
	ThirdDamperInboard  SuspensionHardpoint
	ThirdDamperOutboard SuspensionHardpoint
}

// HardpointsFor returns the shared hardpoint names of the given axle.
func HardpointsFor(a Axle) AxleHardpoints {
	if a == Front {
		return AxleHardpoints{
			BarMidPoint:         FrontBarMidPoint,
			BarPivotAxis:        FrontBarPivotAxis,
			ThirdSpringInboard:  FrontThirdSpringInboard,
			ThirdSpringOutboard: FrontThirdSpringOutboard,
			ThirdDamperInboard:  FrontThirdDamperInboard,
			ThirdDamperOutboard: FrontThirdDamperOutboard,
		}
	}
	return AxleHardpoints{
		BarMidPoint:         RearBarMidPoint,
		BarPivotAxis:        RearBarPivotAxis,
		ThirdSpringInboard:  RearThirdSpringInboard,
		ThirdSpringOutboard: RearThirdSpringOutboard,
		ThirdDamperInboard:  RearThirdDamperInboard,
		ThirdDamperOutboard: RearThirdDamperOutboard,
	}
}
