package model

import "fmt"

// BarStyle selects the anti-roll bar construction of an axle.
type BarStyle int

const (
	BarNone BarStyle = iota
	BarUBar
	BarTBar
	BarGeared
)

func (b BarStyle) String() string {
	switch b {
	case BarNone:
		return "None"
	case BarUBar:
		return "UBar"
	case BarTBar:
		return "TBar"
	case BarGeared:
		return "Geared"
	default:
		return fmt.Sprintf("BarStyle(%d)", int(b))
	}
}

// BarAttachment selects the member that carries the outboard bar link.
type BarAttachment int

const (
	BarAttachBellcrank BarAttachment = iota
	BarAttachLowerAArm
	BarAttachUpperAArm
	BarAttachUpright
)

func (b BarAttachment) String() string {
	switch b {
	case BarAttachBellcrank:
		return "Bellcrank"
	case BarAttachLowerAArm:
		return "LowerAArm"
	case BarAttachUpperAArm:
		return "UpperAArm"
	case BarAttachUpright:
		return "Upright"
	default:
		return fmt.Sprintf("BarAttachment(%d)", int(b))
	}
}

// AxleConfig holds the per-axle topology flags of a suspension.
type AxleConfig struct {
	BarStyle      BarStyle
	BarAttachment BarAttachment
	// BarRate is the bar torsional rate in torque per radian of twist.
	BarRate float64
	// BarSignGreaterThan keeps the positive twist sense (front of the bar
	// clockwise viewed from the right); false negates the reported twist.
	BarSignGreaterThan bool

	HasThirdSpring  bool
	HasThirdDamper  bool
	ThirdSpringRate float64

	HasHalfShafts bool
}

// Suspension is the union of the four corners and the shared chassis points.
type Suspension struct {
	Corners    WheelSet[Corner]
	Hardpoints [NumSuspensionHardpoints]Point

	Front AxleConfig
	Rear  AxleConfig

	// RackRatio is rack travel per radian of steering wheel angle.
	RackRatio float64

	// IsSymmetric mirrors the right-hand corners onto the left.
	IsSymmetric bool
}

// Corner returns a pointer to the corner at loc.
func (s *Suspension) Corner(loc Location) *Corner {
	return s.Corners.Ptr(loc)
}

// Axle returns the configuration of the given axle.
func (s *Suspension) Axle(a Axle) *AxleConfig {
	if a == Front {
		return &s.Front
	}
	return &s.Rear
}

// Point returns the position of a shared hardpoint.
func (s *Suspension) Point(h SuspensionHardpoint) Point {
	return s.Hardpoints[h]
}

// SetPoint moves a shared hardpoint.
func (s *Suspension) SetPoint(h SuspensionHardpoint, p Point) {
	s.Hardpoints[h] = p
}

// ApplySymmetry overwrites the left-hand corners with mirrors of the right
// when the suspension is flagged symmetric.
func (s *Suspension) ApplySymmetry() {
	if !s.IsSymmetric {
		return
	}
	s.Corners.LeftFront = s.Corners.RightFront.Mirrored(LeftFront)
	s.Corners.LeftRear = s.Corners.RightRear.Mirrored(LeftRear)
}

// RackTravelForSteeringAngle converts a steering wheel angle to rack travel.
func (s *Suspension) RackTravelForSteeringAngle(angle float64) float64 {
	return angle * s.RackRatio
}
