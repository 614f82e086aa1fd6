package model

import "fmt"

// Tire is the load-vs-deflection description of one tire.
type Tire struct {
	Diameter float64
	Width    float64
	// Stiffness is vertical rate in force per unit deflection.
	Stiffness float64
}

// Radius returns the unloaded tire radius.
func (t Tire) Radius() float64 { return t.Diameter / 2 }

// Brakes describes which wheels are braked and where the torque reacts.
type Brakes struct {
	Braked              WheelSet[bool]
	FrontBrakesInboard  bool
	RearBrakesInboard   bool
	PercentFrontBraking float64 // fraction in [0, 1]
}

// IsInboard reports whether the brakes on the given axle are chassis mounted.
func (b *Brakes) IsInboard(a Axle) bool {
	if a == Front {
		return b.FrontBrakesInboard
	}
	return b.RearBrakesInboard
}

// AxleFraction returns the share of braking torque carried by the axle.
func (b *Brakes) AxleFraction(a Axle) float64 {
	if a == Front {
		return b.PercentFrontBraking
	}
	return 1 - b.PercentFrontBraking
}

// DriveType selects which wheels are driven.
type DriveType int

const (
	RearWheelDrive DriveType = iota
	FrontWheelDrive
	AllWheelDrive
)

func (d DriveType) String() string {
	switch d {
	case RearWheelDrive:
		return "RearWheelDrive"
	case FrontWheelDrive:
		return "FrontWheelDrive"
	case AllWheelDrive:
		return "AllWheelDrive"
	default:
		return fmt.Sprintf("DriveType(%d)", int(d))
	}
}

// Drivetrain describes the drive-wheel selection.
type Drivetrain struct {
	DriveType DriveType
	// FrontTorqueFraction is the front share of drive torque for AllWheelDrive.
	FrontTorqueFraction float64
}

// IsDriven reports whether the corner receives drive torque.
func (d *Drivetrain) IsDriven(l Location) bool {
	return d.AxleFraction(l.Axle()) > 0
}

// AxleFraction returns the share of drive torque carried by the axle.
func (d *Drivetrain) AxleFraction(a Axle) float64 {
	switch d.DriveType {
	case FrontWheelDrive:
		if a == Front {
			return 1
		}
		return 0
	case AllWheelDrive:
		if a == Front {
			return d.FrontTorqueFraction
		}
		return 1 - d.FrontTorqueFraction
	default:
		if a == Rear {
			return 1
		}
		return 0
	}
}

// Engine is a data container carried in saved files.
type Engine struct {
	PeakTorque float64
	RedlineRPM float64
}

// Aerodynamics is a data container carried in saved files.
type Aerodynamics struct {
	FrontalArea      float64
	DragCoefficient  float64
	LiftCoefficient  float64
	CenterOfPressure Point
}

// MassProperties holds the mass distribution used by anti-geometry and the
// quasi-static wrapper.
type MassProperties struct {
	Mass            float64
	CenterOfGravity Point
	UnsprungMass    WheelSet[float64]
	// Gravity in length per second squared, consistent with the hardpoint units.
	Gravity float64
}

// Weight returns the total weight force.
func (m *MassProperties) Weight() float64 {
	return m.Mass * m.Gravity
}
