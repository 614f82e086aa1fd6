package model

// Wheelbase of the sample car, rear axle X minus front axle X.
const sampleWheelbase = 100.0

// SampleCar returns a symmetric double-wishbone car with coilovers mounted on
// the lower A-arms, a U-bar at each axle and driven rear half-shafts. Units
// are inches and pounds.
func SampleCar() *Car {
	return sampleCar(OutboardRockerArm)
}

// SampleBellcrankCar returns the sample geometry actuated by pushrods through
// chassis-mounted bellcranks.
func SampleBellcrankCar() *Car {
	return sampleCar(PushPullrodWithBellcrank)
}

func sampleCar(actuation ActuationType) *Car {
	front := sampleCorner(RightFront, actuation, 0)
	rear := sampleCorner(RightRear, actuation, sampleWheelbase)
	rear.SetPoint(OutboardHalfShaft, Point{95, 24, 10})
	rear.SetPoint(InboardHalfShaft, Point{95, 6, 10})

	car := &Car{
		Name: "sample",
		Suspension: Suspension{
			Corners: WheelSet[Corner]{
				RightFront: front,
				LeftFront:  front.Mirrored(LeftFront),
				RightRear:  rear,
				LeftRear:   rear.Mirrored(LeftRear),
			},
			Front: AxleConfig{
				BarStyle:           BarUBar,
				BarAttachment:      BarAttachLowerAArm,
				BarRate:            3000,
				BarSignGreaterThan: true,
			},
			Rear: AxleConfig{
				BarStyle:           BarUBar,
				BarAttachment:      BarAttachLowerAArm,
				BarRate:            2000,
				BarSignGreaterThan: true,
				HasHalfShafts:      true,
			},
			RackRatio:   6,
			IsSymmetric: true,
		},
		Brakes: Brakes{
			Braked:              NewWheelSet(true),
			PercentFrontBraking: 0.6,
		},
		Drivetrain: Drivetrain{DriveType: RearWheelDrive},
		Engine:     Engine{PeakTorque: 45, RedlineRPM: 11000},
		Aero:       Aerodynamics{FrontalArea: 1400, DragCoefficient: 0.9, LiftCoefficient: -1.2, CenterOfPressure: Point{50, 0, 14}},
		Mass: MassProperties{
			Mass:            1.5,
			CenterOfGravity: Point{45, 0, 12},
			UnsprungMass:    NewWheelSet(0.05),
			Gravity:         386.088,
		},
		Tires: NewWheelSet(Tire{Diameter: 20, Width: 7, Stiffness: 1000}),
	}

	for _, axle := range []Axle{Front, Rear} {
		dx := 0.0
		if axle == Rear {
			dx = sampleWheelbase
		}
		hp := HardpointsFor(axle)
		car.Suspension.SetPoint(hp.BarMidPoint, Point{-12 + dx, 0, 9})
		car.Suspension.SetPoint(hp.BarPivotAxis, Point{-22 + dx, 0, 9})
		car.Suspension.SetPoint(hp.ThirdSpringInboard, Point{-5 + dx, 0, 22})
		car.Suspension.SetPoint(hp.ThirdSpringOutboard, Point{-5 + dx, 0, 18.5})
		car.Suspension.SetPoint(hp.ThirdDamperInboard, Point{-4 + dx, 0, 22})
		car.Suspension.SetPoint(hp.ThirdDamperOutboard, Point{-4 + dx, 0, 18.5})
	}

	car.UpdateDerivedPoints()
	return car
}

func sampleCorner(loc Location, actuation ActuationType, dx float64) Corner {
	c := Corner{
		Location:            loc,
		ActuationAttachment: AttachLowerAArm,
		ActuationType:       actuation,
		SpringRate:          250,
	}
	set := func(h Hardpoint, x, y, z float64) {
		c.SetPoint(h, Point{x + dx, y, z})
	}

	set(LowerFrontTubMount, -10, 8, 3)
	set(LowerRearTubMount, 0, 8, 3)
	set(LowerBallJoint, -5, 24, 4)
	set(UpperFrontTubMount, -9, 7, 10)
	set(UpperRearTubMount, -1, 7, 10)
	set(UpperBallJoint, -5, 23, 12)
	set(OutboardTieRod, 1, 23.5, 7)
	set(InboardTieRod, 1, 7, 7)
	set(ContactPatch, -5, 27, 0)

	set(OutboardPushrod, -5, 22, 4.5)
	set(InboardPushrod, -5, 11, 19)
	set(BellCrankPivot1, -7, 8, 15)
	set(BellCrankPivot2, -3, 8, 15)

	if actuation == PushPullrodWithBellcrank {
		set(OutboardSpring, -6, 8, 19.5)
		set(InboardSpring, -6, 1, 19.5)
		set(OutboardDamper, -4, 8, 19.5)
		set(InboardDamper, -4, 1, 19.5)
	} else {
		set(OutboardSpring, -3, 20, 4.5)
		set(InboardSpring, -3, 12, 16)
		set(OutboardDamper, -7, 20, 4.5)
		set(InboardDamper, -7, 12, 16)
	}

	set(OutboardBarLink, -2, 14, 3.4)
	set(InboardBarLink, -2, 14, 9)
	set(BarArmAtPivot, -12, 14, 9)
	set(GearEndBarShaft, -12, 10, 9)
	return c
}
