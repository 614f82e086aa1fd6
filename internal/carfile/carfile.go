// Package carfile reads and writes the binary saved-state format: a 32-bit
// file version followed by tagged records for the suspension, brakes,
// drivetrain, engine, aerodynamics, mass properties and tires. Integers are
// little-endian, floats IEEE-754 binary64 and strings carry a 32-bit length.
package carfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

const (
	// Version is written by Write.
	Version = 5
	// MinVersion is the oldest version Read accepts. Version 3 files lack
	// third damper points and flags; version 4 files lack the bar sign
	// convention.
	MinVersion = 3
)

var (
	ErrUnsupportedVersion = errors.New("carfile: unsupported file version")
	ErrCorrupt            = errors.New("carfile: corrupt file")
)

type record struct {
	tag   string
	write func(e *encoder, c *model.Car, version int32)
	read  func(d *decoder, c *model.Car, version int32)
}

var records = []record{
	{"suspension", writeSuspension, readSuspension},
	{"brakes", writeBrakes, readBrakes},
	{"drivetrain", writeDrivetrain, readDrivetrain},
	{"engine", writeEngine, readEngine},
	{"aerodynamics", writeAero, readAero},
	{"mass", writeMass, readMass},
	{"tires", writeTires, readTires},
}

// Write encodes car at the current version. The car is read under its read
// lock.
func Write(w io.Writer, car *model.Car) error {
	return encode(w, car.Clone(), Version)
}

func encode(w io.Writer, car *model.Car, version int32) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}
	e.int32(version)
	for _, rec := range records {
		e.string(rec.tag)
		rec.write(e, car, version)
	}
	if e.err != nil {
		return fmt.Errorf("write car file: %w", e.err)
	}
	return bw.Flush()
}

// Read decodes a file of any supported version. Fields missing from older
// versions take their defaults and derived points are recomputed.
func Read(r io.Reader) (*model.Car, error) {
	d := &decoder{r: bufio.NewReader(r)}
	version := d.int32()
	if d.err != nil {
		return nil, fmt.Errorf("read file version: %w", d.err)
	}
	if version < MinVersion || version > Version {
		return nil, fmt.Errorf("%w: %d (supported %d..%d)", ErrUnsupportedVersion, version, MinVersion, Version)
	}

	car := &model.Car{}
	for _, rec := range records {
		if tag := d.string(); d.err == nil && tag != rec.tag {
			d.fail("found record %q where %q was expected", tag, rec.tag)
		}
		rec.read(d, car, version)
		if d.err != nil {
			return nil, fmt.Errorf("read %s record: %w", rec.tag, d.err)
		}
	}
	car.UpdateDerivedPoints()
	return car, nil
}

// ReadFile reads path and names the car after the file.
func ReadFile(path string) (*model.Car, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	car, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	car.Name = baseName(path)
	return car, nil
}

// WriteFile writes car to path, replacing any existing file.
func WriteFile(path string, car *model.Car) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, car); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// v3SuspensionPoints are the shared points stored before third dampers
// were added.
var v3SuspensionPoints = []model.SuspensionHardpoint{
	model.FrontBarMidPoint, model.FrontBarPivotAxis,
	model.FrontThirdSpringInboard, model.FrontThirdSpringOutboard,
	model.RearBarMidPoint, model.RearBarPivotAxis,
	model.RearThirdSpringInboard, model.RearThirdSpringOutboard,
}

func writeSuspension(e *encoder, c *model.Car, version int32) {
	s := &c.Suspension
	for _, loc := range model.Locations {
		corner := s.Corner(loc)
		e.float64(corner.StaticCamber)
		e.float64(corner.StaticToe)
		e.int32(int32(corner.ActuationAttachment))
		e.int32(int32(corner.ActuationType))
		e.float64(corner.SpringRate)
		e.points(corner.Hardpoints[:])
	}
	if version < 4 {
		pts := make([]model.Point, len(v3SuspensionPoints))
		for i, h := range v3SuspensionPoints {
			pts[i] = s.Point(h)
		}
		e.points(pts)
	} else {
		e.points(s.Hardpoints[:])
	}
	for _, axle := range []model.Axle{model.Front, model.Rear} {
		cfg := s.Axle(axle)
		e.int32(int32(cfg.BarStyle))
		e.int32(int32(cfg.BarAttachment))
		e.float64(cfg.BarRate)
		if version >= 5 {
			e.bool(cfg.BarSignGreaterThan)
		}
		e.bool(cfg.HasThirdSpring)
		if version >= 4 {
			e.bool(cfg.HasThirdDamper)
		}
		e.float64(cfg.ThirdSpringRate)
		e.bool(cfg.HasHalfShafts)
	}
	e.float64(s.RackRatio)
	e.bool(s.IsSymmetric)
}

func readSuspension(d *decoder, c *model.Car, version int32) {
	s := &c.Suspension
	for _, loc := range model.Locations {
		corner := s.Corner(loc)
		corner.Location = loc
		corner.StaticCamber = d.float64()
		corner.StaticToe = d.float64()
		corner.ActuationAttachment = model.ActuationAttachment(d.enum("actuation attachment", int32(model.AttachUpright)))
		corner.ActuationType = model.ActuationType(d.enum("actuation type", int32(model.OutboardRockerArm)))
		corner.SpringRate = d.float64()
		d.points(corner.Hardpoints[:])
	}
	if version < 4 {
		pts := make([]model.Point, len(v3SuspensionPoints))
		d.points(pts)
		for i, h := range v3SuspensionPoints {
			s.SetPoint(h, pts[i])
		}
	} else {
		d.points(s.Hardpoints[:])
	}
	for _, axle := range []model.Axle{model.Front, model.Rear} {
		cfg := s.Axle(axle)
		cfg.BarStyle = model.BarStyle(d.enum("bar style", int32(model.BarGeared)))
		cfg.BarAttachment = model.BarAttachment(d.enum("bar attachment", int32(model.BarAttachUpright)))
		cfg.BarRate = d.float64()
		cfg.BarSignGreaterThan = true
		if version >= 5 {
			cfg.BarSignGreaterThan = d.bool()
		}
		cfg.HasThirdSpring = d.bool()
		if version >= 4 {
			cfg.HasThirdDamper = d.bool()
		}
		cfg.ThirdSpringRate = d.float64()
		cfg.HasHalfShafts = d.bool()
	}
	s.RackRatio = d.float64()
	s.IsSymmetric = d.bool()
}

func writeBrakes(e *encoder, c *model.Car, _ int32) {
	b := &c.Brakes
	for _, loc := range model.Locations {
		e.bool(b.Braked.Get(loc))
	}
	e.bool(b.FrontBrakesInboard)
	e.bool(b.RearBrakesInboard)
	e.float64(b.PercentFrontBraking)
}

func readBrakes(d *decoder, c *model.Car, _ int32) {
	b := &c.Brakes
	for _, loc := range model.Locations {
		b.Braked.Set(loc, d.bool())
	}
	b.FrontBrakesInboard = d.bool()
	b.RearBrakesInboard = d.bool()
	b.PercentFrontBraking = d.float64()
}

func writeDrivetrain(e *encoder, c *model.Car, _ int32) {
	e.int32(int32(c.Drivetrain.DriveType))
	e.float64(c.Drivetrain.FrontTorqueFraction)
}

func readDrivetrain(d *decoder, c *model.Car, _ int32) {
	c.Drivetrain.DriveType = model.DriveType(d.enum("drive type", int32(model.AllWheelDrive)))
	c.Drivetrain.FrontTorqueFraction = d.float64()
}

func writeEngine(e *encoder, c *model.Car, _ int32) {
	e.float64(c.Engine.PeakTorque)
	e.float64(c.Engine.RedlineRPM)
}

func readEngine(d *decoder, c *model.Car, _ int32) {
	c.Engine.PeakTorque = d.float64()
	c.Engine.RedlineRPM = d.float64()
}

func writeAero(e *encoder, c *model.Car, _ int32) {
	a := &c.Aero
	e.float64(a.FrontalArea)
	e.float64(a.DragCoefficient)
	e.float64(a.LiftCoefficient)
	e.point(a.CenterOfPressure)
}

func readAero(d *decoder, c *model.Car, _ int32) {
	a := &c.Aero
	a.FrontalArea = d.float64()
	a.DragCoefficient = d.float64()
	a.LiftCoefficient = d.float64()
	a.CenterOfPressure = d.point()
}

func writeMass(e *encoder, c *model.Car, _ int32) {
	m := &c.Mass
	e.float64(m.Mass)
	e.point(m.CenterOfGravity)
	for _, loc := range model.Locations {
		e.float64(m.UnsprungMass.Get(loc))
	}
	e.float64(m.Gravity)
}

func readMass(d *decoder, c *model.Car, _ int32) {
	m := &c.Mass
	m.Mass = d.float64()
	m.CenterOfGravity = d.point()
	for _, loc := range model.Locations {
		m.UnsprungMass.Set(loc, d.float64())
	}
	m.Gravity = d.float64()
}

func writeTires(e *encoder, c *model.Car, _ int32) {
	for _, loc := range model.Locations {
		t := c.Tires.Get(loc)
		e.float64(t.Diameter)
		e.float64(t.Width)
		e.float64(t.Stiffness)
	}
}

func readTires(d *decoder, c *model.Car, _ int32) {
	for _, loc := range model.Locations {
		c.Tires.Set(loc, model.Tire{Diameter: d.float64(), Width: d.float64(), Stiffness: d.float64()})
	}
}
