package carfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

func editedCar() *model.Car {
	car := model.SampleBellcrankCar()
	car.Edit(func(c *model.Car) {
		c.Suspension.IsSymmetric = false
		lf := c.Suspension.Corner(model.LeftFront)
		lf.StaticCamber = -0.015
		lf.SetPoint(model.UpperBallJoint, lf.Point(model.UpperBallJoint).Add(model.Point{0.1, 0, 0.2}))
		c.Suspension.Rear.HasThirdDamper = true
		c.Suspension.Rear.BarSignGreaterThan = false
		c.Brakes.RearBrakesInboard = true
		c.Drivetrain = model.Drivetrain{DriveType: model.AllWheelDrive, FrontTorqueFraction: 0.3}
		c.Tires.Set(model.RightRear, model.Tire{Diameter: 21, Width: 8, Stiffness: 900})
	})
	return car
}

func assertSameCar(t *testing.T, got, want *model.Car) {
	t.Helper()
	if got.Suspension != want.Suspension {
		t.Fatalf("suspension differs after round trip")
	}
	if got.Brakes != want.Brakes {
		t.Fatalf("brakes = %+v, want %+v", got.Brakes, want.Brakes)
	}
	if got.Drivetrain != want.Drivetrain {
		t.Fatalf("drivetrain = %+v, want %+v", got.Drivetrain, want.Drivetrain)
	}
	if got.Engine != want.Engine {
		t.Fatalf("engine = %+v, want %+v", got.Engine, want.Engine)
	}
	if got.Aero != want.Aero {
		t.Fatalf("aero = %+v, want %+v", got.Aero, want.Aero)
	}
	if got.Mass != want.Mass {
		t.Fatalf("mass = %+v, want %+v", got.Mass, want.Mass)
	}
	if got.Tires != want.Tires {
		t.Fatalf("tires = %+v, want %+v", got.Tires, want.Tires)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	want := editedCar()
	var buf bytes.Buffer
	if err := Write(&buf, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertSameCar(t, got, want.Clone())
}

func TestWriteLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, model.SampleCar()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b := buf.Bytes()
	if v := binary.LittleEndian.Uint32(b[0:4]); v != Version {
		t.Fatalf("file version = %d, want %d", v, Version)
	}
	if n := binary.LittleEndian.Uint32(b[4:8]); n != uint32(len("suspension")) {
		t.Fatalf("first tag length = %d, want %d", n, len("suspension"))
	}
	if tag := string(b[8:18]); tag != "suspension" {
		t.Fatalf("first tag = %q, want suspension", tag)
	}
	// First corner field: RightFront static camber as a binary64.
	if camber := binary.LittleEndian.Uint64(b[18:26]); camber != 0 {
		t.Fatalf("RightFront camber bits = %x, want 0", camber)
	}
}

func TestReadOlderVersionsAppliesDefaults(t *testing.T) {
	src := editedCar()

	for _, version := range []int32{3, 4} {
		var buf bytes.Buffer
		if err := encode(&buf, src.Clone(), version); err != nil {
			t.Fatalf("encode v%d: %v", version, err)
		}
		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("Read v%d: %v", version, err)
		}
		if !got.Suspension.Rear.BarSignGreaterThan {
			t.Fatalf("v%d: bar sign should default to greater-than", version)
		}
		if got.Suspension.Point(model.FrontBarMidPoint) != src.Suspension.Point(model.FrontBarMidPoint) {
			t.Fatalf("v%d: bar mid point lost", version)
		}
		damper := got.Suspension.Point(model.FrontThirdDamperInboard)
		switch version {
		case 3:
			if got.Suspension.Rear.HasThirdDamper || damper != (model.Point{}) {
				t.Fatalf("v3 carried third damper data: %v %v", got.Suspension.Rear.HasThirdDamper, damper)
			}
		case 4:
			if !got.Suspension.Rear.HasThirdDamper || damper != (model.Point{-4, 0, 22}) {
				t.Fatalf("v4 lost third damper data: %v %v", got.Suspension.Rear.HasThirdDamper, damper)
			}
		}
		if got.Tires != src.Tires || got.Drivetrain != src.Drivetrain {
			t.Fatalf("v%d: later records misaligned", version)
		}
	}
}

func TestReadRejectsUnsupportedVersions(t *testing.T) {
	for _, version := range []uint32{2, 6} {
		b := binary.LittleEndian.AppendUint32(nil, version)
		if _, err := Read(bytes.NewReader(b)); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("Read(v%d) = %v, want ErrUnsupportedVersion", version, err)
		}
	}
}

func TestReadRejectsDamagedFiles(t *testing.T) {
	var good bytes.Buffer
	if err := Write(&good, model.SampleCar()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	truncated := good.Bytes()[:good.Len()-5]
	if _, err := Read(bytes.NewReader(truncated)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("truncated Read = %v, want io.ErrUnexpectedEOF", err)
	}

	renamed := append([]byte(nil), good.Bytes()...)
	copy(renamed[8:18], "SUSPENSION")
	if _, err := Read(bytes.NewReader(renamed)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("bad tag Read = %v, want ErrCorrupt", err)
	}

	bad := model.SampleCar()
	bad.Suspension.Corner(model.RightFront).ActuationType = model.ActuationType(7)
	var buf bytes.Buffer
	if err := encode(&buf, bad, Version); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Read(&buf); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("bad enum Read = %v, want ErrCorrupt", err)
	}

	if _, err := Read(bytes.NewReader(nil)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("empty Read = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestFileHelpersNameCarAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.car")
	want := editedCar()
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Name != "baseline" {
		t.Fatalf("Name = %q, want baseline", got.Name)
	}
	assertSameCar(t, got, want.Clone())

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.car")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
