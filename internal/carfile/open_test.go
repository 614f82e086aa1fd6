package carfile

import (
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

func TestOpenSaveConvertsBetweenFormats(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "setup.json")
	carPath := filepath.Join(dir, "converted"+Extension)

	if err := Save(jsonPath, editedCar()); err != nil {
		t.Fatalf("Save json: %v", err)
	}
	fromJSON, err := Open(jsonPath)
	if err != nil {
		t.Fatalf("Open json: %v", err)
	}
	if fromJSON.Name != "sample" {
		t.Fatalf("json car name = %q, want the stored name", fromJSON.Name)
	}

	if err := Save(carPath, fromJSON); err != nil {
		t.Fatalf("Save car: %v", err)
	}
	back, err := Open(carPath)
	if err != nil {
		t.Fatalf("Open car: %v", err)
	}
	if back.Name != "converted" {
		t.Fatalf("saved-state car name = %q, want converted", back.Name)
	}

	want := editedCar()
	lf := model.LeftFront
	if got, w := back.Suspension.Corner(lf).Point(model.UpperBallJoint), want.Suspension.Corner(lf).Point(model.UpperBallJoint); got != w {
		t.Fatalf("LF upper ball joint = %v, want %v", got, w)
	}
	if back.Tires != want.Tires || back.Drivetrain != want.Drivetrain {
		t.Fatalf("tires or drivetrain lost in conversion")
	}
	if err := back.Validate(); err != nil {
		t.Fatalf("converted car is invalid: %v", err)
	}
}

func TestOpenJSONNamesUnnamedCarAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anon.JSON")
	car := model.SampleCar()
	car.Name = ""
	if err := Save(path, car); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Name != "anon" {
		t.Fatalf("Name = %q, want anon", got.Name)
	}
}

func TestOpenReportsPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
