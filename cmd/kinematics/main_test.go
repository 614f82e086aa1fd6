package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/carfile"
	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, logging.Noop())
	return out.String(), err
}

func TestSingleAnalysisPrintsFilteredOutputs(t *testing.T) {
	out, err := runCLI(t, "-filter", "Track")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q, want Front and Rear track only", out)
	}
	if !strings.HasPrefix(lines[0], "Front.Track") || !strings.Contains(lines[0], "54") {
		t.Fatalf("first line = %q, want Front.Track 54", lines[0])
	}
}

func TestSteeringAngleGoesThroughRackRatio(t *testing.T) {
	// The sample rack ratio is 6.
	steered, err := runCLI(t, "-steer", "0.125", "-filter", "Steer")
	if err != nil {
		t.Fatalf("run -steer: %v", err)
	}
	racked, err := runCLI(t, "-rack", "0.75", "-filter", "Steer")
	if err != nil {
		t.Fatalf("run -rack: %v", err)
	}
	if steered != racked {
		t.Fatalf("-steer 0.125 printed\n%s\nwant the -rack 0.75 output\n%s", steered, racked)
	}
	if centered, _ := runCLI(t, "-filter", "Steer"); centered == steered {
		t.Fatalf("steering input did not change the steer outputs")
	}
}

func TestHeaveSweepPrintsEveryStep(t *testing.T) {
	out, err := runCLI(t, "-bellcrank", "-heave", "-1", "-sweep-to", "1", "-steps", "5", "-workers", "2", "-filter", "RightWheelbase")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, want := range []string{"# step 0 heave -1", "# step 2 heave 0", "# step 4 heave 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("sweep output missing %q (check %d):\n%s", want, i, out)
		}
	}
	if n := strings.Count(out, "RightWheelbase"); n != 5 {
		t.Fatalf("RightWheelbase printed %d times, want 5", n)
	}
}

func TestSweepReportsFailedSteps(t *testing.T) {
	out, err := runCLI(t, "-sweep-to", "40", "-steps", "5", "-filter", "Camber")
	if err == nil {
		t.Fatalf("expected an error for a sweep past full droop")
	}
	if !strings.Contains(out, "error\tinfeasible") {
		t.Fatalf("output does not report the infeasible step:\n%s", out)
	}
}

func TestQuasiStaticPrintsLoads(t *testing.T) {
	out, err := runCLI(t, "-quasi-static", "-gy", "0.5", "-filter", "RollCenter.Z")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out, "converged true") {
		t.Fatalf("output = %q, want convergence line first", out)
	}
	if strings.Count(out, "load ") != 4 {
		t.Fatalf("output = %q, want four wheel loads", out)
	}
}

func TestConvertThenAnalyzeSavedCar(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "baseline"+carfile.Extension)
	if out, err := runCLI(t, "-convert", saved); err != nil || !strings.Contains(out, "wrote sample") {
		t.Fatalf("convert = %q, %v", out, err)
	}
	asJSON := filepath.Join(dir, "baseline.json")
	if _, err := runCLI(t, "-car", saved, "-convert", asJSON); err != nil {
		t.Fatalf("convert back: %v", err)
	}
	out, err := runCLI(t, "-car", asJSON, "-roll", "0.01", "-filter", "Front.RollCenter")
	if err != nil {
		t.Fatalf("analyze converted car: %v", err)
	}
	if strings.Count(out, "Front.RollCenter") != 3 {
		t.Fatalf("output = %q, want the three roll center coordinates", out)
	}
}

func TestRejectsBadArguments(t *testing.T) {
	if _, err := runCLI(t, "-sequence", "Yaw"); err == nil {
		t.Fatalf("expected error for unknown sequence")
	}
	if _, err := runCLI(t, "extra"); err == nil {
		t.Fatalf("expected error for positional arguments")
	}
	if _, err := runCLI(t, "-h"); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("-h = %v, want flag.ErrHelp", err)
	}
	if _, err := runCLI(t, "-heave", "40"); !errors.Is(err, core.ErrGeometricInfeasibility) {
		t.Fatalf("-heave 40 = %v, want ErrGeometricInfeasibility", err)
	}
}
