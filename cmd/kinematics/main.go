package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/carfile"
	"github.com/signalsfoundry/suspension-kinematics/internal/jobs"
	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/model"
	"github.com/signalsfoundry/suspension-kinematics/sweep"
)

type options struct {
	carPath   string
	bellcrank bool
	convert   string

	pitch, roll, heave, rack float64
	steer                    float64
	sequence                 string

	sweepTo float64
	steps   int
	workers int

	quasiStatic bool
	gx, gy      float64

	filter string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logging.NewFromEnv()); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "kinematics:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("kinematics", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.carPath, "car", "", "car file (.json or "+carfile.Extension+"); the built-in sample car when empty")
	fs.BoolVar(&o.bellcrank, "bellcrank", false, "use the bellcrank variant of the sample car")
	fs.StringVar(&o.convert, "convert", "", "write the loaded car to this path (format from extension) and exit")
	fs.Float64Var(&o.pitch, "pitch", 0, "pitch in radians, nose up positive")
	fs.Float64Var(&o.roll, "roll", 0, "roll in radians, right side up positive")
	fs.Float64Var(&o.heave, "heave", 0, "heave, positive up")
	fs.Float64Var(&o.rack, "rack", 0, "rack travel, positive toward the driver's right")
	fs.Float64Var(&o.steer, "steer", 0, "steering wheel angle in radians, added to -rack through the rack ratio")
	fs.StringVar(&o.sequence, "sequence", model.PitchThenRoll.String(), "rotation order: PitchThenRoll or RollThenPitch")
	fs.Float64Var(&o.sweepTo, "sweep-to", 0, "end heave of a sweep starting at -heave")
	fs.IntVar(&o.steps, "steps", 0, "number of sweep steps; a sweep runs when this is above 1")
	fs.IntVar(&o.workers, "workers", 0, "sweep workers (0 uses every CPU)")
	fs.BoolVar(&o.quasiStatic, "quasi-static", false, "balance the car under -gx/-gy instead of commanding an attitude")
	fs.Float64Var(&o.gx, "gx", 0, "longitudinal acceleration in g, positive forward")
	fs.Float64Var(&o.gy, "gy", 0, "lateral acceleration in g, positive toward the right")
	fs.StringVar(&o.filter, "filter", "", "print only outputs whose name contains this text")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer, log logging.Logger) error {
	o, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	if log == nil {
		log = logging.Noop()
	}

	car, err := loadCar(o)
	if err != nil {
		return err
	}
	if o.convert != "" {
		if err := carfile.Save(o.convert, car); err != nil {
			return fmt.Errorf("convert: %w", err)
		}
		fmt.Fprintf(out, "wrote %s to %s\n", car.Name, o.convert)
		return nil
	}

	seq, err := parseSequence(o.sequence)
	if err != nil {
		return err
	}
	rack := o.rack + car.Suspension.RackTravelForSteeringAngle(o.steer)
	in := model.KinematicsInputs{Pitch: o.pitch, Roll: o.roll, Heave: o.heave, RackTravel: rack, Sequence: seq}
	solver := core.NewSolver(core.WithLogger(log))

	switch {
	case o.quasiStatic:
		res, err := solver.QuasiStatic(ctx, car, model.QuasiStaticInputs{Gx: o.gx, Gy: o.gy, RackTravel: rack, Sequence: seq})
		if res != nil {
			printQuasiStatic(out, res, o.filter)
		}
		return err
	case o.steps > 1:
		return runSweep(ctx, out, log, solver, car, in, o)
	default:
		res, err := solver.Analyze(ctx, car, in)
		if err != nil {
			return err
		}
		printOutputs(out, &res.Outputs, o.filter)
		return nil
	}
}

func loadCar(o options) (*model.Car, error) {
	if o.carPath != "" {
		return carfile.Open(o.carPath)
	}
	if o.bellcrank {
		return model.SampleBellcrankCar(), nil
	}
	return model.SampleCar(), nil
}

func parseSequence(s string) (model.RotationSequence, error) {
	for _, seq := range []model.RotationSequence{model.PitchThenRoll, model.RollThenPitch} {
		if strings.EqualFold(s, seq.String()) {
			return seq, nil
		}
	}
	return 0, fmt.Errorf("unknown rotation sequence %q", s)
}

// runSweep moves heave from the commanded attitude to -sweep-to and prints
// every step in order. Failed steps are reported inline.
func runSweep(ctx context.Context, out io.Writer, log logging.Logger, solver *core.Solver, car *model.Car, in model.KinematicsInputs, o options) error {
	pool := jobs.NewPool(solver, jobs.Config{Workers: o.workers}, jobs.WithLogger(log))
	defer pool.Close()

	to := in
	to.Heave = o.sweepTo
	runner := sweep.NewRunner(pool, sweep.WithLogger(log))
	runner.AddListener(func(s sweep.Step) {
		fmt.Fprintf(out, "# step %d heave %g\n", s.Index, s.Inputs.Heave)
		if s.Err != nil {
			fmt.Fprintf(out, "error\t%s\t%v\n", jobs.Outcome(s.Err), s.Err)
			return
		}
		printOutputs(out, &s.Result.Outputs, o.filter)
	})

	steps, err := runner.Run(ctx, car, sweep.Plan{From: in, To: to, Steps: o.steps})
	if err != nil {
		return err
	}
	failed := 0
	for _, s := range steps {
		if s.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sweep steps failed", failed, len(steps))
	}
	return nil
}

func printOutputs(out io.Writer, o *core.Outputs, filter string) {
	flat := o.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		if filter == "" || strings.Contains(k, filter) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%.6g\n", k, flat[k])
	}
	tw.Flush()
}

func printQuasiStatic(out io.Writer, res *core.QuasiStaticResult, filter string) {
	fmt.Fprintf(out, "converged %t after %d iterations (residual %.3g)\n", res.Converged, res.Iterations, res.Residual)
	fmt.Fprintf(out, "pitch %.6g roll %.6g heave %.6g\n", res.Inputs.Pitch, res.Inputs.Roll, res.Inputs.Heave)
	for _, loc := range model.Locations {
		fmt.Fprintf(out, "load %s %.6g\n", loc, res.Loads.Get(loc))
	}
	if res.Kinematics != nil {
		printOutputs(out, &res.Kinematics.Outputs, filter)
	}
}
