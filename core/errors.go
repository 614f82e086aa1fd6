package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

var (
	// ErrGeometricInfeasibility reports an intersection with no real solution.
	ErrGeometricInfeasibility = errors.New("geometric infeasibility")
	// ErrKinematicDivergence reports a corner loop that hit its iteration cap.
	ErrKinematicDivergence = errors.New("kinematic divergence")
	// ErrQuasiStaticDivergence reports a force balance that hit its iteration
	// cap. The accompanying result still holds the best attitude tested.
	ErrQuasiStaticDivergence = errors.New("quasi-static divergence")
)

// SolveError carries the context of a failed solve. Kind is one of the
// sentinel errors above and is what errors.Is matches.
type SolveError struct {
	Kind       error
	Corner     *model.Location
	Step       string
	Condition  string
	Residual   float64
	Iterations int
}

func (e *SolveError) Error() string {
	msg := e.Kind.Error()
	if e.Corner != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Corner)
	}
	if e.Step != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Step)
	}
	if e.Condition != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Condition)
	}
	if e.Iterations > 0 {
		msg = fmt.Sprintf("%s (after %d iterations, residual %.3g)", msg, e.Iterations, e.Residual)
	}
	return msg
}

func (e *SolveError) Unwrap() error { return e.Kind }

func infeasible(loc model.Location, step fmt.Stringer, condition string) *SolveError {
	l := loc
	return &SolveError{Kind: ErrGeometricInfeasibility, Corner: &l, Step: step.String(), Condition: condition}
}

func diverged(loc model.Location, iterations int, residual float64) *SolveError {
	l := loc
	return &SolveError{
		Kind:       ErrKinematicDivergence,
		Corner:     &l,
		Step:       model.WheelCenter.String(),
		Condition:  "ball joint and contact patch loop did not settle",
		Residual:   residual,
		Iterations: iterations,
	}
}

// FailedCorner returns the corner named by a solve error, if any.
func FailedCorner(err error) (model.Location, bool) {
	var se *SolveError
	if errors.As(err, &se) && se.Corner != nil {
		return *se.Corner, true
	}
	return 0, false
}
