package rpc

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/jobs"
	"github.com/signalsfoundry/suspension-kinematics/kb"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// ErrorDomain is the ErrorInfo domain attached to analysis failures.
const ErrorDomain = "kinematics.signalsfoundry.dev"

// ErrBadRequest marks requests that could not be decoded.
var ErrBadRequest = errors.New("bad request")

// ToStatusError maps solver, garage and queue errors onto gRPC status codes.
// Analysis failures carry an ErrorInfo naming the corner and step.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidConfiguration):
		code = codes.InvalidArgument
	case errors.Is(err, kb.ErrCarNotFound):
		code = codes.NotFound
	case errors.Is(err, kb.ErrCarExists):
		code = codes.AlreadyExists
	case errors.Is(err, core.ErrGeometricInfeasibility):
		code = codes.FailedPrecondition
	case errors.Is(err, core.ErrKinematicDivergence),
		errors.Is(err, core.ErrQuasiStaticDivergence):
		code = codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, jobs.ErrCancelled),
		errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, jobs.ErrClosed):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}

	st := status.New(code, err.Error())
	var se *core.SolveError
	if !errors.As(err, &se) {
		return st.Err()
	}
	meta := map[string]string{"step": se.Step}
	if se.Corner != nil {
		meta["corner"] = se.Corner.String()
	}
	if se.Condition != "" {
		meta["condition"] = se.Condition
	}
	if se.Iterations > 0 {
		meta["iterations"] = strconv.Itoa(se.Iterations)
		meta["residual"] = strconv.FormatFloat(se.Residual, 'g', -1, 64)
	}
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   strings.ToUpper(jobs.Outcome(err)),
		Domain:   ErrorDomain,
		Metadata: meta,
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// FailureInfo extracts the ErrorInfo attached by ToStatusError.
func FailureInfo(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info, true
		}
	}
	return nil, false
}
