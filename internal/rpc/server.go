package rpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/jobs"
	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/kb"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// DefaultPriority is the queue priority of interactive RPC analyses.
const DefaultPriority = jobs.High

// Server implements KinematicsServer on top of a garage of named cars and a
// shared worker pool.
type Server struct {
	garage *kb.Garage
	pool   *jobs.Pool
	log    logging.Logger
}

// NewServer wires a Server to its garage and pool. A nil logger is replaced
// with a no-op logger.
func NewServer(garage *kb.Garage, pool *jobs.Pool, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{garage: garage, pool: pool, log: log}
}

// Register installs the kinematics and health services on s and marks the
// kinematics service as serving.
func (s *Server) Register(reg grpc.ServiceRegistrar) *health.Server {
	RegisterKinematicsServer(reg, s)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(reg, hs)
	return hs
}

func (s *Server) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var r analyzeRequest
	if err := decodeRequest(req, &r); err != nil {
		return nil, ToStatusError(err)
	}
	in, err := r.Inputs.inputs()
	if err != nil {
		return nil, ToStatusError(err)
	}
	prio, err := parsePriority(r.Priority, DefaultPriority)
	if err != nil {
		return nil, ToStatusError(err)
	}
	name, car, err := s.resolveCar(r.Car)
	if err != nil {
		return nil, ToStatusError(err)
	}

	res, err := s.runJob(ctx, jobs.Job{
		Name:     name,
		Priority: prio,
		Car:      car,
		Inputs:   in,
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := encodeAnalysis(name, res.Kinematics)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) QuasiStatic(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var r quasiStaticRequest
	if err := decodeRequest(req, &r); err != nil {
		return nil, ToStatusError(err)
	}
	q, err := r.inputs()
	if err != nil {
		return nil, ToStatusError(err)
	}
	prio, err := parsePriority(r.Priority, DefaultPriority)
	if err != nil {
		return nil, ToStatusError(err)
	}
	name, car, err := s.resolveCar(r.Car)
	if err != nil {
		return nil, ToStatusError(err)
	}

	res, err := s.runJob(ctx, jobs.Job{
		Name:        name,
		Priority:    prio,
		Car:         car,
		QuasiStatic: &q,
	})
	// A diverged run still reports its best attitude with converged false.
	if err != nil && !(errors.Is(err, core.ErrQuasiStaticDivergence) && res.QuasiStatic != nil) {
		return nil, ToStatusError(err)
	}
	out, err := encodeQuasiStatic(name, res.QuasiStatic)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ListCars returns {"cars": [names...]} in sorted order.
func (s *Server) ListCars(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.garage == nil {
		return nil, status.Error(codes.FailedPrecondition, "garage is not configured")
	}
	names := s.garage.List()
	list := make([]any, len(names))
	for i, n := range names {
		list[i] = n
	}
	return structpb.NewStruct(map[string]any{"cars": list})
}

func (s *Server) ensureReady() error {
	if s == nil || s.pool == nil {
		return status.Error(codes.FailedPrecondition, "worker pool is not configured")
	}
	return nil
}

// resolveCar returns the car to analyze. Garage cars are snapshotted so that
// concurrent edits do not race the solve.
func (s *Server) resolveCar(raw []byte) (string, *model.Car, error) {
	ref, err := parseCarRef(raw)
	if err != nil {
		return "", nil, err
	}
	if ref.inline != nil {
		return ref.name, ref.inline, nil
	}
	if s.garage == nil {
		return "", nil, fmt.Errorf("%w: %q", kb.ErrCarNotFound, ref.name)
	}
	car, err := s.garage.Snapshot(ref.name)
	if err != nil {
		return "", nil, err
	}
	return ref.name, car, nil
}

// runJob submits job with a private reply channel and waits for its result.
// When ctx ends first the reply is left to the buffered channel.
func (s *Server) runJob(ctx context.Context, job jobs.Job) (jobs.Result, error) {
	reply := make(chan jobs.Result, 1)
	job.Reply = reply
	job.ID = logging.RequestIDFromContext(ctx)
	if _, err := s.pool.Submit(ctx, job); err != nil {
		return jobs.Result{}, err
	}

	select {
	case res := <-reply:
		if res.Err != nil {
			s.logger(ctx).Warn(ctx, "analysis failed",
				logging.String("car", job.Name),
				logging.String("outcome", jobs.Outcome(res.Err)),
				logging.Error(res.Err),
			)
			return res, res.Err
		}
		return res, nil
	case <-ctx.Done():
		return jobs.Result{}, ctx.Err()
	}
}

func (s *Server) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}
