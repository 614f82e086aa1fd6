package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/internal/observability"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// fakeAnalyzer records the heave of every solve. A negative heave blocks the
// worker until release is closed.
type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   []float64
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ *model.Car, in model.KinematicsInputs) (*core.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in.Heave)
	f.mu.Unlock()
	if in.Heave < 0 {
		f.once.Do(func() { close(f.started) })
		<-f.release
	}
	return &core.Result{Inputs: in}, nil
}

func (f *fakeAnalyzer) QuasiStatic(_ context.Context, _ *model.Car, q model.QuasiStaticInputs) (*core.QuasiStaticResult, error) {
	return &core.QuasiStaticResult{Converged: true, Inputs: model.KinematicsInputs{RackTravel: q.RackTravel}}, nil
}

func (f *fakeAnalyzer) solved() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.calls...)
}

// occupy submits a blocking job and waits until the only worker holds it.
func occupy(t *testing.T, p *Pool, f *fakeAnalyzer, car *model.Car) {
	t.Helper()
	if _, err := p.Submit(context.Background(), Job{Name: "blocker", Car: car, Inputs: model.KinematicsInputs{Heave: -1}}); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker never picked up the blocking job")
	}
}

func isClosed(p *Pool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func collect(t *testing.T, ch <-chan Result, n int) []Result {
	t.Helper()
	out := make([]Result, 0, n)
	for len(out) < n {
		select {
		case r := <-ch:
			out = append(out, r)
		case <-time.After(10 * time.Second):
			t.Fatalf("collected %d of %d results before timeout", len(out), n)
		}
	}
	return out
}

func TestPoolServesPrioritiesInOrder(t *testing.T) {
	f := newFakeAnalyzer()
	p := NewPool(f, Config{Workers: 1})
	defer p.Close()
	car := model.SampleCar()

	occupy(t, p, f, car)
	submissions := []struct {
		heave    float64
		priority Priority
	}{
		{1, Low}, {2, High}, {3, Idle}, {4, High}, {5, VeryHigh}, {6, Normal}, {7, VeryLow},
	}
	for _, s := range submissions {
		if _, err := p.Submit(context.Background(), Job{Car: car, Priority: s.priority, Inputs: model.KinematicsInputs{Heave: s.heave}}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if got := p.Pending(); got != len(submissions) {
		t.Fatalf("Pending = %d, want %d", got, len(submissions))
	}
	close(f.release)
	collect(t, p.Results(), len(submissions)+1)

	want := []float64{-1, 5, 2, 4, 6, 1, 7, 3}
	got := f.solved()
	if len(got) != len(want) {
		t.Fatalf("solved %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("solve order = %v, want %v", got, want)
		}
	}
}

func TestPoolAbandonCancelsQueuedJobsOfGeneration(t *testing.T) {
	f := newFakeAnalyzer()
	p := NewPool(f, Config{Workers: 1})
	defer p.Close()
	car := model.SampleCar()

	occupy(t, p, f, car)
	stale := p.NewGeneration()
	fresh := p.NewGeneration()
	if fresh <= stale {
		t.Fatalf("generations not increasing: %d then %d", stale, fresh)
	}
	reply := make(chan Result, 4)
	for i, gen := range []uint64{stale, fresh, stale, fresh} {
		job := Job{Index: i, Generation: gen, Car: car, Reply: reply, Inputs: model.KinematicsInputs{Heave: float64(i + 1)}}
		if _, err := p.Submit(context.Background(), job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Abandon(stale)
	close(f.release)

	for _, r := range collect(t, reply, 4) {
		switch r.Job.Generation {
		case stale:
			if !errors.Is(r.Err, ErrCancelled) || r.Kinematics != nil {
				t.Fatalf("stale job %d = %v, %v, want ErrCancelled", r.Job.Index, r.Kinematics, r.Err)
			}
		case fresh:
			if r.Err != nil || r.Kinematics == nil {
				t.Fatalf("fresh job %d failed: %v", r.Job.Index, r.Err)
			}
		}
	}
	if got := len(f.solved()); got != 3 {
		t.Fatalf("solver ran %d times, want 3 (blocker + fresh jobs)", got)
	}
	// The blocker's result lands on the shared channel.
	if r := collect(t, p.Results(), 1)[0]; r.Job.Name != "blocker" || r.Err != nil {
		t.Fatalf("blocker result = %+v", r)
	}
}

func TestPoolCancelledContextSkipsSolve(t *testing.T) {
	f := newFakeAnalyzer()
	p := NewPool(f, Config{Workers: 2})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Submit(ctx, Job{Car: model.SampleCar(), Inputs: model.KinematicsInputs{Heave: 1}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r := collect(t, p.Results(), 1)[0]
	if !errors.Is(r.Err, ErrCancelled) || !errors.Is(r.Err, context.Canceled) {
		t.Fatalf("Err = %v, want ErrCancelled wrapping context.Canceled", r.Err)
	}
	if Outcome(r.Err) != "cancelled" {
		t.Fatalf("Outcome = %q, want cancelled", Outcome(r.Err))
	}
	if got := len(f.solved()); got != 0 {
		t.Fatalf("solver ran %d times, want 0", got)
	}
}

func TestPoolCloseCancelsQueuedAndRejectsSubmit(t *testing.T) {
	f := newFakeAnalyzer()
	p := NewPool(f, Config{Workers: 1, ResultBuffer: 8})
	car := model.SampleCar()

	occupy(t, p, f, car)
	for i := 0; i < 3; i++ {
		if _, err := p.Submit(context.Background(), Job{Index: i, Car: car, Inputs: model.KinematicsInputs{Heave: 1}}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	for !isClosed(p) {
		time.Sleep(time.Millisecond)
	}
	// The running job must finish before Close can return.
	close(f.release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Close did not return")
	}

	var ok, cancelled int
	for r := range p.Results() {
		switch {
		case r.Err == nil:
			ok++
		case errors.Is(r.Err, ErrCancelled):
			cancelled++
		default:
			t.Fatalf("unexpected error: %v", r.Err)
		}
	}
	if ok != 1 || cancelled != 3 {
		t.Fatalf("ok=%d cancelled=%d, want 1 and 3", ok, cancelled)
	}
	if _, err := p.Submit(context.Background(), Job{Car: car}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit after Close = %v, want ErrClosed", err)
	}
	p.Close()
}

func TestPoolRejectsMalformedJobs(t *testing.T) {
	p := NewPool(newFakeAnalyzer(), Config{Workers: 1})
	defer p.Close()

	if _, err := p.Submit(context.Background(), Job{}); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("Submit without car = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := p.Submit(context.Background(), Job{Car: model.SampleCar(), Priority: Priority(12)}); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("Submit with bad priority = %v, want ErrInvalidConfiguration", err)
	}
}

func TestPoolAssignsIDsAndRunsQuasiStatic(t *testing.T) {
	p := NewPool(newFakeAnalyzer(), Config{Workers: 1})
	defer p.Close()

	id, err := p.Submit(context.Background(), Job{Car: model.SampleCar(), QuasiStatic: &model.QuasiStaticInputs{RackTravel: 0.25}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatalf("Submit returned empty ID")
	}
	r := collect(t, p.Results(), 1)[0]
	if r.Job.ID != id {
		t.Fatalf("result ID = %q, want %q", r.Job.ID, id)
	}
	if r.QuasiStatic == nil || r.Kinematics != nil || r.QuasiStatic.Inputs.RackTravel != 0.25 {
		t.Fatalf("quasi-static result = %+v", r)
	}
}

func TestPoolDefaultsToNumCPU(t *testing.T) {
	cfg := Config{}.ApplyDefaults()
	if cfg.Workers < 1 || cfg.ResultBuffer != 64 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestPoolRunsRealSolverConcurrently(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewQueueCollector(reg)
	if err != nil {
		t.Fatalf("NewQueueCollector: %v", err)
	}
	p := NewPool(core.NewSolver(), Config{Workers: 4}, WithRecorder(metrics))
	defer p.Close()

	car := model.SampleCar()
	const n = 12
	reply := make(chan Result, n)
	for i := 0; i < n; i++ {
		job := Job{Name: "heave", Index: i, Car: car, Reply: reply, Inputs: model.KinematicsInputs{Heave: -1.5 + 0.25*float64(i)}}
		if _, err := p.Submit(context.Background(), job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	byIndex := map[int]Result{}
	for _, r := range collect(t, reply, n) {
		if r.Err != nil {
			t.Fatalf("job %d: %v", r.Job.Index, r.Err)
		}
		byIndex[r.Job.Index] = r
	}
	for i := 0; i < n; i++ {
		r, ok := byIndex[i]
		if !ok {
			t.Fatalf("missing result %d", i)
		}
		if r.Kinematics.Inputs.Heave != r.Job.Inputs.Heave {
			t.Fatalf("result %d carries heave %v, want %v", i, r.Kinematics.Inputs.Heave, r.Job.Inputs.Heave)
		}
	}
	if got := testutil.ToFloat64(metrics.Jobs.WithLabelValues("VeryHigh", "ok")); got != n {
		t.Fatalf("kinematics_jobs_total{VeryHigh,ok} = %v, want %d", got, n)
	}
	if got := testutil.ToFloat64(metrics.WorkersBusy); got != 0 {
		t.Fatalf("kinematics_workers_busy = %v, want 0 after all jobs", got)
	}
}
