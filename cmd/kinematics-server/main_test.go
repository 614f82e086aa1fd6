package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/suspension-kinematics/internal/carfile"
	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
	"github.com/signalsfoundry/suspension-kinematics/internal/rpc"
	"github.com/signalsfoundry/suspension-kinematics/kb"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

func TestKinematicsServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	reg := prometheus.NewRegistry()
	cfg := Config{
		ListenAddress: lis.Addr().String(),
		LogLevel:      "warn",
		LogFormat:     "text",
		Workers:       2,
		LoadSample:    true,
		Registry:      reg,
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName}, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("health Check: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health = %v, want SERVING", health.GetStatus())
	}

	req, err := structpb.NewStruct(map[string]any{"car": "sample", "inputs": map[string]any{"heave": 0.25}})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	resp, err := rpc.NewClient(conn).Analyze(ctx, req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.GetFields()["outputs"] == nil {
		t.Fatalf("Analyze response has no outputs")
	}

	if n, err := testutil.GatherAndCount(reg, "kinematics_analyses_total"); err != nil || n != 1 {
		t.Fatalf("analysis series = %d, %v, want 1", n, err)
	}
	// One series for the health check and one for Analyze.
	if n, err := testutil.GatherAndCount(reg, "kinematics_rpc_requests_total"); err != nil || n != 2 {
		t.Fatalf("rpc series = %d, %v, want 2", n, err)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestLoadGarageFromFiles(t *testing.T) {
	dir := t.TempDir()
	bellcrank := model.SampleBellcrankCar()
	bellcrank.Name = "bell"
	jsonPath := filepath.Join(dir, "bell.json")
	if err := carfile.Save(jsonPath, bellcrank); err != nil {
		t.Fatalf("Save: %v", err)
	}
	savedPath := filepath.Join(dir, "baseline"+carfile.Extension)
	if err := carfile.Save(savedPath, model.SampleCar()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	garage := kb.NewGarage()
	cfg := Config{CarPaths: []string{jsonPath, savedPath}, LoadSample: true}
	if err := loadGarage(context.Background(), garage, cfg, logging.Noop()); err != nil {
		t.Fatalf("loadGarage: %v", err)
	}
	got := garage.List()
	want := []string{"baseline", "bell", "sample"}
	if len(got) != len(want) {
		t.Fatalf("garage = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("garage = %v, want %v", got, want)
		}
	}

	if err := loadGarage(context.Background(), kb.NewGarage(), Config{CarPaths: []string{filepath.Join(dir, "missing.car")}}, logging.Noop()); err == nil {
		t.Fatalf("expected an error for a missing car file")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a.json, ,b.car,")
	if len(got) != 2 || got[0] != "a.json" || got[1] != "b.car" {
		t.Fatalf("splitList = %v, want [a.json b.car]", got)
	}
	if splitList("") != nil {
		t.Fatalf("splitList(\"\") should be empty")
	}
}
