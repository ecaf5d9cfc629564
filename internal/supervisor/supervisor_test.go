package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/flightos/mcpd/internal/paramstore"
	"github.com/flightos/mcpd/internal/partition"
	"github.com/flightos/mcpd/internal/publication"
	"github.com/flightos/mcpd/internal/rules"
	"github.com/flightos/mcpd/internal/statemachine"
	"github.com/flightos/mcpd/pkg/hypervisor"
	"github.com/flightos/mcpd/pkg/telemetry"
)

func init() {
	logger.InitWithWriter(nullWriter{}, "error", "text", false)
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

// fakeHV is a minimal hypervisor.Hypervisor recording nothing more than
// that it was called; the supervisor tests exercise orchestration, not
// the partition controller's own transition logic (covered in
// internal/partition).
type fakeHV struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeHV) Open(ctx context.Context) error  { return nil }
func (f *fakeHV) Close() error                    { return nil }
func (f *fakeHV) Create(ctx context.Context, name, configPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}
func (f *fakeHV) Destroy(ctx context.Context, name string) error { return nil }
func (f *fakeHV) Pause(ctx context.Context, name string) error   { return nil }
func (f *fakeHV) Unpause(ctx context.Context, name string) error { return nil }
func (f *fakeHV) Reboot(ctx context.Context, name string) error  { return nil }
func (f *fakeHV) SetSchedTimeslice(ctx context.Context, millis uint32) error { return nil }
func (f *fakeHV) SetSchedWeightCap(ctx context.Context, name string, weight, cpuCap uint32) error {
	return nil
}
func (f *fakeHV) List(ctx context.Context) ([]hypervisor.DomainInfo, error) { return nil, nil }

var _ hypervisor.Hypervisor = (*fakeHV)(nil)

type fakeTelemetry struct{}

func (fakeTelemetry) Connect(ctx context.Context) error { return nil }
func (fakeTelemetry) Close() error                      { return nil }
func (fakeTelemetry) SetVMState(ctx context.Context, name string, state telemetry.VMState) error {
	return nil
}
func (fakeTelemetry) Status(ctx context.Context, text string) error { return nil }

var _ telemetry.Telemetry = (*fakeTelemetry)(nil)

// seedMCT builds a fresh sqlite-backed snapshot under dir with a single
// state (id 1, leg 1, mode 1, no schedule, no rules) so a Supervisor can
// enter InitialStateID immediately on Run.
func seedMCT(t *testing.T, dir string) *mct.Snapshot {
	t.Helper()
	snap, err := mct.Open(mct.Config{
		Type:   mct.DatabaseTypeSQLite,
		SQLite: mct.SQLiteConfig{Path: filepath.Join(dir, "mct.db")},
	})
	if err != nil {
		t.Fatalf("mct.Open() error = %v", err)
	}
	db := snap.DB()
	state := mct.State{ID: InitialStateID, Name: "steady", ScheduleID: mct.NoScheduleID, Leg: 1, Mode: 1}
	if err := db.Where(mct.State{ID: InitialStateID}).FirstOrCreate(&state).Error; err != nil {
		t.Fatalf("seed state: %v", err)
	}
	param := mct.Parameter{ID: 1, Name: "throttle", Type: "float"}
	if err := db.Where(mct.Parameter{ID: 1}).FirstOrCreate(&param).Error; err != nil {
		t.Fatalf("seed parameter: %v", err)
	}
	return snap
}

// buildComponents assembles a full Components set against dir's
// sqlite-backed MCT and publication region, used both as the initial
// set and as what a test Builder produces on reload.
func buildComponents(t *testing.T, dir string, hv *fakeHV) *Components {
	t.Helper()

	snap := seedMCT(t, dir)
	queries, err := mct.Prepare(snap, nil)
	if err != nil {
		t.Fatalf("mct.Prepare() error = %v", err)
	}

	region, err := publication.Create(filepath.Join(dir, "region.shm"), 4)
	if err != nil {
		t.Fatalf("publication.Create() error = %v", err)
	}

	params := paramstore.New(region, queries)
	partitions := partition.New(hv, fakeTelemetry{}, queries, dir, nil)
	if err := partitions.Load(context.Background()); err != nil {
		t.Fatalf("partitions.Load() error = %v", err)
	}

	engine := rules.New(nil, params, nil, nil)
	machine := statemachine.New(queries, region, engine, partitions)

	return &Components{
		Snapshot:   snap,
		Queries:    queries,
		Region:     region,
		Params:     params,
		Engine:     engine,
		Machine:    machine,
		Partitions: partitions,
	}
}

var errBuilderFailure = errors.New("supervisor test: builder failure")

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeHV, string) {
	t.Helper()
	dir := t.TempDir()
	hv := &fakeHV{}
	initial := buildComponents(t, dir, hv)

	build := func(prev *Components) (*Components, error) {
		return buildComponents(t, dir, hv), nil
	}

	return New(initial, build, time.Second, fakeTelemetry{}), hv, dir
}

func TestSupervisor_RunEntersInitialStateAndShutsDownOnContextCancel(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err == nil || err != context.Canceled {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}

	if got := s.components().Machine.GetState(); got != mct.HaltedStateID {
		t.Errorf("state after shutdown = %d, want HaltedStateID", got)
	}
}

func TestSupervisor_ActionTargetDelegatesToCurrentComponents(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	if err := s.components().Machine.SetState(InitialStateID); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	if err := s.SetFlightLeg(1); err != nil {
		t.Fatalf("SetFlightLeg() error = %v", err)
	}
	if err := s.SetParam(1, 42); err != nil {
		t.Fatalf("SetParam() error = %v", err)
	}
	if v, err := s.components().Params.GetChecked(1); err != nil || v != 42 {
		t.Errorf("param 1 = %v, %v, want 42, nil", v, err)
	}
	if err := s.TriggerReconciliation(); err != nil {
		t.Fatalf("TriggerReconciliation() error = %v", err)
	}
}

func TestSupervisor_ReloadSwapsComponentsAndReentersSavedState(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	if err := s.components().Machine.SetState(InitialStateID); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	before := s.components()

	s.reload()

	after := s.components()
	if after == before {
		t.Fatal("reload() did not swap in a new Components set")
	}
	if got := after.Machine.GetState(); got != InitialStateID {
		t.Errorf("state after reload = %d, want re-entered InitialStateID", got)
	}
}

func TestSupervisor_ReloadKeepsPriorComponentsWhenBuilderFails(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	if err := s.components().Machine.SetState(InitialStateID); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	before := s.components()
	s.build = func(prev *Components) (*Components, error) {
		return nil, errBuilderFailure
	}

	s.reload()

	if s.components() != before {
		t.Fatal("reload() swapped Components despite a builder failure")
	}
	if got := s.components().Machine.GetState(); got != InitialStateID {
		t.Errorf("state after failed reload = %d, want re-entered InitialStateID", got)
	}
}
