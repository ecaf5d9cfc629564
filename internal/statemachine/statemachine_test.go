package statemachine

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/flightos/mcpd/internal/mct"
	"github.com/flightos/mcpd/internal/publication"
)

type fakeQueries struct {
	states map[uint32]mct.StateDetail
	byLeg  map[[2]uint32]uint32
	links  map[uint32]map[uint32]struct{}
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		states: make(map[uint32]mct.StateDetail),
		byLeg:  make(map[[2]uint32]uint32),
		links:  make(map[uint32]map[uint32]struct{}),
	}
}

func (f *fakeQueries) addState(id, schedule, leg, mode uint32, rules ...uint32) {
	f.states[id] = mct.StateDetail{ScheduleID: schedule, Leg: leg, Mode: mode}
	f.byLeg[[2]uint32{leg, mode}] = id
	set := make(map[uint32]struct{}, len(rules))
	for _, r := range rules {
		set[r] = struct{}{}
	}
	f.links[id] = set
}

func (f *fakeQueries) StateByID(id uint32) (mct.StateDetail, bool, error) {
	d, ok := f.states[id]
	return d, ok, nil
}

func (f *fakeQueries) StateByLegMode(leg, mode uint32) (uint32, bool, error) {
	id, ok := f.byLeg[[2]uint32{leg, mode}]
	return id, ok, nil
}

func (f *fakeQueries) RuleSetDifference(fromState, toState uint32) ([]uint32, []uint32, error) {
	from := f.links[fromState]
	to := f.links[toState]

	var toStop, toStart []uint32
	for id := range from {
		if _, ok := to[id]; !ok {
			toStop = append(toStop, id)
		}
	}
	for id := range to {
		if _, ok := from[id]; !ok {
			toStart = append(toStart, id)
		}
	}
	return toStop, toStart, nil
}

type recordingRuleArmer struct {
	mu      sync.Mutex
	started [][]uint32
	stopped [][]uint32
}

func (r *recordingRuleArmer) Start(ids []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, append([]uint32{}, ids...))
}

func (r *recordingRuleArmer) Stop(ids []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, append([]uint32{}, ids...))
}

type recordingScheduler struct {
	mu        sync.Mutex
	schedules []uint32
	failNext  bool
}

func (s *recordingScheduler) SetSchedule(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, id)
	if s.failNext {
		s.failNext = false
		return errors.New("boom")
	}
	return nil
}

func newTestMachine(t *testing.T) (*StateMachine, *fakeQueries, *recordingRuleArmer, *recordingScheduler) {
	t.Helper()
	region, err := publication.Create(filepath.Join(t.TempDir(), "region"), 4)
	if err != nil {
		t.Fatalf("publication.Create() error = %v", err)
	}
	t.Cleanup(func() { _ = region.Close() })

	queries := newFakeQueries()
	rules := &recordingRuleArmer{}
	partitions := &recordingScheduler{}
	return New(queries, region, rules, partitions), queries, rules, partitions
}

func TestStateMachine_StartsHalted(t *testing.T) {
	sm, _, _, _ := newTestMachine(t)
	if sm.GetState() != mct.HaltedStateID {
		t.Errorf("GetState() = %d, want HaltedStateID", sm.GetState())
	}
}

func TestStateMachine_SetStateRejectsUnknownID(t *testing.T) {
	sm, _, _, _ := newTestMachine(t)
	if err := sm.SetState(99); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SetState(99) error = %v, want ErrInvalidState", err)
	}
}

func TestStateMachine_SetStateTransitionsAndArmsRules(t *testing.T) {
	sm, q, rules, partitions := newTestMachine(t)
	q.addState(1, 5, 2, 3, 10, 11)

	if err := sm.SetState(1); err != nil {
		t.Fatalf("SetState(1) error = %v", err)
	}
	if sm.GetState() != 1 || sm.GetFlightLeg() != 2 || sm.GetOpMode() != 3 {
		t.Errorf("state = (%d,%d,%d), want (1,2,3)", sm.GetState(), sm.GetFlightLeg(), sm.GetOpMode())
	}

	if len(rules.started) != 1 || len(rules.started[0]) != 2 {
		t.Errorf("started = %v, want 2 rules armed", rules.started)
	}
	if len(rules.stopped) != 0 {
		t.Errorf("stopped = %v, want none (coming from HALTED)", rules.stopped)
	}
	if len(partitions.schedules) != 1 || partitions.schedules[0] != 5 {
		t.Errorf("schedules = %v, want [5]", partitions.schedules)
	}

	published, _, _, err := publicationState(t, sm)
	if err != nil {
		t.Fatalf("read published state: %v", err)
	}
	if published != 1 {
		t.Errorf("published state = %d, want 1", published)
	}
}

func publicationState(t *testing.T, sm *StateMachine) (uint32, uint32, uint32, error) {
	t.Helper()
	return sm.region.GetState()
}

func TestStateMachine_TransitionToHaltedStopsRulesAndAppliesScheduleZero(t *testing.T) {
	sm, q, rules, partitions := newTestMachine(t)
	q.addState(1, 5, 2, 3, 10)
	if err := sm.SetState(1); err != nil {
		t.Fatalf("SetState(1) error = %v", err)
	}

	if err := sm.SetState(mct.HaltedStateID); err != nil {
		t.Fatalf("SetState(HALTED) error = %v", err)
	}

	if sm.GetState() != mct.HaltedStateID {
		t.Errorf("GetState() = %d, want HaltedStateID", sm.GetState())
	}
	if len(rules.stopped) != 1 || len(rules.stopped[0]) != 1 || rules.stopped[0][0] != 10 {
		t.Errorf("stopped = %v, want [[10]]", rules.stopped)
	}
	if len(rules.started) != 1 {
		t.Errorf("started calls = %d, want 1 (only on the HALTED->1 transition)", len(rules.started))
	}
	if partitions.schedules[len(partitions.schedules)-1] != mct.NoScheduleID {
		t.Errorf("final schedule = %d, want NoScheduleID", partitions.schedules[len(partitions.schedules)-1])
	}
}

func TestStateMachine_SetFlightLegResolvesCoordinate(t *testing.T) {
	sm, q, _, _ := newTestMachine(t)
	q.addState(1, 0, 2, 0)

	if err := sm.SetFlightLeg(2); err != nil {
		t.Fatalf("SetFlightLeg(2) error = %v", err)
	}
	if sm.GetState() != 1 {
		t.Errorf("GetState() = %d, want 1", sm.GetState())
	}
}

func TestStateMachine_SetFlightLegRejectsUnknownCoordinate(t *testing.T) {
	sm, _, _, _ := newTestMachine(t)
	if err := sm.SetFlightLeg(7); !errors.Is(err, ErrInvalidLeg) {
		t.Errorf("SetFlightLeg(7) error = %v, want ErrInvalidLeg", err)
	}
}

func TestStateMachine_SetOpModeRejectsUnknownCoordinate(t *testing.T) {
	sm, _, _, _ := newTestMachine(t)
	if err := sm.SetOpMode(7); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("SetOpMode(7) error = %v, want ErrInvalidMode", err)
	}
}

func TestStateMachine_CommitSurvivesScheduleFailure(t *testing.T) {
	sm, q, _, partitions := newTestMachine(t)
	q.addState(1, 5, 2, 3)
	partitions.failNext = true

	err := sm.SetState(1)
	if err == nil {
		t.Fatal("SetState(1) expected an error from the schedule failure")
	}
	if sm.GetState() != 1 {
		t.Errorf("GetState() = %d, want 1 (commit point already passed)", sm.GetState())
	}
}
