package mct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueries(t *testing.T) *Queries {
	t.Helper()
	snap := newTestSnapshot(t)

	fixtures := []any{
		&Rule{ID: 1, Name: "low-fuel", PeriodSeconds: 1.0, Equation: "P1 < 10", Action: 7, Option: "low fuel"},
		&Rule{ID: 2, Name: "overheat", PeriodSeconds: 0.5, Equation: "P2 > 200", Action: 5, Option: "1"},
		&Parameter{ID: 1, Name: "fuel", Type: "float", Port: "analog0"},
		&Parameter{ID: 2, Name: "temp", Type: "float", Port: "analog1"},
		&Partition{ID: 1, Name: "avionics"},
		&Partition{ID: 2, Name: "payload"},
		&FlightLeg{ID: 1, Name: "taxi"},
		&OpMode{ID: 1, Name: "normal"},
		&Schedule{ID: 1, Name: "cruise", Timeslice: 30},
		&State{ID: 1, Name: "taxi-normal", ScheduleID: 1, Leg: 1, Mode: 1},
		&StateRuleLink{StateID: 1, RuleID: 1},
		&SchedulePartitionAllocation{ScheduleID: 1, PartitionID: 1, Weight: 256, CPUCap: 0},
	}
	for _, f := range fixtures {
		require.NoError(t, snap.DB().Create(f).Error)
	}

	q, err := Prepare(snap, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestQueries_CountAndIterateRules(t *testing.T) {
	q := newTestQueries(t)

	n, err := q.CountRules()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rules, err := q.IterateRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "low-fuel", rules[0].Name)
}

func TestQueries_CountAndIterateParams(t *testing.T) {
	q := newTestQueries(t)

	n, err := q.CountParams()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	params, err := q.IterateParams()
	require.NoError(t, err)
	require.Len(t, params, 2)
}

func TestQueries_CountAndIteratePartitions(t *testing.T) {
	q := newTestQueries(t)

	n, err := q.CountPartitions()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	partitions, err := q.IteratePartitions()
	require.NoError(t, err)
	require.Len(t, partitions, 2)
}

func TestQueries_StateByLegMode(t *testing.T) {
	q := newTestQueries(t)

	id, ok, err := q.StateByLegMode(1, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)

	_, ok, err = q.StateByLegMode(99, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueries_StateByID(t *testing.T) {
	q := newTestQueries(t)

	d, ok, err := q.StateByID(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateDetail{ScheduleID: 1, Leg: 1, Mode: 1}, d)

	_, ok, err = q.StateByID(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueries_ScheduleTimeslice(t *testing.T) {
	q := newTestQueries(t)

	ts, ok, err := q.ScheduleTimeslice(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(30), ts)
}

func TestQueries_AllocationsBySchedule(t *testing.T) {
	q := newTestQueries(t)

	allocs, err := q.AllocationsBySchedule(1)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, uint32(1), allocs[0].PartitionID)
	assert.Equal(t, uint32(256), allocs[0].Weight)
}

func TestQueries_RuleSetDifference(t *testing.T) {
	q := newTestQueries(t)

	toStop, toStart, err := q.RuleSetDifference(HaltedStateID, 1)
	require.NoError(t, err)
	assert.Empty(t, toStop)
	assert.ElementsMatch(t, []uint32{1}, toStart)

	toStop, toStart, err = q.RuleSetDifference(1, HaltedStateID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{1}, toStop)
	assert.Empty(t, toStart)
}

func TestQueries_RuleByID(t *testing.T) {
	q := newTestQueries(t)

	r, ok, err := q.RuleByID(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "overheat", r.Name)
	assert.Equal(t, "P2 > 200", r.Equation)
}

func TestQueries_ParamValid(t *testing.T) {
	q := newTestQueries(t)

	ok, err := q.ParamValid(1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.ParamValid(999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueries_StaleGenerationRejected(t *testing.T) {
	snap := newTestSnapshot(t)
	q, err := Prepare(snap, nil)
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, snap.Reload())

	_, err = q.IterateRules()
	assert.Error(t, err)
}
