// Package partition drives per-partition lifecycle transitions against a
// hypervisor collaborator, applies schedule-driven state targets, and
// reconciles published VM state against observed hypervisor state. It is
// the Go counterpart of mcpDomCtrl.c, translating its fork/execl/waitpid
// transitions into calls against pkg/hypervisor and its VMS telemetry
// pushes into calls against pkg/telemetry.
package partition

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/flightos/mcpd/internal/metrics"
	"github.com/flightos/mcpd/pkg/hypervisor"
	"github.com/flightos/mcpd/pkg/telemetry"
)

// Queries is the subset of *mct.Queries the controller consumes. A
// narrow interface so it can be faked in tests without a real database.
type Queries interface {
	IteratePartitions() ([]mct.PartitionRow, error)
	AllocationsBySchedule(scheduleID uint32) ([]mct.AllocationRow, error)
	ScheduleTimeslice(scheduleID uint32) (uint32, bool, error)
}

type entry struct {
	id    uint32
	name  string
	state State

	// xenID is the last domain id the hypervisor reported for this
	// partition; while hasXenID is false, Reconcile matches by name.
	xenID int
	// hasXenID records whether xenID holds a real observed id, since 0
	// is itself a legal domain id (dom0).
	hasXenID bool

	published    telemetry.VMState
	hasPublished bool
}

// Controller serializes every partition-table mutation and traversal
// behind a single mutex, the Go substitute for mcpDomCtrl.c's recursive
// pthread mutex. Methods that need to call each other while already
// holding the lock do so through lockedController rather than
// re-entering Lock, which sync.Mutex does not support.
type Controller struct {
	mu sync.Mutex

	hv        hypervisor.Hypervisor
	telemetry telemetry.Telemetry
	queries   Queries
	configDir string
	metrics   metrics.PartitionMetrics

	partitions      map[uint32]*entry
	currentSchedule uint32
}

// New builds a Controller. Call Load before driving any transitions. m
// may be nil to disable metrics collection.
func New(hv hypervisor.Hypervisor, tel telemetry.Telemetry, queries Queries, configDir string, m metrics.PartitionMetrics) *Controller {
	return &Controller{
		hv:              hv,
		telemetry:       tel,
		queries:         queries,
		configDir:       configDir,
		metrics:         m,
		partitions:      make(map[uint32]*entry),
		currentSchedule: mct.NoScheduleID,
	}
}

// lockedController is obtained only by a Controller method that already
// holds c.mu. Its methods never lock and never call back into a
// Controller method that would — this is the idiomatic Go substitute
// for mcpDomCtrl.c's recursive mutex, which let setSchedule call
// setDomState, and checkDomState traverse the table, all under one
// critical section.
type lockedController struct {
	c *Controller
}

// Load populates the partition table from the mission control table and
// creates (paused, via Off) every partition that isn't already known,
// mirroring mcpDC_initialize's startup sweep.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := &lockedController{c}

	rows, err := c.queries.IteratePartitions()
	if err != nil {
		return fmt.Errorf("partition: load partitions: %w", err)
	}

	for _, row := range rows {
		if _, ok := c.partitions[row.ID]; !ok {
			c.partitions[row.ID] = &entry{id: row.ID, name: row.Name, state: Init}
		}
	}

	for _, e := range c.partitions {
		if e.state != Delete {
			if err := lc.setDomState(ctx, e, Off); err != nil {
				logger.Error("partition failed to come up during load", "partition", e.name, "error", err)
			}
		}
	}
	return nil
}

// SetDomState drives partition id to target, matching mcpDC_setDomState.
func (c *Controller) SetDomState(ctx context.Context, id uint32, target State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := &lockedController{c}

	e, ok := c.partitions[id]
	if !ok {
		return fmt.Errorf("partition: unknown partition id %d", id)
	}
	return lc.setDomState(ctx, e, target)
}

func (lc *lockedController) configPath(name string) string {
	return filepath.Join(lc.c.configDir, name+".cfg")
}

// setDomState implements mcpDC_setDomState's per-transition dispatch.
// The partition's recorded state is updated before the hypervisor call
// (optimistic update), and a failed call leaves it at target: Reconcile
// reports observed hypervisor state to telemetry but does not change the
// recorded state.
func (lc *lockedController) setDomState(ctx context.Context, e *entry, target State) error {
	if target == e.state {
		return nil
	}
	if !legalTransition(e.state, target) {
		if lc.c.metrics != nil {
			lc.c.metrics.RecordTransitionRejected(e.name, e.state.String(), target.String())
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.state, target)
	}

	from := e.state
	logger.Info("partition changing state", "partition", e.name, "from", from, "to", target)
	if lc.c.metrics != nil {
		defer func() {
			lc.c.metrics.RecordTransition(e.name, from.String(), e.state.String())
			lc.c.metrics.SetPartitionState(e.name, e.state.String())
		}()
	}

	switch {
	case from == Init && target == Off:
		e.state = target
		if err := lc.c.hv.Create(ctx, e.name, lc.configPath(e.name)); err != nil {
			logger.Error("partition create failed", "partition", e.name, "error", err)
			return err
		}
	case target == Delete:
		e.state = target
		if err := lc.c.hv.Destroy(ctx, e.name); err != nil {
			logger.Error("partition destroy failed", "partition", e.name, "error", err)
			return err
		}
	case from == Off && target == On:
		e.state = target
		if err := lc.c.hv.Unpause(ctx, e.name); err != nil {
			logger.Error("partition unpause failed", "partition", e.name, "error", err)
			return err
		}
	case from == On && (target == Off || target == Paused):
		e.state = target
		if err := lc.c.hv.Pause(ctx, e.name); err != nil {
			logger.Error("partition pause failed", "partition", e.name, "error", err)
			return err
		}
	case from == On && target == Reset:
		// Reboot collapses back to ON: the state never actually leaves ON.
		if err := lc.c.hv.Reboot(ctx, e.name); err != nil {
			logger.Error("partition reboot failed", "partition", e.name, "error", err)
			return err
		}
	case from == Paused && target == Unpaused:
		e.state = target
		if err := lc.c.hv.Unpause(ctx, e.name); err != nil {
			logger.Error("partition unpause failed", "partition", e.name, "error", err)
			return err
		}
	}
	return nil
}

// SetSchedule applies a schedule change across every partition,
// matching mcpDC_setSchedule + mcpDC_startDomSched. It satisfies
// statemachine.PartitionScheduler.
func (c *Controller) SetSchedule(scheduleID uint32) error {
	ctx := context.Background()
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := &lockedController{c}
	return lc.setSchedule(ctx, scheduleID)
}

func (lc *lockedController) setSchedule(ctx context.Context, scheduleID uint32) error {
	c := lc.c
	if scheduleID == c.currentSchedule {
		return nil
	}
	c.currentSchedule = scheduleID

	timeslice, ok, err := c.queries.ScheduleTimeslice(scheduleID)
	if err != nil {
		return fmt.Errorf("partition: schedule timeslice: %w", err)
	}
	if ok && timeslice != 0 {
		if err := c.hv.SetSchedTimeslice(ctx, timeslice); err != nil {
			logger.Error("partition schedule timeslice failed", "schedule_id", scheduleID, "error", err)
			return err
		}
	}

	allocations, err := c.queries.AllocationsBySchedule(scheduleID)
	if err != nil {
		return fmt.Errorf("partition: schedule allocations: %w", err)
	}
	byPartition := make(map[uint32]mct.AllocationRow, len(allocations))
	for _, a := range allocations {
		byPartition[a.PartitionID] = a
	}

	for _, id := range sortedIDs(c.partitions) {
		e := c.partitions[id]
		if e.state == Delete {
			continue
		}
		target := Off
		if alloc, ok := byPartition[id]; ok && alloc.Weight != 0 && alloc.CPUCap != 0 {
			target = On
			if err := c.hv.SetSchedWeightCap(ctx, e.name, alloc.Weight, alloc.CPUCap); err != nil {
				logger.Error("partition schedule weight/cap failed", "partition", e.name, "error", err)
				return err
			}
		}
		if err := lc.setDomState(ctx, e, target); err != nil {
			return err
		}
		if c.metrics != nil {
			c.metrics.RecordScheduleActivation(e.name, scheduleID)
		}
	}
	return nil
}

func sortedIDs(partitions map[uint32]*entry) []uint32 {
	ids := make([]uint32, 0, len(partitions))
	for id := range partitions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var hvToVMState = map[hypervisor.DomainState]telemetry.VMState{
	hypervisor.DomainUnknown:  telemetry.VMStateError,
	hypervisor.DomainDying:    telemetry.VMStateError,
	hypervisor.DomainShutdown: telemetry.VMStateError,
	hypervisor.DomainPaused:   telemetry.VMStatePaused,
	hypervisor.DomainBlocked:  telemetry.VMStateStarted,
	hypervisor.DomainRunning:  telemetry.VMStateStarted,
}

// Reconcile enumerates hypervisor domains and pushes a telemetry update
// for every partition whose observed VM state changed, matching
// mcpDC_checkDomState. A telemetry failure is logged and never aborts
// the sweep.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()

	domains, err := c.hv.List(ctx)
	if err != nil {
		return fmt.Errorf("partition: list domains: %w", err)
	}
	byID := make(map[int]hypervisor.DomainInfo, len(domains))
	byName := make(map[string]hypervisor.DomainInfo, len(domains))
	for _, d := range domains {
		byID[d.ID] = d
		byName[d.Name] = d
	}

	for _, e := range c.partitions {
		if e.state == Delete {
			continue
		}

		var (
			d     hypervisor.DomainInfo
			found bool
		)
		if e.hasXenID {
			d, found = byID[e.xenID]
		}
		if !found {
			d, found = byName[e.name]
		}

		hvState := hypervisor.DomainUnknown
		if found {
			hvState = d.State
			e.xenID = d.ID
			e.hasXenID = true
		} else {
			logger.Warn("partition not observed by hypervisor", "partition", e.name)
		}

		vmState, ok := hvToVMState[hvState]
		if !ok {
			vmState = telemetry.VMStateError
		}

		drifted := !e.hasPublished || e.published != vmState
		if c.metrics != nil {
			c.metrics.RecordReconciliation(e.name, drifted, time.Since(start))
		}
		if !drifted {
			continue
		}
		e.published = vmState
		e.hasPublished = true

		if c.telemetry == nil {
			continue
		}
		if err := c.telemetry.SetVMState(ctx, e.name, vmState); err != nil {
			logger.Error("telemetry push failed", "partition", e.name, "state", vmState, "error", err)
		}
	}
	return nil
}

// ReloadConfig recomputes the partition list from rows, already fetched
// by the caller against the freshly-built queries of the reload in
// progress, matching mcpDC_reloadConfig: partitions present before and
// after keep their state unless it was DELETE; partitions only in the
// old list move to DELETE; partitions only in the new list enter INIT
// then OFF. queries replaces the Controller's prior query surface so
// SetSchedule and future reloads run against the current mission control
// table rather than the one in effect when the Controller (or its last
// reload) ran. The current schedule is forced to the sentinel so the
// next SetSchedule reprograms every partition from scratch.
func (c *Controller) ReloadConfig(ctx context.Context, queries Queries, rows []mct.PartitionRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := &lockedController{c}
	c.queries = queries

	seen := make(map[uint32]mct.PartitionRow, len(rows))
	for _, row := range rows {
		seen[row.ID] = row
	}

	for id, e := range c.partitions {
		if _, ok := seen[id]; !ok && e.state != Delete {
			if err := lc.setDomState(ctx, e, Delete); err != nil {
				logger.Error("partition delete on reload failed", "partition", e.name, "error", err)
			}
		}
	}

	for id, row := range seen {
		e, ok := c.partitions[id]
		if !ok {
			e = &entry{id: id, name: row.Name, state: Init}
			c.partitions[id] = e
		}
		if e.state == Init {
			if err := lc.setDomState(ctx, e, Off); err != nil {
				logger.Error("partition bring-up on reload failed", "partition", e.name, "error", err)
			}
		}
	}

	c.currentSchedule = mct.NoScheduleID
	return nil
}

// State returns partition id's current lifecycle state.
func (c *Controller) State(id uint32) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.partitions[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// ResetPartition reboots partition id in place, for the action
// dispatcher's CodeResetPartition.
func (c *Controller) ResetPartition(ctx context.Context, id uint32) error {
	return c.SetDomState(ctx, id, Reset)
}

// PausePartition pauses partition id (operator-requested, distinct from
// the OFF state a schedule change can also pause a partition into), for
// CodePausePartition.
func (c *Controller) PausePartition(ctx context.Context, id uint32) error {
	return c.SetDomState(ctx, id, Paused)
}

// UnpausePartition resumes a PAUSED partition, for CodeUnpausePartition.
func (c *Controller) UnpausePartition(ctx context.Context, id uint32) error {
	return c.SetDomState(ctx, id, Unpaused)
}

// DestroyAll tears down every non-DELETE partition, matching
// mcpDC_shutdownDoms. Used by the supervisor on orderly shutdown.
func (c *Controller) DestroyAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lc := &lockedController{c}

	logger.Info("partition controller stopping all partitions", "count", len(c.partitions))
	for _, id := range sortedIDs(c.partitions) {
		e := c.partitions[id]
		if e.state == Delete {
			continue
		}
		if err := lc.setDomState(ctx, e, Delete); err != nil {
			logger.Error("partition destroy on shutdown failed", "partition", e.name, "error", err)
		}
	}
}
