// Package supervisor implements the top-level process loop (C9): the
// signal-driven run loop, the orderly shutdown sequence, and the
// reload protocol that rebuilds every MCT-derived component without
// restarting the process. It is the single concrete type that
// implements internal/action.Target, delegating each action to the
// component that owns it.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/flightos/mcpd/internal/action"
	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/flightos/mcpd/internal/paramstore"
	"github.com/flightos/mcpd/internal/partition"
	"github.com/flightos/mcpd/internal/publication"
	"github.com/flightos/mcpd/internal/rules"
	"github.com/flightos/mcpd/internal/statemachine"
	"github.com/flightos/mcpd/pkg/telemetry"
)

// InitialStateID is the state the supervisor enters once, immediately
// after the first set of components is built, matching mcp_run's
// startup transition out of HALTED before it begins waiting on signals.
const InitialStateID uint32 = 1

// Components bundles every object a reload rebuilds together: a fresh
// MCT snapshot, its prepared query surface, and the layers built on top
// of them. A Supervisor never mutates one in place; reload builds a
// whole new Components and swaps it in atomically.
type Components struct {
	Snapshot   *mct.Snapshot
	Queries    *mct.Queries
	Region     *publication.Region
	Params     *paramstore.Store
	Engine     *rules.Engine
	Machine    *statemachine.StateMachine
	Partitions *partition.Controller
}

// Builder constructs a fresh Components set. prev is the component set
// being replaced (nil on first build), passed through so a Builder can
// reuse long-lived resources (the publication region, the hypervisor
// connection) that a reload does not rebuild. The caller is expected
// not to mutate prev.
type Builder func(prev *Components) (*Components, error)

// Supervisor owns the process's signal loop and the single point of
// reload/shutdown coordination. Reads of the current Components go
// through an atomic.Pointer so rule-dispatch goroutines never block on
// the supervisor goroutine; only Run's own goroutine ever swaps it.
type Supervisor struct {
	current atomic.Pointer[Components]
	build   Builder
	tel     telemetry.Telemetry

	shutdownTimeout time.Duration
}

// New builds a Supervisor over an already-built initial Components set.
// tel is the long-lived telemetry collaborator (not rebuilt by Builder,
// same as the hypervisor connection) that LogMessage forwards to.
func New(initial *Components, build Builder, shutdownTimeout time.Duration, tel telemetry.Telemetry) *Supervisor {
	s := &Supervisor{build: build, shutdownTimeout: shutdownTimeout, tel: tel}
	s.current.Store(initial)
	return s
}

func (s *Supervisor) components() *Components {
	return s.current.Load()
}

var _ action.Target = (*Supervisor)(nil)

// Run enters InitialStateID and blocks dispatching signals until the
// context is cancelled or a termination signal arrives, at which point
// it performs orderly shutdown and returns. It registers the signals
// mcp_run's sigwaitinfo loop acted on and ignores SIGPIPE and SIGALRM;
// SIGCHLD keeps its default disposition, under which it is discarded.
// Every other signal keeps its OS default disposition.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.components().Machine.SetState(InitialStateID); err != nil {
		return fmt.Errorf("supervisor: enter initial state: %w", err)
	}

	signal.Ignore(syscall.SIGPIPE, syscall.SIGALRM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()

		case sig := <-sigCh:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				logger.Info("supervisor received termination signal, shutting down", "signal", sig.String())
				s.shutdown()
				return nil

			case syscall.SIGHUP:
				logger.Info("supervisor received reload signal")
				s.reload()

			case syscall.SIGUSR1:
				logger.Info("supervisor state refresh",
					"state", s.components().Machine.GetState(),
					"flight_leg", s.components().Machine.GetFlightLeg(),
					"op_mode", s.components().Machine.GetOpMode(),
				)
			}
		}
	}
}

// reload runs the reload protocol: save the current (state, leg, mode)
// coordinate, quiesce the running component set, build a fresh one from
// the MCT, swap it in, and re-enter the saved state. A Builder failure
// is logged and leaves the prior Components in place and running,
// matching mcp_reload's pattern of not aborting the process on a failed
// reload. Open question (spec): behavior is undefined if the reload
// changes the live parameter count, since the publication region is a
// fixed-size shared mapping.
func (s *Supervisor) reload() {
	prev := s.components()
	savedState := prev.Machine.GetState()

	prev.Engine.StopAll()
	if err := prev.Machine.SetState(mct.HaltedStateID); err != nil {
		logger.Error("supervisor reload: quiesce to halted failed", "error", err)
	}

	next, err := s.build(prev)
	if err != nil {
		logger.Error("supervisor reload: build failed, remaining on prior component set", "error", err)
		if savedState != mct.HaltedStateID {
			if err := prev.Machine.SetState(savedState); err != nil {
				logger.Error("supervisor reload: re-enter saved state after failed build", "error", err)
			}
		}
		return
	}

	s.current.Store(next)

	if savedState != mct.HaltedStateID {
		if err := next.Machine.SetState(savedState); err != nil {
			logger.Error("supervisor reload: re-enter saved state on new component set", "error", err, "state", savedState)
		}
	}

	logger.Info("supervisor reload complete", "state", savedState)
}

// shutdown performs the orderly teardown sequence: halt the state
// machine (disarming every rule), tear down every partition, and
// release the publication region and MCT handles, matching mcp_stop's
// ordering.
func (s *Supervisor) shutdown() {
	c := s.components()

	if err := c.Machine.SetState(mct.HaltedStateID); err != nil {
		logger.Error("supervisor shutdown: halt state machine", "error", err)
	}
	c.Engine.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	c.Partitions.DestroyAll(ctx)

	if err := c.Queries.Close(); err != nil {
		logger.Error("supervisor shutdown: close prepared queries", "error", err)
	}
	if err := c.Snapshot.Close(); err != nil {
		logger.Error("supervisor shutdown: close mission control table", "error", err)
	}
	if err := c.Region.Close(); err != nil {
		logger.Error("supervisor shutdown: close publication region", "error", err)
	}

	logger.Info("supervisor shutdown complete")
}

// The following methods implement internal/action.Target by delegating
// to the currently active Components. A read of s.current is lock-free
// and always sees either the pre- or post-reload set in full, never a
// partially swapped one, since reload only ever does a single atomic
// store of a fully-built Components.

func (s *Supervisor) SetFlightLeg(leg uint32) error {
	return s.components().Machine.SetFlightLeg(leg)
}

func (s *Supervisor) SetOpMode(mode uint32) error {
	return s.components().Machine.SetOpMode(mode)
}

func (s *Supervisor) SetMCPState(state uint32) error {
	return s.components().Machine.SetMCPState(state)
}

func (s *Supervisor) ResetPartition(partitionID uint32) error {
	return s.components().Partitions.ResetPartition(context.Background(), partitionID)
}

func (s *Supervisor) PausePartition(partitionID uint32) error {
	return s.components().Partitions.PausePartition(context.Background(), partitionID)
}

func (s *Supervisor) UnpausePartition(partitionID uint32) error {
	return s.components().Partitions.UnpausePartition(context.Background(), partitionID)
}

// LogMessage implements action code 7: a rule or operator request
// logging arbitrary text at INFO, per spec.md §4.4's action table.
// Matching mcp_log's redirect to vms_status_update once VMS is
// connected, the message is also forwarded to telemetry; a forwarding
// failure is logged and never propagated, since LogMessage itself
// cannot fail.
func (s *Supervisor) LogMessage(text string) {
	logger.Info("rule action: log message", "text", text)
	if s.tel == nil {
		return
	}
	if err := s.tel.Status(context.Background(), text); err != nil {
		logger.Error("telemetry status forward failed", "error", err)
	}
}

func (s *Supervisor) SetParam(paramID uint32, value float64) error {
	return s.components().Params.Set(paramID, value)
}

// TriggerReconciliation implements action code 9: an out-of-cycle
// partition reconciliation sweep against the hypervisor.
func (s *Supervisor) TriggerReconciliation() error {
	return s.components().Partitions.Reconcile(context.Background())
}
