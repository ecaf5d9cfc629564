// Command mcpd is the mission control process daemon: it loads its
// configuration, wires together the mission control table, the
// publication region, the rule engine, the state machine, the
// partition controller, and the supervisor, then runs until a
// termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/flightos/mcpd/internal/action"
	"github.com/flightos/mcpd/internal/config"
	"github.com/flightos/mcpd/internal/expr"
	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/flightos/mcpd/internal/metrics"
	"github.com/flightos/mcpd/internal/metrics/prometheus"
	"github.com/flightos/mcpd/internal/paramstore"
	"github.com/flightos/mcpd/internal/partition"
	"github.com/flightos/mcpd/internal/publication"
	"github.com/flightos/mcpd/internal/rules"
	"github.com/flightos/mcpd/internal/statemachine"
	"github.com/flightos/mcpd/internal/supervisor"
	"github.com/flightos/mcpd/internal/telemetrytrace"
	"github.com/flightos/mcpd/pkg/hypervisor/xlexec"
	"github.com/flightos/mcpd/pkg/telemetry"
	"github.com/flightos/mcpd/pkg/telemetry/pgtelemetry"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/mcpd/config.yaml)")
	pidFile := flag.String("pid-file", "", "Path to PID file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mcpd %s (commit: %s)\n", version, commit)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		log.Fatalf("initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceShutdown, err := telemetrytrace.Init(ctx, telemetrytrace.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "mcpd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		log.Fatalf("initialize tracing: %v", err)
	}
	defer func() {
		if err := traceShutdown(context.Background()); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetrytrace.InitProfiling(telemetrytrace.ProfilingConfig{
		Enabled:      cfg.Telemetry.Profiling.Enabled,
		ServiceName:  "mcpd",
		Endpoint:     cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes: cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		log.Fatalf("initialize profiling: %v", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	var (
		ruleMetrics      metrics.RuleMetrics
		hvMetrics        metrics.HypervisorMetrics
		partitionMetrics metrics.PartitionMetrics
		mctMetrics       metrics.MCTMetrics
	)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		ruleMetrics = prometheus.NewRuleMetrics()
		hvMetrics = prometheus.NewHypervisorMetrics()
		partitionMetrics = prometheus.NewPartitionMetrics()
		mctMetrics = prometheus.NewMCTMetrics()
		go serveMetrics(cfg.Metrics.Port)
	}

	if *pidFile != "" {
		if err := os.WriteFile(*pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			log.Fatalf("write PID file: %v", err)
		}
		defer os.Remove(*pidFile)
	}

	hv := xlexec.New(cfg.Hypervisor.BinaryPath, hvMetrics)
	if err := hv.Open(ctx); err != nil {
		log.Fatalf("open hypervisor: %v", err)
	}
	defer hv.Close()

	tel := buildTelemetry(ctx, cfg.VMS, cfg.Metrics.Enabled)
	defer tel.Close()

	// target forwards action dispatch to the supervisor built below. It
	// exists because the rule engine (built inside the Builder closure)
	// needs a stable action.Target before the Supervisor it will
	// eventually point at has been constructed; ref.sv is populated
	// once, immediately after New returns, before Run starts dispatching
	// anything.
	ref := &targetRef{}

	build := newBuilder(cfg, hv, tel, ref, ruleMetrics, partitionMetrics, mctMetrics)

	initial, err := build(nil)
	if err != nil {
		log.Fatalf("build initial component set: %v", err)
	}

	sv := supervisor.New(initial, build, cfg.ShutdownTimeout, tel)
	ref.sv.Store(sv)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	logger.Info("mcpd starting", "version", version, "home", cfg.Home)
	if err := sv.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("supervisor exited with error: %v", err)
	}
	logger.Info("mcpd stopped")
}

// targetRef implements action.Target by forwarding to a *supervisor.Supervisor
// set after construction, breaking the otherwise-circular dependency between
// the rule engine (needs a Target) and the Supervisor (needs a built Engine).
type targetRef struct {
	sv atomic.Pointer[supervisor.Supervisor]
}

func (r *targetRef) SetFlightLeg(leg uint32) error        { return r.sv.Load().SetFlightLeg(leg) }
func (r *targetRef) SetOpMode(mode uint32) error          { return r.sv.Load().SetOpMode(mode) }
func (r *targetRef) SetMCPState(state uint32) error       { return r.sv.Load().SetMCPState(state) }
func (r *targetRef) ResetPartition(id uint32) error       { return r.sv.Load().ResetPartition(id) }
func (r *targetRef) PausePartition(id uint32) error       { return r.sv.Load().PausePartition(id) }
func (r *targetRef) UnpausePartition(id uint32) error     { return r.sv.Load().UnpausePartition(id) }
func (r *targetRef) LogMessage(text string)               { r.sv.Load().LogMessage(text) }
func (r *targetRef) SetParam(id uint32, v float64) error  { return r.sv.Load().SetParam(id, v) }
func (r *targetRef) TriggerReconciliation() error         { return r.sv.Load().TriggerReconciliation() }

var _ action.Target = (*targetRef)(nil)

// buildTelemetry constructs the VMS telemetry collaborator. When VMS is
// disabled in configuration, a no-op implementation is used instead so
// the rest of the wiring never needs to nil-check it.
func buildTelemetry(ctx context.Context, cfg config.VMSConfig, metricsEnabled bool) telemetry.Telemetry {
	if !cfg.Enabled {
		return noopTelemetry{}
	}

	var vmsMetrics metrics.VMSMetrics
	if metricsEnabled {
		vmsMetrics = prometheus.NewVMSMetrics()
	}

	client := pgtelemetry.New(pgtelemetry.Config{
		Host:           cfg.Address,
		Port:           int(cfg.Port),
		Database:       cfg.DBName,
		User:           cfg.Username,
		Password:       cfg.Password,
		ConnectDelay:   cfg.ConnectDelay,
		ConnectRetries: cfg.ConnectRetries,
	}, vmsMetrics)
	if err := client.Connect(ctx); err != nil {
		logger.Error("telemetry connection failed, continuing without it", "error", err)
	}
	return client
}

type noopTelemetry struct{}

func (noopTelemetry) Connect(ctx context.Context) error { return nil }
func (noopTelemetry) Close() error                      { return nil }
func (noopTelemetry) SetVMState(ctx context.Context, name string, state telemetry.VMState) error {
	return nil
}
func (noopTelemetry) Status(ctx context.Context, text string) error { return nil }

// newBuilder returns a supervisor.Builder closing over the long-lived
// collaborators (hypervisor, telemetry, static configuration) that a
// reload does not rebuild. Each call builds a fresh MCT snapshot,
// prepared query set, parameter store, rule set, and state machine —
// everything a reload replaces wholesale, per mcp_reload's "load fresh
// MCT, reinitialize rules, reload partition config" sequence. Two
// components are exceptions: the publication region is created once and
// carried across reloads, since it is a fixed-size shared mapping
// external readers hold onto across the process's life; and the
// partition controller is created on the first call and, on later
// calls, carried forward and updated through ReloadConfig.
func newBuilder(cfg *config.Config, hv *xlexec.Client, tel telemetry.Telemetry, target action.Target, ruleMetrics metrics.RuleMetrics, partitionMetrics metrics.PartitionMetrics, mctMetrics metrics.MCTMetrics) supervisor.Builder {
	return func(prev *supervisor.Components) (components *supervisor.Components, err error) {
		start := time.Now()
		var ruleCount, partitionCount int
		if mctMetrics != nil {
			defer func() { mctMetrics.RecordReload(time.Since(start), ruleCount, partitionCount, err) }()
		}

		mc, err := mctConfig(cfg)
		if err != nil {
			return nil, err
		}
		snapshot, err := mct.Open(mc)
		if err != nil {
			return nil, fmt.Errorf("mcpd: open mission control table: %w", err)
		}

		queries, err := mct.Prepare(snapshot, mctMetrics)
		if err != nil {
			snapshot.Close()
			return nil, fmt.Errorf("mcpd: prepare queries: %w", err)
		}

		var region *publication.Region
		if prev != nil {
			region = prev.Region
		} else {
			region, err = publication.Create(cfg.Publication.Path, cfg.Publication.MaxParams)
			if err != nil {
				queries.Close()
				snapshot.Close()
				return nil, fmt.Errorf("mcpd: create publication region: %w", err)
			}
		}

		params := paramstore.New(region, queries)

		partitionRows, err := queries.IteratePartitions()
		if err != nil {
			return nil, fmt.Errorf("mcpd: count partitions: %w", err)
		}
		partitionCount = len(partitionRows)

		// On a reload the prior Controller carries forward (its
		// in-memory partition states are exactly what must be
		// preserved across SIGHUP, per ReloadConfig's contract);
		// only the first build creates one from scratch against an
		// empty table.
		var partitions *partition.Controller
		if prev != nil {
			partitions = prev.Partitions
			if err := partitions.ReloadConfig(context.Background(), queries, partitionRows); err != nil {
				return nil, fmt.Errorf("mcpd: reload partitions: %w", err)
			}
		} else {
			partitions = partition.New(hv, tel, queries, cfg.Hypervisor.ConfigDir, partitionMetrics)
			if err := partitions.Load(context.Background()); err != nil {
				return nil, fmt.Errorf("mcpd: load partitions: %w", err)
			}
		}

		compiledRules, err := loadRules(queries)
		if err != nil {
			return nil, fmt.Errorf("mcpd: compile rules: %w", err)
		}
		ruleCount = len(compiledRules)

		engine := rules.New(compiledRules, params, target, ruleMetrics)
		machine := statemachine.New(queries, region, engine, partitions)

		return &supervisor.Components{
			Snapshot:   snapshot,
			Queries:    queries,
			Region:     region,
			Params:     params,
			Engine:     engine,
			Machine:    machine,
			Partitions: partitions,
		}, nil
	}
}

// loadRules compiles every declared rule's equation and parses its
// stored action code once, at load time, matching spec.md §4.5's
// "rules are parsed once, not on every tick" requirement.
func loadRules(queries *mct.Queries) ([]rules.Rule, error) {
	rows, err := queries.IterateRules()
	if err != nil {
		return nil, err
	}

	out := make([]rules.Rule, 0, len(rows))
	for _, row := range rows {
		equation, err := expr.Compile(row.Equation, queries)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): compile equation: %w", row.ID, row.Name, err)
		}
		act, err := action.Parse(action.Code(row.Action), row.Option)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): parse action: %w", row.ID, row.Name, err)
		}
		out = append(out, rules.Rule{
			ID:       row.ID,
			Name:     row.Name,
			Period:   time.Duration(row.PeriodSeconds * float64(time.Second)),
			Equation: equation,
			Action:   act,
		})
	}
	return out, nil
}

// mctConfig translates the daemon's flat MCT configuration into the
// structured mct.Config the snapshot layer expects. For postgres, the
// single DSN string configuration carries is split into
// mct.PostgresConfig's discrete fields; a DSN that doesn't parse as a
// postgres:// URL is reported at startup rather than silently producing
// a connection to the wrong host.
func mctConfig(cfg *config.Config) (mct.Config, error) {
	out := mct.Config{Type: mct.DatabaseType(cfg.MCT.Driver)}
	switch out.Type {
	case mct.DatabaseTypeSQLite:
		out.SQLite = mct.SQLiteConfig{Path: cfg.MCT.Path}
	case mct.DatabaseTypePostgres:
		pg, err := mct.ParsePostgresDSN(cfg.MCT.DSN)
		if err != nil {
			return mct.Config{}, fmt.Errorf("mcpd: %w", err)
		}
		out.Postgres = pg
	}
	return out, nil
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
