package config

import (
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	if cfg.Home == "" {
		cfg.Home = "/var/lib/mcpd"
	}

	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	applyMCTDefaults(cfg)
	applyPublicationDefaults(cfg)
	applyHypervisorDefaults(&cfg.Hypervisor)
	applyVMSDefaults(&cfg.VMS)
	applyRulesDefaults(&cfg.Rules)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

// applyMetricsDefaults sets Prometheus metrics server defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyMCTDefaults sets mission control table defaults.
func applyMCTDefaults(cfg *Config) {
	if cfg.MCT.Driver == "" {
		cfg.MCT.Driver = "sqlite"
	}
	if cfg.MCT.Driver == "sqlite" && cfg.MCT.Path == "" {
		cfg.MCT.Path = filepath.Join(cfg.Home, "mct.db")
	}
	if cfg.MCT.Driver == "postgres" && cfg.MCT.MaxOpenConns == 0 {
		cfg.MCT.MaxOpenConns = 10
	}
}

// applyPublicationDefaults sets shared publication region defaults.
func applyPublicationDefaults(cfg *Config) {
	if cfg.Publication.Path == "" {
		cfg.Publication.Path = filepath.Join(cfg.Home, "publication.dat")
	}
	if cfg.Publication.MaxParams == 0 {
		cfg.Publication.MaxParams = 256
	}
}

// applyHypervisorDefaults sets hypervisor collaborator defaults.
func applyHypervisorDefaults(cfg *HypervisorConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "xl"
	}
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "/usr/sbin/xl"
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = "/etc/xen/domains"
	}
}

// applyVMSDefaults sets VMS telemetry collaborator defaults.
func applyVMSDefaults(cfg *VMSConfig) {
	if cfg.ConnectDelay == 0 {
		cfg.ConnectDelay = 5 * time.Second
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
}

// applyRulesDefaults sets rule engine defaults.
func applyRulesDefaults(cfg *RulesConfig) {
	if cfg.MinPeriod == 0 {
		cfg.MinPeriod = 10 * time.Millisecond
	}
}

// GetDefaultConfig returns a Config populated entirely with defaults.
// Used when no configuration file is present.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
