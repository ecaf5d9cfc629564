package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the mission control process configuration.
//
// This structure captures the static configuration of the MCP daemon:
//   - Logging and telemetry configuration
//   - Mission control table (MCT) persistence
//   - Shared publication region layout
//   - Hypervisor collaborator settings
//   - Virtual machine management station (VMS) telemetry collaborator settings
//
// Configuration sources (in order of precedence):
//  1. Environment variables (MCPD_*) (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Environment variables are applied only when a configuration file is
// found; without one, Load returns the defaults unchanged.
type Config struct {
	// Home is the base directory for the MCP's runtime state: the MCT
	// database file (when sqlite-backed) and the shared publication region.
	Home string `mapstructure:"home" validate:"required" yaml:"home"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// MCT configures the mission control table persistence layer
	// (SQLite or PostgreSQL, selected by MCT.Driver).
	MCT MCTConfig `mapstructure:"mct" yaml:"mct"`

	// Publication configures the shared memory region that exposes the
	// supervisor's live state to other processes on the host.
	Publication PublicationConfig `mapstructure:"publication" yaml:"publication"`

	// Hypervisor configures the collaborator used to drive partition
	// lifecycle operations (create, pause, unpause, reset, destroy).
	Hypervisor HypervisorConfig `mapstructure:"hypervisor" yaml:"hypervisor"`

	// VMS configures the optional telemetry collaborator connection.
	VMS VMSConfig `mapstructure:"vms" yaml:"vms"`

	// Rules configures the rule evaluation engine.
	Rules RulesConfig `mapstructure:"rules" yaml:"rules"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// MCTConfig configures the mission control table persistence layer.
type MCTConfig struct {
	// Driver selects the backing store: "sqlite" or "postgres"
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres" yaml:"driver"`

	// Path is the SQLite database file path. Only used when Driver is "sqlite".
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// DSN is the PostgreSQL connection string. Only used when Driver is "postgres".
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`

	// MaxOpenConns is defaulted to 10 when Driver is "postgres" but is not
	// passed to the MCT layer, whose postgres pool is fixed at 10 open
	// connections.
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`
}

// PublicationConfig configures the shared memory publication region.
type PublicationConfig struct {
	// Path is the backing file for the mmap'd shared region.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// MaxParams bounds the number of parameter slots reserved in the
	// region's fixed-size layout.
	MaxParams int `mapstructure:"max_params" validate:"omitempty,gt=0" yaml:"max_params"`
}

// HypervisorConfig configures the collaborator that drives partition
// lifecycle operations against the host's virtualization layer.
type HypervisorConfig struct {
	// Driver selects the hypervisor backend. Currently only "xl" (Xen's
	// xl(1) toolstack, invoked via os/exec) is supported.
	Driver string `mapstructure:"driver" validate:"required,oneof=xl" yaml:"driver"`

	// BinaryPath is the path to the xl executable.
	BinaryPath string `mapstructure:"binary_path" yaml:"binary_path"`

	// CommandTimeout is defaulted (30s) but not passed to the hypervisor
	// client; each xl invocation runs until it exits.
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`

	// ConfigDir is the directory containing per-partition xl domain
	// configuration files, named <partition>.cfg.
	ConfigDir string `mapstructure:"config_dir" validate:"required" yaml:"config_dir"`
}

// VMSConfig configures the optional telemetry collaborator connection,
// mirroring the original vms_open() parameters.
type VMSConfig struct {
	// Enabled controls whether the MCP attempts to connect to the VMS at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ConnectDelay is the time to wait between connection attempts; the
	// first attempt is made immediately.
	ConnectDelay time.Duration `mapstructure:"connect_delay" yaml:"connect_delay"`

	// ConnectRetries is the number of additional attempts after the first.
	// The telemetry client treats 0 as unset and makes 5 retries.
	ConnectRetries int `mapstructure:"connect_retries" validate:"omitempty,gte=0" yaml:"connect_retries"`

	// Address is the VMS host address.
	Address string `mapstructure:"address" yaml:"address,omitempty"`

	// Port is the VMS listening port.
	Port uint16 `mapstructure:"port" yaml:"port,omitempty"`

	// Username authenticates the MCP to the VMS.
	Username string `mapstructure:"username" yaml:"username,omitempty"`

	// Password authenticates the MCP to the VMS.
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// SSLCert is accepted but not passed to the telemetry client, which
	// connects with sslmode=disable.
	SSLCert string `mapstructure:"ssl_cert" yaml:"ssl_cert,omitempty"`

	// DBName is the telemetry database/schema name on the VMS side.
	DBName string `mapstructure:"db_name" yaml:"db_name,omitempty"`
}

// RulesConfig configures the rule evaluation engine.
type RulesConfig struct {
	// MinPeriod is defaulted (10ms) but not read by the daemon; rule
	// periods are taken from the MCT without a lower bound.
	MinPeriod time.Duration `mapstructure:"min_period" yaml:"min_period"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please create a configuration file there first.\n\n"+
				"Or specify a custom config file:\n"+
				"  mcpd --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file first.",
				configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Config may carry VMS credentials, restrict permissions accordingly.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate runs struct-tag validation on the configuration.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.MCT.Driver == "postgres" && cfg.MCT.DSN == "" {
		return fmt.Errorf("mct.dsn is required when mct.driver is postgres")
	}
	if cfg.MCT.Driver == "sqlite" && cfg.MCT.Path == "" {
		return fmt.Errorf("mct.path is required when mct.driver is sqlite")
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use MCPD_ prefix and underscores
	// Example: MCPD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("MCPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows, so bind every
	// Config key explicitly; an MCPD_* variable then overrides a key even
	// when the config file does not mention it.
	var bindEnv func(t reflect.Type, prefix string)
	bindEnv = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			key := prefix + field.Tag.Get("mapstructure")
			if field.Type.Kind() == reflect.Struct {
				bindEnv(field.Type, key+".")
				continue
			}
			_ = v.BindEnv(key)
		}
	}
	bindEnv(reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s", "5m", "1h" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mcpd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "mcpd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exported wrapper of getConfigDir).
func GetConfigDir() string {
	return getConfigDir()
}
