package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment     string                `toml:"environment"` // "development" or "production"
	Server          ServerConfig          `toml:"server"`
	Storage         StorageConfig         `toml:"storage"`
	Logging         LoggingConfig         `toml:"logging"`
	JobManager      JobManagerConfig      `toml:"jobmanager"`
	ResourceManager ResourceManagerConfig `toml:"resourcemanager"`
	Workflow        WorkflowConfig        `toml:"workflow"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// JobManagerConfig configures the batch-system client. Type "slurm" drives
// the cluster through its command-line tools.
type JobManagerConfig struct {
	Type             string        `toml:"type"`              // "slurm"
	SubmitCommand    string        `toml:"submit_command"`    // default "sbatch"
	CancelCommand    string        `toml:"cancel_command"`    // default "scancel"
	StateCommand     string        `toml:"state_command"`     // default "squeue"
	PartitionCommand string        `toml:"partition_command"` // default "sinfo"
	CommandTimeout   time.Duration `toml:"command_timeout"`   // per control-plane call
	RatePerSecond    float64       `toml:"rate_per_second"`   // CLI call rate limit
}

// ResourceManagerConfig configures reservation admission. Type "none"
// accepts every reservation and answers catalog queries from the job
// manager's partition listing.
type ResourceManagerConfig struct {
	Type           string        `toml:"type"`     // "none" or "http"
	Endpoint       string        `toml:"endpoint"` // base URL for type "http"
	RequestTimeout time.Duration `toml:"request_timeout"`
	Retries        int           `toml:"retries"`
}

// WorkflowConfig configures session handling
type WorkflowConfig struct {
	TempDir          string `toml:"temp_dir"`          // batch spec files live here
	DefaultPartition string `toml:"default_partition"` // fallback partition for submissions
	JanitorSchedule  string `toml:"janitor_schedule"`  // cron expression, empty disables the sweep
}

// DefaultConfig returns the built-in defaults, lowest priority in the chain
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/wfm"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		JobManager: JobManagerConfig{
			Type:             "slurm",
			SubmitCommand:    "sbatch",
			CancelCommand:    "scancel",
			StateCommand:     "squeue",
			PartitionCommand: "sinfo",
			CommandTimeout:   60 * time.Second,
			RatePerSecond:    10,
		},
		ResourceManager: ResourceManagerConfig{
			Type:           "none",
			RequestTimeout: 30 * time.Second,
			Retries:        3,
		},
		Workflow: WorkflowConfig{
			TempDir: os.TempDir(),
		},
	}
}

// LoadFromFiles loads configuration: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier ones; environment variables override files.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies WFM_* environment variables over the file config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WFM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WFM_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("WFM_STORAGE_PATH"); v != "" {
		cfg.Storage.Badger.Path = v
	}
	if v := os.Getenv("WFM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WFM_RESOURCEMANAGER_ENDPOINT"); v != "" {
		cfg.ResourceManager.Endpoint = v
		cfg.ResourceManager.Type = "http"
	}
	if v := os.Getenv("WFM_TEMP_DIR"); v != "" {
		cfg.Workflow.TempDir = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}
