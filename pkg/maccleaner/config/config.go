package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// CleanConfig configures the clean command.
type CleanConfig struct {
	// Trash sends removed files to the Trash instead of unlinking.
	Trash bool `mapstructure:"trash"`

	// DryRun lists what would be removed without removing anything.
	DryRun bool `mapstructure:"dry_run"`
}

// AnalyzeConfig configures the analyze command.
type AnalyzeConfig struct {
	MinSize string   `mapstructure:"min_size"`
	Path    string   `mapstructure:"path"`
	Exclude []string `mapstructure:"exclude"`
}

// SizerConfig configures the directory sizer worker pools.
// Zero values mean auto-tuned from machine resources.
type SizerConfig struct {
	DirWorkers  int `mapstructure:"dir_workers"`
	FileWorkers int `mapstructure:"file_workers"`
}

// HistoryConfig configures the operation history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// AgentConfig configures the background telemetry agent.
type AgentConfig struct {
	AutoStart  bool   `mapstructure:"autostart"`
	BinaryPath string `mapstructure:"binary_path"` // Path to maccleanerd binary (auto-discovered if empty)
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`

	// SampleInterval is the telemetry sampling cadence.
	// Zero falls back to RefreshInterval.
	SampleInterval time.Duration `mapstructure:"sample_interval"`

	// Retention is how long samples are kept before pruning.
	Retention time.Duration `mapstructure:"retention"`
}

// Config represents the application configuration.
type Config struct {
	// RefreshInterval is the dashboard/agent telemetry cadence.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// SettleDelay is the wait before the stabilized purge reading.
	SettleDelay time.Duration `mapstructure:"settle_delay"`

	// StopGrace is the wait after signaling stop candidates.
	StopGrace time.Duration `mapstructure:"stop_grace"`

	// Output is the output format name. Empty means pretty on a TTY
	// and plain otherwise.
	Output string `mapstructure:"output"`

	Clean   CleanConfig   `mapstructure:"clean"`
	Analyze AnalyzeConfig `mapstructure:"analyze"`
	Sizer   SizerConfig   `mapstructure:"sizer"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
	Agent   AgentConfig   `mapstructure:"agent"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/maccleaner/config.yaml
//   - $HOME/.config/maccleaner/config.yaml
//
// Environment variables are prefixed with MACCLEANER_
// (e.g., MACCLEANER_REFRESH_INTERVAL).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path, as provided by
// the --config flag. An empty path searches the standard locations;
// a non-empty path that cannot be read is an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "maccleaner"))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "maccleaner"))
	}

	v.SetEnvPrefix("MACCLEANER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in configured paths
	if strings.HasPrefix(cfg.History.Path, "~") {
		cfg.History.Path = filepath.Join(homeDir, cfg.History.Path[1:])
	}
	if strings.HasPrefix(cfg.Analyze.Path, "~") {
		cfg.Analyze.Path = filepath.Join(homeDir, cfg.Analyze.Path[1:])
	}

	return &cfg, nil
}

// setDefaults installs the default value for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("refresh_interval", DefaultRefreshInterval)
	v.SetDefault("settle_delay", DefaultSettleDelay)
	v.SetDefault("stop_grace", DefaultStopGrace)
	v.SetDefault("output", "")

	v.SetDefault("clean.trash", true)
	v.SetDefault("clean.dry_run", false)

	v.SetDefault("analyze.min_size", DefaultMinSize)
	v.SetDefault("analyze.path", DefaultAnalyzePath)
	v.SetDefault("analyze.exclude", DefaultExclusions)

	v.SetDefault("sizer.dir_workers", 0)
	v.SetDefault("sizer.file_workers", 0)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means use HistoryDir
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"agent":   "info",
		"watcher": "warn",
		"sizer":   "info",
		"tui":     "info",
	})

	v.SetDefault("agent.autostart", true)
	v.SetDefault("agent.socket_path", "") // Empty means use default XDG path
	v.SetDefault("agent.pid_path", "")    // Empty means use default XDG path
	v.SetDefault("agent.sample_interval", time.Duration(0))
	v.SetDefault("agent.retention", DefaultAgentRetention)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "maccleaner"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "maccleaner"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# MacCleaner Configuration

# How often the dashboard and the telemetry agent refresh readings
refresh_interval: 5s

# How long the purge waits before taking the stabilized reading
settle_delay: 12s

# How long the purge waits after signaling stop candidates
stop_grace: 1200ms

# Output format: json, plain, pretty, table, tsv, csv, markdown, yaml, paths
# Empty means pretty on a terminal and plain otherwise
output: ""

# Clean command settings
clean:
  # Send removed files to the Trash instead of deleting them outright
  trash: true
  # List what would be removed without removing anything
  dry_run: false

# Analyze (large file scan) settings
analyze:
  # Minimum file size to report
  min_size: %s
  # Default path to analyze
  path: "%s"
  # Paths to exclude from scanning
  exclude:
    - /System/Volumes
    - /Volumes
    - ~/Library/CloudStorage

# Sizer worker pools (0 means auto-tuned from machine resources)
sizer:
  dir_workers: 0
  file_workers: 0

# Operation history (clean/uninstall/privacy records)
history:
  enabled: true
  # History directory (empty means use default: $XDG_DATA_HOME/maccleaner/history)
  path: ""
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/maccleaner/maccleaner.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    agent: info
    watcher: warn
    sizer: info
    tui: info

# Background telemetry agent
agent:
  # Automatically start the agent when running maccleaner commands
  autostart: true
  # Unix socket path (empty means use default: $XDG_DATA_HOME/maccleaner/maccleanerd.sock)
  socket_path: ""
  # PID file path (empty means use default: $XDG_DATA_HOME/maccleaner/maccleanerd.pid)
  pid_path: ""
  # Sampling cadence (0 means follow refresh_interval)
  sample_interval: 0s
  # How long to keep telemetry samples
  retention: 168h
`, DefaultMinSize, DefaultAnalyzePath, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/maccleaner/ for database, socket, and pid files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "maccleaner")
}

// StateDir returns $XDG_STATE_HOME/maccleaner/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "maccleaner")
}

// CacheDir returns $XDG_CACHE_HOME/maccleaner/ for the size cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "maccleaner")
}

// HistoryDir returns the default operation history directory.
func HistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// SizeCacheDir returns the default Badger size cache directory.
func SizeCacheDir() string {
	return filepath.Join(CacheDir(), "sizecache")
}

// DefaultSocketPath returns the default Unix socket path for the agent.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), "maccleanerd.sock")
}

// DefaultPIDPath returns the default agent PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "maccleanerd.pid")
}

// DefaultDBPath returns the default telemetry database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "telemetry.db")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "maccleaner.log")
}

// DefaultBinaryPath returns the maccleanerd binary found in the standard
// Go install locations (GOBIN, GOPATH/bin, ~/go/bin), or empty when none
// exists.
func DefaultBinaryPath() string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		dirs = append(dirs, filepath.Join(gopath, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, "maccleanerd")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func EnsureCacheDir() error {
	if err := os.MkdirAll(CacheDir(), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return nil
}

// EnsureHistoryDir creates the history directory if it doesn't exist.
func EnsureHistoryDir() error {
	if err := os.MkdirAll(HistoryDir(), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	return nil
}
