package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/client"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// initializeLogging is the root PersistentPreRunE. It loads the typed
// config, creates the XDG directories, starts the logging registry
// (ring-buffered TUI mode for the dashboard) and points the flag viper
// at the same config file so subcommand reads pick up file and
// environment values.
func (a *App) initializeLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := config.EnsureStateDir(); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	level := cfg.Logging.Level
	if override := a.v.GetString("log_level"); override != "" {
		level = override
	}
	if a.v.GetBool("verbose") {
		level = "debug"
	}

	logPath := cfg.Logging.Path
	if logPath != "" {
		if expanded, err := config.ExpandPath(logPath); err == nil {
			logPath = expanded
		}
	}

	if err := logging.Init(logging.Config{
		Level:        level,
		Path:         logPath,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
		TUIMode:      cmd != nil && cmd.Name() == "dashboard",
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.log = logging.Get("cli")

	a.readFlagConfig()
	return nil
}

// readFlagConfig points the flag viper at the config file the typed
// loader used, so viper reads resolve flag > env > file > default.
// A missing file is fine; the defaults stand.
func (a *App) readFlagConfig() {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			a.v.AddConfigPath(filepath.Join(xdgConfigHome, "maccleaner"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(homeDir, ".config", "maccleaner"))
		}
	}

	_ = a.v.ReadInConfig()
}

// maybeStartAgent launches maccleanerd when autostart is configured,
// --no-agent is absent and no live agent holds the PID file. Callers
// treat failure as soft and fall back to direct readings.
func (a *App) maybeStartAgent() error {
	if a.cfg == nil || !a.cfg.Agent.AutoStart {
		return nil
	}
	if a.v.GetBool("no_agent") {
		return nil
	}

	pidPath := a.cfg.Agent.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}
	if client.IsAgentRunning(pidPath) {
		return nil
	}

	return client.StartAgent(a.agentPaths())
}

// parseRotationConfig converts the string-valued rotation block from
// the config file into the logging package's byte counts. A missing or
// unparseable max_size falls back to 10MB.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(10 * 1024 * 1024)
	if rc.MaxSize != "" {
		if parsed, err := types.ParseSize(rc.MaxSize); err == nil {
			maxSize = parsed
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}
