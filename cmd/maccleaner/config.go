package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
)

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage maccleaner configuration settings.

Configuration is loaded from:
  1. The --config flag (if set)
  2. $XDG_CONFIG_HOME/maccleaner/config.yaml (if set)
  3. ~/.config/maccleaner/config.yaml

Environment variables override the file using the MACCLEANER_ prefix:
  MACCLEANER_ANALYZE_MIN_SIZE=500M
  MACCLEANER_SETTLE_DELAY=10s
  MACCLEANER_AGENT_AUTOSTART=false`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			Long:  `Display the current configuration settings from all sources.`,
			RunE:  a.runConfigShow,
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit the configuration file",
			Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one is created first.`,
			RunE: a.runConfigEdit,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default configuration file",
			RunE:  a.runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the configuration file path",
			RunE:  a.runConfigPath,
		},
	)

	return cmd
}

func (a *App) runConfigShow(_ *cobra.Command, _ []string) error {
	cfg := a.cfg
	if cfg == nil {
		var err error
		cfg, err = config.LoadFile(a.cfgFile)
		if err != nil {
			return err
		}
	}

	if configFile := a.v.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("output:                 %s\n", orDefault(cfg.Output, "(auto)"))
	fmt.Printf("refresh_interval:       %s\n", cfg.RefreshInterval)
	fmt.Printf("settle_delay:           %s\n", cfg.SettleDelay)
	fmt.Printf("stop_grace:             %s\n", cfg.StopGrace)
	fmt.Printf("clean.trash:            %t\n", cfg.Clean.Trash)
	fmt.Printf("clean.dry_run:          %t\n", cfg.Clean.DryRun)
	fmt.Printf("analyze.min_size:       %s\n", cfg.Analyze.MinSize)
	fmt.Printf("analyze.path:           %s\n", cfg.Analyze.Path)
	fmt.Printf("analyze.exclude:        %v\n", cfg.Analyze.Exclude)
	fmt.Printf("sizer.dir_workers:      %d\n", cfg.Sizer.DirWorkers)
	fmt.Printf("sizer.file_workers:     %d\n", cfg.Sizer.FileWorkers)
	fmt.Printf("history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Printf("history.path:           %s\n", orDefault(cfg.History.Path, config.HistoryDir()))
	fmt.Printf("history.retention_days: %d\n", cfg.History.RetentionDays)
	fmt.Printf("logging.level:          %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:           %s\n", cfg.Logging.Path)
	fmt.Printf("agent.autostart:        %t\n", cfg.Agent.AutoStart)
	fmt.Printf("agent.socket_path:      %s\n", orDefault(cfg.Agent.SocketPath, config.DefaultSocketPath()))
	fmt.Printf("agent.sample_interval:  %s\n", cfg.Agent.SampleInterval)
	fmt.Printf("agent.retention:        %s\n", cfg.Agent.Retention)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"MACCLEANER_OUTPUT",
		"MACCLEANER_REFRESH_INTERVAL",
		"MACCLEANER_SETTLE_DELAY",
		"MACCLEANER_STOP_GRACE",
		"MACCLEANER_CLEAN_TRASH",
		"MACCLEANER_ANALYZE_MIN_SIZE",
		"MACCLEANER_ANALYZE_PATH",
		"MACCLEANER_ANALYZE_EXCLUDE",
		"MACCLEANER_SIZER_DIR_WORKERS",
		"MACCLEANER_SIZER_FILE_WORKERS",
		"MACCLEANER_HISTORY_ENABLED",
		"MACCLEANER_HISTORY_RETENTION_DAYS",
		"MACCLEANER_LOG_LEVEL",
		"MACCLEANER_AGENT_AUTOSTART",
		"MACCLEANER_AGENT_SOCKET_PATH",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

func (a *App) runConfigEdit(_ *cobra.Command, _ []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configPath, err := defaultConfigPath()
	if err != nil {
		return err
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	a.printVerbose("opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func (a *App) runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, err := defaultConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		a.printInfo("Config file already exists: %s", configPath)
		a.printInfo("Use 'maccleaner config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	a.printInfo("Created default config file: %s", configPath)
	return nil
}

func (a *App) runConfigPath(_ *cobra.Command, _ []string) error {
	configPath, err := defaultConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		a.printVerbose("file exists")
	} else if os.IsNotExist(err) {
		a.printVerbose("file does not exist, defaults apply")
	}
	return nil
}

func defaultConfigPath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
