package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %v, want %v", cfg.RefreshInterval, DefaultRefreshInterval)
	}

	if cfg.SettleDelay != DefaultSettleDelay {
		t.Errorf("SettleDelay = %v, want %v", cfg.SettleDelay, DefaultSettleDelay)
	}

	if cfg.StopGrace != DefaultStopGrace {
		t.Errorf("StopGrace = %v, want %v", cfg.StopGrace, DefaultStopGrace)
	}

	if !cfg.Clean.Trash {
		t.Error("Clean.Trash = false, want true")
	}

	if cfg.Clean.DryRun {
		t.Error("Clean.DryRun = true, want false")
	}

	if cfg.Analyze.MinSize != DefaultMinSize {
		t.Errorf("Analyze.MinSize = %q, want %q", cfg.Analyze.MinSize, DefaultMinSize)
	}

	if cfg.Sizer.DirWorkers != 0 {
		t.Errorf("Sizer.DirWorkers = %d, want 0 (auto)", cfg.Sizer.DirWorkers)
	}

	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}

	if cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History.RetentionDays = %d, want %d", cfg.History.RetentionDays, DefaultRetentionDays)
	}

	if !cfg.Agent.AutoStart {
		t.Error("Agent.AutoStart = false, want true")
	}

	if cfg.Agent.SampleInterval != 0 {
		t.Errorf("Agent.SampleInterval = %v, want 0 (follow refresh_interval)", cfg.Agent.SampleInterval)
	}

	if cfg.Agent.Retention != DefaultAgentRetention {
		t.Errorf("Agent.Retention = %v, want %v", cfg.Agent.Retention, DefaultAgentRetention)
	}

	if len(cfg.Analyze.Exclude) != len(DefaultExclusions) {
		t.Errorf("len(Analyze.Exclude) = %d, want %d", len(cfg.Analyze.Exclude), len(DefaultExclusions))
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "maccleaner")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
refresh_interval: 2s
settle_delay: 3s
stop_grace: 500ms
clean:
  trash: false
  dry_run: true
analyze:
  min_size: 50MB
  path: /Users/someone
  exclude:
    - /tmp
    - /var/cache
sizer:
  dir_workers: 2
  file_workers: 4
history:
  enabled: false
  path: /custom/history
  retention_days: 7
agent:
  autostart: false
  sample_interval: 10s
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RefreshInterval != 2*time.Second {
		t.Errorf("RefreshInterval = %v, want 2s", cfg.RefreshInterval)
	}

	if cfg.SettleDelay != 3*time.Second {
		t.Errorf("SettleDelay = %v, want 3s", cfg.SettleDelay)
	}

	if cfg.StopGrace != 500*time.Millisecond {
		t.Errorf("StopGrace = %v, want 500ms", cfg.StopGrace)
	}

	if cfg.Clean.Trash {
		t.Error("Clean.Trash = true, want false")
	}

	if !cfg.Clean.DryRun {
		t.Error("Clean.DryRun = false, want true")
	}

	if cfg.Analyze.MinSize != "50MB" {
		t.Errorf("Analyze.MinSize = %q, want %q", cfg.Analyze.MinSize, "50MB")
	}

	if cfg.Analyze.Path != "/Users/someone" {
		t.Errorf("Analyze.Path = %q, want %q", cfg.Analyze.Path, "/Users/someone")
	}

	if cfg.Sizer.DirWorkers != 2 {
		t.Errorf("Sizer.DirWorkers = %d, want 2", cfg.Sizer.DirWorkers)
	}

	if cfg.Sizer.FileWorkers != 4 {
		t.Errorf("Sizer.FileWorkers = %d, want 4", cfg.Sizer.FileWorkers)
	}

	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}

	if cfg.History.Path != "/custom/history" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/custom/history")
	}

	if cfg.History.RetentionDays != 7 {
		t.Errorf("History.RetentionDays = %d, want 7", cfg.History.RetentionDays)
	}

	if cfg.Agent.AutoStart {
		t.Error("Agent.AutoStart = true, want false")
	}

	if cfg.Agent.SampleInterval != 10*time.Second {
		t.Errorf("Agent.SampleInterval = %v, want 10s", cfg.Agent.SampleInterval)
	}

	if len(cfg.Analyze.Exclude) != 2 {
		t.Errorf("len(Analyze.Exclude) = %d, want 2", len(cfg.Analyze.Exclude))
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := t.TempDir()
	xdgConfigDir := filepath.Join(tempDir, "xdg-config", "maccleaner")
	if err := os.MkdirAll(xdgConfigDir, 0o755); err != nil {
		t.Fatalf("failed to create XDG config dir: %v", err)
	}

	configContent := `
analyze:
  min_size: 200MB
`
	configPath := filepath.Join(xdgConfigDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg-config"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Analyze.MinSize != "200MB" {
		t.Errorf("Analyze.MinSize = %q, want %q", cfg.Analyze.MinSize, "200MB")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("MACCLEANER_REFRESH_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.RefreshInterval)
	}
}

func TestLoad_ExpandsHistoryPath(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "maccleaner")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
history:
  path: ~/cleaner-history
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := filepath.Join(tempDir, "cleaner-history")
	if cfg.History.Path != want {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, want)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}

		expected := "/custom/config/maccleaner"
		if dir != expected {
			t.Errorf("ConfigDir() = %q, want %q", dir, expected)
		}
	})

	t.Run("uses HOME/.config when XDG_CONFIG_HOME not set", func(t *testing.T) {
		tempDir := t.TempDir()
		t.Setenv("HOME", tempDir)
		t.Setenv("XDG_CONFIG_HOME", "")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}

		expected := filepath.Join(tempDir, ".config", "maccleaner")
		if dir != expected {
			t.Errorf("ConfigDir() = %q, want %q", dir, expected)
		}
	})
}

func TestEnsureConfigDir(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}

	expectedDir := filepath.Join(tempDir, ".config", "maccleaner")
	info, err := os.Stat(expectedDir)
	if err != nil {
		t.Fatalf("os.Stat(%q) error = %v", expectedDir, err)
	}

	if !info.IsDir() {
		t.Errorf("%q is not a directory", expectedDir)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Run("creates default config file", func(t *testing.T) {
		tempDir := t.TempDir()
		t.Setenv("HOME", tempDir)
		t.Setenv("XDG_CONFIG_HOME", "")

		if err := WriteDefault(); err != nil {
			t.Fatalf("WriteDefault() error = %v", err)
		}

		configPath := filepath.Join(tempDir, ".config", "maccleaner", "config.yaml")
		content, err := os.ReadFile(configPath)
		if err != nil {
			t.Fatalf("failed to read config file: %v", err)
		}

		if !strings.Contains(string(content), "refresh_interval") {
			t.Error("default config should mention refresh_interval")
		}
		if !strings.Contains(string(content), "settle_delay") {
			t.Error("default config should mention settle_delay")
		}
	})

	t.Run("does not overwrite existing config", func(t *testing.T) {
		tempDir := t.TempDir()
		t.Setenv("HOME", tempDir)
		t.Setenv("XDG_CONFIG_HOME", "")

		configDir := filepath.Join(tempDir, ".config", "maccleaner")
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			t.Fatalf("failed to create config dir: %v", err)
		}

		configPath := filepath.Join(configDir, "config.yaml")
		existingContent := "# existing config\nrefresh_interval: 1s"
		if err := os.WriteFile(configPath, []byte(existingContent), 0o644); err != nil {
			t.Fatalf("failed to write existing config: %v", err)
		}

		if err := WriteDefault(); err != nil {
			t.Fatalf("WriteDefault() error = %v", err)
		}

		content, err := os.ReadFile(configPath)
		if err != nil {
			t.Fatalf("failed to read config file: %v", err)
		}

		if string(content) != existingContent {
			t.Errorf("config file was overwritten: got %q, want %q", string(content), existingContent)
		}
	})

	t.Run("default config round-trips through Load", func(t *testing.T) {
		tempDir := t.TempDir()
		t.Setenv("HOME", tempDir)
		t.Setenv("XDG_CONFIG_HOME", "")

		if err := WriteDefault(); err != nil {
			t.Fatalf("WriteDefault() error = %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() after WriteDefault() error = %v", err)
		}

		if cfg.RefreshInterval != DefaultRefreshInterval {
			t.Errorf("RefreshInterval = %v, want %v", cfg.RefreshInterval, DefaultRefreshInterval)
		}
		if !cfg.Clean.Trash {
			t.Error("Clean.Trash = false, want true")
		}
	})
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "expands tilde",
			input: "~/Library/Caches",
			want:  filepath.Join(homeDir, "Library/Caches"),
		},
		{
			name:  "leaves absolute path unchanged",
			input: "/Library/Caches",
			want:  "/Library/Caches",
		},
		{
			name:  "leaves relative path unchanged",
			input: "Library/Caches",
			want:  "Library/Caches",
		},
		{
			name:  "handles tilde only",
			input: "~",
			want:  homeDir,
		},
		{
			name:  "handles tilde with slash",
			input: "~/",
			want:  homeDir,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExpandPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPathHelpers(t *testing.T) {
	if !strings.Contains(DataDir(), "maccleaner") {
		t.Errorf("DataDir() = %q, should contain 'maccleaner'", DataDir())
	}
	if !strings.Contains(StateDir(), "maccleaner") {
		t.Errorf("StateDir() = %q, should contain 'maccleaner'", StateDir())
	}
	if !strings.Contains(CacheDir(), "maccleaner") {
		t.Errorf("CacheDir() = %q, should contain 'maccleaner'", CacheDir())
	}

	if !strings.HasSuffix(DefaultSocketPath(), "maccleanerd.sock") {
		t.Errorf("DefaultSocketPath() = %q, should end with maccleanerd.sock", DefaultSocketPath())
	}
	if !strings.HasSuffix(DefaultPIDPath(), "maccleanerd.pid") {
		t.Errorf("DefaultPIDPath() = %q, should end with maccleanerd.pid", DefaultPIDPath())
	}
	if !strings.HasSuffix(DefaultDBPath(), "telemetry.db") {
		t.Errorf("DefaultDBPath() = %q, should end with telemetry.db", DefaultDBPath())
	}
	if !strings.HasSuffix(DefaultLogPath(), "maccleaner.log") {
		t.Errorf("DefaultLogPath() = %q, should end with maccleaner.log", DefaultLogPath())
	}
	if !strings.HasSuffix(HistoryDir(), filepath.Join("maccleaner", "history")) {
		t.Errorf("HistoryDir() = %q, should end with maccleaner/history", HistoryDir())
	}
	if !strings.HasSuffix(SizeCacheDir(), filepath.Join("maccleaner", "sizecache")) {
		t.Errorf("SizeCacheDir() = %q, should end with maccleaner/sizecache", SizeCacheDir())
	}
}

func TestLoad_LoggingDefaults(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	if cfg.Logging.Path != "" {
		t.Errorf("Logging.Path = %q, want empty string", cfg.Logging.Path)
	}

	if cfg.Logging.Rotation.MaxSize != "10MB" {
		t.Errorf("Logging.Rotation.MaxSize = %q, want %q", cfg.Logging.Rotation.MaxSize, "10MB")
	}

	if cfg.Logging.Rotation.MaxAge != 30 {
		t.Errorf("Logging.Rotation.MaxAge = %d, want %d", cfg.Logging.Rotation.MaxAge, 30)
	}

	if cfg.Logging.Rotation.MaxBackups != 5 {
		t.Errorf("Logging.Rotation.MaxBackups = %d, want %d", cfg.Logging.Rotation.MaxBackups, 5)
	}

	if !cfg.Logging.Rotation.Daily {
		t.Error("Logging.Rotation.Daily = false, want true")
	}

	expectedComponents := map[string]string{
		"agent":   "info",
		"watcher": "warn",
		"sizer":   "info",
		"tui":     "info",
	}
	for component, level := range expectedComponents {
		if cfg.Logging.Components[component] != level {
			t.Errorf("Logging.Components[%q] = %q, want %q", component, cfg.Logging.Components[component], level)
		}
	}
}
