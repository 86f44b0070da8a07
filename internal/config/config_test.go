package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/morphutil/pkg/encoding"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Index.MaxDepth != 20 {
		t.Errorf("expected max depth 20, got %d", cfg.Index.MaxDepth)
	}
	if cfg.Index.MinLeafSize != 50 {
		t.Errorf("expected min leaf size 50, got %d", cfg.Index.MinLeafSize)
	}
	if cfg.Merge.Epsilon != 1e-6 {
		t.Errorf("expected merge epsilon 1e-6, got %g", cfg.Merge.Epsilon)
	}

	if !cfg.Rebase.Enabled {
		t.Error("expected rebase to be enabled by default")
	}
	if cfg.Rebase.Divisions != 8 || cfg.Rebase.MaxIterations != 20 {
		t.Errorf("expected 8 divisions and 20 iterations, got %d and %d", cfg.Rebase.Divisions, cfg.Rebase.MaxIterations)
	}
	if cfg.Rebase.ParallelCos != 0.95 {
		t.Errorf("expected parallel cos 0.95, got %f", cfg.Rebase.ParallelCos)
	}

	if cfg.Storage.Path != "morphutil.db" {
		t.Errorf("expected storage path morphutil.db, got %s", cfg.Storage.Path)
	}
	if cfg.Charset() != encoding.UTF8 {
		t.Errorf("expected utf-8 names, got %v", cfg.Charset())
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
index:
  max_depth: 12
  min_leaf_size: 8

merge:
  epsilon: 0.001

rebase:
  enabled: false
  divisions: 16

storage:
  path: "/var/lib/morphutil/shapes.db"
  name_charset: "shift_jis"

logging:
  level: "debug"
  log_file: "morphutil.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Index.MaxDepth != 12 || cfg.Index.MinLeafSize != 8 {
		t.Errorf("expected index 12/8, got %d/%d", cfg.Index.MaxDepth, cfg.Index.MinLeafSize)
	}
	if cfg.Merge.Epsilon != 0.001 {
		t.Errorf("expected epsilon 0.001, got %g", cfg.Merge.Epsilon)
	}
	if cfg.Rebase.Enabled {
		t.Error("expected rebase to be disabled")
	}
	if cfg.Rebase.Divisions != 16 {
		t.Errorf("expected 16 divisions, got %d", cfg.Rebase.Divisions)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Rebase.MaxIterations != 20 {
		t.Errorf("expected default 20 iterations, got %d", cfg.Rebase.MaxIterations)
	}
	if cfg.Storage.Path != "/var/lib/morphutil/shapes.db" {
		t.Errorf("expected storage path from file, got %s", cfg.Storage.Path)
	}
	if cfg.Charset() != encoding.ShiftJIS {
		t.Errorf("expected shift_jis, got %v", cfg.Charset())
	}
	if cfg.Logging.LogFile != "morphutil.log" {
		t.Errorf("expected log file 'morphutil.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	tests := map[string]string{
		"syntax":      "index:\n  max_depth: not a number\n  invalid syntax here\n",
		"unknown key": "index:\n  max_dept: 4\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, name+".yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Errorf("empty file should keep defaults, got %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative depth", func(c *Config) { c.Index.MaxDepth = -1 }},
		{"negative epsilon", func(c *Config) { c.Merge.Epsilon = -1 }},
		{"zero divisions", func(c *Config) { c.Rebase.Divisions = 0 }},
		{"shrink too wide", func(c *Config) { c.Rebase.ShrinkFactor = 0.5 }},
		{"unknown charset", func(c *Config) { c.Storage.NameCharset = "latin9" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("index:\n  max_depth: 4\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "db flag",
			setup: func() { *flagDB = "other.db" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Storage.Path != "other.db" {
					t.Errorf("expected storage path other.db, got %s", cfg.Storage.Path)
				}
			},
			teardown: func() { *flagDB = "" },
		},
		{
			name: "index flags",
			setup: func() {
				*flagMaxDepth = 0
				*flagMinLeaf = 4
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Index.MaxDepth != 0 || cfg.Index.MinLeafSize != 4 {
					t.Errorf("expected index 0/4, got %d/%d", cfg.Index.MaxDepth, cfg.Index.MinLeafSize)
				}
			},
			teardown: func() {
				*flagMaxDepth = -1
				*flagMinLeaf = -1
			},
		},
		{
			name:  "no-rebase flag",
			setup: func() { *flagNoRebase = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Rebase.Enabled {
					t.Error("expected rebase disabled")
				}
			},
			teardown: func() { *flagNoRebase = false },
		},
		{
			name:  "charset flag",
			setup: func() { *flagCharset = "euc-kr" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Charset() != encoding.EUCKR {
					t.Errorf("expected euc-kr, got %v", cfg.Charset())
				}
			},
			teardown: func() { *flagCharset = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
index:
  max_depth: 10
  min_leaf_size: 30
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagMaxDepth = 5
	defer func() {
		*flagConfig = ""
		*flagMaxDepth = -1
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Max depth from flag, min leaf size from file.
	if cfg.Index.MaxDepth != 5 {
		t.Errorf("expected max depth 5 from flag, got %d", cfg.Index.MaxDepth)
	}
	if cfg.Index.MinLeafSize != 30 {
		t.Errorf("expected min leaf size 30 from file, got %d", cfg.Index.MinLeafSize)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Storage.NameCharset = "shift_jis"
	cfg.Index.MinLeafSize = 7

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.Index.MinLeafSize != 7 || loaded.Charset() != encoding.ShiftJIS {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
