// Package config handles morphutil configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/morphutil/pkg/bsp"
	"github.com/Faultbox/morphutil/pkg/encoding"
	"github.com/Faultbox/morphutil/pkg/morph"
	"github.com/Faultbox/morphutil/pkg/rebase"
)

// Config holds all settings.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Merge   MergeConfig   `yaml:"merge"`
	Rebase  RebaseConfig  `yaml:"rebase"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// IndexConfig tunes the spatial index. It affects speed only.
type IndexConfig struct {
	MaxDepth    int `yaml:"max_depth"`
	MinLeafSize int `yaml:"min_leaf_size"`
}

// MergeConfig holds duplicate vertex merge settings.
type MergeConfig struct {
	Epsilon float32 `yaml:"epsilon"`
}

// RebaseConfig tunes rigid motion recovery.
type RebaseConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MaxIterations int     `yaml:"max_iterations"`
	Divisions     int     `yaml:"divisions"`
	ShrinkFactor  float32 `yaml:"shrink_factor"`
	ExitAngleDeg  float32 `yaml:"exit_angle_deg"`
	ParallelCos   float32 `yaml:"parallel_cos"`
	Tolerance     float32 `yaml:"tolerance"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Path        string `yaml:"path"`         // SQLite database file
	NameCharset string `yaml:"name_charset"` // encoding of stored target names
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the host plugin's tuning.
func Default() *Config {
	ro := rebase.DefaultOptions()
	return &Config{
		Index: IndexConfig{
			MaxDepth:    bsp.DefaultMaxDepth,
			MinLeafSize: bsp.DefaultMinLeafSize,
		},
		Merge: MergeConfig{
			Epsilon: morph.DefaultMergeEpsilon,
		},
		Rebase: RebaseConfig{
			Enabled:       true,
			MaxIterations: ro.MaxIterations,
			Divisions:     ro.Divisions,
			ShrinkFactor:  ro.ShrinkFactor,
			ExitAngleDeg:  ro.ExitAngleDeg,
			ParallelCos:   ro.ParallelCos,
			Tolerance:     ro.Tolerance,
		},
		Storage: StorageConfig{
			Path:        "morphutil.db",
			NameCharset: "utf-8",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Index.MaxDepth < 0 || c.Index.MinLeafSize < 0 {
		return fmt.Errorf("index: negative max_depth or min_leaf_size")
	}
	if c.Merge.Epsilon < 0 {
		return fmt.Errorf("merge: negative epsilon %v", c.Merge.Epsilon)
	}
	if c.Rebase.Divisions < 1 || c.Rebase.MaxIterations < 1 {
		return fmt.Errorf("rebase: divisions and max_iterations must be positive")
	}
	if c.Rebase.ShrinkFactor <= 0 || c.Rebase.ShrinkFactor >= 0.5 {
		return fmt.Errorf("rebase: shrink_factor %v outside (0, 0.5)", c.Rebase.ShrinkFactor)
	}
	if _, err := encoding.ParseCharset(c.Storage.NameCharset); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// BSPOptions returns the index tuning.
func (c *Config) BSPOptions() bsp.Options {
	return bsp.Options{MaxDepth: c.Index.MaxDepth, MinLeafSize: c.Index.MinLeafSize}
}

// RebaseOptions returns the rebase tuning.
func (c *Config) RebaseOptions() rebase.Options {
	return rebase.Options{
		MaxIterations: c.Rebase.MaxIterations,
		Divisions:     c.Rebase.Divisions,
		ShrinkFactor:  c.Rebase.ShrinkFactor,
		ExitAngleDeg:  c.Rebase.ExitAngleDeg,
		ParallelCos:   c.Rebase.ParallelCos,
		Tolerance:     c.Rebase.Tolerance,
	}
}

// Charset returns the stored name encoding, UTF-8 when unset or invalid.
func (c *Config) Charset() encoding.Charset {
	cs, _ := encoding.ParseCharset(c.Storage.NameCharset)
	return cs
}
