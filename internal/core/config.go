package core

import "fmt"

// Config holds runtime configuration for the typed-array runtime. It is
// decoded from TOML with [engine], [log] and [snapshot] tables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Log      LogConfig      `toml:"log"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// EngineConfig configures the JS engine backend.
type EngineConfig struct {
	MemoryLimitMB int `toml:"memory_limit_mb"` // per-runtime memory limit, 0 = engine default
}

// LogConfig configures the zap logger built by the root package.
type LogConfig struct {
	Level       string `toml:"level"` // debug, info, warn, error
	Development bool   `toml:"development"`
}

// SnapshotConfig configures the snapshot store.
type SnapshotConfig struct {
	Path string `toml:"path"` // SQLite file; empty means in-memory
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{MemoryLimitMB: 128},
		Log:    LogConfig{Level: "info"},
	}
}

// Validate rejects negative limits and unknown log levels.
func (c Config) Validate() error {
	if c.Engine.MemoryLimitMB < 0 {
		return fmt.Errorf("engine.memory_limit_mb must not be negative, got %d", c.Engine.MemoryLimitMB)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
