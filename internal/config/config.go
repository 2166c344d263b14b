// Package config holds the runtime configuration of sockwho, read from the
// environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Capacity of the channel between the readers and the processor
	ChannelSize int `env:"SOCKWHO_CHANNEL_SIZE" envDefault:"1024"`
	// Size of each per-CPU perf ring, in pages. Must be a power of two.
	PerfBufferPages int `env:"SOCKWHO_PERF_BUFFER_PAGES" envDefault:"16"`
	// Number of scratch buffers each reader owns
	ReadBatchSize int      `env:"SOCKWHO_READ_BATCH_SIZE" envDefault:"1024"`
	LogLevel      string   `env:"SOCKWHO_LOG_LEVEL" envDefault:"info"`
	BPFObject     string   `env:"SOCKWHO_BPF_OBJECT"`
	Hooks         []string `env:"SOCKWHO_HOOKS" envSeparator:","`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration once flags have been applied.
func (c *Config) Validate() error {
	if c.ChannelSize <= 0 {
		return fmt.Errorf("channel size must be positive, got %d", c.ChannelSize)
	}

	if c.PerfBufferPages <= 0 || c.PerfBufferPages&(c.PerfBufferPages-1) != 0 {
		return fmt.Errorf("perf buffer pages must be a power of two, got %d", c.PerfBufferPages)
	}

	if c.ReadBatchSize <= 0 {
		return fmt.Errorf("read batch size must be positive, got %d", c.ReadBatchSize)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	return nil
}
