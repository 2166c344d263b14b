package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("SOCKWHO_CHANNEL_SIZE", "128")
	t.Setenv("SOCKWHO_LOG_LEVEL", "warn")
	t.Setenv("SOCKWHO_HOOKS", "sendto")

	require.NoError(t, rootCmd.ParseFlags([]string{"--channel-size", "32", "--hook", "bind,connect"}))

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.ChannelSize)
	assert.Equal(t, []string{"bind", "connect"}, cfg.Hooks)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestNewLoggerInvalidLevelError(t *testing.T) {
	_, err := newLogger("loud")
	if err == nil {
		t.Error("expected error, got nil")
	}

	t.Logf("got error %q (of type %T)", err, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))
}
