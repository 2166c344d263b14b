package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jhwbarlow/sockwho/internal/config"
	"github.com/jhwbarlow/sockwho/internal/hook"
	"github.com/jhwbarlow/sockwho/internal/tracer"
)

var (
	hooks       []string
	logLevel    string
	channelSize int
	bpfObject   string
)

var rootCmd = &cobra.Command{
	Use:          "sockwho",
	Short:        "Trace which processes bind, connect, send and receive on sockets",
	Long:         "Live socket activity tracer for Linux, built on eBPF tracepoints",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		selected, err := hook.Parse(cfg.Hooks)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		sugaredLogger := logger.Sugar().With("session", uuid.NewString())
		sugaredLogger.Infow("Starting", "hooks", selected)

		t, err := tracer.New(cfg, hook.Tracepoints(selected), os.Stdout, sugaredLogger)
		if err != nil {
			return err
		}

		return t.Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(
		&hooks, "hook", nil,
		"hooks to trace, one of "+joinNames()+" (default all)")
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"setup the log level of the logger (overrides SOCKWHO_LOG_LEVEL)")
	rootCmd.PersistentFlags().IntVar(
		&channelSize, "channel-size", 0,
		"capacity of the event channel (overrides SOCKWHO_CHANNEL_SIZE)")
	rootCmd.PersistentFlags().StringVar(
		&bpfObject, "bpf-object", "",
		"load the BPF object from this path instead of the embedded one (overrides SOCKWHO_BPF_OBJECT)")
	rootCmd.AddCommand(simulateCmd)
}

func joinNames() string {
	return strings.Join(hook.Names(), ", ")
}

// loadConfig reads the environment, then applies the flags set on the
// command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("hook") {
		cfg.Hooks = hooks
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("channel-size") {
		cfg.ChannelSize = channelSize
	}
	if flags.Changed("bpf-object") {
		cfg.BPFObject = bpfObject
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// newLogger builds a console logger writing to stderr, leaving stdout to
// the events.
func newLogger(logLevel string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	consoleLevel := zap.NewAtomicLevelAt(level)
	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleErrors := zapcore.Lock(os.Stderr)
	consoleEncoder := zapcore.NewConsoleEncoder(consoleConfig)
	loggerCore := zapcore.NewCore(
		consoleEncoder, consoleErrors, consoleLevel)
	return zap.New(loggerCore), nil
}

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
