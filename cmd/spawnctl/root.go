package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/assisi-engine/arsenal/spawn"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

const envPrefix = "SPAWNCTL"

// settings holds the defaults read from SPAWNCTL_* environment variables. Command line
// flags override them.
type settings struct {
	InitialSlots int    `envconfig:"INITIAL_SLOTS" default:"1024"`
	MaxSlots     int    `envconfig:"MAX_SLOTS" default:"0"`
	Synchronized bool   `envconfig:"SYNCHRONIZED" default:"false"`
	Permissive   bool   `envconfig:"PERMISSIVE" default:"false"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"warn"`
}

var (
	// Global flags
	verbose bool
	jsonOut bool

	poolFlags = settings{InitialSlots: spawn.DefaultInitialSlots}
)

var rootCmd = &cobra.Command{
	Use:   "spawnctl",
	Short: "Exercise and inspect the spawn object pool",
	Long: `spawnctl drives a spawn pool of world objects through synthetic workloads
and reports how the pool grew, which slots are live, and whether its
internal lists stayed consistent.`,
	SilenceUsage:      true,
	PersistentPreRunE: applyEnvironment,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every pool operation to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")

	rootCmd.PersistentFlags().IntVar(&poolFlags.InitialSlots, "initial-slots", poolFlags.InitialSlots, "Slot count of the first page")
	rootCmd.PersistentFlags().IntVar(&poolFlags.MaxSlots, "max-slots", 0, "Capacity limit of the pool, 0 for none")
	rootCmd.PersistentFlags().BoolVar(&poolFlags.Synchronized, "synchronized", false, "Create the pool with PoolCreateSynchronized")
	rootCmd.PersistentFlags().BoolVar(&poolFlags.Permissive, "permissive", false, "Create the pool with PoolCreatePermissiveHandles")
	rootCmd.PersistentFlags().StringVar(&poolFlags.LogLevel, "log-level", "warn", "Minimum level logged to stderr (debug, info, warn, error)")
}

// applyEnvironment fills every pool flag the user did not set from the environment
func applyEnvironment(cmd *cobra.Command, args []string) error {
	var env settings
	err := envconfig.Process(envPrefix, &env)
	if err != nil {
		return errors.Wrap(err, "failed to read the environment")
	}

	flags := cmd.Flags()
	if !flags.Changed("initial-slots") {
		poolFlags.InitialSlots = env.InitialSlots
	}
	if !flags.Changed("max-slots") {
		poolFlags.MaxSlots = env.MaxSlots
	}
	if !flags.Changed("synchronized") {
		poolFlags.Synchronized = env.Synchronized
	}
	if !flags.Changed("permissive") {
		poolFlags.Permissive = env.Permissive
	}
	if !flags.Changed("log-level") {
		poolFlags.LogLevel = env.LogLevel
	}

	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return slog.LevelInfo, errors.Errorf("unknown log level %q", level)
}

// newLogger logs to w at the configured level; --verbose always logs everything
func newLogger(w io.Writer) (*slog.Logger, error) {
	level := slog.LevelDebug
	if !verbose {
		var err error
		level, err = parseLevel(poolFlags.LogLevel)
		if err != nil {
			return nil, err
		}
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w)), nil
}

func createFlags() spawn.CreateFlags {
	var flags spawn.CreateFlags
	if poolFlags.Synchronized {
		flags |= spawn.PoolCreateSynchronized
	}
	if poolFlags.Permissive {
		flags |= spawn.PoolCreatePermissiveHandles
	}
	return flags
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	execute()
}
