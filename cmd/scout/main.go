// Command scout replays a state transition fixture and checks that the
// resulting shard state matches the one the fixture declares.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ewasm/scout"
	"github.com/ewasm/scout/fixture"
	"github.com/ewasm/scout/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath    string
		logLevel      string
		codeDBBackend string
		codeDBDir     string
		ticks         uint64
		memoryPages   uint32
		printDebug    bool
	)

	cmd := &cobra.Command{
		Use:           "scout [fixture.yaml]",
		Short:         "Replay shard blocks against execution environment scripts",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).
				With().Timestamp().Logger()

			config := types.DefaultVMConfig()
			if configPath != "" {
				if config, err = types.LoadVMConfig(configPath); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("ticks") {
				config.TickLimit = ticks
			}
			if flags.Changed("memory-pages") {
				config.MemoryLimitPages = memoryPages
			}
			if flags.Changed("print-debug") {
				config.PrintDebug = printDebug
			}
			if err := config.Validate(); err != nil {
				return err
			}

			path := fixture.DefaultPath
			if len(args) == 1 {
				path = args[0]
			}
			err = run(cmd, path, scout.Config{VM: config, CodeDBBackend: codeDBBackend, CodeDBDir: codeDBDir}, logger)
			if err != nil {
				logger.Error().Err(err).Str("fixture", path).Msg("Fixture failed")
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "YAML file with VM settings")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&codeDBBackend, "code-db-backend", "memdb", "cometbft-db backend for the code store")
	flags.StringVar(&codeDBDir, "code-db-dir", "", "directory of a file backed code store")
	flags.Uint64Var(&ticks, "ticks", types.DefaultTickLimit, "tick budget of one execution")
	flags.Uint32Var(&memoryPages, "memory-pages", types.DefaultMemoryLimitPages, "linear memory limit in 64KiB pages")
	flags.BoolVar(&printDebug, "print-debug", false, "log guest debug output at info level")
	return cmd
}

func run(cmd *cobra.Command, path string, config scout.Config, logger zerolog.Logger) error {
	ctx := cmd.Context()

	f, err := fixture.Load(path)
	if err != nil {
		return err
	}

	vm, err := scout.NewVM(ctx, config, logger)
	if err != nil {
		return err
	}
	defer vm.Cleanup()

	for i, script := range f.BeaconState().ExecutionScripts {
		checksum, err := vm.StoreCode(ctx, script.Code)
		if err != nil {
			return fmt.Errorf("execution script %s: %w", f.Scripts[i], err)
		}
		vm.Pin(checksum)
		logger.Debug().Str("script", f.Scripts[i]).Hex("checksum", checksum).Msg("Loaded execution script")
	}

	state, err := fixture.Run(ctx, vm, f)
	if state != nil {
		for i, root := range state.ExecEnvStates {
			fmt.Fprintf(cmd.OutOrStdout(), "env %d: %s\n", i, root)
		}
	}
	if err != nil {
		return err
	}
	logger.Info().Str("fixture", path).Int("blocks", len(f.Blocks())).Msg("Post state matches")
	return nil
}
