package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	"github.com/lucacasonato/esbuild-deno-loader/engine"
)

var (
	cwdFlag       string
	configFlag    string
	importMapFlag string
	lockFlag      string
	guestFlag     string
	entryFlags    []string
	outputJSON    bool
	verbose       bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var log *zap.Logger

	cmd := &cobra.Command{
		Use:           "denoresolve",
		Short:         "Resolve module specifiers in a Deno workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose, os.Getenv(logEnv))
			if err != nil {
				return err
			}
			log = l
			adapter.SetLogger(l)
			engine.SetLogger(l)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cwdFlag, "cwd", "", "Directory discovery starts from (default: working directory)")
	cmd.PersistentFlags().StringArrayVar(&entryFlags, "entry", nil, "Entry point; discovery starts from the common directory of all entries")
	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "Use this deno.json instead of discovering one")
	cmd.PersistentFlags().StringVar(&importMapFlag, "import-map", "", "Import map file overriding the workspace imports")
	cmd.PersistentFlags().StringVar(&lockFlag, "lock", "", "Lockfile to query (default: the workspace lockfile)")
	cmd.PersistentFlags().StringVar(&guestFlag, "guest", "", "Resolve through this wasm guest instead of in-process")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newLockCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newInteractiveCmd())

	return cmd
}
