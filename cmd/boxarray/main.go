package main

import (
	"fmt"
	"os"

	"github.com/rawbytedev/boxarray"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "boxarray",
	Short: "Build large nested fixed-size arrays directly on the heap",
	Long: `boxarray builds registered nested array presets in a single heap block,
writes them as checksummed snapshots and inspects existing snapshots.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		boxarray.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	buildCmd.Flags().StringVarP(&buildPreset, "preset", "p", "", "preset to build (see presets)")
	buildCmd.Flags().Float64Var(&buildValue, "value", 1, "leaf value, converted to the preset's leaf type")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "write a snapshot to this file")
	buildCmd.Flags().BoolVar(&buildZstd, "zstd", false, "zstd-compress the snapshot payload")
	buildCmd.Flags().StringVar(&buildMemProfile, "memprofile", "", "write a heap profile after the build")
	_ = buildCmd.MarkFlagRequired("preset")

	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "text", "output format: text or yaml")

	rootCmd.AddCommand(buildCmd, inspectCmd, presetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
