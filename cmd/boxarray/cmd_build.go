package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rawbytedev/boxarray"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildPreset     string
	buildValue      float64
	buildOut        string
	buildZstd       bool
	buildMemProfile string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a preset nested array on the heap",
	Long: `Builds one registered preset in a single heap block and reports its size
and build time. With --out the array is written as a snapshot.

Example:
  boxarray build --preset f64-64x512x512 --value 0.5 --out cube.bxa --zstd`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, ok := presets[buildPreset]
	if !ok {
		return fmt.Errorf("unknown preset %q (see boxarray presets)", buildPreset)
	}
	if err := p.Values.check(buildValue); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}

	start := time.Now()
	b, err := p.build(buildValue)
	if err != nil {
		return fmt.Errorf("build %s: %w", p.Name, err)
	}
	defer b.release()
	elapsed := time.Since(start)
	logger.Info("preset built",
		zap.String("preset", p.Name),
		zap.Int("leaves", b.leaves),
		zap.Uintptr("bytes", b.bytes),
		zap.Duration("elapsed", elapsed))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: shape %s, %d leaves, %d bytes in %s\n",
		p.Name, b.shape, b.leaves, b.bytes, elapsed)

	if buildOut != "" {
		data, err := b.marshal(boxarray.CodecOptions{Compress: buildZstd, UnsafePrimitives: true, CheckAlignment: true})
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := os.WriteFile(buildOut, data, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		logger.Info("snapshot written", zap.String("path", buildOut), zap.Int("bytes", len(data)))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", buildOut, len(data))
	}

	if buildMemProfile != "" {
		if err := writeHeapProfile(buildMemProfile); err != nil {
			return err
		}
	}
	return nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create heap profile: %w", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("write heap profile: %w", err)
	}
	return nil
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the registered presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range presetNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", name, presets[name].Description)
		}
		return nil
	},
}
