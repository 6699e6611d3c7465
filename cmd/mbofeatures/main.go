// Command mbofeatures is a reference CLI harness: it wires a replay Source
// pair, a csvsink Sink pair, and an OrderEngine into a Pipeline and runs it
// to completion.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mbo-features/internal/config"
	"mbo-features/internal/engine"
	"mbo-features/internal/feature"
	"mbo-features/internal/obslog"
	"mbo-features/internal/pipeline"
	"mbo-features/internal/sink/csvsink"
	"mbo-features/internal/source/replay"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:   "mbofeatures <YYYYMMDD> <base_symbol> <futures_symbol> [snapshot_interval_ns]",
		Short: "Replay two MBO event streams and emit time-aligned feature vectors",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, baseSymbol, futuresSymbol := args[0], args[1], args[2]
			var snapshotIntervalNs uint64
			if len(args) == 4 {
				v, err := strconv.ParseUint(args[3], 10, 64)
				if err != nil {
					return fmt.Errorf("mbofeatures: snapshot_interval_ns: %w", err)
				}
				snapshotIntervalNs = v
			}
			return run(date, baseSymbol, futuresSymbol, dataDir, configPath, snapshotIntervalNs)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file (tunables)")
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory holding <symbol>_<date>.csv event files")
	return cmd
}

// eventPath is the file-naming convention for locating a symbol's event
// stream on disk.
func eventPath(dataDir, symbol, date string) string {
	return fmt.Sprintf("%s/%s_%s.csv", dataDir, symbol, date)
}

func run(date, baseSymbol, futuresSymbol, dataDir, configPath string, snapshotIntervalNsOverride uint64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}
	if snapshotIntervalNsOverride > 0 {
		cfg.SnapshotIntervalNs = snapshotIntervalNsOverride
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}

	logger := obslog.New(os.Stderr, isTerminal(os.Stderr))

	sessionStartNs, sessionEndNs, err := cfg.SessionBounds(date)
	if err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}

	baseInstrument := baseSymbol
	futuresInstrument := futuresSymbol

	baseSource, err := replay.Open(eventPath(dataDir, baseSymbol, date))
	if err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}
	defer baseSource.Close()

	futuresSource, err := replay.Open(eventPath(dataDir, futuresSymbol, date))
	if err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}
	defer futuresSource.Close()

	baseSink, err := csvsink.Open(baseInstrument)
	if err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}
	defer baseSink.Close()

	futuresSink, err := csvsink.Open(futuresInstrument)
	if err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}
	defer futuresSink.Close()

	eng := engine.New(cfg.DepthLevels, cfg.RollingWindow, cfg.MidHistory, futuresInstrument, cfg.FrontMonthID, logger)

	base := pipeline.Stream{
		Instrument: baseInstrument,
		Source:     baseSource,
		Sink:       baseSink,
		Processor:  feature.NewProcessor(cfg.RollingWindow, cfg.DepthLevels, cfg.SnapshotIntervalNs),
		Normalizer: feature.NewNormalizer(cfg.WindowSize, logger),
	}
	futures := pipeline.Stream{
		Instrument: futuresInstrument,
		Source:     futuresSource,
		Sink:       futuresSink,
		Processor:  feature.NewProcessor(cfg.RollingWindow, cfg.DepthLevels, cfg.SnapshotIntervalNs),
		Normalizer: feature.NewNormalizer(cfg.WindowSize, logger),
	}

	p := pipeline.New(pipeline.Config{
		SessionStartNs:      sessionStartNs,
		SessionEndNs:        sessionEndNs,
		SnapshotIntervalNs:  cfg.SnapshotIntervalNs,
		MidSampleIntervalNs: cfg.MidSampleIntervalNs,
		PrefetchOffsetNs:    cfg.PrefetchOffsetNs,
	}, eng, base, futures, logger)

	if err := p.Run(); err != nil {
		return fmt.Errorf("mbofeatures: %w", err)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
