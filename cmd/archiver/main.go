/*
Copyright (C) 2026  nostrbase contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Command archiver drives one ingest run, or a standalone merge-only
// recovery pass, over a newline-delimited Nostr event dump.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dc0d/onexit"

	"github.com/nostrbase/archiver/config"
	"github.com/nostrbase/archiver/coordinator"
	"github.com/nostrbase/archiver/merge"
	"github.com/nostrbase/archiver/sink"
)

func main() {
	var (
		input         = flag.String("input", "", "path to the newline-delimited event file (.jsonl, .gz, .zst, .xz)")
		output        = flag.String("output", "", "output directory for day shards, index, and logs")
		workers       = flag.Int("workers", 0, "number of ingest workers (default: GOMAXPROCS)")
		batchSize     = flag.Int("batch-size", 0, "records per index batch (default: 1000)")
		compression   = flag.Int("compression-level", 6, "gzip compression level, 0-9")
		validateID    = flag.Bool("validate-id", true, "recompute and check the content hash against id")
		validateSig   = flag.Bool("validate-sig", true, "verify the BIP-340 signature")
		prefilter     = flag.Bool("prefilter", true, "enable the byte-level kind prefilter")
		indexMode     = flag.String("index-mode", "", "steady or bulk_build (default: steady, or bulk_build with -rebuild)")
		rebuild       = flag.Bool("rebuild", false, "build a fresh index from scratch (implies bulk_build unless -index-mode is set)")
		cleanupShards = flag.Bool("cleanup-shards", false, "delete worker shards after a successful merge")
		maxLineSize   = flag.String("max-line-size", "", "human-readable cap on a single input line, e.g. 16MiB")
		logRate       = flag.Float64("log-rate", 50, "max rejection log lines per second per category, 0 disables the cap")
		mergeOnly     = flag.Bool("merge-only", false, "skip ingest; merge/re-merge existing shards in -output and exit")
		watch         = flag.Bool("watch", false, "with -merge-only, keep watching -output/tmp for new shards instead of exiting")
	)
	flag.Parse()

	if *output == "" {
		fmt.Fprintln(os.Stderr, "archiver: -output is required")
		os.Exit(2)
	}

	settings := config.Default()
	if *rebuild {
		settings = config.DefaultRebuild()
	}
	settings.InputPath = *input
	settings.OutputDir = *output
	if *workers > 0 {
		settings.Workers = *workers
	}
	if *batchSize > 0 {
		settings.BatchSize = *batchSize
	}
	settings.CompressionLevel = *compression
	settings.ValidateID = *validateID
	settings.ValidateSig = *validateSig
	settings.Prefilter = *prefilter
	settings.CleanupShards = *cleanupShards
	if *indexMode != "" {
		settings.IndexMode = config.IndexMode(*indexMode)
	}
	if *maxLineSize != "" {
		if err := settings.SetMaxLineSize(*maxLineSize); err != nil {
			fmt.Fprintln(os.Stderr, "archiver:", err)
			os.Exit(2)
		}
	}

	if err := os.MkdirAll(settings.OutputDir, 0750); err != nil {
		fmt.Fprintln(os.Stderr, "archiver: create output dir:", err)
		os.Exit(1)
	}
	logger, err := sink.NewFileLogger(filepath.Join(settings.OutputDir, "run.log"), sink.LevelInfo, *logRate)
	if err != nil {
		fmt.Fprintln(os.Stderr, "archiver: open run.log:", err)
		os.Exit(1)
	}
	onexit.Register(func() { logger.Close() })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mergeOnly {
		if *watch {
			err = merge.WatchMergeOnly(ctx, settings.OutputDir, settings.CleanupShards, settings.CompressionLevel, logger)
		} else {
			_, err = merge.Run(settings.OutputDir, settings.CleanupShards, settings.CompressionLevel)
		}
		if err != nil {
			logger.Event(sink.LevelError, fmt.Sprintf("merge-only run failed: %v", err))
			fmt.Fprintln(os.Stderr, "archiver:", err)
			onexit.Exit(1)
		}
		onexit.Exit(0)
		return
	}

	if settings.InputPath == "" {
		fmt.Fprintln(os.Stderr, "archiver: -input is required unless -merge-only is set")
		onexit.Exit(2)
	}

	summary, err := coordinator.Run(ctx, settings, logger)
	if err != nil {
		logger.Event(sink.LevelError, fmt.Sprintf("run failed: %v", err))
		fmt.Fprintln(os.Stderr, "archiver:", err)
		onexit.Exit(1)
	}
	fmt.Print(summary.Text())
	onexit.Exit(0)
}
