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

// Package coordinator implements the run orchestrator (spec §4.7, C7):
// it partitions the input among workers, drives them concurrently,
// aggregates their accounting, and hands off to the merger.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nostrbase/archiver/config"
	"github.com/nostrbase/archiver/dedupindex"
	"github.com/nostrbase/archiver/merge"
	"github.com/nostrbase/archiver/sink"
	"github.com/nostrbase/archiver/stats"
	"github.com/nostrbase/archiver/worker"
)

// indexFileName is the dedup index's on-disk name under OutputDir.
const indexFileName = "index.bolt"

// Run executes one full ingest: partition, parallel ingest, index
// finalize, merge, summary. It is the coordinator's sole entry point
// for the normal (non-recovery) path (spec §4.7).
func Run(ctx context.Context, settings config.Settings, logger *sink.Logger) (stats.Summary, error) {
	start := time.Now()
	runID := stats.NewRunID()

	if err := settings.Validate(); err != nil {
		return stats.Summary{}, err
	}
	if err := os.MkdirAll(settings.OutputDir, 0750); err != nil {
		return stats.Summary{}, fmt.Errorf("coordinator: create output dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(settings.OutputDir, "tmp"), 0750); err != nil {
		return stats.Summary{}, fmt.Errorf("coordinator: create staging dir: %w", err)
	}

	info, err := os.Stat(settings.InputPath)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("coordinator: stat input: %w", err)
	}
	totalBytes := info.Size()

	c := detectCodec(settings.InputPath)
	workers := settings.Workers
	if c != codecNone && workers != 1 {
		logger.Event(sink.LevelWarn, fmt.Sprintf("run %s: compressed input %s cannot be byte-range partitioned, collapsing %d workers to 1", runID, settings.InputPath, workers))
		workers = 1
	}

	idx, err := dedupindex.Open(filepath.Join(settings.OutputDir, indexFileName), settings.IndexMode)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("coordinator: open dedup index: %w", err)
	}
	indexer := dedupindex.NewIndexer(idx, int64(settings.BatchSize)*int64(workers)*4)

	global := stats.NewGlobal()

	// A plain errgroup.Group (not WithContext) only collects goroutine
	// lifecycle and the first returned error; it does not cancel peers,
	// which is what spec §4.7's "per-worker failure isolation" requires.
	var g errgroup.Group

	for k := 0; k < workers; k++ {
		k := k
		var start, end int64
		if c != codecNone {
			start, end = 0, worker.EndOfStream
		} else {
			start = totalBytes * int64(k) / int64(workers)
			end = totalBytes * int64(k+1) / int64(workers)
		}

		g.Go(func() error {
			var source interface {
				io.ReadSeeker
				io.Closer
			}
			if c != codecNone {
				s, err := openDecompressed(settings.InputPath, c)
				if err != nil {
					return err
				}
				source = s
			} else {
				f, err := os.Open(settings.InputPath)
				if err != nil {
					return fmt.Errorf("coordinator: worker %d open input: %w", k, err)
				}
				source = f
			}
			defer source.Close()

			res := worker.Run(ctx, worker.Config{
				ID:       k,
				Start:    start,
				End:      end,
				Settings: settings,
				Logger:   logger,
			}, source, indexer)

			global.Merge(res.Counters)

			// A worker's storage_error is reported but never escalated into
			// group cancellation: peers keep making progress on their own
			// byte range (spec §4.7).
			if res.Err != nil {
				logger.Event(sink.LevelError, fmt.Sprintf("run %s: worker %d exited early: %v", runID, k, res.Err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats.Summary{}, fmt.Errorf("coordinator: worker group: %w", err)
	}

	indexer.Close()
	if settings.IndexMode == config.IndexBulkBuild {
		if err := idx.FinalizeBulk(); err != nil {
			idx.Close()
			return stats.Summary{}, fmt.Errorf("coordinator: finalize bulk index: %w", err)
		}
	}
	if err := idx.Close(); err != nil {
		return stats.Summary{}, fmt.Errorf("coordinator: close index: %w", err)
	}

	// merge.Run already applies spec §7's per-day propagation policy: a
	// day that fails to merge does not abort the others, and only
	// surfaces here as a top-level error when every day failed.
	mergeResult, err := merge.Run(settings.OutputDir, settings.CleanupShards, settings.CompressionLevel)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("coordinator: merge: %w", err)
	}
	for day, derr := range mergeResult.Failed {
		logger.Event(sink.LevelError, fmt.Sprintf("run %s: day %s failed to merge, shards left in place: %v", runID, day, derr))
	}
	for _, n := range mergeResult.Duplicates {
		if n > 0 {
			global.AddCategory(stats.DuplicateAtMerge, n)
		}
	}

	summary := stats.Build(runID, time.Since(start), global, mergeResult.TotalDuplicates)
	logger.Event(sink.LevelInfo, summary.Text())
	if err := summary.WriteJSON(filepath.Join(settings.OutputDir, "run-summary.json")); err != nil {
		logger.Event(sink.LevelWarn, fmt.Sprintf("run %s: failed to write run-summary.json: %v", runID, err))
	}

	return summary, nil
}
