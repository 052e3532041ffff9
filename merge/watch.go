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

package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nostrbase/archiver/sink"
)

// WatchMergeOnly is the supplemented recovery mode (SPEC_FULL.md §12):
// it runs Run once up front to absorb whatever shards already exist,
// then watches <outDir>/tmp and re-runs the merge (debounced) whenever a
// file there is created or renamed, without requiring a full ingest run to be
// attached. This lets an operator recover a partially-merged run (a
// coordinator that died after workers closed their sinks but before
// merge completed) by pointing a bare merge-only process at the
// existing output directory.
func WatchMergeOnly(ctx context.Context, outDir string, cleanup bool, compressionLevel int, logger *sink.Logger) error {
	if _, err := Run(outDir, cleanup, compressionLevel); err != nil {
		return fmt.Errorf("merge: initial pass: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0750); err != nil {
		return fmt.Errorf("merge: create staging dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("merge: start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(tmpDir); err != nil {
		return fmt.Errorf("merge: watch %s: %w", tmpDir, err)
	}

	// Create/rename events tend to arrive in a burst (a worker opening
	// sinks for many days); debounce so one merge pass absorbs the whole
	// burst instead of thrashing per event.
	const debounce = 2 * time.Second
	var timer *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case trigger <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Event(sink.LevelWarn, fmt.Sprintf("merge watch: %v", werr))
			}

		case <-trigger:
			if _, err := Run(outDir, cleanup, compressionLevel); err != nil {
				if logger != nil {
					logger.Event(sink.LevelError, fmt.Sprintf("merge watch: merge pass failed: %v", err))
				}
			}
		}
	}
}
