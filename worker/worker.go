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

// Package worker implements the ingest worker (spec §4.6, C6): one
// goroutine owning a byte range of the input, driving every record
// through prefilter, codec, validation, dedup, and day-routing.
package worker

import (
	"context"
	"fmt"
	"io"

	"github.com/nostrbase/archiver/config"
	"github.com/nostrbase/archiver/dayio"
	"github.com/nostrbase/archiver/dedupindex"
	"github.com/nostrbase/archiver/prefilter"
	"github.com/nostrbase/archiver/record"
	"github.com/nostrbase/archiver/sink"
	"github.com/nostrbase/archiver/stats"
	"github.com/nostrbase/archiver/validate"
)

// Config is everything one worker needs to own its slice of the input
// independent of every other worker (spec §4.6: "a worker owns a
// contiguous byte range of the input and nothing else").
type Config struct {
	ID    int
	Start int64
	End   int64

	Settings config.Settings
	Logger   *sink.Logger
}

// Result is what a worker reports back to the coordinator on exit.
type Result struct {
	Counters *stats.Counters
	DayCounts map[string]int64
	Err       error
}

// pending is one line that has survived prefilter, parse, and validate,
// staged for submission to the index (spec §4.6 option ii, "stage the
// encoded bytes ... and write them only for ids the batch reports as
// newly inserted").
type pending struct {
	rec    *record.Record
	header dedupindex.Header
}

// Run drives source from cfg's byte range through the full
// per-record pipeline, routing kept records into a fresh Router and
// submitting dedup decisions through indexer in Settings.BatchSize
// batches. source must support seeking to cfg's start (an *os.File for
// uncompressed input, or a sequential-only wrapper when cfg.ID==0 and
// cfg.End==EndOfStream for decompressed input, see DESIGN.md
// "Open Question decisions").
func Run(ctx context.Context, cfg Config, source io.ReadSeeker, indexer *dedupindex.Indexer) Result {
	counters := stats.NewCounters()
	router := dayio.NewRouter(cfg.Settings.OutputDir, cfg.ID, cfg.Settings.CompressionLevel, cfg.Settings.BatchSize)
	seen := newRecentSeen(cfg.Settings.RecentSeenCap)

	policy := validate.Policy{
		CheckHexShape:  true,
		CheckKindRange: true,
		CheckTagShape:  true,
		CheckID:        cfg.Settings.ValidateID,
		CheckSig:       cfg.Settings.ValidateSig,
	}

	ls, err := OpenLineSource(source, cfg.ID, cfg.Start, cfg.End)
	if err != nil {
		return Result{Counters: counters, Err: fmt.Errorf("worker %d: open input: %w", cfg.ID, err)}
	}

	var batch []pending
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		headers := make([]dedupindex.Header, len(batch))
		for i, p := range batch {
			headers[i] = p.header
		}
		results, err := indexer.Submit(ctx, headers)
		if err != nil {
			return fmt.Errorf("worker %d: submit batch to index: %w", cfg.ID, err)
		}
		for i, res := range results {
			if !res.Inserted {
				counters.Add(stats.Duplicate, 1)
				continue
			}
			p := batch[i]
			if err := router.Route(p.rec); err != nil {
				return fmt.Errorf("worker %d: route record to day sink: %w", cfg.ID, err)
			}
			counters.Add(stats.Kept, 1)
			counters.AddDay(p.rec.DayString(), 1)
		}
		batch = batch[:0]
		return nil
	}

	fail := func(err error) Result {
		counters.Add(stats.StorageError, 1)
		if cfg.Logger != nil {
			cfg.Logger.Event(sink.LevelError, fmt.Sprintf("worker %d: %v", cfg.ID, err))
		}
		router.CloseAll()
		return Result{Counters: counters, DayCounts: router.Counts(), Err: err}
	}

lines:
	for {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		default:
		}

		line, _, rerr := ls.Next()
		if rerr == io.EOF {
			break lines
		}
		if rerr != nil {
			return fail(fmt.Errorf("worker %d: read input: %w", cfg.ID, rerr))
		}

		counters.LinesRead++

		if int64(len(line)) > cfg.Settings.MaxLineBytes {
			counters.Add(stats.OversizeLine, 1)
			if cfg.Logger != nil {
				cfg.Logger.Reject(string(stats.OversizeLine), sink.LevelDebug, fmt.Sprintf("len=%d", len(line)))
			}
			continue
		}

		if cfg.Settings.Prefilter && !prefilter.Keep(line) {
			counters.Add(stats.KindOutOfRange, 1)
			continue
		}

		rec, perr := record.ParseJSON(line)
		if perr != nil {
			cat := stats.ParseError
			if pe, ok := perr.(*record.ParseError); ok && pe.InvalidTag {
				cat = stats.InvalidTagValue
			}
			counters.Add(cat, 1)
			if cfg.Logger != nil {
				cfg.Logger.Reject(string(cat), sink.LevelDebug, perr.Error())
			}
			continue
		}

		if verr := validate.Validate(rec, policy); verr != nil {
			ve := verr.(*validate.Error)
			for _, c := range ve.Categories {
				counters.Add(stats.Category(c), 1)
			}
			if cfg.Logger != nil {
				cfg.Logger.Reject(string(ve.Categories[0]), sink.LevelDebug, verr.Error())
			}
			continue
		}

		if seen.SeenBefore(rec.ID) {
			counters.Add(stats.Duplicate, 1)
			continue
		}

		batch = append(batch, pending{
			rec: rec,
			header: dedupindex.Header{
				ID:        rec.ID,
				Kind:      rec.Kind,
				Author:    rec.Author,
				CreatedAt: rec.CreatedAt,
				FilePath:  dayio.FinalPath(cfg.Settings.OutputDir, rec.DayString()),
			},
		})
		if len(batch) >= cfg.Settings.BatchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}

	if err := flush(); err != nil {
		return fail(err)
	}
	if err := router.CloseAll(); err != nil {
		return fail(err)
	}
	return Result{Counters: counters, DayCounts: router.Counts()}
}
