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

package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Summary is the end-of-run report (spec §7, "User-visible behavior").
type Summary struct {
	RunID      string           `json:"run_id"`
	WallTime   time.Duration    `json:"wall_time_ns"`
	LinesRead  int64            `json:"lines_read"`
	Kept       int64            `json:"kept"`
	Dropped    map[string]int64 `json:"dropped_by_category"`
	PerDay     map[string]int64 `json:"per_day_counts"`
	Duplicates int64            `json:"duplicates_at_ingest"`
	MergeDups  int64            `json:"duplicates_at_merge"`
}

// NewRunID mirrors the teacher's own use of uuid.UUID as a plain value
// type (storage/fast_uuid.go) to tag a run for correlation across
// run.log and run-summary.json. Staging filenames do not carry it.
func NewRunID() string {
	return uuid.New().String()
}

// Build assembles a Summary from a Global snapshot.
func Build(runID string, wall time.Duration, g *Global, mergeDups int64) Summary {
	snap := g.Snapshot()
	dropped := make(map[string]int64)
	var kept int64
	var dupAtIngest int64
	for cat, n := range snap.ByCategory {
		switch cat {
		case Kept:
			kept = n
		case Duplicate:
			dupAtIngest = n
		default:
			dropped[string(cat)] = n
		}
	}
	return Summary{
		RunID:      runID,
		WallTime:   wall,
		LinesRead:  snap.LinesRead,
		Kept:       kept,
		Dropped:    dropped,
		PerDay:     snap.PerDay,
		Duplicates: dupAtIngest,
		MergeDups:  mergeDups,
	}
}

// Text renders the human summary the way the teacher composes multi-line
// diagnostics: a strings.Builder assembled field by field (cf.
// storage/shard.go's rebuild() logging), not a struct dump.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s finished in %s\n", s.RunID, s.WallTime)
	fmt.Fprintf(&b, "  lines read:      %d\n", s.LinesRead)
	fmt.Fprintf(&b, "  records kept:    %d\n", s.Kept)
	fmt.Fprintf(&b, "  duplicates:      %d at ingest, %d at merge\n", s.Duplicates, s.MergeDups)

	if len(s.Dropped) > 0 {
		b.WriteString("  dropped by category:\n")
		cats := make([]string, 0, len(s.Dropped))
		for c := range s.Dropped {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Fprintf(&b, "    %-24s %d\n", c, s.Dropped[c])
		}
	}

	if len(s.PerDay) > 0 {
		b.WriteString("  per-day counts:\n")
		days := make([]string, 0, len(s.PerDay))
		for d := range s.PerDay {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, d := range days {
			fmt.Fprintf(&b, "    %s %d\n", d, s.PerDay[d])
		}
	}

	return b.String()
}

// WriteJSON writes the machine-readable counterpart to the text summary
// (SPEC_FULL.md §12, "run-summary.json").
func (s Summary) WriteJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
