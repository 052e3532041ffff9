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

package dayio

import (
	"fmt"

	"github.com/nostrbase/archiver/record"
)

// Router owns every per-day sink opened by one worker. There is no
// ordering guarantee across days seen by a worker (spec §4.4, "Edge
// case: out-of-order days"); sinks are opened lazily and only for days
// that actually receive a record (spec §4.4, "Edge case: empty shard").
type Router struct {
	outDir           string
	worker           int
	compressionLevel int
	batchSize        int
	sinks            map[string]*Sink
}

func NewRouter(outDir string, worker, compressionLevel, batchSize int) *Router {
	return &Router{
		outDir:           outDir,
		worker:           worker,
		compressionLevel: compressionLevel,
		batchSize:        batchSize,
		sinks:            make(map[string]*Sink),
	}
}

// Route writes r to the sink owned by its derived day, opening the sink
// on first use.
func (rt *Router) Route(r *record.Record) error {
	day := r.DayString()
	s, ok := rt.sinks[day]
	if !ok {
		path := StagingPath(rt.outDir, rt.worker, day)
		var err error
		s, err = OpenSink(path, rt.compressionLevel, rt.batchSize)
		if err != nil {
			return fmt.Errorf("dayio: open shard for day %s: %w", day, err)
		}
		rt.sinks[day] = s
	}
	return s.Write(r)
}

// CloseAll closes every open sink, continuing past individual failures
// so one bad shard does not prevent flushing the rest (spec §4.6: "close
// its remaining sinks best-effort"). It returns the first error seen, if
// any.
func (rt *Router) CloseAll() error {
	var firstErr error
	for day, s := range rt.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dayio: closing shard for day %s: %w", day, err)
		}
	}
	return firstErr
}

// Counts returns the number of records routed per day, for worker-local
// accounting.
func (rt *Router) Counts() map[string]int64 {
	out := make(map[string]int64, len(rt.sinks))
	for day, s := range rt.sinks {
		out[day] = s.Count()
	}
	return out
}
