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

// Package merge implements the per-day shard merger (spec §4.8, C8): it
// combines every worker's staged shard for a day, plus any pre-existing
// committed file for that day, into one deduplicated, atomically-promoted
// output file.
package merge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/nostrbase/archiver/dayio"
	"github.com/nostrbase/archiver/record"
)

var shardPattern = regexp.MustCompile(`^worker_(\d+)_(\d{4}_\d{2}_\d{2})\.bin\.gz\.part$`)

// Result reports what the merge did, per day and in aggregate, for the
// end-of-run summary (spec §7, "duplicates_at_merge").
type Result struct {
	Duplicates      map[string]int64
	TotalDuplicates int64
	DaysMerged      []string
	Failed          map[string]error
}

type shard struct {
	workerID int
	path     string
}

// Run discovers every staged shard under <outDir>/tmp, merges each day
// that has at least one new shard against that day's existing committed
// file (if any), and atomically promotes the result. It is safe to call
// repeatedly against the same outDir: a day with no new shards is left
// untouched, and a day whose merge is interrupted before the rename
// leaves the previous committed file (if any) intact (spec §4.8,
// "Idempotence").
//
// A day whose merge fails does not stop the others: per spec §7's
// propagation policy, an error merging one day aborts only that day,
// and the run as a whole only fails if no day merged successfully.
// Failed days are reported in Result.Failed and their shards are left
// in place (not cleaned up) so a later retry can pick them up.
func Run(outDir string, cleanup bool, compressionLevel int) (Result, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Duplicates: map[string]int64{}}, nil
		}
		return Result{}, fmt.Errorf("merge: read staging dir: %w", err)
	}

	byDay := make(map[string][]shard)
	for _, e := range entries {
		m := shardPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		day := m[2]
		byDay[day] = append(byDay[day], shard{workerID: id, path: filepath.Join(tmpDir, e.Name())})
	}

	result := Result{Duplicates: make(map[string]int64)}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		shards := byDay[day]
		sort.Slice(shards, func(i, j int) bool { return shards[i].workerID < shards[j].workerID })

		dupCount, err := mergeDay(outDir, day, shards, compressionLevel)
		if err != nil {
			if result.Failed == nil {
				result.Failed = make(map[string]error)
			}
			result.Failed[day] = fmt.Errorf("merge: day %s: %w", day, err)
			continue
		}
		result.Duplicates[day] = dupCount
		result.TotalDuplicates += dupCount
		result.DaysMerged = append(result.DaysMerged, day)

		if cleanup {
			for _, s := range shards {
				os.Remove(s.path)
			}
		}
	}

	if len(days) > 0 && len(result.DaysMerged) == 0 {
		return result, fmt.Errorf("merge: all %d day(s) failed to merge: %v", len(days), result.Failed)
	}
	return result, nil
}

// mergeDay streams every contributing source for day through an
// in-memory seen-id set, preserving first-seen order (existing committed
// file first, then shards in worker-id order), and writes the result to
// a staging file before the atomic rename.
func mergeDay(outDir, day string, shards []shard, compressionLevel int) (int64, error) {
	finalPath := dayio.FinalPath(outDir, day)
	stagingPath := dayio.MergeStagingPath(outDir, day)

	if err := os.MkdirAll(filepath.Dir(stagingPath), 0750); err != nil {
		return 0, err
	}
	out, err := os.Create(stagingPath)
	if err != nil {
		return 0, err
	}
	outBuf := bufio.NewWriterSize(out, 256*1024)
	gz, err := gzip.NewWriterLevel(outBuf, compressionLevel)
	if err != nil {
		out.Close()
		return 0, err
	}

	seen := make(map[[32]byte]struct{})
	var dupCount int64

	sources := make([]string, 0, len(shards)+1)
	if _, err := os.Stat(finalPath); err == nil {
		sources = append(sources, finalPath)
	}
	for _, s := range shards {
		sources = append(sources, s.path)
	}

	for _, path := range sources {
		n, derr := copyDeduped(gz, path, seen)
		dupCount += n
		if derr != nil {
			gz.Close()
			out.Close()
			return dupCount, fmt.Errorf("reading %s: %w", path, derr)
		}
	}

	if err := gz.Close(); err != nil {
		out.Close()
		return dupCount, err
	}
	if err := outBuf.Flush(); err != nil {
		out.Close()
		return dupCount, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return dupCount, err
	}
	if err := out.Close(); err != nil {
		return dupCount, err
	}

	if err := os.Rename(stagingPath, finalPath); err != nil {
		return dupCount, fmt.Errorf("atomic rename %s -> %s: %w", stagingPath, finalPath, err)
	}
	return dupCount, nil
}

// copyDeduped reads every framed record from the gzip-compressed file at
// path and re-emits the ones not already present in seen, updating seen
// in place.
func copyDeduped(w io.Writer, path string, seen map[[32]byte]struct{}) (duplicates int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	fr := record.NewFrameReader(gz)
	for {
		rec, rerr := fr.Next()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return duplicates, rerr
		}
		if _, ok := seen[rec.ID]; ok {
			duplicates++
			continue
		}
		seen[rec.ID] = struct{}{}
		if err := record.WriteFramed(w, rec); err != nil {
			return duplicates, err
		}
	}
	return duplicates, nil
}
