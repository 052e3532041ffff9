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

// Package dayio implements the day router and per-day buffered writer
// (spec §4.4, C4): one framed, gzip-compressed sink per (worker, day)
// pair, staged under <out>/tmp until the merger (C8) promotes it.
package dayio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/nostrbase/archiver/record"
)

// StagingPath returns the per-worker-per-day shard path (spec §6).
func StagingPath(outDir string, worker int, day string) string {
	return filepath.Join(outDir, "tmp", fmt.Sprintf("worker_%d_%s.bin.gz.part", worker, day))
}

// FinalPath returns the committed path for a day file.
func FinalPath(outDir string, day string) string {
	return filepath.Join(outDir, day+".bin.gz")
}

// MergeStagingPath returns the merger's own staging path for a day
// (spec §4.8, step 4).
func MergeStagingPath(outDir string, day string) string {
	return filepath.Join(outDir, "tmp", day+".bin.gz.tmp")
}

// Sink is a single open per-day shard. It is exclusive to one worker for
// its lifetime (spec §3, "Ownership and lifecycle").
type Sink struct {
	path       string
	file       *os.File
	buf        *bufio.Writer
	gz         *gzip.Writer
	batchSize  int
	sinceFlush int
	count      int64
}

// OpenSink creates (or truncates) the staging file at path and wraps it
// in a batching gzip sink at the given compression level.
func OpenSink(path string, compressionLevel, batchSize int) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f, 256*1024)
	gz, err := gzip.NewWriterLevel(buf, compressionLevel)
	if err != nil {
		f.Close()
		return nil, err
	}
	if batchSize < 1 {
		batchSize = 1000
	}
	return &Sink{path: path, file: f, buf: buf, gz: gz, batchSize: batchSize}, nil
}

// Write frames and writes one record. Every batchSize records the
// compressor is flushed (not closed) so a reader tailing the partial
// file can make progress, and so a crash loses at most one batch's worth
// of buffering rather than the whole shard.
func (s *Sink) Write(r *record.Record) error {
	if err := record.WriteFramed(s.gz, r); err != nil {
		return fmt.Errorf("dayio: write to %s: %w", s.path, err)
	}
	s.count++
	s.sinceFlush++
	if s.sinceFlush >= s.batchSize {
		if err := s.gz.Flush(); err != nil {
			return fmt.Errorf("dayio: flush %s: %w", s.path, err)
		}
		if err := s.buf.Flush(); err != nil {
			return fmt.Errorf("dayio: flush %s: %w", s.path, err)
		}
		s.sinceFlush = 0
	}
	return nil
}

// Count returns the number of records written so far.
func (s *Sink) Count() int64 { return s.count }

// Path returns the shard's staging path.
func (s *Sink) Path() string { return s.path }

// Close finalizes the gzip stream, flushes the buffered writer, fsyncs
// and closes the file. The .part suffix is left in place so the merger
// can find it (spec §4.4: "On worker close, each sink is flushed, the
// compressor is finalized, and the file is fsynced").
func (s *Sink) Close() error {
	if err := s.gz.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("dayio: close gzip stream %s: %w", s.path, err)
	}
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("dayio: flush %s: %w", s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("dayio: fsync %s: %w", s.path, err)
	}
	return s.file.Close()
}
