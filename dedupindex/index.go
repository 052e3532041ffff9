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

// Package dedupindex implements the deduplicating content-addressed
// index (spec §4.5, C5): a persistent key->location map with a tuned
// bulk-load mode and a steady-state query mode, backed by bbolt the way
// the retrieved pack's own embedded-KV users (andreyvit-edb,
// AKJUS-bsc-erigon, and others) reach for it rather than hand-rolling a
// B-tree file format.
package dedupindex

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/nostrbase/archiver/config"
)

var (
	bucketRecords    = []byte("records")
	bucketByKind     = []byte("by_kind")
	bucketByAuthor   = []byte("by_author")
	bucketByCreated  = []byte("by_created_at")
)

// Header is the stored metadata for one indexed id (spec §3, "Index
// record").
type Header struct {
	ID        [32]byte
	Kind      uint16
	Author    [32]byte
	CreatedAt int64
	FilePath  string
}

// Index is the process-wide dedup index. It is opened once per run in
// either mode and must be closed (and, for bulk_build, finalized) at the
// end of the run (spec §9, "Process-wide index state").
type Index struct {
	db   *bbolt.DB
	mode config.IndexMode

	mu sync.Mutex // single logical writer, spec §4.5 "Concurrency"

	bulk *bulkState // non-nil only while mode == bulk_build

	stats Stats
}

// Stats mirrors spec §4.5's stats() operation, enriched with the active
// mode. Count, Inserted and Duplicate cover only this process's inserts;
// no per-bucket counts are reported.
type Stats struct {
	Mode      config.IndexMode
	Count     int64
	Inserted  int64
	Duplicate int64
}

// Open opens (creating if absent) the bbolt file at path in the given
// mode.
func Open(path string, mode config.IndexMode) (*Index, error) {
	opts := &bbolt.Options{Timeout: 5 * time.Second}
	if mode == config.IndexBulkBuild {
		// Relaxed durability for initial construction (spec §4.5,
		// "Modes": "crash during build requires rebuild from source").
		opts.NoSync = true
		opts.NoFreelistSync = true
	}
	db, err := bbolt.Open(path, 0644, opts)
	if err != nil {
		return nil, fmt.Errorf("dedupindex: open %s: %w", path, err)
	}
	db.NoSync = opts.NoSync

	idx := &Index{db: db, mode: mode}
	if err := idx.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecords, bucketByKind, bucketByAuthor, bucketByCreated} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("dedupindex: create buckets: %w", err)
	}

	if mode == config.IndexBulkBuild {
		idx.bulk = newBulkState()
	}
	idx.stats.Mode = mode
	return idx, nil
}

// Mode reports the index's current operating mode.
func (idx *Index) Mode() config.IndexMode { return idx.mode }

// Contains reports whether id is already indexed.
func (idx *Index) Contains(id [32]byte) (bool, error) {
	var found bool
	err := idx.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRecords).Get(id[:])
		found = v != nil
		return nil
	})
	return found, err
}

// Insert is the synchronous single-record form described in spec §4.6
// as option (i) for satisfying the ordering rule.
func (idx *Index) Insert(h Header) (inserted bool, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.insertLocked(h)
}

func (idx *Index) insertLocked(h Header) (bool, error) {
	already := false
	err := idx.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b.Get(h.ID[:]) != nil {
			already = true
			return nil
		}
		if err := b.Put(h.ID[:], encodeHeader(h)); err != nil {
			return err
		}
		return idx.writeSecondary(tx, h)
	})
	if err != nil {
		return false, err
	}
	if already {
		idx.stats.Duplicate++
		return false, nil
	}
	idx.stats.Count++
	idx.stats.Inserted++
	return true, nil
}

// writeSecondary updates (or, in bulk_build mode, defers) the secondary
// indices for a newly-inserted record.
func (idx *Index) writeSecondary(tx *bbolt.Tx, h Header) error {
	if idx.mode == config.IndexBulkBuild {
		// Deferred secondary-index maintenance (spec §4.5, "Modes"):
		// buffered in an in-memory ordered structure and flushed in one
		// pass by FinalizeBulk.
		idx.bulk.record(h)
		return nil
	}
	return putSecondary(tx, h)
}

func putSecondary(tx *bbolt.Tx, h Header) error {
	if err := tx.Bucket(bucketByKind).Put(kindKey(h.Kind, h.ID), nil); err != nil {
		return err
	}
	if err := tx.Bucket(bucketByAuthor).Put(authorKey(h.Author, h.ID), nil); err != nil {
		return err
	}
	if err := tx.Bucket(bucketByCreated).Put(createdAtKey(h.CreatedAt, h.ID), nil); err != nil {
		return err
	}
	return nil
}

// InsertMany is the bulk path exposed to workers (spec §4.5). It relies
// on the bucket's key uniqueness to absorb duplicates idempotently,
// including duplicates within the same batch.
func (idx *Index) InsertMany(batch []Header) (insertedCount, duplicateCount int, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	seenInBatch := make(map[[32]byte]bool, len(batch))
	err = idx.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, h := range batch {
			if seenInBatch[h.ID] {
				duplicateCount++
				continue
			}
			seenInBatch[h.ID] = true
			if b.Get(h.ID[:]) != nil {
				duplicateCount++
				continue
			}
			if err := b.Put(h.ID[:], encodeHeader(h)); err != nil {
				return err
			}
			if err := idx.writeSecondary(tx, h); err != nil {
				return err
			}
			insertedCount++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	idx.stats.Count += int64(insertedCount)
	idx.stats.Inserted += int64(insertedCount)
	idx.stats.Duplicate += int64(duplicateCount)
	return insertedCount, duplicateCount, nil
}

// InsertManyResult reports the fate of every id in a submitted batch, in
// submission order, for callers following the staged-bytes ordering
// strategy of spec §4.6 option (ii).
type InsertManyResult struct {
	ID       [32]byte
	Inserted bool
}

// InsertManyDetailed is InsertMany but reports a per-id outcome instead
// of aggregate counts, which is what the worker's staged-bytes flush
// path (spec §4.6) needs to know which encoded records to keep.
func (idx *Index) InsertManyDetailed(batch []Header) ([]InsertManyResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	results := make([]InsertManyResult, len(batch))
	seenInBatch := make(map[[32]byte]bool, len(batch))
	var inserted, duplicate int64
	err := idx.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for i, h := range batch {
			results[i].ID = h.ID
			if seenInBatch[h.ID] {
				duplicate++
				continue
			}
			if b.Get(h.ID[:]) != nil {
				seenInBatch[h.ID] = true
				duplicate++
				continue
			}
			seenInBatch[h.ID] = true
			if err := b.Put(h.ID[:], encodeHeader(h)); err != nil {
				return err
			}
			if err := idx.writeSecondary(tx, h); err != nil {
				return err
			}
			results[i].Inserted = true
			inserted++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	idx.stats.Count += inserted
	idx.stats.Inserted += inserted
	idx.stats.Duplicate += duplicate
	return results, nil
}

// FinalizeBulk exits bulk-load mode: it flushes the in-memory deferred
// secondary indices built during bulk_build, re-enables durable syncing,
// and refreshes the stats snapshot (spec §4.5: "finalize_bulk()").
func (idx *Index) FinalizeBulk() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.mode != config.IndexBulkBuild || idx.bulk == nil {
		return nil
	}

	if err := idx.bulk.flush(idx.db); err != nil {
		return fmt.Errorf("dedupindex: flush deferred secondary indices: %w", err)
	}

	idx.db.NoSync = false
	if err := idx.db.Sync(); err != nil {
		return fmt.Errorf("dedupindex: sync after finalize_bulk: %w", err)
	}
	idx.mode = config.IndexSteady
	idx.bulk = nil
	idx.stats.Mode = config.IndexSteady
	return nil
}

// Stats returns a snapshot of the index's counters (spec §4.5).
func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.stats
}

// Close closes the underlying store.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func kindKey(kind uint16, id [32]byte) []byte {
	k := make([]byte, 2+32)
	binary.BigEndian.PutUint16(k[:2], kind)
	copy(k[2:], id[:])
	return k
}

func authorKey(author, id [32]byte) []byte {
	k := make([]byte, 32+32)
	copy(k[:32], author[:])
	copy(k[32:], id[:])
	return k
}

func createdAtKey(createdAt int64, id [32]byte) []byte {
	k := make([]byte, 8+32)
	// Flip the sign bit so big-endian byte order matches signed integer
	// order, which keeps bbolt's native ordered cursor usable for range
	// scans over negative and positive timestamps alike.
	binary.BigEndian.PutUint64(k[:8], uint64(createdAt)^(1<<63))
	copy(k[8:], id[:])
	return k
}

func encodeHeader(h Header) []byte {
	path := []byte(h.FilePath)
	buf := make([]byte, 32+2+32+8+2+len(path))
	off := 0
	copy(buf[off:], h.ID[:])
	off += 32
	binary.BigEndian.PutUint16(buf[off:], h.Kind)
	off += 2
	copy(buf[off:], h.Author[:])
	off += 32
	binary.BigEndian.PutUint64(buf[off:], uint64(h.CreatedAt))
	off += 8
	binary.BigEndian.PutUint16(buf[off:], uint16(len(path)))
	off += 2
	copy(buf[off:], path)
	return buf
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) < 32+2+32+8+2 {
		return Header{}, fmt.Errorf("dedupindex: truncated header record")
	}
	var h Header
	off := 0
	copy(h.ID[:], b[off:off+32])
	off += 32
	h.Kind = binary.BigEndian.Uint16(b[off:])
	off += 2
	copy(h.Author[:], b[off:off+32])
	off += 32
	h.CreatedAt = int64(binary.BigEndian.Uint64(b[off:]))
	off += 8
	pathLen := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	if len(b) < off+pathLen {
		return Header{}, fmt.Errorf("dedupindex: truncated file_path")
	}
	h.FilePath = string(b[off : off+pathLen])
	return h, nil
}
