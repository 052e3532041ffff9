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

package dedupindex

import (
	"sync"

	"github.com/google/btree"
	"go.etcd.io/bbolt"
)

// createdAtEntry is one node in the bulk-mode in-memory secondary index,
// ordered by (CreatedAt, ID) the same way the teacher orders its own
// delta index (storage/index.go's btree.BTreeG[indexPair]).
type createdAtEntry struct {
	Header
}

func (e createdAtEntry) Less(other btree.Item) bool {
	o := other.(createdAtEntry)
	if e.CreatedAt != o.CreatedAt {
		return e.CreatedAt < o.CreatedAt
	}
	return lessID(e.ID, o.ID)
}

func lessID(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// bulkState accumulates secondary-index entries in memory while the
// index is in bulk_build mode, deferring the bbolt writes that would
// otherwise compete with the sequential primary-key insert stream for
// disk seeks (spec §4.5, "Modes": "deferred secondary-index maintenance
// where possible").
type bulkState struct {
	mu       sync.Mutex
	byCreated *btree.BTree
	byKind    map[uint16][]Header
	byAuthor  map[[32]byte][]Header
}

func newBulkState() *bulkState {
	return &bulkState{
		byCreated: btree.New(32),
		byKind:    make(map[uint16][]Header),
		byAuthor:  make(map[[32]byte][]Header),
	}
}

func (b *bulkState) record(h Header) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byCreated.ReplaceOrInsert(createdAtEntry{h})
	b.byKind[h.Kind] = append(b.byKind[h.Kind], h)
	b.byAuthor[h.Author] = append(b.byAuthor[h.Author], h)
}

// flush writes every deferred entry into the real bbolt secondary
// buckets in one pass, in created_at order. It leaves the in-memory
// structure in place; FinalizeBulk drops it afterwards.
func (b *bulkState) flush(db *bbolt.DB) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return db.Update(func(tx *bbolt.Tx) error {
		var err error
		b.byCreated.Ascend(func(it btree.Item) bool {
			h := it.(createdAtEntry).Header
			if putErr := putSecondary(tx, h); putErr != nil {
				err = putErr
				return false
			}
			return true
		})
		return err
	})
}

// pendingByDateRange serves query_by_date_range while still in
// bulk_build mode, before FinalizeBulk has flushed the bbolt buckets.
func (b *bulkState) pendingByDateRange(lo, hi int64) []Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Header
	b.byCreated.AscendRange(
		createdAtEntry{Header{CreatedAt: lo}},
		createdAtEntry{Header{CreatedAt: hi + 1}},
		func(it btree.Item) bool {
			out = append(out, it.(createdAtEntry).Header)
			return true
		},
	)
	return out
}
