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
	"go.etcd.io/bbolt"

	"github.com/nostrbase/archiver/config"
)

// QueryByKind streams every indexed header with the given kind. Reads
// are concurrent with writes in steady mode (spec §5), since bbolt's
// read transactions are MVCC snapshots independent of the writer.
func (idx *Index) QueryByKind(kind uint16) (<-chan Header, error) {
	out := make(chan Header, 64)
	go func() {
		defer close(out)
		idx.db.View(func(tx *bbolt.Tx) error {
			c := tx.Bucket(bucketByKind).Cursor()
			prefix := make([]byte, 2)
			prefix[0] = byte(kind >> 8)
			prefix[1] = byte(kind)
			for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
				var id [32]byte
				copy(id[:], k[2:])
				if h, ok := idx.lookup(tx, id); ok {
					out <- h
				}
			}
			return nil
		})
		if idx.mode == config.IndexBulkBuild && idx.bulk != nil {
			idx.bulk.mu.Lock()
			pending := append([]Header(nil), idx.bulk.byKind[kind]...)
			idx.bulk.mu.Unlock()
			for _, h := range pending {
				out <- h
			}
		}
	}()
	return out, nil
}

// QueryByAuthor streams every indexed header authored by the given key.
func (idx *Index) QueryByAuthor(author [32]byte) (<-chan Header, error) {
	out := make(chan Header, 64)
	go func() {
		defer close(out)
		idx.db.View(func(tx *bbolt.Tx) error {
			c := tx.Bucket(bucketByAuthor).Cursor()
			for k, _ := c.Seek(author[:]); k != nil && hasPrefix(k, author[:]); k, _ = c.Next() {
				var id [32]byte
				copy(id[:], k[32:])
				if h, ok := idx.lookup(tx, id); ok {
					out <- h
				}
			}
			return nil
		})
		if idx.mode == config.IndexBulkBuild && idx.bulk != nil {
			idx.bulk.mu.Lock()
			pending := append([]Header(nil), idx.bulk.byAuthor[author]...)
			idx.bulk.mu.Unlock()
			for _, h := range pending {
				out <- h
			}
		}
	}()
	return out, nil
}

// QueryByDateRange streams every indexed header whose CreatedAt falls in
// [lo, hi] inclusive, in ascending order.
func (idx *Index) QueryByDateRange(lo, hi int64) (<-chan Header, error) {
	out := make(chan Header, 64)
	go func() {
		defer close(out)
		loKey := createdAtKey(lo, [32]byte{})
		hiKey := createdAtKey(hi, [32]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
		idx.db.View(func(tx *bbolt.Tx) error {
			c := tx.Bucket(bucketByCreated).Cursor()
			for k, _ := c.Seek(loKey); k != nil && bytesLE(k, hiKey); k, _ = c.Next() {
				var id [32]byte
				copy(id[:], k[8:])
				if h, ok := idx.lookup(tx, id); ok {
					out <- h
				}
			}
			return nil
		})
		if idx.mode == config.IndexBulkBuild && idx.bulk != nil {
			for _, h := range idx.bulk.pendingByDateRange(lo, hi) {
				out <- h
			}
		}
	}()
	return out, nil
}

func (idx *Index) lookup(tx *bbolt.Tx, id [32]byte) (Header, bool) {
	v := tx.Bucket(bucketRecords).Get(id[:])
	if v == nil {
		return Header{}, false
	}
	h, err := decodeHeader(v)
	if err != nil {
		return Header{}, false
	}
	return h, true
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func bytesLE(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) <= len(b)
}
