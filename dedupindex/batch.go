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
	"context"

	"golang.org/x/sync/semaphore"
)

// Indexer funnels every worker's batched inserts through a single
// goroutine (spec §9: "a single owning thread fed by bounded queues"),
// bounding outstanding work with a weighted semaphore so a slow index
// write backs off producers instead of growing memory without limit
// (spec §5, "Backpressure": "the queue is bounded and blocks producers
// when full").
type Indexer struct {
	idx *Index
	sem *semaphore.Weighted
	jobs chan job
	done chan struct{}
}

type job struct {
	batch  []Header
	result chan indexerResult
}

type indexerResult struct {
	results []InsertManyResult
	err     error
}

// NewIndexer starts the indexer goroutine. queueDepth bounds the total
// number of queued-but-not-yet-committed records across all in-flight
// batches.
func NewIndexer(idx *Index, queueDepth int64) *Indexer {
	ix := &Indexer{
		idx:  idx,
		sem:  semaphore.NewWeighted(queueDepth),
		jobs: make(chan job),
		done: make(chan struct{}),
	}
	go ix.run()
	return ix
}

func (ix *Indexer) run() {
	defer close(ix.done)
	for j := range ix.jobs {
		results, err := ix.idx.InsertManyDetailed(j.batch)
		ix.sem.Release(int64(len(j.batch)))
		j.result <- indexerResult{results: results, err: err}
	}
}

// Submit is synchronous from the caller's perspective (spec §4.6: "the
// worker accumulates N index entries ... and submits insert_many"; "the
// interface exposed to workers is insert_many and is synchronous from
// the worker's perspective"), even though internally the batch is
// handed off to the dedicated indexer goroutine.
func (ix *Indexer) Submit(ctx context.Context, batch []Header) ([]InsertManyResult, error) {
	if err := ix.sem.Acquire(ctx, int64(len(batch))); err != nil {
		return nil, err
	}
	resultCh := make(chan indexerResult, 1)
	select {
	case ix.jobs <- job{batch: batch, result: resultCh}:
	case <-ctx.Done():
		ix.sem.Release(int64(len(batch)))
		return nil, ctx.Err()
	}
	res := <-resultCh
	return res.results, res.err
}

// Close stops accepting new batches and waits for the goroutine to
// drain.
func (ix *Indexer) Close() {
	close(ix.jobs)
	<-ix.done
}
