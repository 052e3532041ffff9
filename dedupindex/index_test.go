package dedupindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nostrbase/archiver/config"
)

func header(id byte, createdAt int64) Header {
	var h Header
	h.ID[0] = id
	h.Kind = 1
	h.CreatedAt = createdAt
	h.FilePath = "2026_08_01.bin.gz"
	return h
}

func TestInsertRejectsDuplicate(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.bolt"), config.IndexSteady)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	h := header(1, 1700000000)
	inserted, err := idx.Insert(h)
	if err != nil || !inserted {
		t.Fatalf("first Insert = (%v, %v), want (true, nil)", inserted, err)
	}
	inserted, err = idx.Insert(h)
	if err != nil || inserted {
		t.Fatalf("second Insert = (%v, %v), want (false, nil)", inserted, err)
	}

	found, err := idx.Contains(h.ID)
	if err != nil || !found {
		t.Fatalf("Contains = (%v, %v), want (true, nil)", found, err)
	}
}

func TestInsertManyDetailedDedupsWithinBatch(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.bolt"), config.IndexSteady)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	batch := []Header{header(1, 1700000000), header(2, 1700000000), header(1, 1700000000)}
	results, err := idx.InsertManyDetailed(batch)
	if err != nil {
		t.Fatalf("InsertManyDetailed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Inserted || !results[1].Inserted || results[2].Inserted {
		t.Fatalf("unexpected insert pattern: %+v", results)
	}
}

func TestBulkBuildDefersSecondaryThenFinalizes(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.bolt"), config.IndexBulkBuild)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	for i := byte(1); i <= 5; i++ {
		if _, err := idx.Insert(header(i, 1700000000+int64(i))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	ch, err := idx.QueryByKind(1)
	if err != nil {
		t.Fatalf("QueryByKind: %v", err)
	}
	var pending int
	for range ch {
		pending++
	}
	if pending != 5 {
		t.Fatalf("expected 5 pending results served from bulk state, got %d", pending)
	}

	if err := idx.FinalizeBulk(); err != nil {
		t.Fatalf("FinalizeBulk: %v", err)
	}
	if idx.Mode() != config.IndexSteady {
		t.Fatalf("Mode() after FinalizeBulk = %s, want steady", idx.Mode())
	}

	ch, err = idx.QueryByKind(1)
	if err != nil {
		t.Fatalf("QueryByKind after finalize: %v", err)
	}
	var flushed int
	for range ch {
		flushed++
	}
	if flushed != 5 {
		t.Fatalf("expected 5 results after flush, got %d", flushed)
	}
}

func TestIndexerSubmitReportsPerIDOutcome(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.bolt"), config.IndexSteady)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	ix := NewIndexer(idx, 64)
	defer ix.Close()

	batch := []Header{header(1, 1700000000), header(2, 1700000000)}
	results, err := ix.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !results[0].Inserted || !results[1].Inserted {
		t.Fatalf("expected both inserted on first submit: %+v", results)
	}

	results, err = ix.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("Submit (again): %v", err)
	}
	if results[0].Inserted || results[1].Inserted {
		t.Fatalf("expected both duplicate on resubmit: %+v", results)
	}
}
