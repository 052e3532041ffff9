package dayio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRouterOpensOneSinkPerDay(t *testing.T) {
	outDir := t.TempDir()
	rt := NewRouter(outDir, 0, 6, 10)

	day1 := makeTestRecord(1700000000, "a") // 2023-11-14
	day2 := makeTestRecord(1700000000+86400, "b")

	if err := rt.Route(day1); err != nil {
		t.Fatalf("Route day1: %v", err)
	}
	if err := rt.Route(day2); err != nil {
		t.Fatalf("Route day2: %v", err)
	}
	if err := rt.Route(makeTestRecord(1700000000, "c")); err != nil {
		t.Fatalf("Route day1 again: %v", err)
	}

	counts := rt.Counts()
	if len(counts) != 2 {
		t.Fatalf("expected 2 open shards, got %d: %+v", len(counts), counts)
	}
	if counts[day1.DayString()] != 2 {
		t.Fatalf("day1 count = %d, want 2", counts[day1.DayString()])
	}
	if counts[day2.DayString()] != 1 {
		t.Fatalf("day2 count = %d, want 1", counts[day2.DayString()])
	}

	if err := rt.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}

	if _, err := os.Stat(StagingPath(outDir, 0, day1.DayString())); err != nil {
		t.Fatalf("expected shard file for day1: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "tmp")); err != nil {
		t.Fatalf("expected tmp dir to exist: %v", err)
	}
}

func TestRouterNoSinkForUntouchedDay(t *testing.T) {
	rt := NewRouter(t.TempDir(), 0, 6, 10)
	if len(rt.Counts()) != 0 {
		t.Fatalf("a fresh router should have no open sinks")
	}
}
