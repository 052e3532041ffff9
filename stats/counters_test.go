package stats

import "testing"

func TestGlobalMerge(t *testing.T) {
	g := NewGlobal()

	c1 := NewCounters()
	c1.LinesRead = 10
	c1.Add(Kept, 8)
	c1.Add(Duplicate, 2)
	c1.AddDay("2026_08_01", 8)

	c2 := NewCounters()
	c2.LinesRead = 5
	c2.Add(Kept, 4)
	c2.Add(ParseError, 1)
	c2.AddDay("2026_08_01", 3)
	c2.AddDay("2026_08_02", 1)

	g.Merge(c1)
	g.Merge(c2)

	snap := g.Snapshot()
	if snap.LinesRead != 15 {
		t.Fatalf("LinesRead = %d, want 15", snap.LinesRead)
	}
	if snap.ByCategory[Kept] != 12 {
		t.Fatalf("Kept = %d, want 12", snap.ByCategory[Kept])
	}
	if snap.ByCategory[Duplicate] != 2 || snap.ByCategory[ParseError] != 1 {
		t.Fatalf("unexpected category totals: %+v", snap.ByCategory)
	}
	if snap.PerDay["2026_08_01"] != 11 || snap.PerDay["2026_08_02"] != 1 {
		t.Fatalf("unexpected per-day totals: %+v", snap.PerDay)
	}
}

func TestGlobalAddCategoryAndDay(t *testing.T) {
	g := NewGlobal()
	g.AddCategory(DuplicateAtMerge, 3)
	g.AddDay("2026_08_01", 2)

	snap := g.Snapshot()
	if snap.ByCategory[DuplicateAtMerge] != 3 {
		t.Fatalf("DuplicateAtMerge = %d, want 3", snap.ByCategory[DuplicateAtMerge])
	}
	if snap.PerDay["2026_08_01"] != 2 {
		t.Fatalf("PerDay = %d, want 2", snap.PerDay["2026_08_01"])
	}
}
