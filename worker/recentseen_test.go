package worker

import "testing"

func TestRecentSeenDetectsImmediateRepeat(t *testing.T) {
	rs := newRecentSeen(4)
	var id [32]byte
	id[0] = 1

	if rs.SeenBefore(id) {
		t.Fatalf("first sighting should not be reported as seen")
	}
	if !rs.SeenBefore(id) {
		t.Fatalf("second sighting should be reported as seen")
	}
}

func TestRecentSeenEvictsOldestOnceFull(t *testing.T) {
	rs := newRecentSeen(2)
	var a, b, c [32]byte
	a[0], b[0], c[0] = 1, 2, 3

	rs.SeenBefore(a)
	rs.SeenBefore(b)
	rs.SeenBefore(c) // evicts a

	if !rs.SeenBefore(c) {
		t.Fatalf("c should still be tracked")
	}
	if rs.SeenBefore(a) {
		t.Fatalf("a should have been evicted and treated as unseen")
	}
}
