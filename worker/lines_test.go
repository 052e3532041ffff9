package worker

import (
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, ls *LineSource) []string {
	t.Helper()
	var lines []string
	for {
		line, _, err := ls.Next()
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		lines = append(lines, string(line))
	}
}

func TestLineSourceSingleWorkerReadsEverything(t *testing.T) {
	data := "aaa\nbbb\nccc\nddd\n"
	ls, err := OpenLineSource(strings.NewReader(data), 0, 0, EndOfStream)
	if err != nil {
		t.Fatalf("OpenLineSource: %v", err)
	}
	got := readAll(t, ls)
	want := []string{"aaa", "bbb", "ccc", "ddd"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLineSourceTwoWorkersCoverEveryLineExactlyOnce(t *testing.T) {
	data := "aaa\nbbb\nccc\nddd\n"
	total := int64(len(data))

	ls0, err := OpenLineSource(strings.NewReader(data), 0, 0, total/2)
	if err != nil {
		t.Fatalf("OpenLineSource(0): %v", err)
	}
	got0 := readAll(t, ls0)

	ls1, err := OpenLineSource(strings.NewReader(data), 1, total/2, total)
	if err != nil {
		t.Fatalf("OpenLineSource(1): %v", err)
	}
	got1 := readAll(t, ls1)

	all := append(append([]string{}, got0...), got1...)
	want := []string{"aaa", "bbb", "ccc", "ddd"}
	if len(all) != len(want) {
		t.Fatalf("combined lines = %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("combined line %d = %q, want %q", i, all[i], want[i])
		}
	}
}

func TestLineSourceEmptyRange(t *testing.T) {
	ls, err := OpenLineSource(strings.NewReader(""), 0, 0, EndOfStream)
	if err != nil {
		t.Fatalf("OpenLineSource: %v", err)
	}
	if got := readAll(t, ls); len(got) != 0 {
		t.Fatalf("expected no lines from empty input, got %v", got)
	}
}

func TestLineSourceLastLineWithoutTrailingNewline(t *testing.T) {
	ls, err := OpenLineSource(strings.NewReader("aaa\nbbb"), 0, 0, EndOfStream)
	if err != nil {
		t.Fatalf("OpenLineSource: %v", err)
	}
	got := readAll(t, ls)
	want := []string{"aaa", "bbb"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}
