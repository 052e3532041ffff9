package prefilter

import "testing"

func TestKeepOrdinaryKind(t *testing.T) {
	if !Keep([]byte(`{"kind":1,"content":"hi"}`)) {
		t.Fatalf("an in-range kind should be kept")
	}
}

func TestKeepDropsOutOfRangeKind(t *testing.T) {
	if Keep([]byte(`{"kind":99999999,"content":"hi"}`)) {
		t.Fatalf("a kind above the uint16 range should be dropped")
	}
}

func TestKeepIsConservativeOnAmbiguousInput(t *testing.T) {
	// No "kind" key at all: the prefilter must defer to the full parser
	// rather than guess.
	if !Keep([]byte(`{"content":"hi"}`)) {
		t.Fatalf("input with no kind key must be kept (deferred)")
	}
	// A kind-shaped substring inside unrelated content must not cause a
	// false drop just because the heuristic found digits somewhere.
	if !Keep([]byte(`{"content":"my kind of day","other":1}`)) {
		t.Fatalf("unrelated text containing \"kind\" as a word should not trigger sniffing")
	}
}

func TestKeepHandlesWhitespaceAroundColon(t *testing.T) {
	if !Keep([]byte(`{"kind"  :   42 , "content":"hi"}`)) {
		t.Fatalf("whitespace around the kind literal should not confuse the sniffer")
	}
}

func TestKeepOverlongDigitRun(t *testing.T) {
	huge := `{"kind":1` + repeatDigits(30) + `,"content":"hi"}`
	if Keep([]byte(huge)) {
		t.Fatalf("a pathologically long digit run should be treated as out of range")
	}
}

func repeatDigits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
