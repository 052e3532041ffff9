package record

import (
	"strings"
	"testing"
)

func TestCanonicalHashDeterministic(t *testing.T) {
	var author [AuthorLen]byte
	for i := range author {
		author[i] = byte(i)
	}
	tags := [][]string{{"e", "abcd"}, {"p", "1234"}}

	h1 := CanonicalHash(author, 1700000000, 1, tags, "hello\nworld")
	h2 := CanonicalHash(author, 1700000000, 1, tags, "hello\nworld")
	if h1 != h2 {
		t.Fatalf("CanonicalHash is not deterministic: %x != %x", h1, h2)
	}

	h3 := CanonicalHash(author, 1700000000, 1, tags, "hello\nworld!")
	if h1 == h3 {
		t.Fatalf("CanonicalHash did not change with content")
	}
}

func TestWriteJSONStringEscaping(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "\"plain\""},
		{"a\"b", "\"a\\\"b\""},
		{"a\\b", "\"a\\\\b\""},
		{"a\nb", "\"a\\nb\""},
		{"a\rb", "\"a\\rb\""},
		{"a\tb", "\"a\\tb\""},
		{"a\x01b", "\"a\\u0001b\""},
	}
	for _, c := range cases {
		var b strings.Builder
		writeJSONString(&b, c.in)
		if got := b.String(); got != c.want {
			t.Errorf("writeJSONString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
