package keys

import (
	"strings"
	"testing"
)

func TestHashedDeterministicAndBounded(t *testing.T) {
	a := Hashed("search", "go concurrency", "1")
	b := Hashed("search", "go concurrency", "1")
	if a != b {
		t.Fatalf("same parts gave different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "search:") || len(a) != len("search:")+16 {
		t.Fatalf("unexpected key shape %q", a)
	}
	long := Hashed("search", strings.Repeat("q", 4096))
	if len(long) != len(a) {
		t.Fatalf("key length depends on input: %d vs %d", len(long), len(a))
	}
}

func TestHashedSeparatesParts(t *testing.T) {
	if Hashed("p", "ab", "c") == Hashed("p", "a", "bc") {
		t.Fatalf("part boundaries must change the key")
	}
	if Hashed("p", "x", "1") == Hashed("p", "x", "2") {
		t.Fatalf("different pages must not collide")
	}
}
