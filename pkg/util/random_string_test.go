package utils

import (
	"strings"
	"testing"
)

func TestSameSeedSameIds(t *testing.T) {
	a := CreateRandomStringGenerator(42)
	b := CreateRandomStringGenerator(42)
	for i := 0; i < 5; i++ {
		if x, y := a.GetRandomString(6), b.GetRandomString(6); x != y {
			t.Fatalf("round %d: %q != %q", i, x, y)
		}
	}
}

func TestIdsAvoidAmbiguousGlyphs(t *testing.T) {
	g := CreateRandomStringGenerator(7)
	s := g.GetRandomString(512)
	if len(s) != 512 {
		t.Fatalf("expected 512 characters, got %d", len(s))
	}
	if strings.ContainsAny(s, "0OlI") {
		t.Errorf("generated id contains an ambiguous glyph: %q", s)
	}
}
