package transaction

import (
	"strings"
	"testing"
)

func TestRandomReferenceShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		ref := randomReference()
		if len(ref) != ReferenceLength {
			t.Fatalf("expected length %d, got %d (%q)", ReferenceLength, len(ref), ref)
		}
		for _, c := range ref {
			if !strings.ContainsRune(referenceAlphabet, c) {
				t.Fatalf("character %q outside alphabet in %q", c, ref)
			}
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q within 1000 draws", ref)
		}
		seen[ref] = true
	}
}
