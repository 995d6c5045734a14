package otp

import "testing"

func TestGenerateNumericCode(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code := GenerateNumericCode(length)
		if len(code) != length {
			t.Fatalf("expected length %d, got %d", length, len(code))
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit %q in code %q", c, code)
			}
		}
	}
}

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("482913")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "482913" {
		t.Fatal("code must not be stored in plain text")
	}
	if !Verify("482913", hash) {
		t.Fatal("correct code must verify")
	}
	if Verify("482914", hash) {
		t.Fatal("wrong code must not verify")
	}
}
