package internal

import (
	"regexp"
	"testing"
)

func TestNewOTPCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewOTPCode()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		if code[0] == '0' {
			t.Fatalf("code %q has a leading zero", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

func TestNewLinkToken(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{64}$`)

	a, err := NewLinkToken()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	b, err := NewLinkToken()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !hexPattern.MatchString(a) {
		t.Fatalf("token %q is not 64 lowercase hex chars", a)
	}
	if a == b {
		t.Fatal("two tokens should not collide")
	}
}
