package authkit

import "testing"

func TestClassifyIdentifier(t *testing.T) {
	cases := []struct {
		in   string
		kind IdentifierKind
		ok   bool
	}{
		{"+15551234567", IdentifierPhone, true},
		{"15551234567", IdentifierPhone, true},
		{"+447911123456", IdentifierPhone, true},
		{"a@b.c", IdentifierEmail, true},
		{"user.name+tag@example.com", IdentifierEmail, true},
		{"", 0, false},
		{"+0123456", 0, false},        // leading zero
		{"+1234567890123456", 0, false}, // 16 digits
		{"not an identifier", 0, false},
		{"a@", 0, false},
		{"Display Name <a@b.c>", 0, false},
	}

	for _, tc := range cases {
		kind, ok := ClassifyIdentifier(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && kind != tc.kind {
			t.Fatalf("%q: kind = %v, want %v", tc.in, kind, tc.kind)
		}
	}
}
