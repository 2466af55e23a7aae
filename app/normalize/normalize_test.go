package normalize_test

import (
	"testing"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/normalize"
)

func TestTitleCleaning(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Plan B", "plan b", true},
		{"  plan b \t", "plan b", true},
		{"Plan\nB\r", "planb", true},
		{"Gold   Tier  Plus", "gold tier plus", true},
		{"ab1", "ab1", true},
		{"ANONYMIZED plan", "", false},
		{"Plan AnonYmiZed", "", false},
		{"!! ", "", false},
		{"a ", "", false},
		{"a!b", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := normalize.Title(tt.raw)
		if ok != tt.ok {
			t.Fatalf("Title(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
		}
		if got != tt.want {
			t.Fatalf("Title(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{"  Plan\n B ", "gold\ttier", "a   b c ", "déjà  vu"}
	for _, raw := range inputs {
		once := normalize.Clean(raw)
		if twice := normalize.Clean(once); twice != once {
			t.Fatalf("Clean not idempotent for %q: %q != %q", raw, twice, once)
		}
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{" User@Example.COM ", "user@example.com", true},
		{"a1@x.com", "a1@x.com", true},
		{"12345@x.com", "", false},
		{"no-at-sign", "", false},
		{"two@at@x.com", "", false},
		{"@x.com", "", false},
	}

	for _, tt := range tests {
		got, ok := normalize.Email(tt.raw)
		if ok != tt.ok {
			t.Fatalf("Email(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
		}
		if got != tt.want {
			t.Fatalf("Email(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIsNumericLocalPart(t *testing.T) {
	if !normalize.IsNumericLocalPart("12345") {
		t.Fatal("expected 12345 to be numeric")
	}
	if normalize.IsNumericLocalPart("a1") {
		t.Fatal("expected a1 to be non-numeric")
	}
	if normalize.IsNumericLocalPart("") {
		t.Fatal("expected empty local part to be non-numeric")
	}
}
