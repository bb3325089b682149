package domain

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "local format with leading zero", input: "0712345678", want: "254712345678", ok: true},
		{name: "bare subscriber number", input: "712345678", want: "254712345678", ok: true},
		{name: "already normalized", input: "254712345678", want: "254712345678", ok: true},
		{name: "spaces and punctuation stripped", input: "0712 345-678", want: "254712345678", ok: true},
		{name: "international prefix notation", input: "+254712345678", want: "254712345678", ok: true},
		{name: "letters rejected", input: "abc", want: "", ok: false},
		{name: "empty rejected", input: "", want: "", ok: false},
		{name: "too short rejected", input: "0712345", want: "", ok: false},
		{name: "landline style rejected", input: "0201234567", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizePhone(%q) ok = %t, want %t", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneIsIdempotent(t *testing.T) {
	inputs := []string{"0712345678", "712345678", "254712345678", "+254 712 345 678"}
	for _, input := range inputs {
		once, ok := NormalizePhone(input)
		if !ok {
			t.Fatalf("expected %q to normalize", input)
		}
		twice, ok := NormalizePhone(once)
		if !ok {
			t.Fatalf("expected normalized %q to normalize again", once)
		}
		if once != twice {
			t.Fatalf("normalization not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}
