package validation

import (
	"strings"
	"testing"
)

func TestIsValidRecipient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"sarah@example.com", true},
		{"a.b+tag@sub.example.co.uk", true},
		{"Sarah Johnson", false},
		{"unknown", false},
		{"sarah@example", false},
		{"sarah @example.com", false},
		{"@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := IsValidRecipient(tt.input); got != tt.want {
				t.Errorf("IsValidRecipient(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	got := SanitizeText("  hey\x00 there\n\tfriend\x07  ")
	want := "hey there\n\tfriend"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

type sample struct {
	Tone   string `validate:"omitempty,tone"`
	Period string `validate:"omitempty,stats_period"`
	To     string `validate:"omitempty,recipient"`
	Body   string `validate:"required,max=5"`
}

func TestCustomValidators(t *testing.T) {
	t.Parallel()

	if err := Validate.Struct(sample{Tone: "formal", Period: "30days", To: "a@b.co", Body: "hi"}); err != nil {
		t.Errorf("Expected valid struct, got %v", err)
	}

	err := Validate.Struct(sample{Tone: "angry", Period: "90days", To: "Sarah", Body: "too long body"})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	msg := FormatErrors(err)
	for _, field := range []string{"Tone", "Period", "To", "Body must be at most 5"} {
		if !strings.Contains(msg, field) {
			t.Errorf("Expected %q in %q", field, msg)
		}
	}
}
