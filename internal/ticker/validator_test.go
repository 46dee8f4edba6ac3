package ticker

import (
	"testing"
)

func TestIsPlausible(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"plain symbol", "TSLA", true},
		{"single letter", "F", true},
		{"five letters", "GOOGL", true},
		{"cashtag prefix", "$TSLA", true},
		{"cashtag single", "$F", true},
		{"six letters", "ABCDEF", false},
		{"empty", "", false},
		{"lowercase", "tsla", false},
		{"mixed case", "Tsla", false},
		{"digits", "C3", false},
		{"punctuation", "TS.LA", false},
		{"bare cashtag", "$", false},
		{"blocked word", "IT", false},
		{"blocked word all", "ALL", false},
		{"blocked word go", "GO", false},
		{"blocked with prefix", "$YOLO", false},
		{"blocked jargon", "HODL", false},
		{"leading whitespace", " AMC", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPlausible(tt.token); got != tt.want {
				t.Errorf("IsPlausible(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$TSLA", "TSLA"},
		{"TSLA", "TSLA"},
		{" $GME ", "GME"},
		{"$$GME", "$GME"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBlocked(t *testing.T) {
	if !Blocked("YOLO") {
		t.Error("Expected YOLO to be blocked")
	}
	if !Blocked("$IT") {
		t.Error("Expected $IT to be blocked")
	}
	if Blocked("NVDA") {
		t.Error("Did not expect NVDA to be blocked")
	}
}
