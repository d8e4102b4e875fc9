package httpapi

import "testing"

func TestValidSourceLanguage(t *testing.T) {
	tests := []struct {
		tag      string
		expected bool
	}{
		{"ro-RO", true},
		{"en-US", true},
		{"en", false},
		{"ro-ro", false},
		{"RO-RO", false},
		{"ron-RO", false},
		{"", false},
		{"ro-RO ", false},
	}
	for _, tt := range tests {
		if got := validSourceLanguage(tt.tag); got != tt.expected {
			t.Errorf("validSourceLanguage(%q) = %v, want %v", tt.tag, got, tt.expected)
		}
	}
}

func TestValidTargetLanguage(t *testing.T) {
	tests := []struct {
		tag      string
		expected bool
	}{
		{"en", true},
		{"ro", true},
		{"en-US", true},
		{"EN", false},
		{"e", false},
		{"eng", false},
		{"en-us", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := validTargetLanguage(tt.tag); got != tt.expected {
			t.Errorf("validTargetLanguage(%q) = %v, want %v", tt.tag, got, tt.expected)
		}
	}
}

func TestValidTranslationInterval(t *testing.T) {
	tests := []struct {
		ms       int
		expected bool
	}{
		{0, true}, // zero = use mode default
		{1000, true},
		{15000, true},
		{60000, true},
		{999, false},
		{60001, false},
		{-5, false},
	}
	for _, tt := range tests {
		if got := validTranslationInterval(tt.ms); got != tt.expected {
			t.Errorf("validTranslationInterval(%d) = %v, want %v", tt.ms, got, tt.expected)
		}
	}
}
