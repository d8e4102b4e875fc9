package translatelog

import (
	"context"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected int
	}{
		{"short", "hello", 5},
		{"exact", strings.Repeat("a", maxTextChars), maxTextChars},
		{"long", strings.Repeat("a", maxTextChars+100), maxTextChars},
		{"multibyte", strings.Repeat("ă", maxTextChars+50), maxTextChars},
	}
	for _, tt := range tests {
		got := truncate(tt.in)
		if n := len([]rune(got)); n != tt.expected {
			t.Errorf("%s: truncate length = %d, want %d", tt.name, n, tt.expected)
		}
	}
}

func TestNilPoolIsNoop(t *testing.T) {
	l := New(nil, "test")
	if err := l.Append(context.Background(), Row{SessionID: "s"}); err != nil {
		t.Errorf("nil pool Append = %v, want nil", err)
	}
	l.AppendAsync(Row{SessionID: "s"}) // must not panic

	u := NewUsageTracker(nil)
	if err := u.Add(context.Background(), "client", 100); err != nil {
		t.Errorf("nil pool Add = %v, want nil", err)
	}
}

func TestUsageClampInputs(t *testing.T) {
	u := NewUsageTracker(nil)
	// Zero and negative amounts are dropped before touching the pool.
	if err := u.Add(context.Background(), "client", 0); err != nil {
		t.Errorf("zero chars = %v", err)
	}
	if err := u.Add(context.Background(), "client", -5); err != nil {
		t.Errorf("negative chars = %v", err)
	}
	if err := u.Add(context.Background(), "", 10); err != nil {
		t.Errorf("empty client = %v", err)
	}
}
