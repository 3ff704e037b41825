package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]any{"api_key", "sk-123", "model", "llama", "GROQ_TOKEN", "x", "dangling"})
	want := []any{"api_key", "[REDACTED]", "model", "llama", "GROQ_TOKEN", "[REDACTED]", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNopWith(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", 1)
}
