package logger

import "testing"

func TestNew(t *testing.T) {
	for _, lvl := range []string{"", "debug", "info", "warn", "error"} {
		if _, err := New(lvl); err != nil {
			t.Fatalf("level %q: %v", lvl, err)
		}
	}
	if _, err := New("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
