package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogWritesCategoryLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := EnableAt(path); err != nil {
		t.Fatalf("EnableAt: %v", err)
	}
	defer Disable()

	Log("voice", "stole voice %d", 3)
	for i := 0; i < 4; i++ {
		LogEvery(2, "seq", "loop restart")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "voice") || !strings.Contains(out, "stole voice 3") {
		t.Errorf("missing voice line in:\n%s", out)
	}
	if n := strings.Count(out, "loop restart"); n != 2 {
		t.Errorf("LogEvery wrote %d lines, want 2", n)
	}
}

func TestLogDisabledIsSilent(t *testing.T) {
	Disable()
	if Enabled() {
		t.Fatal("expected disabled")
	}
	Log("voice", "nothing") // must not panic without a file
	LogEvery(1, "voice", "nothing")
}
