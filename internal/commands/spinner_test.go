package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpinnerLifecycle_StopWithSuccess(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Mining")
	s.start()
	// Let it spin briefly
	time.Sleep(50 * time.Millisecond)
	s.stopWithSuccess("done")

	out := buf.String()
	if !strings.Contains(out, "✓") || !strings.Contains(out, "done") {
		t.Errorf("expected success line, got %q", out)
	}
	if !strings.Contains(out, "\033[?25h") {
		t.Error("cursor should be restored")
	}
}

func TestSpinnerLifecycle_StopWithError(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Mining")
	s.start()
	time.Sleep(30 * time.Millisecond)
	// Should stop cleanly on error (no panic)
	s.stopWithError()
	// A second stop is a no-op
	s.stopOnce()

	if strings.Contains(buf.String(), "✓") {
		t.Error("error stop should not print success")
	}
}
