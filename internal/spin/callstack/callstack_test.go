package callstack

import (
	"strings"
	"testing"
)

// TestCapture verifies a capture records the caller chain.
func TestCapture(t *testing.T) {
	tr := Capture(0)

	if tr.Empty() {
		t.Fatal("Capture returned an empty trace")
	}
	if tr.PC[0] == 0 {
		t.Error("first frame is zero")
	}
}

// TestCaptureZeroPadding verifies unused tail frames stay zero.
func TestCaptureZeroPadding(t *testing.T) {
	tr := Capture(0)

	// Find the first zero entry; everything after it must be zero too.
	pad := false
	for i, pc := range tr.PC {
		if pc == 0 {
			pad = true
		}
		if pad && pc != 0 {
			t.Errorf("frame %d nonzero after padding began", i)
		}
	}
}

// TestCaptureSkip verifies skip drops the nearest frames.
func TestCaptureSkip(t *testing.T) {
	// helper adds one frame between the test and Capture.
	helper := func() (Trace, Trace) {
		return Capture(0), Capture(1)
	}
	withHelper, skipped := helper()

	if withHelper.Empty() || skipped.Empty() {
		t.Fatal("empty trace from helper")
	}
	if withHelper.PC[0] == skipped.PC[0] {
		t.Error("skip=1 did not drop the helper frame")
	}
}

// TestClear verifies Clear empties a trace.
func TestClear(t *testing.T) {
	tr := Capture(0)
	tr.Clear()

	if !tr.Empty() {
		t.Error("trace not empty after Clear")
	}
	for i, pc := range tr.PC {
		if pc != 0 {
			t.Errorf("frame %d = %#x after Clear, want 0", i, pc)
		}
	}
}

// TestFormat verifies the rendered trace names this test and carries file
// and line information.
func TestFormat(t *testing.T) {
	tr := Capture(0)
	out := tr.Format()

	if !strings.Contains(out, "TestFormat") {
		t.Errorf("formatted trace does not mention the capture site:\n%s", out)
	}
	if !strings.Contains(out, "callstack_test.go") {
		t.Errorf("formatted trace does not carry file information:\n%s", out)
	}
	if strings.Contains(out, "runtime.") {
		t.Errorf("formatted trace leaks runtime frames:\n%s", out)
	}
}

// TestFormatEmpty verifies the empty-trace placeholder.
func TestFormatEmpty(t *testing.T) {
	var tr Trace
	if got := tr.Format(); got != "  <unknown>\n" {
		t.Errorf("Format() = %q, want %q", got, "  <unknown>\n")
	}
}
