package debug

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

// capture runs fn at the given level and returns what was logged.
func capture(t *testing.T, lvl int, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(LevelOff)
	})
	fn()
	Sync()
	return buf.String()
}

func TestInit_SetsLevel(t *testing.T) {
	capture(t, LevelVerbose, func() {})
	if Level() != LevelVerbose {
		t.Errorf("Level() = %d, want %d", Level(), LevelVerbose)
	}
	if !IsEnabled(LevelLive) {
		t.Error("live should be enabled at verbose level")
	}
	if IsEnabled(LevelTrace) {
		t.Error("trace should be disabled at verbose level")
	}
}

func TestOff_WritesNothing(t *testing.T) {
	out := capture(t, LevelOff, func() {
		Info("hello")
		Error(errors.New("boom"))
		Trace("deep")
	})
	if out != "" {
		t.Errorf("expected no output at level 0, got %q", out)
	}
}

func TestLevels_Filter(t *testing.T) {
	out := capture(t, LevelLive, func() {
		Info("info %d", 1)
		Live("live %d", 2)
		Verbose("verbose %d", 3)
		Trace("trace %d", 4)
	})
	for _, want := range []string{"info 1", "[LIVE] live 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"verbose 3", "trace 4"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output should not contain %q:\n%s", unwanted, out)
		}
	}
}

func TestHelpers_Format(t *testing.T) {
	out := capture(t, LevelTrace, func() {
		Value("Camera type", "simulated")
		Error(errors.New("lens cap on"))
		Error(nil)
		Shot(2, 3, "snap-3")
		Section("Capturing")
		Step(1, "Initializing camera")
		PrintStruct("opts", struct{ Q int }{50})
		GPIO("write", 24, "LOW")
	})
	for _, want := range []string{
		"Camera type = simulated",
		"lens cap on",
		"Snapshot 3/3 recorded",
		"snap-3",
		"Capturing",
		"Step 1: Initializing camera",
		"opts: {Q:50}",
		"[GPIO] write",
		"CamGo",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogger_NopWhenOff(t *testing.T) {
	capture(t, LevelOff, func() {})
	if Logger().Core().Enabled(0) {
		t.Error("logger should be a no-op when debug output is off")
	}
}
