package runner

import (
	"sync/atomic"
	"testing"
	"time"
)

func collect(t *testing.T, p *Proc) []string {
	t.Helper()
	var lines []string
	for line := range p.Lines() {
		lines = append(lines, line)
	}
	return lines
}

func TestStreamLinesInOrder(t *testing.T) {
	p, err := Start("sh", "-c", "echo one; echo two 1>&2; echo three")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := collect(t, p)
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if code := p.ExitCode(); code != 0 {
		t.Errorf("ExitCode = %d, want 0", code)
	}
}

func TestPartialOutputDrainedOnce(t *testing.T) {
	p, err := Start("sh", "-c", "printf 'no trailing newline'")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := collect(t, p)
	if len(got) != 1 || got[0] != "no trailing newline" {
		t.Errorf("got %v, want the single partial line", got)
	}
}

func TestExitCodePropagated(t *testing.T) {
	p, err := Start("sh", "-c", "exit 8")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	collect(t, p)
	if code := p.ExitCode(); code != 8 {
		t.Errorf("ExitCode = %d, want 8", code)
	}
}

func TestSpawnError(t *testing.T) {
	if _, err := Start("/this/binary/does/not/exist"); err == nil {
		t.Fatal("expected spawn error for missing executable")
	}
}

func TestStopOnFinishedProcessIsNoop(t *testing.T) {
	var hooks atomic.Int32
	p, err := StartWithOptions(Options{OnStop: func() { hooks.Add(1) }}, "sh", "-c", "true")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	collect(t, p)
	p.ExitCode()

	p.Stop()
	p.Stop()

	if n := hooks.Load(); n != 0 {
		t.Errorf("OnStop fired %d times for an already-terminated process", n)
	}
	if p.Stopped() {
		t.Error("Stopped() should stay false when the process exited on its own")
	}
}

func TestStopTerminatesWithinGrace(t *testing.T) {
	var hooks atomic.Int32
	p, err := StartWithOptions(Options{OnStop: func() { hooks.Add(1) }}, "sleep", "30")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	go collect(t, p)

	start := time.Now()
	p.Stop()
	elapsed := time.Since(start)

	if elapsed > graceTimeout+3*time.Second {
		t.Errorf("Stop took %v, should be bounded by grace plus kill time", elapsed)
	}
	if code := p.ExitCode(); code == 0 {
		t.Errorf("ExitCode = %d, want non-zero for a terminated process", code)
	}
	if !p.Stopped() {
		t.Error("Stopped() should report external termination")
	}
	if n := hooks.Load(); n != 1 {
		t.Errorf("OnStop fired %d times, want exactly 1", n)
	}

	// Second Stop after termination changes nothing.
	p.Stop()
	if n := hooks.Load(); n != 1 {
		t.Errorf("OnStop fired %d times after repeated Stop, want 1", n)
	}
}
