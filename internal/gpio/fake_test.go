package gpio

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

func TestFakeLineIdleHigh(t *testing.T) {
	f := NewFakeLine()

	level, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != gpio.High {
		t.Errorf("expected idle line to read high, got %v", level)
	}
	if f.Mode() != ModeInput {
		t.Errorf("expected input mode, got %v", f.Mode())
	}
}

func TestFakeLineDriveAndRelease(t *testing.T) {
	f := NewFakeLine()

	if err := f.Drive(gpio.Low); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level, _ := f.Read(); level != gpio.Low {
		t.Errorf("after drive low: expected low, got %v", level)
	}

	f.Drive(gpio.High)
	f.Release()

	want := []string{"drive-low", "drive-high", "release"}
	if len(f.Calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, f.Calls)
	}
	for i := range want {
		if f.Calls[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], f.Calls[i])
		}
	}
	if f.Mode() != ModeInput {
		t.Error("expected input mode after release")
	}
}

func TestFakeLineEdgesOnlyWhileReleased(t *testing.T) {
	f := NewFakeLine()
	var got int
	f.OnEdge(func(at time.Time) { got++ })

	// Device pull while the host drives is not an edge event.
	f.Drive(gpio.High)
	f.Hold()
	f.Let()
	if got != 0 {
		t.Errorf("expected no edge while driven, got %d", got)
	}

	f.Release()
	f.Hold()
	f.Hold() // already low
	f.Let()
	f.Hold()

	if got != 2 {
		t.Errorf("expected 2 falling edges, got %d", got)
	}
	if f.Edges() != 2 {
		t.Errorf("Edges: expected 2, got %d", f.Edges())
	}
}

func TestFakeLineWatch(t *testing.T) {
	f := NewFakeLine()
	var seen []gpio.Level
	f.Watch(func(l gpio.Level) { seen = append(seen, l) })

	f.Drive(gpio.Low)
	f.Release()

	if len(seen) != 2 || seen[0] != gpio.Low || seen[1] != gpio.High {
		t.Errorf("expected [Low High], got %v", seen)
	}
}

func TestFakeLineErrors(t *testing.T) {
	f := NewFakeLine()
	f.DriveError = errors.New("simulated drive error")
	f.ReleaseError = errors.New("simulated release error")

	if err := f.Drive(gpio.Low); err == nil || err.Error() != "simulated drive error" {
		t.Errorf("unexpected drive error: %v", err)
	}
	if err := f.Release(); err == nil || err.Error() != "simulated release error" {
		t.Errorf("unexpected release error: %v", err)
	}
	if len(f.Calls) != 0 {
		t.Errorf("failed calls should not be recorded, got %v", f.Calls)
	}
}

func TestFakeLineClose(t *testing.T) {
	f := NewFakeLine()

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}
