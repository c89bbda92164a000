package app

import (
	"testing"
	"time"
)

func TestCircularTimingBuffer_Average_ShouldReflectAddedSamples(t *testing.T) {
	buf := NewCircularTimingBuffer(4)

	if avg := buf.GetAverage(); avg != 0 {
		t.Errorf("empty buffer average = %v, want 0", avg)
	}

	buf.Add(10 * time.Millisecond)
	buf.Add(20 * time.Millisecond)

	want := 15 * time.Millisecond
	if avg := buf.GetAverage(); avg != want {
		t.Errorf("average = %v, want %v", avg, want)
	}
}

func TestCircularTimingBuffer_WrapsAtCapacity(t *testing.T) {
	buf := NewCircularTimingBuffer(2)

	buf.Add(10 * time.Millisecond)
	buf.Add(20 * time.Millisecond)
	buf.Add(30 * time.Millisecond) // overwrites the 10ms sample

	want := 25 * time.Millisecond
	if avg := buf.GetAverage(); avg != want {
		t.Errorf("average after wrap = %v, want %v", avg, want)
	}
}

func TestCircularTimingBuffer_Reset_ShouldClearSamples(t *testing.T) {
	buf := NewCircularTimingBuffer(4)
	buf.Add(50 * time.Millisecond)
	buf.Reset()

	if avg := buf.GetAverage(); avg != 0 {
		t.Errorf("average after reset = %v, want 0", avg)
	}
}

func TestNewEmulator_ComputesCyclesPerFrame(t *testing.T) {
	cfg := NewConfig()
	cfg.Emulation.CyclesPerSecond = 6000000
	e := NewEmulator(nil, nil, cfg)

	want := uint32(6000000 / 60)
	if e.cyclesPerFrame != want {
		t.Errorf("cyclesPerFrame = %d, want %d", e.cyclesPerFrame, want)
	}
}
