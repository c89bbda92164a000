package machine

import (
	"testing"

	"pcxt/internal/execctl"
	"pcxt/internal/hdc"
	"pcxt/internal/rommgr"
)

func newTestMachine(t *testing.T, code []byte) *Machine {
	t.Helper()
	rom := rommgr.New()
	// Stage code at the top of memory and point the reset vector there,
	// mirroring a BIOS ROM occupying the top of the address space.
	location := 0xFFFF0
	rom.AddImage(code, location, 4, true)
	rom.SetEntrypoint(0xF000, 0xFFF0)

	m, err := New(IBM_PC_5150, VideoCGA, rom, hdc.DriveType2DIP)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestRunExecutesInstructionsUntilHalt(t *testing.T) {
	// MOV AX, 0x1234 ; HLT
	m := newTestMachine(t, []byte{0xB8, 0x34, 0x12, 0xF4})
	exec := execctl.New()
	exec.DoRun()

	m.Run(FakeCycles*10, exec, 0)

	if m.CPU.AX != 0x1234 {
		t.Errorf("AX = 0x%04X, want 0x1234", m.CPU.AX)
	}
	if m.CPUCycles() == 0 {
		t.Error("expected cpu cycles to advance")
	}
}

func TestPausedMachineDoesNothingWithoutStep(t *testing.T) {
	m := newTestMachine(t, []byte{0xB8, 0x34, 0x12, 0xF4})
	exec := execctl.New() // Paused, no step requested
	m.Run(FakeCycles*10, exec, 0)
	if m.CPU.AX != 0 {
		t.Errorf("AX = 0x%04X, want 0 (no step requested)", m.CPU.AX)
	}
}

func TestSingleStepAdvancesExactlyOneInstruction(t *testing.T) {
	m := newTestMachine(t, []byte{0xB8, 0x34, 0x12, 0xB8, 0x56, 0x00})
	exec := execctl.New()
	exec.DoStep()
	m.Run(FakeCycles*10, exec, 0)
	if m.CPU.AX != 0x1234 {
		t.Errorf("after one step AX = 0x%04X, want 0x1234", m.CPU.AX)
	}
}

func TestCPUFaultStopsSchedulerAdvancingCPU(t *testing.T) {
	m := newTestMachine(t, []byte{0x0F}) // unimplemented opcode
	exec := execctl.New()
	exec.DoRun()
	m.Run(FakeCycles*5, exec, 0)
	if !m.IsError() {
		t.Fatal("expected machine to latch a CPU fault")
	}
	if m.ErrorString() == "" {
		t.Error("expected a non-empty error string")
	}
}

func TestKeyboardByteIsLatchedIntoPPI(t *testing.T) {
	m := newTestMachine(t, []byte{0xFB, 0x90, 0x90, 0x90, 0x90}) // STI; NOP*4
	m.Keyboard.Press(0x1E)
	exec := execctl.New()
	exec.DoRun()
	m.Run(FakeCycles*2, exec, 0)
	if !m.PPI.KeyboardLatched() {
		t.Fatal("expected the queued scancode to be latched into the PPI")
	}
}

// TestKeyboardRateLimitDeliversOneByte exercises spec scenario 5: three
// scancodes queued, one run(21, Running, 0) call delivers exactly one byte
// to the PPI and leaves exactly one pending IRQ1, regardless of how many
// virtual steps that cycle budget covers.
func TestKeyboardRateLimitDeliversOneByte(t *testing.T) {
	m := newTestMachine(t, []byte{0xFB, 0x90, 0x90, 0x90, 0x90}) // STI; NOP*4
	m.Keyboard.Press(0x1E)
	m.Keyboard.Press(0x9E)
	m.Keyboard.Press(0x1F)

	exec := execctl.New()
	exec.DoRun()
	m.Run(21, exec, 0)

	if !m.PPI.KeyboardLatched() {
		t.Fatal("expected exactly one scancode to be latched into the PPI")
	}
	if got, ok := m.Keyboard.Pop(); !ok || got != 0x9E {
		t.Fatalf("expected two scancodes still queued, next = 0x%02X (ok=%v), want 0x9E", got, ok)
	}
	if _, ok := m.Keyboard.Pop(); !ok {
		t.Fatal("expected a third scancode still queued")
	}
	if _, ok := m.Keyboard.Pop(); ok {
		t.Fatal("expected the queue to be empty after draining the remaining two scancodes")
	}

	state := m.PicState()
	if state.IRR != "00000010" {
		t.Errorf("PIC IRR = %s, want 00000010 (exactly one pending IRQ1)", state.IRR)
	}
}

// TestBreakpointHaltsSchedulerWithoutExecuting exercises spec scenario 6:
// with the CPU's next flat address equal to the breakpoint, run returns
// immediately with state = BreakpointHit, no CPU step taken and cpu_cycles
// unchanged.
func TestBreakpointHaltsSchedulerWithoutExecuting(t *testing.T) {
	m := newTestMachine(t, []byte{0xB8, 0x34, 0x12, 0xF4}) // MOV AX, 0x1234 ; HLT
	exec := execctl.New()
	exec.DoRun()

	breakpoint := 0xFFFF0 // the reset vector's flat address, where code is staged
	before := m.CPUCycles()

	m.Run(1000, exec, breakpoint)

	if exec.State() != execctl.BreakpointHit {
		t.Errorf("state = %v, want BreakpointHit", exec.State())
	}
	if m.CPU.AX != 0 {
		t.Errorf("AX = 0x%04X, want 0 (no CPU step should have executed)", m.CPU.AX)
	}
	if m.CPUCycles() != before {
		t.Errorf("cpu_cycles changed from %d to %d, want unchanged", before, m.CPUCycles())
	}
}
