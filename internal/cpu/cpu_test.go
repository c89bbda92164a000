package cpu

import (
	"testing"

	"pcxt/internal/iobus"
	"pcxt/internal/membus"
)

func freshMachine() (*CPU, *membus.MemoryBus, *iobus.Bus) {
	mem := membus.New()
	io := iobus.New()
	c := New()
	c.SetResetAddress(0x0000, 0x7C00)
	c.Reset()
	return c, mem, io
}

func load(mem *membus.MemoryBus, at int, code []byte) {
	if err := mem.CopyFrom(code, at, 4, false); err != nil {
		panic(err)
	}
}

func TestMovRegImmediate(t *testing.T) {
	c, mem, io := freshMachine()
	load(mem, 0x7C00, []byte{0xB8, 0x34, 0x12}) // MOV AX, 0x1234
	if err := c.Step(mem, io); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.AX != 0x1234 {
		t.Errorf("AX = 0x%04X, want 0x1234", c.AX)
	}
}

func TestAddSetsFlagsAndResult(t *testing.T) {
	c, mem, io := freshMachine()
	// MOV AX, 0xFFFF ; ADD AX, 1 -> AX=0, CF=1, ZF=1
	load(mem, 0x7C00, []byte{0xB8, 0xFF, 0xFF, 0x05, 0x01, 0x00})
	_ = c.Step(mem, io)
	if err := c.Step(mem, io); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.AX != 0 {
		t.Errorf("AX = 0x%04X, want 0", c.AX)
	}
	if !c.CF() || !c.ZF() {
		t.Errorf("expected CF and ZF set after overflow add")
	}
}

func TestModRMMemoryWrite(t *testing.T) {
	c, mem, io := freshMachine()
	c.DS = 0x1000
	c.BX = 0x0010
	// MOV [BX], AX with AX=0xBEEF: B8 EF BE ; 89 07
	load(mem, 0x7C00, []byte{0xB8, 0xEF, 0xBE, 0x89, 0x07})
	_ = c.Step(mem, io)
	if err := c.Step(mem, io); err != nil {
		t.Fatalf("Step: %v", err)
	}
	v, _, _ := mem.ReadU16(flatAddress(0x1000, 0x0010))
	if v != 0xBEEF {
		t.Errorf("memory = 0x%04X, want 0xBEEF", v)
	}
}

func TestConditionalJumpTaken(t *testing.T) {
	c, mem, io := freshMachine()
	// XOR AX,AX (sets ZF) ; JZ +3 ; (skip) MOV AX,1 ; MOV AX,2
	load(mem, 0x7C00, []byte{0x31, 0xC0, 0x74, 0x03, 0xB8, 0x01, 0x00, 0xB8, 0x02, 0x00})
	_ = c.Step(mem, io) // XOR
	_ = c.Step(mem, io) // JZ, taken
	if err := c.Step(mem, io); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.AX != 2 {
		t.Errorf("AX = %d, want 2 (expected jump over the first MOV)", c.AX)
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	c, mem, io := freshMachine()
	c.SS = 0x2000
	load(mem, 0x7C00, []byte{0xB8, 0xAA, 0x55, 0x50, 0x5B}) // MOV AX,55AA; PUSH AX; POP BX
	_ = c.Step(mem, io)
	_ = c.Step(mem, io)
	if err := c.Step(mem, io); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.BX != 0x55AA {
		t.Errorf("BX = 0x%04X, want 0x55AA", c.BX)
	}
}

func TestHaltStopsAdvancing(t *testing.T) {
	c, mem, io := freshMachine()
	load(mem, 0x7C00, []byte{0xF4})
	_ = c.Step(mem, io)
	ip := c.IP
	_ = c.Step(mem, io)
	if c.IP != ip {
		t.Errorf("IP advanced after HLT: %d -> %d", ip, c.IP)
	}
}

func TestDoHwInterruptVectorsThroughIVT(t *testing.T) {
	c, mem, io := freshMachine()
	c.SS = 0x2000
	c.SP = 0x0100
	load(mem, 0*4, []byte{0x00, 0x10, 0x34, 0x12}) // vector 0: IP=0x1000 CS=0x1234
	c.DoHwInterrupt(mem, 0)
	if c.CS != 0x1234 || c.IP != 0x1000 {
		t.Errorf("CS:IP = %04X:%04X, want 1234:1000", c.CS, c.IP)
	}
	_ = io
}

func TestUnimplementedOpcodeLatchesError(t *testing.T) {
	c, mem, io := freshMachine()
	load(mem, 0x7C00, []byte{0x0F}) // two-byte escape, unimplemented here
	if err := c.Step(mem, io); err == nil {
		t.Fatal("expected an error for an unimplemented opcode")
	}
	if !c.IsError() {
		t.Fatal("expected IsError() true after a fault")
	}
	if err := c.Step(mem, io); err == nil {
		t.Fatal("expected Step to keep returning the latched error")
	}
}

func TestDumpInstructionHistoryIncludesFetchedOpcodes(t *testing.T) {
	c, mem, io := freshMachine()
	load(mem, 0x7C00, []byte{0x90, 0x90})
	_ = c.Step(mem, io)
	_ = c.Step(mem, io)
	hist := c.DumpInstructionHistory()
	if hist == "" {
		t.Fatal("expected non-empty instruction history")
	}
}
