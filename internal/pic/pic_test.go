package pic

import "testing"

func initialized(vectorBase byte) *PIC {
	p := New()
	p.WritePort(TagCommand, icw1Init) // ICW1, single controller, no ICW4
	p.WritePort(TagData, vectorBase)  // ICW2: vector base
	p.WritePort(TagData, 0x00)        // OCW1: unmask everything
	return p
}

func TestNoPendingInterruptInitially(t *testing.T) {
	p := initialized(0x08)
	if p.QueryInterruptLine() {
		t.Fatal("expected no pending interrupt before any RequestInterrupt")
	}
}

func TestRequestInterruptAssertsLine(t *testing.T) {
	p := initialized(0x08)
	p.RequestInterrupt(1)
	if !p.QueryInterruptLine() {
		t.Fatal("expected pending interrupt after RequestInterrupt")
	}
	vec, ok := p.GetInterruptVector()
	if !ok {
		t.Fatal("expected a vector")
	}
	if vec != 0x09 {
		t.Errorf("vector = 0x%02X, want 0x09 (base 0x08 + line 1)", vec)
	}
	if p.QueryInterruptLine() {
		t.Fatal("line should be cleared from IRR once vectored")
	}
}

func TestMaskedLineNeverAsserts(t *testing.T) {
	p := initialized(0x08)
	p.WritePort(TagData, 0xFF) // mask everything
	p.RequestInterrupt(0)
	if p.QueryInterruptLine() {
		t.Fatal("masked line should not be reported pending")
	}
}

func TestPriorityPicksLowestLineFirst(t *testing.T) {
	p := initialized(0x08)
	p.RequestInterrupt(5)
	p.RequestInterrupt(2)
	vec, ok := p.GetInterruptVector()
	if !ok || vec != 0x0A {
		t.Errorf("got (0x%02X, %v), want (0x0A, true)", vec, ok)
	}
}

func TestEOIClearsInService(t *testing.T) {
	p := initialized(0x08)
	p.RequestInterrupt(0)
	p.GetInterruptVector()
	p.WritePort(TagCommand, 0x20) // non-specific EOI
	if got := p.GetStringState().ISR; got != "00000000" {
		t.Fatalf("ISR = %s after EOI, want 00000000", got)
	}
	// after EOI, a fresh request on the same line should be deliverable again
	p.RequestInterrupt(0)
	if !p.QueryInterruptLine() {
		t.Fatal("expected line deliverable again after EOI")
	}
}

func TestResetClearsAllState(t *testing.T) {
	p := initialized(0x08)
	p.RequestInterrupt(3)
	p.Reset()
	if p.QueryInterruptLine() {
		t.Fatal("expected no pending interrupts after reset")
	}
}
