package pit

import (
	"testing"

	"pcxt/internal/dma"
	"pcxt/internal/iobus"
	"pcxt/internal/membus"
	"pcxt/internal/pic"
)

func programMode2(p *PIT, channel int, reload uint16) {
	// SC=channel, RW=lobyte/hibyte (11), mode=2, BCD=0
	cmd := byte(channel<<6) | 0x30 | (2 << 1)
	p.WritePort(TagCommand, cmd)
	p.WritePort(channel, byte(reload))
	p.WritePort(channel, byte(reload>>8))
}

// unmaskedPIC returns a PIC initialized with every line unmasked, so
// QueryInterruptLine reflects any requested IRQ (pic.New masks them all).
func unmaskedPIC() *pic.PIC {
	pc := pic.New()
	pc.WritePort(pic.TagCommand, 0x10) // ICW1
	pc.WritePort(pic.TagData, 0x08)    // ICW2: vector base
	pc.WritePort(pic.TagData, 0x00)    // OCW1: unmask everything
	return pc
}

func TestChannel0TerminalCountRequestsIRQ0(t *testing.T) {
	p := New()
	programMode2(p, TagChannel0, 4)

	io := iobus.New()
	mem := membus.New()
	pc := unmaskedPIC()
	dmaCtl := dma.New()

	p.Run(io, mem, pc, dmaCtl, 4)
	if !pc.QueryInterruptLine() {
		t.Fatal("expected IRQ0 to be requested after 4 ticks of a reload-4 counter")
	}
}

func TestChannel1TerminalCountRequestsRefresh(t *testing.T) {
	p := New()
	programMode2(p, TagChannel1, 2)

	io := iobus.New()
	mem := membus.New()
	pc := pic.New()
	dmaCtl := dma.New()

	p.Run(io, mem, pc, dmaCtl, 2)
	if !dmaCtl.RefreshPending() {
		t.Fatal("expected a refresh request after channel 1 reaches terminal count")
	}
}

func TestUnprogrammedChannelsDoNotFire(t *testing.T) {
	p := New()
	io := iobus.New()
	mem := membus.New()
	pc := unmaskedPIC()
	dmaCtl := dma.New()

	p.Run(io, mem, pc, dmaCtl, 1000)
	if pc.QueryInterruptLine() {
		t.Fatal("an unprogrammed PIT must not assert interrupts")
	}
	if dmaCtl.RefreshPending() {
		t.Fatal("an unprogrammed PIT must not request refreshes")
	}
}

func TestMode2AutoReloads(t *testing.T) {
	p := New()
	programMode2(p, TagChannel0, 3)

	io := iobus.New()
	mem := membus.New()
	pc := unmaskedPIC()
	dmaCtl := dma.New()

	p.Run(io, mem, pc, dmaCtl, 3)
	if !pc.QueryInterruptLine() {
		t.Fatal("expected first terminal count")
	}
	pc.GetInterruptVector() // clear

	p.Run(io, mem, pc, dmaCtl, 3)
	if !pc.QueryInterruptLine() {
		t.Fatal("expected mode 2 to auto-reload and fire again after another full period")
	}
}
