package dma

import (
	"testing"

	"pcxt/internal/membus"
)

func programChannel(c *Controller, channel int, addr, count uint16) {
	addrTag := channel * 2
	countTag := addrTag + 1
	c.WritePort(TagClearFlipFlop, 0)
	c.WritePort(addrTag, byte(addr))
	c.WritePort(addrTag, byte(addr>>8))
	c.WritePort(TagClearFlipFlop, 0)
	c.WritePort(countTag, byte(count))
	c.WritePort(countTag, byte(count>>8))
	c.WritePort(TagSingleMask, byte(channel)) // unmask (bit 2 clear)
}

func TestRequestRefreshSetsPendingFlag(t *testing.T) {
	c := New()
	if c.RefreshPending() {
		t.Fatal("should not be pending before any request")
	}
	c.RequestRefresh()
	if !c.RefreshPending() {
		t.Fatal("expected pending after RequestRefresh")
	}
}

func TestRunClearsRefreshRequest(t *testing.T) {
	c := New()
	mem := membus.New()
	c.RequestRefresh()
	c.Run(mem)
	if c.RefreshPending() {
		t.Fatal("Run should clear the pending refresh flag")
	}
}

func TestReadByteAdvancesAddressAndCount(t *testing.T) {
	c := New()
	mem := membus.New()
	src := []byte{0xAA, 0xBB, 0xCC}
	if err := mem.CopyFrom(src, 0x1000, 4, false); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	programChannel(c, 0, 0x1000, 2)

	v, terminal := c.ReadByte(mem, 0)
	if v != 0xAA || terminal {
		t.Errorf("byte 1: got (0x%02X, %v), want (0xAA, false)", v, terminal)
	}
	v, terminal = c.ReadByte(mem, 0)
	if v != 0xBB || terminal {
		t.Errorf("byte 2: got (0x%02X, %v), want (0xBB, false)", v, terminal)
	}
	v, terminal = c.ReadByte(mem, 0)
	if v != 0xCC || !terminal {
		t.Errorf("byte 3: got (0x%02X, %v), want (0xCC, true)", v, terminal)
	}
}

func TestWriteByteWritesThroughToMemory(t *testing.T) {
	c := New()
	mem := membus.New()
	programChannel(c, 1, 0x2000, 1)

	c.WriteByte(mem, 1, 0x42)
	v, _, _ := mem.ReadU8(0x2000)
	if v != 0x42 {
		t.Errorf("memory at 0x2000 = 0x%02X, want 0x42", v)
	}
}

func TestMaskedChannelIsNotReady(t *testing.T) {
	c := New()
	if c.ChannelReady(2) {
		t.Fatal("fresh channel should start masked")
	}
	programChannel(c, 2, 0x3000, 5)
	if !c.ChannelReady(2) {
		t.Fatal("expected channel to be ready after programming with nonzero count")
	}
}

func TestMasterClearResetsAllChannels(t *testing.T) {
	c := New()
	programChannel(c, 0, 0x1000, 5)
	c.WritePort(TagMasterClear, 0)
	if c.ChannelReady(0) {
		t.Fatal("master clear should leave channels masked")
	}
}

func TestPageRegisterRoundTrip(t *testing.T) {
	c := New()
	c.WritePort(TagPage1, 0x0A)
	if got := c.ReadPort(TagPage1); got != 0x0A {
		t.Errorf("page1 = 0x%02X, want 0x0A", got)
	}
}
