// Package dma implements an Intel 8237-class DMA controller subset: four
// channels with 16-bit address/count registers and an 8-bit page register
// apiece, plus the periodic DRAM-refresh request that channel 0 services
// on real PC/XT hardware.
//
// Grounded on the teacher's bus.go TriggerOAMDMA, generalized from a
// single fixed-size sprite-DMA copy into addressable, device-driven
// byte-at-a-time transfers plus a free-running refresh channel.
package dma

import (
	"fmt"

	"pcxt/internal/membus"
)

// NumChannels is the number of DMA channels modeled (0-3, as on the
// original PC/XT; the second 8237 used for 16-bit transfers on later AT
// systems is out of scope).
const NumChannels = 4

// Port tags for the low 8 address/count ports (0x00-0x07), the eight
// command/mode/mask ports (0x08-0x0F), and the four page registers.
const (
	TagCh0Addr = iota
	TagCh0Count
	TagCh1Addr
	TagCh1Count
	TagCh2Addr
	TagCh2Count
	TagCh3Addr
	TagCh3Count
	TagCommand
	TagRequest
	TagSingleMask
	TagMode
	TagClearFlipFlop
	TagMasterClear
	TagClearMask
	TagWriteMask
	TagPage0
	TagPage1
	TagPage2
	TagPage3
)

// Well-known port addresses.
const (
	Channel0AddrPort  = 0x00
	Channel0CountPort = 0x01
	Channel1AddrPort  = 0x02
	Channel1CountPort = 0x03
	Channel2AddrPort  = 0x04
	Channel2CountPort = 0x05
	Channel3AddrPort  = 0x06
	Channel3CountPort = 0x07
	CommandPort       = 0x08
	RequestPort       = 0x09
	SingleMaskPort    = 0x0A
	ModePort          = 0x0B
	ClearFlipFlopPort = 0x0C
	MasterClearPort   = 0x0D
	ClearMaskPort     = 0x0E
	WriteMaskPort     = 0x0F

	Page1Port = 0x83 // channel 1
	Page2Port = 0x81 // channel 2
	Page3Port = 0x82 // channel 3
	Page0Port = 0x87 // channel 0, used for refresh
)

type channel struct {
	page         byte
	baseAddress  uint16
	currentAddr  uint16
	baseCount    uint16
	currentCount uint16
	mode         byte
	masked       bool
	terminalCount bool
}

// Controller is the 8237 with all four channels.
type Controller struct {
	channels  [NumChannels]channel
	flipFlop  bool // low/high byte toggle shared by all address/count ports
	refreshPending bool
}

// New returns a Controller with every channel masked, matching power-on.
func New() *Controller {
	c := &Controller{}
	for i := range c.channels {
		c.channels[i].masked = true
	}
	return c
}

// Reset returns the controller to its power-on state.
func (c *Controller) Reset() {
	*c = *New()
}

// RequestRefresh marks a pending DRAM-refresh DMA cycle, raised by the PIT
// on channel 1's terminal count in the real machine's wiring.
func (c *Controller) RequestRefresh() {
	c.refreshPending = true
}

// RefreshPending reports whether a refresh request is still awaiting
// service.
func (c *Controller) RefreshPending() bool {
	return c.refreshPending
}

// Run services any pending refresh request. Device-initiated transfers
// (floppy/hard-disk sector DMA) are serviced synchronously through
// ReadByte/WriteByte instead of from here, since they are driven by the
// requesting device's own Run call within the same virtual step.
func (c *Controller) Run(mem *membus.MemoryBus) {
	if c.refreshPending {
		// A real refresh cycle performs a dummy read of the address
		// channel 0 is parked at and advances it; no data movement is
		// observable, so we just clear the flag and advance bookkeeping.
		ch := &c.channels[0]
		if !ch.masked {
			ch.currentAddr++
			if ch.currentCount == 0 {
				ch.terminalCount = true
				ch.currentCount = ch.baseCount
			} else {
				ch.currentCount--
			}
		}
		c.refreshPending = false
	}
}

// ReadByte performs a memory-to-device transfer on channel: it reads one
// byte from the channel's current physical address, advances the
// address/count, and reports whether the channel has reached terminal
// count.
func (c *Controller) ReadByte(mem *membus.MemoryBus, channel int) (value byte, terminal bool) {
	ch := &c.channels[channel]
	addr := int(ch.page)<<16 | int(ch.currentAddr)
	v, _, _ := mem.ReadU8(addr)
	c.advance(ch)
	return v, ch.terminalCount
}

// WriteByte performs a device-to-memory transfer on channel, mirroring
// ReadByte for the opposite direction.
func (c *Controller) WriteByte(mem *membus.MemoryBus, channel int, value byte) (terminal bool) {
	ch := &c.channels[channel]
	addr := int(ch.page)<<16 | int(ch.currentAddr)
	_, _ = mem.WriteU8(addr, value)
	c.advance(ch)
	return ch.terminalCount
}

func (c *Controller) advance(ch *channel) {
	ch.currentAddr++
	if ch.currentCount == 0 {
		ch.terminalCount = true
	} else {
		ch.currentCount--
		ch.terminalCount = false
	}
}

// ChannelReady lets a device query whether its channel is ready (not
// masked, and configured with a nonzero base count) before relying on
// ReadByte/WriteByte.
func (c *Controller) ChannelReady(channel int) bool {
	ch := c.channels[channel]
	return !ch.masked && ch.baseCount > 0
}

// ReadPort implements iobus.PortDevice.
func (c *Controller) ReadPort(tag int) byte {
	switch {
	case tag >= TagCh0Addr && tag <= TagCh3Count:
		channel := tag / 2
		isCount := tag%2 == 1
		return c.readAddrOrCount(channel, isCount)
	case tag == TagPage0:
		return c.channels[0].page
	case tag == TagPage1:
		return c.channels[1].page
	case tag == TagPage2:
		return c.channels[2].page
	case tag == TagPage3:
		return c.channels[3].page
	default:
		return 0xFF
	}
}

func (c *Controller) readAddrOrCount(channel int, isCount bool) byte {
	ch := &c.channels[channel]
	var word uint16
	if isCount {
		word = ch.currentCount
	} else {
		word = ch.currentAddr
	}
	var b byte
	if !c.flipFlop {
		b = byte(word)
	} else {
		b = byte(word >> 8)
	}
	c.flipFlop = !c.flipFlop
	return b
}

// WritePort implements iobus.PortDevice.
func (c *Controller) WritePort(tag int, value byte) {
	switch {
	case tag >= TagCh0Addr && tag <= TagCh3Count:
		channel := tag / 2
		isCount := tag%2 == 1
		c.writeAddrOrCount(channel, isCount, value)
	case tag == TagCommand:
		// Command register: only enable/disable (bit 2) is meaningful
		// here, and we don't model controller-wide disable separately
		// from per-channel masking.
	case tag == TagRequest:
		// Software-initiated DMA request: not modeled, since every
		// device in this core drives its own channel directly.
	case tag == TagSingleMask:
		channel := int(value & 0x03)
		c.channels[channel].masked = value&0x04 != 0
	case tag == TagMode:
		channel := int(value & 0x03)
		c.channels[channel].mode = value
	case tag == TagClearFlipFlop:
		c.flipFlop = false
	case tag == TagMasterClear:
		*c = *New()
	case tag == TagClearMask:
		for i := range c.channels {
			c.channels[i].masked = false
		}
	case tag == TagWriteMask:
		for i := range c.channels {
			c.channels[i].masked = value&(1<<i) != 0
		}
	case tag == TagPage0:
		c.channels[0].page = value
	case tag == TagPage1:
		c.channels[1].page = value
	case tag == TagPage2:
		c.channels[2].page = value
	case tag == TagPage3:
		c.channels[3].page = value
	}
}

func (c *Controller) writeAddrOrCount(channel int, isCount bool, value byte) {
	ch := &c.channels[channel]
	var target *uint16
	var current *uint16
	if isCount {
		target = &ch.baseCount
		current = &ch.currentCount
	} else {
		target = &ch.baseAddress
		current = &ch.currentAddr
	}
	if !c.flipFlop {
		*target = (*target &^ 0xFF) | uint16(value)
	} else {
		*target = (*target &^ 0xFF00) | uint16(value)<<8
	}
	c.flipFlop = !c.flipFlop
	*current = *target
	ch.terminalCount = false
}

// StringState is a human-readable snapshot for introspection.
type StringState struct {
	Channels [NumChannels]string
}

// GetStringState renders every channel's live address/count/mask.
func (c *Controller) GetStringState() StringState {
	var s StringState
	for i, ch := range c.channels {
		s.Channels[i] = fmt.Sprintf("addr=0x%04X count=%d masked=%v", ch.currentAddr, ch.currentCount, ch.masked)
	}
	return s
}
