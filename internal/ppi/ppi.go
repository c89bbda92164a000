// Package ppi implements an Intel 8255-class Programmable Peripheral
// Interface subset wired the way the PC/XT motherboard wires it: port A
// carries the keyboard scancode latch (or, with bit 2 of port B set, the
// low nibble of the configuration switches), port B carries speaker gate
// and NMI/keyboard-clock control bits written by software, and port C
// exposes the remaining configuration-switch bits.
//
// Grounded on the teacher's input/controller.go strobe/latch shape,
// adapted from an 8-bit button shift register read one bit at a time into
// a single keyboard-byte latch read whole.
package ppi

import "pcxt/internal/pic"

// Port tags.
const (
	TagPortA = iota
	TagPortB
	TagPortC
	TagControl
)

// Well-known port addresses.
const (
	PortAAddr   = 0x60
	PortBAddr   = 0x61
	PortCAddr   = 0x62
	ControlPort = 0x63
)

const keyboardIRQLine = 1

// Port B control bits (as driven by BIOS/DOS on real PC/XT hardware).
const (
	portBSpeakerGate   = 1 << 0
	portBSpeakerData   = 1 << 1
	portBSwitchSelect  = 1 << 2 // 0: port A = keyboard latch, 1: port A = SW1[3:0]
	portBKeyboardClear = 1 << 7 // clears the keyboard latch / disables clock
)

// PPI is the 8255 with the PC/XT's fixed port wiring.
type PPI struct {
	portB   byte
	dip     byte // configuration switch bank (SW1 on a 5150/5160)
	kbdByte byte
	kbdFull bool
}

// New returns a PPI with no keyboard byte latched and all switches open
// (0xFF, i.e. "off" in the inverted DIP-switch convention).
func New() *PPI {
	return &PPI{dip: 0xFF}
}

// Reset clears the latch and output bits but preserves the configuration
// switch bank, which is a hardware strap, not emulator state.
func (p *PPI) Reset() {
	p.portB = 0
	p.kbdByte = 0
	p.kbdFull = false
}

// SetDIPSwitches configures the fixed switch bank (memory size, floppy
// count, video mode, etc. packed the way the real SW1 is).
func (p *PPI) SetDIPSwitches(value byte) {
	p.dip = value
}

// LatchScancode presents one scancode byte on port A and requests IRQ1,
// mirroring the real keyboard interface's one-byte-at-a-time delivery.
func (p *PPI) LatchScancode(pic *pic.PIC, scancode byte) {
	p.kbdByte = scancode
	p.kbdFull = true
	pic.RequestInterrupt(keyboardIRQLine)
}

// ReadPort implements iobus.PortDevice.
func (p *PPI) ReadPort(tag int) byte {
	switch tag {
	case TagPortA:
		if p.portB&portBSwitchSelect != 0 {
			return p.dip & 0x0F
		}
		return p.kbdByte
	case TagPortB:
		return p.portB
	case TagPortC:
		// Port C always carries the DIP bank's high nibble: with the
		// select bit set it pairs with port A's low nibble to expose all
		// eight switches, and with it clear port A is busy with the
		// keyboard byte so port C is the only place they're visible.
		return (p.dip >> 4) & 0x0F
	default:
		return 0xFF
	}
}

// WritePort implements iobus.PortDevice.
func (p *PPI) WritePort(tag int, value byte) {
	switch tag {
	case TagPortB:
		p.portB = value
		if value&portBKeyboardClear != 0 {
			p.kbdFull = false
		}
	case TagControl:
		// Mode-set/bit-set-reset command word: this core always wires
		// port A as keyboard input and port B as software-driven output,
		// so no alternate mode is modeled.
	}
}

// Run exists to satisfy the scheduler's uniform per-device tick contract.
// The 8255 itself has no free-running state of its own to advance here;
// all of its behavior is driven synchronously by port reads/writes and
// by LatchScancode.
func (p *PPI) Run(pic *pic.PIC, cycles uint32) {
	_ = pic
	_ = cycles
}

// SpeakerEnabled reports whether software has gated the PC speaker's
// timer-2 tone on, for a graphics/audio front end to consult.
func (p *PPI) SpeakerEnabled() bool {
	return p.portB&portBSpeakerGate != 0 && p.portB&portBSpeakerData != 0
}

// KeyboardLatched reports whether a scancode byte is currently held in
// the port A latch, for introspection.
func (p *PPI) KeyboardLatched() bool {
	return p.kbdFull
}
