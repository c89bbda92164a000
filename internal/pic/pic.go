// Package pic implements an Intel 8259-class Programmable Interrupt
// Controller subset: enough of the command/data port protocol and the
// interrupt-request/in-service registers for the scheduler to deliver
// vectored hardware interrupts in priority order.
package pic

import "fmt"

// Port tags, registered on iobus at CommandPort/DataPort.
const (
	TagCommand = iota
	TagData
)

// Well-known port addresses, grounded on the original machine wiring.
const (
	CommandPort = 0x20
	DataPort    = 0x21
)

const (
	icw1Init    = 0x10
	ocwReadIRR  = 0x0A
	ocwReadISR  = 0x0B
	eoiNonSpec  = 0x20
	numIRQLines = 8
)

// initState tracks which ICW the controller expects next during the
// 8259's multi-byte initialization sequence.
type initState int

const (
	stateReady initState = iota
	stateExpectICW2
	stateExpectICW4
)

// PIC is a single 8259. Only one cascaded controller is modeled; the
// original PC/XT machines this core targets only populate the master.
type PIC struct {
	irr       byte // interrupt request register: lines asserted
	imr       byte // interrupt mask register
	isr       byte // in-service register
	vectorBase byte
	init      initState
	icw4Needed bool
}

// New returns a PIC with all lines masked and no vector base configured.
func New() *PIC {
	return &PIC{imr: 0xFF}
}

// Reset returns the controller to its post-power-on state.
func (p *PIC) Reset() {
	*p = PIC{imr: 0xFF}
}

// RequestInterrupt asserts IRQ line (0-7).
func (p *PIC) RequestInterrupt(line uint8) {
	if line < numIRQLines {
		p.irr |= 1 << line
	}
}

// QueryInterruptLine reports whether any unmasked line is currently
// requesting attention. The in-service register is not consulted: a line
// already in service does not hold back a new request.
func (p *PIC) QueryInterruptLine() bool {
	pending := p.irr &^ p.imr
	return pending != 0
}

// GetInterruptVector selects the highest-priority pending line (0 is
// highest), clears it from the request register, marks it in-service, and
// returns vectorBase+line. It returns ok=false if nothing is pending.
func (p *PIC) GetInterruptVector() (vector uint8, ok bool) {
	pending := p.irr &^ p.imr
	if pending == 0 {
		return 0, false
	}
	for line := uint8(0); line < numIRQLines; line++ {
		if pending&(1<<line) != 0 {
			p.irr &^= 1 << line
			p.isr |= 1 << line
			return p.vectorBase + line, true
		}
	}
	return 0, false
}

// ReadPort implements iobus.PortDevice.
func (p *PIC) ReadPort(tag int) byte {
	switch tag {
	case TagCommand:
		return p.isr // last OCW3 read-register selection collapses to ISR for simplicity
	case TagData:
		return p.imr
	default:
		return 0xFF
	}
}

// WritePort implements iobus.PortDevice.
func (p *PIC) WritePort(tag int, value byte) {
	switch tag {
	case TagCommand:
		p.writeCommand(value)
	case TagData:
		p.writeData(value)
	}
}

func (p *PIC) writeCommand(value byte) {
	switch {
	case value&icw1Init != 0:
		// ICW1: begin initialization sequence.
		p.init = stateExpectICW2
		p.icw4Needed = value&0x01 != 0
		p.irr = 0
		p.isr = 0
	case value&0x18 == 0 && value != ocwReadIRR && value != ocwReadISR:
		// OCW2: EOI variants. We only model non-specific EOI, which
		// clears the highest-priority in-service bit.
		if value&eoiNonSpec != 0 {
			p.nonSpecificEOI()
		}
	default:
		// OCW3 (read IRR/ISR select) — no additional state needed since
		// ReadPort always exposes ISR.
	}
}

func (p *PIC) nonSpecificEOI() {
	for line := uint8(0); line < numIRQLines; line++ {
		if p.isr&(1<<line) != 0 {
			p.isr &^= 1 << line
			return
		}
	}
}

func (p *PIC) writeData(value byte) {
	switch p.init {
	case stateExpectICW2:
		p.vectorBase = value &^ 0x07
		if p.icw4Needed {
			p.init = stateExpectICW4
		} else {
			p.init = stateReady
		}
	case stateExpectICW4:
		p.init = stateReady
	default:
		// OCW1: interrupt mask register.
		p.imr = value
	}
}

// StringState is a human-readable snapshot for introspection/debuggers.
type StringState struct {
	IRR        string
	IMR        string
	ISR        string
	VectorBase string
}

// GetStringState renders the controller's register file as text.
func (p *PIC) GetStringState() StringState {
	return StringState{
		IRR:        fmt.Sprintf("%08b", p.irr),
		IMR:        fmt.Sprintf("%08b", p.imr),
		ISR:        fmt.Sprintf("%08b", p.isr),
		VectorBase: fmt.Sprintf("0x%02X", p.vectorBase),
	}
}
