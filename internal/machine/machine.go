// Package machine wires every device onto the memory and I/O buses and
// drives the scheduler's virtual-step loop: one CPU instruction, hardware
// interrupt delivery, a once-per-run keyboard drain, then every tickable
// device advanced by the fixed per-step cycle budget.
//
// Grounded line-for-line on original_source/src/machine.rs's
// Machine::new (port registration order) and Machine::run (the per-step
// phase order: reset/step flags, CPU step, interrupt delivery, keyboard
// drain, DMA/PIT/CGA/PPI/FDC/HDC run calls, fixed fake_cycles=7 budget).
package machine

import (
	"fmt"

	"pcxt/internal/cga"
	"pcxt/internal/cpu"
	"pcxt/internal/dma"
	"pcxt/internal/execctl"
	"pcxt/internal/fdc"
	"pcxt/internal/hdc"
	"pcxt/internal/iobus"
	"pcxt/internal/keyboard"
	"pcxt/internal/membus"
	"pcxt/internal/pic"
	"pcxt/internal/pit"
	"pcxt/internal/ppi"
	"pcxt/internal/rommgr"
)

// MachineType selects the base system profile.
type MachineType int

const (
	IBM_PC_5150 MachineType = iota
	IBM_XT_5160
)

// VideoType selects which video adapter is installed. Only CGA is
// implemented in this core; the others are recognized for
// configuration-compatibility with the original's machine profiles.
type VideoType int

const (
	VideoMDA VideoType = iota
	VideoCGA
	VideoEGA
	VideoVGA
)

// WiringError reports a failure to assemble a Machine: a duplicate I/O
// port registration, a ROM image that doesn't fit its memory window, or
// an unsupported video adapter type. machine.New returns one whenever
// construction cannot proceed; callers must treat it as fatal rather
// than starting a partially-wired machine.
type WiringError struct {
	Stage string // "ports", "rom", "video"
	Err   error
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("machine: wiring failed at %s: %v", e.Stage, e.Err)
}

func (e *WiringError) Unwrap() error {
	return e.Err
}

// FakeCycles is the fixed per-virtual-step device cycle budget. A real
// instruction's cost varies with its addressing mode and the bus's wait
// states; this core charges every instruction the same average cost
// rather than modeling per-cycle bus contention, matching the original's
// documented development-time simplification.
const FakeCycles = 7

// Machine owns every device and the buses that connect them.
type Machine struct {
	MachineType MachineType
	VideoType   VideoType

	Bus   *membus.MemoryBus
	IOBus *iobus.Bus

	CPU *cpu.CPU
	PIC *pic.PIC
	PIT *pit.PIT
	DMA *dma.Controller
	PPI *ppi.PPI
	CGA *cga.Card
	FDC *fdc.Controller
	HDC *hdc.Controller

	ROM *rommgr.Manager

	Keyboard *keyboard.Queue

	error    bool
	errorStr string
	cpuCycles uint64
}

// New constructs a fully wired machine: every device registered on the
// I/O bus, ROM images staged onto the memory bus, and the CPU pointed at
// the ROM manager's configured entry point.
func New(machineType MachineType, videoType VideoType, rom *rommgr.Manager, dipSwitches byte) (*Machine, error) {
	if videoType != VideoCGA {
		return nil, &WiringError{Stage: "video", Err: fmt.Errorf("video type %d not implemented in this core", videoType)}
	}

	m := &Machine{
		MachineType: machineType,
		VideoType:   videoType,
		Bus:         membus.New(),
		IOBus:       iobus.New(),
		CPU:         cpu.New(),
		PIC:         pic.New(),
		PIT:         pit.New(),
		DMA:         dma.New(),
		PPI:         ppi.New(),
		CGA:         cga.New(),
		FDC:         fdc.New(),
		HDC:         hdc.New(dipSwitches),
		ROM:         rom,
		Keyboard:    keyboard.New(),
	}

	if err := m.registerPorts(); err != nil {
		return nil, &WiringError{Stage: "ports", Err: err}
	}
	if err := rom.CopyIntoMemory(m.Bus); err != nil {
		return nil, &WiringError{Stage: "rom", Err: err}
	}

	seg, off := rom.Entrypoint()
	m.CPU.SetResetAddress(seg, off)
	m.Reset()
	return m, nil
}

func (m *Machine) registerPorts() error {
	reg := func(port uint16, device iobus.PortDevice, tag int) error {
		return m.IOBus.RegisterPortHandler(port, device, tag)
	}
	regs := []struct {
		port   uint16
		device iobus.PortDevice
		tag    int
	}{
		{pic.CommandPort, m.PIC, pic.TagCommand},
		{pic.DataPort, m.PIC, pic.TagData},

		{pit.Channel0DataPort, m.PIT, pit.TagChannel0},
		{pit.Channel1DataPort, m.PIT, pit.TagChannel1},
		{pit.Channel2DataPort, m.PIT, pit.TagChannel2},
		{pit.CommandPort, m.PIT, pit.TagCommand},

		{dma.Channel0AddrPort, m.DMA, dma.TagCh0Addr},
		{dma.Channel0CountPort, m.DMA, dma.TagCh0Count},
		{dma.Channel1AddrPort, m.DMA, dma.TagCh1Addr},
		{dma.Channel1CountPort, m.DMA, dma.TagCh1Count},
		{dma.Channel2AddrPort, m.DMA, dma.TagCh2Addr},
		{dma.Channel2CountPort, m.DMA, dma.TagCh2Count},
		{dma.Channel3AddrPort, m.DMA, dma.TagCh3Addr},
		{dma.Channel3CountPort, m.DMA, dma.TagCh3Count},
		{dma.CommandPort, m.DMA, dma.TagCommand},
		{dma.RequestPort, m.DMA, dma.TagRequest},
		{dma.SingleMaskPort, m.DMA, dma.TagSingleMask},
		{dma.ModePort, m.DMA, dma.TagMode},
		{dma.ClearFlipFlopPort, m.DMA, dma.TagClearFlipFlop},
		{dma.MasterClearPort, m.DMA, dma.TagMasterClear},
		{dma.ClearMaskPort, m.DMA, dma.TagClearMask},
		{dma.WriteMaskPort, m.DMA, dma.TagWriteMask},
		{dma.Page0Port, m.DMA, dma.TagPage0},
		{dma.Page1Port, m.DMA, dma.TagPage1},
		{dma.Page2Port, m.DMA, dma.TagPage2},
		{dma.Page3Port, m.DMA, dma.TagPage3},

		{ppi.PortAAddr, m.PPI, ppi.TagPortA},
		{ppi.PortBAddr, m.PPI, ppi.TagPortB},
		{ppi.PortCAddr, m.PPI, ppi.TagPortC},
		{ppi.ControlPort, m.PPI, ppi.TagControl},

		{fdc.DigitalOutputPort, m.FDC, fdc.TagDigitalOutput},
		{fdc.MainStatusPort, m.FDC, fdc.TagMainStatus},
		{fdc.DataPort, m.FDC, fdc.TagData},

		{hdc.DataPort, m.HDC, hdc.TagData},
		{hdc.StatusPort, m.HDC, hdc.TagStatus},
		{hdc.DIPSwitchPort, m.HDC, hdc.TagDIPSwitch},
		{hdc.WriteMaskPort, m.HDC, hdc.TagWriteMask},

		{cga.CRTCIndexPort, m.CGA, cga.TagCRTCIndex},
		{cga.CRTCDataPort, m.CGA, cga.TagCRTCData},
		{cga.ModeControlPort, m.CGA, cga.TagModeControl},
		{cga.ColorSelectPort, m.CGA, cga.TagColorSelect},
		{cga.StatusPort, m.CGA, cga.TagStatus},
	}
	for _, r := range regs {
		if err := reg(r.port, r.device, r.tag); err != nil {
			return err
		}
	}
	return nil
}

// Reset reinitializes the CPU, memory bus, PIT and PIC, mirroring the
// original's (deliberately partial) reset scope: DMA, PPI, FDC, HDC and
// CGA survive a reset unless the machine is fully reconstructed. The bus
// reset zeroes RAM, so the ROM manager's images are stamped back in.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.Bus.Reset()
	_ = m.ROM.CopyIntoMemory(m.Bus) // same images New staged successfully
	m.PIT.Reset()
	m.PIC.Reset()
	m.error = false
	m.errorStr = ""
}

// IsError reports whether the CPU has latched a fault.
func (m *Machine) IsError() bool {
	return m.error
}

// ErrorString returns the latched fault's message, or "" if none.
func (m *Machine) ErrorString() string {
	return m.errorStr
}

// CPUCycles returns the cumulative virtual-step cycle counter.
func (m *Machine) CPUCycles() uint64 {
	return m.cpuCycles
}

// Run advances the machine according to exec's current state: Paused
// does nothing unless a one-shot step was requested; Running or
// BreakpointHit advances up to cycleTarget cycles (in units of
// FakeCycles per virtual step), stopping early if breakpoint (a nonzero
// flat address) is reached.
func (m *Machine) Run(cycleTarget uint32, exec *execctl.Control, breakpoint int) {
	if exec.ConsumeReset() {
		m.Reset()
		return
	}

	ignoreBreakpoint := false
	target := cycleTarget
	switch exec.State() {
	case execctl.Paused:
		if !exec.ConsumeStep() {
			return
		}
		ignoreBreakpoint = true
		target = FakeCycles
	case execctl.Running, execctl.BreakpointHit:
		// use cycleTarget as given
	}

	kbEventProcessed := false
	var elapsed uint32
	for elapsed < target {
		if !m.error {
			flatAddr := m.CPU.GetFlatAddress()

			if breakpoint != 0 && flatAddr == breakpoint && !ignoreBreakpoint {
				exec.SetState(execctl.BreakpointHit)
				return
			}

			if label, ok := m.ROM.Checkpoint(flatAddr); ok {
				_ = label // informational only; a real front end would trace-log this
			}
			if m.ROM.IsPatchCheckpoint(flatAddr) {
				_ = m.ROM.InstallPatches(m.Bus, flatAddr)
			}

			if err := m.CPU.Step(m.Bus, m.IOBus); err != nil {
				m.error = true
				m.errorStr = err.Error()
			}

			if m.CPU.InterruptsEnabled() && m.PIC.QueryInterruptLine() {
				if vector, ok := m.PIC.GetInterruptVector(); ok {
					m.CPU.DoHwInterrupt(m.Bus, vector)
				}
			}

			if !kbEventProcessed {
				if scancode, ok := m.Keyboard.Pop(); ok {
					m.PPI.LatchScancode(m.PIC, scancode)
					kbEventProcessed = true
				}
			}

			m.DMA.Run(m.Bus)
			m.PIT.Run(m.IOBus, m.Bus, m.PIC, m.DMA, FakeCycles)
			m.CGA.Run(m.IOBus, FakeCycles)
			m.PPI.Run(m.PIC, FakeCycles)
			m.FDC.Run(m.Bus, m.PIC, m.DMA, FakeCycles)
			m.HDC.Run(m.Bus, m.PIC, m.DMA, FakeCycles)
		}
		elapsed += FakeCycles
		m.cpuCycles += FakeCycles
	}
}

// PicState, PitState and DmaState are introspection accessors for a
// debugger/front end. There is no PPI state accessor.
func (m *Machine) PicState() pic.StringState   { return m.PIC.GetStringState() }
func (m *Machine) PitState() pit.StringState   { return m.PIT.GetStringRepr() }
func (m *Machine) DmaState() dma.StringState   { return m.DMA.GetStringState() }
