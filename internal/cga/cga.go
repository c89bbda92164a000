// Package cga implements a Color Graphics Adapter subset: the 6845-style
// CRTC index/data register file, the mode-control/color-select/status
// ports, and a decoder from the 16 KiB frame buffer window into an RGBA
// image for 80x25 text mode and 320x200 4-color graphics mode.
//
// Grounded on the teacher's internal/ppu register-file-plus-frame-buffer
// shape (PPUCTRL/PPUMASK-style control registers feeding a flat RGB
// buffer rendered once per frame), with the palette and mode-control bit
// layout taken from original_source/src/video.rs.
package cga

import (
	"pcxt/internal/iobus"
	"pcxt/internal/membus"
)

// Port tags.
const (
	TagCRTCIndex = iota
	TagCRTCData
	TagModeControl
	TagColorSelect
	TagStatus
)

// Well-known port addresses.
const (
	CRTCIndexPort   = 0x3D4
	CRTCDataPort    = 0x3D5
	ModeControlPort = 0x3D8
	ColorSelectPort = 0x3D9
	StatusPort      = 0x3DA
)

// MemoryAddress and MemorySize describe the CGA frame buffer window as
// mapped onto the system memory bus.
const (
	MemoryAddress = 0xB8000
	MemorySize    = 0x4000
)

const numCRTCRegisters = 18

// Mode control register bits (port 0x3D8).
const (
	modeText80Col   = 1 << 0
	modeGraphics    = 1 << 1
	modeMonochrome  = 1 << 2
	modeVideoEnable = 1 << 3
	modeHiResMono   = 1 << 4
	modeBlink       = 1 << 5
)

// Status register bits (port 0x3DA, read-only).
const (
	statusHRetrace  = 1 << 0
	statusLightPen  = 1 << 1
	statusVRetrace  = 1 << 3
)

const (
	TextCols  = 80
	TextRows  = 25
	CharWidth = 8
	CharHeight = 8

	GraphicsWidth  = 320
	GraphicsHeight = 200
)

// palette16 is the standard CGA 16-color RGBA table.
var palette16 = [16][4]byte{
	{0x00, 0x00, 0x00, 0xFF}, {0x00, 0x00, 0xAA, 0xFF},
	{0x00, 0xAA, 0x00, 0xFF}, {0x00, 0xAA, 0xAA, 0xFF},
	{0xAA, 0x00, 0x00, 0xFF}, {0xAA, 0x00, 0xAA, 0xFF},
	{0xAA, 0x55, 0x00, 0xFF}, {0xAA, 0xAA, 0xAA, 0xFF},
	{0x55, 0x55, 0x55, 0xFF}, {0x55, 0x55, 0xFF, 0xFF},
	{0x55, 0xFF, 0x55, 0xFF}, {0x55, 0xFF, 0xFF, 0xFF},
	{0xFF, 0x55, 0x55, 0xFF}, {0xFF, 0x55, 0xFF, 0xFF},
	{0xFF, 0xFF, 0x55, 0xFF}, {0xFF, 0xFF, 0xFF, 0xFF},
}

// graphicsPalette is the 4-entry palette a 320x200 mode selects among
// via the color-select register's palette bit (palette 0: green/red/
// brown, palette 1: cyan/magenta/white), both at the chosen intensity.
func graphicsPalette(colorSelect byte) [4][4]byte {
	background := palette16[colorSelect&0x0F]
	intense := colorSelect&0x10 != 0
	if colorSelect&0x20 != 0 {
		if intense {
			return [4][4]byte{background, palette16[11], palette16[13], palette16[15]}
		}
		return [4][4]byte{background, palette16[3], palette16[5], palette16[7]}
	}
	if intense {
		return [4][4]byte{background, palette16[10], palette16[12], palette16[14]}
	}
	return [4][4]byte{background, palette16[2], palette16[4], palette16[6]}
}

// Card is a single CGA adapter.
type Card struct {
	crtcIndex byte
	crtcRegs  [numCRTCRegisters]byte

	modeControl byte
	colorSelect byte

	scanCounter uint32
}

// New returns a Card with video output disabled (matching power-on,
// before the BIOS programs a mode).
func New() *Card {
	return &Card{}
}

// Reset returns the adapter to its power-on register state.
func (c *Card) Reset() {
	*c = Card{}
}

// ReadPort implements iobus.PortDevice.
func (c *Card) ReadPort(tag int) byte {
	switch tag {
	case TagCRTCData:
		return c.crtcRegs[c.crtcIndex%numCRTCRegisters]
	case TagStatus:
		return c.status()
	default:
		return 0xFF
	}
}

// WritePort implements iobus.PortDevice.
func (c *Card) WritePort(tag int, value byte) {
	switch tag {
	case TagCRTCIndex:
		c.crtcIndex = value % numCRTCRegisters
	case TagCRTCData:
		c.crtcRegs[c.crtcIndex] = value
	case TagModeControl:
		c.modeControl = value
	case TagColorSelect:
		c.colorSelect = value
	}
}

// Run advances the adapter's retrace counter by cycles, used to produce
// alternating horizontal/vertical retrace status bits for software that
// polls port 0x3DA (e.g. "snow" avoidance routines). The I/O bus
// parameter is accepted for parity with the scheduler's device contract;
// this adapter's ports are dispatched by iobus directly and need no
// further bus access from within Run.
func (c *Card) Run(io *iobus.Bus, cycles uint32) {
	_ = io
	c.scanCounter += cycles
}

func (c *Card) status() byte {
	// A coarse approximation: retrace bits toggle on a fixed period of
	// the accumulated cycle counter rather than a full CRTC timing model.
	var s byte
	if c.scanCounter%912 < 100 {
		s |= statusHRetrace
	}
	if c.scanCounter%29850 < 3000 {
		s |= statusVRetrace
	}
	return s
}

// Enabled reports whether the adapter currently has video output turned
// on.
func (c *Card) Enabled() bool {
	return c.modeControl&modeVideoEnable != 0
}

// GraphicsMode reports whether the card is in 320x200 4-color mode
// instead of 80x25 text mode.
func (c *Card) GraphicsMode() bool {
	return c.modeControl&modeGraphics != 0
}

// FrameRGBA decodes the current frame buffer contents (read through mem,
// the system memory bus holding the CGA window at MemoryAddress) into a
// tightly packed RGBA image sized to the active mode, returning the pixel
// buffer and its (width, height).
func (c *Card) FrameRGBA(mem *membus.MemoryBus) (pixels []byte, width, height int) {
	buf := mem.GetSliceAt(MemoryAddress, MemorySize)
	if c.GraphicsMode() {
		return c.renderGraphics(buf), GraphicsWidth, GraphicsHeight
	}
	return c.renderText(buf), TextCols * CharWidth, TextRows * CharHeight
}

// renderGraphics decodes 320x200 4-color mode: 2 bits per pixel, packed
// 4 pixels per byte, even scanlines in the first 8 KiB bank and odd
// scanlines in the second, per the CGA's interlaced addressing scheme.
func (c *Card) renderGraphics(buf []byte) []byte {
	pal := graphicsPalette(c.colorSelect)
	pixels := make([]byte, GraphicsWidth*GraphicsHeight*4)
	for y := 0; y < GraphicsHeight; y++ {
		bankOffset := 0
		if y%2 != 0 {
			bankOffset = 0x2000
		}
		rowStart := bankOffset + (y/2)*(GraphicsWidth/4)
		for x := 0; x < GraphicsWidth; x++ {
			byteIdx := rowStart + x/4
			if byteIdx >= len(buf) {
				continue
			}
			shift := uint(6 - 2*(x%4))
			colorIdx := (buf[byteIdx] >> shift) & 0x03
			color := pal[colorIdx]
			off := (y*GraphicsWidth + x) * 4
			copy(pixels[off:off+4], color[:])
		}
	}
	return pixels
}

// renderText decodes 80x25 text mode: each character cell is two bytes
// (character, attribute); a glyph bitmap font is out of scope for this
// core, so each cell is rendered as a solid block in its background/
// foreground colors split at the cell's vertical midpoint, enough to
// exercise the palette and attribute-byte decode without a font ROM.
func (c *Card) renderText(buf []byte) []byte {
	width := TextCols * CharWidth
	height := TextRows * CharHeight
	pixels := make([]byte, width*height*4)
	for row := 0; row < TextRows; row++ {
		for col := 0; col < TextCols; col++ {
			cellOffset := (row*TextCols + col) * 2
			if cellOffset+1 >= len(buf) {
				continue
			}
			attr := buf[cellOffset+1]
			fg := palette16[attr&0x0F]
			bg := palette16[(attr>>4)&0x07]
			for py := 0; py < CharHeight; py++ {
				y := row*CharHeight + py
				color := bg
				if py < CharHeight/2 {
					color = fg
				}
				for px := 0; px < CharWidth; px++ {
					x := col*CharWidth + px
					off := (y*width + x) * 4
					copy(pixels[off:off+4], color[:])
				}
			}
		}
	}
	return pixels
}
