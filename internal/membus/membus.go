// Package membus implements the 1 MiB flat physical memory bus shared by
// the CPU and every memory-mapped peripheral.
package membus

import (
	"fmt"
	"log"
)

// AddressSpace is the size of the flat physical address space: 0x00000-0xFFFFF.
const AddressSpace = 1_048_576

// DefaultCycleCost is the cycle charge the indexed accessors (ReadU8,
// ReadU16, WriteU8, WriteU16) report for every access. The per-region cost
// that CopyFrom records in the access mask is not consulted.
const DefaultCycleCost = 4

// romBit marks a mask byte as read-only (ROM). The low bits carry the
// region's cycle cost.
const romBit = 0b1000_0000

// cycleCostMask keeps every bit of the cost byte except bit 4 when
// OR-ing in the ROM bit. This looks like an off-by-one for a 4-bit field
// (0x7F would be the natural mask); kept as-is for compatibility.
const cycleCostMask = 0xEF

// RangeDescriptor records a region that was stamped into the bus via
// CopyFrom or registered via SetDescriptor.
type RangeDescriptor struct {
	Start     int
	End       int
	Size      int
	CycleCost uint32
	ReadOnly  bool
}

// MemoryBus owns the flat RAM/ROM image, its parallel access mask, and the
// descriptor list that documents which regions were stamped and why.
type MemoryBus struct {
	memory      [AddressSpace]byte
	mask        [AddressSpace]byte
	descriptors []RangeDescriptor
	cursor      int
}

// New returns a zeroed 1 MiB memory bus.
func New() *MemoryBus {
	return &MemoryBus{}
}

// Len reports the address space size; always AddressSpace.
func (b *MemoryBus) Len() int {
	return len(b.memory)
}

// ReadOutOfBoundsError is returned by the indexed read/write API when an
// address falls outside the physical address space.
type ReadOutOfBoundsError struct {
	Address int
}

func (e *ReadOutOfBoundsError) Error() string {
	return fmt.Sprintf("memory access out of bounds at 0x%05X", e.Address)
}

// ReadU8 returns the byte at addr and its cycle cost.
func (b *MemoryBus) ReadU8(addr int) (byte, uint32, error) {
	if addr < 0 || addr >= len(b.memory) {
		return 0, 0, &ReadOutOfBoundsError{addr}
	}
	return b.memory[addr], DefaultCycleCost, nil
}

// ReadI8 is ReadU8 reinterpreted as signed.
func (b *MemoryBus) ReadI8(addr int) (int8, uint32, error) {
	v, c, err := b.ReadU8(addr)
	return int8(v), c, err
}

// ReadU16 returns the little-endian word at addr and its cycle cost. A
// word that would straddle the end of the address space is out of bounds.
func (b *MemoryBus) ReadU16(addr int) (uint16, uint32, error) {
	if addr < 0 || addr >= len(b.memory)-1 {
		return 0, 0, &ReadOutOfBoundsError{addr}
	}
	w := uint16(b.memory[addr]) | uint16(b.memory[addr+1])<<8
	return w, DefaultCycleCost, nil
}

// ReadI16 is ReadU16 reinterpreted as signed.
func (b *MemoryBus) ReadI16(addr int) (int16, uint32, error) {
	v, c, err := b.ReadU16(addr)
	return int16(v), c, err
}

// WriteU8 writes a byte at addr. Writes to ROM-masked addresses are
// silently dropped but still charge the cycle cost.
func (b *MemoryBus) WriteU8(addr int, v byte) (uint32, error) {
	if addr < 0 || addr >= len(b.memory) {
		return 0, &ReadOutOfBoundsError{addr}
	}
	if b.mask[addr]&romBit == 0 {
		b.memory[addr] = v
	}
	return DefaultCycleCost, nil
}

// WriteI8 is WriteU8 reinterpreted as signed.
func (b *MemoryBus) WriteI8(addr int, v int8) (uint32, error) {
	return b.WriteU8(addr, byte(v))
}

// WriteU16 writes a little-endian word at addr, honoring the ROM mask of
// the low byte's address (the original implementation checks only the
// first byte's mask; preserved).
func (b *MemoryBus) WriteU16(addr int, v uint16) (uint32, error) {
	if addr < 0 || addr >= len(b.memory)-1 {
		return 0, &ReadOutOfBoundsError{addr}
	}
	if b.mask[addr]&romBit == 0 {
		b.memory[addr] = byte(v & 0xFF)
		b.memory[addr+1] = byte(v >> 8)
	}
	return DefaultCycleCost, nil
}

// CopyFrom stamps src into memory starting at location, records the
// region's cycle cost and ROM flag in the access mask, and appends a
// descriptor. It fails if the copy would run past the end of the address
// space.
func (b *MemoryBus) CopyFrom(src []byte, location int, cycleCost uint32, readOnly bool) error {
	if location < 0 || location+len(src) > len(b.memory) {
		return &ReadOutOfBoundsError{location}
	}
	copy(b.memory[location:location+len(src)], src)

	accessBit := byte(0)
	if readOnly {
		accessBit = romBit
	}
	maskByte := byte(cycleCost)&cycleCostMask | accessBit
	for i := location; i < location+len(src); i++ {
		b.mask[i] = maskByte
	}

	b.appendDescriptor(RangeDescriptor{
		Start:     location,
		End:       location + len(src),
		Size:      len(src),
		CycleCost: cycleCost,
		ReadOnly:  readOnly,
	})
	return nil
}

// PatchFrom writes src into memory starting at location, ignoring the ROM
// mask. No descriptor is recorded. Used by ROM patch checkpoints.
func (b *MemoryBus) PatchFrom(src []byte, location int) error {
	if location < 0 || location+len(src) > len(b.memory) {
		return &ReadOutOfBoundsError{location}
	}
	copy(b.memory[location:location+len(src)], src)
	return nil
}

// SetDescriptor registers a region descriptor without copying any data.
// Overlapping descriptors are not rejected, only logged.
func (b *MemoryBus) SetDescriptor(start, end int, cycleCost uint32, readOnly bool) {
	b.appendDescriptor(RangeDescriptor{
		Start:     start,
		End:       end,
		Size:      end - start,
		CycleCost: cycleCost,
		ReadOnly:  readOnly,
	})
}

func (b *MemoryBus) appendDescriptor(d RangeDescriptor) {
	for _, existing := range b.descriptors {
		if d.Start < existing.End && existing.Start < d.End {
			log.Printf("membus: descriptor [0x%05X,0x%05X) overlaps existing [0x%05X,0x%05X)",
				d.Start, d.End, existing.Start, existing.End)
			break
		}
	}
	b.descriptors = append(b.descriptors, d)
}

// Descriptors returns the currently registered region descriptors.
func (b *MemoryBus) Descriptors() []RangeDescriptor {
	return b.descriptors
}

// GetSliceAt returns a zero-copy window into memory, used by the video
// renderer to read the CGA frame buffer directly.
func (b *MemoryBus) GetSliceAt(start, length int) []byte {
	return b.memory[start : start+length]
}

// Reset clears all descriptors and zeroes RAM. It does not clear the
// access mask; callers must re-stamp ROM images afterward to restore the
// ROM bits (see machine.Machine.Reset).
func (b *MemoryBus) Reset() {
	b.descriptors = nil
	for i := range b.memory {
		b.memory[i] = 0
	}
}

// DumpFlat renders size bytes starting at addr as a 16-bytes-per-row
// hex+ASCII dump, printable bytes 32..127 verbatim and everything else as
// a dot.
func (b *MemoryBus) DumpFlat(addr, size int) string {
	if addr+size > len(b.memory) || addr < 0 || size < 0 {
		return "REQUEST OUT OF BOUNDS"
	}

	var out []byte
	region := b.memory[addr : addr+size]
	display := addr

	for len(region) > 0 {
		row := region
		if len(row) > 16 {
			row = row[:16]
		}
		hexPart := make([]byte, 0, 48)
		asciiPart := make([]byte, 0, 16)
		for _, bb := range row {
			hexPart = append(hexPart, []byte(fmt.Sprintf("%02x ", bb))...)
			if bb >= 32 && bb <= 127 {
				asciiPart = append(asciiPart, bb)
			} else {
				asciiPart = append(asciiPart, '.')
			}
		}
		out = append(out, []byte(fmt.Sprintf("%05X %s %s\n", display, hexPart, asciiPart))...)
		display += 16
		region = region[len(row):]
	}
	return string(out)
}
