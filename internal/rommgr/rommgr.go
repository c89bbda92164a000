// Package rommgr implements the ROM Manager contract: staging ROM/BIOS
// images into the memory bus with their cycle cost and read-only flag,
// resolving the 20-bit reset entry address, and looking up checkpoint
// labels and patch sites by flat address. Image discovery (reading files
// off disk) lives in internal/romimage; this package only knows about
// already-loaded byte slices and where they belong on the bus.
//
// Grounded on the teacher's internal/cartridge image-holding shape,
// generalized from a single fixed iNES-mapped PRG/CHR pair to an
// arbitrary list of (data, location, cycle cost, read-only) images plus
// a checkpoint/patch-site index, per the original machine wiring's ROM
// manager.
package rommgr

import (
	"fmt"

	"pcxt/internal/membus"
)

// Image describes one ROM image staged at a fixed location on the
// memory bus.
type Image struct {
	Data      []byte
	Location  int
	CycleCost uint32
	ReadOnly  bool
}

// PatchSite is a fixed address that, when reached by the CPU, triggers an
// in-memory patch write bypassing ROM protection (used to splice in BIOS
// behavior substitutions).
type PatchSite struct {
	Data     []byte
	Location int
}

// Manager is the ROM Manager: a list of images to stage, the CPU's reset
// entry point, and checkpoint/patch-site indexes keyed by flat address.
type Manager struct {
	images []Image

	entrySegment, entryOffset uint16

	checkpoints map[int]string
	patchSites  map[int]PatchSite
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		checkpoints: make(map[int]string),
		patchSites:  make(map[int]PatchSite),
	}
}

// DefaultManager builds a Manager from a set of already-loaded ROM
// images and a fixed reset entry point. It is the concrete ROM Manager
// internal/romimage hands off to, after it has done the actual file IO.
func DefaultManager(images []Image, entrySegment, entryOffset uint16) *Manager {
	m := New()
	m.images = append(m.images, images...)
	m.SetEntrypoint(entrySegment, entryOffset)
	return m
}

// AddImage registers a ROM image to be staged at location with the given
// cycle cost and read-only flag.
func (m *Manager) AddImage(data []byte, location int, cycleCost uint32, readOnly bool) {
	m.images = append(m.images, Image{Data: data, Location: location, CycleCost: cycleCost, ReadOnly: readOnly})
}

// SetEntrypoint configures the CPU's reset CS:IP.
func (m *Manager) SetEntrypoint(segment, offset uint16) {
	m.entrySegment, m.entryOffset = segment, offset
}

// Entrypoint returns the configured reset CS:IP.
func (m *Manager) Entrypoint() (segment, offset uint16) {
	return m.entrySegment, m.entryOffset
}

// AddCheckpoint labels a flat address for trace logging when the CPU
// reaches it.
func (m *Manager) AddCheckpoint(flatAddr int, label string) {
	m.checkpoints[flatAddr] = label
}

// Checkpoint looks up a label for flatAddr, if one is registered.
func (m *Manager) Checkpoint(flatAddr int) (label string, ok bool) {
	label, ok = m.checkpoints[flatAddr]
	return
}

// AddPatchSite registers a patch to be installed when the CPU reaches
// flatAddr.
func (m *Manager) AddPatchSite(flatAddr int, data []byte, location int) {
	m.patchSites[flatAddr] = PatchSite{Data: data, Location: location}
}

// IsPatchCheckpoint reports whether flatAddr is a registered patch site.
func (m *Manager) IsPatchCheckpoint(flatAddr int) bool {
	_, ok := m.patchSites[flatAddr]
	return ok
}

// InstallPatches writes the patch registered at flatAddr into mem,
// bypassing ROM protection, via PatchFrom. It is a no-op if flatAddr is
// not a registered patch site.
func (m *Manager) InstallPatches(mem *membus.MemoryBus, flatAddr int) error {
	site, ok := m.patchSites[flatAddr]
	if !ok {
		return nil
	}
	return mem.PatchFrom(site.Data, site.Location)
}

// CopyIntoMemory stages every registered image onto mem in registration
// order.
func (m *Manager) CopyIntoMemory(mem *membus.MemoryBus) error {
	for i, img := range m.images {
		if err := mem.CopyFrom(img.Data, img.Location, img.CycleCost, img.ReadOnly); err != nil {
			return fmt.Errorf("rommgr: staging image %d at 0x%05X: %w", i, img.Location, err)
		}
	}
	return nil
}
