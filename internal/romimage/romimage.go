// Package romimage discovers BIOS/option-ROM image files on disk and
// hands their bytes off to rommgr.DefaultManager. Floppy and hard-disk
// images are not loaded here.
//
// Adapted from the teacher's internal/cartridge file-reading shape
// (os.ReadFile, then size validation) with the iNES header/mapper
// parsing stripped out entirely: a flat BIOS image has no header and no
// mapper concept, it is just bytes staged at a fixed address.
package romimage

import (
	"fmt"
	"os"
	"path/filepath"

	"pcxt/internal/membus"
	"pcxt/internal/rommgr"
)

// Standard IBM PC/XT BIOS siting. The 5150 and the 5160 both map their
// system BIOS into the top of the 1MB address space with the CPU's
// power-on reset vector at the traditional F000:FFF0.
const (
	BIOSLocation      = 0xFE000
	BIOSSize          = 0x2000 // 8 KiB
	BIOSCycleCost     = 4
	ResetVectorSeg    = 0xF000
	ResetVectorOffset = 0xFFF0
)

// Set describes the ROM images to stage for one machine instance: a
// required system BIOS and optional expansion ROMs (e.g. a fixed disk
// BIOS extension) at their own fixed locations.
type Set struct {
	BIOSPath     string
	ExpansionROMs map[string]int // file path -> load location
}

// Load reads every image named in s from disk, validates each against
// the 1MB address space, and returns a rommgr.Manager ready to be passed
// to machine.New.
func Load(s Set) (*rommgr.Manager, error) {
	if s.BIOSPath == "" {
		return nil, fmt.Errorf("romimage: no BIOS image specified")
	}

	biosData, err := readSized(s.BIOSPath, BIOSLocation, 0)
	if err != nil {
		return nil, err
	}

	images := []rommgr.Image{
		{Data: biosData, Location: BIOSLocation, CycleCost: BIOSCycleCost, ReadOnly: true},
	}

	for path, location := range s.ExpansionROMs {
		data, err := readSized(path, location, 0)
		if err != nil {
			return nil, err
		}
		images = append(images, rommgr.Image{Data: data, Location: location, CycleCost: BIOSCycleCost, ReadOnly: true})
	}

	return rommgr.DefaultManager(images, ResetVectorSeg, ResetVectorOffset), nil
}

// LoadBIOSFromDir reads a BIOS image named romFile out of dir (or, if
// romFile is already an absolute/relative path to a file, uses it
// directly) and builds a Manager from it alone.
func LoadBIOSFromDir(dir, romFile string) (*rommgr.Manager, error) {
	path := romFile
	if dir != "" && !filepath.IsAbs(romFile) {
		if _, err := os.Stat(romFile); err != nil {
			path = filepath.Join(dir, romFile)
		}
	}
	return Load(Set{BIOSPath: path})
}

// readSized reads path and validates it fits the 1MB address space at
// location. A maxSize of 0 means "no upper bound beyond the address
// space itself".
func readSized(path string, location int, maxSize int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("romimage: reading %s: %w", path, err)
	}
	if location < 0 || location+len(data) > membus.AddressSpace {
		return nil, fmt.Errorf("romimage: %s (%d bytes) at 0x%05X overruns the 1MB address space", path, len(data), location)
	}
	if maxSize > 0 && len(data) > maxSize {
		return nil, fmt.Errorf("romimage: %s is %d bytes, exceeds the %d byte window at 0x%05X", path, len(data), maxSize, location)
	}
	return data, nil
}
