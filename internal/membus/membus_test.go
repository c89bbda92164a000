package membus

import "testing"

func TestCopyFromThenReadRoundTrips(t *testing.T) {
	b := New()
	src := []byte{0xAA, 0xBB, 0xCC}
	if err := b.CopyFrom(src, 0x1000, 4, false); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	for i, want := range src {
		got, _, err := b.ReadU8(0x1000 + i)
		if err != nil {
			t.Fatalf("ReadU8(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("byte %d: got 0x%02X want 0x%02X", i, got, want)
		}
	}
}

func TestROMProtection(t *testing.T) {
	b := New()
	if err := b.CopyFrom([]byte{0xAA, 0xBB}, 0xF0000, 4, true); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	cycles, err := b.WriteU8(0xF0000, 0x00)
	if err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	if cycles != DefaultCycleCost {
		t.Errorf("write cycles = %d, want %d", cycles, DefaultCycleCost)
	}
	got, cost, err := b.ReadU8(0xF0000)
	if err != nil {
		t.Fatalf("ReadU8: %v", err)
	}
	if got != 0xAA {
		t.Errorf("ROM byte mutated: got 0x%02X want 0xAA", got)
	}
	if cost != DefaultCycleCost {
		t.Errorf("read cost = %d, want %d", cost, DefaultCycleCost)
	}
}

func TestLittleEndianWord(t *testing.T) {
	b := New()
	if err := b.CopyFrom([]byte{0x34, 0x12}, 0x100, 4, false); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	w, cost, err := b.ReadU16(0x100)
	if err != nil {
		t.Fatalf("ReadU16: %v", err)
	}
	if w != 0x1234 {
		t.Errorf("word = 0x%04X, want 0x1234", w)
	}
	if cost != DefaultCycleCost {
		t.Errorf("cost = %d, want %d", cost, DefaultCycleCost)
	}
}

func TestReadU16ComposesFromBytes(t *testing.T) {
	b := New()
	b.CopyFrom([]byte{0x01, 0x02, 0x03, 0x04, 0x05}, 0x200, 4, false)
	for a := 0x200; a < 0x204; a++ {
		lo, _, _ := b.ReadU8(a)
		hi, _, _ := b.ReadU8(a + 1)
		word, _, _ := b.ReadU16(a)
		want := uint16(lo) | uint16(hi)<<8
		if word != want {
			t.Errorf("ReadU16(0x%X) = 0x%04X, want 0x%04X", a, word, want)
		}
	}
}

func TestWriteU8ThenReadBack(t *testing.T) {
	b := New()
	if _, err := b.WriteU8(0x5000, 0x42); err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	got, _, _ := b.ReadU8(0x5000)
	if got != 0x42 {
		t.Errorf("got 0x%02X, want 0x42", got)
	}
}

func TestOutOfBoundsIndexedRead(t *testing.T) {
	b := New()
	if _, _, err := b.ReadU8(AddressSpace); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
	if _, _, err := b.ReadU16(AddressSpace - 1); err == nil {
		t.Fatal("expected out-of-bounds error for straddling word read")
	}
}

func TestCursorOutOfBoundsReadReturnsAllOnes(t *testing.T) {
	b := New()
	c := NewCursor(b)
	c.SetCursor(AddressSpace - 1)
	var cost uint32
	got := c.ReadU16(&cost)
	if got != 0xFFFF {
		t.Errorf("got 0x%04X, want 0xFFFF", got)
	}
	if cost != 8 {
		t.Errorf("cost = %d, want 8", cost)
	}
	if c.Tell() != AddressSpace-1 {
		t.Errorf("cursor advanced on OOB read: tell=%d", c.Tell())
	}
}

func TestCursorAdvancesOnlyOnSuccess(t *testing.T) {
	b := New()
	c := NewCursor(b)
	c.SetCursor(10)
	var cost uint32
	c.ReadU8(&cost)
	if c.Tell() != 11 {
		t.Errorf("tell = %d, want 11", c.Tell())
	}
	if cost != 4 {
		t.Errorf("cost = %d, want 4", cost)
	}
}

func TestCursorWriteU16ORMerges(t *testing.T) {
	b := New()
	b.WriteU8(0x300, 0x0F)
	c := NewCursor(b)
	c.SetCursor(0x300)
	var cost uint32
	c.WriteU16(0xF0F0, &cost)
	got, _, _ := b.ReadU8(0x300)
	if got != 0xFF {
		t.Errorf("OR-merge: got 0x%02X, want 0xFF (0x0F | 0xF0)", got)
	}
}

func TestResetZeroesRAMButKeepsMask(t *testing.T) {
	b := New()
	b.CopyFrom([]byte{0xAA}, 0x10, 4, true)
	b.Reset()
	got, _, _ := b.ReadU8(0x10)
	if got != 0 {
		t.Errorf("RAM not zeroed: got 0x%02X", got)
	}
	if len(b.Descriptors()) != 0 {
		t.Errorf("descriptors not cleared: %v", b.Descriptors())
	}
	// Mask survives reset: the byte is still ROM-protected.
	if _, err := b.WriteU8(0x10, 0x55); err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	got, _, _ = b.ReadU8(0x10)
	if got != 0 {
		t.Errorf("ROM mask lost across reset: write succeeded, got 0x%02X", got)
	}
}

func TestDumpFlatOutOfBounds(t *testing.T) {
	b := New()
	got := b.DumpFlat(AddressSpace-1, 100)
	if got != "REQUEST OUT OF BOUNDS" {
		t.Errorf("got %q", got)
	}
}

func TestDumpFlatFormatsPrintableAndNonPrintable(t *testing.T) {
	b := New()
	b.CopyFrom([]byte("Hi"), 0, 4, false)
	out := b.DumpFlat(0, 16)
	if len(out) == 0 {
		t.Fatal("empty dump")
	}
	if out[0:5] != "00000" {
		t.Errorf("expected address prefix 00000, got %q", out[0:5])
	}
}

func TestGetSliceAtIsZeroCopy(t *testing.T) {
	b := New()
	b.WriteU8(0x400, 0x7E)
	s := b.GetSliceAt(0x400, 4)
	s[0] = 0x11
	got, _, _ := b.ReadU8(0x400)
	if got != 0x11 {
		t.Errorf("GetSliceAt did not alias underlying memory: got 0x%02X", got)
	}
}
