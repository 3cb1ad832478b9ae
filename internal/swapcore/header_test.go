package swapcore

import "testing"

const testSlotSize = 64

func TestHeader_EncodeParseRoundTrip(t *testing.T) {
	h := &Header{Version: 1, LastSlot: 1000, BadSlots: []uint32{3, 7, 42}}

	raw, err := EncodeHeader(testSlotSize, h)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseHeader(testSlotSize, raw)
	if err != nil {
		t.Fatal(err)
	}

	if got.Version != h.Version || got.LastSlot != h.LastSlot || len(got.BadSlots) != len(h.BadSlots) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}

	for i := range h.BadSlots {
		if got.BadSlots[i] != h.BadSlots[i] {
			t.Fatalf("bad slot %d = %d, want %d", i, got.BadSlots[i], h.BadSlots[i])
		}
	}
}

func TestHeader_RejectsLegacyMagic(t *testing.T) {
	raw := make([]byte, testSlotSize)
	copy(raw[testSlotSize-10:], MagicV1Legacy)

	if _, err := ParseHeader(testSlotSize, raw); err == nil {
		t.Fatal("expected legacy SWAP-SPACE magic to be rejected")
	}
}

func TestHeader_RejectsGarbageMagic(t *testing.T) {
	raw := make([]byte, testSlotSize)
	copy(raw[testSlotSize-10:], "GARBAGEXXX")

	if _, err := ParseHeader(testSlotSize, raw); err == nil {
		t.Fatal("expected garbage magic to be rejected")
	}
}

func TestHeader_RejectsUnsupportedVersion(t *testing.T) {
	h := &Header{Version: 2, LastSlot: 10}

	raw, err := EncodeHeader(testSlotSize, h)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseHeader(testSlotSize, raw); err == nil {
		t.Fatal("expected version 2 to fall outside SupportedFormat")
	}
}

func TestHeader_RejectsOversizedBadSlotCount(t *testing.T) {
	raw := make([]byte, testSlotSize)
	copy(raw[testSlotSize-10:], MagicV2)

	// version = 1
	raw[0] = 1

	// bad_slot_count far beyond MaxBadSlots(testSlotSize)
	badCountOff := headerBadCountOffset
	raw[badCountOff] = 0xff
	raw[badCountOff+1] = 0xff

	if _, err := ParseHeader(testSlotSize, raw); err == nil {
		t.Fatal("expected an oversized bad_slot_count to be rejected")
	}
}

func TestMaxBadSlots_ScalesWithSlotSize(t *testing.T) {
	small := MaxBadSlots(32)
	large := MaxBadSlots(4096)

	if large <= small {
		t.Fatalf("MaxBadSlots(4096) = %d, want more than MaxBadSlots(32) = %d", large, small)
	}
}

func TestMaxBadSlots_ZeroBelowFixedOverhead(t *testing.T) {
	if got := MaxBadSlots(8); got != 0 {
		t.Fatalf("MaxBadSlots(8) = %d, want 0", got)
	}
}
