package swapcore

import (
	"encoding/binary"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/virtmemio/swapcore/internal/errs"
)

// MagicV2 is the current on-disk magic (spec.md §6): the last 10 bytes of
// the header slot.
const MagicV2 = "SWAPSPACE2"

// MagicV1Legacy is the older, rejected format (spec.md §4.F step 4).
const MagicV1Legacy = "SWAP-SPACE"

const magicLen = 10

// SupportedFormat is the semver constraint the header's sub-version field
// must satisfy. Modeling the single-integer on-disk version as a semver
// constraint (rather than a bare `!= 1` check) gives activation the same
// forward-compatibility story the teacher's package manager uses to gate
// dependency versions (SPEC_FULL §2): a future incompatible format bump
// only has to land outside this range, it doesn't have to change how
// activation decides to reject it.
const SupportedFormat = ">=1.0.0, <2.0.0"

// Header is the parsed content of the header slot (offset 0) described by
// spec.md §6.
type Header struct {
	Version   uint32
	LastSlot  uint32
	BadSlots  []uint32
}

const (
	headerVersionOffset  = 0
	headerLastSlotOffset = 4
	headerBadCountOffset = 8
	headerBadSlotsOffset = 12
)

// MaxBadSlots returns the maximum number of bad_slots[] entries that fit
// in a header slot of the given size, derived the way
// original_source/2.6.14/mm/swapfile.c derives MAX_SWAP_BADPAGES: the
// header page minus its fixed fields and the trailing magic, divided by
// the entry size, rather than a hardcoded constant (SPEC_FULL §3).
func MaxBadSlots(slotSize uint32) uint32 {
	if slotSize <= headerBadSlotsOffset+magicLen {
		return 0
	}

	return (slotSize - headerBadSlotsOffset - magicLen) / 4
}

// ParseHeader validates and decodes the header slot per spec.md §4.F
// step 4.
func ParseHeader(slotSize uint32, raw []byte) (*Header, error) {
	if uint32(len(raw)) != slotSize {
		return nil, errs.InvalidHeader("header slot size mismatch",
			map[string]interface{}{"want": slotSize, "got": len(raw)})
	}

	magic := string(raw[slotSize-magicLen:])

	switch magic {
	case MagicV2:
		// supported
	case MagicV1Legacy:
		return nil, errs.InvalidHeader("legacy SWAP-SPACE format is not supported", nil)
	default:
		return nil, errs.InvalidHeader("magic mismatch", map[string]interface{}{"magic": magic})
	}

	version := binary.LittleEndian.Uint32(raw[headerVersionOffset : headerVersionOffset+4])

	sv, err := semver.NewVersion(fmt.Sprintf("%d.0.0", version))
	if err != nil {
		return nil, errs.InvalidHeader("unparseable sub-version", map[string]interface{}{"version": version})
	}

	constraint, err := semver.NewConstraint(SupportedFormat)
	if err != nil {
		// SupportedFormat is a package constant; a parse failure here is
		// a programmer error, not a runtime condition.
		panic(fmt.Sprintf("swapcore: invalid SupportedFormat constraint %q: %v", SupportedFormat, err))
	}

	if !constraint.Check(sv) {
		return nil, errs.InvalidHeader("unsupported sub-version",
			map[string]interface{}{"version": version, "supported": SupportedFormat})
	}

	lastSlot := binary.LittleEndian.Uint32(raw[headerLastSlotOffset : headerLastSlotOffset+4])
	badCount := binary.LittleEndian.Uint32(raw[headerBadCountOffset : headerBadCountOffset+4])

	maxBad := MaxBadSlots(slotSize)
	if badCount > maxBad {
		return nil, errs.InvalidHeader("bad_slots list exceeds header capacity",
			map[string]interface{}{"count": badCount, "max": maxBad})
	}

	need := headerBadSlotsOffset + badCount*4
	if need > slotSize-magicLen {
		return nil, errs.InvalidHeader("bad_slots list overruns header slot", nil)
	}

	badSlots := make([]uint32, badCount)
	for i := uint32(0); i < badCount; i++ {
		off := headerBadSlotsOffset + i*4
		badSlots[i] = binary.LittleEndian.Uint32(raw[off : off+4])
	}

	return &Header{Version: version, LastSlot: lastSlot, BadSlots: badSlots}, nil
}

// EncodeHeader serializes h into a slot-sized header page. It is the
// inverse of ParseHeader and exists so activation's own tests (and a
// future mkswap-equivalent tool) can build fixtures without hand-rolling
// byte layouts.
func EncodeHeader(slotSize uint32, h *Header) ([]byte, error) {
	if uint32(len(h.BadSlots)) > MaxBadSlots(slotSize) {
		return nil, errs.InvalidHeader("bad_slots list exceeds header capacity", nil)
	}

	raw := make([]byte, slotSize)

	binary.LittleEndian.PutUint32(raw[headerVersionOffset:], h.Version)
	binary.LittleEndian.PutUint32(raw[headerLastSlotOffset:], h.LastSlot)
	binary.LittleEndian.PutUint32(raw[headerBadCountOffset:], uint32(len(h.BadSlots)))

	for i, b := range h.BadSlots {
		off := headerBadSlotsOffset + uint32(i)*4
		binary.LittleEndian.PutUint32(raw[off:], b)
	}

	copy(raw[slotSize-magicLen:], MagicV2)

	return raw, nil
}
