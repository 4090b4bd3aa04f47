package geometry

import (
	"errors"
	"fmt"
)

// ErrInvalidDetID is returned when an identifier field does not fit its
// bit range.
var ErrInvalidDetID = errors.New("invalid detector id")

// DetID is a packed 32-bit detector identifier.
//
// Layout (bit 0 is least significant):
//
//	28-31 detector (muon = 2)
//	25-27 sub-detector (DT = 1, CSC = 2)
//
// DT chambers:   22-24 station, 18-21 sector, 15-17 wheel+3
// CSC chambers:  14-15 endcap, 11-13 station, 9-10 ring, 3-8 chamber
//
// DetIDs order by their raw value.
type DetID uint32

// SubDetector identifies the muon technology a DetID belongs to.
type SubDetector uint32

const (
	SubDetectorUnknown SubDetector = 0
	SubDetectorDT      SubDetector = 1
	SubDetectorCSC     SubDetector = 2
)

func (s SubDetector) String() string {
	switch s {
	case SubDetectorDT:
		return "DT"
	case SubDetectorCSC:
		return "CSC"
	default:
		return "unknown"
	}
}

const (
	muonDetector = 2

	detectorShift = 28
	subDetShift   = 25
	subDetMask    = 0x7

	dtStationShift = 22
	dtStationMask  = 0x7
	dtSectorShift  = 18
	dtSectorMask   = 0xF
	dtWheelShift   = 15
	dtWheelMask    = 0x7
	dtWheelOffset  = 3

	cscEndcapShift  = 14
	cscEndcapMask   = 0x3
	cscStationShift = 11
	cscStationMask  = 0x7
	cscRingShift    = 9
	cscRingMask     = 0x3
	cscChamberShift = 3
	cscChamberMask  = 0x3F
)

func muonBase(sub SubDetector) uint32 {
	return muonDetector<<detectorShift | uint32(sub)<<subDetShift
}

func packField(name string, value, offset int, mask uint32, shift uint) (uint32, error) {
	v := value + offset
	if v < 0 || uint32(v) > mask {
		return 0, fmt.Errorf("%w: %s %d out of range", ErrInvalidDetID, name, value)
	}
	return uint32(v) << shift, nil
}

// NewDTChamberID packs a DT chamber identifier. Wheels -3..4 and stations
// and sectors that fit their bit fields are accepted; whether a chamber
// takes part in the barrel hierarchy is decided when the tree is built.
func NewDTChamberID(wheel, station, sector int) (DetID, error) {
	id := muonBase(SubDetectorDT)
	for _, f := range []struct {
		name   string
		value  int
		offset int
		mask   uint32
		shift  uint
	}{
		{"wheel", wheel, dtWheelOffset, dtWheelMask, dtWheelShift},
		{"station", station, 0, dtStationMask, dtStationShift},
		{"sector", sector, 0, dtSectorMask, dtSectorShift},
	} {
		bits, err := packField(f.name, f.value, f.offset, f.mask, f.shift)
		if err != nil {
			return 0, err
		}
		id |= bits
	}
	return DetID(id), nil
}

// NewCSCChamberID packs a CSC chamber identifier.
func NewCSCChamberID(endcap, station, ring, chamber int) (DetID, error) {
	id := muonBase(SubDetectorCSC)
	for _, f := range []struct {
		name  string
		value int
		mask  uint32
		shift uint
	}{
		{"endcap", endcap, cscEndcapMask, cscEndcapShift},
		{"station", station, cscStationMask, cscStationShift},
		{"ring", ring, cscRingMask, cscRingShift},
		{"chamber", chamber, cscChamberMask, cscChamberShift},
	} {
		bits, err := packField(f.name, f.value, 0, f.mask, f.shift)
		if err != nil {
			return 0, err
		}
		id |= bits
	}
	return DetID(id), nil
}

func (id DetID) field(shift uint, mask uint32) int {
	return int(uint32(id) >> shift & mask)
}

// IsMuon reports whether the detector bits mark a muon identifier.
func (id DetID) IsMuon() bool {
	return id.field(detectorShift, 0xF) == muonDetector
}

// SubDetector returns the muon technology, or SubDetectorUnknown for
// non-muon identifiers.
func (id DetID) SubDetector() SubDetector {
	if !id.IsMuon() {
		return SubDetectorUnknown
	}
	switch s := SubDetector(id.field(subDetShift, subDetMask)); s {
	case SubDetectorDT, SubDetectorCSC:
		return s
	default:
		return SubDetectorUnknown
	}
}

// Wheel returns the DT wheel (-3..4).
func (id DetID) Wheel() int { return id.field(dtWheelShift, dtWheelMask) - dtWheelOffset }

// Sector returns the DT sector.
func (id DetID) Sector() int { return id.field(dtSectorShift, dtSectorMask) }

// Endcap returns the CSC endcap side.
func (id DetID) Endcap() int { return id.field(cscEndcapShift, cscEndcapMask) }

// Ring returns the CSC ring.
func (id DetID) Ring() int { return id.field(cscRingShift, cscRingMask) }

// Chamber returns the CSC chamber number within its ring.
func (id DetID) Chamber() int { return id.field(cscChamberShift, cscChamberMask) }

// Station returns the station for either technology.
func (id DetID) Station() int {
	switch id.SubDetector() {
	case SubDetectorDT:
		return id.field(dtStationShift, dtStationMask)
	case SubDetectorCSC:
		return id.field(cscStationShift, cscStationMask)
	default:
		return 0
	}
}

func (id DetID) String() string {
	switch id.SubDetector() {
	case SubDetectorDT:
		return fmt.Sprintf("DT(wh=%d st=%d se=%d)", id.Wheel(), id.Station(), id.Sector())
	case SubDetectorCSC:
		return fmt.Sprintf("CSC(ec=%d st=%d ri=%d ch=%d)", id.Endcap(), id.Station(), id.Ring(), id.Chamber())
	default:
		return fmt.Sprintf("DetID(%#08x)", uint32(id))
	}
}
