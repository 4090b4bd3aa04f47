package alignment

// StructureType names a level of the muon hierarchy.
type StructureType int

const (
	StructureInvalid StructureType = iota
	StructureDTChamber
	StructureDTStation
	StructureDTWheel
	StructureDTBarrel
	StructureCSCChamber
	StructureCSCStation
	StructureCSCEndcap
	StructureMuon
)

var structureNames = map[StructureType]string{
	StructureDTChamber:  "DTChamber",
	StructureDTStation:  "DTStation",
	StructureDTWheel:    "DTWheel",
	StructureDTBarrel:   "DTBarrel",
	StructureCSCChamber: "CSCChamber",
	StructureCSCStation: "CSCStation",
	StructureCSCEndcap:  "CSCEndcap",
	StructureMuon:       "Muon",
}

// String returns the level name used in scenario files and reports.
func (t StructureType) String() string {
	if name, ok := structureNames[t]; ok {
		return name
	}
	return "Invalid"
}

// StructureTypes returns every valid level, leaves first.
func StructureTypes() []StructureType {
	return []StructureType{
		StructureDTChamber, StructureDTStation, StructureDTWheel, StructureDTBarrel,
		StructureCSCChamber, StructureCSCStation, StructureCSCEndcap, StructureMuon,
	}
}
