package alignment

import (
	"fmt"

	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/monitoring"
)

// Enumerated identifier domains per technology.
var (
	DTWheelDomain    = Domain{First: -2, Last: 2}
	DTStationDomain  = Domain{First: 1, Last: 4}
	CSCEndcapDomain  = Domain{First: 1, Last: 2}
	CSCStationDomain = Domain{First: 1, Last: 4}
)

// Pipeline describes how one technology's chambers are grouped.
type Pipeline struct {
	Name string
	// Levels are ordered outermost first.
	Levels []Level
	Leaf   StructureType
	// Top, when valid, wraps the outermost composites into a single
	// composite. Otherwise the outermost composites are returned as
	// separate top-level entries.
	Top      StructureType
	Chambers func(geometry.Provider) []*geometry.Chamber
}

// BarrelPipeline builds chamber -> station -> wheel -> barrel.
var BarrelPipeline = Pipeline{
	Name: "DT barrel",
	Levels: []Level{
		{Type: StructureDTWheel, Domain: DTWheelDomain, Key: geometry.DetID.Wheel},
		{Type: StructureDTStation, Domain: DTStationDomain, Key: geometry.DetID.Station},
	},
	Leaf:     StructureDTChamber,
	Top:      StructureDTBarrel,
	Chambers: geometry.Provider.DTChambers,
}

// EndcapPipeline builds chamber -> station -> endcap and leaves the two
// endcaps as separate top-level entries.
var EndcapPipeline = Pipeline{
	Name: "CSC endcaps",
	Levels: []Level{
		{Type: StructureCSCEndcap, Domain: CSCEndcapDomain, Key: geometry.DetID.Endcap},
		{Type: StructureCSCStation, Domain: CSCStationDomain, Key: geometry.DetID.Station},
	},
	Leaf:     StructureCSCChamber,
	Top:      StructureInvalid,
	Chambers: geometry.Provider.CSCChambers,
}

// Build runs the pipeline over the provider's chambers and returns its
// top-level composites.
func (p Pipeline) Build(provider geometry.Provider, stats *BuildStats) ([]*Composite, error) {
	if len(p.Levels) == 0 {
		return nil, fmt.Errorf("pipeline %s has no levels", p.Name)
	}
	monitoring.Diagf("Constructing %s", p.Name)

	chambers := p.Chambers(provider)
	tech := leafTechnology[p.Leaf]
	for i, c := range chambers {
		if c == nil {
			return nil, fmt.Errorf("%s: %w: nil chamber at index %d", p.Name, ErrInvalidElement, i)
		}
		if c.ID.SubDetector() != tech {
			return nil, fmt.Errorf("%s: %w: %s is not a %s chamber", p.Name, ErrInvalidElement, c.ID, tech)
		}
	}

	before := stats.Counts[p.Leaf]
	outer, err := groupLevels(chambers, p.Levels, p.Leaf, stats)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	placed := stats.Counts[p.Leaf] - before
	if dropped := len(chambers) - placed; dropped > 0 {
		stats.Dropped += dropped
		monitoring.Diagf("%s: %d of %d chambers outside the enumerated domains", p.Name, dropped, len(chambers))
	}

	if p.Top == StructureInvalid {
		return outer, nil
	}
	components := make([]Alignable, len(outer))
	for i, c := range outer {
		components[i] = c
	}
	stats.count(p.Top)
	return []*Composite{newComposite(p.Top, components)}, nil
}
