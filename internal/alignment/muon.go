package alignment

import (
	"fmt"

	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/monitoring"
)

// BuildStats counts the nodes created while building a Muon.
type BuildStats struct {
	Counts map[StructureType]int
	// Dropped is the number of input chambers whose identifiers fell
	// outside the enumerated domains.
	Dropped int
}

func (s *BuildStats) count(t StructureType) {
	if s.Counts == nil {
		s.Counts = make(map[StructureType]int)
	}
	s.Counts[t]++
}

// Total is the number of nodes created, the root included.
func (s BuildStats) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Muon is the root of the hierarchy. Its components are the DT barrel
// followed by the two CSC endcaps.
type Muon struct {
	*Composite
	dtBarrel   []*Composite
	cscEndcaps []*Composite
	stats      BuildStats
}

// NewMuon builds the barrel and endcap hierarchies from provider and
// links every node to its mother. On error no tree is returned.
func NewMuon(provider geometry.Provider) (*Muon, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil geometry provider", ErrInvalidElement)
	}

	m := &Muon{Composite: newComposite(StructureMuon, nil)}

	barrel, err := BarrelPipeline.Build(provider, &m.stats)
	if err != nil {
		return nil, err
	}
	m.dtBarrel = barrel

	endcaps, err := EndcapPipeline.Build(provider, &m.stats)
	if err != nil {
		return nil, err
	}
	m.cscEndcaps = endcaps

	for _, c := range m.dtBarrel {
		m.components = append(m.components, c)
	}
	for _, c := range m.cscEndcaps {
		m.components = append(m.components, c)
	}
	m.stats.count(StructureMuon)

	if err := linkMothers(m); err != nil {
		return nil, err
	}

	monitoring.Opsf("Constructing alignable muon objects DONE: %d nodes, %d chambers dropped",
		m.stats.Total(), m.stats.Dropped)
	return m, nil
}

// linkMothers sets each component's mother to a, depth first.
func linkMothers(a Alignable) error {
	for _, c := range a.Components() {
		if err := c.setMother(a); err != nil {
			return fmt.Errorf("%s %s: %w", c.Type(), c.ID(), err)
		}
		if err := linkMothers(c); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the node counts recorded during the build.
func (m *Muon) Stats() BuildStats {
	counts := make(map[StructureType]int, len(m.stats.Counts))
	for k, v := range m.stats.Counts {
		counts[k] = v
	}
	return BuildStats{Counts: counts, Dropped: m.stats.Dropped}
}

// Walk visits m and every descendant in pre-order.
func (m *Muon) Walk(fn func(Alignable)) {
	walk(m, fn)
}

func walk(a Alignable, fn func(Alignable)) {
	fn(a)
	for _, c := range a.Components() {
		walk(c, fn)
	}
}

func (m *Muon) collect(t StructureType) []Alignable {
	var out []Alignable
	for _, top := range m.components {
		walk(top, func(a Alignable) {
			if a.Type() == t {
				out = append(out, a)
			}
		})
	}
	return out
}

func (m *Muon) DTChambers() []Alignable  { return m.collect(StructureDTChamber) }
func (m *Muon) DTStations() []Alignable  { return m.collect(StructureDTStation) }
func (m *Muon) DTWheels() []Alignable    { return m.collect(StructureDTWheel) }
func (m *Muon) CSCChambers() []Alignable { return m.collect(StructureCSCChamber) }
func (m *Muon) CSCStations() []Alignable { return m.collect(StructureCSCStation) }

// DTBarrel returns the single barrel composite as a one-element list.
func (m *Muon) DTBarrel() []Alignable {
	return toAlignables(m.dtBarrel)
}

// CSCEndcaps returns the two endcap composites, endcap 1 first.
func (m *Muon) CSCEndcaps() []Alignable {
	return toAlignables(m.cscEndcaps)
}

func toAlignables(cs []*Composite) []Alignable {
	out := make([]Alignable, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

// ByType returns the nodes of one structure level in build order.
func (m *Muon) ByType(t StructureType) []Alignable {
	if t == StructureMuon {
		return []Alignable{m}
	}
	return m.collect(t)
}

func (m *Muon) barrel() (*Composite, error) {
	if len(m.dtBarrel) == 0 {
		return nil, fmt.Errorf("%w: DT barrel", ErrMissingSubsystem)
	}
	return m.dtBarrel[0], nil
}

func (m *Muon) endcaps() (first, second *Composite, err error) {
	if len(m.cscEndcaps) < 2 {
		return nil, nil, fmt.Errorf("%w: CSC endcaps (have %d, need 2)", ErrMissingSubsystem, len(m.cscEndcaps))
	}
	return m.cscEndcaps[0], m.cscEndcaps[len(m.cscEndcaps)-1], nil
}

// DTAlignments returns the barrel composite's own aggregation.
func (m *Muon) DTAlignments() (*Alignments, error) {
	b, err := m.barrel()
	if err != nil {
		return nil, err
	}
	return b.Alignments(), nil
}

// DTAlignmentErrors returns the barrel composite's own aggregation.
func (m *Muon) DTAlignmentErrors() (*AlignmentErrors, error) {
	b, err := m.barrel()
	if err != nil {
		return nil, err
	}
	return b.AlignmentErrors(), nil
}

// CSCAlignments concatenates the first endcap's sorted transforms with
// the second's. The result is not re-sorted across endcaps.
func (m *Muon) CSCAlignments() (*Alignments, error) {
	first, second, err := m.endcaps()
	if err != nil {
		return nil, err
	}
	a, b := first.Alignments(), second.Alignments()
	out := &Alignments{Transforms: make([]AlignTransform, 0, len(a.Transforms)+len(b.Transforms))}
	out.Transforms = append(out.Transforms, a.Transforms...)
	out.Transforms = append(out.Transforms, b.Transforms...)
	return out, nil
}

// CSCAlignmentErrors concatenates the endcaps' sorted errors the same way
// as CSCAlignments.
func (m *Muon) CSCAlignmentErrors() (*AlignmentErrors, error) {
	first, second, err := m.endcaps()
	if err != nil {
		return nil, err
	}
	a, b := first.AlignmentErrors(), second.AlignmentErrors()
	out := &AlignmentErrors{Errors: make([]AlignTransformError, 0, len(a.Errors)+len(b.Errors))}
	out.Errors = append(out.Errors, a.Errors...)
	out.Errors = append(out.Errors, b.Errors...)
	return out, nil
}
