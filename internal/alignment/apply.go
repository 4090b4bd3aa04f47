package alignment

import (
	"fmt"

	"github.com/banshee-data/muonalign/internal/geometry"
)

// leafQueue hands out the chambers sharing one identifier in the order
// they appear in Alignments, which is walk order for equal identifiers.
type leafQueue map[geometry.DetID][]*Chamber

func (m *Muon) leavesByID() leafQueue {
	leaves := make(leafQueue)
	m.Walk(func(a Alignable) {
		if c, ok := a.(*Chamber); ok {
			leaves[c.ID()] = append(leaves[c.ID()], c)
		}
	})
	return leaves
}

func (q leafQueue) next(id geometry.DetID) (*Chamber, error) {
	cs, ok := q[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDetID, id)
	}
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSurplusEntry, id)
	}
	q[id] = cs[1:]
	return cs[0], nil
}

// ApplyAlignments overwrites leaf placements and position errors with
// stored payloads. Either collection may be nil. Entries sharing an
// identifier are assigned to the chambers with that identifier in
// collection order, so the output of Alignments and AlignmentErrors
// round-trips even with duplicate chambers. An identifier not in the
// tree aborts with ErrUnknownDetID, and more entries for an identifier
// than chambers carrying it with ErrSurplusEntry; earlier entries stay
// applied.
func (m *Muon) ApplyAlignments(a *Alignments, e *AlignmentErrors) error {
	if a != nil {
		leaves := m.leavesByID()
		for _, t := range a.Transforms {
			c, err := leaves.next(t.DetID)
			if err != nil {
				return err
			}
			if err := c.setPlacement(t.Placement()); err != nil {
				return err
			}
		}
	}
	if e != nil {
		leaves := m.leavesByID()
		for _, te := range e.Errors {
			c, err := leaves.next(te.DetID)
			if err != nil {
				return err
			}
			c.setAlignmentPositionError(te.SymDense())
		}
	}
	return nil
}
