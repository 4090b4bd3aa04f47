// Package geometry describes the raw muon detector elements the alignment
// hierarchy is built from: packed identifiers, rigid placements, and the
// providers that supply chambers in a stable order.
package geometry

import "gonum.org/v1/gonum/spatial/r3"

// Chamber is one raw detector element.
type Chamber struct {
	ID        DetID
	Placement Placement
}

// Position returns the chamber centre in the global frame.
func (c *Chamber) Position() r3.Vec {
	return c.Placement.Position()
}

// Provider supplies the ordered chamber collections of both technologies.
// Consumers only read the returned chambers.
type Provider interface {
	DTChambers() []*Chamber
	CSCChambers() []*Chamber
}

// StaticProvider serves fixed chamber slices.
type StaticProvider struct {
	DT  []*Chamber
	CSC []*Chamber
}

func (p *StaticProvider) DTChambers() []*Chamber  { return p.DT }
func (p *StaticProvider) CSCChambers() []*Chamber { return p.CSC }
