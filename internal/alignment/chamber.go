package alignment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/geometry"
)

// Chamber wraps one raw chamber as a leaf of the hierarchy.
type Chamber struct {
	mother
	typ       StructureType
	id        geometry.DetID
	placement geometry.Placement
	ape       *mat.SymDense
}

var leafTechnology = map[StructureType]geometry.SubDetector{
	StructureDTChamber:  geometry.SubDetectorDT,
	StructureCSCChamber: geometry.SubDetectorCSC,
}

// NewChamber wraps det as a leaf of type typ. It fails with
// ErrInvalidElement for a nil chamber, an identifier of the wrong
// technology, or a placement that is not a rigid transform.
func NewChamber(typ StructureType, det *geometry.Chamber) (*Chamber, error) {
	if det == nil {
		return nil, fmt.Errorf("%w: nil chamber", ErrInvalidElement)
	}
	tech, ok := leafTechnology[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a chamber type", ErrInvalidElement, typ)
	}
	if det.ID.SubDetector() != tech {
		return nil, fmt.Errorf("%w: %s is not a %s chamber", ErrInvalidElement, det.ID, tech)
	}
	if err := geometry.ValidatePlacement(det.Placement); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidElement, det.ID, err)
	}
	return &Chamber{
		typ:       typ,
		id:        det.ID,
		placement: det.Placement,
		ape:       mat.NewSymDense(3, nil),
	}, nil
}

func (c *Chamber) ID() geometry.DetID      { return c.id }
func (c *Chamber) Type() StructureType     { return c.typ }
func (c *Chamber) Components() []Alignable { return nil }
func (c *Chamber) Size() int               { return 0 }
func (c *Chamber) DescendantCount() int    { return 0 }

// Placement returns the current placement.
func (c *Chamber) Placement() geometry.Placement { return c.placement }

func (c *Chamber) GlobalPosition() r3.Vec            { return c.placement.Position() }
func (c *Chamber) GlobalRotation() geometry.Rotation { return c.placement.Rotation() }

func (c *Chamber) Move(dv r3.Vec) {
	c.placement = c.placement.Translate(dv)
}

func (c *Chamber) Rotate(rot geometry.Rotation) {
	c.rotateAbout(rot, c.GlobalPosition())
}

func (c *Chamber) rotateAbout(rot geometry.Rotation, pivot r3.Vec) {
	c.placement = c.placement.RotateAbout(rot, pivot)
}

func (c *Chamber) AddAlignmentPositionError(ape mat.Symmetric) {
	c.ape.AddSym(c.ape, ape)
}

func (c *Chamber) Alignments() *Alignments {
	return &Alignments{Transforms: []AlignTransform{{
		DetID:       c.id,
		Translation: c.placement.Position(),
		Rotation:    c.placement.Rotation(),
	}}}
}

func (c *Chamber) AlignmentErrors() *AlignmentErrors {
	return &AlignmentErrors{Errors: []AlignTransformError{NewAlignTransformError(c.id, c.ape)}}
}

func (c *Chamber) setPlacement(p geometry.Placement) error {
	if err := geometry.ValidatePlacement(p); err != nil {
		return fmt.Errorf("%s: %w", c.id, err)
	}
	c.placement = p
	return nil
}

func (c *Chamber) setAlignmentPositionError(ape mat.Symmetric) {
	c.ape = mat.NewSymDense(3, nil)
	c.ape.CopySym(ape)
}
