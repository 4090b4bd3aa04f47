package alignment

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/geometry"
)

// Composite groups components that share structural identifier fields.
// Its component list is fixed at construction.
type Composite struct {
	mother
	typ        StructureType
	components []Alignable
}

func newComposite(typ StructureType, components []Alignable) *Composite {
	return &Composite{typ: typ, components: components}
}

// ID is the identifier of the first leaf below the composite, or 0 when
// the composite has no leaves.
func (c *Composite) ID() geometry.DetID {
	for _, comp := range c.components {
		if id := comp.ID(); id != 0 {
			return id
		}
	}
	return 0
}

func (c *Composite) Type() StructureType { return c.typ }

func (c *Composite) Components() []Alignable {
	out := make([]Alignable, len(c.components))
	copy(out, c.components)
	return out
}

func (c *Composite) Size() int { return len(c.components) }

func (c *Composite) DescendantCount() int {
	n := 0
	for _, comp := range c.components {
		if _, ok := comp.(*Chamber); ok {
			n++
			continue
		}
		n += comp.DescendantCount()
	}
	return n
}

// GlobalPosition is the mean position of the components, or the origin
// for an empty composite.
func (c *Composite) GlobalPosition() r3.Vec {
	if len(c.components) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, comp := range c.components {
		sum = r3.Add(sum, comp.GlobalPosition())
	}
	return r3.Scale(1/float64(len(c.components)), sum)
}

// GlobalRotation of a composite is the global frame.
func (c *Composite) GlobalRotation() geometry.Rotation {
	return geometry.IdentityRotation()
}

func (c *Composite) Move(dv r3.Vec) {
	for _, comp := range c.components {
		comp.Move(dv)
	}
}

func (c *Composite) Rotate(rot geometry.Rotation) {
	c.rotateAbout(rot, c.GlobalPosition())
}

func (c *Composite) rotateAbout(rot geometry.Rotation, pivot r3.Vec) {
	for _, comp := range c.components {
		comp.rotateAbout(rot, pivot)
	}
}

func (c *Composite) AddAlignmentPositionError(ape mat.Symmetric) {
	for _, comp := range c.components {
		comp.AddAlignmentPositionError(ape)
	}
}

// Alignments collects every component's transforms and sorts them by
// detector identifier.
func (c *Composite) Alignments() *Alignments {
	out := &Alignments{}
	for _, comp := range c.components {
		out.Transforms = append(out.Transforms, comp.Alignments().Transforms...)
	}
	sortTransforms(out.Transforms)
	return out
}

// AlignmentErrors collects every component's errors and sorts them by
// detector identifier.
func (c *Composite) AlignmentErrors() *AlignmentErrors {
	out := &AlignmentErrors{}
	for _, comp := range c.components {
		out.Errors = append(out.Errors, comp.AlignmentErrors().Errors...)
	}
	sortErrors(out.Errors)
	return out
}
