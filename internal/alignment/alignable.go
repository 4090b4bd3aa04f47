// Package alignment builds the alignable muon hierarchy (DT barrel and CSC
// endcaps) from raw chambers and aggregates per-element alignment payloads
// for export.
//
// The tree is built once: chambers are grouped level by level into
// composites, then a single pass links every node to its mother. After
// that the structure is fixed; only the geometric state of the leaves
// (placement and position error) may change, through Move, Rotate and
// AddAlignmentPositionError.
package alignment

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/geometry"
)

var (
	// ErrInvalidElement rejects a raw chamber that cannot be wrapped.
	ErrInvalidElement = errors.New("invalid detector element")
	// ErrMissingSubsystem is returned when a subsystem accessor finds the
	// build-guaranteed composite missing.
	ErrMissingSubsystem = errors.New("missing muon subsystem")
	// ErrMotherAlreadySet means a node was reached from two parents.
	ErrMotherAlreadySet = errors.New("mother already set")
	// ErrUnknownDetID is returned when stored payloads name an element
	// that is not part of the tree.
	ErrUnknownDetID = errors.New("unknown detector id")
	// ErrSurplusEntry is returned when stored payloads carry more entries
	// for an identifier than the tree has chambers with it.
	ErrSurplusEntry = errors.New("more entries than chambers")
)

// Alignable is any node of the hierarchy.
type Alignable interface {
	// ID is the detector identifier keying this node's payloads.
	ID() geometry.DetID
	Type() StructureType
	// Components returns a copy of the direct children.
	Components() []Alignable
	// Mother is nil for the root and before the mother-link pass.
	Mother() Alignable
	// Size is the number of direct children.
	Size() int
	// DescendantCount is the number of chambers below this node.
	DescendantCount() int

	GlobalPosition() r3.Vec
	GlobalRotation() geometry.Rotation

	// Move shifts the node (and its descendants) in the global frame.
	Move(dv r3.Vec)
	// Rotate turns the node (and its descendants) about its own position.
	Rotate(rot geometry.Rotation)
	// AddAlignmentPositionError adds a 3x3 global position error to every
	// leaf at or below this node.
	AddAlignmentPositionError(ape mat.Symmetric)

	// Alignments and AlignmentErrors return fresh collections sorted by
	// detector identifier.
	Alignments() *Alignments
	AlignmentErrors() *AlignmentErrors

	setMother(m Alignable) error
	rotateAbout(rot geometry.Rotation, pivot r3.Vec)
}

// mother holds the non-owning back-reference shared by every node kind.
type mother struct {
	m Alignable
}

func (n *mother) Mother() Alignable { return n.m }

func (n *mother) setMother(m Alignable) error {
	if n.m != nil {
		return ErrMotherAlreadySet
	}
	n.m = m
	return nil
}
