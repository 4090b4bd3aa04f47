package alignment

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/geometry"
)

// AlignTransform is the exported position and orientation of one element.
type AlignTransform struct {
	DetID       geometry.DetID
	Translation r3.Vec
	Rotation    geometry.Rotation
}

// Placement returns the transform as a rigid placement.
func (t AlignTransform) Placement() geometry.Placement {
	return geometry.NewPlacement(t.Translation, t.Rotation)
}

// AlignTransformError is the 3x3 alignment position error of one element,
// stored as the upper triangle (xx, xy, xz, yy, yz, zz).
type AlignTransformError struct {
	DetID  geometry.DetID
	Matrix [6]float64
}

// NewAlignTransformError packs a 3x3 symmetric matrix.
func NewAlignTransformError(id geometry.DetID, m mat.Symmetric) AlignTransformError {
	e := AlignTransformError{DetID: id}
	k := 0
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			e.Matrix[k] = m.At(i, j)
			k++
		}
	}
	return e
}

// SymDense unpacks the error into a fresh 3x3 symmetric matrix.
func (e AlignTransformError) SymDense() *mat.SymDense {
	m := e.Matrix
	return mat.NewSymDense(3, []float64{
		m[0], m[1], m[2],
		m[1], m[3], m[4],
		m[2], m[4], m[5],
	})
}

// Alignments is an ordered transform collection.
type Alignments struct {
	Transforms []AlignTransform
}

// AlignmentErrors is an ordered error collection, parallel to Alignments
// when produced by the same accessor.
type AlignmentErrors struct {
	Errors []AlignTransformError
}

// DetIDs lists the identifiers in collection order.
func (a *Alignments) DetIDs() []geometry.DetID {
	ids := make([]geometry.DetID, len(a.Transforms))
	for i, t := range a.Transforms {
		ids[i] = t.DetID
	}
	return ids
}

// DetIDs lists the identifiers in collection order.
func (e *AlignmentErrors) DetIDs() []geometry.DetID {
	ids := make([]geometry.DetID, len(e.Errors))
	for i, t := range e.Errors {
		ids[i] = t.DetID
	}
	return ids
}

// compareDetID is the single ordering shared by transform and error
// sorting so the two collections stay parallel.
func compareDetID(a, b geometry.DetID) int {
	return cmp.Compare(a, b)
}

func sortTransforms(ts []AlignTransform) {
	slices.SortStableFunc(ts, func(a, b AlignTransform) int { return compareDetID(a.DetID, b.DetID) })
}

func sortErrors(es []AlignTransformError) {
	slices.SortStableFunc(es, func(a, b AlignTransformError) int { return compareDetID(a.DetID, b.DetID) })
}
