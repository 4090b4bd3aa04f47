package misalign

import (
	"fmt"
	"math"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/geometry"
)

// AddBaseError gives every chamber a flat position error of shift on each
// axis, plus the error from turning each station through angle about the
// beam axis.
func AddBaseError(m *alignment.Muon, shift, angle float64) error {
	if shift < 0 || angle < 0 || math.IsNaN(shift) || math.IsNaN(angle) {
		return fmt.Errorf("base errors must be non-negative, got shift=%g angle=%g", shift, angle)
	}
	if shift > 0 {
		m.AddAlignmentPositionError(diagonalError(shift, shift, shift))
	}
	if angle == 0 {
		return nil
	}
	rot := geometry.RotationFromEuler(0, 0, angle)
	for _, st := range append(m.DTStations(), m.CSCStations()...) {
		addRotationError(st, rot, st.GlobalPosition())
	}
	return nil
}
