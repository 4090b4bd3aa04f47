package misalign

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/monitoring"
)

// Modifier moves single alignables according to a Movement. Random
// draws come from one seeded source so a scenario is reproducible.
type Modifier struct {
	src rand.Source
}

// NewModifier returns a modifier seeded with seed.
func NewModifier(seed uint64) *Modifier {
	m := &Modifier{}
	m.SetSeed(seed)
	return m
}

// SetSeed restarts the random sequence.
func (m *Modifier) SetSeed(seed uint64) {
	m.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// draw returns a displacement of nominal size sigma. A zero sigma never
// consumes a random number.
func (m *Modifier) draw(sigma float64, distribution string) float64 {
	if sigma == 0 {
		return 0
	}
	switch distribution {
	case DistributionFlat:
		return distuv.Uniform{Min: -sigma, Max: sigma, Src: m.src}.Rand()
	case DistributionGaussian:
		return distuv.Normal{Mu: 0, Sigma: sigma, Src: m.src}.Rand()
	default:
		return sigma
	}
}

func (m *Modifier) drawVec(x, y, z, scale float64, distribution string) r3.Vec {
	return r3.Vec{
		X: m.draw(scale*x, distribution),
		Y: m.draw(scale*y, distribution),
		Z: m.draw(scale*z, distribution),
	}
}

// diagonalError builds a position error with variances x², y², z².
func diagonalError(x, y, z float64) *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		x * x, 0, 0,
		0, y * y, 0,
		0, 0, z * z,
	})
}

// Modify applies mv to a and reports whether anything was changed.
func (m *Modifier) Modify(a alignment.Alignable, mv Movement) bool {
	modified := false
	errScale := mv.ScaleError * mv.Scale

	if mv.SetTranslations && mv.hasTranslation() {
		dv := m.drawVec(mv.DX, mv.DY, mv.DZ, mv.Scale, mv.Distribution)
		a.Move(dv)
		monitoring.Tracef("move %s %s by (%.4g, %.4g, %.4g)", a.Type(), a.ID(), dv.X, dv.Y, dv.Z)
		if mv.SetError {
			a.AddAlignmentPositionError(diagonalError(errScale*mv.DX, errScale*mv.DY, errScale*mv.DZ))
		}
		modified = true
	}

	if mv.SetTranslations && mv.hasLocalTranslation() {
		local := m.drawVec(mv.LocalX, mv.LocalY, mv.LocalZ, mv.Scale, mv.Distribution)
		frame := a.GlobalRotation()
		dv := frame.Apply(local)
		a.Move(dv)
		monitoring.Tracef("move %s %s locally by (%.4g, %.4g, %.4g)", a.Type(), a.ID(), local.X, local.Y, local.Z)
		if mv.SetError {
			ev := frame.Apply(r3.Vec{X: errScale * mv.LocalX, Y: errScale * mv.LocalY, Z: errScale * mv.LocalZ})
			a.AddAlignmentPositionError(diagonalError(ev.X, ev.Y, ev.Z))
		}
		modified = true
	}

	if mv.SetRotations && mv.hasRotation() {
		angles := m.drawVec(mv.PhiX, mv.PhiY, mv.PhiZ, mv.Scale, mv.Distribution)
		rot := geometry.RotationFromEuler(angles.X, angles.Y, angles.Z)
		a.Rotate(rot)
		monitoring.Tracef("rotate %s %s by (%.4g, %.4g, %.4g)", a.Type(), a.ID(), angles.X, angles.Y, angles.Z)
		if mv.SetError {
			addRotationError(a, geometry.RotationFromEuler(errScale*mv.PhiX, errScale*mv.PhiY, errScale*mv.PhiZ), a.GlobalPosition())
		}
		modified = true
	}

	if mv.SetRotations && mv.hasLocalRotation() {
		angles := m.drawVec(mv.PhiXLocal, mv.PhiYLocal, mv.PhiZLocal, mv.Scale, mv.Distribution)
		frame := a.GlobalRotation()
		toGlobal := func(r geometry.Rotation) geometry.Rotation {
			return frame.Mul(r).Mul(frame.Transpose())
		}
		a.Rotate(toGlobal(geometry.RotationFromEuler(angles.X, angles.Y, angles.Z)))
		monitoring.Tracef("rotate %s %s locally by (%.4g, %.4g, %.4g)", a.Type(), a.ID(), angles.X, angles.Y, angles.Z)
		if mv.SetError {
			errRot := geometry.RotationFromEuler(errScale*mv.PhiXLocal, errScale*mv.PhiYLocal, errScale*mv.PhiZLocal)
			addRotationError(a, toGlobal(errRot), a.GlobalPosition())
		}
		modified = true
	}

	if mv.Twist != 0 || mv.Shear != 0 {
		monitoring.Opsf("twist and shear are not supported for %s %s, ignored", a.Type(), a.ID())
	}

	return modified
}

// addRotationError gives every leaf under a the position error implied by
// turning it through rot about pivot.
func addRotationError(a alignment.Alignable, rot geometry.Rotation, pivot r3.Vec) {
	if a.Size() > 0 {
		for _, c := range a.Components() {
			addRotationError(c, rot, pivot)
		}
		return
	}
	if a.Type() != alignment.StructureDTChamber && a.Type() != alignment.StructureCSCChamber {
		return
	}
	arm := r3.Sub(a.GlobalPosition(), pivot)
	d := r3.Sub(rot.Apply(arm), arm)
	a.AddAlignmentPositionError(diagonalError(d.X, d.Y, d.Z))
}
