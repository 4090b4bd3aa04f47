package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// MatrixValidationTolerance is the tolerance used when checking that a
// rotation is orthonormal with unit determinant.
const MatrixValidationTolerance = 0.01

// ErrInvalidPlacement is returned for transforms that are not rigid.
var ErrInvalidPlacement = errors.New("invalid placement")

// Rotation is a 3x3 row-major rotation matrix.
type Rotation [9]float64

// IdentityRotation returns the identity rotation.
func IdentityRotation() Rotation {
	return Rotation{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// RotationFromEuler returns Rz(phiZ)·Ry(phiY)·Rx(phiX), angles in radians.
func RotationFromEuler(phiX, phiY, phiZ float64) Rotation {
	cx, sx := math.Cos(phiX), math.Sin(phiX)
	cy, sy := math.Cos(phiY), math.Sin(phiY)
	cz, sz := math.Cos(phiZ), math.Sin(phiZ)

	rx := Rotation{1, 0, 0, 0, cx, -sx, 0, sx, cx}
	ry := Rotation{cy, 0, sy, 0, 1, 0, -sy, 0, cy}
	rz := Rotation{cz, -sz, 0, sz, cz, 0, 0, 0, 1}
	return rz.Mul(ry).Mul(rx)
}

func (r Rotation) dense() *mat.Dense {
	return mat.NewDense(3, 3, r[:])
}

// Mul returns r·o.
func (r Rotation) Mul(o Rotation) Rotation {
	var prod mat.Dense
	prod.Mul(r.dense(), o.dense())
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[3*i+j] = prod.At(i, j)
		}
	}
	return out
}

// Apply rotates v.
func (r Rotation) Apply(v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(r.dense(), mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Transpose returns the inverse rotation.
func (r Rotation) Transpose() Rotation {
	return Rotation{r[0], r[3], r[6], r[1], r[4], r[7], r[2], r[5], r[8]}
}

// Det returns the determinant.
func (r Rotation) Det() float64 {
	return mat.Det(r.dense())
}

// IsProper reports whether r is orthonormal with determinant ≈ 1.
func (r Rotation) IsProper() bool {
	if math.Abs(r.Det()-1.0) > MatrixValidationTolerance {
		return false
	}
	d := r.dense()
	var rrt mat.Dense
	rrt.Mul(d, d.T())
	return mat.EqualApprox(&rrt, mat.NewDiagDense(3, []float64{1, 1, 1}), MatrixValidationTolerance)
}

// EulerAngles decomposes r into the angles accepted by RotationFromEuler.
func (r Rotation) EulerAngles() (phiX, phiY, phiZ float64) {
	phiY = math.Asin(math.Max(-1, math.Min(1, -r[6])))
	phiX = math.Atan2(r[7], r[8])
	phiZ = math.Atan2(r[3], r[0])
	return phiX, phiY, phiZ
}

// Placement is a rigid transform (local -> global).
// T is 4x4 row-major (m00..m03, m10..m13, m20..m23, m30..m33).
type Placement struct {
	T [16]float64
}

// NewPlacement builds a placement from a position and rotation.
func NewPlacement(pos r3.Vec, rot Rotation) Placement {
	return Placement{T: [16]float64{
		rot[0], rot[1], rot[2], pos.X,
		rot[3], rot[4], rot[5], pos.Y,
		rot[6], rot[7], rot[8], pos.Z,
		0, 0, 0, 1,
	}}
}

// IdentityPlacement returns an unrotated placement at pos.
func IdentityPlacement(pos r3.Vec) Placement {
	return NewPlacement(pos, IdentityRotation())
}

// Position returns the translation part.
func (p Placement) Position() r3.Vec {
	return r3.Vec{X: p.T[3], Y: p.T[7], Z: p.T[11]}
}

// Rotation returns the rotation part.
func (p Placement) Rotation() Rotation {
	return Rotation{
		p.T[0], p.T[1], p.T[2],
		p.T[4], p.T[5], p.T[6],
		p.T[8], p.T[9], p.T[10],
	}
}

// Translate returns p shifted by dv in the global frame.
func (p Placement) Translate(dv r3.Vec) Placement {
	return NewPlacement(r3.Add(p.Position(), dv), p.Rotation())
}

// RotateAbout returns p rotated by rot about the global point pivot.
func (p Placement) RotateAbout(rot Rotation, pivot r3.Vec) Placement {
	pos := r3.Add(pivot, rot.Apply(r3.Sub(p.Position(), pivot)))
	return NewPlacement(pos, rot.Mul(p.Rotation()))
}

// ToGlobal maps a vector expressed in the local frame to the global frame.
func (p Placement) ToGlobal(local r3.Vec) r3.Vec {
	return p.Rotation().Apply(local)
}

// ValidatePlacement checks that p is a proper rigid transform.
func ValidatePlacement(p Placement) error {
	for i, v := range p.T {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: element %d is not finite", ErrInvalidPlacement, i)
		}
	}
	if !p.Rotation().IsProper() {
		return fmt.Errorf("%w: rotation is not orthonormal with unit determinant", ErrInvalidPlacement)
	}
	if p.T[12] != 0 || p.T[13] != 0 || p.T[14] != 0 || math.Abs(p.T[15]-1.0) > 0.001 {
		return fmt.Errorf("%w: last row must be [0 0 0 1]", ErrInvalidPlacement)
	}
	return nil
}
