package misalign

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/testutil"
)

func singleChamber(t *testing.T) alignment.Alignable {
	t.Helper()
	m, err := alignment.NewMuon(testutil.Provider(
		[]*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1)}, nil))
	require.NoError(t, err)
	chambers := m.DTChambers()
	require.Len(t, chambers, 1)
	return chambers[0]
}

func TestModifier_DrawZeroSigma(t *testing.T) {
	t.Parallel()
	m := NewModifier(1)
	for _, d := range []string{DistributionFixed, DistributionFlat, DistributionGaussian} {
		assert.Zero(t, m.draw(0, d), d)
	}
}

func TestModifier_FlatWithinBounds(t *testing.T) {
	t.Parallel()
	m := NewModifier(11)
	for i := 0; i < 1000; i++ {
		v := m.draw(0.5, DistributionFlat)
		require.GreaterOrEqual(t, v, -0.5)
		require.LessOrEqual(t, v, 0.5)
	}
}

func TestModifier_GaussianSpread(t *testing.T) {
	t.Parallel()
	m := NewModifier(5)
	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := m.draw(2, DistributionGaussian)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	assert.InDelta(t, 0, mean, 0.1)
	assert.InDelta(t, 2, math.Sqrt(sumSq/n-mean*mean), 0.1)
}

func TestModifier_LocalShiftFollowsFrame(t *testing.T) {
	t.Parallel()
	c := singleChamber(t)
	c.Rotate(geometry.RotationFromEuler(0, 0, math.Pi/2))
	start := c.GlobalPosition()

	mv := defaultMovement()
	mv.Distribution = DistributionFixed
	mv.LocalX = 1
	assert.True(t, NewModifier(1).Modify(c, mv))

	// Local x points along global y after a quarter turn about z.
	got := r3.Sub(c.GlobalPosition(), start)
	assert.InDelta(t, 0, got.X, 1e-9)
	assert.InDelta(t, 1, got.Y, 1e-9)
}

func TestModifier_RotationKeepsPosition(t *testing.T) {
	t.Parallel()
	c := singleChamber(t)
	start := c.GlobalPosition()

	mv := defaultMovement()
	mv.Distribution = DistributionFixed
	mv.PhiZ = 0.3
	mv.SetError = true
	assert.True(t, NewModifier(1).Modify(c, mv))

	assert.InDelta(t, 0, r3.Norm(r3.Sub(c.GlobalPosition(), start)), 1e-9)
	x, y, z := c.GlobalRotation().EulerAngles()
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
	assert.InDelta(t, 0.3, z, 1e-9)

	// A chamber turned about its own position gains no position error.
	errs := c.AlignmentErrors().Errors
	require.Len(t, errs, 1)
	assert.Equal(t, [6]float64{}, errs[0].Matrix)
}

func TestModifier_NothingToDo(t *testing.T) {
	t.Parallel()
	c := singleChamber(t)
	mv := defaultMovement()
	mv.Twist = 0.1
	assert.False(t, NewModifier(1).Modify(c, mv))
}
