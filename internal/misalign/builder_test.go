package misalign

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/testutil"
)

func newTestMuon(t *testing.T) *alignment.Muon {
	t.Helper()
	dt := []*geometry.Chamber{
		testutil.DTChamber(t, -2, 1, 1),
		testutil.DTChamber(t, 0, 2, 3),
		testutil.DTChamber(t, 1, 4, 7),
	}
	csc := []*geometry.Chamber{
		testutil.CSCChamber(t, 1, 1, 2, 5),
		testutil.CSCChamber(t, 2, 3, 1, 9),
	}
	m, err := alignment.NewMuon(testutil.Provider(dt, csc))
	require.NoError(t, err)
	return m
}

func positions(chambers []alignment.Alignable) map[geometry.DetID]r3.Vec {
	out := make(map[geometry.DetID]r3.Vec, len(chambers))
	for _, c := range chambers {
		out[c.ID()] = c.GlobalPosition()
	}
	return out
}

func mustParse(t *testing.T, doc string) ParameterSet {
	t.Helper()
	ps, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return ps
}

func TestApply_RequiresSeed(t *testing.T) {
	t.Parallel()
	b := NewBuilder(newTestMuon(t))
	err := b.Apply(mustParse(t, "DTBarrels:\n  dX: 1.0\n"))
	assert.True(t, errors.Is(err, ErrNoSeed))
}

func TestApply_RejectsBadSeed(t *testing.T) {
	t.Parallel()
	b := NewBuilder(newTestMuon(t))
	assert.Error(t, b.Apply(mustParse(t, "seed: -1\n")))
	assert.Error(t, b.Apply(mustParse(t, "seed: abc\n")))
}

func TestApply_FixedGlobalShift(t *testing.T) {
	t.Parallel()
	m := newTestMuon(t)
	before := positions(m.DTChambers())
	cscBefore := positions(m.CSCChambers())

	b := NewBuilder(m)
	require.NoError(t, b.Apply(mustParse(t, `
seed: 1
DTBarrels:
  distribution: fixed
  dX: 1.5
`)))

	for id, p := range positions(m.DTChambers()) {
		assert.InDelta(t, before[id].X+1.5, p.X, 1e-9, "%s", id)
		assert.InDelta(t, before[id].Y, p.Y, 1e-9, "%s", id)
	}
	if diff := cmp.Diff(cscBefore, positions(m.CSCChambers())); diff != "" {
		t.Errorf("endcaps moved (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, b.Modified())
}

func TestApply_LocalSetOverridesLevelSet(t *testing.T) {
	t.Parallel()
	m := newTestMuon(t)
	before := positions(m.DTChambers())

	require.NoError(t, NewBuilder(m).Apply(mustParse(t, `
seed: 1
distribution: fixed
DTBarrels:
  DTWheels:
    dZ: 1.0
  DTWheel1:
    dZ: 2.0
`)))

	// DTWheel1 is the first wheel of the domain, wheel -2.
	for id, p := range positions(m.DTChambers()) {
		want := 1.0
		if id.Wheel() == -2 {
			want = 2.0
		}
		assert.InDelta(t, before[id].Z+want, p.Z, 1e-9, "%s", id)
	}
}

func TestApply_PassesNestedSetsDown(t *testing.T) {
	t.Parallel()
	m := newTestMuon(t)
	before := positions(m.CSCChambers())

	b := NewBuilder(m)
	require.NoError(t, b.Apply(mustParse(t, `
seed: 3
distribution: fixed
CSCChambers:
  dY: 0.25
`)))

	for id, p := range positions(m.CSCChambers()) {
		assert.InDelta(t, before[id].Y+0.25, p.Y, 1e-9, "%s", id)
	}
	assert.Equal(t, len(m.CSCChambers()), b.Modified())
}

func TestApply_SameSeedIsReproducible(t *testing.T) {
	t.Parallel()
	scenario := `
seed: %d
DTChambers:
  distribution: gaussian
  dX: 0.1
  phiZ: 0.001
CSCChambers:
  distribution: flat
  localZ: 0.2
`
	run := func(seed int) map[geometry.DetID]r3.Vec {
		m := newTestMuon(t)
		require.NoError(t, NewBuilder(m).Apply(mustParse(t, sprintf(scenario, seed))))
		got := positions(m.DTChambers())
		for id, p := range positions(m.CSCChambers()) {
			got[id] = p
		}
		return got
	}

	first := run(42)
	if diff := cmp.Diff(first, run(42)); diff != "" {
		t.Errorf("same seed gave different positions (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first, run(43))
}

func TestApply_SetErrorAddsPositionError(t *testing.T) {
	t.Parallel()
	m := newTestMuon(t)
	require.NoError(t, NewBuilder(m).Apply(mustParse(t, `
seed: 1
DTChambers:
  distribution: fixed
  dX: 0.5
  setError: true
  scaleError: 2
`)))

	errs, err := m.DTAlignmentErrors()
	require.NoError(t, err)
	require.Len(t, errs.Errors, 3)
	for _, e := range errs.Errors {
		assert.InDelta(t, 1.0, e.Matrix[0], 1e-12, "%s", e.DetID)
		assert.Zero(t, e.Matrix[3])
	}

	cscErrs, err := m.CSCAlignmentErrors()
	require.NoError(t, err)
	for _, e := range cscErrs.Errors {
		assert.Equal(t, [6]float64{}, e.Matrix)
	}
}

func TestApply_SetTranslationsFalseSkipsShift(t *testing.T) {
	t.Parallel()
	m := newTestMuon(t)
	before := positions(m.DTChambers())
	b := NewBuilder(m)
	require.NoError(t, b.Apply(mustParse(t, `
seed: 1
setTranslations: false
DTChambers:
  distribution: fixed
  dX: 0.5
`)))
	if diff := cmp.Diff(before, positions(m.DTChambers())); diff != "" {
		t.Errorf("chambers moved (-want +got):\n%s", diff)
	}
	assert.Zero(t, b.Modified())
}

func TestApply_InvalidMovement(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown distribution", "seed: 1\nDTBarrels:\n  distribution: lorentz\n"},
		{"negative scale", "seed: 1\nDTWheels:\n  scale: -1\n"},
		{"string shift", "seed: 1\nCSCEndcaps:\n  dX: far\n"},
		{"numeric flag", "seed: 1\nCSCEndcaps:\n  setError: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, NewBuilder(newTestMuon(t)).Apply(mustParse(t, tt.doc)))
		})
	}
}

func TestIsLevelName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, level string
		want        bool
	}{
		{"DTWheels", "DTWheel", true},
		{"DTWheel3", "DTWheel", true},
		{"DTWheel12", "DTWheel", true},
		{"DTWheel", "DTWheel", false},
		{"DTWheelX", "DTWheel", false},
		{"DTStations", "DTWheel", false},
		{"CSCEndcap2", "CSCEndcap", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isLevelName(tt.name, tt.level), "%s/%s", tt.name, tt.level)
	}
}

func TestPropagate(t *testing.T) {
	t.Parallel()
	pset := ParameterSet{
		"seed":         1,
		"scale":        2.0,
		"dX":           1.0,
		"DTWheels":     ParameterSet{"dY": 1.0},
		"DTWheel2":     ParameterSet{"dZ": 1.0},
		"DTBarrels":    ParameterSet{"dZ": 3.0},
		"DTChambers":   ParameterSet{"dX": 0.1},
		"DTStations":   ParameterSet{"phiZ": 0.01},
		"distribution": "flat",
	}
	global := ParameterSet{"scale": 5.0}
	propagate(pset, "DTWheel", global)

	want := ParameterSet{
		"scale":        5.0,
		"distribution": "flat",
		"DTChambers":   ParameterSet{"dX": 0.1},
		"DTStations":   ParameterSet{"phiZ": 0.01},
	}
	if diff := cmp.Diff(want, global); diff != "" {
		t.Errorf("propagate mismatch (-want +got):\n%s", diff)
	}
}
