package alignment

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/testutil"
)

func chamberNumbers(ids []geometry.DetID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = id.Chamber()
	}
	return out
}

func TestAlignments_WholeTreeSortedAndComplete(t *testing.T) {
	provider := geometry.IdealProvider()
	// Reverse the input so the build order differs from identifier order.
	dt := append([]*geometry.Chamber(nil), provider.DT...)
	for i, j := 0, len(dt)-1; i < j; i, j = i+1, j-1 {
		dt[i], dt[j] = dt[j], dt[i]
	}
	// Out of domain chambers must not appear in the output.
	dt = append(dt, testutil.DTChamber(t, 3, 1, 1))
	m := buildMuon(t, dt, provider.CSC)

	got := m.Alignments().DetIDs()

	var want []geometry.DetID
	for _, c := range provider.DT {
		want = append(want, c.ID)
	}
	for _, c := range provider.CSC {
		want = append(want, c.ID)
	}
	assert.ElementsMatch(t, want, got)

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, uint32(got[i-1]), uint32(got[i]), "position %d out of order", i)
	}
}

func TestAlignments_DuplicatesKept(t *testing.T) {
	a := testutil.DTChamber(t, 0, 2, 1)
	b := testutil.DTChamber(t, 0, 2, 1)
	m := buildMuon(t, []*geometry.Chamber{a, b}, nil)

	ids := m.Alignments().DetIDs()
	assert.Equal(t, []geometry.DetID{a.ID, a.ID}, ids)
}

func TestAlignments_TransformsAndErrorsParallel(t *testing.T) {
	m, err := NewMuon(geometry.IdealProvider())
	require.NoError(t, err)

	if diff := cmp.Diff(m.Alignments().DetIDs(), m.AlignmentErrors().DetIDs()); diff != "" {
		t.Errorf("whole tree lists diverge (-transforms +errors):\n%s", diff)
	}

	dtA, err := m.DTAlignments()
	require.NoError(t, err)
	dtE, err := m.DTAlignmentErrors()
	require.NoError(t, err)
	assert.Equal(t, dtA.DetIDs(), dtE.DetIDs())

	cscA, err := m.CSCAlignments()
	require.NoError(t, err)
	cscE, err := m.CSCAlignmentErrors()
	require.NoError(t, err)
	assert.Equal(t, cscA.DetIDs(), cscE.DetIDs())
}

func TestCSCAlignments_ConcatenatesEndcaps(t *testing.T) {
	csc := []*geometry.Chamber{
		testutil.CSCChamber(t, 1, 1, 1, 5),
		testutil.CSCChamber(t, 1, 1, 1, 3),
		testutil.CSCChamber(t, 2, 1, 1, 1),
		testutil.CSCChamber(t, 2, 1, 1, 2),
	}
	m := buildMuon(t, nil, csc)

	got, err := m.CSCAlignments()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 1, 2}, chamberNumbers(got.DetIDs()))

	endcaps := m.CSCEndcaps()
	want := append(endcaps[0].Alignments().DetIDs(), endcaps[1].Alignments().DetIDs()...)
	if diff := cmp.Diff(want, got.DetIDs()); diff != "" {
		t.Errorf("CSC alignments are not the endcap concatenation (-want +got):\n%s", diff)
	}

	errs, err := m.CSCAlignmentErrors()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 1, 2}, chamberNumbers(errs.DetIDs()))
}

func cscLeaves(t *testing.T, chambers ...*geometry.Chamber) []Alignable {
	t.Helper()
	out := make([]Alignable, len(chambers))
	for i, c := range chambers {
		leaf, err := NewChamber(StructureCSCChamber, c)
		require.NoError(t, err)
		out[i] = leaf
	}
	return out
}

func TestCSCAlignments_ConcatenationNotMerge(t *testing.T) {
	// The first endcap node carries the identifiers that sort last, so a
	// global re-sort and a concatenation disagree.
	late := cscLeaves(t, testutil.CSCChamber(t, 2, 1, 1, 2), testutil.CSCChamber(t, 2, 1, 1, 1))
	early := cscLeaves(t, testutil.CSCChamber(t, 1, 1, 1, 5), testutil.CSCChamber(t, 1, 1, 1, 3))
	m := &Muon{
		Composite: newComposite(StructureMuon, nil),
		cscEndcaps: []*Composite{
			newComposite(StructureCSCEndcap, late),
			newComposite(StructureCSCEndcap, early),
		},
	}

	want := []geometry.DetID{late[1].ID(), late[0].ID(), early[1].ID(), early[0].ID()}

	got, err := m.CSCAlignments()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got.DetIDs()); diff != "" {
		t.Errorf("CSC alignments (-want +got):\n%s", diff)
	}
	errs, err := m.CSCAlignmentErrors()
	require.NoError(t, err)
	if diff := cmp.Diff(want, errs.DetIDs()); diff != "" {
		t.Errorf("CSC alignment errors (-want +got):\n%s", diff)
	}

	merged := append([]geometry.DetID(nil), want...)
	slices.Sort(merged)
	assert.NotEqual(t, merged, got.DetIDs())
}

func TestDTAlignments_DelegatesToBarrel(t *testing.T) {
	dt := []*geometry.Chamber{
		testutil.DTChamber(t, 2, 1, 4),
		testutil.DTChamber(t, -2, 1, 1),
	}
	m := buildMuon(t, dt, []*geometry.Chamber{testutil.CSCChamber(t, 1, 1, 1, 1)})

	got, err := m.DTAlignments()
	require.NoError(t, err)
	want := m.DTBarrel()[0].Alignments()
	assert.Equal(t, want, got)
	assert.Equal(t, []geometry.DetID{dt[1].ID, dt[0].ID}, got.DetIDs())
}

func TestSubsystemAccessors_MissingSubsystem(t *testing.T) {
	var m Muon

	_, err := m.DTAlignments()
	assert.True(t, errors.Is(err, ErrMissingSubsystem))
	_, err = m.DTAlignmentErrors()
	assert.True(t, errors.Is(err, ErrMissingSubsystem))
	_, err = m.CSCAlignments()
	assert.True(t, errors.Is(err, ErrMissingSubsystem))
	_, err = m.CSCAlignmentErrors()
	assert.True(t, errors.Is(err, ErrMissingSubsystem))

	err = Export(context.Background(), &m, &recordingSink{}, DefaultRecordNames())
	assert.True(t, errors.Is(err, ErrMissingSubsystem))
}

func TestAlignments_FreshCollections(t *testing.T) {
	m := buildMuon(t, []*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1)}, nil)

	first := m.Alignments()
	first.Transforms[0].Translation = r3.Vec{X: 1e6}

	second := m.Alignments()
	assert.NotEqual(t, first.Transforms[0].Translation, second.Transforms[0].Translation)
}

func TestMove_PropagatesToDescendants(t *testing.T) {
	dt := []*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1), testutil.DTChamber(t, 1, 2, 3)}
	csc := []*geometry.Chamber{testutil.CSCChamber(t, 1, 1, 1, 1)}
	m := buildMuon(t, dt, csc)

	before := m.Alignments()
	dv := r3.Vec{X: 0.1, Y: -0.2, Z: 0.3}
	m.DTBarrel()[0].Move(dv)
	after := m.Alignments()

	for i, tr := range after.Transforms {
		delta := r3.Sub(tr.Translation, before.Transforms[i].Translation)
		if tr.DetID.SubDetector() == geometry.SubDetectorDT {
			assert.InDelta(t, 0, r3.Norm(r3.Sub(delta, dv)), 1e-12)
		} else {
			assert.Equal(t, r3.Vec{}, delta)
		}
	}
}

func TestRotate_CompositeAboutItsCentre(t *testing.T) {
	a := &geometry.Chamber{ID: testutil.DTChamber(t, 0, 1, 1).ID, Placement: geometry.IdentityPlacement(r3.Vec{X: 1})}
	b := &geometry.Chamber{ID: testutil.DTChamber(t, 0, 1, 2).ID, Placement: geometry.IdentityPlacement(r3.Vec{X: -1})}
	m := buildMuon(t, []*geometry.Chamber{a, b}, nil)

	station := m.DTChambers()[0].Mother()
	assert.Equal(t, r3.Vec{}, station.GlobalPosition())

	station.Rotate(geometry.RotationFromEuler(0, 0, math.Pi/2))

	chambers := m.DTChambers()
	p0 := chambers[0].GlobalPosition()
	p1 := chambers[1].GlobalPosition()
	assert.InDelta(t, 0, p0.X, 1e-12)
	assert.InDelta(t, 1, p0.Y, 1e-12)
	assert.InDelta(t, 0, p1.X, 1e-12)
	assert.InDelta(t, -1, p1.Y, 1e-12)

	r := chambers[0].GlobalRotation()
	assert.InDelta(t, 1, r.Det(), 1e-12)
	assert.InDelta(t, -1, r[1], 1e-12)
}

func TestAddAlignmentPositionError_PropagatesToLeaves(t *testing.T) {
	m := buildMuon(t, []*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1), testutil.DTChamber(t, 0, 2, 1)}, nil)

	ape := mat.NewSymDense(3, []float64{
		0.04, 0, 0,
		0, 0.04, 0,
		0, 0, 0.09,
	})
	m.DTWheels()[2].AddAlignmentPositionError(ape)
	m.DTChambers()[0].AddAlignmentPositionError(ape)

	errs := m.AlignmentErrors()
	require.Len(t, errs.Errors, 2)
	assert.InDelta(t, 0.08, errs.Errors[0].Matrix[0], 1e-12)
	assert.InDelta(t, 0.18, errs.Errors[0].Matrix[5], 1e-12)
	assert.InDelta(t, 0.04, errs.Errors[1].Matrix[3], 1e-12)

	sym := errs.Errors[1].SymDense()
	assert.InDelta(t, 0.09, sym.At(2, 2), 1e-12)
	assert.Equal(t, sym.At(0, 1), sym.At(1, 0))
}

func TestApplyAlignments_RoundTrip(t *testing.T) {
	provider := geometry.IdealProvider()
	moved, err := NewMuon(provider)
	require.NoError(t, err)

	moved.CSCEndcaps()[1].Move(r3.Vec{Z: -0.5})
	moved.DTWheels()[0].Rotate(geometry.RotationFromEuler(0, 0, 0.001))
	moved.DTStations()[3].AddAlignmentPositionError(mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))

	fresh, err := NewMuon(provider)
	require.NoError(t, err)
	require.NoError(t, fresh.ApplyAlignments(moved.Alignments(), moved.AlignmentErrors()))

	want, got := moved.Alignments(), fresh.Alignments()
	require.Len(t, got.Transforms, len(want.Transforms))
	for i := range want.Transforms {
		assert.Equal(t, want.Transforms[i].DetID, got.Transforms[i].DetID)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(want.Transforms[i].Translation, got.Transforms[i].Translation)), 1e-9)
	}
	assert.Equal(t, moved.AlignmentErrors(), fresh.AlignmentErrors())
}

func TestApplyAlignments_UnknownDetID(t *testing.T) {
	m := buildMuon(t, []*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1)}, nil)
	stray := testutil.DTChamber(t, 0, 1, 2)

	err := m.ApplyAlignments(&Alignments{Transforms: []AlignTransform{{
		DetID:       stray.ID,
		Translation: stray.Position(),
		Rotation:    geometry.IdentityRotation(),
	}}}, nil)
	assert.True(t, errors.Is(err, ErrUnknownDetID))

	err = m.ApplyAlignments(nil, &AlignmentErrors{Errors: []AlignTransformError{{DetID: stray.ID}}})
	assert.True(t, errors.Is(err, ErrUnknownDetID))
}

func TestApplyAlignments_DuplicateChambers(t *testing.T) {
	dup := func() []*geometry.Chamber {
		return []*geometry.Chamber{testutil.DTChamber(t, 0, 2, 1), testutil.DTChamber(t, 0, 2, 1)}
	}
	moved := buildMuon(t, dup(), nil)
	leaves := moved.DTChambers()
	require.Len(t, leaves, 2)
	leaves[0].Move(r3.Vec{X: 1})
	leaves[1].Move(r3.Vec{X: 2})
	leaves[1].AddAlignmentPositionError(mat.NewSymDense(3, []float64{4, 0, 0, 0, 4, 0, 0, 0, 4}))

	fresh := buildMuon(t, dup(), nil)
	require.NoError(t, fresh.ApplyAlignments(moved.Alignments(), moved.AlignmentErrors()))

	got := fresh.DTChambers()
	for i := range leaves {
		assert.InDelta(t, 0, r3.Norm(r3.Sub(leaves[i].GlobalPosition(), got[i].GlobalPosition())), 1e-9, "chamber %d", i)
	}
	if diff := cmp.Diff(moved.AlignmentErrors(), fresh.AlignmentErrors()); diff != "" {
		t.Errorf("errors after apply (-want +got):\n%s", diff)
	}
}

func TestApplyAlignments_SurplusEntry(t *testing.T) {
	m := buildMuon(t, []*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1)}, nil)
	a := m.Alignments()
	a.Transforms = append(a.Transforms, a.Transforms[0])

	err := m.ApplyAlignments(a, nil)
	assert.True(t, errors.Is(err, ErrSurplusEntry))

	e := m.AlignmentErrors()
	e.Errors = append(e.Errors, e.Errors[0])
	err = m.ApplyAlignments(nil, e)
	assert.True(t, errors.Is(err, ErrSurplusEntry))
}

type recordingSink struct {
	records []string
	sizes   []int
	failOn  string
}

func (s *recordingSink) WriteAlignments(_ context.Context, record string, a *Alignments) error {
	if record == s.failOn {
		return errors.New("sink unavailable")
	}
	s.records = append(s.records, record)
	s.sizes = append(s.sizes, len(a.Transforms))
	return nil
}

func (s *recordingSink) WriteAlignmentErrors(_ context.Context, record string, e *AlignmentErrors) error {
	if record == s.failOn {
		return errors.New("sink unavailable")
	}
	s.records = append(s.records, record)
	s.sizes = append(s.sizes, len(e.Errors))
	return nil
}

func TestExport_WritesFourRecordsInOrder(t *testing.T) {
	dt := []*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1), testutil.DTChamber(t, 0, 1, 2)}
	csc := []*geometry.Chamber{testutil.CSCChamber(t, 1, 1, 1, 1)}
	m := buildMuon(t, dt, csc)

	sink := &recordingSink{}
	require.NoError(t, Export(context.Background(), m, sink, DefaultRecordNames()))

	assert.Equal(t, []string{"DTAlignments", "DTAlignmentErrors", "CSCAlignments", "CSCAlignmentErrors"}, sink.records)
	assert.Equal(t, []int{2, 2, 1, 1}, sink.sizes)

	failing := &recordingSink{failOn: "CSCAlignments"}
	err := Export(context.Background(), m, failing, DefaultRecordNames())
	assert.ErrorContains(t, err, "write CSCAlignments")
	assert.Len(t, failing.records, 2)
}

type batchSink struct {
	recordingSink
	batches []Records
}

func (s *batchSink) WriteRecords(_ context.Context, _ RecordNames, r Records) error {
	s.batches = append(s.batches, r)
	return nil
}

func TestExport_PrefersBatchSink(t *testing.T) {
	m := buildMuon(t, []*geometry.Chamber{testutil.DTChamber(t, 0, 1, 1)}, []*geometry.Chamber{testutil.CSCChamber(t, 2, 1, 1, 1)})

	sink := &batchSink{}
	require.NoError(t, Export(context.Background(), m, sink, DefaultRecordNames()))

	assert.Empty(t, sink.records)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0].DTAlignments.Transforms, 1)
	assert.Len(t, sink.batches[0].CSCAlignmentErrors.Errors, 1)
}
