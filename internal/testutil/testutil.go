// Package testutil provides shared test fixtures for the alignment
// packages.
package testutil

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/muonalign/internal/geometry"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// DTChamber returns an unrotated DT chamber whose position encodes its
// identifier fields.
func DTChamber(t testing.TB, wheel, station, sector int) *geometry.Chamber {
	t.Helper()
	id, err := geometry.NewDTChamberID(wheel, station, sector)
	AssertNoError(t, err)
	return &geometry.Chamber{
		ID:        id,
		Placement: geometry.IdentityPlacement(r3.Vec{X: float64(sector), Y: float64(station), Z: float64(wheel)}),
	}
}

// CSCChamber returns an unrotated CSC chamber whose position encodes its
// identifier fields.
func CSCChamber(t testing.TB, endcap, station, ring, chamber int) *geometry.Chamber {
	t.Helper()
	id, err := geometry.NewCSCChamberID(endcap, station, ring, chamber)
	AssertNoError(t, err)
	return &geometry.Chamber{
		ID:        id,
		Placement: geometry.IdentityPlacement(r3.Vec{X: float64(chamber), Y: float64(ring), Z: float64(10*endcap + station)}),
	}
}

// Provider wraps chamber slices as a geometry provider.
func Provider(dt, csc []*geometry.Chamber) *geometry.StaticProvider {
	return &geometry.StaticProvider{DT: dt, CSC: csc}
}
