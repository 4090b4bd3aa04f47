// Package report renders displacement summaries of stored alignment
// records: a PNG histogram and an HTML per-station chart.
package report

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/geometry"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no displacements to report")

// Displacement is the offset of one element from its reference position.
type Displacement struct {
	DetID     geometry.DetID
	Delta     r3.Vec
	Magnitude float64
}

// Displacements pairs every transform of current with the reference
// transform of the same element. A nil reference measures from the origin.
func Displacements(current, reference *alignment.Alignments) ([]Displacement, error) {
	ref := make(map[geometry.DetID]r3.Vec)
	if reference != nil {
		for _, t := range reference.Transforms {
			ref[t.DetID] = t.Translation
		}
	}

	out := make([]Displacement, 0, len(current.Transforms))
	for _, t := range current.Transforms {
		base, ok := ref[t.DetID]
		if reference != nil && !ok {
			return nil, fmt.Errorf("no reference position for %s", t.DetID)
		}
		d := r3.Sub(t.Translation, base)
		out = append(out, Displacement{DetID: t.DetID, Delta: d, Magnitude: r3.Norm(d)})
	}
	return out, nil
}

// StationGroup is the mean displacement of one station of one subsystem.
type StationGroup struct {
	Label string
	Count int
	Mean  float64
}

type stationKey struct {
	sub     geometry.SubDetector
	endcap  int
	station int
}

func (k stationKey) label() string {
	if k.sub == geometry.SubDetectorCSC {
		sign := "+"
		if k.endcap == 2 {
			sign = "-"
		}
		return fmt.Sprintf("ME%s%d", sign, k.station)
	}
	return fmt.Sprintf("MB%d", k.station)
}

// ByStation groups displacements per (subsystem, station), barrel first,
// then the forward and backward endcaps.
func ByStation(ds []Displacement) []StationGroup {
	groups := make(map[stationKey][]float64)
	for _, d := range ds {
		k := stationKey{sub: d.DetID.SubDetector(), station: d.DetID.Station()}
		if k.sub == geometry.SubDetectorCSC {
			k.endcap = d.DetID.Endcap()
		}
		groups[k] = append(groups[k], d.Magnitude)
	}

	keys := make([]stationKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.sub != b.sub {
			return a.sub < b.sub
		}
		if a.endcap != b.endcap {
			return a.endcap < b.endcap
		}
		return a.station < b.station
	})

	out := make([]StationGroup, 0, len(keys))
	for _, k := range keys {
		vals := groups[k]
		out = append(out, StationGroup{Label: k.label(), Count: len(vals), Mean: stat.Mean(vals, nil)})
	}
	return out
}
