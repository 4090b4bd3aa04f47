package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Nominal layout, in centimetres.
var (
	dtStationRadius = [...]float64{0, 431, 515, 617, 708}
	cscStationZ     = [...]float64{0, 700, 830, 935, 1025}
)

const (
	dtWheelPitch   = 268.0
	dtSectors      = 12
	dtMB4Sectors   = 14
	mb4SplitOffset = 8 * math.Pi / 180
)

func dtSectorPhi(station, sector int) float64 {
	base := func(s int) float64 { return float64(s-1) * 2 * math.Pi / dtSectors }
	if station != 4 {
		return base(sector)
	}
	// MB4 top and bottom sectors are split in two chambers.
	switch sector {
	case 4:
		return base(4) - mb4SplitOffset
	case 13:
		return base(4) + mb4SplitOffset
	case 10:
		return base(10) - mb4SplitOffset
	case 14:
		return base(10) + mb4SplitOffset
	default:
		return base(sector)
	}
}

func cscRings(station int) []int {
	if station == 1 {
		return []int{1, 2, 3}
	}
	return []int{1, 2}
}

func cscRingRadius(station, ring int) float64 {
	if station == 1 {
		return [...]float64{0, 200, 400, 600}[ring]
	}
	return [...]float64{0, 270, 520}[ring]
}

func cscChambersInRing(station, ring int) int {
	if station > 1 && ring == 1 {
		return 18
	}
	return 36
}

func placeOnCylinder(radius, phi, z float64) Placement {
	pos := r3.Vec{X: radius * math.Cos(phi), Y: radius * math.Sin(phi), Z: z}
	return NewPlacement(pos, RotationFromEuler(0, 0, phi))
}

// IdealProvider generates the nominal chamber layout: five DT wheels of
// four stations (14 sectors in station 4, 12 elsewhere) and two CSC
// endcaps of four stations.
func IdealProvider() *StaticProvider {
	p := &StaticProvider{}
	for wheel := -2; wheel <= 2; wheel++ {
		for station := 1; station <= 4; station++ {
			sectors := dtSectors
			if station == 4 {
				sectors = dtMB4Sectors
			}
			for sector := 1; sector <= sectors; sector++ {
				id, _ := NewDTChamberID(wheel, station, sector)
				p.DT = append(p.DT, &Chamber{
					ID:        id,
					Placement: placeOnCylinder(dtStationRadius[station], dtSectorPhi(station, sector), float64(wheel)*dtWheelPitch),
				})
			}
		}
	}
	for endcap := 1; endcap <= 2; endcap++ {
		sign := 1.0
		if endcap == 2 {
			sign = -1.0
		}
		for station := 1; station <= 4; station++ {
			for _, ring := range cscRings(station) {
				n := cscChambersInRing(station, ring)
				for chamber := 1; chamber <= n; chamber++ {
					id, _ := NewCSCChamberID(endcap, station, ring, chamber)
					phi := float64(chamber-1) * 2 * math.Pi / float64(n)
					p.CSC = append(p.CSC, &Chamber{
						ID:        id,
						Placement: placeOnCylinder(cscRingRadius(station, ring), phi, sign*cscStationZ[station]),
					})
				}
			}
		}
	}
	return p
}
