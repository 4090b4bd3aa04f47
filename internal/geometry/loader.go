package geometry

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/muonalign/internal/fsutil"
)

const maxGeometryFileSize = 16 * 1024 * 1024

// geometryFile is the on-disk chamber list. Rotation is optional and
// defaults to identity.
type geometryFile struct {
	DT  []dtEntry  `json:"dt" yaml:"dt"`
	CSC []cscEntry `json:"csc" yaml:"csc"`
}

type dtEntry struct {
	Wheel    int       `json:"wheel" yaml:"wheel"`
	Station  int       `json:"station" yaml:"station"`
	Sector   int       `json:"sector" yaml:"sector"`
	Position []float64 `json:"position" yaml:"position"`
	Rotation []float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

type cscEntry struct {
	Endcap   int       `json:"endcap" yaml:"endcap"`
	Station  int       `json:"station" yaml:"station"`
	Ring     int       `json:"ring" yaml:"ring"`
	Chamber  int       `json:"chamber" yaml:"chamber"`
	Position []float64 `json:"position" yaml:"position"`
	Rotation []float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

func entryPlacement(pos, rot []float64) (Placement, error) {
	if len(pos) != 3 {
		return Placement{}, fmt.Errorf("position must have 3 elements, got %d", len(pos))
	}
	r := IdentityRotation()
	switch len(rot) {
	case 0:
	case 9:
		copy(r[:], rot)
	default:
		return Placement{}, fmt.Errorf("rotation must have 9 elements, got %d", len(rot))
	}
	p := NewPlacement(r3.Vec{X: pos[0], Y: pos[1], Z: pos[2]}, r)
	if err := ValidatePlacement(p); err != nil {
		return Placement{}, err
	}
	return p, nil
}

// LoadProvider reads a chamber list from a .json, .yaml or .yml file.
// Chamber order in the file is preserved.
func LoadProvider(fsys fsutil.FileSystem, path string) (*StaticProvider, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("geometry file must have .json, .yaml or .yml extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat geometry file: %w", err)
	}
	if info.Size() > maxGeometryFileSize {
		return nil, fmt.Errorf("geometry file too large: %d bytes (max %d)", info.Size(), maxGeometryFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read geometry file: %w", err)
	}

	var gf geometryFile
	if ext == ".json" {
		err = json.Unmarshal(data, &gf)
	} else {
		err = yaml.Unmarshal(data, &gf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse geometry file: %w", err)
	}

	p := &StaticProvider{}
	for i, e := range gf.DT {
		id, err := NewDTChamberID(e.Wheel, e.Station, e.Sector)
		if err != nil {
			return nil, fmt.Errorf("dt[%d]: %w", i, err)
		}
		placement, err := entryPlacement(e.Position, e.Rotation)
		if err != nil {
			return nil, fmt.Errorf("dt[%d] %s: %w", i, id, err)
		}
		p.DT = append(p.DT, &Chamber{ID: id, Placement: placement})
	}
	for i, e := range gf.CSC {
		id, err := NewCSCChamberID(e.Endcap, e.Station, e.Ring, e.Chamber)
		if err != nil {
			return nil, fmt.Errorf("csc[%d]: %w", i, err)
		}
		placement, err := entryPlacement(e.Position, e.Rotation)
		if err != nil {
			return nil, fmt.Errorf("csc[%d] %s: %w", i, id, err)
		}
		p.CSC = append(p.CSC, &Chamber{ID: id, Placement: placement})
	}
	return p, nil
}
