package misalign

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Distributions accepted by the "distribution" parameter.
const (
	DistributionFixed    = "fixed"
	DistributionFlat     = "flat"
	DistributionGaussian = "gaussian"
)

// Movement holds the scalar parameters applied to one node.
type Movement struct {
	Distribution    string  `validate:"oneof=fixed flat gaussian"`
	Scale           float64 `validate:"gte=0"`
	ScaleError      float64 `validate:"gte=0"`
	SetError        bool
	SetRotations    bool
	SetTranslations bool

	DX, DY, DZ             float64
	LocalX, LocalY, LocalZ float64
	PhiX, PhiY, PhiZ       float64
	PhiXLocal, PhiYLocal   float64
	PhiZLocal              float64
	Twist, Shear           float64
}

var movementValidate = validator.New()

// propagated lists the scalar parameters inherited by lower levels.
var propagated = map[string]bool{
	"distribution":    true,
	"setError":        true,
	"scaleError":      true,
	"scale":           true,
	"setRotations":    true,
	"setTranslations": true,
}

// IsPropagated reports whether a scalar parameter flows down the hierarchy.
func IsPropagated(name string) bool {
	return propagated[name]
}

func defaultMovement() Movement {
	return Movement{
		Distribution:    DistributionGaussian,
		Scale:           1,
		ScaleError:      1,
		SetRotations:    true,
		SetTranslations: true,
	}
}

func toFloat(name string, v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %s: expected number, got %T", name, v)
	}
}

func toBool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %s: expected bool, got %T", name, v)
	}
	return b, nil
}

// ParseMovement reads the scalar parameters of p. Unknown scalars are
// returned so the caller can report them; "seed" is ignored.
func ParseMovement(p ParameterSet) (Movement, []string, error) {
	mv := defaultMovement()
	floats := map[string]*float64{
		"scale": &mv.Scale, "scaleError": &mv.ScaleError,
		"dX": &mv.DX, "dY": &mv.DY, "dZ": &mv.DZ,
		"localX": &mv.LocalX, "localY": &mv.LocalY, "localZ": &mv.LocalZ,
		"phiX": &mv.PhiX, "phiY": &mv.PhiY, "phiZ": &mv.PhiZ,
		"phiXlocal": &mv.PhiXLocal, "phiYlocal": &mv.PhiYLocal, "phiZlocal": &mv.PhiZLocal,
		"twist": &mv.Twist, "shear": &mv.Shear,
	}
	bools := map[string]*bool{
		"setError": &mv.SetError, "setRotations": &mv.SetRotations, "setTranslations": &mv.SetTranslations,
	}

	var unknown []string
	for _, name := range p.ScalarNames() {
		v := p[name]
		switch {
		case name == "seed":
		case name == "distribution":
			s, ok := v.(string)
			if !ok {
				return mv, nil, fmt.Errorf("parameter distribution: expected string, got %T", v)
			}
			mv.Distribution = s
		case floats[name] != nil:
			f, err := toFloat(name, v)
			if err != nil {
				return mv, nil, err
			}
			*floats[name] = f
		case bools[name] != nil:
			b, err := toBool(name, v)
			if err != nil {
				return mv, nil, err
			}
			*bools[name] = b
		default:
			unknown = append(unknown, name)
		}
	}

	if err := movementValidate.Struct(mv); err != nil {
		return mv, nil, fmt.Errorf("invalid movement parameters: %w", err)
	}
	return mv, unknown, nil
}

func (mv Movement) hasTranslation() bool {
	return mv.DX != 0 || mv.DY != 0 || mv.DZ != 0
}

func (mv Movement) hasLocalTranslation() bool {
	return mv.LocalX != 0 || mv.LocalY != 0 || mv.LocalZ != 0
}

func (mv Movement) hasRotation() bool {
	return mv.PhiX != 0 || mv.PhiY != 0 || mv.PhiZ != 0
}

func (mv Movement) hasLocalRotation() bool {
	return mv.PhiXLocal != 0 || mv.PhiYLocal != 0 || mv.PhiZLocal != 0
}
