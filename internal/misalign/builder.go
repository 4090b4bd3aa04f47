package misalign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/monitoring"
)

// ErrNoSeed is returned when a scenario does not set "seed".
var ErrNoSeed = errors.New("scenario has no seed")

// topLevels are the groups a scenario starts from. They are never passed
// down to lower levels.
var topLevels = []string{
	alignment.StructureDTBarrel.String(),
	alignment.StructureCSCEndcap.String(),
}

// Builder applies scenarios to one muon hierarchy.
type Builder struct {
	muon     *alignment.Muon
	modifier *Modifier
	modified int
}

// NewBuilder returns a builder acting on m.
func NewBuilder(m *alignment.Muon) *Builder {
	return &Builder{muon: m, modifier: NewModifier(0)}
}

// Modified is the number of nodes changed by the last Apply.
func (b *Builder) Modified() int { return b.modified }

// Apply seeds the random source from the scenario and walks the barrel
// and both endcaps, applying matching parameter sets.
func (b *Builder) Apply(scenario ParameterSet) error {
	seed, err := scenarioSeed(scenario)
	if err != nil {
		return err
	}
	b.modifier.SetSeed(seed)
	b.modified = 0

	if err := b.decode(scenario, b.muon.DTBarrel(), alignment.StructureDTBarrel.String()); err != nil {
		return err
	}
	if err := b.decode(scenario, b.muon.CSCEndcaps(), alignment.StructureCSCEndcap.String()); err != nil {
		return err
	}
	monitoring.Opsf("Applied misalignment scenario (seed %d): %d alignables modified", seed, b.modified)
	return nil
}

func scenarioSeed(scenario ParameterSet) (uint64, error) {
	v, ok := scenario["seed"]
	if !ok {
		return 0, ErrNoSeed
	}
	switch s := v.(type) {
	case int:
		if s < 0 {
			return 0, fmt.Errorf("seed must not be negative, got %d", s)
		}
		return uint64(s), nil
	case uint64:
		return s, nil
	default:
		return 0, fmt.Errorf("seed must be an integer, got %T", v)
	}
}

// decode handles the alignables of one level, all of type level.
func (b *Builder) decode(pset ParameterSet, alignables []alignment.Alignable, level string) error {
	global := pset.Set(level + "s").Clone()
	propagate(pset, level, global)

	for i, a := range alignables {
		name := fmt.Sprintf("%s%d", level, i+1)
		local := pset.Set(name).Clone()
		mergeInto(local, global)

		mv, unknown, err := ParseMovement(local)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, u := range unknown {
			monitoring.Diagf("%s: unknown parameter %q ignored", name, u)
		}
		if b.modifier.Modify(a, mv) {
			b.modified++
		}

		components := a.Components()
		if len(components) == 0 || len(local.SetNames()) == 0 {
			continue
		}
		if err := b.decode(local, components, components[0].Type().String()); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// propagate copies into global the inheritable scalars of pset and every
// nested set that neither belongs to this level nor names a top group.
func propagate(pset ParameterSet, level string, global ParameterSet) {
	for _, k := range pset.ScalarNames() {
		if !IsPropagated(k) {
			continue
		}
		if _, exists := global[k]; !exists {
			global[k] = pset[k]
		}
	}
	for _, k := range pset.SetNames() {
		if isLevelName(k, level) || isTopLevelName(k) {
			continue
		}
		mergeInto(global, ParameterSet{k: pset[k]})
	}
}

// isLevelName matches "<level>s" and "<level><n>".
func isLevelName(name, level string) bool {
	rest, ok := strings.CutPrefix(name, level)
	if !ok {
		return false
	}
	if rest == "s" {
		return true
	}
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isTopLevelName(name string) bool {
	for _, top := range topLevels {
		if isLevelName(name, top) {
			return true
		}
	}
	return false
}
