package alignment

import (
	"fmt"

	"github.com/banshee-data/muonalign/internal/geometry"
)

// Domain is a closed enumerated range of identifier field values.
type Domain struct {
	First, Last int
}

// Values lists the domain in ascending order.
func (d Domain) Values() []int {
	if d.Last < d.First {
		return nil
	}
	vals := make([]int, 0, d.Last-d.First+1)
	for v := d.First; v <= d.Last; v++ {
		vals = append(vals, v)
	}
	return vals
}

// Contains reports whether v is in the domain.
func (d Domain) Contains(v int) bool {
	return v >= d.First && v <= d.Last
}

// Level is one nesting level of a pipeline: the composites it creates and
// the identifier field they are keyed by.
type Level struct {
	Type   StructureType
	Domain Domain
	Key    func(geometry.DetID) int
}

// groupLevels creates one composite per value of the outermost level's
// domain. Each composite holds, in input order, the candidates whose key
// equals that value, grouped recursively by the remaining levels; at the
// innermost level candidates are wrapped as leaves of type leaf.
// Candidates whose key falls outside a domain are dropped.
func groupLevels(candidates []*geometry.Chamber, levels []Level, leaf StructureType, stats *BuildStats) ([]*Composite, error) {
	level := levels[0]
	values := level.Domain.Values()
	out := make([]*Composite, 0, len(values))

	for _, v := range values {
		var matched []*geometry.Chamber
		for _, c := range candidates {
			if c == nil {
				return nil, fmt.Errorf("%w: nil chamber", ErrInvalidElement)
			}
			if level.Key(c.ID) == v {
				matched = append(matched, c)
			}
		}

		var components []Alignable
		if len(levels) == 1 {
			for _, c := range matched {
				node, err := NewChamber(leaf, c)
				if err != nil {
					return nil, err
				}
				stats.count(leaf)
				components = append(components, node)
			}
		} else {
			inner, err := groupLevels(matched, levels[1:], leaf, stats)
			if err != nil {
				return nil, err
			}
			for _, c := range inner {
				components = append(components, c)
			}
		}

		out = append(out, newComposite(level.Type, components))
		stats.count(level.Type)
	}
	return out, nil
}
