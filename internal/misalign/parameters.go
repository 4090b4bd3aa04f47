// Package misalign applies seeded misalignment scenarios to the alignable
// muon hierarchy.
//
// A scenario is a nested parameter set. At every level of the hierarchy
// the builder looks for a set named after the level in plural form
// ("DTWheels") that applies to all nodes of that level, and for sets
// naming one node ("DTWheel3", 1-based). Node sets override level sets,
// selected scalar settings are inherited by lower levels, and nested sets
// that do not belong to the current level are passed down.
package misalign

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/muonalign/internal/fsutil"
)

// ParameterSet is one level of a scenario. Values are scalars or nested
// ParameterSets.
type ParameterSet map[string]interface{}

const maxScenarioFileSize = 1 * 1024 * 1024

// LoadScenario reads a YAML scenario file.
func LoadScenario(fsys fsutil.FileSystem, path string) (ParameterSet, error) {
	cleanPath := filepath.Clean(path)
	if ext := strings.ToLower(filepath.Ext(cleanPath)); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("scenario file must have .yaml or .yml extension, got %q", ext)
	}
	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario file: %w", err)
	}
	if info.Size() > maxScenarioFileSize {
		return nil, fmt.Errorf("scenario file too large: %d bytes (max %d)", info.Size(), maxScenarioFileSize)
	}
	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario document.
func ParseScenario(data []byte) (ParameterSet, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return normalize(raw), nil
}

// normalize converts decoded nested maps into ParameterSets.
func normalize(raw map[string]interface{}) ParameterSet {
	ps := make(ParameterSet, len(raw))
	for k, v := range raw {
		if sub, ok := v.(map[string]interface{}); ok {
			ps[k] = normalize(sub)
			continue
		}
		ps[k] = v
	}
	return ps
}

// Set returns the nested set called name, or nil.
func (p ParameterSet) Set(name string) ParameterSet {
	sub, _ := p[name].(ParameterSet)
	return sub
}

// SetNames lists the nested set names in sorted order.
func (p ParameterSet) SetNames() []string {
	var names []string
	for k, v := range p {
		if _, ok := v.(ParameterSet); ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// ScalarNames lists the scalar parameter names in sorted order.
func (p ParameterSet) ScalarNames() []string {
	var names []string
	for k, v := range p {
		if _, ok := v.(ParameterSet); !ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies p.
func (p ParameterSet) Clone() ParameterSet {
	if p == nil {
		return ParameterSet{}
	}
	out := make(ParameterSet, len(p))
	for k, v := range p {
		if sub, ok := v.(ParameterSet); ok {
			out[k] = sub.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// mergeInto adds to local every entry of global it does not already have.
// Nested sets present on both sides are merged recursively.
func mergeInto(local, global ParameterSet) {
	for k, gv := range global {
		gsub, gIsSet := gv.(ParameterSet)
		lv, exists := local[k]
		if !exists {
			if gIsSet {
				local[k] = gsub.Clone()
			} else {
				local[k] = gv
			}
			continue
		}
		if lsub, ok := lv.(ParameterSet); ok && gIsSet {
			mergeInto(lsub, gsub)
		}
	}
}
