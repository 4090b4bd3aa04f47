// Package config loads the JSON configuration of the muonalign tool.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical tool defaults file.
const DefaultConfigPath = "config/muonalign.defaults.json"

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// ToolConfig is the root configuration of the muonalign command.
// Unset fields fall back to the defaults returned by the Get* methods,
// so partial configs are safe.
type ToolConfig struct {
	// Conditions store
	DBPath *string `json:"db_path,omitempty"`
	Tag    *string `json:"tag,omitempty"`

	// Record names
	DTAlignRecord  *string `json:"dt_align_record,omitempty"`
	DTErrorRecord  *string `json:"dt_error_record,omitempty"`
	CSCAlignRecord *string `json:"csc_align_record,omitempty"`
	CSCErrorRecord *string `json:"csc_error_record,omitempty"`

	// Base alignment position errors added to every chamber on export
	ShiftError *float64 `json:"shift_error,omitempty"` // cm
	AngleError *float64 `json:"angle_error,omitempty"` // rad

	ReportDir *string `json:"report_dir,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyToolConfig returns a ToolConfig with all fields set to nil.
func EmptyToolConfig() *ToolConfig {
	return &ToolConfig{}
}

// DefaultToolConfig returns a ToolConfig with every field set to its default.
func DefaultToolConfig() *ToolConfig {
	names := alignment.DefaultRecordNames()
	return &ToolConfig{
		DBPath:         ptrString("muonalign.db"),
		Tag:            ptrString("ideal"),
		DTAlignRecord:  ptrString(names.DTAlignments),
		DTErrorRecord:  ptrString(names.DTAlignmentErrors),
		CSCAlignRecord: ptrString(names.CSCAlignments),
		CSCErrorRecord: ptrString(names.CSCAlignmentErrors),
		ShiftError:     ptrFloat64(0),
		AngleError:     ptrFloat64(0),
		ReportDir:      ptrString("reports"),
	}
}

// defaults backs the Get* fallbacks for unset fields.
var defaults = DefaultToolConfig()

// LoadToolConfig loads a ToolConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadToolConfig(fsys fsutil.FileSystem, path string) (*ToolConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyToolConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ToolConfig) Validate() error {
	for name, v := range map[string]*string{
		"db_path":          c.DBPath,
		"tag":              c.Tag,
		"dt_align_record":  c.DTAlignRecord,
		"dt_error_record":  c.DTErrorRecord,
		"csc_align_record": c.CSCAlignRecord,
		"csc_error_record": c.CSCErrorRecord,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	for name, v := range map[string]*float64{
		"shift_error": c.ShiftError,
		"angle_error": c.AngleError,
	} {
		if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be a non-negative number, got %f", name, *v)
		}
	}

	names := c.RecordNames()
	seen := map[string]bool{}
	for _, n := range []string{names.DTAlignments, names.DTAlignmentErrors, names.CSCAlignments, names.CSCAlignmentErrors} {
		if seen[n] {
			return fmt.Errorf("record name %q is used twice", n)
		}
		seen[n] = true
	}

	return nil
}

// GetDBPath returns the db_path value or the default.
func (c *ToolConfig) GetDBPath() string {
	if c.DBPath == nil {
		return *defaults.DBPath
	}
	return *c.DBPath
}

// GetTag returns the tag value or the default.
func (c *ToolConfig) GetTag() string {
	if c.Tag == nil {
		return *defaults.Tag
	}
	return *c.Tag
}

// RecordNames returns the four record names, defaulting unset ones.
func (c *ToolConfig) RecordNames() alignment.RecordNames {
	names := alignment.DefaultRecordNames()
	if c.DTAlignRecord != nil {
		names.DTAlignments = *c.DTAlignRecord
	}
	if c.DTErrorRecord != nil {
		names.DTAlignmentErrors = *c.DTErrorRecord
	}
	if c.CSCAlignRecord != nil {
		names.CSCAlignments = *c.CSCAlignRecord
	}
	if c.CSCErrorRecord != nil {
		names.CSCAlignmentErrors = *c.CSCErrorRecord
	}
	return names
}

// GetShiftError returns the shift_error value or the default.
func (c *ToolConfig) GetShiftError() float64 {
	if c.ShiftError == nil {
		return *defaults.ShiftError
	}
	return *c.ShiftError
}

// GetAngleError returns the angle_error value or the default.
func (c *ToolConfig) GetAngleError() float64 {
	if c.AngleError == nil {
		return *defaults.AngleError
	}
	return *c.AngleError
}

// GetReportDir returns the report_dir value or the default.
func (c *ToolConfig) GetReportDir() string {
	if c.ReportDir == nil {
		return *defaults.ReportDir
	}
	return *c.ReportDir
}
