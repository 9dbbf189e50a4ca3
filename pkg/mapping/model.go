// Package mapping describes how target template columns are filled from a
// source workbook, builds initial mappings and persists them.
package mapping

import "strings"

// Transform identifies a built-in value rewriting step.
type Transform string

const (
	TransformTrim       Transform = "trim"
	TransformUpper      Transform = "upper"
	TransformLower      Transform = "lower"
	TransformTitle      Transform = "title"
	TransformToString   Transform = "to_string"
	TransformToInt      Transform = "to_int"
	TransformToFloat    Transform = "to_float"
	TransformDateToISO  Transform = "date_to_iso"
	TransformDigitsOnly Transform = "digits_only"
)

// Transforms lists every supported transform in display order.
var Transforms = []Transform{
	TransformTrim,
	TransformUpper,
	TransformLower,
	TransformTitle,
	TransformToString,
	TransformToInt,
	TransformToFloat,
	TransformDateToISO,
	TransformDigitsOnly,
}

// Valid reports whether t is a known transform.
func (t Transform) Valid() bool {
	for _, known := range Transforms {
		if t == known {
			return true
		}
	}
	return false
}

// DataType governs the coercion applied to a column's value.
type DataType string

const (
	TypeGeneral DataType = "general"
	TypeText    DataType = "text"
	TypeInteger DataType = "integer"
	TypeFloat   DataType = "float"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
)

// DataTypes lists every supported data type.
var DataTypes = []DataType{TypeGeneral, TypeText, TypeInteger, TypeFloat, TypeDate, TypeBoolean}

var dataTypeAliases = map[string]DataType{
	"string": TypeText,
	"int":    TypeInteger,
	"number": TypeFloat,
}

// ParseDataType normalizes s, accepting the aliases string, int and number.
// Unknown names are kept verbatim and coerce as general.
func ParseDataType(s string) DataType {
	key := strings.ToLower(strings.TrimSpace(s))
	if dt, ok := dataTypeAliases[key]; ok {
		return dt
	}
	for _, dt := range DataTypes {
		if string(dt) == key {
			return dt
		}
	}
	return DataType(s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(text []byte) error {
	*d = ParseDataType(string(text))
	return nil
}

// ColumnMapping binds one target column to at most one source column and
// carries the rules applied to its values.
type ColumnMapping struct {
	Target        string       `json:"target" yaml:"target"`
	Source        string       `json:"source,omitempty" yaml:"source,omitempty"`
	Default       string       `json:"default,omitempty" yaml:"default,omitempty"`
	Transforms    []Transform  `json:"transforms,omitempty" yaml:"transforms,omitempty"`
	FindReplace   Replacements `json:"find_replace,omitempty" yaml:"find_replace,omitempty"`
	AdvancedRules []Rule       `json:"advanced_rules,omitempty" yaml:"advanced_rules,omitempty"`
	AdvancedElse  string       `json:"advanced_else,omitempty" yaml:"advanced_else,omitempty"`
	DataType      DataType     `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	NumberFormat  string       `json:"number_format,omitempty" yaml:"number_format,omitempty"`
	AdvancedCode  string       `json:"advanced_code,omitempty" yaml:"advanced_code,omitempty"`
}

// NewColumnMapping returns an unbound column with no rules.
func NewColumnMapping(target string) ColumnMapping {
	return ColumnMapping{Target: target}
}

// HasOverride reports whether the column takes part in the cross-column pass.
func (c ColumnMapping) HasOverride() bool {
	return strings.TrimSpace(c.AdvancedCode) != "" || len(c.AdvancedRules) > 0 || c.AdvancedElse != ""
}

// SheetMapping holds the column set of one target sheet.
type SheetMapping struct {
	TargetSheet    string
	SourceSheet    string
	TargetHeaders  []string
	Columns        []ColumnMapping
	DropIfAllBlank bool
}

// NewSheetMapping returns a sheet with one unbound column per header.
func NewSheetMapping(targetSheet string, headers []string) SheetMapping {
	sm := SheetMapping{
		TargetSheet:    targetSheet,
		TargetHeaders:  append([]string(nil), headers...),
		Columns:        make([]ColumnMapping, 0, len(headers)),
		DropIfAllBlank: true,
	}
	for _, h := range headers {
		sm.Columns = append(sm.Columns, NewColumnMapping(h))
	}
	return sm
}

// Column returns the column mapping for a target header.
func (s *SheetMapping) Column(target string) (*ColumnMapping, bool) {
	for i := range s.Columns {
		if s.Columns[i].Target == target {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

// Normalize aligns Columns with TargetHeaders: columns follow header order,
// missing ones are created unbound and columns for unknown targets are dropped.
func (s *SheetMapping) Normalize() {
	if len(s.Columns) == len(s.TargetHeaders) {
		aligned := true
		for i, h := range s.TargetHeaders {
			if s.Columns[i].Target != h {
				aligned = false
				break
			}
		}
		if aligned {
			return
		}
	}

	byTarget := make(map[string]ColumnMapping, len(s.Columns))
	for _, c := range s.Columns {
		if _, seen := byTarget[c.Target]; !seen {
			byTarget[c.Target] = c
		}
	}
	cols := make([]ColumnMapping, 0, len(s.TargetHeaders))
	for _, h := range s.TargetHeaders {
		if c, ok := byTarget[h]; ok {
			cols = append(cols, c)
		} else {
			cols = append(cols, NewColumnMapping(h))
		}
	}
	s.Columns = cols
}

// MappingSpec is the whole mapping session. TemplatePath and SourcePath are
// only used by I/O collaborators and are not persisted.
type MappingSpec struct {
	TemplatePath      string
	SourcePath        string
	Sheets            []SheetMapping
	GlobalFindReplace Replacements
}

// Sheet returns the sheet mapping for a target sheet name.
func (m *MappingSpec) Sheet(targetSheet string) (*SheetMapping, bool) {
	for i := range m.Sheets {
		if m.Sheets[i].TargetSheet == targetSheet {
			return &m.Sheets[i], true
		}
	}
	return nil, false
}
