package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a persisted mapping document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks JSON for .json files and YAML otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

type document struct {
	Sheets            []sheetDocument `json:"sheets" yaml:"sheets"`
	GlobalFindReplace Replacements    `json:"global_find_replace" yaml:"global_find_replace"`
}

type sheetDocument struct {
	TargetSheet    string          `json:"target_sheet" yaml:"target_sheet"`
	SourceSheet    string          `json:"source_sheet,omitempty" yaml:"source_sheet,omitempty"`
	TargetHeaders  []string        `json:"target_headers" yaml:"target_headers"`
	Columns        []ColumnMapping `json:"columns" yaml:"columns"`
	DropIfAllBlank *bool           `json:"drop_if_all_blank,omitempty" yaml:"drop_if_all_blank,omitempty"`
}

// Marshal encodes spec as a mapping document. Template and source paths are
// not part of the document.
func Marshal(spec *MappingSpec, format Format) ([]byte, error) {
	doc := document{
		Sheets:            make([]sheetDocument, 0, len(spec.Sheets)),
		GlobalFindReplace: spec.GlobalFindReplace,
	}
	if doc.GlobalFindReplace == nil {
		doc.GlobalFindReplace = Replacements{}
	}
	for _, sm := range spec.Sheets {
		drop := sm.DropIfAllBlank
		headers := sm.TargetHeaders
		if headers == nil {
			headers = []string{}
		}
		cols := sm.Columns
		if cols == nil {
			cols = []ColumnMapping{}
		}
		doc.Sheets = append(doc.Sheets, sheetDocument{
			TargetSheet:    sm.TargetSheet,
			SourceSheet:    sm.SourceSheet,
			TargetHeaders:  headers,
			Columns:        cols,
			DropIfAllBlank: &drop,
		})
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode mapping: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode mapping: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported mapping format %q", format)
}

// Unmarshal decodes a YAML or JSON mapping document. Legacy keys are
// migrated, the document is validated and missing fields get the defaults
// of a fresh mapping.
func Unmarshal(data []byte, opts ...DecodeOption) (*MappingSpec, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &MappingSpec{}, nil
	}

	var buf bytes.Buffer
	if trimmed[0] == '{' && json.Valid(trimmed) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := copyJSON(&buf, dec, anySlot); err != nil {
			return nil, fmt.Errorf("failed to parse mapping: %w", err)
		}
	} else {
		var root yaml.Node
		if err := yaml.Unmarshal(trimmed, &root); err != nil {
			return nil, fmt.Errorf("failed to parse mapping: %w", err)
		}
		if err := writeJSON(&buf, &root, anySlot); err != nil {
			return nil, fmt.Errorf("failed to parse mapping: %w", err)
		}
	}
	raw := buf.Bytes()

	raw, err := migrateLegacy(raw, o)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate mapping: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}

	spec := &MappingSpec{
		Sheets:            make([]SheetMapping, 0, len(doc.Sheets)),
		GlobalFindReplace: doc.GlobalFindReplace,
	}
	for _, sd := range doc.Sheets {
		sm := SheetMapping{
			TargetSheet:    sd.TargetSheet,
			SourceSheet:    sd.SourceSheet,
			TargetHeaders:  sd.TargetHeaders,
			Columns:        sd.Columns,
			DropIfAllBlank: true,
		}
		if sd.DropIfAllBlank != nil {
			sm.DropIfAllBlank = *sd.DropIfAllBlank
		}
		if len(sm.TargetHeaders) == 0 {
			for _, c := range sm.Columns {
				sm.TargetHeaders = append(sm.TargetHeaders, c.Target)
			}
		}
		sm.Normalize()
		spec.Sheets = append(spec.Sheets, sm)
	}
	return spec, nil
}

// LoadFile reads a mapping document from disk.
func LoadFile(path string, opts ...DecodeOption) (*MappingSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", path, err)
	}
	spec, err := Unmarshal(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// WriteFile saves spec to path, choosing the format from the extension.
func WriteFile(path string, spec *MappingSpec) error {
	data, err := Marshal(spec, FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mapping %s: %w", path, err)
	}
	return nil
}

// slot says how scalars below a document key are typed.
type slot int

const (
	anySlot slot = iota
	textSlot
	textItems
	textValues
)

// textSlots lists the keys holding text. Numbers and booleans found there
// are kept with their literal spelling, so number_format: 0.00 stays "0.00".
var textSlots = map[string]slot{
	"target_sheet":        textSlot,
	"source_sheet":        textSlot,
	"target":              textSlot,
	"source":              textSlot,
	"default":             textSlot,
	"data_type":           textSlot,
	"number_format":       textSlot,
	"advanced_else":       textSlot,
	"advanced_code":       textSlot,
	"advanced_format":     textSlot,
	"ref":                 textSlot,
	"ref_target":          textSlot,
	"op":                  textSlot,
	"match":               textSlot,
	"set":                 textSlot,
	"target_headers":      textItems,
	"transforms":          textItems,
	"find_replace":        textValues,
	"global_find_replace": textValues,
}

func childSlot(parent slot, key string) slot {
	if parent == textValues {
		return textSlot
	}
	return textSlots[key]
}

func itemSlot(parent slot) slot {
	if parent == textItems {
		return textSlot
	}
	return anySlot
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// writeJSON re-encodes a YAML tree as JSON keeping mapping key order.
func writeJSON(buf *bytes.Buffer, n *yaml.Node, s slot) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0], s)
	case yaml.AliasNode:
		return writeJSON(buf, n.Alias, s)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key := n.Content[i].Value
			if err := writeJSONString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1], childSlot(s, key)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item, itemSlot(s)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		if s == textSlot && n.ShortTag() != "!!null" {
			return writeJSONString(buf, n.Value)
		}
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return writeJSONString(buf, n.Value)
		}
		buf.Write(data)
		return nil
	}
	return fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// copyJSON re-encodes one JSON value from dec keeping key order. Numbers and
// booleans in text slots become strings with their literal spelling.
func copyJSON(buf *bytes.Buffer, dec *json.Decoder, s slot) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			buf.WriteByte('{')
			for i := 0; dec.More(); i++ {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := writeJSONString(buf, key); err != nil {
					return err
				}
				buf.WriteByte(':')
				if err := copyJSON(buf, dec, childSlot(s, key)); err != nil {
					return err
				}
			}
			buf.WriteByte('}')
		} else {
			buf.WriteByte('[')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := copyJSON(buf, dec, itemSlot(s)); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
		}
		// closing delimiter
		_, err := dec.Token()
		return err
	case json.Number:
		if s == textSlot {
			return writeJSONString(buf, t.String())
		}
		buf.WriteString(t.String())
	case bool:
		if s == textSlot {
			return writeJSONString(buf, strconv.FormatBool(t))
		}
		buf.WriteString(strconv.FormatBool(t))
	case string:
		return writeJSONString(buf, t)
	case nil:
		buf.WriteString("null")
	}
	return nil
}
