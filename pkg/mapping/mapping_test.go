package mapping

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	"github.com/user/tabmap"
)

func strPtr(s string) *string { return &s }

func TestParseDataType(t *testing.T) {
	tests := map[string]DataType{
		"":        DataType(""),
		"general": TypeGeneral,
		"Text":    TypeText,
		"string":  TypeText,
		"int":     TypeInteger,
		"integer": TypeInteger,
		"number":  TypeFloat,
		"date":    TypeDate,
		"boolean": TypeBoolean,
		"money":   DataType("money"),
	}
	for in, want := range tests {
		if got := ParseDataType(in); got != want {
			t.Errorf("ParseDataType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in      string
		want    Operator
		wantErr bool
	}{
		{"", OpEquals, false},
		{"equals", OpEquals, false},
		{"NOT_EQUALS", OpNotEquals, false},
		{" contains ", OpContains, false},
		{"in", OpIn, false},
		{"not_in", OpNotIn, false},
		{"regex", OpEquals, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperator(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOperator(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOperator(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRulePredicate(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		ref  string
		want bool
	}{
		{"equals", Rule{Op: OpEquals, Match: "X"}, "X", true},
		{"equals case sensitive", Rule{Op: OpEquals, Match: "X"}, "x", false},
		{"not equals", Rule{Op: OpNotEquals, Match: "X"}, "Y", true},
		{"contains", Rule{Op: OpContains, Match: "ell"}, "hello", true},
		{"in trims tokens", Rule{Op: OpIn, Match: "A, B ,C"}, "B", true},
		{"in miss", Rule{Op: OpIn, Match: "A,B"}, "Z", false},
		{"not in", Rule{Op: OpNotIn, Match: "A,B"}, "Z", true},
		{"not in hit", Rule{Op: OpNotIn, Match: "A,B"}, "A", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Predicate().Matches(tt.ref); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestReplacements_KeepOrder(t *testing.T) {
	var r Replacements
	r.Set("b", "2")
	r.Set("a", "1")
	r.Set("c", "3")
	r.Set("b", "two")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got, want := string(data), `{"b":"two","a":"1","c":"3"}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}

	var back Replacements
	if err := json.Unmarshal([]byte(`{"z":"26","y":"25","x":""}`), &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := Replacements{{Find: "z", Replace: "26"}, {Find: "y", Replace: "25"}, {Find: "x", Replace: ""}}
	if diff := cmp.Diff(want, back); diff != "" {
		t.Errorf("json order mismatch (-want +got):\n%s", diff)
	}

	out, err := yaml.Marshal(r)
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}
	var fromYAML Replacements
	if err := yaml.Unmarshal(out, &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(r, fromYAML); diff != "" {
		t.Errorf("yaml order mismatch (-want +got):\n%s", diff)
	}

	r.Delete("a")
	if _, ok := r.Get("a"); ok || len(r) != 2 {
		t.Errorf("Delete left %v", r)
	}
}

func TestBuildInitialSpec(t *testing.T) {
	template := []tabmap.SheetHeaders{
		{Sheet: "Contacts", Headers: []string{"Name", "Email", "Phone Number"}},
		{Sheet: "Orders", Headers: []string{"Order ID", "Amount"}},
	}

	t.Run("picks best overlapping sheet", func(t *testing.T) {
		source := []tabmap.SheetHeaders{
			{Sheet: "Junk", Headers: []string{"foo"}},
			{Sheet: "People", Headers: []string{"NAME", "email", "Phone Numbr"}},
			{Sheet: "Sales", Headers: []string{"order id", "amount", "extra"}},
		}
		spec := BuildInitialSpec(template, source)
		if len(spec.Sheets) != 2 {
			t.Fatalf("expected 2 sheets, got %d", len(spec.Sheets))
		}
		contacts := spec.Sheets[0]
		if contacts.SourceSheet != "People" {
			t.Errorf("Contacts source = %q, want People", contacts.SourceSheet)
		}
		wantSources := []string{"NAME", "email", "Phone Numbr"}
		for i, c := range contacts.Columns {
			if c.Target != contacts.TargetHeaders[i] {
				t.Errorf("column %d target %q not aligned with header %q", i, c.Target, contacts.TargetHeaders[i])
			}
			if c.Source != wantSources[i] {
				t.Errorf("column %q source = %q, want %q", c.Target, c.Source, wantSources[i])
			}
		}
		if !contacts.DropIfAllBlank {
			t.Error("expected drop_if_all_blank to default to true")
		}
		if spec.Sheets[1].SourceSheet != "Sales" {
			t.Errorf("Orders source = %q, want Sales", spec.Sheets[1].SourceSheet)
		}
	})

	t.Run("ties go to the first sheet and zero overlap still binds", func(t *testing.T) {
		source := []tabmap.SheetHeaders{
			{Sheet: "First", Headers: []string{"x"}},
			{Sheet: "Second", Headers: []string{"y"}},
		}
		spec := BuildInitialSpec(template[:1], source)
		if spec.Sheets[0].SourceSheet != "First" {
			t.Errorf("source = %q, want First", spec.Sheets[0].SourceSheet)
		}
		for _, c := range spec.Sheets[0].Columns {
			if c.Source != "" {
				t.Errorf("column %q unexpectedly bound to %q", c.Target, c.Source)
			}
		}
	})

	t.Run("no source sheets", func(t *testing.T) {
		spec := BuildInitialSpec(template, nil)
		for _, sm := range spec.Sheets {
			if sm.SourceSheet != "" {
				t.Errorf("sheet %q bound to %q", sm.TargetSheet, sm.SourceSheet)
			}
			if len(sm.Columns) != len(sm.TargetHeaders) {
				t.Errorf("sheet %q has %d columns for %d headers", sm.TargetSheet, len(sm.Columns), len(sm.TargetHeaders))
			}
		}
	})
}

func sampleSpec() *MappingSpec {
	spec := BuildInitialSpec(
		[]tabmap.SheetHeaders{{Sheet: "Out", Headers: []string{"A", "B", "C"}}},
		[]tabmap.SheetHeaders{{Sheet: "In", Headers: []string{"A", "b"}}},
	)
	sm := &spec.Sheets[0]
	sm.DropIfAllBlank = false
	sm.Columns[0].Transforms = []Transform{TransformTrim, TransformUpper}
	sm.Columns[0].FindReplace = Replacements{{Find: "zeta", Replace: "z"}, {Find: "alpha", Replace: "a"}}
	sm.Columns[0].DataType = TypeText
	sm.Columns[1].Default = "n/a"
	sm.Columns[1].NumberFormat = "0.00"
	sm.Columns[2].AdvancedRules = []Rule{
		NewRule("A", OpIn, "X, Y", "hit"),
		{Ref: "B", Op: OpNotEquals, Match: ""},
	}
	sm.Columns[2].AdvancedElse = "miss"
	sm.Columns[2].AdvancedCode = `[A] == "X" ? "yes" : value`
	spec.GlobalFindReplace = Replacements{{Find: "N/A", Replace: ""}, {Find: "-", Replace: "_"}}
	return spec
}

func TestDocument_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			spec := sampleSpec()
			data, err := Marshal(spec, format)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			back, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v\n%s", err, data)
			}
			if diff := cmp.Diff(spec, back, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDocument_PathsNotPersisted(t *testing.T) {
	spec := sampleSpec()
	spec.TemplatePath = "/tmp/template.xlsx"
	spec.SourcePath = "/tmp/source.xlsx"
	data, err := Marshal(spec, FormatJSON)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "template.xlsx") || strings.Contains(string(data), "source.xlsx") {
		t.Errorf("paths leaked into document:\n%s", data)
	}
}

func TestUnmarshal_Defaults(t *testing.T) {
	doc := `
sheets:
  - target_sheet: Out
    target_headers: [A, B]
    columns:
      - target: B
        source: b
        data_type: number
        advanced_rules:
          - ref: A
            match: x
`
	spec, err := Unmarshal([]byte(doc))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	sm := spec.Sheets[0]
	if !sm.DropIfAllBlank {
		t.Error("expected drop_if_all_blank to default to true")
	}
	if len(sm.Columns) != 2 || sm.Columns[0].Target != "A" || sm.Columns[1].Target != "B" {
		t.Fatalf("columns not aligned to headers: %+v", sm.Columns)
	}
	b := sm.Columns[1]
	if b.DataType != TypeFloat {
		t.Errorf("data type = %q, want float", b.DataType)
	}
	rule := b.AdvancedRules[0]
	if rule.Op != OpEquals || rule.Set != nil {
		t.Errorf("rule defaults = %+v, want equals with nil set", rule)
	}
}

func TestUnmarshal_LegacyKeys(t *testing.T) {
	doc := `{
  "sheets": [{
    "target_sheet": "Out",
    "target_headers": ["A"],
    "source_sheet": null,
    "columns": [{
      "target": "A",
      "source": null,
      "advanced_format": "upper(value)",
      "advanced_rules": [{"ref_target": "A", "op": "equals", "match": "1", "set": "one"}],
      "advanced_else": null
    }]
  }],
  "global_find_replace": {}
}`
	spec, err := Unmarshal([]byte(doc))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	col := spec.Sheets[0].Columns[0]
	if col.AdvancedCode != "upper(value)" {
		t.Errorf("advanced_code = %q, want migrated advanced_format", col.AdvancedCode)
	}
	if col.AdvancedRules[0].Ref != "A" {
		t.Errorf("rule ref = %q, want migrated ref_target", col.AdvancedRules[0].Ref)
	}
	if col.AdvancedRules[0].Set == nil || *col.AdvancedRules[0].Set != "one" {
		t.Errorf("rule set = %v, want one", col.AdvancedRules[0].Set)
	}
}

type warnLogger struct{ warnings []string }

func (l *warnLogger) Debug(string, ...interface{}) {}
func (l *warnLogger) Info(string, ...interface{})  {}
func (l *warnLogger) Error(string, ...interface{}) {}
func (l *warnLogger) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}

func TestUnmarshal_LegacyMigration(t *testing.T) {
	tests := []struct {
		name         string
		column       string
		wantCode     string
		wantRef      string
		wantWarnings int
	}{
		{
			name:     "expression kept",
			column:   `"advanced_format": "[B] == \"x\" ? \"yes\" : value"`,
			wantCode: `[B] == "x" ? "yes" : value`,
		},
		{
			name:         "python formula dropped",
			column:       `"advanced_format": "str(value).strip()"`,
			wantWarnings: 1,
		},
		{
			name:     "advanced_code wins",
			column:   `"advanced_format": "str(value)", "advanced_code": "upper(value)"`,
			wantCode: "upper(value)",
		},
		{
			name:    "empty ref takes ref_target",
			column:  `"advanced_rules": [{"ref": "", "ref_target": "B", "match": "x", "set": "y"}]`,
			wantRef: "B",
		},
		{
			name:    "ref kept over ref_target",
			column:  `"advanced_rules": [{"ref": "A", "ref_target": "B", "match": "x", "set": "y"}]`,
			wantRef: "A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"sheets":[{"target_sheet":"S","target_headers":["A","B"],"columns":[{"target":"A",` + tt.column + `}]}]}`
			logger := &warnLogger{}
			spec, err := Unmarshal([]byte(doc), WithLogger(logger))
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			col := spec.Sheets[0].Columns[0]
			if col.AdvancedCode != tt.wantCode {
				t.Errorf("advanced_code = %q, want %q", col.AdvancedCode, tt.wantCode)
			}
			if tt.wantRef != "" && (len(col.AdvancedRules) != 1 || col.AdvancedRules[0].Ref != tt.wantRef) {
				t.Errorf("rules = %+v, want ref %q", col.AdvancedRules, tt.wantRef)
			}
			if len(logger.warnings) != tt.wantWarnings {
				t.Errorf("warnings = %q, want %d", logger.warnings, tt.wantWarnings)
			}
		})
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown operator", `{"sheets":[{"target_sheet":"S","target_headers":["A"],"columns":[{"target":"A","advanced_rules":[{"ref":"A","op":"regex","match":"x"}]}]}]}`},
		{"missing target sheet", `{"sheets":[{"target_headers":["A"]}]}`},
		{"nested replacement", `{"sheets":[],"global_find_replace":{"a":{"b":"c"}}}`},
		{"object default", `{"sheets":[{"target_sheet":"S","columns":[{"target":"A","default":{"v":1}}]}]}`},
		{"bad yaml", "sheets: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.doc)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestUnmarshal_NumericScalars(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want SheetMapping
	}{
		{
			name: "yaml default",
			doc:  "sheets:\n  - target_sheet: S\n    target_headers: [A]\n    columns:\n      - target: A\n        default: 0\n",
			want: SheetMapping{TargetSheet: "S", TargetHeaders: []string{"A"}, DropIfAllBlank: true,
				Columns: []ColumnMapping{{Target: "A", Default: "0"}}},
		},
		{
			name: "yaml number format keeps spelling",
			doc:  "sheets:\n  - target_sheet: S\n    target_headers: [A]\n    columns:\n      - target: A\n        number_format: 0.00\n",
			want: SheetMapping{TargetSheet: "S", TargetHeaders: []string{"A"}, DropIfAllBlank: true,
				Columns: []ColumnMapping{{Target: "A", NumberFormat: "0.00"}}},
		},
		{
			name: "yaml rule match",
			doc:  "sheets:\n  - target_sheet: S\n    target_headers: [A]\n    columns:\n      - target: A\n        advanced_rules:\n          - ref: A\n            match: 1\n            set: 2\n",
			want: SheetMapping{TargetSheet: "S", TargetHeaders: []string{"A"}, DropIfAllBlank: true,
				Columns: []ColumnMapping{{Target: "A", AdvancedRules: []Rule{{Ref: "A", Op: OpEquals, Match: "1", Set: strPtr("2")}}}}},
		},
		{
			name: "yaml target headers",
			doc:  "sheets:\n  - target_sheet: 2024\n    target_headers: [2023, true, Name]\n",
			want: SheetMapping{TargetSheet: "2024", TargetHeaders: []string{"2023", "true", "Name"}, DropIfAllBlank: true,
				Columns: []ColumnMapping{{Target: "2023"}, {Target: "true"}, {Target: "Name"}}},
		},
		{
			name: "yaml null stays unset",
			doc:  "sheets:\n  - target_sheet: S\n    target_headers: [A]\n    columns:\n      - target: A\n        default: ~\n",
			want: SheetMapping{TargetSheet: "S", TargetHeaders: []string{"A"}, DropIfAllBlank: true,
				Columns: []ColumnMapping{{Target: "A"}}},
		},
		{
			name: "json default and number format",
			doc:  `{"sheets":[{"target_sheet":"S","target_headers":["A"],"columns":[{"target":"A","default":0,"number_format":0.00}]}]}`,
			want: SheetMapping{TargetSheet: "S", TargetHeaders: []string{"A"}, DropIfAllBlank: true,
				Columns: []ColumnMapping{{Target: "A", Default: "0", NumberFormat: "0.00"}}},
		},
		{
			name: "json find replace values",
			doc:  `{"sheets":[{"target_sheet":"S","target_headers":["A"],"columns":[{"target":"A","find_replace":{"1":2,"yes":true}}]}]}`,
			want: SheetMapping{TargetSheet: "S", TargetHeaders: []string{"A"}, DropIfAllBlank: true,
				Columns: []ColumnMapping{{Target: "A", FindReplace: Replacements{{Find: "1", Replace: "2"}, {Find: "yes", Replace: "true"}}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Unmarshal([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, spec.Sheets[0], cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("sheet mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	spec := sampleSpec()
	for _, name := range []string{"mapping.yaml", "mapping.json"} {
		path := filepath.Join(dir, name)
		if err := WriteFile(path, spec); err != nil {
			t.Fatalf("WriteFile(%s) failed: %v", name, err)
		}
		back, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s) failed: %v", name, err)
		}
		if diff := cmp.Diff(spec, back, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil || !strings.Contains(err.Error(), "missing.yaml") {
		t.Errorf("expected error naming the path, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	sm := SheetMapping{
		TargetHeaders: []string{"A", "B", "C"},
		Columns: []ColumnMapping{
			{Target: "C", Source: "c"},
			{Target: "Gone", Source: "g"},
			{Target: "A", Source: "a"},
		},
	}
	sm.Normalize()
	want := []ColumnMapping{{Target: "A", Source: "a"}, {Target: "B"}, {Target: "C", Source: "c"}}
	if diff := cmp.Diff(want, sm.Columns); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestHasOverride(t *testing.T) {
	if (ColumnMapping{}).HasOverride() {
		t.Error("empty column should not have an override")
	}
	if !(ColumnMapping{AdvancedElse: "x"}).HasOverride() {
		t.Error("else-only column should have an override")
	}
	if !(ColumnMapping{AdvancedRules: []Rule{{Set: strPtr("y")}}}).HasOverride() {
		t.Error("rule column should have an override")
	}
}
