package transformer

import (
	"fmt"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/evaluator"
	"github.com/user/tabmap/pkg/mapping"
)

// Stages reported to a FallbackHook.
const (
	StageTransform = "transform"
	StageCoerce    = "coerce"
	StageOverride  = "override"
)

// FallbackHook is told about every per-value failure the pipeline absorbed.
type FallbackHook func(stage, column string, err error)

// Option configures a SheetPipeline.
type Option func(*SheetPipeline)

// WithFallbackHook sets the hook receiving absorbed failures.
func WithFallbackHook(hook FallbackHook) Option {
	return func(p *SheetPipeline) {
		p.hook = hook
	}
}

type columnPlan struct {
	col    mapping.ColumnMapping
	srcIdx int
}

// SheetPipeline transforms the source rows of one sheet mapping. It holds no
// mutable state after construction and is safe for concurrent use when the
// hook is.
type SheetPipeline struct {
	global        mapping.Replacements
	headers       []string
	columns       []columnPlan
	overrides     []override
	sourceHeaders []string
	needSource    bool
	dropBlank     bool
	hook          FallbackHook
}

// NewSheetPipeline compiles sheet against the header row of its source sheet.
// Bindings to headers that do not exist are treated as unbound.
func NewSheetPipeline(global mapping.Replacements, sheet mapping.SheetMapping, sourceHeaders []string, opts ...Option) *SheetPipeline {
	sheet.Normalize()

	index := make(map[string]int, len(sourceHeaders))
	for i, h := range sourceHeaders {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	p := &SheetPipeline{
		global:        global,
		headers:       append([]string(nil), sheet.TargetHeaders...),
		columns:       make([]columnPlan, len(sheet.Columns)),
		sourceHeaders: append([]string(nil), sourceHeaders...),
		dropBlank:     sheet.DropIfAllBlank,
	}
	for i, col := range sheet.Columns {
		plan := columnPlan{col: col, srcIdx: -1}
		if col.Source != "" {
			if idx, ok := index[col.Source]; ok {
				plan.srcIdx = idx
			}
		}
		p.columns[i] = plan
		if col.HasOverride() {
			o := newOverride(i, col)
			if o.code {
				p.needSource = true
			}
			p.overrides = append(p.overrides, o)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Headers returns the target header row.
func (p *SheetPipeline) Headers() []string {
	return append([]string(nil), p.headers...)
}

// NumberFormats returns the number format of every target column.
func (p *SheetPipeline) NumberFormats() []string {
	formats := make([]string, len(p.columns))
	for i, c := range p.columns {
		formats[i] = c.col.NumberFormat
	}
	return formats
}

func (p *SheetPipeline) report(stage, column string, err error) {
	if p.hook != nil {
		p.hook(stage, column, err)
	}
}

// TransformRow maps one source row to a target row aligned with Headers.
// The second result is false when the row is dropped as all blank.
func (p *SheetPipeline) TransformRow(row tabmap.Row) (tabmap.Row, bool) {
	out := make(tabmap.Row, len(p.columns))
	for i, plan := range p.columns {
		out[i] = p.transformCell(row, plan)
	}

	if len(p.overrides) > 0 {
		rc := &rowContext{columns: make(map[string]any, len(out))}
		for i, h := range p.headers {
			if i < len(out) {
				rc.columns[h] = out[i]
			}
		}
		if p.needSource {
			rc.source = make(map[string]any, len(p.sourceHeaders))
			for i := len(p.sourceHeaders) - 1; i >= 0; i-- {
				var v any
				if i < len(row) {
					v = row[i]
				}
				rc.source[p.sourceHeaders[i]] = v
			}
		}

		final := make(tabmap.Row, len(out))
		copy(final, out)
		for i := range p.overrides {
			o := &p.overrides[i]
			v, err := o.apply(out[o.index], rc)
			if err != nil {
				p.report(StageOverride, o.target, err)
			}
			final[o.index] = v
		}
		out = final
	}

	if p.dropBlank && allBlank(out) {
		return nil, false
	}
	return out, true
}

func (p *SheetPipeline) transformCell(row tabmap.Row, plan columnPlan) any {
	col := plan.col

	var v any
	if plan.srcIdx >= 0 && plan.srcIdx < len(row) {
		v = row[plan.srcIdx]
	}

	v = applyTransforms(v, col.Transforms, func(name mapping.Transform, err error) {
		p.report(StageTransform, col.Target, fmt.Errorf("%s: %w", name, err))
	})
	v = ReplaceValues(v, p.global)
	v = ReplaceValues(v, col.FindReplace)

	if evaluator.IsBlank(v) && col.Default != "" {
		v = col.Default
	}

	coerced, err := coerceValue(v, col.DataType)
	if err != nil {
		p.report(StageCoerce, col.Target, fmt.Errorf("%s: %w", col.DataType, err))
		return v
	}
	return coerced
}

func allBlank(row tabmap.Row) bool {
	for _, v := range row {
		if !evaluator.IsBlank(v) {
			return false
		}
	}
	return true
}
